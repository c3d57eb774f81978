// AngelaMos | 2026
// dto.go

package printjob

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateJobTypeRequest struct {
	Format      string          `json:"format"      validate:"required,paper_format"`
	Color       bool            `json:"color"`
	Description string          `json:"description" validate:"max=500"`
	Price       decimal.Decimal `json:"price"       validate:"gt=0"`
	Active      *bool           `json:"active,omitempty"`
}

type UpdateJobTypeRequest struct {
	Format      *string          `json:"format,omitempty"      validate:"omitempty,paper_format"`
	Color       *bool            `json:"color,omitempty"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	Price       *decimal.Decimal `json:"price,omitempty"       validate:"omitempty,gt=0"`
	Active      *bool            `json:"active,omitempty"`
}

type PriceRequest struct {
	Price decimal.Decimal `json:"price" validate:"gt=0"`
}

type UpdatePrintJobRequest struct {
	Format *string `json:"format,omitempty" validate:"omitempty,paper_format"`
	Color  *bool   `json:"color,omitempty"`
}

type PurgeRequest struct {
	Days int `json:"days" validate:"gte=0,lte=3650"`
}

type ListParams struct {
	Page     int
	PageSize int
	UserID   string
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type JobTypeResponse struct {
	ID          string          `json:"id"`
	Format      string          `json:"format"`
	Color       bool            `json:"color"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Active      bool            `json:"active"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type PrintJobResponse struct {
	ID               string    `json:"id"`
	URL              string    `json:"url"`
	Format           string    `json:"format"`
	Color            bool      `json:"color"`
	OriginalFilename string    `json:"original_filename"`
	UserID           *string   `json:"user_id"`
	CreatedAt        time.Time `json:"created_at"`
	LastAccessed     time.Time `json:"last_accessed"`
}

func ToJobTypeResponse(t *JobType) JobTypeResponse {
	return JobTypeResponse{
		ID:          t.ID,
		Format:      t.Format,
		Color:       t.Color,
		Description: t.Description,
		Price:       t.Price,
		Active:      t.Active,
		UpdatedAt:   t.UpdatedAt,
	}
}

func ToPrintJobResponse(j *PrintJob) PrintJobResponse {
	return PrintJobResponse{
		ID:               j.ID,
		URL:              j.URL,
		Format:           j.Format,
		Color:            j.Color,
		OriginalFilename: j.OriginalFilename,
		UserID:           j.UserID,
		CreatedAt:        j.CreatedAt,
		LastAccessed:     j.LastAccessed,
	}
}

func ToPrintJobResponseList(jobs []PrintJob) []PrintJobResponse {
	out := make([]PrintJobResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, ToPrintJobResponse(&jobs[i]))
	}
	return out
}

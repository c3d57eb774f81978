// AngelaMos | 2026
// dto.go

package report

import (
	"time"
)

type CreateRequest struct {
	Title     string `json:"title"      validate:"required,min=1,max=200"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date"   validate:"required"`
}

type ListParams struct {
	Page     int
	PageSize int
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

type SnapshotResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	CreatedBy *string   `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	Results   Result    `json:"results"`
}

func ToSnapshotResponse(s *Snapshot) SnapshotResponse {
	return SnapshotResponse{
		ID:        s.ID,
		Title:     s.Title,
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
		CreatedBy: s.CreatedBy,
		CreatedAt: s.CreatedAt,
		Results:   s.Results,
	}
}

func ToSnapshotResponseList(snapshots []Snapshot) []SnapshotResponse {
	out := make([]SnapshotResponse, 0, len(snapshots))
	for i := range snapshots {
		out = append(out, ToSnapshotResponse(&snapshots[i]))
	}
	return out
}

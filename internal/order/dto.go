// AngelaMos | 2026
// dto.go

package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/printshop/internal/printjob"
)

type ProductItem struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"   validate:"gt=0"`
}

// PrintJobItem names the multipart part holding its file in File. Without a
// file the job is recorded with no stored blob.
type PrintJobItem struct {
	Format   string          `json:"format"   validate:"required,paper_format"`
	Color    bool            `json:"color"`
	Copies   int             `json:"copies"   validate:"gt=0"`
	Subtotal decimal.Decimal `json:"subtotal" validate:"gte=0"`
	File     string          `json:"file,omitempty"`
}

type CreateOrderRequest struct {
	Products    []ProductItem  `json:"products"    validate:"dive"`
	PrintJobs   []PrintJobItem `json:"print_jobs"  validate:"dive"`
	Observation string         `json:"observation" validate:"max=2000"`
}

// CreateInput is the validated cart with uploaded files resolved, keyed by
// print job index.
type CreateInput struct {
	CreateOrderRequest
	Files map[int]printjob.Upload
}

type UpdateOrderRequest struct {
	Observation *string `json:"observation,omitempty" validate:"omitempty,max=2000"`
}

type StatusRequest struct {
	Status string  `json:"status" validate:"required"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=2000"`
}

type OrderResponse struct {
	ID               string                 `json:"id"`
	Status           Status                 `json:"status"`
	Observation      string                 `json:"observation"`
	CorrectionReason string                 `json:"correction_reason,omitempty"`
	Total            decimal.Decimal        `json:"total"`
	OrderDate        time.Time              `json:"order_date"`
	UserID           *string                `json:"user_id"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	Products         []ProductLineResponse  `json:"products"`
	PrintJobs        []PrintJobLineResponse `json:"print_jobs"`
}

type ProductLineResponse struct {
	ProductID *string         `json:"product_id"`
	Name      *string         `json:"name,omitempty"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type PrintJobLineResponse struct {
	PrintJobID *string         `json:"print_job_id"`
	Format     *string         `json:"format,omitempty"`
	Color      *bool           `json:"color,omitempty"`
	URL        *string         `json:"url,omitempty"`
	Copies     int             `json:"copies"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

type HistoryResponse struct {
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
	Synthetic bool      `json:"synthetic,omitempty"`
}

func ToOrderResponse(o *Order) OrderResponse {
	resp := OrderResponse{
		ID:               o.ID,
		Status:           o.Status,
		Observation:      o.Observation,
		CorrectionReason: o.CorrectionReason,
		Total:            o.Total,
		OrderDate:        o.OrderDate,
		UserID:           o.UserID,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		Products:         make([]ProductLineResponse, 0, len(o.ProductLines)),
		PrintJobs:        make([]PrintJobLineResponse, 0, len(o.PrintJobLines)),
	}
	for _, l := range o.ProductLines {
		resp.Products = append(resp.Products, ProductLineResponse{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.Subtotal,
		})
	}
	for _, l := range o.PrintJobLines {
		resp.PrintJobs = append(resp.PrintJobs, PrintJobLineResponse{
			PrintJobID: l.PrintJobID,
			Format:     l.Format,
			Color:      l.Color,
			URL:        l.URL,
			Copies:     l.Copies,
			Subtotal:   l.Subtotal,
		})
	}
	return resp
}

func ToOrderResponseList(orders []Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, ToOrderResponse(&orders[i]))
	}
	return out
}

func ToHistoryResponse(entries []HistoryEntry) []HistoryResponse {
	out := make([]HistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, HistoryResponse{Status: e.Status, ChangedAt: e.ChangedAt, Synthetic: e.Synthetic})
	}
	return out
}

// AngelaMos | 2026
// entity.go

package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID               string          `db:"id"`
	Status           Status          `db:"status"`
	Observation      string          `db:"observation"`
	CorrectionReason string          `db:"correction_reason"`
	Total            decimal.Decimal `db:"total"`
	OrderDate        time.Time       `db:"order_date"`
	UserID           *string         `db:"user_id"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`

	// joined from users, nil once the owner is deleted
	UserEmail *string `db:"user_email"`
	UserName  *string `db:"user_name"`

	ProductLines  []ProductLine  `db:"-"`
	PrintJobLines []PrintJobLine `db:"-"`
}

type HistoryEntry struct {
	ID        string    `db:"id"`
	OrderID   string    `db:"order_id"`
	Status    Status    `db:"status"`
	ChangedAt time.Time `db:"changed_at"`
	Synthetic bool      `db:"-"`
}

type ProductLine struct {
	ID        string          `db:"id"`
	OrderID   string          `db:"order_id"`
	ProductID *string         `db:"product_id"`
	Name      *string         `db:"product_name"`
	Quantity  int             `db:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price"`
	Subtotal  decimal.Decimal `db:"subtotal"`
}

type PrintJobLine struct {
	ID         string          `db:"id"`
	OrderID    string          `db:"order_id"`
	PrintJobID *string         `db:"print_job_id"`
	Format     *string         `db:"format"`
	Color      *bool           `db:"color"`
	URL        *string         `db:"url"`
	Copies     int             `db:"copies"`
	Subtotal   decimal.Decimal `db:"subtotal"`
}

type Filter struct {
	UserID   string
	Status   Status
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
}

func (f *Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// AngelaMos | 2026
// entity.go

package report

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one order as the aggregation sees it.
type Row struct {
	OrderID   string          `db:"id"`
	UserID    *string         `db:"user_id"`
	Name      string          `db:"user_name"`
	Email     string          `db:"user_email"`
	Status    string          `db:"status"`
	Total     decimal.Decimal `db:"total"`
	OrderDate time.Time       `db:"order_date"`
}

// Summary totals exclude cancelled orders; those are carried separately so
// the gross figure stays recoverable.
type Summary struct {
	TotalAmount     decimal.Decimal `json:"total_amount"`
	OrderCount      int             `json:"order_count"`
	AverageTicket   decimal.Decimal `json:"average_ticket"`
	CancelledCount  int             `json:"cancelled_count"`
	CancelledAmount decimal.Decimal `json:"cancelled_amount"`
}

type StatusBreakdown struct {
	Status   string          `json:"status"`
	Count    int             `json:"count"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type CustomerTotal struct {
	UserID     string          `json:"user_id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	OrderCount int             `json:"order_count"`
	TotalSpent decimal.Decimal `json:"total_spent"`
}

type DayTotal struct {
	Date       string          `json:"date"`
	OrderCount int             `json:"order_count"`
	Total      decimal.Decimal `json:"total"`
}

// Result is stored as JSONB on the snapshot.
type Result struct {
	NoActivity   bool              `json:"no_activity"`
	Message      string            `json:"message,omitempty"`
	Summary      Summary           `json:"summary"`
	ByStatus     []StatusBreakdown `json:"by_status"`
	TopCustomers []CustomerTotal   `json:"top_customers"`
	TopDays      []DayTotal        `json:"top_days"`
}

func (r Result) Value() (driver.Value, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *Result) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	case nil:
		*r = Result{}
		return nil
	}
	return errors.New("report result: unsupported column type")
}

type Snapshot struct {
	ID        string    `db:"id"`
	Title     string    `db:"title"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	CreatedBy *string   `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
	Results   Result    `db:"results"`
}

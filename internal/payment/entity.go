// AngelaMos | 2026
// entity.go

package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Method string

const (
	MethodCredit   Method = "credit"
	MethodDebit    Method = "debit"
	MethodTransfer Method = "transfer"
	MethodCash     Method = "cash"
)

type Payment struct {
	ID        string          `db:"id"`
	OrderID   string          `db:"order_id"`
	Status    Status          `db:"status"`
	Method    Method          `db:"method"`
	Amount    decimal.Decimal `db:"amount"`
	CreatedAt time.Time       `db:"created_at"`
}

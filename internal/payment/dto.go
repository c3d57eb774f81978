// AngelaMos | 2026
// dto.go

package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreatePaymentRequest struct {
	Method Method          `json:"method" validate:"required,oneof=credit debit transfer cash"`
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
}

type StatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=pending completed failed"`
}

type CartItem struct {
	Title     string          `json:"title"      validate:"required,max=256"`
	Quantity  int             `json:"quantity"   validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"gt=0"`
}

type PreferenceRequest struct {
	OrderID *string    `json:"order_id,omitempty" validate:"omitempty,uuid"`
	Items   []CartItem `json:"items"              validate:"required,min=1,dive"`
}

type PreferenceResponse struct {
	PreferenceID string `json:"preference_id"`
	InitPoint    string `json:"init_point"`
}

type PaymentResponse struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	Status    Status          `json:"status"`
	Method    Method          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

func ToPaymentResponse(p *Payment) PaymentResponse {
	return PaymentResponse{
		ID:        p.ID,
		OrderID:   p.OrderID,
		Status:    p.Status,
		Method:    p.Method,
		Amount:    p.Amount,
		CreatedAt: p.CreatedAt,
	}
}

func ToPaymentResponseList(payments []Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, ToPaymentResponse(&payments[i]))
	}
	return out
}

// AngelaMos | 2026
// event.go

package notify

import (
	"time"
)

type EventType string

const (
	EventStatusChanged      EventType = "order.status_changed"
	EventCorrectionRequired EventType = "order.correction_required"
)

// OrderEvent is the message body published after an order transition
// commits. It carries everything the worker needs to write the email, so the
// worker never reads the database.
type OrderEvent struct {
	Type           EventType `json:"type"`
	OrderID        string    `json:"order_id"`
	UserID         string    `json:"user_id,omitempty"`
	Email          string    `json:"email,omitempty"`
	Name           string    `json:"name,omitempty"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status"`
	Reason         string    `json:"reason,omitempty"`
	Total          string    `json:"total"`
	OccurredAt     time.Time `json:"occurred_at"`
}

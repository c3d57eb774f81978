// AngelaMos | 2026
// worker.go

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/printshop/internal/core"
)

// Worker turns order events into customer emails.
type Worker struct {
	sender Sender
	logger *slog.Logger
}

func NewWorker(sender Sender, logger *slog.Logger) *Worker {
	return &Worker{sender: sender, logger: logger}
}

func (w *Worker) HandleOrderEvent(ctx context.Context, body []byte) (err error) {
	ctx, span := core.StartSpan(ctx, "notify.order_event")
	defer func() {
		core.SetSpanError(ctx, err)
		span.End()
	}()

	var event OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode order event: %v: %w", err, ErrPoison)
	}

	switch event.Type {
	case EventStatusChanged, EventCorrectionRequired:
	default:
		return fmt.Errorf("unknown event type %q: %w", event.Type, ErrPoison)
	}

	if event.Email == "" {
		w.logger.Info("order has no reachable owner, skipping email", "order_id", event.OrderID)
		return nil
	}

	subject, html, err := RenderOrderEvent(event)
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrPoison)
	}

	core.AddSpanEvent(ctx, "render", attribute.String("order_id", event.OrderID))

	if err := w.sender.Send(ctx, Message{
		To:      []string{event.Email},
		Subject: subject,
		HTML:    html,
	}); err != nil {
		return fmt.Errorf("email order %s: %w", event.OrderID, err)
	}

	emailsSent.WithLabelValues(string(event.Type)).Inc()
	w.logger.Info("order email sent",
		"order_id", event.OrderID,
		"status", event.Status,
		"type", event.Type,
	)
	return nil
}

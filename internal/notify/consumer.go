// AngelaMos | 2026
// consumer.go

package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"
)

// ErrPoison marks a message that can never be handled. It is rejected
// without requeue.
var ErrPoison = errors.New("poison message")

type HandlerFunc func(ctx context.Context, body []byte) error

type Consumer struct {
	handler     HandlerFunc
	concurrency int
	logger      *slog.Logger
}

func NewConsumer(handler HandlerFunc, concurrency int, logger *slog.Logger) *Consumer {
	return &Consumer{
		handler:     handler,
		concurrency: max(concurrency, 1),
		logger:      logger,
	}
}

// Run dispatches deliveries until ctx is cancelled or the channel closes,
// then waits for in-flight handlers. A failed delivery is requeued once;
// on redelivery it is dropped.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				c.settle(d, ctx.Err())
				return nil
			}

			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				c.settle(d, c.handler(ctx, d.Body))
			}(d)
		}
	}
}

func (c *Consumer) settle(d amqp.Delivery, err error) {
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Error("ack failed", "error", ackErr, "message_id", d.MessageId)
		}
	case errors.Is(err, ErrPoison):
		messagesFailed.WithLabelValues("rejected").Inc()
		c.logger.Error("dropping message", "error", err, "message_id", d.MessageId)
		if nackErr := d.Reject(false); nackErr != nil {
			c.logger.Error("reject failed", "error", nackErr)
		}
	default:
		requeue := !d.Redelivered
		if requeue {
			messagesFailed.WithLabelValues("requeued").Inc()
		} else {
			messagesFailed.WithLabelValues("dropped").Inc()
		}
		c.logger.Warn("message handling failed",
			"error", err,
			"message_id", d.MessageId,
			"requeue", requeue,
		)
		if nackErr := d.Nack(false, requeue); nackErr != nil {
			c.logger.Error("nack failed", "error", nackErr)
		}
	}
}

// AngelaMos | 2026
// broker.go

package notify

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"github.com/carterperez-dev/printshop/internal/config"
)

// Dial retries the broker connection a few times, which covers the broker
// container starting after the app.
func Dial(url string, retries int, delay time.Duration) (*amqp.Connection, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	for range max(retries, 1) {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("dial amqp: %w", err)
}

// Declare sets up the durable direct exchange and the bound order queue.
// Both publisher and worker call it so either can start first.
func Declare(ch *amqp.Channel, cfg config.AMQPConfig) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}
	if err := ch.QueueBind(cfg.Queue, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", cfg.Queue, cfg.Exchange, err)
	}
	return nil
}

// AngelaMos | 2026
// metrics.go

package order

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ordersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "printshop_orders_created_total",
		Help: "Orders committed.",
	})

	statusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "printshop_order_status_transitions_total",
		Help: "Order status changes by target status.",
	}, []string{"status"})

	notifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "printshop_order_notify_failures_total",
		Help: "Order events that could not be published.",
	})
)

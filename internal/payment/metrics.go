// AngelaMos | 2026
// metrics.go

package payment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var checkoutRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "printshop_checkout_preferences_total",
		Help: "Checkout preferences requested from the payment provider, by outcome.",
	},
	[]string{"outcome"},
)

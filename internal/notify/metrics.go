// AngelaMos | 2026
// metrics.go

package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	emailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "printshop_emails_sent_total",
		Help: "Emails handed to the SMTP server, by kind.",
	}, []string{"kind"})

	messagesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "printshop_notification_failures_total",
		Help: "Notification messages that could not be handled, by outcome.",
	}, []string{"outcome"})
)

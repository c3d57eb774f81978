// AngelaMos | 2026
// metrics.go

package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var reportsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "printshop_reports_generated_total",
	Help: "Report snapshots generated, by trigger.",
}, []string{"trigger"})

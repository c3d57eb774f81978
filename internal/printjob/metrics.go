// AngelaMos | 2026
// metrics.go

package printjob

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	purgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "printshop_print_jobs_purged_total",
		Help: "Print jobs removed by retention purges.",
	})

	storageFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "printshop_print_job_storage_failures_total",
		Help: "Blob operations on print jobs that failed.",
	}, []string{"op"})
)

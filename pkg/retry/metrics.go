package retry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type retryMetrics struct {
	attempts  *prometheus.CounterVec
	exhausted *prometheus.CounterVec
}

var retryMetricsSingleton = sync.OnceValue(func() *retryMetrics {
	return &retryMetrics{
		attempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planbridge",
			Subsystem: "retry",
			Name:      "attempts_total",
			Help:      "Total number of retry waits performed after a failed call.",
		}, []string{"operation"}),
		exhausted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planbridge",
			Subsystem: "retry",
			Name:      "exhausted_total",
			Help:      "Total number of operations that failed all attempts.",
		}, []string{"operation"}),
	}
})

func retryMetricsInstance() *retryMetrics {
	return retryMetricsSingleton()
}

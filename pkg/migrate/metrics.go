package migrate

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	rowsCreated         *prometheus.CounterVec
	columnsCreated      prometheus.Counter
	batches             *prometheus.CounterVec
	entitiesSkipped     *prometheus.CounterVec
	predecessorsDropped prometheus.Counter
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		rowsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planbridge",
			Name:      "rows_created_total",
			Help:      "Total number of rows created in the sheet service.",
		}, []string{"sheet"}),
		columnsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "planbridge",
			Name:      "columns_created_total",
			Help:      "Total number of columns created in the sheet service.",
		}),
		batches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planbridge",
			Name:      "batches_submitted_total",
			Help:      "Total number of row batches submitted, by outcome.",
		}, []string{"result"}),
		entitiesSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planbridge",
			Name:      "entities_skipped_total",
			Help:      "Total number of source entities skipped by validation.",
		}, []string{"entity"}),
		predecessorsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "planbridge",
			Name:      "predecessors_dropped_total",
			Help:      "Total number of dependency references dropped because their target row was unknown.",
		}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

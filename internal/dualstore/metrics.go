package dualstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	insertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dualstore_inserts_total",
			Help: "Total memory inserts by accepting store",
		},
		[]string{"store"},
	)

	failoversTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dualstore_insert_failovers_total",
			Help: "Inserts that failed on the primary store and retried on the secondary",
		},
	)

	partialReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dualstore_partial_reads_total",
			Help: "Fetches where one store errored and the other store's results were served",
		},
		[]string{"failed_store"},
	)
)

package dispatch

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	batches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kanban",
			Subsystem: "dispatch",
			Name:      "batches_total",
			Help:      "Mutation batches sent to the store, by result.",
		},
		[]string{"result"},
	)
	mutations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "kanban",
			Subsystem: "dispatch",
			Name:      "mutations_total",
			Help:      "Mutations applied to the store.",
		},
	)
	batchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "kanban",
			Subsystem: "dispatch",
			Name:      "batch_duration_seconds",
			Help:      "Time from enqueue to result of a mutation batch.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// RegisterMetrics adds the queue metrics to the default registry
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(batches, mutations, batchDuration)
	})
}

func recordBatch(n int, err error, d time.Duration) {
	RegisterMetrics()
	batches.WithLabelValues(resultLabel(err)).Inc()
	if err == nil {
		mutations.Add(float64(n))
	}
	batchDuration.Observe(d.Seconds())
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrAborted), errors.Is(err, ErrClosed):
		return "aborted"
	default:
		return "error"
	}
}

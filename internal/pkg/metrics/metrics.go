// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "employee_directory"

var (
	// mutations counts create, update and delete attempts.
	// Labels: operation (create, update, delete), result (success, rejected, error)
	mutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "employees",
		Name:      "mutations_total",
		Help:      "Total employee mutations by operation and result",
	}, []string{"operation", "result"})

	// validationFailures counts field errors reported by submit-time validation.
	// Labels: field, kind
	validationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "employees",
		Name:      "validation_failures_total",
		Help:      "Total field validation failures by field and kind",
	}, []string{"field", "kind"})

	// listDuration measures how long deriving a list page takes.
	listDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "employees",
		Name:      "list_duration_seconds",
		Help:      "Time to load and derive one page of the employee list",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	// imageEncodeDuration measures upload encoding latency.
	// Labels: status (success, error)
	imageEncodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "images",
		Name:      "encode_duration_seconds",
		Help:      "Image upload encoding duration in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"status"})

	// sseSubscribers tracks open event streams.
	sseSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sse",
		Name:      "subscribers",
		Help:      "Number of connected change event streams",
	})

	// storeGCRuns counts badger value-log GC passes.
	// Labels: status (success, error)
	storeGCRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "gc_runs_total",
		Help:      "Total blob store garbage collection runs",
	}, []string{"status"})
)

// Operation results.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultError    = "error"
)

func RecordMutation(operation, result string) {
	mutations.WithLabelValues(operation, result).Inc()
}

func RecordValidationFailure(field, kind string) {
	validationFailures.WithLabelValues(field, kind).Inc()
}

func ObserveList(d time.Duration) {
	listDuration.Observe(d.Seconds())
}

func ObserveImageEncode(d time.Duration, err error) {
	imageEncodeDuration.WithLabelValues(status(err)).Observe(d.Seconds())
}

func SetSSESubscribers(n int) {
	sseSubscribers.Set(float64(n))
}

func RecordStoreGC(err error) {
	storeGCRuns.WithLabelValues(status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// Package metrics exposes executor progress as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	m "gooze.dev/pkg/orbit/internal/model"
)

// Recorder defines the metrics operations needed by the executor.
type Recorder interface {
	SetPending(n int)
	IncInFlight()
	DecInFlight()
	ObserveResult(operator string, outcome m.Outcome, elapsed time.Duration)
	IncStorageErrors()
}

// Executor implements Recorder.
type Executor struct {
	Results       *prometheus.CounterVec   // labels: operator, outcome
	Duration      *prometheus.HistogramVec // labels: outcome
	Pending       prometheus.Gauge
	InFlight      prometheus.Gauge
	StorageErrors prometheus.Counter
}

const namespace = "orbit"

// New creates the executor metrics and registers them with reg.
func New(reg prometheus.Registerer) *Executor {
	factory := promauto.With(reg)

	return &Executor{
		Results: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "work_items_total",
			Help:      "Total number of work items completed",
		}, []string{"operator", "outcome"}),
		Duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "work_item_duration_seconds",
			Help:      "Time taken to judge one mutant",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		}, []string{"outcome"}),
		Pending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "work_items_pending",
			Help:      "Work items left in the session",
		}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "work_items_in_flight",
			Help:      "Work items currently being judged",
		}),
		StorageErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Total number of work database errors",
		}),
	}
}

func (e *Executor) SetPending(n int) { e.Pending.Set(float64(n)) }

func (e *Executor) IncInFlight() { e.InFlight.Inc() }

func (e *Executor) DecInFlight() { e.InFlight.Dec() }

func (e *Executor) IncStorageErrors() { e.StorageErrors.Inc() }

func (e *Executor) ObserveResult(operator string, outcome m.Outcome, elapsed time.Duration) {
	e.Results.WithLabelValues(operator, outcome.String()).Inc()
	e.Duration.WithLabelValues(outcome.String()).Observe(elapsed.Seconds())
	e.Pending.Dec()
}

// Noop discards every observation.
type Noop struct{}

func (Noop) SetPending(int) {}

func (Noop) IncInFlight() {}

func (Noop) DecInFlight() {}

func (Noop) ObserveResult(string, m.Outcome, time.Duration) {}

func (Noop) IncStorageErrors() {}

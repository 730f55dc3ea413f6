package prometheus

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aponysus/await/observe"
	"github.com/aponysus/await/policy"
)

// Observer exports waiter activity as Prometheus metrics:
//
//	await_invocations_total{waiter,outcome}
//	await_attempts_total{waiter,decision}
//	await_wait_duration_seconds{waiter,outcome}
type Observer struct {
	observe.BaseObserver

	invocations *prometheus.CounterVec
	attempts    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// Config tunes metric names.
type Config struct {
	Namespace string
	Buckets   []float64
}

// NewObserver creates an Observer and registers its collectors with reg.
func NewObserver(reg prometheus.Registerer, cfg Config) (*Observer, error) {
	if cfg.Namespace == "" {
		cfg.Namespace = "await"
	}
	if len(cfg.Buckets) == 0 {
		cfg.Buckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}
	}

	o := &Observer{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "invocations_total",
				Help:      "Total number of waiter invocations by outcome",
			},
			[]string{"waiter", "outcome"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "attempts_total",
				Help:      "Total number of waiter attempts by decision",
			},
			[]string{"waiter", "decision"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "wait_duration_seconds",
				Help:      "Duration of waiter invocations in seconds",
				Buckets:   cfg.Buckets,
			},
			[]string{"waiter", "outcome"},
		),
	}

	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{o.invocations, o.attempts, o.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Observer) OnAttempt(_ context.Context, key policy.Key, rec observe.AttemptRecord) {
	o.attempts.WithLabelValues(key.String(), rec.Decision.Kind.String()).Inc()
}

func (o *Observer) OnSuccess(_ context.Context, key policy.Key, tl observe.Timeline) {
	o.finish(key, tl)
}

func (o *Observer) OnFailure(_ context.Context, key policy.Key, tl observe.Timeline) {
	o.finish(key, tl)
}

func (o *Observer) finish(key policy.Key, tl observe.Timeline) {
	outcome := string(tl.Outcome)
	if outcome == "" {
		outcome = "unknown"
	}
	o.invocations.WithLabelValues(key.String(), outcome).Inc()
	o.duration.WithLabelValues(key.String(), outcome).Observe(tl.End.Sub(tl.Start).Seconds())
}

// Package metrics exposes step events as Prometheus metrics.
//
// Recorder implements engine.Recorder. It registers its collectors on its
// own registry so several engines (or tests) never collide on the global
// one.
package metrics

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/overclock/internal/ir"
)

const namespace = "overclock"

// Recorder counts step events.
type Recorder struct {
	registry  *prometheus.Registry
	events    *prometheus.CounterVec
	committed *prometheus.CounterVec
	energy    *prometheus.CounterVec
	plans     *prometheus.CounterVec
	aborts    *prometheus.CounterVec
	resolved  prometheus.Histogram
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_events_total",
				Help:      "Total number of synchronizer events.",
			},
			[]string{"node_id", "kind"},
		),
		committed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "committed_units_total",
				Help:      "Repetitions committed by the engine on top of the host's own units.",
			},
			[]string{"node_id"},
		),
		energy: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "energy_debited_total",
				Help:      "Energy debited by engine commits.",
			},
			[]string{"node_id"},
		),
		plans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "plans_total",
				Help:      "Resolved plans by binding constraint.",
			},
			[]string{"bound"},
		),
		aborts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "aborts_total",
				Help:      "Commits that stopped before doing any work.",
			},
			[]string{"reason"},
		),
		resolved: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolved_units",
				Help:      "Resolved repetition count of armed and instant plans.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
			},
		),
	}
	r.registry.MustRegister(r.events, r.committed, r.energy, r.plans, r.aborts, r.resolved)
	return r
}

// Registry returns the registry the collectors live on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Record implements engine.Recorder.
func (r *Recorder) Record(_ context.Context, ev ir.StepEvent) error {
	r.events.WithLabelValues(ev.NodeID, string(ev.Kind)).Inc()

	switch ev.Kind {
	case ir.EventArmed, ir.EventInstant:
		r.plans.WithLabelValues(string(ev.Bound)).Inc()
		r.resolved.Observe(float64(ev.Resolved))
	case ir.EventAborted:
		r.aborts.WithLabelValues(ev.Reason).Inc()
	}

	if ev.Committed > 0 {
		r.committed.WithLabelValues(ev.NodeID).Add(float64(ev.Committed))
		r.energy.WithLabelValues(ev.NodeID).Add(float64(ev.Energy) / 1000)
	}
	return nil
}

// WriteText writes every metric family in the text exposition format.
func (r *Recorder) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

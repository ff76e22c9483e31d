package engine

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/plangraph/internal/analyze"
	"github.com/roach88/plangraph/internal/plan"
)

// Metrics records run progress on a private registry. A CLI run is short
// lived, so metrics are dumped to a textfile instead of being scraped.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	passes        prometheus.Counter
	deltas        *prometheus.CounterVec
	gapSize       *prometheus.GaugeVec
	invariantPass *prometheus.GaugeVec
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		passes: factory.NewCounter(prometheus.CounterOpts{
			Name: "plangraph_passes_total",
			Help: "Repair passes started.",
		}),
		deltas: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "plangraph_deltas_total",
			Help: "Deltas applied, by op and synthesis phase.",
		}, []string{"op", "phase"}),
		gapSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "plangraph_gap_size",
			Help: "Nodes in each gap class at the last analysis.",
		}, []string{"class"}),
		invariantPass: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "plangraph_invariant_pass",
			Help: "1 when the invariant held at the last verification.",
		}, []string{"invariant"}),
	}
}

func (m *Metrics) observePass(sizes map[plan.GapClass]int) {
	if m == nil {
		return
	}
	m.passes.Inc()
	for class, n := range sizes {
		m.gapSize.WithLabelValues(string(class)).Set(float64(n))
	}
}

func (m *Metrics) observeApplied(applied []plan.Delta) {
	if m == nil {
		return
	}
	for _, d := range applied {
		m.deltas.WithLabelValues(string(d.Op), string(d.Phase)).Inc()
	}
}

func (m *Metrics) observeVerification(v analyze.Verification) {
	if m == nil {
		return
	}
	for _, inv := range analyze.Invariants {
		val := 0.0
		if v.Proofs[inv] {
			val = 1
		}
		m.invariantPass.WithLabelValues(string(inv)).Set(val)
	}
	for class, n := range v.Gaps.Sizes() {
		m.gapSize.WithLabelValues(string(class)).Set(float64(n))
	}
}

// WriteTextfile writes every collected metric to path in the Prometheus
// text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/plangraph/internal/analyze"
	"github.com/roach88/plangraph/internal/engine"
	"github.com/roach88/plangraph/internal/plan"
	"github.com/roach88/plangraph/internal/store"
	"github.com/roach88/plangraph/internal/synth"
)

// Harness runs scenarios against the real controller with a memory store
// and fixed run ids, so reports are reproducible.
type Harness struct {
	logger *zap.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger handed to the controller.
func WithLogger(l *zap.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RunID is the fixed run id of a scenario's first run.
func RunID(sc *Scenario) string {
	return "run-" + sc.Name
}

// Run executes a scenario with default options.
func Run(ctx context.Context, sc *Scenario) (*Result, error) {
	return New().Run(ctx, sc)
}

// Run builds the scenario's store, repairs it once (twice with rerun), and
// checks the outcome. Errors are returned only when the run itself cannot
// happen; failed checks land in Result.Errors.
func (h *Harness) Run(ctx context.Context, sc *Scenario) (*Result, error) {
	st, err := sc.NewStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	defer st.Close()

	ctrl := h.controller(sc, st, RunID(sc), "rerun-"+sc.Name)
	result := NewResult()
	if result.Report, err = ctrl.Run(ctx); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	if sc.Rerun {
		if result.Rerun, err = ctrl.Run(ctx); err != nil {
			return nil, fmt.Errorf("scenario %s rerun: %w", sc.Name, err)
		}
	}
	if result.Graph, err = st.Load(ctx); err != nil {
		return nil, fmt.Errorf("scenario %s: load result: %w", sc.Name, err)
	}

	checkExpect(result, sc)
	for i, a := range sc.Assertions {
		if err := checkAssertion(result, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return result, nil
}

func (h *Harness) controller(sc *Scenario, st store.Store, runIDs ...string) *engine.Controller {
	a := analyze.New()
	th := a.Thresholds()
	synthOpts := []synth.Option{
		synth.WithLogger(h.logger),
		synth.WithDataLifecycleMinTerms(th.DataLifecycleMinTerms),
		synth.WithAPIWeakMissing(th.APIWeakMissing),
	}
	if sc.SeedTopics {
		synthOpts = append(synthOpts, synth.WithTopicSeeding(th.DomainTopicFloor))
	}
	return engine.New(st,
		engine.WithBudget(sc.Budget),
		engine.WithLogger(h.logger),
		engine.WithAnalyzer(a),
		engine.WithSynthesizer(synth.New(synthOpts...)),
		engine.WithRunIDGenerator(engine.NewFixedGenerator(runIDs...)),
	)
}

func checkExpect(result *Result, sc *Scenario) {
	r := result.Report
	exp := sc.Expect
	if exp.State != "" && string(r.State) != exp.State {
		result.AddError(fmt.Sprintf("state: expected %s, got %s", exp.State, r.State))
	}
	if exp.Iterations > 0 && r.Iterations != exp.Iterations {
		result.AddError(fmt.Sprintf("iterations: expected %d, got %d", exp.Iterations, r.Iterations))
	}
	if exp.Deltas != nil && len(r.DeltasApplied) != *exp.Deltas {
		result.AddError(fmt.Sprintf("deltas: expected %d, got %d", *exp.Deltas, len(r.DeltasApplied)))
	}
	if exp.Failing != nil {
		got := make([]string, 0, len(r.Proofs.Failing()))
		for _, inv := range r.Proofs.Failing() {
			got = append(got, string(inv))
		}
		want := append([]string(nil), exp.Failing...)
		sort.Strings(want)
		sort.Strings(got)
		if strings.Join(want, ",") != strings.Join(got, ",") {
			result.AddError(fmt.Sprintf("failing: expected [%s], got [%s]", strings.Join(want, ","), strings.Join(got, ",")))
		}
	}
	if len(exp.InitialGaps) > 0 && len(r.History) > 0 {
		first := r.History[0].Gaps
		for class, want := range exp.InitialGaps {
			if got := first[plan.GapClass(class)]; got != want {
				result.AddError(fmt.Sprintf("initial gap %s: expected %d, got %d", class, want, got))
			}
		}
	}
	if result.Rerun != nil && len(result.Rerun.DeltasApplied) > 0 {
		result.AddError(fmt.Sprintf("rerun applied %d deltas, expected none", len(result.Rerun.DeltasApplied)))
	}
}

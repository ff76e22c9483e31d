package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/plangraph/internal/analyze"
	"github.com/roach88/plangraph/internal/plan"
	"github.com/roach88/plangraph/internal/store"
	"github.com/roach88/plangraph/internal/synth"
)

// DefaultBudget is the pass limit when none is configured.
const DefaultBudget = 10

// Controller runs repair passes against a store until the graph converges
// or the run is exhausted.
type Controller struct {
	store    store.Store
	analyzer *analyze.Analyzer
	synth    *synth.Synthesizer
	budget   int
	logger   *zap.Logger
	ids      RunIDGenerator
	metrics  *Metrics
	observe  func(pass int, s State)
}

// Option configures a Controller.
type Option func(*Controller)

// WithBudget sets the maximum number of passes. Values below 1 select
// DefaultBudget.
func WithBudget(n int) Option {
	return func(c *Controller) {
		c.budget = n
	}
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithAnalyzer replaces the default analyzer, typically to change
// thresholds.
func WithAnalyzer(a *analyze.Analyzer) Option {
	return func(c *Controller) {
		c.analyzer = a
	}
}

// WithSynthesizer replaces the default synthesizer.
func WithSynthesizer(s *synth.Synthesizer) Option {
	return func(c *Controller) {
		c.synth = s
	}
}

// WithRunIDGenerator sets the run id source.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(c *Controller) {
		c.ids = g
	}
}

// WithMetrics records run progress into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithStateObserver calls fn on every state transition.
func WithStateObserver(fn func(pass int, s State)) Option {
	return func(c *Controller) {
		c.observe = fn
	}
}

// New creates a controller over st.
func New(st store.Store, opts ...Option) *Controller {
	c := &Controller{store: st}
	for _, opt := range opts {
		opt(c)
	}
	if c.budget < 1 {
		c.budget = DefaultBudget
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.analyzer == nil {
		c.analyzer = analyze.New()
	}
	if c.synth == nil {
		th := c.analyzer.Thresholds()
		c.synth = synth.New(
			synth.WithLogger(c.logger),
			synth.WithDataLifecycleMinTerms(th.DataLifecycleMinTerms),
			synth.WithAPIWeakMissing(th.APIWeakMissing),
		)
	}
	if c.ids == nil {
		c.ids = UUIDv7Generator{}
	}
	return c
}

// Budget returns the pass limit.
func (c *Controller) Budget() int {
	return c.budget
}

// Run executes passes until the graph converges or the run is exhausted.
// Store failures and synthesis failures abort the run with a *RunError;
// an exhausted run is a normal result.
func (c *Controller) Run(ctx context.Context) (*Report, error) {
	r := &Report{
		RunID:         c.ids.Generate(),
		History:       []PassRecord{},
		DeltasApplied: []AppliedDelta{},
		Warnings:      []string{},
	}
	log := c.logger.With(zap.String("run_id", r.RunID))
	seq := NewSequencer()
	seenWarnings := make(map[string]struct{})
	hotset := make(map[string]struct{})
	var prevSizes map[plan.GapClass]int
	var final *plan.Graph

	log.Info("repair started", zap.Int("budget", c.budget))

	for pass := 1; ; pass++ {
		c.enter(log, pass, StateLoading)
		g, err := c.store.Load(ctx)
		if err != nil {
			return nil, NewLoadError(pass, err)
		}
		for _, w := range g.Warnings {
			msg := w.String()
			if _, dup := seenWarnings[msg]; dup {
				continue
			}
			seenWarnings[msg] = struct{}{}
			log.Warn("skipped record", zap.String("source", w.Source), zap.String("reason", w.Reason))
			r.warn(msg)
		}

		c.enter(log, pass, StateAnalyzing)
		gaps := c.analyzer.Analyze(g)
		rec := PassRecord{Pass: pass, Gaps: gaps.Sizes()}
		rec.Regressed = regressions(prevSizes, rec.Gaps)
		for _, class := range rec.Regressed {
			msg := fmt.Sprintf("pass %d: gap %s grew from %d to %d", pass, class, prevSizes[class], rec.Gaps[class])
			log.Warn("gap class grew", zap.Int("pass", pass), zap.String("class", string(class)),
				zap.Int("before", prevSizes[class]), zap.Int("after", rec.Gaps[class]))
			r.warn(msg)
		}
		prevSizes = rec.Gaps
		c.metrics.observePass(rec.Gaps)

		c.enter(log, pass, StateSynthesizing)
		pc, err := c.synth.Pass(pass, g, gaps)
		if err != nil {
			return nil, NewSynthesisError(pass, err)
		}

		var applied []plan.Delta
		if len(pc.Deltas) > 0 {
			c.enter(log, pass, StateApplying)
			applied, err = Apply(ctx, c.store, pc.Deltas)
			if err != nil {
				return nil, NewWriteError(pass, "deltas", err)
			}
			rec.Ops = make(map[plan.Op]int, len(applyOrder))
			r.DeltasApplied = append(r.DeltasApplied, seq.Stamp(applied)...)
			for _, d := range applied {
				rec.Ops[d.Op]++
				if d.Node != nil {
					hotset[d.Node.ID] = struct{}{}
				}
			}
			rec.Deltas = len(applied)
			c.metrics.observeApplied(applied)

			if g, err = c.store.Load(ctx); err != nil {
				return nil, NewLoadError(pass, err)
			}
		}

		c.enter(log, pass, StateVerifying)
		v := c.analyzer.Verify(g)
		rec.Failing = v.Proofs.Failing()
		r.History = append(r.History, rec)
		r.Iterations = pass
		r.Proofs = v.Proofs
		r.Details = v.Details
		r.Gaps = v.Gaps
		r.OneSidedLinks = v.OneSidedLinks
		c.metrics.observeVerification(v)
		final = g

		log.Info("pass complete",
			zap.Int("pass", pass),
			zap.Int("deltas", rec.Deltas),
			zap.Int("failing", len(rec.Failing)))

		if v.Proofs.AllPass() {
			r.State = StateConverged
			r.Converged = true
			break
		}
		if len(applied) == 0 {
			r.State = StateExhausted
			log.Info("no progress", zap.Int("pass", pass))
			break
		}
		if pass >= c.budget {
			r.State = StateExhausted
			log.Info("budget reached", zap.Int("pass", pass))
			break
		}
	}
	c.enter(log, r.Iterations, r.State)

	if len(hotset) > 0 {
		prev, err := c.store.ReadManifest(ctx)
		if err != nil {
			return nil, NewLoadError(r.Iterations, fmt.Errorf("read manifest: %w", err))
		}
		next := prev.Next(final, sortedSet(hotset), r.RunID)
		if err := c.store.WriteManifest(ctx, next); err != nil {
			return nil, NewWriteError(r.Iterations, "manifest", err)
		}
		r.Manifest = &next
	}

	log.Info("repair finished",
		zap.String("state", string(r.State)),
		zap.Int("iterations", r.Iterations),
		zap.Int("deltas_applied", len(r.DeltasApplied)))
	return r, nil
}

func (c *Controller) enter(log *zap.Logger, pass int, s State) {
	log.Debug("state", zap.Int("pass", pass), zap.String("state", string(s)))
	if c.observe != nil {
		c.observe(pass, s)
	}
}

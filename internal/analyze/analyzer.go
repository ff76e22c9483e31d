package analyze

// Analyzer evaluates gap sets and invariants under a set of thresholds.
// An Analyzer holds no graph state and may be reused across passes.
type Analyzer struct {
	th Thresholds
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithThresholds replaces the default thresholds.
func WithThresholds(th Thresholds) Option {
	return func(a *Analyzer) {
		a.th = th
	}
}

// New creates an Analyzer with DefaultThresholds unless overridden.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{th: DefaultThresholds()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Thresholds returns the thresholds in effect.
func (a *Analyzer) Thresholds() Thresholds {
	return a.th
}

package engine

// State is a controller state.
type State string

const (
	StateLoading      State = "Loading"
	StateAnalyzing    State = "Analyzing"
	StateSynthesizing State = "Synthesizing"
	StateApplying     State = "Applying"
	StateVerifying    State = "Verifying"
	StateConverged    State = "Converged"
	StateExhausted    State = "Exhausted"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateConverged || s == StateExhausted
}

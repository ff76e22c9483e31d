package harness

import (
	"github.com/roach88/plangraph/internal/engine"
	"github.com/roach88/plangraph/internal/plan"
)

// Result holds what one scenario run produced and which checks failed.
type Result struct {
	Pass   bool           `json:"pass"`
	Report *engine.Report `json:"report"`
	Rerun  *engine.Report `json:"rerun,omitempty"` // set when the scenario sets rerun
	Graph  *plan.Graph    `json:"-"`               // stored graph after the last run
	Errors []string       `json:"errors,omitempty"`
}

// NewResult returns a result with no failed checks.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError records a failed check.
func (r *Result) AddError(msg string) {
	r.Pass = false
	r.Errors = append(r.Errors, msg)
}

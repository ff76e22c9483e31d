package engine

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/roach88/plangraph/internal/analyze"
	"github.com/roach88/plangraph/internal/plan"
	"github.com/roach88/plangraph/internal/store"
)

// Report is the outcome of a repair run.
type Report struct {
	RunID      string `json:"run_id"`
	State      State  `json:"state"`
	Converged  bool   `json:"converged"`
	Iterations int    `json:"iterations"`

	// Proofs, Details, Gaps and OneSidedLinks come from the final
	// verification.
	Proofs        analyze.Proofs               `json:"proofs"`
	Details       map[analyze.Invariant]string `json:"details"`
	Gaps          plan.GapSets                 `json:"gaps"`
	OneSidedLinks int                          `json:"one_sided_links"`

	History       []PassRecord   `json:"history"`
	DeltasApplied []AppliedDelta `json:"deltas_applied"`
	Warnings      []string       `json:"warnings"`

	// Manifest is the manifest written by this run, nil when nothing
	// changed.
	Manifest *store.Manifest `json:"manifest,omitempty"`
}

// PassRecord describes one pass.
type PassRecord struct {
	Pass int `json:"pass"`
	// Gaps holds the gap class sizes found at the start of the pass.
	Gaps   map[plan.GapClass]int `json:"gaps"`
	Deltas int                   `json:"deltas"`
	Ops    map[plan.Op]int       `json:"ops,omitempty"`
	// Failing lists the invariants still failing after the pass.
	Failing []analyze.Invariant `json:"failing,omitempty"`
	// Regressed lists gap classes that grew since the previous pass.
	Regressed []plan.GapClass `json:"regressed,omitempty"`
}

// AppliedDelta is a delta that changed the store, stamped with its position
// in the run.
type AppliedDelta struct {
	Seq int64 `json:"seq"`
	plan.Delta
}

// Deltas returns the applied deltas in order, for replay.
func (r *Report) Deltas() []plan.Delta {
	out := make([]plan.Delta, len(r.DeltasApplied))
	for i, d := range r.DeltasApplied {
		out[i] = d.Delta
	}
	return out
}

// ExitCode is 0 for a converged run and 1 otherwise.
func (r *Report) ExitCode() int {
	if r.Converged {
		return 0
	}
	return 1
}

func (r *Report) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// WriteText renders the report for a terminal.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Run:        %s\n", r.RunID)
	fmt.Fprintf(&b, "State:      %s\n", r.State)
	fmt.Fprintf(&b, "Iterations: %d\n", r.Iterations)
	if r.Manifest != nil {
		fmt.Fprintf(&b, "Version:    %s\n", r.Manifest.PlanVersion)
	}

	b.WriteString("\nInvariants:\n")
	for _, inv := range analyze.Invariants {
		mark := "FAIL"
		if r.Proofs[inv] {
			mark = "PASS"
		}
		fmt.Fprintf(&b, "  [%s] %-3s %s: %s\n", mark, inv, inv.Title(), r.Details[inv])
	}

	b.WriteString("\nGaps:\n")
	for _, class := range plan.GapClasses {
		ids := r.Gaps.Get(class)
		fmt.Fprintf(&b, "  %-9s %d", class, len(ids))
		if len(ids) > 0 {
			fmt.Fprintf(&b, "  %s", strings.Join(ids, ", "))
		}
		b.WriteByte('\n')
	}
	if r.OneSidedLinks > 0 {
		fmt.Fprintf(&b, "  (%d links recorded on one side only)\n", r.OneSidedLinks)
	}

	b.WriteString("\nHistory:\n")
	for _, p := range r.History {
		fmt.Fprintf(&b, "  pass %d: %d deltas", p.Pass, p.Deltas)
		if len(p.Ops) > 0 {
			fmt.Fprintf(&b, " (%s)", formatOps(p.Ops))
		}
		if len(p.Failing) > 0 {
			fmt.Fprintf(&b, "; failing %s", joinInvariants(p.Failing))
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "\nDeltas applied: %d\n", len(r.DeltasApplied))
	if len(r.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, msg := range r.Warnings {
			fmt.Fprintf(&b, "  - %s\n", msg)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatOps(ops map[plan.Op]int) string {
	parts := make([]string, 0, len(ops))
	for _, op := range applyOrder {
		if n := ops[op]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", op, n))
		}
	}
	return strings.Join(parts, ", ")
}

func joinInvariants(invs []analyze.Invariant) string {
	parts := make([]string, len(invs))
	for i, inv := range invs {
		parts[i] = string(inv)
	}
	return strings.Join(parts, ",")
}

// regressions returns the classes whose size grew from prev to cur.
func regressions(prev, cur map[plan.GapClass]int) []plan.GapClass {
	if prev == nil {
		return nil
	}
	var out []plan.GapClass
	for _, class := range plan.GapClasses {
		if cur[class] > prev[class] {
			out = append(out, class)
		}
	}
	return out
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

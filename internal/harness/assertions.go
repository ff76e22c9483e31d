package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/plangraph/internal/analyze"
	"github.com/roach88/plangraph/internal/plan"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

func fail(a Assertion, expected, actual string) error {
	return &AssertionError{Type: a.Type, Expected: expected, Actual: actual}
}

// checkAssertion evaluates a against the final graph and the first run's
// report.
func checkAssertion(result *Result, a Assertion) error {
	g := result.Graph
	switch a.Type {
	case AssertNodeExists:
		var missing []string
		for _, id := range a.IDs {
			if !g.Has(id) {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return fail(a, "nodes "+strings.Join(a.IDs, ", "), "missing "+strings.Join(missing, ", "))
		}

	case AssertNodeAbsent:
		var present []string
		for _, id := range a.IDs {
			if g.Has(id) {
				present = append(present, id)
			}
		}
		if len(present) > 0 {
			return fail(a, "no "+strings.Join(a.IDs, ", "), "present "+strings.Join(present, ", "))
		}

	case AssertTypeCount:
		if got := g.CountOfType(plan.NodeType(a.NodeType)); got != a.Count {
			return fail(a, fmt.Sprintf("%d %s nodes", a.Count, a.NodeType), fmt.Sprintf("%d", got))
		}

	case AssertEdgeExists:
		e := plan.Edge{From: a.Edge.From, To: a.Edge.To, Type: plan.EdgeType(a.Edge.Type)}
		if !g.HasEdge(e) {
			return fail(a, "edge "+e.String(), "no such edge")
		}

	case AssertStmtEquals, AssertStmtPrefix, AssertStmtContains:
		n, ok := g.Node(a.ID)
		if !ok {
			return fail(a, "node "+a.ID, "missing")
		}
		var matched bool
		switch a.Type {
		case AssertStmtEquals:
			matched = n.Stmt == a.Text
		case AssertStmtPrefix:
			matched = strings.HasPrefix(n.Stmt, a.Text)
		default:
			matched = strings.Contains(n.Stmt, a.Text)
		}
		if !matched {
			return fail(a, fmt.Sprintf("%s stmt %q", a.ID, a.Text), fmt.Sprintf("%q", n.Stmt))
		}

	case AssertGapSize:
		if got := len(result.Report.Gaps.Get(plan.GapClass(a.Class))); got != a.Size {
			return fail(a, fmt.Sprintf("%s of size %d", a.Class, a.Size), fmt.Sprintf("%d", got))
		}

	case AssertInvariant:
		inv := analyze.Invariant(a.Invariant)
		if got := result.Report.Proofs[inv]; got != a.Holds {
			return fail(a, fmt.Sprintf("%s holds=%t", inv, a.Holds),
				fmt.Sprintf("holds=%t (%s)", got, result.Report.Details[inv]))
		}

	case AssertAddedInPhase:
		for _, d := range result.Report.DeltasApplied {
			if d.Op == plan.OpAddNode && d.Node != nil && d.Node.ID == a.ID {
				if string(d.Phase) != a.Phase {
					return fail(a, fmt.Sprintf("%s added in phase %s", a.ID, a.Phase), "phase "+string(d.Phase))
				}
				return nil
			}
		}
		return fail(a, fmt.Sprintf("%s added in phase %s", a.ID, a.Phase), "never added")

	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

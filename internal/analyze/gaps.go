package analyze

import "github.com/roach88/plangraph/internal/plan"

// Analyze computes the gap sets with default thresholds.
func Analyze(g *plan.Graph) plan.GapSets {
	return New().Analyze(g)
}

// Analyze computes the six gap sets of g.
func (a *Analyzer) Analyze(g *plan.Graph) plan.GapSets {
	return a.analyze(g, plan.NewIndex(g))
}

func (a *Analyzer) analyze(g *plan.Graph, x *plan.Index) plan.GapSets {
	sets := plan.NewGapSets()

	for _, s := range live(g, plan.TypeScenario) {
		if len(x.ReachableIX(s.ID)) == 0 {
			sets.S0 = append(sets.S0, s.ID)
		}
	}

	for _, r := range live(g, plan.TypeRequirement) {
		if len(x.MissingChildren(r.ID)) > 0 {
			sets.R0 = append(sets.R0, r.ID)
		}
	}

	for _, cs := range live(g, plan.TypeChangeSpec) {
		if !cs.IsSimple() && len(x.Children(cs.ID, plan.TypeInteractionSpec)) == 0 {
			sets.C0 = append(sets.C0, cs.ID)
		}
	}

	reachable := x.ReachableFromScenarios()
	for _, ix := range live(g, plan.TypeInteractionSpec) {
		if _, ok := reachable[ix.ID]; !ok {
			sets.IXOrphan = append(sets.IXOrphan, ix.ID)
		}
	}

	for _, c := range live(g, plan.TypeContract) {
		if c.Kind() == plan.ContractAPI && len(plan.Missing(plan.APIVocabulary, c.Stmt)) >= a.th.APIWeakMissing {
			sets.APIWeak = append(sets.APIWeak, c.ID)
		}
	}

	for _, q := range g.NodesOfType(plan.TypeOpenQuestion) {
		if q.IsOpen() {
			sets.QOpen = append(sets.QOpen, q.ID)
		}
	}

	return sets
}

// live returns the non-retired nodes of type t, sorted by id.
func live(g *plan.Graph, t plan.NodeType) []*plan.Node {
	nodes := g.NodesOfType(t)
	out := nodes[:0]
	for _, n := range nodes {
		if !n.Retired() {
			out = append(out, n)
		}
	}
	return out
}

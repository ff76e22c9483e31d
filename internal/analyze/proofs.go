package analyze

import (
	"fmt"
	"strings"

	"github.com/roach88/plangraph/internal/plan"
)

// Invariant names one of the ten completeness predicates.
type Invariant string

const (
	P1  Invariant = "P1"
	P2  Invariant = "P2"
	P3  Invariant = "P3"
	P4  Invariant = "P4"
	P5  Invariant = "P5"
	P6  Invariant = "P6"
	P7  Invariant = "P7"
	P8  Invariant = "P8"
	P9  Invariant = "P9"
	P10 Invariant = "P10"
)

// Invariants lists every invariant in order.
var Invariants = []Invariant{P1, P2, P3, P4, P5, P6, P7, P8, P9, P10}

var invariantTitles = map[Invariant]string{
	P1:  "topology",
	P2:  "scenario coverage",
	P3:  "data lifecycle",
	P4:  "security",
	P5:  "test coverage",
	P6:  "observability",
	P7:  "rollout safety",
	P8:  "no ready-but-blocked leaves",
	P9:  "nonterminal expansion",
	P10: "domain coverage",
}

// Title returns a short human-readable name.
func (i Invariant) Title() string {
	return invariantTitles[i]
}

// Proofs maps each invariant to whether it holds.
type Proofs map[Invariant]bool

// AllPass reports whether every invariant holds.
func (p Proofs) AllPass() bool {
	for _, inv := range Invariants {
		if !p[inv] {
			return false
		}
	}
	return true
}

// Failing returns the invariants that do not hold, in order.
func (p Proofs) Failing() []Invariant {
	var out []Invariant
	for _, inv := range Invariants {
		if !p[inv] {
			out = append(out, inv)
		}
	}
	return out
}

// Verification is the result of evaluating every invariant.
type Verification struct {
	Proofs  Proofs               `json:"proofs"`
	Details map[Invariant]string `json:"details"`
	Gaps    plan.GapSets         `json:"gaps"`

	// OneSidedLinks counts links recorded only as an attribute or only as
	// an edge. They are tolerated and unioned.
	OneSidedLinks int `json:"one_sided_links"`
}

// Verify evaluates the invariants with default thresholds.
func Verify(g *plan.Graph) Verification {
	return New().Verify(g)
}

// maxListed bounds the ids quoted in a failure detail.
const maxListed = 5

// Verify evaluates all ten invariants against g.
func (a *Analyzer) Verify(g *plan.Graph) Verification {
	x := plan.NewIndex(g)
	v := Verification{
		Proofs:        make(Proofs, len(Invariants)),
		Details:       make(map[Invariant]string, len(Invariants)),
		Gaps:          a.analyze(g, x),
		OneSidedLinks: x.OneSided(),
	}
	record := func(inv Invariant, ok bool, detail string) {
		v.Proofs[inv] = ok
		v.Details[inv] = detail
	}

	record(a.topology(g))
	record(a.coverage(g, v.Gaps))
	record(a.dataLifecycle(g))
	record(nodesPass(P4, live(g, plan.TypeInteractionSpec), (*plan.Node).SecurityComplete, "interaction specs lack sec fields"))
	record(a.testCoverage(g, x))
	record(nodesPass(P6, append(live(g, plan.TypeComponent), live(g, plan.TypeInteractionSpec)...),
		(*plan.Node).ObservabilityComplete, "nodes lack logs/metrics/span"))
	record(a.rollout(g))
	record(a.blockedLeaves(g, x))
	record(a.nonterminal(g, x))
	record(a.domainCoverage(g))

	return v
}

func (a *Analyzer) topology(g *plan.Graph) (Invariant, bool, string) {
	var missing []string
	for _, t := range []plan.NodeType{plan.TypeComponent, plan.TypeContract, plan.TypeInteractionSpec} {
		if g.CountOfType(t) == 0 {
			missing = append(missing, string(t))
		}
	}
	if len(missing) > 0 {
		return P1, false, "no " + strings.Join(missing, ", ")
	}
	return P1, true, "component, contract and interaction spec present"
}

func (a *Analyzer) coverage(g *plan.Graph, gaps plan.GapSets) (Invariant, bool, string) {
	total := len(live(g, plan.TypeScenario))
	covered := total - len(gaps.S0)
	ok := meets(covered, total, a.th.ScenarioCoverage)
	return P2, ok, fmt.Sprintf("%d/%d scenarios reach an interaction spec%s", covered, total, listed(gaps.S0))
}

func (a *Analyzer) dataLifecycle(g *plan.Graph) (Invariant, bool, string) {
	var weak []string
	for _, c := range live(g, plan.TypeContract) {
		if c.Kind() == plan.ContractData && plan.Mentioned(plan.DataLifecycle, c.Stmt) < a.th.DataLifecycleMinTerms {
			weak = append(weak, c.ID)
		}
	}
	if len(weak) > 0 {
		return P3, false, fmt.Sprintf("%d data contracts mention fewer than %d lifecycle terms%s",
			len(weak), a.th.DataLifecycleMinTerms, listed(weak))
	}
	return P3, true, "data contracts cover the lifecycle"
}

func (a *Analyzer) testCoverage(g *plan.Graph, x *plan.Index) (Invariant, bool, string) {
	var untested []string
	for _, s := range live(g, plan.TypeScenario) {
		if len(x.ValidTests(s.ID)) == 0 {
			untested = append(untested, s.ID)
		}
	}
	for _, ix := range live(g, plan.TypeInteractionSpec) {
		if !ix.TestBlockComplete() {
			untested = append(untested, ix.ID)
		}
	}
	if len(untested) > 0 {
		return P5, false, fmt.Sprintf("%d nodes lack mocks and acceptance criteria%s", len(untested), listed(untested))
	}
	return P5, true, "scenarios and interaction specs are tested"
}

func (a *Analyzer) rollout(g *plan.Graph) (Invariant, bool, string) {
	var missing []string
	for _, c := range live(g, plan.TypeContract) {
		if c.Versioning == "" {
			missing = append(missing, c.ID)
		}
	}
	for _, cs := range live(g, plan.TypeChangeSpec) {
		if cs.RolloutFlag == "" {
			missing = append(missing, cs.ID)
		}
	}
	if len(missing) > 0 {
		return P7, false, fmt.Sprintf("%d nodes lack versioning or rollout flag%s", len(missing), listed(missing))
	}
	return P7, true, "contracts versioned and changes flagged"
}

func (a *Analyzer) blockedLeaves(g *plan.Graph, x *plan.Index) (Invariant, bool, string) {
	var stuck []string
	for _, ix := range live(g, plan.TypeInteractionSpec) {
		if ix.Status == plan.StatusBlocked && x.Schedulable(ix.ID) {
			stuck = append(stuck, ix.ID)
		}
	}
	if len(stuck) > 0 {
		return P8, false, fmt.Sprintf("%d schedulable interaction specs are Blocked%s", len(stuck), listed(stuck))
	}
	return P8, true, "no schedulable interaction spec is Blocked"
}

func (a *Analyzer) nonterminal(g *plan.Graph, x *plan.Index) (Invariant, bool, string) {
	total, complete := 0, 0
	var incomplete []string
	check := func(id string, ok bool) {
		total++
		if ok {
			complete++
			return
		}
		incomplete = append(incomplete, id)
	}
	for _, r := range live(g, plan.TypeRequirement) {
		check(r.ID, len(x.MissingChildren(r.ID)) == 0)
	}
	for _, cs := range live(g, plan.TypeChangeSpec) {
		if cs.IsSimple() {
			continue
		}
		check(cs.ID, len(x.Children(cs.ID, plan.TypeInteractionSpec)) > 0)
	}
	for _, s := range live(g, plan.TypeScenario) {
		check(s.ID, len(x.Children(s.ID, plan.TypeRequirement)) > 0)
	}
	ok := meets(complete, total, a.th.NonterminalCoverage)
	return P9, ok, fmt.Sprintf("%d/%d nonterminals expanded%s", complete, total, listed(incomplete))
}

func (a *Analyzer) domainCoverage(g *plan.Graph) (Invariant, bool, string) {
	covered := plan.CoveredTopics(g)
	ok := len(covered) >= a.th.DomainTopicFloor
	return P10, ok, fmt.Sprintf("%d/%d topics covered (floor %d)", len(covered), len(plan.Topics), a.th.DomainTopicFloor)
}

func nodesPass(inv Invariant, nodes []*plan.Node, ok func(*plan.Node) bool, what string) (Invariant, bool, string) {
	var bad []string
	for _, n := range nodes {
		if !ok(n) {
			bad = append(bad, n.ID)
		}
	}
	if len(bad) > 0 {
		return inv, false, fmt.Sprintf("%d %s%s", len(bad), what, listed(bad))
	}
	return inv, true, "ok"
}

// meets compares a ratio against a threshold. An empty population passes.
func meets(n, total int, threshold float64) bool {
	if total == 0 {
		return true
	}
	return float64(n)/float64(total) >= threshold-1e-9
}

func listed(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	if len(ids) > maxListed {
		return fmt.Sprintf(" (%s, +%d more)", strings.Join(ids[:maxListed], ", "), len(ids)-maxListed)
	}
	return " (" + strings.Join(ids, ", ") + ")"
}

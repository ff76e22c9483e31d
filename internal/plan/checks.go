package plan

import "strings"

// Required keys of the nested attribute blocks.
var (
	SecurityKeys      = []string{"authZ", "least_priv", "pii"}
	ObservabilityKeys = []string{"logs", "metrics", "span"}
	TestBlockKeys     = []string{"mocks", "acc"}
)

// SecurityComplete reports whether the sec block has authorization,
// least-privilege and PII-sensitivity fields.
func (n *Node) SecurityComplete() bool {
	return n.Sec.HasAll(SecurityKeys...)
}

// ObservabilityComplete reports whether the node's observability block has
// non-empty logs, metrics and span.
func (n *Node) ObservabilityComplete() bool {
	return n.ObservabilityBlock().FilledAll(ObservabilityKeys...)
}

// TestBlockComplete reports whether an InteractionSpec's test block has
// mocks and acceptance criteria.
func (n *Node) TestBlockComplete() bool {
	return n.Test.FilledAll(TestBlockKeys...)
}

// AcceptanceComplete reports whether a Test node has mocks and acceptance
// criteria.
func (n *Node) AcceptanceComplete() bool {
	return len(n.Mocks) > 0 && len(n.Acceptance) > 0
}

// ValidTests returns the scenario's existing Test nodes that carry mocks and
// acceptance criteria.
func (x *Index) ValidTests(scenarioID string) []string {
	var out []string
	for _, id := range x.Children(scenarioID, TypeTest) {
		if n, _ := x.g.Node(id); n.AcceptanceComplete() {
			out = append(out, id)
		}
	}
	return out
}

// Schedulable reports whether an InteractionSpec could run now: every
// depends_on target exists and is not Blocked, and no Open OpenQuestion
// resolves it.
func (x *Index) Schedulable(ixID string) bool {
	n, ok := x.g.Node(ixID)
	if !ok {
		return false
	}
	for _, dep := range n.DependsOn {
		target, ok := x.g.Node(dep)
		if !ok || target.Status == StatusBlocked {
			return false
		}
	}
	for _, e := range x.in[ixID] {
		if e.Type != EdgeResolves {
			continue
		}
		if q, ok := x.g.Node(e.From); ok && q.Type == TypeOpenQuestion && q.IsOpen() {
			return false
		}
	}
	return true
}

// IsOpen reports whether the node's status is Open. A missing status counts
// as Open.
func (n *Node) IsOpen() bool {
	return n.Status == StatusOpen || n.Status == ""
}

// ChildSlot names one child a Requirement must have.
type ChildSlot string

const (
	SlotAPIContract  ChildSlot = "api_contract"
	SlotDataContract ChildSlot = "data_contract"
	SlotComponent    ChildSlot = "component"
	SlotChangeSpec   ChildSlot = "change_spec"
)

// MissingChildren lists the slots a Requirement has no existing child for,
// in a fixed order.
func (x *Index) MissingChildren(reqID string) []ChildSlot {
	var out []ChildSlot
	if len(x.ContractsOfKind(reqID, ContractAPI)) == 0 {
		out = append(out, SlotAPIContract)
	}
	if len(x.ContractsOfKind(reqID, ContractData)) == 0 {
		out = append(out, SlotDataContract)
	}
	if len(x.Children(reqID, TypeComponent)) == 0 {
		out = append(out, SlotComponent)
	}
	if len(x.Children(reqID, TypeChangeSpec)) == 0 {
		out = append(out, SlotChangeSpec)
	}
	return out
}

// CoveredTopics returns the names of the topics mentioned by non-retired
// Scenario and Requirement statements, in topic order.
func CoveredTopics(g *Graph) []string {
	var b strings.Builder
	for _, t := range []NodeType{TypeScenario, TypeRequirement} {
		for _, n := range g.NodesOfType(t) {
			if n.Retired() {
				continue
			}
			b.WriteString(n.Stmt)
			b.WriteByte('\n')
		}
	}
	text := b.String()
	var out []string
	for _, topic := range Topics {
		if topic.In(text) {
			out = append(out, topic.Name)
		}
	}
	return out
}

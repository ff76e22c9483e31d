package synth

import (
	"sort"
	"strings"

	"github.com/roach88/plangraph/internal/plan"
)

// Links are written both ways where the graph has an attribute for them:
// the parent's list attribute and a store edge in the canonical direction.

func (s *Synthesizer) linkScenarioRequirement(pc *PassContext, phase plan.Phase, scID, reqID string) {
	appendAttr(pc, phase, scID, func(n *plan.Node) *[]string { return &n.Requirements }, reqID)
	pc.AddEdge(phase, plan.Edge{From: scID, To: reqID, Type: plan.EdgeTracesTo})
}

func (s *Synthesizer) linkScenarioTest(pc *PassContext, phase plan.Phase, scID, testID string) {
	appendAttr(pc, phase, scID, func(n *plan.Node) *[]string { return &n.Tests }, testID)
	pc.AddEdge(phase, plan.Edge{From: scID, To: testID, Type: plan.EdgeTracesTo})
}

func (s *Synthesizer) linkRequirementContract(pc *PassContext, phase plan.Phase, reqID, contractID string) {
	appendAttr(pc, phase, reqID, func(n *plan.Node) *[]string { return &n.Contracts }, contractID)
	pc.AddEdge(phase, plan.Edge{From: reqID, To: contractID, Type: plan.EdgeDependsOn})
}

func (s *Synthesizer) linkRequirementComponent(pc *PassContext, phase plan.Phase, reqID, compID string) {
	appendAttr(pc, phase, reqID, func(n *plan.Node) *[]string { return &n.Components }, compID)
	pc.AddEdge(phase, plan.Edge{From: reqID, To: compID, Type: plan.EdgeTracesTo})
}

func (s *Synthesizer) linkRequirementChangeSpec(pc *PassContext, phase plan.Phase, reqID, csID string) {
	appendAttr(pc, phase, reqID, func(n *plan.Node) *[]string { return &n.ChangeSpecs }, csID)
	appendAttr(pc, phase, csID, func(n *plan.Node) *[]string { return &n.Implements }, reqID)
	pc.AddEdge(phase, plan.Edge{From: csID, To: reqID, Type: plan.EdgeImplements})
}

func (s *Synthesizer) linkChangeSpecIX(pc *PassContext, phase plan.Phase, csID, ixID string) {
	appendAttr(pc, phase, csID, func(n *plan.Node) *[]string { return &n.IX }, ixID)
	pc.AddEdge(phase, plan.Edge{From: ixID, To: csID, Type: plan.EdgeDependsOn})
}

// appendAttr adds ids to the list attribute selected by field, recording an
// update only when the list grows.
func appendAttr(pc *PassContext, phase plan.Phase, id string, field func(*plan.Node) *[]string, ids ...string) {
	pc.Mutate(phase, id, func(n *plan.Node) bool {
		list := field(n)
		var added bool
		*list, added = plan.AppendUnique(*list, ids...)
		return added
	})
}

// ensureRequirement mints id unless it already exists.
func (s *Synthesizer) ensureRequirement(pc *PassContext, phase plan.Phase, id string, parent *plan.Node) error {
	if pc.Graph.Has(id) {
		return nil
	}
	n, err := s.newRequirement(id, parent)
	if err != nil {
		return err
	}
	pc.AddNode(phase, n)
	return nil
}

func (s *Synthesizer) ensureScenario(pc *PassContext, phase plan.Phase, id string, req *plan.Node) error {
	if pc.Graph.Has(id) {
		return nil
	}
	n, err := s.newNode(plan.TypeScenario, id, TmplScenario, req)
	if err != nil {
		return err
	}
	n.Requirements = []string{}
	n.Tests = []string{}
	pc.AddNode(phase, n)
	return nil
}

func (s *Synthesizer) ensureChangeSpec(pc *PassContext, phase plan.Phase, id, reqID string) error {
	if pc.Graph.Has(id) {
		return nil
	}
	n, err := s.newChangeSpec(id, reqID)
	if err != nil {
		return err
	}
	pc.AddNode(phase, n)
	return nil
}

// expandRequirement gives reqID one child of every required kind, linking
// an existing node with the derived id before minting a new one, and then
// explodes every ChangeSpec below it that has no InteractionSpec.
func (s *Synthesizer) expandRequirement(pc *PassContext, phase plan.Phase, reqID string) error {
	if _, ok := live(pc, reqID, plan.TypeRequirement); !ok {
		return nil
	}
	slug := plan.SlugOf(reqID)

	for _, slot := range pc.Index().MissingChildren(reqID) {
		switch slot {
		case plan.SlotAPIContract, plan.SlotDataContract:
			kind, id := plan.ContractAPI, apiContractID(slug)
			if slot == plan.SlotDataContract {
				kind, id = plan.ContractData, dataContractID(slug)
			}
			if !pc.Graph.Has(id) {
				n, err := s.newContract(id, kind)
				if err != nil {
					return err
				}
				pc.AddNode(phase, n)
			}
			if c, ok := pc.Graph.Node(id); ok && c.Type == plan.TypeContract && c.Kind() == kind {
				s.linkRequirementContract(pc, phase, reqID, id)
			}

		case plan.SlotComponent:
			id := componentID(slug)
			if !pc.Graph.Has(id) {
				n, err := s.newComponent(id)
				if err != nil {
					return err
				}
				pc.AddNode(phase, n)
			}
			if pc.Graph.HasOfType(id, plan.TypeComponent) {
				s.linkRequirementComponent(pc, phase, reqID, id)
			}

		case plan.SlotChangeSpec:
			id := changeSpecID(slug)
			if err := s.ensureChangeSpec(pc, phase, id, reqID); err != nil {
				return err
			}
			if pc.Graph.HasOfType(id, plan.TypeChangeSpec) {
				s.linkRequirementChangeSpec(pc, phase, reqID, id)
			}
		}
	}

	for _, csID := range pc.Index().Children(reqID, plan.TypeChangeSpec) {
		if err := s.explode(pc, phase, csID); err != nil {
			return err
		}
	}
	return nil
}

// explode mints one InteractionSpec per operation the ChangeSpec and its
// Requirements mention. Simple ChangeSpecs and ones that already have an
// InteractionSpec are left alone.
func (s *Synthesizer) explode(pc *PassContext, phase plan.Phase, csID string) error {
	cs, ok := live(pc, csID, plan.TypeChangeSpec)
	if !ok || cs.IsSimple() || len(pc.Index().Children(csID, plan.TypeInteractionSpec)) > 0 {
		return nil
	}

	text := []string{cs.Stmt}
	reqs := pc.Index().Parents(csID, plan.TypeRequirement)
	for _, reqID := range reqs {
		if req, ok := pc.Graph.Node(reqID); ok {
			text = append(text, req.Stmt)
		}
	}

	var apiContract string
	for _, reqID := range reqs {
		if ids := pc.Index().ContractsOfKind(reqID, plan.ContractAPI); len(ids) > 0 {
			apiContract = ids[0]
			break
		}
	}

	slug := plan.SlugOf(csID)
	for _, op := range plan.InferOperations(strings.Join(text, "\n")) {
		id := interactionID(slug, op)
		if !pc.Graph.Has(id) {
			var deps []string
			if apiContract != "" {
				deps = append(deps, apiContract)
			}
			deps = append(deps, csID)
			n, err := s.newInteraction(id, csID, op, deps)
			if err != nil {
				return err
			}
			pc.AddNode(phase, n)
		}
		if pc.Graph.HasOfType(id, plan.TypeInteractionSpec) {
			s.linkChangeSpecIX(pc, phase, csID, id)
		}
	}
	return nil
}

// ensureScenarioTest gives scID a Test with mocks and acceptance criteria.
// Existing incomplete Tests are backfilled before a new one is minted.
func (s *Synthesizer) ensureScenarioTest(pc *PassContext, phase plan.Phase, scID string) error {
	scenario, ok := live(pc, scID, plan.TypeScenario)
	if !ok || len(pc.Index().ValidTests(scID)) > 0 {
		return nil
	}

	existing := pc.Index().Children(scID, plan.TypeTest)
	id := testID(plan.SlugOf(scID))
	if len(existing) == 0 {
		if !pc.Graph.Has(id) {
			n, err := s.newTest(id, scenario)
			if err != nil {
				return err
			}
			pc.AddNode(phase, n)
		}
		if !pc.Graph.HasOfType(id, plan.TypeTest) {
			return nil
		}
		s.linkScenarioTest(pc, phase, scID, id)
		existing = []string{id}
	}

	acc, err := s.render(TmplTestAcceptance, View{ID: existing[0], ParentID: scID, ParentStmt: scenario.Stmt})
	if err != nil {
		return err
	}
	for _, tid := range existing {
		pc.Mutate(phase, tid, func(n *plan.Node) bool {
			changed := false
			if len(n.Mocks) == 0 {
				n.Mocks = append([]string(nil), defaultMocks...)
				changed = true
			}
			if len(n.Acceptance) == 0 {
				n.Acceptance = []string{acc}
				changed = true
			}
			return changed
		})
	}
	return nil
}

func sortedIDs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

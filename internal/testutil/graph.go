package testutil

import (
	"github.com/roach88/plangraph/internal/plan"
)

// AllTopicsStmt mentions all sixteen domain topics.
const AllTopicsStmt = "Users sign in through the identity provider, manage preferences and navigation menus, " +
	"keep working offline when network connectivity drops, rely on a database with caching, " +
	"background queues, secrets in a vault, observability monitoring, analytics insights, " +
	"feature flags, security permissions, i18n translations, push notifications and payments."

// N creates an Open node of type t.
func N(t plan.NodeType, id, stmt string) *plan.Node {
	return &plan.Node{ID: id, Type: t, Stmt: stmt, Status: plan.StatusOpen}
}

// Scenario creates an Open Scenario node.
func Scenario(id, stmt string) *plan.Node {
	return N(plan.TypeScenario, id, stmt)
}

// Requirement creates an Open Requirement node.
func Requirement(id, stmt string) *plan.Node {
	return N(plan.TypeRequirement, id, stmt)
}

// Contract creates an Open Contract node of kind k.
func Contract(id string, k plan.ContractKind, stmt string) *plan.Node {
	n := N(plan.TypeContract, id, stmt)
	n.ContractType = k
	return n
}

// ChangeSpec creates an Open ChangeSpec node.
func ChangeSpec(id, stmt string) *plan.Node {
	return N(plan.TypeChangeSpec, id, stmt)
}

// IX creates an Open InteractionSpec node with no sub-blocks.
func IX(id, stmt string) *plan.Node {
	return N(plan.TypeInteractionSpec, id, stmt)
}

// GraphOf builds a graph from nodes and edges.
func GraphOf(nodes []*plan.Node, edges ...plan.Edge) *plan.Graph {
	g := plan.NewGraph()
	for _, n := range nodes {
		g.PutNode(n)
	}
	for _, e := range edges {
		g.AddEdge(e)
	}
	return g
}

// CompleteIX returns an InteractionSpec with sec, obs and test blocks filled.
func CompleteIX(id string, dependsOn ...string) *plan.Node {
	ix := IX(id, "Create operation via API")
	ix.DependsOn = dependsOn
	ix.Sec = plan.Block{}
	ix.Sec.Set("authZ", "User owns resource")
	ix.Sec.Set("least_priv", "Own resources only")
	ix.Sec.Set("pii", false)
	ix.Obs = plan.Block{}
	ix.Obs.Set("logs", []string{"start", "complete"})
	ix.Obs.Set("metrics", []string{"op_count"})
	ix.Obs.Set("span", "api.create")
	ix.Test = plan.Block{}
	ix.Test.Set("mocks", []string{"Database"})
	ix.Test.Set("acc", []string{"Given a resource\nWhen created\nThen it exists"})
	return ix
}

// AddCompleteChain adds a scenario with a full, invariant-satisfying chain
// below it: requirement, api and data contracts, component, change spec,
// interaction spec and test.
func AddCompleteChain(g *plan.Graph, slug, stmt string) {
	sID := "scenario:" + slug
	rID := "requirement:" + slug
	apiID := "contract:api-" + slug
	dataID := "contract:data-" + slug
	compID := "component:" + slug
	csID := "change:" + slug
	ixID := "ix:" + slug + "-api-create-fresh-under-ok"
	testID := "test:" + slug + "-acc"

	s := Scenario(sID, stmt)
	s.Requirements = []string{rID}
	s.Tests = []string{testID}

	r := Requirement(rID, "Requirement for "+stmt)
	r.Contracts = []string{apiID, dataID}
	r.Components = []string{compID}
	r.ChangeSpecs = []string{csID}

	api := Contract(apiID, plan.ContractAPI,
		"API with AUTHZ scopes, RATE LIMIT, IDEMPOTENCY key, TIMEOUTS, ERROR TAXONOMY, OBSERVABILITY")
	api.Versioning = "semver:minor"
	data := Contract(dataID, plan.ContractData, "Data with schema, migration, retention, PII, region")
	data.Versioning = "semver:minor"

	comp := N(plan.TypeComponent, compID, "Component for "+slug)
	comp.Observability = plan.Block{}
	comp.Observability.Set("logs", []string{"component events"})
	comp.Observability.Set("metrics", []string{"component_requests"})
	comp.Observability.Set("span", "component."+slug)

	cs := ChangeSpec(csID, "Implement "+slug)
	cs.Implements = []string{rID}
	cs.IX = []string{ixID}
	cs.RolloutFlag = "feature." + slug

	ix := CompleteIX(ixID, apiID, csID)

	test := N(plan.TypeTest, testID, "Acceptance for "+slug)
	test.Mocks = []string{"Database"}
	test.Acceptance = []string{"Given a user\nWhen they act\nThen it works"}

	for _, n := range []*plan.Node{s, r, api, data, comp, cs, ix, test} {
		g.PutNode(n)
	}
	g.AddEdge(plan.Edge{From: sID, To: rID, Type: plan.EdgeTracesTo})
	g.AddEdge(plan.Edge{From: csID, To: rID, Type: plan.EdgeImplements})
	g.AddEdge(plan.Edge{From: ixID, To: csID, Type: plan.EdgeDependsOn})
}

// CompleteGraph returns a graph with one complete chain whose scenario
// covers every topic.
func CompleteGraph() *plan.Graph {
	g := plan.NewGraph()
	AddCompleteChain(g, "core", AllTopicsStmt)
	return g
}

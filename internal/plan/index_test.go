package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func node(id string, t NodeType) *Node {
	return &Node{ID: id, Type: t, Status: StatusOpen}
}

// chainGraph builds scenario -> requirement -> change -> ix with links
// supplied by the caller.
func chainGraph(link func(g *Graph, s, r, c, ix *Node)) *Graph {
	g := NewGraph()
	s := node("scenario:a", TypeScenario)
	r := node("requirement:a", TypeRequirement)
	c := node("change:a", TypeChangeSpec)
	ix := node("ix:a", TypeInteractionSpec)
	for _, n := range []*Node{s, r, c, ix} {
		g.PutNode(n)
	}
	link(g, s, r, c, ix)
	return g
}

func TestReachableIX_AttributesOnly(t *testing.T) {
	g := chainGraph(func(g *Graph, s, r, c, ix *Node) {
		s.Requirements = []string{r.ID}
		r.ChangeSpecs = []string{c.ID}
		c.IX = []string{ix.ID}
	})
	assert.Equal(t, []string{"ix:a"}, NewIndex(g).ReachableIX("scenario:a"))
}

func TestReachableIX_EdgesOnly(t *testing.T) {
	g := chainGraph(func(g *Graph, s, r, c, ix *Node) {
		g.AddEdge(Edge{From: s.ID, To: r.ID, Type: EdgeTracesTo})
		g.AddEdge(Edge{From: c.ID, To: r.ID, Type: EdgeImplements})
		g.AddEdge(Edge{From: ix.ID, To: c.ID, Type: EdgeDependsOn})
	})
	assert.Equal(t, []string{"ix:a"}, NewIndex(g).ReachableIX("scenario:a"))
}

func TestReachableIX_Mixed(t *testing.T) {
	g := chainGraph(func(g *Graph, s, r, c, ix *Node) {
		s.Requirements = []string{r.ID}
		g.AddEdge(Edge{From: r.ID, To: c.ID, Type: EdgeTracesTo})
		ix.DependsOn = []string{c.ID}
	})
	assert.Equal(t, []string{"ix:a"}, NewIndex(g).ReachableIX("scenario:a"))
}

func TestReachableIX_BackReferenceAttributes(t *testing.T) {
	g := chainGraph(func(g *Graph, s, r, c, ix *Node) {
		s.Requirements = []string{r.ID}
		c.Implements = []string{r.ID}
		ix.DependsOn = []string{c.ID}
	})
	assert.Equal(t, []string{"ix:a"}, NewIndex(g).ReachableIX("scenario:a"))
}

func TestReachableIX_BrokenLink(t *testing.T) {
	g := chainGraph(func(g *Graph, s, r, c, ix *Node) {
		s.Requirements = []string{r.ID}
		c.IX = []string{ix.ID}
	})
	assert.Empty(t, NewIndex(g).ReachableIX("scenario:a"))
}

func TestChildren_DropsDanglingAndWrongType(t *testing.T) {
	g := NewGraph()
	r := node("requirement:a", TypeRequirement)
	r.Contracts = []string{"contract:missing", "component:a", "contract:api-a"}
	g.PutNode(r)
	g.PutNode(node("component:a", TypeComponent))
	g.PutNode(node("contract:api-a", TypeContract))

	x := NewIndex(g)
	assert.Equal(t, []string{"contract:api-a"}, x.Children("requirement:a", TypeContract))
	assert.Empty(t, x.Children("requirement:a", TypeComponent))
	assert.Nil(t, x.Children("requirement:missing", TypeContract))
}

func TestChildren_WrongDirectionBackEdgeIgnored(t *testing.T) {
	g := chainGraph(func(g *Graph, s, r, c, ix *Node) {
		g.AddEdge(Edge{From: ix.ID, To: c.ID, Type: EdgeResolves})
	})
	assert.Empty(t, NewIndex(g).Children("change:a", TypeInteractionSpec))
}

func TestContractsOfKind(t *testing.T) {
	g := NewGraph()
	r := node("requirement:a", TypeRequirement)
	r.Contracts = []string{"contract:api-a", "contract:data-a", "contract:x"}
	g.PutNode(r)
	g.PutNode(node("contract:api-a", TypeContract))
	g.PutNode(node("contract:data-a", TypeContract))
	x := node("contract:x", TypeContract)
	x.ContractType = ContractData
	g.PutNode(x)

	idx := NewIndex(g)
	assert.Equal(t, []string{"contract:api-a"}, idx.ContractsOfKind("requirement:a", ContractAPI))
	assert.Equal(t, []string{"contract:data-a", "contract:x"}, idx.ContractsOfKind("requirement:a", ContractData))
}

func TestParents(t *testing.T) {
	g := chainGraph(func(g *Graph, s, r, c, ix *Node) {
		ix.DependsOn = []string{c.ID}
		g.AddEdge(Edge{From: c.ID, To: r.ID, Type: EdgeImplements})
	})
	x := NewIndex(g)
	assert.Equal(t, []string{"change:a"}, x.Parents("ix:a", TypeChangeSpec))
	assert.Equal(t, []string{"requirement:a"}, x.Parents("change:a", TypeRequirement))
	assert.Empty(t, x.Parents("requirement:a", TypeScenario))
}

func TestOneSided(t *testing.T) {
	g := chainGraph(func(g *Graph, s, r, c, ix *Node) {
		s.Requirements = []string{r.ID}
		g.AddEdge(Edge{From: s.ID, To: r.ID, Type: EdgeTracesTo})
		r.ChangeSpecs = []string{c.ID}
		g.AddEdge(Edge{From: ix.ID, To: c.ID, Type: EdgeDependsOn})
	})
	assert.Equal(t, 2, NewIndex(g).OneSided())
}

func TestGraph_AddEdgeDedupes(t *testing.T) {
	g := NewGraph()
	e := Edge{From: "a", To: "b", Type: EdgeTracesTo}
	assert.True(t, g.AddEdge(e))
	assert.False(t, g.AddEdge(e))
	assert.True(t, g.AddEdge(Edge{From: "a", To: "b", Type: EdgeDependsOn}))
	assert.Len(t, g.Edges, 2)
	assert.True(t, g.HasEdge(e))
}

func TestGraph_CloneIsIndependent(t *testing.T) {
	g := NewGraph()
	g.PutNode(node("scenario:a", TypeScenario))
	g.AddEdge(Edge{From: "scenario:a", To: "requirement:a", Type: EdgeTracesTo})

	c := g.Clone()
	c.Nodes["scenario:a"].Stmt = "changed"
	c.AddEdge(Edge{From: "x", To: "y", Type: EdgeTracesTo})

	assert.Empty(t, g.Nodes["scenario:a"].Stmt)
	assert.Len(t, g.Edges, 1)
	assert.False(t, c.AddEdge(Edge{From: "scenario:a", To: "requirement:a", Type: EdgeTracesTo}))
}

func TestSchedulable(t *testing.T) {
	g := NewGraph()
	ix := node("ix:a", TypeInteractionSpec)
	ix.DependsOn = []string{"change:a"}
	g.PutNode(ix)
	g.PutNode(node("change:a", TypeChangeSpec))
	assert.True(t, NewIndex(g).Schedulable("ix:a"))

	g.Nodes["change:a"].Status = StatusBlocked
	assert.False(t, NewIndex(g).Schedulable("ix:a"))

	g.Nodes["change:a"].Status = StatusReady
	q := node("question:a", TypeOpenQuestion)
	g.PutNode(q)
	g.AddEdge(Edge{From: q.ID, To: ix.ID, Type: EdgeResolves})
	assert.False(t, NewIndex(g).Schedulable("ix:a"))

	q.Status = StatusRetired
	assert.True(t, NewIndex(g).Schedulable("ix:a"))

	ix.DependsOn = append(ix.DependsOn, "contract:missing")
	assert.False(t, NewIndex(g).Schedulable("ix:a"))
}

package plan

import "sort"

// Graph is an in-memory snapshot of a plan graph.
//
// Graph is not safe for concurrent use. The engine builds a fresh Graph on
// every load and never shares one across passes.
type Graph struct {
	Nodes    map[string]*Node
	Edges    []Edge
	Warnings []LoadWarning

	edgeSet map[Edge]struct{}
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:   make(map[string]*Node),
		edgeSet: make(map[Edge]struct{}),
	}
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.Nodes[id]
	return n, ok
}

// Has reports whether a node with id exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.Nodes[id]
	return ok
}

// HasOfType reports whether a node with id exists and has type t.
func (g *Graph) HasOfType(id string, t NodeType) bool {
	n, ok := g.Nodes[id]
	return ok && n.Type == t
}

// PutNode inserts or replaces a node.
func (g *Graph) PutNode(n *Node) {
	g.Nodes[n.ID] = n
}

// AddEdge appends e unless the same triple is already present.
func (g *Graph) AddEdge(e Edge) bool {
	if g.edgeSet == nil {
		g.edgeSet = make(map[Edge]struct{}, len(g.Edges))
		for _, existing := range g.Edges {
			g.edgeSet[existing] = struct{}{}
		}
	}
	if _, dup := g.edgeSet[e]; dup {
		return false
	}
	g.edgeSet[e] = struct{}{}
	g.Edges = append(g.Edges, e)
	return true
}

// HasEdge reports whether the triple is present.
func (g *Graph) HasEdge(e Edge) bool {
	if g.edgeSet == nil {
		for _, existing := range g.Edges {
			if existing == e {
				return true
			}
		}
		return false
	}
	_, ok := g.edgeSet[e]
	return ok
}

// Warn records a load warning.
func (g *Graph) Warn(source, reason string) {
	g.Warnings = append(g.Warnings, LoadWarning{Source: source, Reason: reason})
}

// NodesOfType returns nodes of type t sorted by id.
func (g *Graph) NodesOfType(t NodeType) []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.Type == t {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CountOfType returns the number of nodes of type t.
func (g *Graph) CountOfType(t NodeType) int {
	count := 0
	for _, n := range g.Nodes {
		if n.Type == t {
			count++
		}
	}
	return count
}

// IDs returns every node id in sorted order.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := NewGraph()
	for id, n := range g.Nodes {
		c.Nodes[id] = n.Clone()
	}
	for _, e := range g.Edges {
		c.AddEdge(e)
	}
	c.Warnings = append([]LoadWarning(nil), g.Warnings...)
	return c
}

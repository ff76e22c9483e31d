package plan

import "sort"

// relation describes how a parent type reaches children of one type.
// Attribute lists on the parent, attribute back-references on the child and
// store edges are all authoritative and are unioned.
type relation struct {
	parent, child NodeType
	attr          func(*Node) []string
	backAttr      func(*Node) []string
	backEdge      EdgeType
	anyBackEdge   bool
}

var relations = []relation{
	{parent: TypeScenario, child: TypeRequirement, attr: func(n *Node) []string { return n.Requirements }},
	{parent: TypeScenario, child: TypeTest, attr: func(n *Node) []string { return n.Tests }, anyBackEdge: true},
	{parent: TypeRequirement, child: TypeContract, attr: func(n *Node) []string { return n.Contracts }},
	{parent: TypeRequirement, child: TypeComponent, attr: func(n *Node) []string { return n.Components }},
	{
		parent:   TypeRequirement,
		child:    TypeChangeSpec,
		attr:     func(n *Node) []string { return n.ChangeSpecs },
		backAttr: func(n *Node) []string { return n.Implements },
		backEdge: EdgeImplements,
	},
	{
		parent:   TypeChangeSpec,
		child:    TypeInteractionSpec,
		attr:     func(n *Node) []string { return n.IX },
		backAttr: func(n *Node) []string { return n.DependsOn },
		backEdge: EdgeDependsOn,
	},
}

type relKey struct {
	parent, child NodeType
}

// Index answers parent/child and reachability queries over one graph
// snapshot. References to missing or wrongly typed nodes are dropped.
type Index struct {
	g        *Graph
	out      map[string][]Edge
	in       map[string][]Edge
	children map[relKey]map[string][]string
	parents  map[relKey]map[string][]string
}

// NewIndex builds an index over g. The index does not observe later changes
// to g; build a new one after mutating the graph.
func NewIndex(g *Graph) *Index {
	x := &Index{
		g:        g,
		out:      make(map[string][]Edge),
		in:       make(map[string][]Edge),
		children: make(map[relKey]map[string][]string),
		parents:  make(map[relKey]map[string][]string),
	}
	for _, e := range g.Edges {
		x.out[e.From] = append(x.out[e.From], e)
		x.in[e.To] = append(x.in[e.To], e)
	}
	for _, rel := range relations {
		x.build(rel)
	}
	return x
}

func (x *Index) build(rel relation) {
	key := relKey{rel.parent, rel.child}
	links := make(map[string]map[string]struct{})
	link := func(parent, child string) {
		if !x.g.HasOfType(parent, rel.parent) || !x.g.HasOfType(child, rel.child) {
			return
		}
		if links[parent] == nil {
			links[parent] = make(map[string]struct{})
		}
		links[parent][child] = struct{}{}
	}

	for _, n := range x.g.Nodes {
		switch n.Type {
		case rel.parent:
			for _, child := range rel.attr(n) {
				link(n.ID, child)
			}
			for _, e := range x.out[n.ID] {
				link(n.ID, e.To)
			}
		case rel.child:
			if rel.backAttr != nil {
				for _, parent := range rel.backAttr(n) {
					link(parent, n.ID)
				}
			}
			for _, e := range x.out[n.ID] {
				if rel.anyBackEdge || (rel.backEdge != "" && e.Type == rel.backEdge) {
					link(e.To, n.ID)
				}
			}
		}
	}

	children := make(map[string][]string, len(links))
	parents := make(map[string][]string)
	for parent, set := range links {
		for child := range set {
			children[parent] = append(children[parent], child)
			parents[child] = append(parents[child], parent)
		}
		sort.Strings(children[parent])
	}
	for child := range parents {
		sort.Strings(parents[child])
	}
	x.children[key] = children
	x.parents[key] = parents
}

// Children returns the existing children of parent with type child, sorted.
func (x *Index) Children(parentID string, child NodeType) []string {
	n, ok := x.g.Node(parentID)
	if !ok {
		return nil
	}
	return x.children[relKey{n.Type, child}][parentID]
}

// Parents returns the existing parents of child with type parent, sorted.
func (x *Index) Parents(childID string, parent NodeType) []string {
	n, ok := x.g.Node(childID)
	if !ok {
		return nil
	}
	return x.parents[relKey{parent, n.Type}][childID]
}

// ContractsOfKind returns the requirement's existing contracts of kind k.
func (x *Index) ContractsOfKind(reqID string, k ContractKind) []string {
	var out []string
	for _, id := range x.Children(reqID, TypeContract) {
		if n, _ := x.g.Node(id); n.Kind() == k {
			out = append(out, id)
		}
	}
	return out
}

// ReachableIX returns the InteractionSpecs a Scenario reaches through
// Requirement, ChangeSpec and InteractionSpec links, sorted.
func (x *Index) ReachableIX(scenarioID string) []string {
	seen := make(map[string]struct{})
	for _, req := range x.Children(scenarioID, TypeRequirement) {
		for _, cs := range x.Children(req, TypeChangeSpec) {
			for _, ix := range x.Children(cs, TypeInteractionSpec) {
				seen[ix] = struct{}{}
			}
		}
	}
	return sortedKeys(seen)
}

// ReachableFromScenarios returns every InteractionSpec reachable from any
// Scenario.
func (x *Index) ReachableFromScenarios() map[string]struct{} {
	out := make(map[string]struct{})
	for _, s := range x.g.NodesOfType(TypeScenario) {
		for _, ix := range x.ReachableIX(s.ID) {
			out[ix] = struct{}{}
		}
	}
	return out
}

// EdgesFrom returns the stored edges leaving id.
func (x *Index) EdgesFrom(id string) []Edge {
	return x.out[id]
}

// EdgesTo returns the stored edges entering id.
func (x *Index) EdgesTo(id string) []Edge {
	return x.in[id]
}

// OneSided counts parent/child links recorded only as an attribute or only
// as an edge. Such links are tolerated; the count is reported so
// inconsistent writers are visible.
func (x *Index) OneSided() int {
	count := 0
	for _, rel := range relations {
		for parent, kids := range x.children[relKey{rel.parent, rel.child}] {
			p, _ := x.g.Node(parent)
			for _, child := range kids {
				c, _ := x.g.Node(child)
				byAttr := Contains(rel.attr(p), child) || (rel.backAttr != nil && Contains(rel.backAttr(c), parent))
				byEdge := x.edgeBetween(parent, child)
				if byAttr != byEdge {
					count++
				}
			}
		}
	}
	return count
}

func (x *Index) edgeBetween(a, b string) bool {
	for _, e := range x.out[a] {
		if e.To == b {
			return true
		}
	}
	for _, e := range x.out[b] {
		if e.To == a {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

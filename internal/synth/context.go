package synth

import (
	"sort"

	"github.com/roach88/plangraph/internal/plan"
)

// PassContext carries the state of one synthesis pass: an overlay of the
// loaded graph that reflects every delta emitted so far, the deltas
// themselves and the ids they touched. Stages read the overlay, so later
// phases see ids minted by earlier ones.
type PassContext struct {
	Pass   int
	Graph  *plan.Graph
	Deltas []plan.Delta

	changed map[string]struct{}
	// nodeDelta maps a node id to its add_node or update_node delta so
	// repeated edits within a pass collapse into one snapshot.
	nodeDelta map[string]int
	index     *plan.Index
}

// NewPassContext starts a pass over a private copy of g.
func NewPassContext(pass int, g *plan.Graph) *PassContext {
	return &PassContext{
		Pass:      pass,
		Graph:     g.Clone(),
		changed:   make(map[string]struct{}),
		nodeDelta: make(map[string]int),
	}
}

// Index returns a reachability index over the current overlay.
func (pc *PassContext) Index() *plan.Index {
	if pc.index == nil {
		pc.index = plan.NewIndex(pc.Graph)
	}
	return pc.index
}

// Changed returns the ids touched in this pass, sorted.
func (pc *PassContext) Changed() []string {
	out := make([]string, 0, len(pc.changed))
	for id := range pc.changed {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// AddNode mints n unless a node with the same id already exists. It reports
// whether the node was added.
func (pc *PassContext) AddNode(phase plan.Phase, n *plan.Node) bool {
	if pc.Graph.Has(n.ID) {
		return false
	}
	pc.Graph.PutNode(n)
	pc.nodeDelta[n.ID] = len(pc.Deltas)
	pc.Deltas = append(pc.Deltas, plan.Delta{Op: plan.OpAddNode, Phase: phase, Pass: pc.Pass, Node: n.Clone()})
	pc.touch(n.ID)
	return true
}

// AddEdge records e unless the triple already exists.
func (pc *PassContext) AddEdge(phase plan.Phase, e plan.Edge) bool {
	if !pc.Graph.AddEdge(e) {
		return false
	}
	edge := e
	pc.Deltas = append(pc.Deltas, plan.Delta{Op: plan.OpAddEdge, Phase: phase, Pass: pc.Pass, Edge: &edge})
	pc.index = nil
	return true
}

// Mutate applies edit to a copy of node id. When edit reports a change the
// copy replaces the node in the overlay and is recorded as an update. A node
// minted or updated earlier in the pass keeps a single delta holding the
// latest snapshot.
func (pc *PassContext) Mutate(phase plan.Phase, id string, edit func(n *plan.Node) bool) bool {
	current, ok := pc.Graph.Node(id)
	if !ok {
		return false
	}
	n := current.Clone()
	if !edit(n) {
		return false
	}
	pc.Graph.PutNode(n)
	if i, ok := pc.nodeDelta[id]; ok {
		pc.Deltas[i].Node = n.Clone()
	} else {
		pc.nodeDelta[id] = len(pc.Deltas)
		pc.Deltas = append(pc.Deltas, plan.Delta{Op: plan.OpUpdateNode, Phase: phase, Pass: pc.Pass, Node: n.Clone()})
	}
	pc.touch(id)
	return true
}

func (pc *PassContext) touch(id string) {
	pc.changed[id] = struct{}{}
	pc.index = nil
}

// Batch returns the pass's deltas and touched ids.
func (pc *PassContext) Batch() Batch {
	return Batch{Deltas: pc.Deltas, Changed: pc.Changed()}
}

// Batch is the ordered output of one synthesis pass.
type Batch struct {
	Deltas  []plan.Delta `json:"deltas"`
	Changed []string     `json:"changed"`
}

// Counts returns the number of deltas per op.
func (b Batch) Counts() map[plan.Op]int {
	out := make(map[plan.Op]int, 3)
	for _, d := range b.Deltas {
		out[d.Op]++
	}
	return out
}

package plan

import "fmt"

// Op is the kind of graph mutation a Delta performs.
type Op string

const (
	OpAddNode    Op = "add_node"
	OpAddEdge    Op = "add_edge"
	OpUpdateNode Op = "update_node"
)

// Phase names the synthesis phase that emitted a delta.
type Phase string

const (
	PhaseSeed     Phase = "A"
	PhaseExplode  Phase = "B"
	PhaseExpand   Phase = "C"
	PhaseReattach Phase = "D"
	PhaseHarden   Phase = "E"
	PhaseGate     Phase = "F"
	PhaseReplay   Phase = "replay"
)

// Delta is one atomic graph mutation.
type Delta struct {
	Op    Op    `json:"op"`
	Phase Phase `json:"phase"`
	Pass  int   `json:"pass,omitempty"`
	Node  *Node `json:"node,omitempty"`
	Edge  *Edge `json:"edge,omitempty"`
}

// Subject returns the node id or edge the delta is about, for logs.
func (d Delta) Subject() string {
	switch {
	case d.Node != nil:
		return d.Node.ID
	case d.Edge != nil:
		return d.Edge.String()
	}
	return ""
}

// Validate checks that the delta carries the payload its op requires.
func (d Delta) Validate() error {
	switch d.Op {
	case OpAddNode, OpUpdateNode:
		if d.Node == nil || d.Node.ID == "" {
			return fmt.Errorf("%s delta without node id", d.Op)
		}
	case OpAddEdge:
		if d.Edge == nil {
			return fmt.Errorf("add_edge delta without edge")
		}
		return d.Edge.Validate()
	default:
		return fmt.Errorf("unknown delta op %q", d.Op)
	}
	return nil
}

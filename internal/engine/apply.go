package engine

import (
	"bytes"
	"context"
	"fmt"

	"github.com/roach88/plangraph/internal/plan"
	"github.com/roach88/plangraph/internal/store"
)

var applyOrder = []plan.Op{plan.OpAddNode, plan.OpAddEdge, plan.OpUpdateNode}

// Order returns deltas grouped as add_node, add_edge, update_node. Emission
// order is kept inside each group, so a node always exists before any edge
// or update that references it.
func Order(deltas []plan.Delta) []plan.Delta {
	out := make([]plan.Delta, 0, len(deltas))
	for _, op := range applyOrder {
		for _, d := range deltas {
			if d.Op == op {
				out = append(out, d)
			}
		}
	}
	return out
}

// Apply writes deltas to st in Order. It returns the deltas that changed
// the store; edges already present are dropped.
func Apply(ctx context.Context, st store.Store, deltas []plan.Delta) ([]plan.Delta, error) {
	applied := make([]plan.Delta, 0, len(deltas))
	for _, d := range Order(deltas) {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		if err := d.Validate(); err != nil {
			return applied, fmt.Errorf("apply %s: %w", d.Subject(), err)
		}
		switch d.Op {
		case plan.OpAddNode, plan.OpUpdateNode:
			if err := st.SaveNode(ctx, d.Node); err != nil {
				return applied, fmt.Errorf("apply %s %s: %w", d.Op, d.Node.ID, err)
			}
		case plan.OpAddEdge:
			ok, err := st.AppendEdge(ctx, *d.Edge)
			if err != nil {
				return applied, fmt.Errorf("apply %s %s: %w", d.Op, d.Edge, err)
			}
			if !ok {
				continue
			}
		}
		applied = append(applied, d)
	}
	return applied, nil
}

// ReplayResult summarises a replay.
type ReplayResult struct {
	Applied []plan.Delta `json:"applied"`
	Skipped int          `json:"skipped"`
}

// Replay re-applies recorded deltas to st. Deltas whose effect is already
// present are skipped: add_node for an existing id, update_node whose
// snapshot equals the stored node, and duplicate edges. Replaying the same
// deltas twice therefore changes nothing the second time.
func Replay(ctx context.Context, st store.Store, deltas []plan.Delta) (ReplayResult, error) {
	g, err := st.Load(ctx)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay: load graph: %w", err)
	}

	var res ReplayResult
	pending := make([]plan.Delta, 0, len(deltas))
	for i, d := range deltas {
		if err := d.Validate(); err != nil {
			return ReplayResult{}, fmt.Errorf("replay: delta %d: %w", i, err)
		}
		switch d.Op {
		case plan.OpAddNode:
			if g.Has(d.Node.ID) {
				res.Skipped++
				continue
			}
			g.PutNode(d.Node)
		case plan.OpUpdateNode:
			same, err := sameNode(g, d.Node)
			if err != nil {
				return ReplayResult{}, fmt.Errorf("replay: delta %d: %w", i, err)
			}
			if same {
				res.Skipped++
				continue
			}
		case plan.OpAddEdge:
			if g.HasEdge(*d.Edge) {
				res.Skipped++
				continue
			}
		}
		pending = append(pending, d)
	}

	applied, err := Apply(ctx, st, pending)
	res.Applied = applied
	res.Skipped += len(pending) - len(applied)
	if err != nil {
		return res, fmt.Errorf("replay: %w", err)
	}
	return res, nil
}

func sameNode(g *plan.Graph, n *plan.Node) (bool, error) {
	current, ok := g.Node(n.ID)
	if !ok {
		return false, nil
	}
	a, err := store.EncodeNode(current)
	if err != nil {
		return false, err
	}
	b, err := store.EncodeNode(n)
	if err != nil {
		return false, err
	}
	return bytes.Equal(a, b), nil
}

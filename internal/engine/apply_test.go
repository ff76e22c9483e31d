package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plangraph/internal/plan"
	"github.com/roach88/plangraph/internal/store/memstore"
	gtest "github.com/roach88/plangraph/internal/testutil"
)

func TestOrder_GroupsByOpKeepingEmissionOrder(t *testing.T) {
	edge := plan.Edge{From: "scenario:a", To: "requirement:a", Type: plan.EdgeTracesTo}
	in := []plan.Delta{
		{Op: plan.OpUpdateNode, Node: gtest.Scenario("scenario:a", "A")},
		{Op: plan.OpAddEdge, Edge: &edge},
		{Op: plan.OpAddNode, Node: gtest.Requirement("requirement:a", "A")},
		{Op: plan.OpAddNode, Node: gtest.Requirement("requirement:b", "B")},
	}

	var got []string
	for _, d := range Order(in) {
		got = append(got, string(d.Op)+" "+d.Subject())
	}
	assert.Equal(t, []string{
		"add_node requirement:a",
		"add_node requirement:b",
		"add_edge " + edge.String(),
		"update_node scenario:a",
	}, got)
}

func TestApply_DropsDuplicateEdges(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	edge := plan.Edge{From: "scenario:a", To: "requirement:a", Type: plan.EdgeTracesTo}
	deltas := []plan.Delta{
		{Op: plan.OpAddNode, Node: gtest.Scenario("scenario:a", "A")},
		{Op: plan.OpAddNode, Node: gtest.Requirement("requirement:a", "A")},
		{Op: plan.OpAddEdge, Edge: &edge},
		{Op: plan.OpAddEdge, Edge: &edge},
	}

	applied, err := Apply(ctx, st, deltas)
	require.NoError(t, err)
	assert.Len(t, applied, 3)

	g, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 2)
	assert.Equal(t, []plan.Edge{edge}, g.Edges)
}

func TestApply_RejectsInvalidDelta(t *testing.T) {
	_, err := Apply(context.Background(), memstore.New(), []plan.Delta{{Op: plan.OpAddNode}})
	assert.Error(t, err)
}

func TestReplay_RebuildsRunAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	source := storeOf(t, seedScenario())
	r := run(t, source)
	require.True(t, r.Converged)

	target := storeOf(t, seedScenario())
	res, err := Replay(ctx, target, r.Deltas())
	require.NoError(t, err)
	assert.Len(t, res.Applied, len(r.DeltasApplied))
	assert.Zero(t, res.Skipped)

	want, err := source.Load(ctx)
	require.NoError(t, err)
	got, err := target.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.IDs(), got.IDs())
	assert.ElementsMatch(t, want.Edges, got.Edges)
	for _, id := range want.IDs() {
		a, _ := want.Node(id)
		b, _ := got.Node(id)
		assert.Equal(t, a, b, id)
	}

	again, err := Replay(ctx, target, r.Deltas())
	require.NoError(t, err)
	assert.Empty(t, again.Applied)
	assert.Equal(t, len(r.DeltasApplied), again.Skipped)
}

func TestReplay_KeepsExistingNodes(t *testing.T) {
	ctx := context.Background()
	st := storeOf(t, gtest.Requirement("requirement:a", "Edited by hand"))

	res, err := Replay(ctx, st, []plan.Delta{
		{Op: plan.OpAddNode, Node: gtest.Requirement("requirement:a", "Generated")},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Applied)
	assert.Equal(t, 1, res.Skipped)

	g, err := st.Load(ctx)
	require.NoError(t, err)
	n, _ := g.Node("requirement:a")
	assert.Equal(t, "Edited by hand", n.Stmt)
}

func TestReplay_InvalidDelta(t *testing.T) {
	_, err := Replay(context.Background(), memstore.New(), []plan.Delta{{Op: "delete_node"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delta 0")
}

package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plangraph/internal/plan"
	"github.com/roach88/plangraph/internal/testutil"
)

func TestPassContext_AddNodeOnce(t *testing.T) {
	pc := NewPassContext(1, plan.NewGraph())
	assert.True(t, pc.AddNode(plan.PhaseSeed, testutil.Scenario("scenario:a", "A")))
	assert.False(t, pc.AddNode(plan.PhaseSeed, testutil.Scenario("scenario:a", "again")))
	require.Len(t, pc.Deltas, 1)
	assert.Equal(t, "A", pc.Deltas[0].Node.Stmt)
}

func TestPassContext_MutateCollapsesIntoOneDelta(t *testing.T) {
	g := testutil.GraphOf([]*plan.Node{testutil.Contract("contract:api-a", plan.ContractAPI, "A")})
	pc := NewPassContext(1, g)

	pc.Mutate(plan.PhaseHarden, "contract:api-a", func(n *plan.Node) bool { n.Stmt += " (AUTHZ)"; return true })
	pc.Mutate(plan.PhaseGate, "contract:api-a", func(n *plan.Node) bool { n.Versioning = "semver:minor"; return true })
	assert.False(t, pc.Mutate(plan.PhaseGate, "contract:api-a", func(*plan.Node) bool { return false }))
	assert.False(t, pc.Mutate(plan.PhaseGate, "contract:missing", func(*plan.Node) bool { return true }))

	require.Len(t, pc.Deltas, 1)
	d := pc.Deltas[0]
	assert.Equal(t, plan.OpUpdateNode, d.Op)
	assert.Equal(t, plan.PhaseHarden, d.Phase)
	assert.Equal(t, "A (AUTHZ)", d.Node.Stmt)
	assert.Equal(t, "semver:minor", d.Node.Versioning)

	orig, _ := g.Node("contract:api-a")
	assert.Equal(t, "A", orig.Stmt, "input graph untouched")
}

func TestPassContext_MutateAfterAddUpdatesSnapshot(t *testing.T) {
	pc := NewPassContext(1, plan.NewGraph())
	pc.AddNode(plan.PhaseSeed, testutil.Requirement("requirement:a", "A"))
	pc.Mutate(plan.PhaseSeed, "requirement:a", func(n *plan.Node) bool {
		n.Contracts = []string{"contract:api-a"}
		return true
	})
	require.Len(t, pc.Deltas, 1)
	assert.Equal(t, plan.OpAddNode, pc.Deltas[0].Op)
	assert.Equal(t, []string{"contract:api-a"}, pc.Deltas[0].Node.Contracts)
}

func TestPassContext_IndexSeesOverlay(t *testing.T) {
	pc := NewPassContext(1, testutil.GraphOf([]*plan.Node{testutil.Scenario("scenario:a", "A")}))
	assert.Empty(t, pc.Index().Children("scenario:a", plan.TypeRequirement))

	pc.AddNode(plan.PhaseSeed, testutil.Requirement("requirement:a", "A"))
	assert.True(t, pc.AddEdge(plan.PhaseSeed, plan.Edge{From: "scenario:a", To: "requirement:a", Type: plan.EdgeTracesTo}))
	assert.False(t, pc.AddEdge(plan.PhaseSeed, plan.Edge{From: "scenario:a", To: "requirement:a", Type: plan.EdgeTracesTo}))
	assert.Equal(t, []string{"requirement:a"}, pc.Index().Children("scenario:a", plan.TypeRequirement))

	b := pc.Batch()
	assert.Equal(t, map[plan.Op]int{plan.OpAddNode: 1, plan.OpAddEdge: 1}, b.Counts())
	assert.Equal(t, []string{"requirement:a"}, b.Changed)
}

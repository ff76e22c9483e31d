package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plangraph/internal/plan"
	"github.com/roach88/plangraph/internal/testutil"
)

func TestVerify_CompleteGraphPassesAll(t *testing.T) {
	v := Verify(testutil.CompleteGraph())
	assert.True(t, v.Proofs.AllPass(), "failing: %v details: %v", v.Proofs.Failing(), v.Details)
	assert.Len(t, v.Proofs, len(Invariants))
}

func TestVerify_EmptyGraph(t *testing.T) {
	v := Verify(plan.NewGraph())
	assert.Equal(t, []Invariant{P1, P10}, v.Proofs.Failing())
	assert.Contains(t, v.Details[P1], "Component")
}

func TestVerify_Coverage(t *testing.T) {
	g := testutil.CompleteGraph()
	g.PutNode(testutil.Scenario("scenario:lonely", "Lonely"))
	v := Verify(g)
	assert.False(t, v.Proofs[P2])
	assert.Contains(t, v.Details[P2], "1/2")

	th := DefaultThresholds()
	th.ScenarioCoverage = 0.5
	v = New(WithThresholds(th)).Verify(g)
	assert.True(t, v.Proofs[P2])
}

func TestVerify_DataLifecycle(t *testing.T) {
	g := testutil.CompleteGraph()
	g.Nodes["contract:data-core"].Stmt = "Data contract with schema and PII"
	v := Verify(g)
	assert.False(t, v.Proofs[P3])
	assert.Contains(t, v.Details[P3], "contract:data-core")
}

func TestVerify_Security(t *testing.T) {
	g := testutil.CompleteGraph()
	delete(g.Nodes["ix:core-api-create-fresh-under-ok"].Sec, "pii")
	assert.False(t, Verify(g).Proofs[P4])
}

func TestVerify_TestCoverage(t *testing.T) {
	t.Run("scenario without valid test", func(t *testing.T) {
		g := testutil.CompleteGraph()
		g.Nodes["test:core-acc"].Mocks = nil
		assert.False(t, Verify(g).Proofs[P5])
	})
	t.Run("ix without test block", func(t *testing.T) {
		g := testutil.CompleteGraph()
		g.Nodes["ix:core-api-create-fresh-under-ok"].Test = nil
		assert.False(t, Verify(g).Proofs[P5])
	})
	t.Run("test linked by edge only", func(t *testing.T) {
		g := testutil.CompleteGraph()
		g.Nodes["scenario:core"].Tests = nil
		g.AddEdge(plan.Edge{From: "test:core-acc", To: "scenario:core", Type: plan.EdgeTracesTo})
		assert.True(t, Verify(g).Proofs[P5])
	})
}

func TestVerify_Observability(t *testing.T) {
	g := testutil.CompleteGraph()
	g.Nodes["component:core"].Observability = nil
	assert.False(t, Verify(g).Proofs[P6])
}

func TestVerify_Rollout(t *testing.T) {
	g := testutil.CompleteGraph()
	g.Nodes["change:core"].RolloutFlag = ""
	v := Verify(g)
	assert.False(t, v.Proofs[P7])
	assert.Contains(t, v.Details[P7], "change:core")
}

func TestVerify_BlockedLeaves(t *testing.T) {
	g := testutil.CompleteGraph()
	ix := g.Nodes["ix:core-api-create-fresh-under-ok"]
	ix.Status = plan.StatusBlocked
	assert.False(t, Verify(g).Proofs[P8])

	q := testutil.N(plan.TypeOpenQuestion, "question:core", "Which quota tier?")
	g.PutNode(q)
	g.AddEdge(plan.Edge{From: q.ID, To: ix.ID, Type: plan.EdgeResolves})
	assert.True(t, Verify(g).Proofs[P8])
}

func TestVerify_Nonterminal(t *testing.T) {
	g := testutil.CompleteGraph()
	g.PutNode(testutil.ChangeSpec("change:extra", "Extra"))
	v := Verify(g)
	assert.False(t, v.Proofs[P9])
	assert.Contains(t, v.Details[P9], "change:extra")
}

func TestVerify_DomainCoverage(t *testing.T) {
	g := testutil.CompleteGraph()
	g.Nodes["scenario:core"].Stmt = "Users pay with payments"
	g.Nodes["requirement:core"].Stmt = "Requirement"
	v := Verify(g)
	assert.False(t, v.Proofs[P10])
	assert.Equal(t, []string{"users", "payments"}, plan.CoveredTopics(g))

	th := DefaultThresholds()
	th.DomainTopicFloor = 2
	assert.True(t, New(WithThresholds(th)).Verify(g).Proofs[P10])
}

func TestVerify_RetiredNodesAreNotSubjects(t *testing.T) {
	g := testutil.CompleteGraph()
	broken := testutil.Contract("contract:data-old", plan.ContractData, "nothing")
	broken.Status = plan.StatusRetired
	g.PutNode(broken)
	v := Verify(g)
	require.True(t, v.Proofs.AllPass(), "failing: %v", v.Proofs.Failing())
}

func TestVerify_OneSidedLinksCounted(t *testing.T) {
	g := testutil.CompleteGraph()
	assert.Greater(t, Verify(g).OneSidedLinks, 0)
}

package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/roach88/plangraph/internal/engine"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		sc, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(sc.Name, func(t *testing.T) {
			h := New(WithLogger(zaptest.NewLogger(t)))
			result, err := h.Run(context.Background(), sc)
			require.NoError(t, err)
			assert.True(t, result.Pass, "%s:\n%v", sc.Description, result.Errors)
			assert.Equal(t, RunID(sc), result.Report.RunID)
			if sc.Rerun {
				require.NotNil(t, result.Rerun)
				assert.Equal(t, "rerun-"+sc.Name, result.Rerun.RunID)
			}
		})
	}
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: wrong
description: "Every expectation is wrong"
expect:
  state: Converged
  iterations: 3
  deltas: 2
  failing: [P1]
  initial_gaps: { S0: 1 }
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), sc)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, engine.StateExhausted, result.Report.State)
	assert.Equal(t, []string{
		"state: expected Converged, got Exhausted",
		"iterations: expected 3, got 1",
		"deltas: expected 2, got 0",
		"failing: expected [P1], got [P1,P10]",
		"initial gap S0: expected 1, got 0",
	}, result.Errors)
}

func TestRun_RerunMustBeNoOp(t *testing.T) {
	// Topic Scenarios minted in pass 1 are only seeded in pass 2, so a
	// budget of 1 leaves work for the second run.
	sc, err := ParseScenario([]byte(`
name: unfinished
description: "A run cut short by its budget"
budget: 1
seed_topics: true
rerun: true
graph:
  nodes:
    - { id: "scenario:checkout", type: Scenario, stmt: "Checkout flow" }
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), sc)
	require.NoError(t, err)
	require.NotNil(t, result.Rerun)
	assert.Equal(t, engine.StateExhausted, result.Report.State)
	assert.NotEmpty(t, result.Rerun.DeltasApplied)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[len(result.Errors)-1], "rerun applied")
}

func TestRun_BadFixtureIsAnError(t *testing.T) {
	sc := &Scenario{
		Name:        "bad",
		Description: "bad",
		Graph:       GraphFixture{Nodes: []map[string]any{{"type": "Scenario"}}},
	}
	_, err := Run(context.Background(), sc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario bad")
}

func TestRun_CanceledContext(t *testing.T) {
	sc := &Scenario{Name: "canceled", Description: "canceled"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, sc)
	require.Error(t, err)
}

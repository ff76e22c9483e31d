package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plangraph/internal/plan"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yaml")
	content := `
name: billing
description: "Requirement without contracts"
budget: 3
rerun: true
graph:
  nodes:
    - { id: "requirement:billing", type: Requirement, stmt: "Billing", contracts: [] }
  edges:
    - { from: "change:billing", to: "requirement:billing", type: implements }
expect:
  state: Exhausted
  deltas: 0
  initial_gaps: { R0: 1 }
assertions:
  - type: node_exists
    ids: ["contract:api-billing"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	sc, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "billing", sc.Name)
	assert.Equal(t, 3, sc.Budget)
	assert.True(t, sc.Rerun)
	assert.Len(t, sc.Graph.Nodes, 1)
	assert.Equal(t, "requirement:billing", sc.Graph.Nodes[0]["id"])
	assert.Equal(t, []EdgeFixture{{From: "change:billing", To: "requirement:billing", Type: "implements"}}, sc.Graph.Edges)
	assert.Equal(t, "Exhausted", sc.Expect.State)
	require.NotNil(t, sc.Expect.Deltas)
	assert.Zero(t, *sc.Expect.Deltas)
	assert.Equal(t, map[string]int{"R0": 1}, sc.Expect.InitialGaps)
	require.Len(t, sc.Assertions, 1)
	assert.Equal(t, AssertNodeExists, sc.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"malformed yaml", "name: [", "failed to parse YAML"},
		{"unknown field", "name: a\ndescription: b\nassertion: []\n", "field assertion not found"},
		{"missing name", "description: b\n", "name is required"},
		{"name with space", "name: a b\ndescription: b\n", "must not contain spaces"},
		{"missing description", "name: a\n", "description is required"},
		{"negative budget", "name: a\ndescription: b\nbudget: -1\n", "budget must not be negative"},
		{"non-terminal state", "name: a\ndescription: b\nexpect: { state: Loading }\n", "not a terminal state"},
		{"unknown invariant", "name: a\ndescription: b\nexpect: { failing: [P11] }\n", "unknown invariant"},
		{"unknown gap class", "name: a\ndescription: b\nexpect: { initial_gaps: { X0: 1 } }\n", "unknown gap class"},
		{"unknown assertion", "name: a\ndescription: b\nassertions: [{ type: trace_order }]\n", "unknown assertion type"},
		{"node_exists without ids", "name: a\ndescription: b\nassertions: [{ type: node_exists }]\n", "requires ids"},
		{"bad node type", "name: a\ndescription: b\nassertions: [{ type: type_count, node_type: Widget }]\n", "unknown node_type"},
		{"stmt without id", "name: a\ndescription: b\nassertions: [{ type: stmt_equals, text: x }]\n", "requires id"},
		{"phase without id", "name: a\ndescription: b\nassertions: [{ type: added_in_phase, phase: A }]\n", "requires id and phase"},
		{"edge missing", "name: a\ndescription: b\nassertions: [{ type: edge_exists }]\n", "requires edge"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarios_Testdata(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	seen := make(map[string]bool)
	for _, sc := range scenarios {
		assert.False(t, seen[sc.Name], "duplicate scenario name %s", sc.Name)
		seen[sc.Name] = true
	}
	assert.True(t, seen["empty_graph"])
}

func TestNewStore_DecodesFixtureRecords(t *testing.T) {
	sc, err := ParseScenario([]byte(`
name: a
description: b
graph:
  nodes:
    - id: "ix:pay"
      type: InteractionSpec
      depends_on: ["change:pay"]
      sec: { authZ: "owner", least_priv: "own", pii: false }
    - { id: "change:pay", type: ChangeSpec, stmt: "Pay" }
  edges:
    - { from: "ix:pay", to: "change:pay", type: depends_on }
    - { from: "ix:pay", to: "change:pay", type: depends_on }
`))
	require.NoError(t, err)

	st, err := sc.NewStore(context.Background())
	require.NoError(t, err)
	defer st.Close()

	g, err := st.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, g.Warnings)
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)

	ix, ok := g.Node("ix:pay")
	require.True(t, ok)
	assert.Equal(t, []string{"change:pay"}, ix.DependsOn)
	assert.True(t, ix.SecurityComplete())
	assert.True(t, g.HasEdge(plan.Edge{From: "ix:pay", To: "change:pay", Type: plan.EdgeDependsOn}))
}

func TestNewStore_RejectsBadRecords(t *testing.T) {
	tests := []struct {
		name  string
		graph string
		want  string
	}{
		{"missing id", "nodes: [{ type: Scenario }]", "nodes[0]"},
		{"unknown type", "nodes: [{ id: \"x:a\", type: Widget }]", "unknown type"},
		{"unknown status", "nodes: [{ id: \"scenario:a\", type: Scenario, status: Paused }]", "unknown status"},
		{"bad edge type", "edges: [{ from: a, to: b, type: owns }]", "edges[0]"},
		{"edge without endpoint", "edges: [{ from: a, type: depends_on }]", "edges[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := ParseScenario([]byte("name: a\ndescription: b\ngraph:\n  " + tt.graph + "\n"))
			require.NoError(t, err)
			_, err = sc.NewStore(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// Package storetest is a conformance suite every store backend runs.
package storetest

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plangraph/internal/plan"
	"github.com/roach88/plangraph/internal/store"
)

// Factory opens stores for the suite.
type Factory struct {
	// Open opens a store rooted at dir. The suite closes what it opens.
	Open func(t *testing.T, dir string) store.Store

	// Persistent backends are reopened over the same dir to check that
	// data survives Close.
	Persistent bool
}

// Run executes the suite.
func Run(t *testing.T, f Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, f Factory)
	}{
		{"EmptyStore", testEmptyStore},
		{"NodeRoundTrip", testNodeRoundTrip},
		{"SaveNodeReplaces", testSaveNodeReplaces},
		{"AppendEdgeIdempotent", testAppendEdgeIdempotent},
		{"EdgeOrderPreserved", testEdgeOrderPreserved},
		{"DanglingEdgesLoad", testDanglingEdgesLoad},
		{"InvalidEdgeRejected", testInvalidEdgeRejected},
		{"DistinctIDsNeverCollide", testDistinctIDsNeverCollide},
		{"LoadSeesLaterWrites", testLoadSeesLaterWrites},
		{"LoadReturnsCopies", testLoadReturnsCopies},
		{"Manifest", testManifest},
		{"Reopen", testReopen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, f)
		})
	}
}

func open(t *testing.T, f Factory, dir string) store.Store {
	t.Helper()
	s := f.Open(t, dir)
	t.Cleanup(func() { s.Close() })
	return s
}

func load(t *testing.T, s store.Store) *plan.Graph {
	t.Helper()
	g, err := s.Load(context.Background())
	require.NoError(t, err)
	return g
}

// SampleNode returns a node exercising typed fields, nested blocks and
// unknown attributes.
func SampleNode() *plan.Node {
	n := &plan.Node{
		ID:        "ix:checkout-api-create-fresh-under-ok",
		Type:      plan.TypeInteractionSpec,
		Stmt:      "Create <order> & pay",
		Status:    plan.StatusOpen,
		DependsOn: []string{"contract:api-checkout", "change:checkout"},
		Sec:       plan.Block{},
		Obs:       plan.Block{},
		Extra: map[string]json.RawMessage{
			"owner":      json.RawMessage(`"payments-team"`),
			"state":      json.RawMessage(`{"token":"fresh","quota":"under"}`),
			"x_priority": json.RawMessage(`[1,2,{"deep":null}]`),
		},
	}
	n.Sec.Set("authZ", "owner")
	n.Sec.Set("least_priv", "own orders")
	n.Sec.Set("pii", true)
	n.Sec.Set("x_reviewer", "sec-team")
	n.Obs.Set("logs", []string{"start"})
	n.Obs.Set("metrics", []string{"orders_total"})
	n.Obs.Set("span", "api.create")
	return n
}

// AssertSameNode compares two nodes by their compact encoding, which
// ignores whitespace inside raw attribute values.
func AssertSameNode(t *testing.T, want, got *plan.Node) {
	t.Helper()
	require.NotNil(t, got)
	w, err := store.EncodeNode(want)
	require.NoError(t, err)
	g, err := store.EncodeNode(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(w), string(g))
}

func testEmptyStore(t *testing.T, f Factory) {
	s := open(t, f, t.TempDir())
	g := load(t, s)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
	assert.Empty(t, g.Warnings)

	m, err := s.ReadManifest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, m.Version())
}

func testNodeRoundTrip(t *testing.T, f Factory) {
	s := open(t, f, t.TempDir())
	want := SampleNode()
	require.NoError(t, s.SaveNode(context.Background(), want))

	g := load(t, s)
	got, ok := g.Node(want.ID)
	require.True(t, ok)
	AssertSameNode(t, want, got)
	assert.Equal(t, "Create <order> & pay", got.Stmt)
	assert.JSONEq(t, `"sec-team"`, string(got.Sec["x_reviewer"]))
	assert.Empty(t, g.Warnings)
}

func testSaveNodeReplaces(t *testing.T, f Factory) {
	s := open(t, f, t.TempDir())
	ctx := context.Background()
	n := &plan.Node{ID: "contract:api-a", Type: plan.TypeContract, Stmt: "v1", ContractType: plan.ContractAPI}
	require.NoError(t, s.SaveNode(ctx, n))
	n2 := n.Clone()
	n2.Stmt = "v2"
	n2.Versioning = "semver:minor"
	require.NoError(t, s.SaveNode(ctx, n2))

	g := load(t, s)
	require.Len(t, g.Nodes, 1)
	got, _ := g.Node("contract:api-a")
	assert.Equal(t, "v2", got.Stmt)
	assert.Equal(t, "semver:minor", got.Versioning)
}

func testAppendEdgeIdempotent(t *testing.T, f Factory) {
	s := open(t, f, t.TempDir())
	ctx := context.Background()
	e := plan.Edge{From: "scenario:a", To: "requirement:a", Type: plan.EdgeTracesTo}

	ok, err := s.AppendEdge(ctx, e)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.AppendEdge(ctx, e)
	require.NoError(t, err)
	assert.False(t, ok)

	other := e
	other.Type = plan.EdgeDependsOn
	ok, err = s.AppendEdge(ctx, other)
	require.NoError(t, err)
	assert.True(t, ok, "a different type is a different edge")

	assert.Equal(t, []plan.Edge{e, other}, load(t, s).Edges)
}

func testEdgeOrderPreserved(t *testing.T, f Factory) {
	s := open(t, f, t.TempDir())
	edges := []plan.Edge{
		{From: "z:1", To: "a:1", Type: plan.EdgeTracesTo},
		{From: "a:1", To: "z:1", Type: plan.EdgeImplements},
		{From: "m:1", To: "m:2", Type: plan.EdgeResolves},
	}
	for _, e := range edges {
		_, err := s.AppendEdge(context.Background(), e)
		require.NoError(t, err)
	}
	assert.Equal(t, edges, load(t, s).Edges)
}

func testDanglingEdgesLoad(t *testing.T, f Factory) {
	s := open(t, f, t.TempDir())
	e := plan.Edge{From: "change:gone", To: "requirement:gone", Type: plan.EdgeImplements}
	_, err := s.AppendEdge(context.Background(), e)
	require.NoError(t, err)

	g := load(t, s)
	assert.Equal(t, []plan.Edge{e}, g.Edges)
	assert.Empty(t, g.Warnings)
}

func testInvalidEdgeRejected(t *testing.T, f Factory) {
	s := open(t, f, t.TempDir())
	_, err := s.AppendEdge(context.Background(), plan.Edge{From: "a:1", To: "b:1", Type: "blocks"})
	assert.Error(t, err)
	_, err = s.AppendEdge(context.Background(), plan.Edge{From: "a:1", Type: plan.EdgeTracesTo})
	assert.Error(t, err)
	assert.Empty(t, load(t, s).Edges)
}

func testDistinctIDsNeverCollide(t *testing.T, f Factory) {
	s := open(t, f, t.TempDir())
	long := strings.Repeat("x", 300)
	ids := []string{
		"scenario:a/b",
		"scenario:a_b",
		"scenario:A/B",
		"scenario:a~2Fb",
		"scenario:..",
		"scenario:" + long + "1",
		"scenario:" + long + "2",
	}
	for _, id := range ids {
		require.NoError(t, s.SaveNode(context.Background(), &plan.Node{ID: id, Type: plan.TypeScenario, Stmt: id}))
	}

	g := load(t, s)
	require.Len(t, g.Nodes, len(ids))
	for _, id := range ids {
		n, ok := g.Node(id)
		require.True(t, ok, id)
		assert.Equal(t, id, n.Stmt)
	}
}

func testLoadSeesLaterWrites(t *testing.T, f Factory) {
	s := open(t, f, t.TempDir())
	ctx := context.Background()
	require.NoError(t, s.SaveNode(ctx, &plan.Node{ID: "scenario:a", Type: plan.TypeScenario}))
	assert.Len(t, load(t, s).Nodes, 1)

	require.NoError(t, s.SaveNode(ctx, &plan.Node{ID: "scenario:b", Type: plan.TypeScenario}))
	_, err := s.AppendEdge(ctx, plan.Edge{From: "scenario:a", To: "scenario:b", Type: plan.EdgeTracesTo})
	require.NoError(t, err)
	g := load(t, s)
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)
}

func testLoadReturnsCopies(t *testing.T, f Factory) {
	s := open(t, f, t.TempDir())
	require.NoError(t, s.SaveNode(context.Background(), &plan.Node{ID: "scenario:a", Type: plan.TypeScenario, Stmt: "A"}))

	g := load(t, s)
	n, _ := g.Node("scenario:a")
	n.Stmt = "mutated"

	again, _ := load(t, s).Node("scenario:a")
	assert.Equal(t, "A", again.Stmt)
}

func testManifest(t *testing.T, f Factory) {
	s := open(t, f, t.TempDir())
	ctx := context.Background()
	m := store.Manifest{
		PlanVersion: "v3",
		Stats:       store.Stats{Nodes: 8, Edges: 3, Ready: 1, Blocked: 2},
		Hotset:      []string{"scenario:a", "test:a-acc"},
		RunID:       "run-1",
	}
	require.NoError(t, s.WriteManifest(ctx, m))

	got, err := s.ReadManifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, m, got)
	assert.Equal(t, 3, got.Version())
}

func testReopen(t *testing.T, f Factory) {
	if !f.Persistent {
		t.Skip("backend is not persistent")
	}
	dir := t.TempDir()
	ctx := context.Background()

	s := f.Open(t, dir)
	require.NoError(t, s.SaveNode(ctx, SampleNode()))
	_, err := s.AppendEdge(ctx, plan.Edge{From: "scenario:a", To: "requirement:a", Type: plan.EdgeTracesTo})
	require.NoError(t, err)
	require.NoError(t, s.WriteManifest(ctx, store.Manifest{PlanVersion: "v1"}))
	require.NoError(t, s.Close())

	s2 := open(t, f, dir)
	g := load(t, s2)
	got, ok := g.Node(SampleNode().ID)
	require.True(t, ok)
	AssertSameNode(t, SampleNode(), got)
	assert.Len(t, g.Edges, 1)

	m, err := s2.ReadManifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1", m.PlanVersion)

	ok, err = s2.AppendEdge(ctx, plan.Edge{From: "scenario:a", To: "requirement:a", Type: plan.EdgeTracesTo})
	require.NoError(t, err)
	assert.False(t, ok, "edges appended before reopen still dedupe")
}

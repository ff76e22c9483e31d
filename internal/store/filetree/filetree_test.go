package filetree

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plangraph/internal/plan"
	"github.com/roach88/plangraph/internal/store"
	"github.com/roach88/plangraph/internal/store/storetest"
)

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(dir)
	require.NoError(t, err)
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, storetest.Factory{
		Open:       func(t *testing.T, dir string) store.Store { return openStore(t, dir) },
		Persistent: true,
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_MalformedRecordsBecomeWarnings(t *testing.T) {
	dir := t.TempDir()
	nodes := filepath.Join(dir, NodesDir)
	writeFile(t, filepath.Join(nodes, "Scenario", "good.json"), `{"id":"scenario:good","type":"Scenario","stmt":"ok"}`)
	writeFile(t, filepath.Join(nodes, "Scenario", "broken.json"), `{"id":`)
	writeFile(t, filepath.Join(nodes, "Scenario", "noid.json"), `{"type":"Scenario"}`)
	writeFile(t, filepath.Join(nodes, "Widget", "w.json"), `{"id":"widget:1","type":"Widget"}`)
	writeFile(t, filepath.Join(nodes, "Scenario", "odd.json"), `{"id":"scenario:odd","type":"Scenario","status":"Paused"}`)
	writeFile(t, filepath.Join(nodes, "Scenario", "notes.txt"), `ignored`)
	writeFile(t, filepath.Join(dir, EdgesFile), strings.Join([]string{
		`{"from":"scenario:good","to":"requirement:x","type":"traces_to"}`,
		`not json`,
		`{"from":"scenario:good","to":"requirement:x","type":"blocks"}`,
		``,
		`{"from":"","to":"requirement:x","type":"traces_to"}`,
		`{"from":"scenario:good","to":"requirement:x","type":"traces_to"}`,
	}, "\n")+"\n")

	g, err := openStore(t, dir).Load(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"scenario:good", "scenario:odd"}, g.IDs())
	odd, _ := g.Node("scenario:odd")
	assert.Equal(t, plan.Status("Paused"), odd.Status)
	assert.Equal(t, []plan.Edge{{From: "scenario:good", To: "requirement:x", Type: plan.EdgeTracesTo}}, g.Edges)

	sources := make([]string, 0, len(g.Warnings))
	for _, w := range g.Warnings {
		sources = append(sources, w.Source)
	}
	assert.ElementsMatch(t, []string{
		"nodes/Scenario/broken.json",
		"nodes/Scenario/noid.json",
		"nodes/Scenario/odd.json",
		"nodes/Widget/w.json",
		"edges.ndjson:2",
		"edges.ndjson:3",
		"edges.ndjson:5",
	}, sources)
}

func TestSaveNode_WritesCanonicalPath(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	n := &plan.Node{ID: "scenario:Sign In", Type: plan.TypeScenario, Stmt: "Sign in"}
	require.NoError(t, s.SaveNode(context.Background(), n))

	path := filepath.Join(dir, NodesDir, "Scenario", "scenario~3A~53ign~20~49n.json")
	assert.Equal(t, path, s.NodePath(n))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "}\n"))
	assert.Contains(t, string(data), "\n  \"id\": \"scenario:Sign In\"")
}

func TestSaveNode_RewritesLoadedFileInPlace(t *testing.T) {
	dir := t.TempDir()
	legacy := filepath.Join(dir, NodesDir, "Scenario", "scenario_core.json")
	writeFile(t, legacy, `{"id":"scenario:core","type":"Scenario","stmt":"Core","x_custom":{"keep":true}}`)

	s := openStore(t, dir)
	g, err := s.Load(context.Background())
	require.NoError(t, err)
	n, _ := g.Node("scenario:core")
	n.Tests = []string{"test:core-acc"}
	require.NoError(t, s.SaveNode(context.Background(), n))

	entries, err := os.ReadDir(filepath.Dir(legacy))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	data, err := os.ReadFile(legacy)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"test:core-acc"`)
	assert.Contains(t, string(data), `"keep": true`)
}

func TestLoad_DuplicateIDKeepsFirst(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, NodesDir, "Scenario", "a.json"), `{"id":"scenario:x","type":"Scenario","stmt":"first"}`)
	writeFile(t, filepath.Join(dir, NodesDir, "Scenario", "b.json"), `{"id":"scenario:x","type":"Scenario","stmt":"second"}`)

	g, err := openStore(t, dir).Load(context.Background())
	require.NoError(t, err)
	n, _ := g.Node("scenario:x")
	assert.Equal(t, "first", n.Stmt)
	require.Len(t, g.Warnings, 1)
	assert.Equal(t, "nodes/Scenario/b.json", g.Warnings[0].Source)
}

func TestAppendEdge_SeesExternalAppends(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	_, err := s.Load(context.Background())
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, EdgesFile), `{"from":"a:1","to":"b:1","type":"traces_to"}`+"\n")
	ok, err := s.AppendEdge(context.Background(), plan.Edge{From: "a:1", To: "b:1", Type: plan.EdgeTracesTo})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAppendEdge_TerminatesPartialLastRecord(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, EdgesFile), `{"from":"scenario:a","to":"requirement:a","type":"traces_to"}`)
	s := openStore(t, dir)

	ok, err := s.AppendEdge(context.Background(), plan.Edge{From: "change:a", To: "requirement:a", Type: plan.EdgeImplements})
	require.NoError(t, err)
	assert.True(t, ok)

	g, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, g.Warnings)
	assert.Len(t, g.Edges, 2)
	assert.True(t, g.HasEdge(plan.Edge{From: "scenario:a", To: "requirement:a", Type: plan.EdgeTracesTo}))
	assert.True(t, g.HasEdge(plan.Edge{From: "change:a", To: "requirement:a", Type: plan.EdgeImplements}))
}

func TestLoad_OverlongEdgeLineIsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, EdgesFile), strings.Join([]string{
		strings.Repeat("x", 2<<20),
		`{"from":"scenario:a","to":"requirement:a","type":"traces_to"}`,
	}, "\n"))
	s := openStore(t, dir)

	g, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, g.Edges, 1)
	require.Len(t, g.Warnings, 1)
	assert.Equal(t, "edges.ndjson:1", g.Warnings[0].Source)

	ok, err := s.AppendEdge(context.Background(), plan.Edge{From: "scenario:a", To: "requirement:a", Type: plan.EdgeTracesTo})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteManifest_File(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	require.NoError(t, s.WriteManifest(context.Background(), store.Manifest{PlanVersion: "v2", Hotset: []string{"scenario:a"}}))

	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"plan_version": "v2"`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "temp file left behind: %s", e.Name())
	}
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Open(file)
	assert.Error(t, err)
}

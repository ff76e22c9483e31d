package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plangraph/internal/testutil"
)

func TestReplay_ReproducesRepair(t *testing.T) {
	source := seededTree(t, testutil.AllTopicsStmt)
	target := seededTree(t, testutil.AllTopicsStmt)
	reportPath := filepath.Join(t.TempDir(), "report.json")

	_, err := execute(t, NewRepairCommand(&RootOptions{Format: "text"}), "--report", reportPath, source)
	require.NoError(t, err)
	report, err := readReport(reportPath)
	require.NoError(t, err)

	out, err := execute(t, NewReplayCommand(&RootOptions{Format: "text"}), target, reportPath)
	require.NoError(t, err)
	assert.Contains(t, out, "0 already present")

	want, got := loadTree(t, source), loadTree(t, target)
	assert.Equal(t, want.IDs(), got.IDs())
	assert.ElementsMatch(t, want.Edges, got.Edges)

	out, err = execute(t, NewReplayCommand(&RootOptions{Format: "text"}), target, reportPath)
	require.NoError(t, err)
	assert.Contains(t, out, "0 applied")
	assert.Contains(t, out, report.RunID)

	_, err = execute(t, NewVerifyCommand(&RootOptions{Format: "text"}), target)
	assert.NoError(t, err)
}

func TestReplay_BadReport(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o644))

	out, err := execute(t, NewReplayCommand(&RootOptions{Format: "text"}), dir, bad)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "E006")

	_, err = execute(t, NewReplayCommand(&RootOptions{Format: "text"}), dir, filepath.Join(dir, "missing.json"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plangraph/internal/testutil"
)

func TestAnalyze_ListsGapsWithoutWriting(t *testing.T) {
	dir := seededTree(t, "Checkout flow")

	out, err := execute(t, NewAnalyzeCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "S0        1\n  scenario:core\n")
	assert.Contains(t, out, "IX_orphan 0")
	assert.Len(t, loadTree(t, dir).Nodes, 1)
}

func TestAnalyze_JSON(t *testing.T) {
	dir := seededTree(t, "Checkout flow")

	out, err := execute(t, NewAnalyzeCommand(&RootOptions{Format: "json"}), dir)
	require.NoError(t, err)

	var resp struct {
		Data GapReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"scenario:core"}, resp.Data.Gaps.S0)
	assert.Equal(t, 1, resp.Data.Sizes["S0"])
}

func TestAnalyze_ReportsLoadWarnings(t *testing.T) {
	dir := seededTree(t, "Checkout flow")
	bad := filepath.Join(dir, "nodes", "Scenario", "broken.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))

	out, err := execute(t, NewAnalyzeCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Warnings:")
	assert.Contains(t, out, "broken.json")
}

func TestVerify_ExitCodes(t *testing.T) {
	dir := seededTree(t, testutil.AllTopicsStmt)

	out, err := execute(t, NewVerifyCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "[FAIL] P1  topology")

	_, err = execute(t, NewRepairCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)

	out, err = execute(t, NewVerifyCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.NotContains(t, out, "FAIL")
}

func TestVerify_MissingLocation(t *testing.T) {
	_, err := execute(t, NewVerifyCommand(&RootOptions{Format: "text"}), filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

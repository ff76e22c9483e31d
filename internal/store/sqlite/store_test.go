package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/plangraph/internal/plan"
	"github.com/roach88/plangraph/internal/store"
	"github.com/roach88/plangraph/internal/store/storetest"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "plan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, storetest.Factory{
		Open: func(t *testing.T, dir string) store.Store {
			s, err := Open(filepath.Join(dir, "plan.db"))
			require.NoError(t, err)
			return s
		},
		Persistent: true,
	})
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))

	v, err := s.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.db")
	for i := 0; i < 2; i++ {
		s, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestLoad_MalformedRowsBecomeWarnings(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, err := s.DB().ExecContext(ctx, `INSERT INTO nodes (id, type, body) VALUES
		('scenario:ok', 'Scenario', '{"id":"scenario:ok","type":"Scenario"}'),
		('scenario:bad', 'Scenario', '{oops'),
		('gizmo:1', 'Gizmo', '{"id":"gizmo:1","type":"Gizmo"}')`)
	require.NoError(t, err)
	_, err = s.DB().ExecContext(ctx, `INSERT INTO edges (from_id, to_id, type) VALUES
		('scenario:ok', 'requirement:x', 'traces_to'),
		('scenario:ok', 'requirement:x', 'blocks')`)
	require.NoError(t, err)

	g, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"scenario:ok"}, g.IDs())
	assert.Len(t, g.Edges, 1)
	assert.Len(t, g.Warnings, 3)
}

func TestSaveNode_TypeColumnTracksBody(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveNode(ctx, &plan.Node{ID: "contract:api-a", Type: plan.TypeContract}))

	var typ string
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT type FROM nodes WHERE id = ?`, "contract:api-a").Scan(&typ))
	assert.Equal(t, "Contract", typ)
}

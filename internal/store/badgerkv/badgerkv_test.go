package badgerkv

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/roach88/plangraph/internal/plan"
	"github.com/roach88/plangraph/internal/store"
	"github.com/roach88/plangraph/internal/store/storetest"
)

func TestConformance_InMemory(t *testing.T) {
	storetest.Run(t, storetest.Factory{
		Open: func(t *testing.T, _ string) store.Store {
			s, err := Open(InMemoryConfig())
			require.NoError(t, err)
			return s
		},
	})
}

func TestConformance_OnDisk(t *testing.T) {
	storetest.Run(t, storetest.Factory{
		Open: func(t *testing.T, dir string) store.Store {
			cfg := DefaultConfig(dir)
			cfg.SyncWrites = false
			s, err := Open(cfg)
			require.NoError(t, err)
			return s
		},
		Persistent: true,
	})
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestOpen_WithLogger(t *testing.T) {
	cfg := InMemoryConfig()
	cfg.Logger = zaptest.NewLogger(t)
	s, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestLoad_MalformedEntriesBecomeWarnings(t *testing.T) {
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte("node/broken"), []byte("{")); err != nil {
			return err
		}
		return txn.Set([]byte("edge/bogus"), []byte("not json"))
	}))
	require.NoError(t, s.SaveNode(context.Background(), &plan.Node{ID: "scenario:a", Type: plan.TypeScenario}))

	g, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"scenario:a"}, g.IDs())
	assert.Len(t, g.Warnings, 2)
}

func TestAppendEdge_SequenceSurvivesDuplicates(t *testing.T) {
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	a := plan.Edge{From: "a:1", To: "b:1", Type: plan.EdgeTracesTo}
	b := plan.Edge{From: "a:0", To: "b:0", Type: plan.EdgeTracesTo}
	for _, e := range []plan.Edge{a, a, b, a} {
		_, err := s.AppendEdge(ctx, e)
		require.NoError(t, err)
	}
	g, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []plan.Edge{a, b}, g.Edges)
}

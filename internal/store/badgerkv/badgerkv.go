// Package badgerkv stores a plan graph in an embedded BadgerDB.
//
// Key space:
//
//	node/<storage-key>        node JSON
//	edge/<sha256(triple)>     edgeRecord JSON, carrying an append sequence
//	meta/edge-seq             last edge sequence number, big-endian uint64
//	meta/manifest             manifest JSON
//
// Edges are keyed by hash so a duplicate triple maps to the same key; the
// sequence number restores append order on load.
package badgerkv

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/roach88/plangraph/internal/plan"
	"github.com/roach88/plangraph/internal/store"
)

var (
	nodePrefix  = []byte("node/")
	edgePrefix  = []byte("edge/")
	edgeSeqKey  = []byte("meta/edge-seq")
	manifestKey = []byte("meta/manifest")
)

// Config holds configuration for a Badger-backed store.
type Config struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Useful for tests.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Logger receives Badger's internal log lines and store events. Nil
	// disables both.
	Logger *zap.Logger
}

// DefaultConfig returns the configuration for an on-disk store at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts zap to Badger's Logger interface.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.s.Errorf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.s.Warnf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.s.Debugf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.s.Debugf(format, args...)
}

// Store is a Badger-backed plan graph store.
type Store struct {
	db     *badger.DB
	logger *zap.Logger
}

// Open opens the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badgerkv: path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("badgerkv: create %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	logger := cfg.Logger
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{s: logger.Named("badger").Sugar()})
	} else {
		logger = zap.NewNop()
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerkv: open: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// edgeRecord is the stored form of an edge.
type edgeRecord struct {
	Seq uint64 `json:"seq"`
	plan.Edge
}

func nodeKey(id string) []byte {
	return append(append([]byte(nil), nodePrefix...), plan.StorageKey(id)...)
}

func edgeKey(e plan.Edge) []byte {
	return append(append([]byte(nil), edgePrefix...), plan.EdgeKey(e)...)
}

// Load reads every node and edge in one read transaction.
func (s *Store) Load(ctx context.Context) (*plan.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := store.NewBuilder()
	var edges []edgeRecord

	err := s.db.View(func(txn *badger.Txn) error {
		if err := scanPrefix(txn, nodePrefix, func(key, val []byte) error {
			b.Node(string(key), val)
			return nil
		}); err != nil {
			return err
		}
		return scanPrefix(txn, edgePrefix, func(key, val []byte) error {
			var rec edgeRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				b.Edge(string(key), val)
				return nil
			}
			edges = append(edges, rec)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("badgerkv: load: %w", err)
	}

	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Seq < edges[j].Seq })
	for _, rec := range edges {
		b.TypedEdge(fmt.Sprintf("edge/%d", rec.Seq), rec.Edge)
	}

	g := b.Graph()
	s.logger.Debug("graph loaded",
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", len(g.Edges)),
		zap.Int("warnings", len(g.Warnings)),
	)
	return g, nil
}

func scanPrefix(txn *badger.Txn, prefix []byte, fn func(key, val []byte) error) error {
	it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 100, Prefix: prefix})
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(item.KeyCopy(nil), val); err != nil {
			return err
		}
	}
	return nil
}

// SaveNode writes n under its storage key.
func (s *Store) SaveNode(ctx context.Context, n *plan.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := store.EncodeNode(n)
	if err != nil {
		return fmt.Errorf("badgerkv: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(nodeKey(n.ID), body)
	}); err != nil {
		return fmt.Errorf("badgerkv: save node %s: %w", n.ID, err)
	}
	return nil
}

// AppendEdge stores e with the next sequence number unless its key is
// already present. A concurrent writer racing on the same key makes the
// commit fail with a conflict, which is retried once.
func (s *Store) AppendEdge(ctx context.Context, e plan.Edge) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, fmt.Errorf("badgerkv: %w", err)
	}
	var appended bool
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if err = ctx.Err(); err != nil {
			return false, err
		}
		appended, err = s.appendEdge(e)
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return false, fmt.Errorf("badgerkv: append edge %s: %w", e, err)
	}
	return appended, nil
}

func (s *Store) appendEdge(e plan.Edge) (bool, error) {
	key := edgeKey(e)
	appended := false
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		var seq uint64
		item, err := txn.Get(edgeSeqKey)
		switch {
		case err == nil:
			if err := item.Value(func(v []byte) error {
				if len(v) == 8 {
					seq = binary.BigEndian.Uint64(v)
				}
				return nil
			}); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		seq++

		val, err := json.Marshal(edgeRecord{Seq: seq, Edge: e})
		if err != nil {
			return err
		}
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], seq)
		if err := txn.Set(edgeSeqKey, buf[:]); err != nil {
			return err
		}
		if err := txn.Set(key, val); err != nil {
			return err
		}
		appended = true
		return nil
	})
	return appended, err
}

// ReadManifest reads meta/manifest.
func (s *Store) ReadManifest(ctx context.Context) (store.Manifest, error) {
	var m store.Manifest
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(manifestKey)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &m)
		})
	})
	if err != nil {
		return store.Manifest{}, fmt.Errorf("badgerkv: read manifest: %w", err)
	}
	return m, nil
}

// WriteManifest replaces meta/manifest.
func (s *Store) WriteManifest(ctx context.Context, m store.Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("badgerkv: encode manifest: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(manifestKey, data)
	}); err != nil {
		return fmt.Errorf("badgerkv: write manifest: %w", err)
	}
	return nil
}

var _ store.Store = (*Store)(nil)

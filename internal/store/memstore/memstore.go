// Package memstore is an in-process Store. Nodes are held encoded, so every
// Load returns fresh copies and callers cannot alias stored state.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/plangraph/internal/plan"
	"github.com/roach88/plangraph/internal/store"
)

var errClosed = errors.New("memstore: store is closed")

// Store keeps a plan graph in memory. It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	nodes    map[string][]byte
	edges    []plan.Edge
	edgeSet  map[plan.Edge]struct{}
	manifest store.Manifest
	closed   bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		nodes:   make(map[string][]byte),
		edgeSet: make(map[plan.Edge]struct{}),
	}
}

// FromGraph returns a store holding a copy of g.
func FromGraph(g *plan.Graph) (*Store, error) {
	s := New()
	ctx := context.Background()
	for _, id := range g.IDs() {
		n, _ := g.Node(id)
		if err := s.SaveNode(ctx, n); err != nil {
			return nil, err
		}
	}
	for _, e := range g.Edges {
		if _, err := s.AppendEdge(ctx, e); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// PutRaw stores an arbitrary record under key, bypassing validation. Tests
// use it to plant malformed records.
func (s *Store) PutRaw(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[key] = append([]byte(nil), data...)
}

// Load decodes every stored record.
func (s *Store) Load(ctx context.Context) (*plan.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed
	}

	keys := make([]string, 0, len(s.nodes))
	for k := range s.nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := store.NewBuilder()
	for _, k := range keys {
		b.Node(k, s.nodes[k])
	}
	for i, e := range s.edges {
		b.TypedEdge(edgeSource(i), e)
	}
	return b.Graph(), nil
}

// SaveNode stores an encoded copy of n.
func (s *Store) SaveNode(ctx context.Context, n *plan.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := store.EncodeNode(n)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	s.nodes[n.ID] = data
	return nil
}

// AppendEdge records e unless the triple is present.
func (s *Store) AppendEdge(ctx context.Context, e plan.Edge) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := e.Validate(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, errClosed
	}
	if _, ok := s.edgeSet[e]; ok {
		return false, nil
	}
	s.edgeSet[e] = struct{}{}
	s.edges = append(s.edges, e)
	return true, nil
}

// ReadManifest returns the last written manifest.
func (s *Store) ReadManifest(ctx context.Context) (store.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.manifest
	m.Hotset = append([]string(nil), m.Hotset...)
	return m, nil
}

// WriteManifest replaces the manifest.
func (s *Store) WriteManifest(ctx context.Context, m store.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.Hotset = append([]string(nil), m.Hotset...)
	s.manifest = m
	return nil
}

// Close marks the store closed; later calls fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func edgeSource(i int) string {
	return fmt.Sprintf("edges/%d", i+1)
}

var _ store.Store = (*Store)(nil)

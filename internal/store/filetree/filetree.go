// Package filetree stores a plan graph as a directory tree:
//
//	<root>/nodes/<Type>/<storage-key>.json   one node per file
//	<root>/edges.ndjson                      append-only edge log
//	<root>/manifest.json                     run summary
//
// Node files are written to a temporary file and renamed into place, so a
// reader never sees a half-written node. Edges are appended one line at a
// time with O_APPEND; an unterminated last record left by another writer is
// closed with a newline first.
package filetree

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/roach88/plangraph/internal/plan"
	"github.com/roach88/plangraph/internal/store"
)

const (
	NodesDir     = "nodes"
	EdgesFile    = "edges.ndjson"
	ManifestFile = "manifest.json"
)

// Store is a directory-backed plan graph store.
type Store struct {
	root   string
	logger *zap.Logger

	mu sync.Mutex
	// paths remembers the file each loaded node came from so an update
	// rewrites that file instead of creating a second one under the
	// canonical name.
	paths map[string]string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Open opens the graph directory at root, creating it if needed.
func Open(root string, opts ...Option) (*Store, error) {
	if root == "" {
		return nil, errors.New("filetree: root directory is required")
	}
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		return nil, fmt.Errorf("filetree: %s is not a directory", root)
	}
	if err := os.MkdirAll(filepath.Join(root, NodesDir), 0o755); err != nil {
		return nil, fmt.Errorf("filetree: create %s: %w", root, err)
	}
	s := &Store{root: root, paths: make(map[string]string)}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s, nil
}

// Root returns the graph directory.
func (s *Store) Root() string {
	return s.root
}

// Close is a no-op; files are closed after every operation.
func (s *Store) Close() error {
	return nil
}

// NodePath returns the canonical file for a node.
func (s *Store) NodePath(n *plan.Node) string {
	return filepath.Join(s.root, NodesDir, string(n.Type), plan.StorageKey(n.ID)+".json")
}

// Load reads every node file and the edge log.
func (s *Store) Load(ctx context.Context) (*plan.Graph, error) {
	b := store.NewBuilder()
	paths := make(map[string]string)

	files, err := s.nodeFiles()
	if err != nil {
		return nil, err
	}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("filetree: read %s: %w", path, err)
		}
		if n := b.Node(s.rel(path), data); n != nil {
			paths[n.ID] = path
		}
	}

	if err := s.readEdges(b); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.paths = paths
	s.mu.Unlock()

	g := b.Graph()
	s.logger.Debug("graph loaded",
		zap.String("root", s.root),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", len(g.Edges)),
		zap.Int("warnings", len(g.Warnings)),
	)
	return g, nil
}

// nodeFiles lists nodes/*/*.json in lexical order.
func (s *Store) nodeFiles() ([]string, error) {
	var files []string
	dir := filepath.Join(s.root, NodesDir)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("filetree: list nodes: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func (s *Store) readEdges(b *store.Builder) error {
	f, err := os.Open(filepath.Join(s.root, EdgesFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("filetree: open edges: %w", err)
	}
	defer f.Close()

	err = eachLine(f, func(n int, raw []byte) bool {
		b.Edge(fmt.Sprintf("%s:%d", EdgesFile, n), raw)
		return true
	})
	if err != nil {
		return fmt.Errorf("filetree: read edges: %w", err)
	}
	return nil
}

// eachLine calls fn with every non-blank line of r, numbered from 1, until
// fn returns false. Lines have no length limit; an over-long record is
// handed to fn like any other and rejected by the decoder.
func eachLine(r io.Reader, fn func(n int, raw []byte) bool) error {
	br := bufio.NewReader(r)
	for n := 1; ; n++ {
		line, err := br.ReadBytes('\n')
		if raw := bytes.TrimSpace(line); len(raw) > 0 {
			if !fn(n, raw) {
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// SaveNode writes n to its file atomically.
func (s *Store) SaveNode(ctx context.Context, n *plan.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := store.EncodeNodeIndent(n)
	if err != nil {
		return fmt.Errorf("filetree: %w", err)
	}

	s.mu.Lock()
	path, ok := s.paths[n.ID]
	if !ok {
		path = s.NodePath(n)
		s.paths[n.ID] = path
	}
	s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("filetree: create %s: %w", filepath.Dir(path), err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("filetree: save %s: %w", n.ID, err)
	}
	return nil
}

// AppendEdge appends e to the edge log unless the triple is already there.
// The log is rescanned on every call so edges appended by other writers
// since the last Load are seen.
func (s *Store) AppendEdge(ctx context.Context, e plan.Edge) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	line, err := store.EncodeEdge(e)
	if err != nil {
		return false, fmt.Errorf("filetree: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.hasEdge(e)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	path := filepath.Join(s.root, EdgesFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return false, fmt.Errorf("filetree: open edges: %w", err)
	}
	// Another writer may have left the last record unterminated.
	terminated, err := endsWithNewline(f)
	if err != nil {
		f.Close()
		return false, fmt.Errorf("filetree: inspect edges: %w", err)
	}
	if !terminated {
		line = append([]byte{'\n'}, line...)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return false, fmt.Errorf("filetree: append edge: %w", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("filetree: close edges: %w", err)
	}
	return true, nil
}

func (s *Store) hasEdge(e plan.Edge) (bool, error) {
	f, err := os.Open(filepath.Join(s.root, EdgesFile))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("filetree: open edges: %w", err)
	}
	defer f.Close()

	found := false
	err = eachLine(f, func(_ int, raw []byte) bool {
		var got plan.Edge
		found = json.Unmarshal(raw, &got) == nil && got == e
		return !found
	})
	if err != nil {
		return false, fmt.Errorf("filetree: scan edges: %w", err)
	}
	return found, nil
}

// endsWithNewline reports whether f is empty or its last byte is '\n'.
func endsWithNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return true, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] == '\n', nil
}

// ReadManifest reads manifest.json.
func (s *Store) ReadManifest(ctx context.Context) (store.Manifest, error) {
	var m store.Manifest
	data, err := os.ReadFile(filepath.Join(s.root, ManifestFile))
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("filetree: read manifest: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return store.Manifest{}, fmt.Errorf("filetree: parse manifest: %w", err)
	}
	return m, nil
}

// WriteManifest replaces manifest.json atomically.
func (s *Store) WriteManifest(ctx context.Context, m store.Manifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("filetree: encode manifest: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(s.root, ManifestFile), append(data, '\n')); err != nil {
		return fmt.Errorf("filetree: write manifest: %w", err)
	}
	return nil
}

func (s *Store) rel(path string) string {
	if r, err := filepath.Rel(s.root, path); err == nil {
		return filepath.ToSlash(r)
	}
	return path
}

// writeFileAtomic writes data to a temporary file in the target directory
// and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	cleanup := func() { os.Remove(name) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(name, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

var _ store.Store = (*Store)(nil)

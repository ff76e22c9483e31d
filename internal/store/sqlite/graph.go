package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/roach88/plangraph/internal/plan"
	"github.com/roach88/plangraph/internal/store"
)

const manifestKey = "manifest"

// Load reads every node and edge. Edges come back in insertion order.
func (s *Store) Load(ctx context.Context) (*plan.Graph, error) {
	b := store.NewBuilder()

	if err := s.loadNodes(ctx, b); err != nil {
		return nil, err
	}
	if err := s.loadEdges(ctx, b); err != nil {
		return nil, err
	}

	g := b.Graph()
	s.logger.Debug("graph loaded",
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("edges", len(g.Edges)),
		zap.Int("warnings", len(g.Warnings)),
	)
	return g, nil
}

func (s *Store) loadNodes(ctx context.Context, b *store.Builder) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, body
		FROM nodes
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return fmt.Errorf("sqlite: query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return fmt.Errorf("sqlite: scan node: %w", err)
		}
		b.Node("nodes/"+id, []byte(body))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterate nodes: %w", err)
	}
	return nil
}

func (s *Store) loadEdges(ctx context.Context, b *store.Builder) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, from_id, to_id, type
		FROM edges
		ORDER BY seq ASC
	`)
	if err != nil {
		return fmt.Errorf("sqlite: query edges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		var e plan.Edge
		if err := rows.Scan(&seq, &e.From, &e.To, &e.Type); err != nil {
			return fmt.Errorf("sqlite: scan edge: %w", err)
		}
		b.TypedEdge(fmt.Sprintf("edges/%d", seq), e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterate edges: %w", err)
	}
	return nil
}

// SaveNode inserts n or replaces the stored body.
func (s *Store) SaveNode(ctx context.Context, n *plan.Node) error {
	body, err := store.EncodeNode(n)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, type, body, seq)
		VALUES (?, ?, ?, COALESCE((SELECT MAX(seq) FROM nodes), 0) + 1)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			body = excluded.body,
			seq  = excluded.seq
	`, n.ID, string(n.Type), string(body))
	if err != nil {
		return fmt.Errorf("sqlite: save node %s: %w", n.ID, err)
	}
	return nil
}

// AppendEdge inserts e. ON CONFLICT DO NOTHING makes duplicates a no-op,
// reported as false.
func (s *Store) AppendEdge(ctx context.Context, e plan.Edge) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, fmt.Errorf("sqlite: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO edges (from_id, to_id, type)
		VALUES (?, ?, ?)
		ON CONFLICT(from_id, to_id, type) DO NOTHING
	`, e.From, e.To, string(e.Type))
	if err != nil {
		return false, fmt.Errorf("sqlite: append edge %s: %w", e, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: append edge %s: %w", e, err)
	}
	return n == 1, nil
}

// ReadManifest reads the manifest row.
func (s *Store) ReadManifest(ctx context.Context) (store.Manifest, error) {
	var m store.Manifest
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, manifestKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("sqlite: read manifest: %w", err)
	}
	if err := json.Unmarshal([]byte(value), &m); err != nil {
		return store.Manifest{}, fmt.Errorf("sqlite: parse manifest: %w", err)
	}
	return m, nil
}

// WriteManifest replaces the manifest row.
func (s *Store) WriteManifest(ctx context.Context, m store.Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("sqlite: encode manifest: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, manifestKey, string(data))
	if err != nil {
		return fmt.Errorf("sqlite: write manifest: %w", err)
	}
	return nil
}

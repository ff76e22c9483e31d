package store

import (
	"context"

	"github.com/roach88/plangraph/internal/plan"
)

// Store persists a plan graph.
type Store interface {
	// Load reads the whole graph. Malformed records become warnings on the
	// returned graph.
	Load(ctx context.Context) (*plan.Graph, error)

	// SaveNode inserts or replaces n.
	SaveNode(ctx context.Context, n *plan.Node) error

	// AppendEdge adds e unless the triple is already stored. It reports
	// whether the edge was appended.
	AppendEdge(ctx context.Context, e plan.Edge) (bool, error)

	// ReadManifest returns the stored manifest, or the zero Manifest when
	// none has been written.
	ReadManifest(ctx context.Context) (Manifest, error)

	// WriteManifest replaces the manifest.
	WriteManifest(ctx context.Context, m Manifest) error

	Close() error
}

// Backend names accepted by configuration and the CLI.
const (
	BackendFiletree = "filetree"
	BackendSQLite   = "sqlite"
	BackendBadger   = "badger"
	BackendMemory   = "memory"
)

// Backends lists the backend names in display order.
var Backends = []string{BackendFiletree, BackendSQLite, BackendBadger, BackendMemory}

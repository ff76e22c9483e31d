// Package store defines the persistence contract for plan graphs and the
// record codec shared by every backend.
//
// A Store is a leaf: it loads and persists nodes and edges and knows nothing
// about gaps, invariants or synthesis. Backends live in subpackages:
//
//   - filetree: one JSON file per node plus an NDJSON edge log (default)
//   - sqlite:   nodes and edges tables in a single SQLite file
//   - badgerkv: an embedded BadgerDB key space
//   - memstore: process-local, for tests
//
// # Contract
//
//   - Load is always a full read. Malformed records (unparsable JSON,
//     missing id, unknown node type, edge with unknown type or empty
//     endpoint) are skipped and recorded as plan.LoadWarning, never errors.
//   - SaveNode inserts or replaces a node. Attributes the model does not
//     recognise are written back unchanged.
//   - AppendEdge is idempotent on the (from, to, type) triple and reports
//     whether the edge was new.
//   - Edges load in append order; nodes load in no particular order.
//
// Other processes may write to the same store between calls. Nothing is
// cached across Load calls that could hide those writes.
package store

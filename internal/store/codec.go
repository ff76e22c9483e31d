package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/plangraph/internal/plan"
)

// ErrMalformed marks a record that cannot become a node or edge.
var ErrMalformed = errors.New("malformed record")

// DecodeNode parses one node record and checks the fields every node needs.
// An unknown status is not an error; it is reported through warn.
func DecodeNode(data []byte) (n *plan.Node, warn string, err error) {
	n = new(plan.Node)
	if err := json.Unmarshal(data, n); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if n.ID == "" {
		return nil, "", fmt.Errorf("%w: missing id", ErrMalformed)
	}
	if !n.Type.Valid() {
		return nil, "", fmt.Errorf("%w: node %s has unknown type %q", ErrMalformed, n.ID, n.Type)
	}
	if !n.Status.Valid() {
		warn = fmt.Sprintf("node %s has unknown status %q", n.ID, n.Status)
	}
	return n, warn, nil
}

// EncodeNode renders n as compact JSON.
func EncodeNode(n *plan.Node) ([]byte, error) {
	if n == nil || n.ID == "" {
		return nil, errors.New("encode node: missing id")
	}
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode node %s: %w", n.ID, err)
	}
	return data, nil
}

// EncodeNodeIndent renders n as indented JSON with a trailing newline, the
// form written to files people read.
func EncodeNodeIndent(n *plan.Node) ([]byte, error) {
	data, err := EncodeNode(n)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, fmt.Errorf("encode node %s: %w", n.ID, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// DecodeEdge parses one edge record.
func DecodeEdge(data []byte) (plan.Edge, error) {
	var e plan.Edge
	if err := json.Unmarshal(data, &e); err != nil {
		return plan.Edge{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := e.Validate(); err != nil {
		return plan.Edge{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return e, nil
}

// EncodeEdge renders e as a single JSON line without the newline.
func EncodeEdge(e plan.Edge) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("encode edge: %w", err)
	}
	return json.Marshal(e)
}

// Builder assembles a graph from raw records, turning bad records into
// warnings. Backends feed it everything they read and return Graph().
type Builder struct {
	g     *plan.Graph
	seen  map[string]string
	edges []plan.Edge
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{g: plan.NewGraph(), seen: make(map[string]string)}
}

// Node adds the node encoded in data. source names the record for
// warnings. It returns the decoded node, or nil when the record was
// skipped.
func (b *Builder) Node(source string, data []byte) *plan.Node {
	n, warn, err := DecodeNode(data)
	if err != nil {
		b.g.Warn(source, err.Error())
		return nil
	}
	if first, dup := b.seen[n.ID]; dup {
		b.g.Warn(source, fmt.Sprintf("duplicate node id %s (kept %s)", n.ID, first))
		return nil
	}
	if warn != "" {
		b.g.Warn(source, warn)
	}
	b.seen[n.ID] = source
	b.g.PutNode(n)
	return n
}

// Edge queues the edge encoded in data.
func (b *Builder) Edge(source string, data []byte) {
	e, err := DecodeEdge(data)
	if err != nil {
		b.g.Warn(source, err.Error())
		return
	}
	b.edges = append(b.edges, e)
}

// TypedEdge queues an already decoded edge, validating it.
func (b *Builder) TypedEdge(source string, e plan.Edge) {
	if err := e.Validate(); err != nil {
		b.g.Warn(source, fmt.Sprintf("%v: %v", ErrMalformed, err))
		return
	}
	b.edges = append(b.edges, e)
}

// Graph returns the assembled graph. Duplicate edge triples collapse to
// their first occurrence.
func (b *Builder) Graph() *plan.Graph {
	for _, e := range b.edges {
		b.g.AddEdge(e)
	}
	b.edges = nil
	return b.g
}

package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/plangraph/internal/analyze"
	"github.com/roach88/plangraph/internal/engine"
	"github.com/roach88/plangraph/internal/plan"
	"github.com/roach88/plangraph/internal/store"
	"github.com/roach88/plangraph/internal/store/memstore"
)

// Scenario is a conformance fixture: a starting graph, how to run the
// controller over it, and what the run must produce.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden
	// file and seeds the fixed run id.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Budget is the pass limit. Zero selects the controller default.
	Budget int `yaml:"budget,omitempty"`

	// SeedTopics enables minting Scenarios for uncovered domain topics.
	SeedTopics bool `yaml:"seed_topics,omitempty"`

	// Rerun runs the controller a second time over the repaired graph.
	// The second run must apply no deltas.
	Rerun bool `yaml:"rerun,omitempty"`

	// Graph is the starting graph. An absent graph is empty.
	Graph GraphFixture `yaml:"graph,omitempty"`

	// Expect checks the run as a whole.
	Expect Expect `yaml:"expect"`

	// Assertions check the final graph and the applied deltas.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// GraphFixture holds node and edge records in the same flat shape the
// stores persist.
type GraphFixture struct {
	Nodes []map[string]any `yaml:"nodes,omitempty"`
	Edges []EdgeFixture    `yaml:"edges,omitempty"`
}

// EdgeFixture is one edge record.
type EdgeFixture struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
	Type string `yaml:"type"`
}

// Expect describes the outcome of the (first) run. Zero values are not
// checked.
type Expect struct {
	State      string `yaml:"state"`
	Iterations int    `yaml:"iterations,omitempty"`

	// Deltas is the number of deltas the run must apply. Nil skips the
	// check; an explicit 0 requires a no-op run.
	Deltas *int `yaml:"deltas,omitempty"`

	// Failing lists exactly the invariants left failing. Nil skips the
	// check.
	Failing []string `yaml:"failing,omitempty"`

	// InitialGaps holds gap class sizes found at the start of pass 1.
	InitialGaps map[string]int `yaml:"initial_gaps,omitempty"`
}

// Assertion checks one property of the final graph or the run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// IDs are node ids (node_exists, node_absent).
	IDs []string `yaml:"ids,omitempty"`

	// ID is a single node id (stmt_*, added_in_phase).
	ID string `yaml:"id,omitempty"`

	// Text is the expected statement, prefix or fragment.
	Text string `yaml:"text,omitempty"`

	// NodeType and Count are used by type_count.
	NodeType string `yaml:"node_type,omitempty"`
	Count    int    `yaml:"count,omitempty"`

	// Class and Size are used by gap_size.
	Class string `yaml:"class,omitempty"`
	Size  int    `yaml:"size,omitempty"`

	// Invariant and Holds are used by invariant.
	Invariant string `yaml:"invariant,omitempty"`
	Holds     bool   `yaml:"holds,omitempty"`

	// Phase is used by added_in_phase.
	Phase string `yaml:"phase,omitempty"`

	// Edge is used by edge_exists.
	Edge *EdgeFixture `yaml:"edge,omitempty"`
}

// Assertion type constants.
const (
	AssertNodeExists   = "node_exists"
	AssertNodeAbsent   = "node_absent"
	AssertTypeCount    = "type_count"
	AssertEdgeExists   = "edge_exists"
	AssertStmtEquals   = "stmt_equals"
	AssertStmtPrefix   = "stmt_prefix"
	AssertStmtContains = "stmt_contains"
	AssertGapSize      = "gap_size"
	AssertInvariant    = "invariant"
	AssertAddedInPhase = "added_in_phase"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		sc, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, sc)
	}
	return out, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\ `) {
		return fmt.Errorf("name %q must not contain spaces or path separators", s.Name)
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Budget < 0 {
		return fmt.Errorf("budget must not be negative")
	}
	if s.Expect.State != "" && !engine.State(s.Expect.State).Terminal() {
		return fmt.Errorf("expect.state %q is not a terminal state", s.Expect.State)
	}
	for _, inv := range s.Expect.Failing {
		if !knownInvariant(inv) {
			return fmt.Errorf("expect.failing: unknown invariant %q", inv)
		}
	}
	for class := range s.Expect.InitialGaps {
		if !knownGapClass(class) {
			return fmt.Errorf("expect.initial_gaps: unknown gap class %q", class)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertNodeExists, AssertNodeAbsent:
		if len(a.IDs) == 0 {
			return fmt.Errorf("%s requires ids", a.Type)
		}
	case AssertTypeCount:
		if !plan.NodeType(a.NodeType).Valid() {
			return fmt.Errorf("type_count: unknown node_type %q", a.NodeType)
		}
	case AssertEdgeExists:
		if a.Edge == nil {
			return fmt.Errorf("edge_exists requires edge")
		}
	case AssertStmtEquals, AssertStmtPrefix, AssertStmtContains:
		if a.ID == "" {
			return fmt.Errorf("%s requires id", a.Type)
		}
	case AssertGapSize:
		if !knownGapClass(a.Class) {
			return fmt.Errorf("gap_size: unknown class %q", a.Class)
		}
	case AssertInvariant:
		if !knownInvariant(a.Invariant) {
			return fmt.Errorf("invariant: unknown invariant %q", a.Invariant)
		}
	case AssertAddedInPhase:
		if a.ID == "" || a.Phase == "" {
			return fmt.Errorf("added_in_phase requires id and phase")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func knownInvariant(name string) bool {
	for _, inv := range analyze.Invariants {
		if string(inv) == name {
			return true
		}
	}
	return false
}

func knownGapClass(name string) bool {
	for _, c := range plan.GapClasses {
		if string(c) == name {
			return true
		}
	}
	return false
}

// NewStore returns a memory store holding the scenario's starting graph.
// Records pass through the same codec the persistent stores use, so a
// malformed fixture fails here rather than becoming a load warning.
func (s *Scenario) NewStore(ctx context.Context) (*memstore.Store, error) {
	st := memstore.New()
	for i, raw := range s.Graph.Nodes {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("nodes[%d]: %w", i, err)
		}
		n, warn, err := store.DecodeNode(data)
		if err != nil {
			return nil, fmt.Errorf("nodes[%d]: %w", i, err)
		}
		if warn != "" {
			return nil, fmt.Errorf("nodes[%d]: %s", i, warn)
		}
		if err := st.SaveNode(ctx, n); err != nil {
			return nil, fmt.Errorf("nodes[%d]: %w", i, err)
		}
	}
	for i, ef := range s.Graph.Edges {
		e := plan.Edge{From: ef.From, To: ef.To, Type: plan.EdgeType(ef.Type)}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("edges[%d]: %w", i, err)
		}
		if _, err := st.AppendEdge(ctx, e); err != nil {
			return nil, fmt.Errorf("edges[%d]: %w", i, err)
		}
	}
	return st, nil
}

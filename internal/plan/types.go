package plan

import "fmt"

// NodeType is the closed set of node kinds.
type NodeType string

const (
	TypeScenario        NodeType = "Scenario"
	TypeRequirement     NodeType = "Requirement"
	TypeContract        NodeType = "Contract"
	TypeComponent       NodeType = "Component"
	TypeChangeSpec      NodeType = "ChangeSpec"
	TypeInteractionSpec NodeType = "InteractionSpec"
	TypeTest            NodeType = "Test"
	TypeOpenQuestion    NodeType = "OpenQuestion"
	TypeEvaluation      NodeType = "Evaluation"
)

// NodeTypes lists every node type in a stable order.
var NodeTypes = []NodeType{
	TypeScenario,
	TypeRequirement,
	TypeContract,
	TypeComponent,
	TypeChangeSpec,
	TypeInteractionSpec,
	TypeTest,
	TypeOpenQuestion,
	TypeEvaluation,
}

var typeTags = map[NodeType]string{
	TypeScenario:        "scenario",
	TypeRequirement:     "requirement",
	TypeContract:        "contract",
	TypeComponent:       "component",
	TypeChangeSpec:      "change",
	TypeInteractionSpec: "ix",
	TypeTest:            "test",
	TypeOpenQuestion:    "question",
	TypeEvaluation:      "eval",
}

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	_, ok := typeTags[t]
	return ok
}

// Tag returns the id prefix used for nodes of this type.
func (t NodeType) Tag() string {
	return typeTags[t]
}

// Status is the lifecycle state of a node.
type Status string

const (
	StatusOpen    Status = "Open"
	StatusReady   Status = "Ready"
	StatusBlocked Status = "Blocked"
	StatusRetired Status = "Retired"
)

// Valid reports whether s is a known status. The empty status is accepted
// and treated as Open by callers.
func (s Status) Valid() bool {
	switch s {
	case "", StatusOpen, StatusReady, StatusBlocked, StatusRetired:
		return true
	}
	return false
}

// EdgeType is the closed set of edge kinds.
type EdgeType string

const (
	EdgeTracesTo   EdgeType = "traces_to"
	EdgeDependsOn  EdgeType = "depends_on"
	EdgeImplements EdgeType = "implements"
	EdgeResolves   EdgeType = "resolves"
)

// Valid reports whether t is one of the known edge types.
func (t EdgeType) Valid() bool {
	switch t {
	case EdgeTracesTo, EdgeDependsOn, EdgeImplements, EdgeResolves:
		return true
	}
	return false
}

// ContractKind is the sub-kind of a Contract node.
type ContractKind string

const (
	ContractAPI  ContractKind = "api"
	ContractData ContractKind = "data"
)

// Edge is a directed, typed relation between two node ids.
// Edge is comparable and is used directly as a set key.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Type EdgeType `json:"type"`
}

// Validate checks that the edge has both endpoints and a known type.
func (e Edge) Validate() error {
	if e.From == "" || e.To == "" {
		return fmt.Errorf("edge missing endpoint (from=%q, to=%q)", e.From, e.To)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("edge %s -> %s has unknown type %q", e.From, e.To, e.Type)
	}
	return nil
}

func (e Edge) String() string {
	return fmt.Sprintf("%s -[%s]-> %s", e.From, e.Type, e.To)
}

// LoadWarning records a malformed record skipped during a load.
type LoadWarning struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

func (w LoadWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Source, w.Reason)
}

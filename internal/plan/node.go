package plan

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Well-known attribute keys.
const (
	KeyRequirements  = "requirements"
	KeyTests         = "tests"
	KeyContracts     = "contracts"
	KeyComponents    = "components"
	KeyChangeSpecs   = "change_specs"
	KeyImplements    = "implements"
	KeyIX            = "ix"
	KeyDependsOn     = "depends_on"
	KeyContractType  = "contract_type"
	KeyVersioning    = "versioning"
	KeyRolloutFlag   = "rollout_flag"
	KeySimple        = "simple"
	KeyChecklist     = "checklist"
	KeyMocks         = "mocks"
	KeyAcceptance    = "acceptance"
	KeySec           = "sec"
	KeyObs           = "obs"
	KeyObservability = "observability"
	KeyTest          = "test"
	KeyRes           = "res"
)

// Node is one record of the plan graph.
//
// Well-known attributes are decoded into typed fields. A well-known key whose
// value has the wrong shape is not an error: it is kept in Extra untouched,
// exactly like an unknown key. Nil slices and blocks mean "absent" and are
// not written back.
type Node struct {
	ID     string
	Type   NodeType
	Stmt   string
	Status Status

	Requirements []string
	Tests        []string
	Contracts    []string
	Components   []string
	ChangeSpecs  []string
	Implements   []string
	IX           []string
	DependsOn    []string

	ContractType ContractKind
	Versioning   string
	RolloutFlag  string
	Simple       *bool
	Checklist    []string

	// Test node fields.
	Mocks      []string
	Acceptance []string

	Sec           Block
	Obs           Block
	Observability Block
	Test          Block
	Res           Block

	Extra map[string]json.RawMessage
}

// Retired reports whether the node has been retired by an external actor.
func (n *Node) Retired() bool {
	return n.Status == StatusRetired
}

// IsSimple reports whether a ChangeSpec is exempt from needing
// InteractionSpecs.
func (n *Node) IsSimple() bool {
	return n.Simple != nil && *n.Simple
}

// Kind returns the contract sub-kind. Nodes written without contract_type
// fall back to the id naming convention contract:api-* / contract:data-*.
func (n *Node) Kind() ContractKind {
	if n.ContractType != "" {
		return n.ContractType
	}
	slug := SlugOf(n.ID)
	switch {
	case strings.HasPrefix(slug, "api"):
		return ContractAPI
	case strings.HasPrefix(slug, "data"):
		return ContractData
	}
	return ""
}

// ObservabilityBlock returns the block holding logs/metrics/span for this
// node. InteractionSpecs use "obs" and fall back to "observability".
func (n *Node) ObservabilityBlock() Block {
	if n.Type == TypeInteractionSpec && n.Obs != nil {
		return n.Obs
	}
	return n.Observability
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Requirements = cloneStrings(n.Requirements)
	c.Tests = cloneStrings(n.Tests)
	c.Contracts = cloneStrings(n.Contracts)
	c.Components = cloneStrings(n.Components)
	c.ChangeSpecs = cloneStrings(n.ChangeSpecs)
	c.Implements = cloneStrings(n.Implements)
	c.IX = cloneStrings(n.IX)
	c.DependsOn = cloneStrings(n.DependsOn)
	c.Checklist = cloneStrings(n.Checklist)
	c.Mocks = cloneStrings(n.Mocks)
	c.Acceptance = cloneStrings(n.Acceptance)
	if n.Simple != nil {
		v := *n.Simple
		c.Simple = &v
	}
	c.Sec = n.Sec.Clone()
	c.Obs = n.Obs.Clone()
	c.Observability = n.Observability.Clone()
	c.Test = n.Test.Clone()
	c.Res = n.Res.Clone()
	if n.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(n.Extra))
		for k, v := range n.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}

// UnmarshalJSON decodes a flat node record.
func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = Node{}
	for key, val := range raw {
		if n.decodeKnown(key, val) {
			continue
		}
		if n.Extra == nil {
			n.Extra = make(map[string]json.RawMessage)
		}
		n.Extra[key] = val
	}
	return nil
}

func (n *Node) decodeKnown(key string, val json.RawMessage) bool {
	if bytes.Equal(bytes.TrimSpace(val), []byte("null")) {
		return false
	}
	switch key {
	case "id":
		return decodeInto(val, &n.ID)
	case "type":
		return decodeInto(val, &n.Type)
	case "stmt":
		return decodeInto(val, &n.Stmt)
	case "status":
		return decodeInto(val, &n.Status)
	case KeyRequirements:
		return decodeInto(val, &n.Requirements)
	case KeyTests:
		return decodeInto(val, &n.Tests)
	case KeyContracts:
		return decodeInto(val, &n.Contracts)
	case KeyComponents:
		return decodeInto(val, &n.Components)
	case KeyChangeSpecs:
		return decodeInto(val, &n.ChangeSpecs)
	case KeyImplements:
		return decodeInto(val, &n.Implements)
	case KeyIX:
		return decodeInto(val, &n.IX)
	case KeyDependsOn:
		return decodeInto(val, &n.DependsOn)
	case KeyContractType:
		return decodeInto(val, &n.ContractType)
	case KeyVersioning:
		return decodeInto(val, &n.Versioning)
	case KeyRolloutFlag:
		return decodeInto(val, &n.RolloutFlag)
	case KeySimple:
		return decodeInto(val, &n.Simple)
	case KeyChecklist:
		return decodeInto(val, &n.Checklist)
	case KeyMocks:
		return decodeInto(val, &n.Mocks)
	case KeyAcceptance:
		return decodeInto(val, &n.Acceptance)
	case KeySec:
		return decodeInto(val, &n.Sec)
	case KeyObs:
		return decodeInto(val, &n.Obs)
	case KeyObservability:
		return decodeInto(val, &n.Observability)
	case KeyTest:
		return decodeInto(val, &n.Test)
	case KeyRes:
		return decodeInto(val, &n.Res)
	}
	return false
}

// decodeInto leaves dst untouched when raw has the wrong shape.
func decodeInto[T any](raw json.RawMessage, dst *T) bool {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	*dst = v
	return true
}

// MarshalJSON encodes the node as one flat object with sorted keys.
func (n Node) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.Extra)+8)
	for k, v := range n.Extra {
		out[k] = v
	}
	out["id"] = n.ID
	out["type"] = n.Type
	if n.Stmt != "" {
		out["stmt"] = n.Stmt
	}
	if n.Status != "" {
		out["status"] = n.Status
	}
	lists := map[string][]string{
		KeyRequirements: n.Requirements,
		KeyTests:        n.Tests,
		KeyContracts:    n.Contracts,
		KeyComponents:   n.Components,
		KeyChangeSpecs:  n.ChangeSpecs,
		KeyImplements:   n.Implements,
		KeyIX:           n.IX,
		KeyDependsOn:    n.DependsOn,
		KeyChecklist:    n.Checklist,
		KeyMocks:        n.Mocks,
		KeyAcceptance:   n.Acceptance,
	}
	for k, v := range lists {
		if v != nil {
			out[k] = v
		}
	}
	if n.ContractType != "" {
		out[KeyContractType] = n.ContractType
	}
	if n.Versioning != "" {
		out[KeyVersioning] = n.Versioning
	}
	if n.RolloutFlag != "" {
		out[KeyRolloutFlag] = n.RolloutFlag
	}
	if n.Simple != nil {
		out[KeySimple] = *n.Simple
	}
	blocks := map[string]Block{
		KeySec:           n.Sec,
		KeyObs:           n.Obs,
		KeyObservability: n.Observability,
		KeyTest:          n.Test,
		KeyRes:           n.Res,
	}
	for k, v := range blocks {
		if v != nil {
			out[k] = v
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// AppendUnique appends ids not already present in list. The second result
// reports whether anything was appended.
func AppendUnique(list []string, ids ...string) ([]string, bool) {
	changed := false
	for _, id := range ids {
		if Contains(list, id) {
			continue
		}
		list = append(list, id)
		changed = true
	}
	return list, changed
}

// Contains reports whether list holds id.
func Contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}

package synth

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/plangraph/internal/plan"
)

// Defaults written into minted and backfilled nodes.
const (
	DefaultVersioning = "semver:minor"
	DefaultOwner      = "backend-team"
	DefaultTimeoutMS  = 8000
	DefaultRetryMax   = 4
)

var (
	defaultMocks        = []string{"Database", "Auth service"}
	apiChecklist        = []string{"authZ defined", "rate_limit defined", "idempotency defined", "timeouts defined", "error taxonomy defined", "observability defined"}
	dataChecklist       = []string{"schema defined", "migration defined", "retention defined", "PII defined", "region defined", "index defined", "backup defined", "restore defined"}
	retriableErrors     = []string{"5xx", "429", "Network timeout"}
	nonRetriableErrors  = []string{"400", "401", "403", "404", "413", "415"}
	operationHTTPMethod = map[plan.Operation]string{
		plan.OpCreate: "POST",
		plan.OpRead:   "GET",
		plan.OpUpdate: "PUT",
		plan.OpDelete: "DELETE",
	}
)

// Id schemes. Every minted id is a pure function of its parent's slug.
func requirementID(slug string) string  { return plan.NewID(plan.TypeRequirement, slug) }
func apiContractID(slug string) string  { return plan.NewID(plan.TypeContract, "api-"+slug) }
func dataContractID(slug string) string { return plan.NewID(plan.TypeContract, "data-"+slug) }
func componentID(slug string) string    { return plan.NewID(plan.TypeComponent, slug) }
func changeSpecID(slug string) string   { return plan.NewID(plan.TypeChangeSpec, slug) }
func scenarioID(slug string) string     { return plan.NewID(plan.TypeScenario, slug) }
func testID(slug string) string         { return plan.NewID(plan.TypeTest, slug+"-acc") }
func interactionID(slug string, op plan.Operation) string {
	return plan.NewID(plan.TypeInteractionSpec, fmt.Sprintf("%s-api-%s-fresh-under-ok", slug, op))
}

func boolPtr(b bool) *bool { return &b }

func (s *Synthesizer) render(name string, v View) (string, error) {
	v.Slug = plan.SlugOf(v.ID)
	return s.renderer.Render(name, v)
}

func (s *Synthesizer) newNode(t plan.NodeType, id, tmpl string, parent *plan.Node) (*plan.Node, error) {
	v := View{ID: id}
	if parent != nil {
		v.ParentID = parent.ID
		v.ParentStmt = parent.Stmt
	}
	stmt, err := s.render(tmpl, v)
	if err != nil {
		return nil, err
	}
	return &plan.Node{ID: id, Type: t, Stmt: stmt, Status: plan.StatusOpen}, nil
}

func (s *Synthesizer) newRequirement(id string, parent *plan.Node) (*plan.Node, error) {
	n, err := s.newNode(plan.TypeRequirement, id, TmplRequirement, parent)
	if err != nil {
		return nil, err
	}
	n.Contracts = []string{}
	n.Components = []string{}
	n.ChangeSpecs = []string{}
	n.Checklist = []string{}
	return n, nil
}

func (s *Synthesizer) newContract(id string, kind plan.ContractKind) (*plan.Node, error) {
	tmpl, checklist := TmplAPIContract, apiChecklist
	if kind == plan.ContractData {
		tmpl, checklist = TmplDataContract, dataChecklist
	}
	n, err := s.newNode(plan.TypeContract, id, tmpl, nil)
	if err != nil {
		return nil, err
	}
	n.ContractType = kind
	n.Versioning = DefaultVersioning
	n.Checklist = append([]string(nil), checklist...)
	return n, nil
}

func (s *Synthesizer) newComponent(id string) (*plan.Node, error) {
	n, err := s.newNode(plan.TypeComponent, id, TmplComponent, nil)
	if err != nil {
		return nil, err
	}
	n.Observability = plan.Block{}
	fillObservability(n.Observability, plan.SlugOf(id), "component")
	return n, nil
}

func (s *Synthesizer) newChangeSpec(id, reqID string) (*plan.Node, error) {
	n, err := s.newNode(plan.TypeChangeSpec, id, TmplChangeSpec, nil)
	if err != nil {
		return nil, err
	}
	n.IX = []string{}
	if reqID != "" {
		n.Implements = []string{reqID}
	}
	n.RolloutFlag = rolloutFlag(id)
	n.Simple = boolPtr(false)
	n.Checklist = []string{}
	return n, nil
}

func (s *Synthesizer) newInteraction(id, csID string, op plan.Operation, dependsOn []string) (*plan.Node, error) {
	stmt, err := s.render(TmplInteraction, View{ID: id, ParentID: csID, Op: string(op)})
	if err != nil {
		return nil, err
	}
	n := &plan.Node{
		ID:        id,
		Type:      plan.TypeInteractionSpec,
		Stmt:      stmt,
		Status:    plan.StatusOpen,
		DependsOn: dependsOn,
		Extra:     interactionExtra(op),
	}

	n.Res = plan.Block{}
	n.Res.Set("timeout_ms", DefaultTimeoutMS)
	n.Res.Set("retry", map[string]any{"strategy": "exp", "max": DefaultRetryMax, "jitter": true})
	if op != plan.OpRead {
		n.Res.Set("idem_key", fmt.Sprintf("%s-%s", op, csID))
	}

	n.Obs = plan.Block{}
	fillObservability(n.Obs, string(op), "api")
	n.Sec = plan.Block{}
	fillSecurity(n.Sec)
	n.Test = plan.Block{}
	if err := s.fillTestBlock(n, op); err != nil {
		return nil, err
	}
	return n, nil
}

func interactionExtra(op plan.Operation) map[string]json.RawMessage {
	params := "resource_id"
	pre := "Resource exists"
	compensation := "Rollback transaction"
	switch op {
	case plan.OpCreate:
		params, pre = "resource_data", "Input validated"
	case plan.OpRead:
		compensation = "None"
	}
	extra := map[string]any{
		"method":    fmt.Sprintf("Svc.%s()", op),
		"interface": "API",
		"operation": operationHTTPMethod[op] + " /resource",
		"state":     map[string]string{"token": "fresh", "quota": "under", "network": "ok"},
		"pre":       []string{"User authenticated", pre},
		"in":        map[string]any{"params": params, "headers": []string{"Authorization"}},
		"eff":       []string{fmt.Sprintf("Resource %s", pastTense(op))},
		"err": map[string][]string{
			"retriable":     retriableErrors,
			"non_retriable": nonRetriableErrors,
			"compensation":  {compensation},
		},
		"owner": DefaultOwner,
	}
	return encodeExtra(extra)
}

func pastTense(op plan.Operation) string {
	if op == plan.OpRead {
		return "read"
	}
	return string(op) + "d"
}

func (s *Synthesizer) newTest(id string, scenario *plan.Node) (*plan.Node, error) {
	n, err := s.newNode(plan.TypeTest, id, TmplTest, scenario)
	if err != nil {
		return nil, err
	}
	acc, err := s.render(TmplTestAcceptance, View{ID: id, ParentID: scenario.ID, ParentStmt: scenario.Stmt})
	if err != nil {
		return nil, err
	}
	n.Mocks = append([]string(nil), defaultMocks...)
	n.Acceptance = []string{acc}
	n.Extra = encodeExtra(map[string]any{"test_type": "e2e"})
	return n, nil
}

func (s *Synthesizer) fillTestBlock(n *plan.Node, op plan.Operation) error {
	if !n.Test.Filled("mocks") {
		n.Test.Set("mocks", defaultMocks)
	}
	if !n.Test.Filled("acc") {
		acc, err := s.render(TmplInteractionAcceptance, View{ID: n.ID, Op: string(op)})
		if err != nil {
			return err
		}
		n.Test.Set("acc", []string{acc})
	}
	return nil
}

// fillObservability sets logs, metrics and span where they are missing or
// empty, leaving filled keys alone.
func fillObservability(b plan.Block, name, spanPrefix string) bool {
	changed := false
	if !b.Filled("logs") {
		b.Set("logs", []string{"Operation start", "Operation complete"})
		changed = true
	}
	if !b.Filled("metrics") {
		b.Set("metrics", []string{
			fmt.Sprintf("operation_%s_count", metricName(name)),
			fmt.Sprintf("operation_%s_duration", metricName(name)),
		})
		changed = true
	}
	if !b.Filled("span") {
		b.Set("span", spanPrefix+"."+name)
		changed = true
	}
	return changed
}

// fillSecurity sets authZ, least_priv and pii where absent.
func fillSecurity(b plan.Block) bool {
	changed := b.SetDefault("authZ", "User owns resource or has permission")
	changed = b.SetDefault("least_priv", "Read/write own resources only") || changed
	changed = b.SetDefault("pii", false) || changed
	return changed
}

func rolloutFlag(id string) string {
	return "feature." + plan.SlugOf(id)
}

func metricName(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c == '-' || c == '.' || c == ':' {
			out[i] = '_'
		}
	}
	return string(out)
}

func encodeExtra(fields map[string]any) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			continue
		}
		out[k] = raw
	}
	return out
}

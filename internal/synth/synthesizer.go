package synth

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/roach88/plangraph/internal/plan"
)

// CloseFunc closes one gap class on the pass overlay. ids are the members of
// the stage's class as computed before the pass; stages re-check each id
// against the overlay because earlier stages may already have closed it.
type CloseFunc func(s *Synthesizer, pc *PassContext, ids []string) error

// Stage pairs a gap class with the function that closes it. A stage with an
// empty Class sweeps the whole overlay instead of a gap set.
type Stage struct {
	Name  string
	Class plan.GapClass
	Phase plan.Phase
	Close CloseFunc
}

// DefaultStages is the ordered A to F pipeline.
var DefaultStages = []Stage{
	{Name: "seed", Class: plan.S0, Phase: plan.PhaseSeed, Close: closeSeed},
	{Name: "explode", Class: plan.C0, Phase: plan.PhaseExplode, Close: closeExplode},
	{Name: "expand", Class: plan.R0, Phase: plan.PhaseExpand, Close: closeExpand},
	{Name: "reattach", Class: plan.IXOrphan, Phase: plan.PhaseReattach, Close: closeReattach},
	{Name: "harden-api", Class: plan.APIWeak, Phase: plan.PhaseHarden, Close: closeHardenAPI},
	{Name: "harden-data", Phase: plan.PhaseHarden, Close: closeHardenData},
	{Name: "gate", Phase: plan.PhaseGate, Close: closeGate},
}

// TopicStage mints one Scenario per uncovered domain topic until the floor
// is met. It is off unless enabled with WithTopicSeeding, since it invents
// scenarios rather than completing existing ones.
var TopicStage = Stage{Name: "topics", Phase: plan.PhaseGate, Close: closeTopics}

// Synthesizer turns gap sets into ordered delta batches.
type Synthesizer struct {
	renderer     Renderer
	stages       []Stage
	dataMinTerms int
	apiWeakMiss  int
	topicFloor   int
	logger       *zap.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithRenderer replaces the built-in templates.
func WithRenderer(r Renderer) Option {
	return func(s *Synthesizer) {
		s.renderer = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Synthesizer) {
		s.logger = l
	}
}

// WithDataLifecycleMinTerms sets how many lifecycle terms data contracts
// are hardened to.
func WithDataLifecycleMinTerms(n int) Option {
	return func(s *Synthesizer) {
		s.dataMinTerms = n
	}
}

// WithAPIWeakMissing sets how many missing API terms make a contract weak.
func WithAPIWeakMissing(n int) Option {
	return func(s *Synthesizer) {
		s.apiWeakMiss = n
	}
}

// WithTopicSeeding appends TopicStage with the given topic floor.
func WithTopicSeeding(floor int) Option {
	return func(s *Synthesizer) {
		s.topicFloor = floor
		s.stages = append(s.stages, TopicStage)
	}
}

// WithStages replaces the pipeline.
func WithStages(stages ...Stage) Option {
	return func(s *Synthesizer) {
		s.stages = stages
	}
}

// New creates a Synthesizer with the default pipeline and templates.
func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		stages:       append([]Stage(nil), DefaultStages...),
		dataMinTerms: 4,
		apiWeakMiss:  2,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.renderer == nil {
		s.renderer = MustDefaultRenderer()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Synthesize runs the pipeline once over g and returns the batch. g is not
// modified.
func (s *Synthesizer) Synthesize(g *plan.Graph, gaps plan.GapSets) (Batch, error) {
	pc, err := s.Pass(1, g, gaps)
	if err != nil {
		return Batch{}, err
	}
	return pc.Batch(), nil
}

// Pass runs every stage in order on a fresh PassContext.
func (s *Synthesizer) Pass(pass int, g *plan.Graph, gaps plan.GapSets) (*PassContext, error) {
	pc := NewPassContext(pass, g)
	for _, st := range s.stages {
		var ids []string
		if st.Class != "" {
			ids = gaps.Get(st.Class)
		}
		before := len(pc.Deltas)
		if err := st.Close(s, pc, ids); err != nil {
			return nil, fmt.Errorf("phase %s (%s): %w", st.Phase, st.Name, err)
		}
		s.logger.Debug("stage complete",
			zap.Int("pass", pass),
			zap.String("phase", string(st.Phase)),
			zap.String("stage", st.Name),
			zap.Int("gaps", len(ids)),
			zap.Int("deltas", len(pc.Deltas)-before),
		)
	}
	return pc, nil
}

// live returns the overlay node with id when it exists, has type t and is
// not retired.
func live(pc *PassContext, id string, t plan.NodeType) (*plan.Node, bool) {
	n, ok := pc.Graph.Node(id)
	if !ok || n.Type != t || n.Retired() {
		return nil, false
	}
	return n, true
}

// closeSeed gives every Scenario without a reachable InteractionSpec a
// complete chain. Requirements the Scenario already links are expanded
// first; a baseline requirement:<slug> is minted only if that is not enough.
// The Scenario's Test is left to the gate stage.
func closeSeed(s *Synthesizer, pc *PassContext, ids []string) error {
	for _, id := range ids {
		scenario, ok := live(pc, id, plan.TypeScenario)
		if !ok || len(pc.Index().ReachableIX(id)) > 0 {
			continue
		}
		for _, reqID := range pc.Index().Children(id, plan.TypeRequirement) {
			if err := s.expandRequirement(pc, plan.PhaseSeed, reqID); err != nil {
				return err
			}
		}
		if len(pc.Index().ReachableIX(id)) > 0 {
			continue
		}

		reqID := requirementID(plan.SlugOf(id))
		if err := s.ensureRequirement(pc, plan.PhaseSeed, reqID, scenario); err != nil {
			return err
		}
		if !pc.Graph.HasOfType(reqID, plan.TypeRequirement) {
			continue
		}
		s.linkScenarioRequirement(pc, plan.PhaseSeed, id, reqID)
		if err := s.expandRequirement(pc, plan.PhaseSeed, reqID); err != nil {
			return err
		}
	}
	return nil
}

// closeExplode mints InteractionSpecs for ChangeSpecs that have none.
func closeExplode(s *Synthesizer, pc *PassContext, ids []string) error {
	for _, id := range ids {
		if err := s.explode(pc, plan.PhaseExplode, id); err != nil {
			return err
		}
	}
	return nil
}

// closeExpand mints or links whichever children a Requirement lacks.
func closeExpand(s *Synthesizer, pc *PassContext, ids []string) error {
	for _, id := range ids {
		if _, ok := live(pc, id, plan.TypeRequirement); !ok {
			continue
		}
		if err := s.expandRequirement(pc, plan.PhaseExpand, id); err != nil {
			return err
		}
	}
	return nil
}

// closeReattach attaches every InteractionSpec not reachable from a
// Scenario. Orphans are recomputed on the overlay so specs minted earlier in
// the pass under an unreachable ChangeSpec are attached too.
func closeReattach(s *Synthesizer, pc *PassContext, ids []string) error {
	candidates := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		candidates[id] = struct{}{}
	}
	reachable := pc.Index().ReachableFromScenarios()
	for _, ix := range pc.Graph.NodesOfType(plan.TypeInteractionSpec) {
		if _, ok := reachable[ix.ID]; !ok && !ix.Retired() {
			candidates[ix.ID] = struct{}{}
		}
	}

	for _, id := range sortedIDs(candidates) {
		if _, ok := live(pc, id, plan.TypeInteractionSpec); !ok {
			continue
		}
		if _, ok := pc.Index().ReachableFromScenarios()[id]; ok {
			continue
		}
		if err := s.reattach(pc, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Synthesizer) reattach(pc *PassContext, ixID string) error {
	const phase = plan.PhaseReattach

	parents := pc.Index().Parents(ixID, plan.TypeChangeSpec)
	if len(parents) == 0 {
		csID := changeSpecID(plan.SlugOf(ixID))
		if err := s.ensureChangeSpec(pc, phase, csID, ""); err != nil {
			return err
		}
		if !pc.Graph.HasOfType(csID, plan.TypeChangeSpec) {
			return nil
		}
		parents = []string{csID}
	}

	for _, csID := range parents {
		s.linkChangeSpecIX(pc, phase, csID, ixID)

		reqs := pc.Index().Parents(csID, plan.TypeRequirement)
		if len(reqs) == 0 {
			reqID := requirementID(plan.SlugOf(csID))
			if err := s.ensureRequirement(pc, phase, reqID, nil); err != nil {
				return err
			}
			if !pc.Graph.HasOfType(reqID, plan.TypeRequirement) {
				continue
			}
			s.linkRequirementChangeSpec(pc, phase, reqID, csID)
			reqs = []string{reqID}
		}

		for _, reqID := range reqs {
			if len(pc.Index().Parents(reqID, plan.TypeScenario)) == 0 {
				scID := scenarioID(plan.SlugOf(reqID))
				req, _ := pc.Graph.Node(reqID)
				if err := s.ensureScenario(pc, phase, scID, req); err != nil {
					return err
				}
				if pc.Graph.HasOfType(scID, plan.TypeScenario) {
					s.linkScenarioRequirement(pc, phase, scID, reqID)
				}
			}
			if err := s.expandRequirement(pc, phase, reqID); err != nil {
				return err
			}
		}

		if _, ok := pc.Index().ReachableFromScenarios()[ixID]; ok {
			return nil
		}
	}
	return nil
}

// closeHardenAPI appends the missing API vocabulary to weak api Contracts.
func closeHardenAPI(s *Synthesizer, pc *PassContext, ids []string) error {
	for _, id := range ids {
		c, ok := live(pc, id, plan.TypeContract)
		if !ok || c.Kind() != plan.ContractAPI {
			continue
		}
		missing := plan.Missing(plan.APIVocabulary, c.Stmt)
		if len(missing) < s.apiWeakMiss {
			continue
		}
		pc.Mutate(plan.PhaseHarden, id, func(n *plan.Node) bool {
			n.Stmt = appendTerms(n.Stmt, missing)
			return true
		})
	}
	return nil
}

// closeHardenData appends missing lifecycle terms to data Contracts that
// mention too few of them.
func closeHardenData(s *Synthesizer, pc *PassContext, _ []string) error {
	for _, c := range pc.Graph.NodesOfType(plan.TypeContract) {
		if c.Retired() || c.Kind() != plan.ContractData {
			continue
		}
		if plan.Mentioned(plan.DataLifecycle, c.Stmt) >= s.dataMinTerms {
			continue
		}
		missing := plan.Missing(plan.DataLifecycle, c.Stmt)
		pc.Mutate(plan.PhaseHarden, c.ID, func(n *plan.Node) bool {
			n.Stmt = appendTerms(n.Stmt, missing)
			return true
		})
	}
	return nil
}

// appendTerms adds labels after the existing text, never rewriting it.
func appendTerms(stmt string, terms []plan.Term) string {
	labels := make([]string, 0, len(terms))
	for _, t := range terms {
		labels = append(labels, t.Label)
	}
	suffix := "(" + strings.Join(labels, ", ") + ")"
	if strings.TrimSpace(stmt) == "" {
		return suffix
	}
	return stmt + " " + suffix
}

// closeGate backfills residual test, security, observability and rollout
// fields on nodes the earlier phases did not produce.
func closeGate(s *Synthesizer, pc *PassContext, _ []string) error {
	const phase = plan.PhaseGate

	for _, sc := range pc.Graph.NodesOfType(plan.TypeScenario) {
		if sc.Retired() || len(pc.Index().ValidTests(sc.ID)) > 0 {
			continue
		}
		if err := s.ensureScenarioTest(pc, phase, sc.ID); err != nil {
			return err
		}
	}

	for _, ix := range pc.Graph.NodesOfType(plan.TypeInteractionSpec) {
		if ix.Retired() || (ix.TestBlockComplete() && ix.SecurityComplete() && ix.ObservabilityComplete()) {
			continue
		}
		op := operationOf(ix.ID)
		var renderErr error
		pc.Mutate(phase, ix.ID, func(n *plan.Node) bool {
			changed := false
			if !n.TestBlockComplete() {
				if n.Test == nil {
					n.Test = plan.Block{}
				}
				renderErr = s.fillTestBlock(n, op)
				changed = true
			}
			if !n.SecurityComplete() {
				if n.Sec == nil {
					n.Sec = plan.Block{}
				}
				changed = fillSecurity(n.Sec) || changed
			}
			if !n.ObservabilityComplete() {
				if n.Obs == nil && n.Observability != nil {
					changed = fillObservability(n.Observability, string(op), "api") || changed
				} else {
					if n.Obs == nil {
						n.Obs = plan.Block{}
					}
					changed = fillObservability(n.Obs, string(op), "api") || changed
				}
			}
			return changed
		})
		if renderErr != nil {
			return renderErr
		}
	}

	for _, comp := range pc.Graph.NodesOfType(plan.TypeComponent) {
		if comp.Retired() || comp.ObservabilityComplete() {
			continue
		}
		pc.Mutate(phase, comp.ID, func(n *plan.Node) bool {
			if n.Observability == nil {
				n.Observability = plan.Block{}
			}
			return fillObservability(n.Observability, plan.SlugOf(n.ID), "component")
		})
	}

	for _, c := range pc.Graph.NodesOfType(plan.TypeContract) {
		if c.Retired() || c.Versioning != "" {
			continue
		}
		pc.Mutate(phase, c.ID, func(n *plan.Node) bool {
			n.Versioning = DefaultVersioning
			return true
		})
	}

	for _, cs := range pc.Graph.NodesOfType(plan.TypeChangeSpec) {
		if cs.Retired() || cs.RolloutFlag != "" {
			continue
		}
		pc.Mutate(phase, cs.ID, func(n *plan.Node) bool {
			n.RolloutFlag = rolloutFlag(n.ID)
			return true
		})
	}
	return nil
}

// closeTopics mints a Scenario for each uncovered topic, in topic order,
// until the floor is reached. The new Scenarios are seeded on the next pass.
func closeTopics(s *Synthesizer, pc *PassContext, _ []string) error {
	covered := plan.CoveredTopics(pc.Graph)
	need := s.topicFloor - len(covered)
	if need <= 0 {
		return nil
	}
	for _, topic := range plan.Topics {
		if need == 0 {
			break
		}
		if plan.Contains(covered, topic.Name) {
			continue
		}
		id := scenarioID("topic-" + topic.Name)
		if pc.Graph.Has(id) {
			continue
		}
		stmt, err := s.render(TmplTopicScenario, View{ID: id, Label: topic.Label})
		if err != nil {
			return err
		}
		pc.AddNode(plan.PhaseGate, &plan.Node{ID: id, Type: plan.TypeScenario, Stmt: stmt, Status: plan.StatusOpen})
		need--
	}
	return nil
}

// operationOf recovers the CRUD operation encoded in a minted
// InteractionSpec id, defaulting to create.
func operationOf(ixID string) plan.Operation {
	for _, op := range []plan.Operation{plan.OpCreate, plan.OpRead, plan.OpUpdate, plan.OpDelete} {
		if strings.Contains(ixID, "-api-"+string(op)+"-") {
			return op
		}
	}
	return plan.OpCreate
}

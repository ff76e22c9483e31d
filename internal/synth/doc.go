// Package synth turns gap sets into ordered batches of graph deltas.
//
// A pass runs a fixed pipeline of stages, one per gap class plus the
// hardening and gate sweeps:
//
//	A seed      S0         requirement chain under unreachable Scenarios
//	B explode   C0         one InteractionSpec per inferred CRUD operation
//	C expand    R0         missing contracts, component and change spec
//	D reattach  IX_orphan  ChangeSpec, Requirement and Scenario above orphans
//	E harden    API_weak   missing API and data-lifecycle vocabulary
//	F gate      -          tests, sec, obs, versioning and rollout flags
//
// Stages work on a PassContext, a private overlay of the loaded graph that
// reflects every delta emitted so far, so later stages see ids minted by
// earlier ones. Minted ids are a pure function of their parent's id, which
// makes a pass over an already repaired graph emit nothing.
//
// Statements for minted nodes come from a Renderer; the default executes
// the embedded text/template files under templates/.
package synth

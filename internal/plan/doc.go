// Package plan provides the plan-graph model shared by every other package.
//
// A plan graph is a set of typed nodes (Scenario, Requirement, Contract,
// Component, ChangeSpec, InteractionSpec, Test, OpenQuestion, Evaluation)
// joined by typed, append-only edges. Nodes carry a small set of well-known
// attributes decoded into typed fields, plus an Extra map holding every
// attribute this package does not recognise. Extra values are kept as raw
// JSON so records written by other tools survive a load/save cycle intact.
//
// plan imports nothing internal. The analyzer, the synthesizer, the stores
// and the engine all depend on it; none of them depend on each other
// through this package.
//
// Key constraints:
//   - ids are "<tag>:<slug>" and are minted deterministically from parents
//   - edges are unique by their (from, to, type) triple
//   - references to missing nodes are absent, never errors
package plan

// Package analyze computes gap sets and invariant proofs over a plan graph.
//
// Both entry points are pure functions of a graph snapshot: Analyze returns
// the six gap classes (S0, R0, C0, IX_orphan, API_weak, Q_open) and Verify
// evaluates the ten completeness invariants P1 to P10. Neither ever fails on
// a dangling reference; a reference to a missing node is simply absent,
// which is what shows up as a gap.
//
// Retired nodes are never reported as gaps, but they still count as
// existing targets of other nodes' references.
package analyze

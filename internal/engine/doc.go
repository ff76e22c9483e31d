// Package engine drives a plan graph to a fixed point.
//
// A Controller owns one repair run. Every pass walks the same states:
//
//	Loading → Analyzing → Synthesizing → Applying → Verifying
//
// and ends in Converged when all ten invariants hold, or Exhausted when a
// pass emits no deltas or the iteration budget runs out. The graph is
// reloaded from the store at the start of every pass and again before
// verifying, because other tools may edit it between passes.
//
// Deltas are applied grouped by op: every add_node first, then add_edge,
// then update_node, keeping emission order inside each group. Edges are
// deduplicated by the store, so the report lists only the mutations that
// actually changed something.
//
// Runs are single-threaded. The context passed to Run is forwarded to every
// store call; the budget is the only limit the controller imposes itself.
package engine

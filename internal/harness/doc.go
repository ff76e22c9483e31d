// Package harness provides conformance testing for the repair controller.
//
// A scenario seeds a plan graph, runs the controller over it with a memory
// store and fixed run ids, and checks the outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	budget: 5
//	rerun: true
//	graph:
//	  nodes:
//	    - { id: "requirement:billing", type: Requirement, stmt: "Billing", contracts: [] }
//	  edges:
//	    - { from: "change:billing", to: "requirement:billing", type: implements }
//	expect:
//	  state: Exhausted
//	  iterations: 2
//	  deltas: 0
//	  failing: [P1, P10]
//	  initial_gaps: { R0: 1 }
//	assertions:
//	  - type: node_exists
//	    ids: ["contract:api-billing"]
//	  - type: added_in_phase
//	    id: "contract:api-billing"
//	    phase: C
//
// Node records use the same flat shape the stores persist and are decoded
// by the same codec, so a fixture is a valid store record.
//
// # Assertion Types
//
//   - node_exists, node_absent: ids present in or missing from the final graph
//   - type_count: number of nodes of node_type
//   - edge_exists: the edge triple is stored
//   - stmt_equals, stmt_prefix, stmt_contains: statement of node id
//   - gap_size: size of a gap class after the final verification
//   - invariant: whether an invariant holds after the final verification
//   - added_in_phase: node id was minted by the given phase
//
// With rerun set, the controller runs a second time over the repaired
// graph and must apply nothing.
//
// # Golden Files
//
// RunWithGolden compares the text report against
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness

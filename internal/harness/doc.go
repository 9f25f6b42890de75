// Package harness runs YAML scenarios against the engine and checks the
// resulting step-event trace.
//
// # Scenario Format
//
//	name: scenario_a_output_bound
//	description: "Output space binds the plan"
//	run_id: run-a
//	steps: 2
//	config:
//	  parallel_card_max_multiplier: 4
//	pool:
//	  capacity: 100
//	  energy: 0
//	recipes:
//	  - id: ae2:inscriber/printed_silicon
//	    inputs:
//	      - accepts: ["ae2:silicon"]
//	        count: 1
//	    output: { kind: "ae2:printed_silicon", count: 1 }
//	    energy: 10
//	    steps: 2
//	nodes:
//	  - id: inscriber-1
//	    machine: ae2:inscriber
//	    inputs:
//	      - { kind: "ae2:silicon", count: 20 }
//	    output: { kind: "ae2:printed_silicon", count: 59 }
//	    energy: 1000
//	    cards: [parallel_card_8x]
//	    network: true
//	assertions:
//	  - type: trace_contains
//	    node: inscriber-1
//	    kind: armed
//	    fields: { resolved: 5, bound: output }
//	  - type: final_state
//	    node: inscriber-1
//	    expect: { output: 64, completed: 1 }
//
// # Assertion Types
//
//   - trace_contains: an event of the kind (and node) whose fields match
//   - trace_order: event kinds appear in this order, gaps allowed
//   - trace_count: exactly N events of the kind (and node)
//   - final_state: node counters after the last step
//   - pool_state: shared pool contents after the last step
//
// # Deterministic Testing
//
// Every run uses a fixed run ID (scenario run_id, or testutil.DefaultRunID)
// and a fresh testutil.DeterministicClock, so the same scenario always
// produces a byte-identical trace for golden comparison. Events are also
// journaled to an in-memory SQLite store and replayed with engine.Replay;
// replay mismatches fail the scenario.
package harness

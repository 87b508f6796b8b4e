// Package harness provides conformance testing for circuit layouts.
//
// The harness loads a circuit layout, drives it for a scripted number of
// ticks (either from a puzzle definition or from inline per-tick inputs),
// and validates the resulting trace.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	layout: layouts/xor.yaml
//	puzzle: puzzles/xor.cue        # either a puzzle ...
//	ticks:                         # ... or an inline drive script
//	  - inputs: { "a.out": 1, "b.out": 0 }
//	  - inputs: { "a.out": 1, "b.out": 1 }
//	assertions:
//	  - type: verdict
//	    verdict: pass
//	  - type: output_at_tick
//	    tick: 0
//	    port: "x.out"
//	    value: 1
//
// Paths are relative to the scenario file location.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - verdict: Verifies the puzzle verdict (pass, mismatch, fault)
//   - output_at_tick: Verifies one output port's value on one tick
//   - fault_at_tick: Verifies a chip fault was reported on one tick
//   - tick_count: Verifies how many ticks were recorded
//
// # Deterministic Testing
//
// Evaluation is fully deterministic, so identical scenarios produce
// identical traces across runs. Golden snapshot comparison builds on
// this: RunWithGolden serializes the trace to canonical JSON and
// compares it against testdata/golden/{name}.golden via goldie.
package harness

// Package verifier drives an evaluator across a scripted sequence of
// external inputs and checks the produced outputs against an expected
// trace. It is the basis for both interactive "run" feedback and headless
// scoring of uploaded circuits.
package verifier

import (
	"fmt"
	"sort"

	"github.com/gridwire/gridwire/internal/circuit"
	"github.com/gridwire/gridwire/internal/engine"
	"github.com/gridwire/gridwire/internal/signal"
)

// TickInputs is the external input assignment for one tick, keyed by
// source output port.
type TickInputs map[circuit.PortID]signal.Value

// Expectation is the expected output values for one tick. Only the ports
// listed are checked; unlisted outputs are unconstrained.
type Expectation map[circuit.PortID]signal.Value

// Script is a fixed, ordered verification script: one input assignment and
// one expectation per tick.
type Script struct {
	// Inputs has one entry per tick.
	Inputs []TickInputs

	// Expected has one entry per tick and must be the same length as
	// Inputs.
	Expected []Expectation

	// Tolerance bounds analog comparisons. Behavior and event values
	// always compare exactly.
	Tolerance float64
}

// Ticks returns the script length.
func (s *Script) Ticks() int { return len(s.Inputs) }

// Verdict is the outcome of a verification run.
type Verdict int

const (
	// VerdictPass means every tick's outputs matched expectations.
	VerdictPass Verdict = iota
	// VerdictMismatch means some tick's outputs diverged; Result carries
	// the first failing tick and its mismatches.
	VerdictMismatch
	// VerdictFault means a chip reported a fault before the script
	// completed.
	VerdictFault
)

// String returns the lowercase verdict name.
func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "pass"
	case VerdictMismatch:
		return "mismatch"
	case VerdictFault:
		return "fault"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Mismatch is one diverging port at the failing tick.
type Mismatch struct {
	Port     circuit.PortID
	Expected signal.Value
	Actual   signal.Value
}

// Result is the outcome of running a script against a circuit.
type Result struct {
	Verdict Verdict

	// FailTick is the first failing tick for mismatch/fault verdicts,
	// -1 on pass.
	FailTick int64

	// Mismatches lists the diverging ports at FailTick, sorted by port.
	Mismatches []Mismatch

	// Fault is the fault report for fault verdicts.
	Fault *engine.FaultReport

	// Trace is the recorded trace up to and including the deciding tick.
	Trace []*engine.TraceForTick
}

// Run builds a fresh evaluator for the graph and drives it across the
// script. The run is deterministic: identical graphs and scripts produce
// identical Results.
//
// A chip fault at tick N decides the run as fault-at-N even when the same
// tick would also have mismatched. Engine errors (a script referencing a
// port that is not in the graph, an internal invariant violation) are
// returned as errors, not verdicts.
func Run(graph *circuit.Graph, script *Script) (*Result, error) {
	if len(script.Inputs) != len(script.Expected) {
		return nil, fmt.Errorf("script has %d input ticks but %d expected ticks",
			len(script.Inputs), len(script.Expected))
	}

	eval := engine.New(graph)
	result := &Result{Verdict: VerdictPass, FailTick: -1}

	for t := 0; t < script.Ticks(); t++ {
		trace, fault, err := eval.Tick(script.Inputs[t])
		if err != nil {
			return nil, fmt.Errorf("tick %d: %w", t, err)
		}
		result.Trace = append(result.Trace, trace)

		if fault != nil {
			result.Verdict = VerdictFault
			result.FailTick = fault.Tick
			result.Fault = fault
			return result, nil
		}

		mismatches, err := compare(trace, script.Expected[t], script.Tolerance)
		if err != nil {
			return nil, fmt.Errorf("tick %d: %w", t, err)
		}
		if len(mismatches) > 0 {
			result.Verdict = VerdictMismatch
			result.FailTick = trace.Tick
			result.Mismatches = mismatches
			return result, nil
		}
	}

	return result, nil
}

// compare checks one tick's trace against its expectation. Ports are
// visited in sorted order so mismatch lists are deterministic.
func compare(trace *engine.TraceForTick, expected Expectation, tolerance float64) ([]Mismatch, error) {
	ports := make([]circuit.PortID, 0, len(expected))
	for p := range expected {
		ports = append(ports, p)
	}
	sort.Slice(ports, func(i, j int) bool {
		if ports[i].Chip != ports[j].Chip {
			return ports[i].Chip < ports[j].Chip
		}
		return ports[i].Port < ports[j].Port
	})

	var mismatches []Mismatch
	for _, p := range ports {
		want := expected[p]
		got, ok := trace.Value(p)
		if !ok {
			return nil, fmt.Errorf("expectation references port %s, which is not an output port", p)
		}
		if !signal.EqualWithin(want, got, tolerance) {
			mismatches = append(mismatches, Mismatch{Port: p, Expected: want, Actual: got})
		}
	}
	return mismatches, nil
}

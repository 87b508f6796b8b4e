package harness

import (
	"fmt"

	"github.com/gridwire/gridwire/internal/chips"
	"github.com/gridwire/gridwire/internal/circuit"
	"github.com/gridwire/gridwire/internal/engine"
	"github.com/gridwire/gridwire/internal/layout"
	"github.com/gridwire/gridwire/internal/puzzle"
	"github.com/gridwire/gridwire/internal/signal"
	"github.com/gridwire/gridwire/internal/verifier"
)

// TraceTick is one tick of a scenario trace, with outputs keyed by
// "chip.port" name. Values are signal values, which serialize to
// canonical JSON.
type TraceTick struct {
	Tick    int64                   `json:"tick"`
	Outputs map[string]signal.Value `json:"outputs"`
}

// FaultEvent records a chip fault observed during the run.
type FaultEvent struct {
	Tick  int64  `json:"tick"`
	Chip  string `json:"chip"`
	Cause string `json:"cause"`
	Fatal bool   `json:"fatal,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success: the run completed and
	// every assertion held.
	Pass bool `json:"pass"`

	// Verdict is the puzzle verdict, set only for puzzle scenarios.
	Verdict string `json:"verdict,omitempty"`

	// Trace contains one entry per evaluated tick.
	Trace []TraceTick `json:"trace"`

	// Faults contains chip faults in tick order.
	Faults []FaultEvent `json:"faults,omitempty"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run executes a scenario: loads the layout, drives the circuit, and
// applies the scenario's assertions. Returns an error only for problems
// with the scenario itself (unreadable files, bad layout, script binding
// failures); mismatches, faults, and failed assertions are reported in
// the Result.
func Run(scenario *Scenario) (*Result, error) {
	circ, err := layout.Load(scenario.Layout, chips.Default())
	if err != nil {
		return nil, fmt.Errorf("loading layout: %w", err)
	}
	graph, err := circ.Build()
	if err != nil {
		return nil, fmt.Errorf("building circuit: %w", err)
	}

	result := &Result{Pass: true}

	if scenario.Puzzle != "" {
		if err := runPuzzle(scenario, circ, graph, result); err != nil {
			return nil, err
		}
	} else {
		if err := runTicks(scenario, circ, graph, result); err != nil {
			return nil, err
		}
	}

	for i, a := range scenario.Assertions {
		if err := applyAssertion(circ, result, a); err != nil {
			result.AddError(fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return result, nil
}

func runPuzzle(scenario *Scenario, circ *layout.Circuit, graph *circuit.Graph, result *Result) error {
	p, err := puzzle.Load(scenario.Puzzle)
	if err != nil {
		return fmt.Errorf("loading puzzle: %w", err)
	}
	script, err := p.Bind(circ)
	if err != nil {
		return fmt.Errorf("binding puzzle: %w", err)
	}

	outcome, err := verifier.Run(graph, script)
	if err != nil {
		return fmt.Errorf("running verifier: %w", err)
	}

	result.Verdict = outcome.Verdict.String()
	for _, trace := range outcome.Trace {
		result.Trace = append(result.Trace, NameTrace(circ, trace))
	}
	if outcome.Fault != nil {
		result.Faults = append(result.Faults, FaultEvent{
			Tick:  outcome.Fault.Tick,
			Chip:  circ.ChipName(outcome.Fault.Chip),
			Cause: outcome.Fault.Cause,
			Fatal: outcome.Fault.Fatal,
		})
	}
	if outcome.Verdict != verifier.VerdictPass {
		result.AddError(fmt.Sprintf("verdict %s at tick %d", outcome.Verdict, outcome.FailTick))
	}
	return nil
}

func runTicks(scenario *Scenario, circ *layout.Circuit, graph *circuit.Graph, result *Result) error {
	eval := engine.New(graph)

	for t, step := range scenario.Ticks {
		inputs, err := bindInputs(circ, step.Inputs)
		if err != nil {
			return fmt.Errorf("tick %d: %w", t, err)
		}

		trace, fault, err := eval.Tick(inputs)
		if fault != nil {
			result.Faults = append(result.Faults, FaultEvent{
				Tick:  fault.Tick,
				Chip:  circ.ChipName(fault.Chip),
				Cause: fault.Cause,
				Fatal: fault.Fatal,
			})
			if fault.Fatal {
				// A fatal fault arrives with the error that caused it.
				// It ends the run but is still a reported outcome, not
				// a scenario problem.
				result.AddError(fmt.Sprintf("tick %d: %v", t, err))
				return nil
			}
		}
		if err != nil {
			return fmt.Errorf("tick %d: %w", t, err)
		}
		result.Trace = append(result.Trace, NameTrace(circ, trace))
	}
	return nil
}

// bindInputs resolves "chip.port" references and converts raw YAML
// scalars into typed signal values.
func bindInputs(circ *layout.Circuit, raw map[string]any) (map[circuit.PortID]signal.Value, error) {
	inputs := make(map[circuit.PortID]signal.Value, len(raw))
	for ref, val := range raw {
		port, err := circ.ResolvePort(ref)
		if err != nil {
			return nil, err
		}
		spec, ok := circ.PortSpec(port)
		if !ok {
			return nil, fmt.Errorf("no port spec for %q", ref)
		}
		typed, err := signal.FromScalar(spec.Kind, val)
		if err != nil {
			return nil, fmt.Errorf("port %q: %w", ref, err)
		}
		inputs[port] = typed
	}
	return inputs, nil
}

// NameTrace converts an engine trace tick to port-name keys.
func NameTrace(circ *layout.Circuit, trace *engine.TraceForTick) TraceTick {
	tt := TraceTick{
		Tick:    trace.Tick,
		Outputs: make(map[string]signal.Value, len(trace.Outputs)),
	}
	for _, pv := range trace.Outputs {
		tt.Outputs[circ.PortName(pv.Port)] = pv.Value
	}
	return tt
}

package harness

import (
	"fmt"
	"strings"

	"github.com/gridwire/gridwire/internal/layout"
	"github.com/gridwire/gridwire/internal/signal"
)

// AssertionError is returned when an assertion fails.
// It includes expected and actual outcomes to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// applyAssertion checks one assertion against a completed run.
func applyAssertion(circ *layout.Circuit, result *Result, a Assertion) error {
	switch a.Type {
	case AssertVerdict:
		return assertVerdict(result, a)
	case AssertOutputAtTick:
		return assertOutputAtTick(circ, result, a)
	case AssertFaultAtTick:
		return assertFaultAtTick(result, a)
	case AssertTickCount:
		return assertTickCount(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertVerdict(result *Result, a Assertion) error {
	if result.Verdict != a.Verdict {
		return &AssertionError{
			Type:     AssertVerdict,
			Expected: a.Verdict,
			Actual:   result.Verdict,
		}
	}
	return nil
}

func assertOutputAtTick(circ *layout.Circuit, result *Result, a Assertion) error {
	trace, ok := traceAt(result, a.Tick)
	if !ok {
		return &AssertionError{
			Type:     AssertOutputAtTick,
			Expected: fmt.Sprintf("a trace entry for tick %d", a.Tick),
			Actual:   fmt.Sprintf("%d ticks recorded", len(result.Trace)),
		}
	}

	port, err := circ.ResolvePort(a.Port)
	if err != nil {
		return err
	}
	spec, ok := circ.PortSpec(port)
	if !ok {
		return fmt.Errorf("no port spec for %q", a.Port)
	}
	want, err := signal.FromScalar(spec.Kind, a.Value)
	if err != nil {
		return fmt.Errorf("port %q: %w", a.Port, err)
	}

	got, ok := trace.Outputs[a.Port]
	if !ok {
		return fmt.Errorf("port %q is not an output in the trace", a.Port)
	}
	if !signal.Equal(want, got) {
		return &AssertionError{
			Type:     AssertOutputAtTick,
			Expected: fmt.Sprintf("%s = %s at tick %d", a.Port, signal.String(want), a.Tick),
			Actual:   signal.String(got),
		}
	}
	return nil
}

func assertFaultAtTick(result *Result, a Assertion) error {
	for _, f := range result.Faults {
		if f.Tick != a.Tick {
			continue
		}
		if a.Chip != "" && f.Chip != a.Chip {
			continue
		}
		if a.Cause != "" && !strings.Contains(f.Cause, a.Cause) {
			continue
		}
		return nil
	}

	return &AssertionError{
		Type:     AssertFaultAtTick,
		Expected: describeFaultExpectation(a),
		Actual:   describeFaults(result.Faults),
	}
}

func assertTickCount(result *Result, a Assertion) error {
	if len(result.Trace) != a.Count {
		return &AssertionError{
			Type:     AssertTickCount,
			Expected: fmt.Sprintf("%d ticks", a.Count),
			Actual:   fmt.Sprintf("%d ticks", len(result.Trace)),
		}
	}
	return nil
}

func traceAt(result *Result, tick int64) (TraceTick, bool) {
	for _, t := range result.Trace {
		if t.Tick == tick {
			return t, true
		}
	}
	return TraceTick{}, false
}

func describeFaultExpectation(a Assertion) string {
	desc := fmt.Sprintf("a fault at tick %d", a.Tick)
	if a.Chip != "" {
		desc += fmt.Sprintf(" from chip %q", a.Chip)
	}
	if a.Cause != "" {
		desc += fmt.Sprintf(" with cause containing %q", a.Cause)
	}
	return desc
}

func describeFaults(faults []FaultEvent) string {
	if len(faults) == 0 {
		return "no faults"
	}
	parts := make([]string, len(faults))
	for i, f := range faults {
		parts[i] = fmt.Sprintf("tick %d: %s: %s", f.Tick, f.Chip, f.Cause)
	}
	return strings.Join(parts, "; ")
}

// Package puzzle compiles puzzle definitions written in CUE into
// verification scripts.
//
// A puzzle names the external inputs to drive on each tick and the output
// values the circuit must produce. Definitions are declarative data; the
// package binds them against a concrete circuit layout to produce a typed
// verifier.Script.
package puzzle

import (
	"fmt"
	"sort"

	"cuelang.org/go/cue"

	"github.com/gridwire/gridwire/internal/circuit"
	"github.com/gridwire/gridwire/internal/signal"
	"github.com/gridwire/gridwire/internal/verifier"
)

// TickValues is one tick's worth of raw scalar assignments, keyed by
// "chip.port" reference. Values are untyped until Bind resolves them
// against a layout.
type TickValues map[string]any

// Puzzle is a compiled puzzle definition. Inputs and Expected always have
// the same length, one entry per tick.
type Puzzle struct {
	Name        string
	Description string

	// Tolerance bounds analog output comparisons. Zero means exact.
	Tolerance float64

	// Ticks is the script length, equal to len(Inputs).
	Ticks int

	Inputs   []TickValues
	Expected []TickValues
}

// CompilePuzzle parses a CUE value into a Puzzle.
//
// The CUE value should be the puzzle struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`puzzle: { name: "xor", ... }`)
//	p, err := CompilePuzzle(v.LookupPath(cue.ParsePath("puzzle")))
func CompilePuzzle(v cue.Value) (*Puzzle, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	p := &Puzzle{}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{
			Field:   "name",
			Message: "name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	p.Name = name

	descVal := v.LookupPath(cue.ParsePath("description"))
	if descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		p.Description = desc
	}

	tolVal := v.LookupPath(cue.ParsePath("tolerance"))
	if tolVal.Exists() {
		tol, err := tolVal.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if tol < 0 {
			return nil, &CompileError{
				Field:   "tolerance",
				Message: "tolerance must be non-negative",
				Pos:     tolVal.Pos(),
			}
		}
		p.Tolerance = tol
	}

	p.Inputs, err = parseTickList(v, "inputs")
	if err != nil {
		return nil, err
	}
	if len(p.Inputs) == 0 {
		return nil, &CompileError{
			Field:   "inputs",
			Message: "at least one input tick is required",
			Pos:     v.Pos(),
		}
	}
	p.Ticks = len(p.Inputs)

	p.Expected, err = parseTickList(v, "expected")
	if err != nil {
		return nil, err
	}
	if len(p.Expected) != p.Ticks {
		return nil, &CompileError{
			Field:   "expected",
			Message: fmt.Sprintf("expected has %d ticks but inputs has %d", len(p.Expected), p.Ticks),
			Pos:     v.Pos(),
		}
	}

	// Optional explicit tick count must agree with the lists.
	ticksVal := v.LookupPath(cue.ParsePath("ticks"))
	if ticksVal.Exists() {
		n, err := ticksVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if int(n) != p.Ticks {
			return nil, &CompileError{
				Field:   "ticks",
				Message: fmt.Sprintf("ticks is %d but inputs has %d entries", n, p.Ticks),
				Pos:     ticksVal.Pos(),
			}
		}
	}

	return p, nil
}

// parseTickList parses a field that is a list of per-tick scalar maps.
// A missing field yields nil; entries may be empty structs for ticks that
// drive or check nothing.
func parseTickList(v cue.Value, field string) ([]TickValues, error) {
	listVal := v.LookupPath(cue.ParsePath(field))
	if !listVal.Exists() {
		return nil, nil
	}

	iter, err := listVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var ticks []TickValues
	for iter.Next() {
		tick, err := parseTickValues(iter.Value(), field)
		if err != nil {
			return nil, err
		}
		ticks = append(ticks, tick)
	}
	return ticks, nil
}

func parseTickValues(v cue.Value, field string) (TickValues, error) {
	fields, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	tick := TickValues{}
	for fields.Next() {
		raw, err := parseScalar(fields.Value())
		if err != nil {
			return nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("port %q: %v", fields.Selector().Unquoted(), err),
				Pos:     fields.Value().Pos(),
			}
		}
		tick[fields.Selector().Unquoted()] = raw
	}
	return tick, nil
}

// parseScalar decodes a CUE leaf into the untyped form signal.FromScalar
// accepts: nil, int64, or float64.
func parseScalar(v cue.Value) (any, error) {
	if v.Null() == nil {
		return nil, nil
	}
	if n, err := v.Int64(); err == nil {
		return n, nil
	}
	if f, err := v.Float64(); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("expected number or null, got %v", v.Kind())
}

// PortResolver maps "chip.port" references to typed ports. The layout
// package's Circuit satisfies it.
type PortResolver interface {
	ResolvePort(ref string) (circuit.PortID, error)
	PortSpec(p circuit.PortID) (circuit.PortSpec, bool)
}

// Bind resolves the puzzle's port references against a circuit layout and
// converts the raw scalars into typed signal values, producing a script
// the verifier can run. Input references must name source chip outputs;
// expected references must name chip outputs to observe.
func (p *Puzzle) Bind(r PortResolver) (*verifier.Script, error) {
	script := &verifier.Script{Tolerance: p.Tolerance}

	for t, tick := range p.Inputs {
		in := verifier.TickInputs{}
		if err := bindTick(r, tick, t, "inputs", func(port circuit.PortID, val signal.Value) {
			in[port] = val
		}); err != nil {
			return nil, err
		}
		script.Inputs = append(script.Inputs, in)
	}

	for t, tick := range p.Expected {
		exp := verifier.Expectation{}
		if err := bindTick(r, tick, t, "expected", func(port circuit.PortID, val signal.Value) {
			exp[port] = val
		}); err != nil {
			return nil, err
		}
		script.Expected = append(script.Expected, exp)
	}

	return script, nil
}

func bindTick(r PortResolver, tick TickValues, t int, field string, set func(circuit.PortID, signal.Value)) error {
	// Sort references so errors surface deterministically.
	refs := make([]string, 0, len(tick))
	for ref := range tick {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	for _, ref := range refs {
		port, err := r.ResolvePort(ref)
		if err != nil {
			return fmt.Errorf("%s tick %d: %w", field, t, err)
		}
		spec, ok := r.PortSpec(port)
		if !ok {
			return fmt.Errorf("%s tick %d: no port spec for %q", field, t, ref)
		}
		if spec.Dir != circuit.Output {
			return fmt.Errorf("%s tick %d: %q is not an output port", field, t, ref)
		}
		val, err := signal.FromScalar(spec.Kind, tick[ref])
		if err != nil {
			return fmt.Errorf("%s tick %d: port %q: %w", field, t, ref, err)
		}
		set(port, val)
	}
	return nil
}

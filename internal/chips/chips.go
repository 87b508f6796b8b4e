// Package chips provides the chip catalog: the registry of chip definitions
// the circuit builder resolves placements against, and the built-in
// definitions the puzzles use.
//
// A definition is one of three closed variants, all dispatched through the
// capability interfaces in the circuit package:
//
//   - combinational: outputs are a pure function of this tick's inputs
//   - sequential: outputs come from last tick's committed state; the state
//     transition sees this tick's inputs
//   - source: outputs are supplied externally with each tick request
//
// The catalog is extensible: embedders register additional definitions on a
// Registry without touching the engine.
package chips

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gridwire/gridwire/internal/circuit"
	"github.com/gridwire/gridwire/internal/signal"
)

// EvalFunc computes a combinational chip's outputs. It receives one value
// per input port, in port order, and returns one value per output port.
type EvalFunc func(in []signal.Value) ([]signal.Value, error)

// Fault is a chip-reported runtime fault: a failure condition the chip
// itself raises during a tick, such as a division chip dividing by zero.
// Faults are recoverable at the engine level; whether one ends the game is
// puzzle policy, decided by the caller.
type Fault struct {
	Cause string
}

// Error implements the error interface.
func (f *Fault) Error() string {
	return "chip fault: " + f.Cause
}

// Faultf creates a Fault with a formatted cause.
func Faultf(format string, args ...any) *Fault {
	return &Fault{Cause: fmt.Sprintf(format, args...)}
}

// AsFault extracts a Fault from an error chain.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

type combDef struct {
	typ   string
	ports []circuit.PortSpec
	eval  EvalFunc
}

func (d *combDef) Type() string              { return d.typ }
func (d *combDef) Ports() []circuit.PortSpec { return d.ports }
func (d *combDef) Sequential() bool          { return false }

func (d *combDef) Evaluate(in []signal.Value) ([]signal.Value, error) {
	return d.eval(in)
}

type seqDef struct {
	typ     string
	ports   []circuit.PortSpec
	initial func() []signal.Value
	outputs func(state []signal.Value) []signal.Value
	next    func(state, in []signal.Value) ([]signal.Value, error)
}

func (d *seqDef) Type() string              { return d.typ }
func (d *seqDef) Ports() []circuit.PortSpec { return d.ports }
func (d *seqDef) Sequential() bool          { return true }

func (d *seqDef) InitialState() []signal.Value { return d.initial() }

func (d *seqDef) Outputs(state []signal.Value) []signal.Value {
	return d.outputs(state)
}

func (d *seqDef) Next(state, in []signal.Value) ([]signal.Value, error) {
	return d.next(state, in)
}

type sourceDef struct {
	typ   string
	ports []circuit.PortSpec
}

func (d *sourceDef) Type() string              { return d.typ }
func (d *sourceDef) Ports() []circuit.PortSpec { return d.ports }
func (d *sourceDef) Sequential() bool          { return false }
func (d *sourceDef) ExternalInput()            {}

// NewCombinational creates a combinational definition.
func NewCombinational(typ string, ports []circuit.PortSpec, eval EvalFunc) circuit.Chip {
	return &combDef{typ: typ, ports: ports, eval: eval}
}

// NewSequential creates a sequential definition.
func NewSequential(
	typ string,
	ports []circuit.PortSpec,
	initial func() []signal.Value,
	outputs func(state []signal.Value) []signal.Value,
	next func(state, in []signal.Value) ([]signal.Value, error),
) circuit.Chip {
	return &seqDef{typ: typ, ports: ports, initial: initial, outputs: outputs, next: next}
}

// NewSource creates an externally driven definition.
func NewSource(typ string, ports []circuit.PortSpec) circuit.Chip {
	return &sourceDef{typ: typ, ports: ports}
}

// Registry maps chip-type tags to definitions. It implements
// circuit.Catalog. The zero value is not usable; construct with NewRegistry
// or Default.
type Registry struct {
	defs map[string]circuit.Chip
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]circuit.Chip)}
}

// Register adds a definition. Registering a duplicate tag is an error.
func (r *Registry) Register(def circuit.Chip) error {
	tag := def.Type()
	if _, dup := r.defs[tag]; dup {
		return fmt.Errorf("chip type %q already registered", tag)
	}
	r.defs[tag] = def
	return nil
}

// Lookup resolves a chip-type tag. Parameterized tags of the form
// "const:<n>" resolve to a constant-output definition without prior
// registration.
func (r *Registry) Lookup(chipType string) (circuit.Chip, bool) {
	if def, ok := r.defs[chipType]; ok {
		return def, true
	}
	if raw, ok := strings.CutPrefix(chipType, "const:"); ok {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, false
		}
		return constDef(chipType, uint32(n)), true
	}
	return nil, false
}

// Types returns the registered tags, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.defs))
	for tag := range r.defs {
		types = append(types, tag)
	}
	sort.Strings(types)
	return types
}

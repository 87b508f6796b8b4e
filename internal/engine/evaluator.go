package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/gridwire/gridwire/internal/circuit"
	"github.com/gridwire/gridwire/internal/signal"
)

// State is the evaluator lifecycle state.
type State int

const (
	// StateIdle means no valid graph is attached.
	StateIdle State = iota
	// StateReady means a valid topological order is available and a tick
	// can be requested.
	StateReady
	// StateEvaluating means a tick is in flight. Never observable from
	// outside: ticks are synchronous.
	StateEvaluating
	// StateFaulted means an internal invariant was violated. Terminal
	// until Reset or a graph rebuild.
	StateFaulted
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateEvaluating:
		return "evaluating"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Evaluator performs per-tick evaluation of one circuit graph.
//
// An Evaluator is exclusively owned: the caller serializes tick requests
// and never interleaves them with graph rebuilds. There is no locking
// because there is no sharing: batch scoring runs one Evaluator per
// circuit per worker.
type Evaluator struct {
	graph *circuit.Graph
	state State
	clock *Clock

	// ports holds the committed value of every output port. Behavior and
	// analog values persist across ticks until redriven; event values are
	// cleared at the start of each tick.
	ports map[circuit.PortID]signal.Value

	// seqState holds each sequential chip's committed internal state.
	seqState map[circuit.ChipID][]signal.Value

	// resolved marks chips whose outputs are valid for the current tick.
	// Reading through a wire from an unresolved chip is an internal
	// invariant violation: the topological order guarantees it never
	// happens on a well-built graph.
	resolved map[circuit.ChipID]bool
}

// New creates an evaluator for the given graph, with all sequential state
// at chip-defined initial values. A nil graph yields an Idle evaluator.
func New(graph *circuit.Graph) *Evaluator {
	e := &Evaluator{
		graph: graph,
		state: StateIdle,
		clock: NewClock(),
	}
	if graph != nil {
		e.initialize()
		e.state = StateReady
	}
	return e
}

// initialize seeds port values and sequential state to their defined
// initial values.
func (e *Evaluator) initialize() {
	e.ports = make(map[circuit.PortID]signal.Value)
	e.seqState = make(map[circuit.ChipID][]signal.Value)
	e.resolved = make(map[circuit.ChipID]bool)

	for _, p := range e.graph.OutputPorts() {
		spec, _ := e.graph.PortSpec(p)
		e.ports[p] = signal.Initial(spec.Kind)
	}
	for _, id := range e.graph.SequentialChips() {
		def, _ := e.graph.Chip(id)
		e.seqState[id] = def.(circuit.Sequential).InitialState()
	}
}

// Reset returns the evaluator to tick 0: sequential state back to initial
// values, all signals cleared. A Faulted evaluator becomes Ready again.
func (e *Evaluator) Reset() {
	if e.graph == nil {
		e.state = StateIdle
		return
	}
	e.initialize()
	e.clock.Reset()
	e.state = StateReady
	slog.Debug("evaluator reset", "chips", e.graph.NumChips())
}

// State returns the evaluator lifecycle state.
func (e *Evaluator) State() State { return e.state }

// TickIndex returns the index of the next tick to be evaluated.
func (e *Evaluator) TickIndex() int64 { return e.clock.Current() }

// Graph returns the attached circuit graph.
func (e *Evaluator) Graph() *circuit.Graph { return e.graph }

// PortValue returns the committed value of any port, for presentation.
// Input ports resolve through their wire to the driving output; an unwired
// input reads its kind's initial value. Only fully committed post-tick
// state is visible here, never mid-tick intermediates.
func (e *Evaluator) PortValue(p circuit.PortID) (signal.Value, bool) {
	if e.graph == nil {
		return nil, false
	}
	spec, ok := e.graph.PortSpec(p)
	if !ok {
		return nil, false
	}
	if spec.Dir == circuit.Output {
		return e.ports[p], true
	}
	src, wired := e.graph.InputSource(p)
	if !wired {
		return signal.Initial(spec.Kind), true
	}
	return e.ports[src], true
}

// Tick evaluates one tick with the given external inputs and returns the
// committed trace plus any fault reported during the tick.
//
// External inputs are keyed by the output ports of source chips. Analog
// inputs are clamped to the legal domain; inputs with the wrong kind or
// keyed by a non-source port are rejected before anything is mutated, so a
// failed call never consumes a tick.
func (e *Evaluator) Tick(inputs map[circuit.PortID]signal.Value) (*TraceForTick, *FaultReport, error) {
	switch e.state {
	case StateFaulted:
		return nil, nil, newFaultedError()
	case StateReady:
		// proceed
	default:
		return nil, nil, newNotReadyError(e.state)
	}

	staged, err := e.stageInputs(inputs)
	if err != nil {
		return nil, nil, err
	}

	e.state = StateEvaluating
	tick := e.clock.Current()
	clear(e.resolved)
	var fault *FaultReport

	// Events are single-tick pulses: every event output starts the tick
	// absent and is present only if (re)driven below.
	for _, p := range e.graph.OutputPorts() {
		spec, _ := e.graph.PortSpec(p)
		if spec.Kind == signal.KindEvent {
			e.ports[p] = signal.Absent{}
		}
	}

	// Source outputs: externally supplied values, with behavior/analog
	// persisting when not redriven this tick.
	for p, v := range staged {
		e.ports[p] = v
	}
	for _, id := range e.graph.SourceChips() {
		e.resolved[id] = true
	}

	// Sequential outputs are a pure function of last tick's committed
	// state, known before evaluation starts.
	for _, id := range e.graph.SequentialChips() {
		def, _ := e.graph.Chip(id)
		outs := def.(circuit.Sequential).Outputs(e.seqState[id])
		if err := e.writeOutputs(id, outs); err != nil {
			return nil, e.fatal(tick, id, err), err
		}
		e.resolved[id] = true
	}

	// Combinational pass in topological order.
	for _, id := range e.graph.CombinationalOrder() {
		in, err := e.gatherInputs(id)
		if err != nil {
			return nil, e.fatal(tick, id, err), err
		}
		def, _ := e.graph.Chip(id)
		outs, evalErr := def.(circuit.Combinational).Evaluate(in)
		if evalErr != nil {
			// Chip-reported fault: the chip drives nothing this tick
			// (behavior outputs persist, events stay absent) and the
			// first fault of the tick is reported.
			if fault == nil {
				fault = &FaultReport{Tick: tick, Chip: id, Cause: evalErr.Error()}
			}
			slog.Debug("chip fault", "tick", tick, "chip", id, "cause", evalErr)
			e.resolved[id] = true
			continue
		}
		if err := e.writeOutputs(id, outs); err != nil {
			return nil, e.fatal(tick, id, err), err
		}
		e.resolved[id] = true
	}

	// Sequential state transitions see this tick's fully resolved inputs.
	// The computed state is invisible until the next tick.
	pending := make(map[circuit.ChipID][]signal.Value, len(e.seqState))
	for _, id := range e.graph.SequentialChips() {
		in, err := e.gatherInputs(id)
		if err != nil {
			return nil, e.fatal(tick, id, err), err
		}
		def, _ := e.graph.Chip(id)
		next, evalErr := def.(circuit.Sequential).Next(e.seqState[id], in)
		if evalErr != nil {
			if fault == nil {
				fault = &FaultReport{Tick: tick, Chip: id, Cause: evalErr.Error()}
			}
			slog.Debug("chip fault", "tick", tick, "chip", id, "cause", evalErr)
			pending[id] = e.seqState[id]
			continue
		}
		pending[id] = next
	}

	// Commit: next states become "last tick's state", the tick counter
	// advances, and the trace snapshots every output port.
	e.seqState = pending
	trace := e.snapshot(tick)
	e.clock.Next()
	e.state = StateReady
	return trace, fault, nil
}

// stageInputs validates external inputs before any mutation. Returns the
// values to apply, with analog clamped.
func (e *Evaluator) stageInputs(inputs map[circuit.PortID]signal.Value) (map[circuit.PortID]signal.Value, error) {
	ports := make([]circuit.PortID, 0, len(inputs))
	for p := range inputs {
		ports = append(ports, p)
	}
	sort.Slice(ports, func(i, j int) bool {
		if ports[i].Chip != ports[j].Chip {
			return ports[i].Chip < ports[j].Chip
		}
		return ports[i].Port < ports[j].Port
	})

	staged := make(map[circuit.PortID]signal.Value, len(inputs))
	for _, p := range ports {
		v := inputs[p]
		spec, ok := e.graph.PortSpec(p)
		if !ok {
			return nil, newBadExternalInputError(p, "port is not in the graph")
		}
		def, _ := e.graph.Chip(p.Chip)
		if _, isSource := def.(circuit.Source); !isSource || spec.Dir != circuit.Output {
			return nil, newBadExternalInputError(p, "port is not an externally drivable source output")
		}
		if v == nil {
			return nil, newBadExternalInputError(p, "nil input value")
		}
		if v.Kind() != spec.Kind {
			return nil, newBadExternalInputError(p,
				fmt.Sprintf("input kind %s does not match port kind %s", v.Kind(), spec.Kind))
		}
		if a, isAnalog := v.(signal.Analog); isAnalog {
			v = signal.Clamp(float64(a))
		}
		staged[p] = v
	}
	return staged, nil
}

// gatherInputs collects one value per input port of the chip, in port
// order, reading through wires to driving outputs. Unwired inputs read
// their kind's initial value.
func (e *Evaluator) gatherInputs(id circuit.ChipID) ([]signal.Value, error) {
	def, ok := e.graph.Chip(id)
	if !ok {
		return nil, newInternalInvariantError(fmt.Sprintf("chip %d not in graph", id))
	}
	specs := def.Ports()
	in := make([]signal.Value, 0, len(specs))
	for i, spec := range specs {
		if spec.Dir != circuit.Input {
			continue
		}
		p := circuit.PortID{Chip: id, Port: i}
		src, wired := e.graph.InputSource(p)
		if !wired {
			in = append(in, signal.Initial(spec.Kind))
			continue
		}
		if !e.resolved[src.Chip] {
			return nil, newInternalInvariantPortError(src,
				"evaluation order read an unresolved combinational output")
		}
		in = append(in, e.ports[src])
	}
	return in, nil
}

// writeOutputs writes a chip's computed values to its output ports. The
// value count and kinds must match the chip's port list; a mismatch is a
// catalog bug surfaced as an internal invariant violation.
func (e *Evaluator) writeOutputs(id circuit.ChipID, outs []signal.Value) error {
	def, _ := e.graph.Chip(id)
	idx := 0
	for i, spec := range def.Ports() {
		if spec.Dir != circuit.Output {
			continue
		}
		if idx >= len(outs) {
			return newInternalInvariantError(
				fmt.Sprintf("chip %d (%s) produced %d outputs, want more", id, def.Type(), len(outs)))
		}
		v := outs[idx]
		idx++
		p := circuit.PortID{Chip: id, Port: i}
		if v == nil || v.Kind() != spec.Kind {
			return newInternalInvariantPortError(p,
				fmt.Sprintf("chip %s produced a value of the wrong kind", def.Type()))
		}
		if a, isAnalog := v.(signal.Analog); isAnalog {
			v = signal.Clamp(float64(a))
		}
		e.ports[p] = v
	}
	if idx != len(outs) {
		return newInternalInvariantError(
			fmt.Sprintf("chip %d (%s) produced %d outputs, want %d", id, def.Type(), len(outs), idx))
	}
	return nil
}

// fatal transitions to Faulted and builds the fatal report. Only internal
// invariant violations land here.
func (e *Evaluator) fatal(tick int64, id circuit.ChipID, err error) *FaultReport {
	e.state = StateFaulted
	slog.Error("evaluator faulted", "tick", tick, "chip", id, "error", err)
	return &FaultReport{Tick: tick, Chip: id, Cause: err.Error(), Fatal: true}
}

// snapshot captures every output port's committed value for the trace.
func (e *Evaluator) snapshot(tick int64) *TraceForTick {
	outs := make([]PortValue, 0, len(e.graph.OutputPorts()))
	for _, p := range e.graph.OutputPorts() {
		outs = append(outs, PortValue{Port: p, Value: e.ports[p]})
	}
	return &TraceForTick{Tick: tick, Outputs: outs}
}

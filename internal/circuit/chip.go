package circuit

import (
	"fmt"

	"github.com/gridwire/gridwire/internal/signal"
)

// ChipID is the stable identifier of a placed chip within one circuit.
// IDs are assigned by the edit layer and never reused within a layout.
type ChipID int32

// PortID identifies one port of one placed chip: (chip id, port index).
// The port index is the position in the chip definition's port list.
type PortID struct {
	Chip ChipID
	Port int
}

// String renders a PortID as "chip:port", e.g. "3:1".
func (p PortID) String() string {
	return fmt.Sprintf("%d:%d", p.Chip, p.Port)
}

// MarshalJSON encodes the PortID in its "chip:port" string form, which is
// what traces and diagnostics use.
func (p PortID) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", p.String())), nil
}

// Direction says whether a port drives or receives.
type Direction int

const (
	// Output ports drive the wires attached to them.
	Output Direction = iota
	// Input ports receive the value of their single connected wire.
	Input
)

// String returns "output" or "input".
func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Flow is the physical orientation of a port on the chip footprint.
// It exists for the presentation layer (wire routing, shader uniforms)
// and has no effect on evaluation.
type Flow int

const (
	FlowNorth Flow = iota
	FlowEast
	FlowSouth
	FlowWest
)

// PortSpec describes one port of a chip definition. The port's kind and
// direction are fixed for the lifetime of any port created from this spec.
type PortSpec struct {
	Name string
	Kind signal.Kind
	Dir  Direction
	Flow Flow
}

// Coord is a grid position.
type Coord struct {
	X, Y int
}

// Orientation is the rotation of a placed chip, in quarter turns.
// Like Flow, it only matters to presentation.
type Orientation int

const (
	Orient0 Orientation = iota
	Orient90
	Orient180
	Orient270
)

// Placement is one chip placed on the grid.
type Placement struct {
	ID     ChipID
	Type   string
	Pos    Coord
	Orient Orientation
}

// Wire connects exactly one Output port to exactly one Input port.
// Fan-out from one output is modeled as multiple wires sharing the same
// source. Build normalizes endpoint order, so after a successful build
// Source is always the driving port.
type Wire struct {
	Source PortID
	Dest   PortID
}

// Chip is the capability every chip definition exposes: a fixed, ordered
// port list plus its evaluation classification. Concrete definitions also
// implement exactly one of Combinational or Sequential (or Source).
type Chip interface {
	// Type returns the chip-type tag, e.g. "not" or "delay".
	Type() string
	// Ports returns the chip's port list. Port indexes in PortIDs refer to
	// positions in this slice.
	Ports() []PortSpec
	// Sequential reports whether the chip carries internal state across
	// ticks. Sequential outputs are a function of last tick's state only,
	// which is what makes feedback loops through them legal.
	Sequential() bool
}

// Combinational chips compute this tick's outputs purely from this tick's
// inputs. Evaluate receives one value per input port (in port order) and
// returns one value per output port (in port order). A returned error is a
// chip-reported runtime fault, not an engine failure.
type Combinational interface {
	Chip
	Evaluate(in []signal.Value) ([]signal.Value, error)
}

// Sequential chips decouple this tick's outputs from this tick's inputs.
// Outputs derives the tick's output values from the state committed at the
// end of the previous tick; Next computes the state to commit for the next
// tick from this tick's resolved inputs.
type Sequential interface {
	Chip
	// InitialState returns the deterministic initial state for a freshly
	// placed chip.
	InitialState() []signal.Value
	// Outputs returns this tick's output values given last tick's state.
	Outputs(state []signal.Value) []signal.Value
	// Next returns the next tick's state. A returned error is a
	// chip-reported runtime fault.
	Next(state []signal.Value, in []signal.Value) ([]signal.Value, error)
}

// Source marks chips whose output ports are driven by external inputs
// supplied with each tick request (player input or puzzle script). Like
// sequential outputs, source outputs are known before evaluation starts,
// so they are not ordering dependencies.
type Source interface {
	Chip
	ExternalInput()
}

// Catalog resolves chip-type tags to definitions. Implemented by
// chips.Registry.
type Catalog interface {
	Lookup(chipType string) (Chip, bool)
}

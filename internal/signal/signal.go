// Package signal defines the values carried on circuit wires.
//
// There are three signal kinds:
//
//   - Behavior: a persistent digital value. It holds its value across ticks
//     until it is redriven. The zero value (0) means "unset/low".
//   - Event: a single-tick pulse. An event is present only on the tick its
//     source chip drove it, and reads as Absent on every other tick.
//   - Analog: a persistent continuous value, clamped to [AnalogMin, AnalogMax]
//     at the point of production. Out-of-range values are never an error.
//
// A port's kind is fixed for its lifetime, and a wire's kind equals the kind
// of both endpoints it connects. Mismatched kinds are a structural error
// caught at graph-build time, so evaluation never has to coerce values.
package signal

import (
	"fmt"
	"strconv"
)

// Kind identifies the signal kind carried by a port or wire.
type Kind int

const (
	// KindBehavior is a persistent digital value.
	KindBehavior Kind = iota
	// KindEvent is a single-tick pulse.
	KindEvent
	// KindAnalog is a persistent continuous value in the legal analog domain.
	KindAnalog
)

// String returns the lowercase kind name used in layouts, puzzles, and traces.
func (k Kind) String() string {
	switch k {
	case KindBehavior:
		return "behavior"
	case KindEvent:
		return "event"
	case KindAnalog:
		return "analog"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Legal analog domain. Values produced outside this range are clamped,
// not rejected.
const (
	AnalogMin = 0.0
	AnalogMax = 1.0
)

// Value is a sealed interface over the signal value types.
// Only Behavior, Event, Absent, and Analog implement it.
type Value interface {
	signalValue() // sealed
	Kind() Kind
}

// Behavior is a persistent digital value.
type Behavior uint32

func (Behavior) signalValue() {}

// Kind returns KindBehavior.
func (Behavior) Kind() Kind { return KindBehavior }

// Event is an event pulse that is present on exactly one tick.
type Event uint32

func (Event) signalValue() {}

// Kind returns KindEvent.
func (Event) Kind() Kind { return KindEvent }

// Absent is the value of an event wire on any tick where its source did not
// emit. It has KindEvent: absence is an observable event-wire state, not a
// missing value.
type Absent struct{}

func (Absent) signalValue() {}

// Kind returns KindEvent.
func (Absent) Kind() Kind { return KindEvent }

// Analog is a persistent continuous value. Construct with Clamp so the
// domain invariant holds everywhere a value is produced.
type Analog float64

func (Analog) signalValue() {}

// Kind returns KindAnalog.
func (Analog) Kind() Kind { return KindAnalog }

// Clamp clamps v to the legal analog domain and returns it as an Analog.
func Clamp(v float64) Analog {
	if v < AnalogMin {
		return Analog(AnalogMin)
	}
	if v > AnalogMax {
		return Analog(AnalogMax)
	}
	return Analog(v)
}

// Initial returns the defined initial value for a signal kind: low for
// behavior, absent for event, and the domain minimum for analog.
func Initial(k Kind) Value {
	switch k {
	case KindBehavior:
		return Behavior(0)
	case KindEvent:
		return Absent{}
	case KindAnalog:
		return Analog(AnalogMin)
	default:
		panic(fmt.Sprintf("signal: unknown kind %d", int(k)))
	}
}

// Equal reports exact equality between two values. Behavior and Event values
// compare by value; Absent equals only Absent; Analog compares bit-exact
// (use EqualWithin for tolerance-bounded comparison).
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Behavior:
		bv, ok := b.(Behavior)
		return ok && av == bv
	case Event:
		bv, ok := b.(Event)
		return ok && av == bv
	case Absent:
		_, ok := b.(Absent)
		return ok
	case Analog:
		bv, ok := b.(Analog)
		return ok && av == bv
	default:
		return false
	}
}

// EqualWithin reports equality with a tolerance applied to analog values.
// Non-analog values compare exactly, matching the puzzle comparison rule:
// exact for behavior/event, tolerance-bounded for analog.
func EqualWithin(a, b Value, tolerance float64) bool {
	av, aok := a.(Analog)
	bv, bok := b.(Analog)
	if aok && bok {
		diff := float64(av) - float64(bv)
		if diff < 0 {
			diff = -diff
		}
		return diff <= tolerance
	}
	return Equal(a, b)
}

// String renders a value the way traces and diagnostics print it.
// Analog values use a fixed precision so output is byte-stable.
func String(v Value) string {
	switch val := v.(type) {
	case Behavior:
		return strconv.FormatUint(uint64(val), 10)
	case Event:
		return "!" + strconv.FormatUint(uint64(val), 10)
	case Absent:
		return "-"
	case Analog:
		return strconv.FormatFloat(float64(val), 'f', 6, 64)
	default:
		return fmt.Sprintf("signal(%v)", v)
	}
}

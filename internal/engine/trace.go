package engine

import (
	"github.com/gridwire/gridwire/internal/circuit"
	"github.com/gridwire/gridwire/internal/signal"
)

// PortValue is one output port's resolved value for one tick.
type PortValue struct {
	Port  circuit.PortID `json:"port"`
	Value signal.Value   `json:"value"`
}

// TraceForTick is the committed result of one tick: every output port's
// resolved value, in (chip ID, port index) order. The ordering is part of
// the contract: two traces of the same circuit are comparable element by
// element, and serialized traces are byte-stable.
type TraceForTick struct {
	Tick    int64       `json:"tick"`
	Outputs []PortValue `json:"outputs"`
}

// Value returns the traced value of the given output port.
func (t *TraceForTick) Value(p circuit.PortID) (signal.Value, bool) {
	for _, pv := range t.Outputs {
		if pv.Port == p {
			return pv.Value, true
		}
	}
	return nil, false
}

// FaultReport describes a chip-reported runtime fault during one tick.
// The engine reports fault occurrence; whether a recoverable fault ends the
// run is puzzle policy, decided by the caller.
type FaultReport struct {
	// Tick is the tick index the fault occurred on.
	Tick int64 `json:"tick"`

	// Chip identifies the faulting chip.
	Chip circuit.ChipID `json:"chip"`

	// Cause is a human-readable cause tag.
	Cause string `json:"cause"`

	// Fatal reports whether the evaluator transitioned to Faulted. Only
	// internal invariant violations are fatal at the engine level.
	Fatal bool `json:"fatal,omitempty"`
}

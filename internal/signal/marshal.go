package signal

import (
	"encoding/json"
	"fmt"
	"math"
)

// JSON encodings are canonical: a given value always serializes to the same
// bytes, so trace snapshots are directly comparable against golden files.
//
//	Behavior(5)  → {"kind":"behavior","value":5}
//	Event(2)     → {"kind":"event","value":2}
//	Absent{}     → {"kind":"event"}
//	Analog(0.25) → {"kind":"analog","value":"0.250000"}
//
// Analog values serialize as fixed-precision strings: encoding/json's float
// formatting is shortest-round-trip, which is stable but unreadable in diffs.

// MarshalJSON implements json.Marshaler.
func (v Behavior) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"kind":"behavior","value":%d}`, uint32(v))), nil
}

// MarshalJSON implements json.Marshaler.
func (v Event) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"kind":"event","value":%d}`, uint32(v))), nil
}

// MarshalJSON implements json.Marshaler.
func (Absent) MarshalJSON() ([]byte, error) {
	return []byte(`{"kind":"event"}`), nil
}

// MarshalJSON implements json.Marshaler.
func (v Analog) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"kind":"analog","value":%q}`, String(v))), nil
}

// FromScalar converts an untyped scalar (as decoded from YAML or CUE) into a
// Value of the given kind. Supported inputs:
//
//   - behavior/event: non-negative integers; nil means Absent for events
//   - analog: floats or integers, clamped to the legal domain
//
// Used by the puzzle compiler and the scenario harness to bind script values
// to typed ports.
func FromScalar(k Kind, raw any) (Value, error) {
	switch k {
	case KindBehavior:
		n, err := scalarUint(raw)
		if err != nil {
			return nil, fmt.Errorf("behavior value: %w", err)
		}
		return Behavior(n), nil

	case KindEvent:
		if raw == nil {
			return Absent{}, nil
		}
		n, err := scalarUint(raw)
		if err != nil {
			return nil, fmt.Errorf("event value: %w", err)
		}
		return Event(n), nil

	case KindAnalog:
		switch n := raw.(type) {
		case float64:
			return Clamp(n), nil
		case float32:
			return Clamp(float64(n)), nil
		case int:
			return Clamp(float64(n)), nil
		case int64:
			return Clamp(float64(n)), nil
		default:
			return nil, fmt.Errorf("analog value: expected number, got %T", raw)
		}

	default:
		return nil, fmt.Errorf("unknown signal kind %d", int(k))
	}
}

func scalarUint(raw any) (uint32, error) {
	var n int64
	switch v := raw.(type) {
	case int:
		n = int64(v)
	case int64:
		n = v
	case uint64:
		if v > math.MaxUint32 {
			return 0, fmt.Errorf("value %d out of range", v)
		}
		return uint32(v), nil
	case json.Number:
		parsed, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("value %q is not an integer", v.String())
		}
		n = parsed
	default:
		return 0, fmt.Errorf("expected integer, got %T", raw)
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("value %d out of range", n)
	}
	return uint32(n), nil
}

package circuit

import (
	"errors"
	"fmt"
	"strings"
)

// StructuralError reports an invalid circuit topology detected while
// building a graph. Structural errors are configuration errors: they are
// found before any tick is evaluated, and the circuit refuses to simulate
// until the layout is corrected.
type StructuralError struct {
	// Code identifies the error category.
	Code StructuralErrorCode `json:"code"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Ports lists the offending ports (kind mismatches, multiple drivers,
	// dangling references).
	Ports []PortID `json:"ports,omitempty"`

	// Chips lists the offending chips (combinational cycles, unknown types).
	Chips []ChipID `json:"chips,omitempty"`
}

// StructuralErrorCode categorizes structural errors.
type StructuralErrorCode string

const (
	// ErrCodeKindMismatch indicates a wire connecting ports of different
	// signal kinds.
	ErrCodeKindMismatch StructuralErrorCode = "KIND_MISMATCH"

	// ErrCodeMultipleDrivers indicates two output ports wired together, or
	// more than one wire driving the same input port.
	ErrCodeMultipleDrivers StructuralErrorCode = "MULTIPLE_DRIVERS"

	// ErrCodeCombinationalCycle indicates a feedback loop made entirely of
	// combinational chips.
	ErrCodeCombinationalCycle StructuralErrorCode = "COMBINATIONAL_CYCLE"

	// ErrCodeDanglingReference indicates a wire endpoint referencing a chip
	// or port that is not in the graph.
	ErrCodeDanglingReference StructuralErrorCode = "DANGLING_REFERENCE"

	// ErrCodeUnknownChipType indicates a placement whose type tag is not in
	// the catalog.
	ErrCodeUnknownChipType StructuralErrorCode = "UNKNOWN_CHIP_TYPE"

	// ErrCodeDuplicateChip indicates two placements sharing a chip ID.
	ErrCodeDuplicateChip StructuralErrorCode = "DUPLICATE_CHIP"
)

// Error implements the error interface.
func (e *StructuralError) Error() string {
	switch {
	case len(e.Ports) > 0:
		return fmt.Sprintf("%s: %s (ports %s)", e.Code, e.Message, joinPorts(e.Ports))
	case len(e.Chips) > 0:
		return fmt.Sprintf("%s: %s (chips %s)", e.Code, e.Message, joinChips(e.Chips))
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func joinPorts(ports []PortID) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

func joinChips(chips []ChipID) string {
	parts := make([]string, len(chips))
	for i, c := range chips {
		parts[i] = fmt.Sprintf("%d", c)
	}
	return strings.Join(parts, ", ")
}

// ErrorList collects every structural error found in one build. All errors
// for a layout are detected and reported together, so the player can fix
// the whole picture instead of whack-a-moling one error per rebuild.
type ErrorList struct {
	Errors []*StructuralError
}

// Error implements the error interface.
func (e *ErrorList) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d structural errors, first: %s", len(e.Errors), e.Errors[0].Error())
}

// StructuralErrors extracts the structural error list from an error returned
// by Build. Returns nil if err is not a build error.
func StructuralErrors(err error) []*StructuralError {
	var list *ErrorList
	if errors.As(err, &list) {
		return list.Errors
	}
	return nil
}

// HasCode reports whether err contains a structural error with the given code.
func HasCode(err error, code StructuralErrorCode) bool {
	for _, se := range StructuralErrors(err) {
		if se.Code == code {
			return true
		}
	}
	return false
}

func newKindMismatchError(a, b PortID) *StructuralError {
	return &StructuralError{
		Code:    ErrCodeKindMismatch,
		Message: "wire connects ports of different signal kinds",
		Ports:   []PortID{a, b},
	}
}

func newMultipleDriversError(ports ...PortID) *StructuralError {
	return &StructuralError{
		Code:    ErrCodeMultipleDrivers,
		Message: "more than one output drives this connection",
		Ports:   ports,
	}
}

func newDanglingReferenceError(port PortID) *StructuralError {
	return &StructuralError{
		Code:    ErrCodeDanglingReference,
		Message: "wire endpoint references a port that is not in the graph",
		Ports:   []PortID{port},
	}
}

func newUnknownChipTypeError(id ChipID, chipType string) *StructuralError {
	return &StructuralError{
		Code:    ErrCodeUnknownChipType,
		Message: fmt.Sprintf("chip type %q is not in the catalog", chipType),
		Chips:   []ChipID{id},
	}
}

func newDuplicateChipError(id ChipID) *StructuralError {
	return &StructuralError{
		Code:    ErrCodeDuplicateChip,
		Message: "chip ID appears more than once",
		Chips:   []ChipID{id},
	}
}

func newCombinationalCycleError(chips []ChipID, path string) *StructuralError {
	return &StructuralError{
		Code:    ErrCodeCombinationalCycle,
		Message: fmt.Sprintf("combinational feedback loop: %s", path),
		Chips:   chips,
	}
}

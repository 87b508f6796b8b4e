package engine

import (
	"errors"
	"fmt"

	"github.com/gridwire/gridwire/internal/circuit"
)

// EngineError represents an error detected while driving the evaluator.
//
// Engine errors are distinct from chip faults: a fault is a puzzle-level
// condition a chip reports (see FaultReport), while an engine error means
// the caller misused the evaluator or the evaluator caught itself violating
// an invariant.
type EngineError struct {
	// Code identifies the error category.
	Code EngineErrorCode

	// Message is a human-readable description.
	Message string

	// Port identifies the offending port, when one is known.
	Port circuit.PortID

	// HasPort reports whether Port is meaningful.
	HasPort bool
}

// EngineErrorCode categorizes engine errors.
type EngineErrorCode string

const (
	// ErrCodeNotReady indicates a tick was requested with no valid graph.
	ErrCodeNotReady EngineErrorCode = "NOT_READY"

	// ErrCodeFaulted indicates a tick was requested after a fatal fault;
	// the evaluator must be reset or the circuit rebuilt.
	ErrCodeFaulted EngineErrorCode = "FAULTED"

	// ErrCodeBadExternalInput indicates an external input keyed by a port
	// that is not an externally drivable port, or carrying the wrong kind.
	ErrCodeBadExternalInput EngineErrorCode = "BAD_EXTERNAL_INPUT"

	// ErrCodeInternalInvariant indicates the evaluator caught itself in an
	// impossible state, e.g. reading an unresolved combinational output.
	// This is an engine bug, never a user error.
	ErrCodeInternalInvariant EngineErrorCode = "INTERNAL_INVARIANT"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.HasPort {
		return fmt.Sprintf("%s: %s (port %s)", e.Code, e.Message, e.Port)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNotReady reports whether err is a NOT_READY engine error.
func IsNotReady(err error) bool { return hasCode(err, ErrCodeNotReady) }

// IsFaulted reports whether err is a FAULTED engine error.
func IsFaulted(err error) bool { return hasCode(err, ErrCodeFaulted) }

// IsBadExternalInput reports whether err is a BAD_EXTERNAL_INPUT engine error.
func IsBadExternalInput(err error) bool { return hasCode(err, ErrCodeBadExternalInput) }

// IsInternalInvariant reports whether err is an INTERNAL_INVARIANT engine error.
func IsInternalInvariant(err error) bool { return hasCode(err, ErrCodeInternalInvariant) }

func hasCode(err error, code EngineErrorCode) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

func newNotReadyError(state State) *EngineError {
	return &EngineError{
		Code:    ErrCodeNotReady,
		Message: fmt.Sprintf("evaluator is %s, not ready to tick", state),
	}
}

func newFaultedError() *EngineError {
	return &EngineError{
		Code:    ErrCodeFaulted,
		Message: "evaluator is faulted; reset or rebuild the circuit",
	}
}

func newBadExternalInputError(port circuit.PortID, message string) *EngineError {
	return &EngineError{
		Code:    ErrCodeBadExternalInput,
		Message: message,
		Port:    port,
		HasPort: true,
	}
}

func newInternalInvariantError(message string) *EngineError {
	return &EngineError{
		Code:    ErrCodeInternalInvariant,
		Message: message,
	}
}

func newInternalInvariantPortError(port circuit.PortID, message string) *EngineError {
	return &EngineError{
		Code:    ErrCodeInternalInvariant,
		Message: message,
		Port:    port,
		HasPort: true,
	}
}

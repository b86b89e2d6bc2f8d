package order

import (
	"errors"
	"fmt"
)

// Domain errors for lifecycle operations. Each outcome code has a sentinel
// so callers can match with errors.Is.
var (
	// ErrInvalidTransition indicates the target is not reachable from the
	// current status for the record's product.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrForbidden indicates the actor may not request this transition.
	ErrForbidden = errors.New("forbidden")

	// ErrGateDenied indicates a compliance gate denied the transition.
	ErrGateDenied = errors.New("gate denied")

	// ErrConflict indicates the record changed since it was read.
	ErrConflict = errors.New("record changed, please refresh")

	// ErrPersistence indicates the backing store failed.
	ErrPersistence = errors.New("persistence error")

	// ErrUnknownProduct indicates the product is not supported.
	ErrUnknownProduct = errors.New("unknown product")

	// ErrInvalidActor indicates the actor is missing an ID or role.
	ErrInvalidActor = errors.New("invalid actor")
)

// Code is the outcome code surfaced to callers of a transition request.
type Code string

// Outcome codes.
const (
	CodeInvalidTransition Code = "InvalidTransition"
	CodeForbidden         Code = "Forbidden"
	CodeGateDenied        Code = "GateDenied"
	CodeConflict          Code = "Conflict"
	CodePersistenceError  Code = "PersistenceError"
)

var codeSentinels = map[Code]error{
	CodeInvalidTransition: ErrInvalidTransition,
	CodeForbidden:         ErrForbidden,
	CodeGateDenied:        ErrGateDenied,
	CodeConflict:          ErrConflict,
	CodePersistenceError:  ErrPersistence,
}

// TransitionError reports why a transition was not applied.
type TransitionError struct {
	Code   Code
	Gate   string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

// Unwrap exposes the code sentinel and the underlying cause.
func (e *TransitionError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := codeSentinels[e.Code]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewTransitionError creates a transition error without an underlying cause.
func NewTransitionError(code Code, reason string) *TransitionError {
	return &TransitionError{Code: code, Reason: reason}
}

// Denied creates a GateDenied error naming the gate that fired.
func Denied(gate, reason string) *TransitionError {
	return &TransitionError{Code: CodeGateDenied, Gate: gate, Reason: reason}
}

// CodeOf extracts the outcome code from err. It returns the empty code
// when err does not carry one.
func CodeOf(err error) Code {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Code
	}
	for code, sentinel := range codeSentinels {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return ""
}

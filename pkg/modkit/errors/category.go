// Package errors defines the error taxonomy shared by every modkit component.
//
// Errors fall into four kinds:
//   - Configuration: malformed declarative metadata (missing plugin id,
//     invalid handler signature, duplicate registration)
//   - AmbiguousInheritance: two incomparable inherited declarations
//   - IllegalState: a loader operation invoked in the wrong phase
//   - Invocation: a lifecycle callable or event handler failed
//
// Every typed error unwraps to the matching sentinel, so callers can use
// errors.Is(err, errors.ErrConfiguration) without knowing the concrete type.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how the runtime treats it.
type Kind int

const (
	// KindUnknown is any error that did not originate in modkit.
	KindUnknown Kind = iota

	// KindConfiguration is fatal to the offending unit only.
	KindConfiguration

	// KindAmbiguousInheritance is fatal to one resolution call.
	// Recoverable by supplying a priority mapping.
	KindAmbiguousInheritance

	// KindIllegalState is a programmer error. Never retried.
	KindIllegalState

	// KindInvocation aborts the remaining steps of the current phase or post.
	KindInvocation
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAmbiguousInheritance:
		return "ambiguous_inheritance"
	case KindIllegalState:
		return "illegal_state"
	case KindInvocation:
		return "invocation"
	default:
		return "unknown"
	}
}

// Sentinel errors, one per kind.
var (
	// ErrConfiguration indicates malformed declarative metadata.
	ErrConfiguration = errors.New("configuration error")

	// ErrAmbiguousInheritance indicates unresolved conflicting inheritance.
	ErrAmbiguousInheritance = errors.New("ambiguous inheritance")

	// ErrInheritanceCycle indicates the parent function describes a cycle.
	ErrInheritanceCycle = errors.New("inheritance cycle")

	// ErrIllegalState indicates an operation invoked in the wrong phase.
	ErrIllegalState = errors.New("illegal state")

	// ErrInvocation indicates a callable or handler failed.
	ErrInvocation = errors.New("invocation failed")
)

// KindOf determines the kind of an error.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrIllegalState):
		return KindIllegalState
	case errors.Is(err, ErrInvocation):
		return KindInvocation
	case errors.Is(err, ErrAmbiguousInheritance), errors.Is(err, ErrInheritanceCycle):
		return KindAmbiguousInheritance
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindUnknown
	}
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsAmbiguous reports whether err is an ambiguous inheritance error.
func IsAmbiguous(err error) bool {
	return errors.Is(err, ErrAmbiguousInheritance)
}

// IsIllegalState reports whether err is an illegal state error.
func IsIllegalState(err error) bool {
	return errors.Is(err, ErrIllegalState)
}

// IsInvocation reports whether err is an invocation error.
func IsInvocation(err error) bool {
	return errors.Is(err, ErrInvocation)
}

// ConfigurationError reports malformed metadata for one unit.
type ConfigurationError struct {
	// Unit identifies the offending unit, event type or module.
	Unit string

	// Reason describes what is wrong.
	Reason string

	// Err is an optional underlying cause.
	Err error
}

// Configuration creates a configuration error for unit.
func Configuration(unit, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{
		Unit:   unit,
		Reason: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error in %s: %s: %v", e.Unit, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error in %s: %s", e.Unit, e.Reason)
}

// Unwrap returns the cause and the ErrConfiguration sentinel.
func (e *ConfigurationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConfiguration, e.Err}
	}
	return []error{ErrConfiguration}
}

// IllegalStateError reports an operation invoked in the wrong phase.
type IllegalStateError struct {
	// Op is the operation that was attempted.
	Op string

	// Phase is the phase the component was in.
	Phase string

	// Expected lists the phases Op is valid in.
	Expected []string
}

// Error implements the error interface.
func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("illegal state: %s called in phase %s (expected %v)", e.Op, e.Phase, e.Expected)
}

// Unwrap returns ErrIllegalState for errors.Is support.
func (e *IllegalStateError) Unwrap() error {
	return ErrIllegalState
}

// InvocationError wraps a failure raised by a lifecycle callable or event handler.
type InvocationError struct {
	// Target names the callable or handler that failed.
	Target string

	// Stage is the phase step or event type during which it failed.
	Stage string

	// Err is the error returned by the target. Nil when it panicked.
	Err error

	// Panic is the value passed to panic(), if any.
	Panic any

	// Stack is the stack trace captured when the target panicked.
	Stack string
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("%s: %s panicked: %v", e.Stage, e.Target, e.Panic)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Target, e.Err)
}

// Unwrap returns the cause and the ErrInvocation sentinel.
func (e *InvocationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvocation, e.Err}
	}
	return []error{ErrInvocation}
}

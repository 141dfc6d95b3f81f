package piper

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrHandlerNotFound is returned when no handler is bound to the
	// (request, response) pair of a sent request.
	ErrHandlerNotFound = errors.New("piper: handler not found")

	// ErrDuplicateHandler is returned by Build when a pair has more than one
	// handler.
	ErrDuplicateHandler = errors.New("piper: duplicate handler binding")

	// ErrContractViolation is returned when a valve does not fit the pair it
	// is attached to.
	ErrContractViolation = errors.New("piper: valve contract violation")

	// ErrNilHandler is returned by Compile and Build for a nil handler.
	ErrNilHandler = errors.New("piper: nil handler")

	// ErrNilRequest is returned by Send for a nil request.
	ErrNilRequest = errors.New("piper: nil request")

	// ErrBuilderSealed is returned when a Builder is used after Build.
	ErrBuilderSealed = errors.New("piper: builder already built")

	// ErrCompileIncomplete is returned for a pair whose pipeline compile
	// was interrupted by a panic.
	ErrCompileIncomplete = errors.New("piper: pipeline compile did not complete")

	// ErrInterfaceRequest is returned by Build when a handler is bound to an
	// interface request type. Send routes on concrete types, so such a
	// handler could never be reached.
	ErrInterfaceRequest = errors.New("piper: request type must be concrete")
)

// HandlerNotFoundError reports a Send or Resolve for an unbound pair.
type HandlerNotFoundError struct {
	Key Key
}

func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrHandlerNotFound, e.Key)
}

func (e *HandlerNotFoundError) Unwrap() error { return ErrHandlerNotFound }

// DuplicateBindingError reports a second handler registered for a pair.
type DuplicateBindingError struct {
	Key Key
}

func (e *DuplicateBindingError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDuplicateHandler, e.Key)
}

func (e *DuplicateBindingError) Unwrap() error { return ErrDuplicateHandler }

// ContractViolationError reports a valve that cannot be attached to a pair.
// Index is the valve's position in the pair's valve list, or -1 when the
// violation is not tied to one position.
type ContractViolationError struct {
	Key    Key
	Index  int
	Valve  reflect.Type
	Reason string
}

func (e *ContractViolationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s: %s", ErrContractViolation, e.Key, e.Reason)
	}
	return fmt.Sprintf("%s: %s: valve %d (%v): %s", ErrContractViolation, e.Key, e.Index, e.Valve, e.Reason)
}

func (e *ContractViolationError) Unwrap() error { return ErrContractViolation }

type compileError struct {
	Key Key
}

func (e *compileError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCompileIncomplete, e.Key)
}

func (e *compileError) Unwrap() error { return ErrCompileIncomplete }

package piper

import (
	"context"
	"reflect"
)

// Pipeline is a compiled handler plus its valves, invocable as a single
// function. Pipelines carry no per-call state and are safe for concurrent
// use.
type Pipeline[R, T any] func(ctx context.Context, req R) (T, error)

// Compile weaves valves around h. The first valve is outermost: it sees the
// request first and its post-processing runs last.
//
//	valves[0](req, next = valves[1](req, next = ... valves[n-1](req, next = h)))
//
// With no valves the result calls h.Handle directly. Compile performs no
// I/O and returns an equivalent pipeline for equal inputs.
//
// Example:
//
//	p, err := piper.Compile[GetUser, *User](handler, logging, auth)
//	if err != nil {
//	    return err
//	}
//	user, err := p(ctx, GetUser{ID: "42"})
func Compile[R, T any](h Handler[R, T], valves ...Valve[R, T]) (Pipeline[R, T], error) {
	if isNilHandler(h) {
		return nil, ErrNilHandler
	}
	for i, v := range valves {
		if isNilValve(v) {
			return nil, &ContractViolationError{
				Key:    KeyOf[R, T](),
				Index:  i,
				Valve:  reflect.TypeOf(v),
				Reason: "nil valve",
			}
		}
	}

	next := Next[R, T](h.Handle)
	for i := len(valves) - 1; i >= 0; i-- {
		next = wrap(valves[i], next)
	}
	return Pipeline[R, T](next), nil
}

// MustCompile is like Compile but panics on error.
func MustCompile[R, T any](h Handler[R, T], valves ...Valve[R, T]) Pipeline[R, T] {
	p, err := Compile(h, valves...)
	if err != nil {
		panic(err)
	}
	return p
}

// wrap binds v to next. It is a separate function so each closure captures
// its own valve and continuation rather than loop variables.
func wrap[R, T any](v Valve[R, T], next Next[R, T]) Next[R, T] {
	return func(ctx context.Context, req R) (T, error) {
		return v.Handle(ctx, req, next)
	}
}

func isNilHandler[R, T any](h Handler[R, T]) bool {
	if h == nil {
		return true
	}
	if f, ok := h.(HandlerFunc[R, T]); ok {
		return f == nil
	}
	return false
}

func isNilValve[R, T any](v Valve[R, T]) bool {
	if v == nil {
		return true
	}
	if f, ok := v.(ValveFunc[R, T]); ok {
		return f == nil
	}
	return false
}

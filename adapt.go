package piper

import (
	"context"
	"fmt"
	"reflect"
)

// Adapt attaches a valve written once against Request[T] to the pipeline
// of a concrete request type R that produces T:
//
//	audit := piper.ValveFunc[piper.Request[*User], *User](func(ctx context.Context, req piper.Request[*User], next piper.Next[piper.Request[*User], *User]) (*User, error) {
//	    log.Printf("%T", req)
//	    return next(ctx, req)
//	})
//	piper.Use[GetUser, *User](b, piper.Adapt[GetUser, *User](audit))
//
// The shared valve may forward a different request value, but it must still
// be an R. Forwarding anything else fails that call with a
// ContractViolationError and the inner stages do not run.
//
// Builder.AddValve applies the same adaptation to erased valves of type
// Valve[Request[T], T].
func Adapt[R Request[T], T any](v Valve[Request[T], T]) Valve[R, T] {
	if isNilValve(v) {
		return nil
	}
	return adapt[R, T](v, KeyOf[R, T](), -1)
}

func adapt[R Request[T], T any](v Valve[Request[T], T], key Key, index int) Valve[R, T] {
	return ValveFunc[R, T](func(ctx context.Context, req R, next Next[R, T]) (T, error) {
		return v.Handle(ctx, req, func(ctx context.Context, fwd Request[T]) (T, error) {
			r, ok := fwd.(R)
			if !ok {
				var zero T
				return zero, &ContractViolationError{
					Key:    key,
					Index:  index,
					Valve:  reflect.TypeOf(v),
					Reason: fmt.Sprintf("forwarded a request of type %T", fwd),
				}
			}
			return next(ctx, r)
		})
	})
}

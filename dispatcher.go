package piper

import (
	"context"
	"errors"
	"time"
)

// Dispatcher sends requests through their compiled pipelines. It is
// created by Builder.Build and is safe for concurrent use.
type Dispatcher struct {
	registry *Registry
	hooks    hooks
}

// Registry returns the dispatcher's frozen registry.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// Send routes req to the pipeline bound to its concrete runtime type and
// response type T, runs it, and returns its result unchanged.
//
// Send does not retry, log, or wrap handler and valve errors. A request
// with no bound handler fails with a HandlerNotFoundError and nothing runs.
//
// Example:
//
//	user, err := piper.Send(ctx, d, GetUser{ID: "42"})
//	if errors.Is(err, piper.ErrHandlerNotFound) {
//	    // configuration bug
//	}
//
// The response type is inferred from the request's Returns marker; it can
// also be given explicitly: piper.Send[*User](ctx, d, q).
func Send[T any](ctx context.Context, d *Dispatcher, req Request[T]) (T, error) {
	var zero T
	if req == nil {
		return zero, ErrNilRequest
	}

	key := keyFor(req)
	rt, err := d.registry.resolve(key)
	if err != nil {
		if errors.Is(err, ErrHandlerNotFound) {
			d.hooks.callOnNoHandler(ctx, key)
		}
		return zero, err
	}

	send, ok := rt.send.(func(context.Context, Request[T]) (T, error))
	if !ok {
		return zero, &compileError{Key: key}
	}

	if !d.hooks.timed() {
		return send(ctx, req)
	}

	ctx = d.hooks.callOnDispatch(ctx, key)
	start := time.Now()
	resp, err := send(ctx, req)
	duration := time.Since(start)

	if err != nil {
		d.hooks.callOnFailure(ctx, key, err, duration)
	} else {
		d.hooks.callOnSuccess(ctx, key, duration)
	}
	return resp, err
}

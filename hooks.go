package piper

import (
	"context"
	"time"
)

// OnDispatchFunc is called after a pipeline is resolved and just before it
// runs. Use this to enrich the context with logging fields or trace spans.
// The returned context is passed to the pipeline.
type OnDispatchFunc func(ctx context.Context, key Key) context.Context

// OnSuccessFunc is called after a pipeline returns without error.
type OnSuccessFunc func(ctx context.Context, key Key, duration time.Duration)

// OnFailureFunc is called after a pipeline returns an error. The error is
// returned to the caller unchanged regardless of what the hook does.
type OnFailureFunc func(ctx context.Context, key Key, err error, duration time.Duration)

// OnNoHandlerFunc is called when a request is sent for an unbound pair.
type OnNoHandlerFunc func(ctx context.Context, key Key)

// OnCompileFunc is called once per pair when its pipeline is compiled, with
// the number of valves and the compile error, if any.
type OnCompileFunc func(key Key, valves int, err error)

// hooks holds all configured hook functions.
type hooks struct {
	onDispatch  []OnDispatchFunc
	onSuccess   []OnSuccessFunc
	onFailure   []OnFailureFunc
	onNoHandler []OnNoHandlerFunc
	onCompile   []OnCompileFunc
}

// timed reports whether any hook needs the pipeline's duration.
func (h *hooks) timed() bool {
	return len(h.onDispatch) > 0 || len(h.onSuccess) > 0 || len(h.onFailure) > 0
}

// WithOnDispatch adds a hook called just before a pipeline runs.
// Multiple hooks are called in order, with context chaining through each.
//
// Example:
//
//	piper.WithOnDispatch(func(ctx context.Context, key piper.Key) context.Context {
//	    return logx.WithCtx(ctx, zap.Stringer("request", key.Request))
//	})
func WithOnDispatch(fn OnDispatchFunc) Option {
	return func(b *Builder) {
		b.hooks.onDispatch = append(b.hooks.onDispatch, fn)
	}
}

// WithOnSuccess adds a hook called after a pipeline succeeds.
// Multiple hooks are called in order.
//
// Example:
//
//	piper.WithOnSuccess(func(ctx context.Context, key piper.Key, d time.Duration) {
//	    metrics.Timing("piper.success", d, "request:"+key.Request.String())
//	})
func WithOnSuccess(fn OnSuccessFunc) Option {
	return func(b *Builder) {
		b.hooks.onSuccess = append(b.hooks.onSuccess, fn)
	}
}

// WithOnFailure adds a hook called after a pipeline fails.
// Multiple hooks are called in order.
//
// Example:
//
//	piper.WithOnFailure(func(ctx context.Context, key piper.Key, err error, d time.Duration) {
//	    metrics.Incr("piper.failure", "request:"+key.Request.String())
//	})
func WithOnFailure(fn OnFailureFunc) Option {
	return func(b *Builder) {
		b.hooks.onFailure = append(b.hooks.onFailure, fn)
	}
}

// WithOnNoHandler adds a hook called when a request has no bound handler.
// Send still returns a HandlerNotFoundError.
func WithOnNoHandler(fn OnNoHandlerFunc) Option {
	return func(b *Builder) {
		b.hooks.onNoHandler = append(b.hooks.onNoHandler, fn)
	}
}

// WithOnCompile adds a hook called when a pipeline is compiled. For eager
// builders this happens inside Build; for lazy builders on first resolve.
func WithOnCompile(fn OnCompileFunc) Option {
	return func(b *Builder) {
		b.hooks.onCompile = append(b.hooks.onCompile, fn)
	}
}

func (h *hooks) callOnDispatch(ctx context.Context, key Key) context.Context {
	for _, fn := range h.onDispatch {
		ctx = fn(ctx, key)
	}
	return ctx
}

func (h *hooks) callOnSuccess(ctx context.Context, key Key, d time.Duration) {
	for _, fn := range h.onSuccess {
		fn(ctx, key, d)
	}
}

func (h *hooks) callOnFailure(ctx context.Context, key Key, err error, d time.Duration) {
	for _, fn := range h.onFailure {
		fn(ctx, key, err, d)
	}
}

func (h *hooks) callOnNoHandler(ctx context.Context, key Key) {
	for _, fn := range h.onNoHandler {
		fn(ctx, key)
	}
}

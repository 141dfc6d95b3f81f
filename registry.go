package piper

import (
	"context"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"
)

// binding is a handler whose request and response types have been erased so
// bindings for different pairs can share one map. The typed implementation
// recovers the types and compiles the pipeline.
type binding interface {
	compile(key Key, valves []any) (pipe, send any, err error)
}

type handlerBinding[R Request[T], T any] struct {
	h Handler[R, T]
}

func (b handlerBinding[R, T]) compile(key Key, valves []any) (any, any, error) {
	typed := make([]Valve[R, T], 0, len(valves))
	for i, v := range valves {
		tv, ok := asValve[R, T](v, key, i)
		if !ok {
			return nil, nil, &ContractViolationError{
				Key:    key,
				Index:  i,
				Valve:  reflect.TypeOf(v),
				Reason: "does not implement Valve for this pair",
			}
		}
		typed = append(typed, tv)
	}

	p, err := Compile(b.h, typed...)
	if err != nil {
		return nil, nil, err
	}

	// send is looked up by the dispatcher, which only knows T. The assertion
	// cannot fail because routes are keyed by the runtime request type.
	send := func(ctx context.Context, req Request[T]) (T, error) {
		return p(ctx, req.(R))
	}
	return p, send, nil
}

// asValve accepts a Valve or a bare valve function for the pair, or a valve
// shared by every request producing T.
func asValve[R Request[T], T any](v any, key Key, index int) (Valve[R, T], bool) {
	switch v := v.(type) {
	case nil:
		return nil, false
	case Valve[R, T]:
		return v, true
	case func(context.Context, R, Next[R, T]) (T, error):
		if v == nil {
			return nil, false
		}
		return ValveFunc[R, T](v), true
	case Valve[Request[T], T]:
		if isNilValve(v) {
			return nil, false
		}
		return adapt[R, T](v, key, index), true
	}
	return nil, false
}

// route is the registry entry for one key. The pipeline is compiled at most
// once: inside Build for eager registries, on first resolve for lazy ones.
type route struct {
	key     Key
	binding binding
	valves  []any

	once sync.Once
	pipe any // Pipeline[R, T]
	send any // func(context.Context, Request[T]) (T, error)
	err  error
}

func (rt *route) compile(reg *Registry) error {
	rt.once.Do(func() {
		// Left in place if compile panics.
		rt.err = &compileError{Key: rt.key}

		start := time.Now()
		rt.pipe, rt.send, rt.err = rt.binding.compile(rt.key, rt.valves)
		d := time.Since(start)

		for _, fn := range reg.onCompile {
			fn(rt.key, len(rt.valves), rt.err)
		}
		if rt.err == nil {
			reg.logger.Debug("pipeline compiled",
				zap.Stringer("key", rt.key),
				zap.Int("valves", len(rt.valves)),
				zap.Duration("duration", d),
			)
		}
	})
	return rt.err
}

// Registry maps keys to compiled pipelines. It is frozen when Build returns
// and is safe for concurrent use from then on.
type Registry struct {
	routes    map[Key]*route
	keys      []Key
	lazy      bool
	logger    *zap.Logger
	onCompile []OnCompileFunc
}

// Len returns the number of bound pairs.
func (r *Registry) Len() int {
	return len(r.routes)
}

// Has reports whether a handler is bound to key.
func (r *Registry) Has(key Key) bool {
	_, ok := r.routes[key]
	return ok
}

// Keys returns the bound keys in registration order.
func (r *Registry) Keys() []Key {
	out := make([]Key, len(r.keys))
	copy(out, r.keys)
	return out
}

// Lazy reports whether pipelines are compiled on first use.
func (r *Registry) Lazy() bool {
	return r.lazy
}

// resolve returns the compiled route for key.
func (r *Registry) resolve(key Key) (*route, error) {
	rt, ok := r.routes[key]
	if !ok {
		return nil, &HandlerNotFoundError{Key: key}
	}
	if err := rt.compile(r); err != nil {
		return nil, err
	}
	return rt, nil
}

// Resolve returns the compiled pipeline for request type R and response
// type T. Resolving the same pair twice yields the same pipeline.
//
// Example:
//
//	p, err := piper.Resolve[GetUser, *User](d.Registry())
//	if err != nil {
//	    return err
//	}
//	user, err := p(ctx, GetUser{ID: "42"})
func Resolve[R Request[T], T any](reg *Registry) (Pipeline[R, T], error) {
	rt, err := reg.resolve(KeyOf[R, T]())
	if err != nil {
		return nil, err
	}
	p, ok := rt.pipe.(Pipeline[R, T])
	if !ok {
		return nil, &compileError{Key: rt.key}
	}
	return p, nil
}

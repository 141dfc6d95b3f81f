package piper

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Builder assembles handler and valve bindings into a Dispatcher.
//
// Usage:
//  1. Create a builder with New
//  2. Bind handlers with Handle or HandleFunc
//  3. Attach valves with Use, UseFunc, or AddValve
//  4. Call Build
//
// Builder is not safe for concurrent use. Configuration errors are collected
// and returned together by Build.
type Builder struct {
	bindings   map[Key]binding
	order      []Key
	valves     map[Key][]any
	valveOrder []Key

	errs   error
	sealed bool

	lazy   bool
	logger *zap.Logger
	hooks  hooks
}

// Option configures a Builder.
type Option func(*Builder)

// New creates a Builder with the given options.
//
// Example:
//
//	b := piper.New(
//	    piper.WithLogger(logger),
//	    piper.WithOnFailure(func(ctx context.Context, key piper.Key, err error, d time.Duration) {
//	        failures.WithLabelValues(key.String()).Inc()
//	    }),
//	)
func New(opts ...Option) *Builder {
	b := &Builder{
		bindings: make(map[Key]binding),
		valves:   make(map[Key][]any),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithLogger sets the logger used for build-time events. The dispatcher
// never logs request outcomes; use valve.Logging or hooks for that.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithLazy defers compiling each pipeline until its first resolve. Valve
// contract violations are then reported by that resolve instead of Build.
func WithLazy() Option {
	return func(b *Builder) {
		b.lazy = true
	}
}

// WithConfig applies the dispatcher settings from cfg.
func WithConfig(cfg Config) Option {
	return func(b *Builder) {
		b.lazy = cfg.Lazy
	}
}

// Handle binds h as the handler for request type R and response type T.
// Binding a second handler to the same pair makes Build fail with a
// DuplicateBindingError. R must be a concrete type; an interface R makes
// Build fail with ErrInterfaceRequest.
//
// This is a package-level function (not a method) due to Go generics
// limitations: methods cannot have type parameters independent of the
// receiver.
//
// Example:
//
//	piper.Handle[GetUser, *User](b, &GetUserHandler{db: db})
func Handle[R Request[T], T any](b *Builder, h Handler[R, T]) {
	key := KeyOf[R, T]()
	if !b.open() {
		return
	}
	if isNilHandler(h) {
		b.fail(fmt.Errorf("%w: %s", ErrNilHandler, key))
		return
	}
	if key.Request.Kind() == reflect.Interface {
		b.fail(fmt.Errorf("%w: %s", ErrInterfaceRequest, key))
		return
	}
	if _, ok := b.bindings[key]; ok {
		b.fail(&DuplicateBindingError{Key: key})
		return
	}
	b.bindings[key] = handlerBinding[R, T]{h: h}
	b.order = append(b.order, key)
}

// HandleFunc is a convenience function for binding a handler function.
//
// Example:
//
//	piper.HandleFunc(b, func(ctx context.Context, p Ping) (Pong, error) {
//	    return Pong{}, nil
//	})
func HandleFunc[R Request[T], T any](b *Builder, fn func(ctx context.Context, req R) (T, error)) {
	Handle[R, T](b, HandlerFunc[R, T](fn))
}

// Use appends valves to the pipeline of request type R and response type T.
// Valves run in the order they are added across all Use calls.
//
// Example:
//
//	piper.Use[GetUser, *User](b,
//	    valve.Logging[GetUser, *User](logger),
//	    valve.Validate[GetUser, *User](),
//	)
func Use[R Request[T], T any](b *Builder, valves ...Valve[R, T]) {
	key := KeyOf[R, T]()
	for _, v := range valves {
		b.addValve(key, v)
	}
}

// UseFunc is a convenience function for appending a valve function.
func UseFunc[R Request[T], T any](b *Builder, fn func(ctx context.Context, req R, next Next[R, T]) (T, error)) {
	Use[R, T](b, ValveFunc[R, T](fn))
}

// AddValve appends a type-erased valve to the pipeline for key. It is the
// entry point for valves supplied by a surrounding system as plain values.
// v must be a Valve[R, T] (or a func(context.Context, R, Next[R, T]) (T, error))
// for the key's pair, or a Valve[Request[T], T] shared by every request
// producing T (see Adapt); anything else makes Build (or, for lazy builders, the
// first resolve) fail with a ContractViolationError.
func (b *Builder) AddValve(key Key, v any) {
	b.addValve(key, v)
}

func (b *Builder) addValve(key Key, v any) {
	if !b.open() {
		return
	}
	if _, ok := b.valves[key]; !ok {
		b.valveOrder = append(b.valveOrder, key)
	}
	b.valves[key] = append(b.valves[key], v)
}

func (b *Builder) open() bool {
	if b.sealed {
		b.fail(ErrBuilderSealed)
		return false
	}
	return true
}

func (b *Builder) fail(err error) {
	b.errs = multierr.Append(b.errs, err)
}

// Build freezes the bindings into a Registry and returns a Dispatcher.
// Unless the builder is lazy every pipeline is compiled here, so valve
// contract violations surface before any request is sent.
//
// All configuration errors are returned together; inspect them with
// errors.Is, errors.As, or multierr.Errors. A builder can be built once.
func (b *Builder) Build() (*Dispatcher, error) {
	if b.sealed {
		return nil, ErrBuilderSealed
	}
	b.sealed = true

	errs := b.errs
	for _, key := range b.valveOrder {
		if _, ok := b.bindings[key]; !ok {
			errs = multierr.Append(errs, &ContractViolationError{
				Key:    key,
				Index:  -1,
				Reason: fmt.Sprintf("%d valve(s) attached to a pair with no handler", len(b.valves[key])),
			})
		}
	}

	reg := &Registry{
		routes:    make(map[Key]*route, len(b.order)),
		keys:      append([]Key(nil), b.order...),
		lazy:      b.lazy,
		logger:    b.logger,
		onCompile: b.hooks.onCompile,
	}
	for _, key := range b.order {
		reg.routes[key] = &route{
			key:     key,
			binding: b.bindings[key],
			valves:  append([]any(nil), b.valves[key]...),
		}
	}

	if !b.lazy {
		for _, key := range b.order {
			errs = multierr.Append(errs, reg.routes[key].compile(reg))
		}
	}

	if errs != nil {
		return nil, errs
	}

	b.logger.Debug("dispatcher built",
		zap.Int("routes", reg.Len()),
		zap.Bool("lazy", b.lazy),
	)
	return &Dispatcher{registry: reg, hooks: b.hooks}, nil
}

package piper

import (
	"context"
)

// Request is implemented by every request type. The type parameter T is the
// response type the request produces, so a request always carries its
// response type with it.
//
// Request types declare their response by embedding Returns:
//
//	type GetUser struct {
//	    piper.Returns[*User]
//	    ID string
//	}
//
// Both GetUser and *GetUser satisfy Request[*User]. They are distinct
// routing keys: the dispatcher routes on the concrete type the caller sends.
//
// The interface has an unexported method, so embedding Returns is the only
// way to implement it.
type Request[T any] interface {
	response() T
}

// Returns is a zero-size marker that binds a request type to its response
// type T. Embed it in request structs.
type Returns[T any] struct{}

func (Returns[T]) response() T {
	var zero T
	return zero
}

// Handler is the terminal stage of a pipeline. Exactly one handler is bound
// to each (request, response) pair.
//
// Example:
//
//	type GetUserHandler struct {
//	    db *sql.DB
//	}
//
//	func (h *GetUserHandler) Handle(ctx context.Context, q GetUser) (*User, error) {
//	    return loadUser(ctx, h.db, q.ID)
//	}
type Handler[R, T any] interface {
	Handle(ctx context.Context, req R) (T, error)
}

// HandlerFunc is a function adapter for Handler. Use for simple handlers
// that don't need a struct:
//
//	piper.HandleFunc(b, func(ctx context.Context, q GetUser) (*User, error) {
//	    return &User{ID: q.ID}, nil
//	})
type HandlerFunc[R, T any] func(ctx context.Context, req R) (T, error)

// Handle implements the Handler interface.
func (f HandlerFunc[R, T]) Handle(ctx context.Context, req R) (T, error) {
	return f(ctx, req)
}

// Next invokes the remainder of a pipeline: every valve further in, then
// the handler. The request passed to Next is the one downstream stages see.
//
// Next holds no per-call state. A valve may call it once (pass-through),
// not at all (short-circuit), or several times (each call re-runs the inner
// stages and the handler).
type Next[R, T any] func(ctx context.Context, req R) (T, error)

// Valve is a middleware stage wrapped around a handler. Valves run in
// registration order on the way in and in reverse order on the way out.
//
// Example:
//
//	type auditValve struct {
//	    log *zap.Logger
//	}
//
//	func (v *auditValve) Handle(ctx context.Context, q GetUser, next piper.Next[GetUser, *User]) (*User, error) {
//	    v.log.Info("get user", zap.String("id", q.ID))
//	    return next(ctx, q)
//	}
type Valve[R, T any] interface {
	Handle(ctx context.Context, req R, next Next[R, T]) (T, error)
}

// ValveFunc is a function adapter for Valve:
//
//	piper.UseFunc(b, func(ctx context.Context, q GetUser, next piper.Next[GetUser, *User]) (*User, error) {
//	    q.ID = strings.TrimSpace(q.ID)
//	    return next(ctx, q)
//	})
type ValveFunc[R, T any] func(ctx context.Context, req R, next Next[R, T]) (T, error)

// Handle implements the Valve interface.
func (f ValveFunc[R, T]) Handle(ctx context.Context, req R, next Next[R, T]) (T, error) {
	return f(ctx, req, next)
}

package valve

import (
	"context"

	"github.com/bjaus/piper"
	"github.com/google/uuid"
)

type correlationKey struct{}

// Correlate returns a valve that stores a new UUID correlation ID in the
// context unless the context already carries one.
func Correlate[R, T any]() piper.Valve[R, T] {
	return piper.ValveFunc[R, T](func(ctx context.Context, req R, next piper.Next[R, T]) (T, error) {
		if CorrelationID(ctx) == "" {
			ctx = WithCorrelationID(ctx, uuid.NewString())
		}
		return next(ctx, req)
	})
}

// WithCorrelationID returns a copy of ctx carrying id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation ID in ctx, or "" if there is none.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

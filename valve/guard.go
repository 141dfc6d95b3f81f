package valve

import (
	"context"
	"errors"

	"github.com/bjaus/piper"
)

// ErrForbidden is a convenience error for guards that deny a request.
var ErrForbidden = errors.New("forbidden")

// Guard returns an authorization valve. check runs before inner stages; a
// non-nil error short-circuits the pipeline with that error.
//
// Example:
//
//	valve.Guard[DeleteUser, bool](func(ctx context.Context, q DeleteUser) error {
//	    if !auth.IsAdmin(ctx) {
//	        return valve.ErrForbidden
//	    }
//	    return nil
//	})
func Guard[R, T any](check func(ctx context.Context, req R) error) piper.Valve[R, T] {
	return piper.ValveFunc[R, T](func(ctx context.Context, req R, next piper.Next[R, T]) (T, error) {
		if err := check(ctx, req); err != nil {
			var zero T
			return zero, err
		}
		return next(ctx, req)
	})
}

package valve

import (
	"context"
	"time"

	"github.com/bjaus/piper"
)

// Timeout returns a valve that runs inner stages under a context deadline
// of d. Stages must observe ctx for the deadline to take effect; Timeout
// does not abandon a stage that ignores it.
func Timeout[R, T any](d time.Duration) piper.Valve[R, T] {
	return piper.ValveFunc[R, T](func(ctx context.Context, req R, next piper.Next[R, T]) (T, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next(ctx, req)
	})
}

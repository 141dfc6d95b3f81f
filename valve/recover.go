package valve

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/bjaus/piper"
	"go.uber.org/zap"
)

// PanicError is returned by the Recover valve when an inner stage panics.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Recover returns a valve that turns a panic in any inner stage into a
// *PanicError and logs it with the stack. Stages outside Recover are not
// covered, so add it early.
func Recover[R, T any](logger *zap.Logger) piper.Valve[R, T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	key := piper.KeyOf[R, T]()
	return piper.ValveFunc[R, T](func(ctx context.Context, req R, next piper.Next[R, T]) (resp T, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				stack := debug.Stack()
				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.Stringer("key", key),
					zap.ByteString("stack", stack),
				)
				var zero T
				resp, err = zero, &PanicError{Value: rec, Stack: stack}
			}
		}()
		return next(ctx, req)
	})
}

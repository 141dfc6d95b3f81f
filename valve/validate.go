package valve

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/bjaus/piper"
)

// validatable is the interface for request validation.
// Compatible with github.com/go-ozzo/ozzo-validation/v4.
type validatable interface {
	Validate() error
}

// ValidationError wraps the error returned by a request's Validate method.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return fmt.Sprintf("validate request: %v", e.Err) }
func (e *ValidationError) Unwrap() error { return e.Err }

var errNilRequest = errors.New("nil request")

// Validate returns a valve that calls Validate() on requests implementing
// it (on the value or its address) and short-circuits with a
// *ValidationError when it fails. A nil pointer request of a validating
// type is rejected without calling Validate.
func Validate[R, T any]() piper.Valve[R, T] {
	return piper.ValveFunc[R, T](func(ctx context.Context, req R, next piper.Next[R, T]) (T, error) {
		var err error
		if v, ok := any(req).(validatable); ok {
			if isNilPointer(req) {
				err = errNilRequest
			} else {
				err = v.Validate()
			}
		} else if v, ok := any(&req).(validatable); ok {
			err = v.Validate()
		}
		if err != nil {
			var zero T
			return zero, &ValidationError{Err: err}
		}
		return next(ctx, req)
	})
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

package piper

import (
	"context"
)

// When returns a valve that runs v only for requests matching d, viewed
// through JSONInspector. Non-matching requests go straight to next.
//
// Example:
//
//	piper.Use[CreateOrder, *Order](b,
//	    piper.When(piper.FieldEquals("channel", "partner"), partnerAuth),
//	)
//
// When returns nil if v is nil, so Build reports the missing valve.
func When[R, T any](d Discriminator, v Valve[R, T]) Valve[R, T] {
	return WhenWith(JSONInspector(), d, v)
}

// WhenWith is like When but uses the given inspector. A request the
// inspector cannot view is treated as not matching.
func WhenWith[R, T any](insp Inspector, d Discriminator, v Valve[R, T]) Valve[R, T] {
	if isNilValve(v) {
		return nil
	}
	return ValveFunc[R, T](func(ctx context.Context, req R, next Next[R, T]) (T, error) {
		view, err := insp.Inspect(req)
		if err != nil || !d.Match(view) {
			return next(ctx, req)
		}
		return v.Handle(ctx, req, next)
	})
}

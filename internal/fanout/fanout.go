// Package fanout runs independent I/O-bound calls with bounded concurrency.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map applies fn to every input with at most width calls in flight.
// Output order matches input order. Each goroutine writes only its own
// slot, so no locking is needed. fn must not fail; per-item degradation
// is the caller's concern.
func Map[T, R any](ctx context.Context, width int, inputs []T, fn func(context.Context, T) R) []R {
	out := make([]R, len(inputs))
	if len(inputs) == 0 {
		return out
	}
	if width <= 0 {
		width = len(inputs)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(width)
	for i, in := range inputs {
		g.Go(func() error {
			out[i] = fn(gctx, in)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// MapErr is Map for calls that can fail. The first error cancels the
// remaining calls and is returned; results are only valid when err is nil.
func MapErr[T, R any](ctx context.Context, width int, inputs []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	out := make([]R, len(inputs))
	if width <= 0 {
		width = len(inputs) + 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(width)
	for i, in := range inputs {
		g.Go(func() error {
			r, err := fn(gctx, in)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

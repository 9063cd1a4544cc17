// File: internal/pool/pool.go
package pool

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Result is one output slot of a bounded run. Err carries the operation's
// failure for that item; other items are unaffected by it.
type Result[R any] struct {
	Value R
	Err   error
}

// Map runs op over every item with at most maxConcurrency operations in
// flight. Each outcome is written into the slot of the item's original
// index, so output order is always input order regardless of completion
// order. Map waits for all scheduled work to settle before returning; a
// failing operation is recorded in its own slot and never prevents the
// remaining items from completing.
//
// The context is passed through to op for cooperative use only; Map itself
// never cancels in-flight operations.
func Map[T, R any](ctx context.Context, items []T, maxConcurrency int, op func(context.Context, T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	g := new(errgroup.Group)
	g.SetLimit(maxConcurrency)
	for i, item := range items {
		g.Go(func() error {
			// Each task owns a disjoint index, so the slice needs no lock.
			v, err := op(ctx, item)
			results[i] = Result[R]{Value: v, Err: err}
			return nil
		})
	}
	// No task returns an error to the group; Wait only synchronizes.
	_ = g.Wait()
	return results
}

// MapBatches is the fixed-size wavefront variant: it runs items in
// consecutive batches of batchSize, waiting for each wave to finish before
// starting the next. Slot semantics match Map. It suits workloads where
// continuous refill is unnecessary.
func MapBatches[T, R any](ctx context.Context, items []T, batchSize int, op func(context.Context, T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := op(ctx, items[i])
				results[i] = Result[R]{Value: v, Err: err}
			}()
		}
		wg.Wait()
	}
	return results
}

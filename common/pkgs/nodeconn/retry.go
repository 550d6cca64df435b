package nodeconn

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry re-invokes fn up to attempts times with a fixed delay between tries,
// returning the last error if every attempt fails.
func Retry(ctx context.Context, attempts uint64, delay time.Duration, fn func() error) error {
	if attempts == 0 {
		attempts = 1
	}
	bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), attempts-1)
	return backoff.Retry(fn, backoff.WithContext(bo, ctx))
}

// BatchItemResult is the per-item outcome of BatchLimit.
type BatchItemResult[T any] struct {
	Item T
	Err  error
}

// BatchLimit applies fn to every item with at most limit calls in flight.
// One item failing never aborts the rest; results come back in input order.
func BatchLimit[T any](items []T, limit int, fn func(item T) error) []BatchItemResult[T] {
	if limit < 1 {
		limit = 1
	}

	results := make([]BatchItemResult[T], len(items))
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, item T) {
			defer wg.Done()
			defer func() { <-sem }()

			results[i] = BatchItemResult[T]{
				Item: item,
				Err:  fn(item),
			}
		}(i, item)
	}
	wg.Wait()

	return results
}

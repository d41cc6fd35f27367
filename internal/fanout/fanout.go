// Package fanout runs independent tasks concurrently and collects every outcome.
package fanout

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Task produces one value or fails on its own.
type Task[T any] func(ctx context.Context) (T, error)

// Result is the outcome of the task at the same index.
type Result[T any] struct {
	Value T
	Err   error
}

// Settle runs every task and waits for all of them. A failing or panicking
// task never cancels its siblings. Results line up with tasks by index.
// A limit above zero caps how many tasks run at once.
func Settle[T any](ctx context.Context, limit int, tasks ...Task[T]) []Result[T] {
	results := make([]Result[T], len(tasks))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, task := range tasks {
		g.Go(func() error {
			results[i] = run(ctx, task)
			return nil // failures live in the results
		})
	}
	_ = g.Wait()

	return results
}

func run[T any](ctx context.Context, task Task[T]) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = Result[T]{Err: fmt.Errorf("task panicked: %v", r)}
		}
	}()

	v, err := task(ctx)
	return Result[T]{Value: v, Err: err}
}

package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunConcurrently calls fn for every task on its own goroutine, with at most
// limit running at once (limit <= 0 means no cap). A task that returns an
// error or panics is reported to onFailure and does not stop its siblings.
// The returned slice holds each task's error at the task's index.
func RunConcurrently[T any](ctx context.Context, tasks []T, limit int, fn func(context.Context, T) error, onFailure func(T, error)) []error {
	errs := make([]error, len(tasks))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, task := range tasks {
		g.Go(func() error {
			if err := safeCall(ctx, task, fn); err != nil {
				errs[i] = err
				if onFailure != nil {
					onFailure(task, err)
				}
			}
			return nil
		})
	}

	_ = g.Wait()
	return errs
}

func safeCall[T any](ctx context.Context, task T, fn func(context.Context, T) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn(ctx, task)
}

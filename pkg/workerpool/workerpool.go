// Package workerpool provides bounded concurrent fan-out helpers.
package workerpool

import (
	"context"
	"sync"
)

// Map runs fetch over items with at most workerCount goroutines in flight and
// returns the results in input order. The first error cancels outstanding work
// and is returned; results already produced are discarded by the caller.
// Concurrency here is for I/O only: consumers iterate the ordered result slice
// sequentially.
func Map[T, R any](
	ctx context.Context,
	workerCount int,
	items []T,
	fetch func(context.Context, T) (R, error),
) ([]R, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type task struct {
		index int
		item  T
	}

	tasks := make(chan task)
	results := make([]R, len(items))
	errs := make(chan error, 1)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				r, err := fetch(ctx, t.item)
				if err != nil {
					select {
					case errs <- err:
					default:
					}
					cancel()
					return
				}
				results[t.index] = r
			}
		}()
	}

	for i, item := range items {
		select {
		case <-ctx.Done():
		case tasks <- task{index: i, item: item}:
			continue
		}
		break
	}
	close(tasks)
	wg.Wait()

	select {
	case err := <-errs:
		return nil, err
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

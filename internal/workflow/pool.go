package workflow

import (
	"context"
	"sync"
)

// DefaultConcurrency bounds the scoring worker pool when the
// configuration does not set one.
const DefaultConcurrency = 4

// groupScore is one worker's product.
type groupScore struct {
	name  string
	score float64

	incomplete bool
	missing    []string
	err        error
}

// scoreCollector gathers worker results under a mutex. Workers only
// append; readers wait for the pool to drain before touching results.
type scoreCollector struct {
	mu      sync.Mutex
	results []groupScore
}

func (c *scoreCollector) add(r groupScore) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

// runPool executes tasks concurrently up to limit workers. Each task
// reports through the collector; the pool never fails a sibling task.
// A cancelled context stops queued tasks from starting.
func runPool(ctx context.Context, limit int, tasks []func(ctx context.Context)) {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for _, task := range tasks {
		wg.Add(1)
		go func(run func(ctx context.Context)) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			run(ctx)
		}(task)
	}

	wg.Wait()
}

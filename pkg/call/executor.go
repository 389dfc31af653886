package call

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"chatsdk/internal/pkg/logx"
)

// DefaultWorkers is the size of the shared executor.
const DefaultWorkers = 4

// Executor is a bounded worker pool. It runs enqueued calls and their callbacks.
type Executor struct {
	// sem bounds the number of concurrently running jobs.
	sem *semaphore.Weighted

	// wg tracks submitted jobs so that Wait can drain the pool.
	wg sync.WaitGroup

	logger zerolog.Logger
}

var (
	sharedOnce     sync.Once
	sharedExecutor *Executor
)

// NewExecutor creates an executor running at most workers jobs at a time.
func NewExecutor(workers int) *Executor {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Executor{
		sem:    semaphore.NewWeighted(int64(workers)),
		logger: logx.Component("Executor"),
	}
}

// DefaultExecutor returns the process-wide executor used by calls created without WithExecutor.
func DefaultExecutor() *Executor {
	sharedOnce.Do(func() {
		sharedExecutor = NewExecutor(DefaultWorkers)
	})
	return sharedExecutor
}

// Submit schedules job on the pool. It never blocks the caller.
// A panicking job is recovered and logged.
func (e *Executor) Submit(job func()) {
	e.wg.Add(1)

	go func() {
		defer e.wg.Done()

		if err := e.sem.Acquire(context.Background(), 1); err != nil {
			e.logger.Error().Err(err).Msg("Failed to acquire worker slot")
			return
		}
		defer e.sem.Release(1)

		defer func() {
			if r := recover(); r != nil {
				e.logger.Error().
					Err(fmt.Errorf("%v", r)).
					Msg("Recovered panic in executor job")
			}
		}()

		job()
	}()
}

// Wait blocks until every submitted job has returned.
func (e *Executor) Wait() {
	e.wg.Wait()
}

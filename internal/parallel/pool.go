// Package parallel provides the bounded worker pool used by the
// speculative search mode, which encodes and solves several trial
// happening counts concurrently. The pool caps concurrency so a large
// batch of solver invocations cannot exhaust memory or spawn an
// unbounded number of external processes.
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// WorkerPool manages a fixed set of goroutines executing submitted
// tasks. Submission blocks when all workers are busy and the buffer is
// full, which is the backpressure mechanism: the search controller can
// never race far ahead of the solvers.
type WorkerPool struct {
	maxWorkers   int
	taskChan     chan func()
	workerWg     sync.WaitGroup
	shutdownChan chan struct{}
	once         sync.Once
}

// NewWorkerPool creates a pool with the specified number of workers.
// If maxWorkers is 0 or negative, it defaults to the number of CPU
// cores.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		maxWorkers:   maxWorkers,
		taskChan:     make(chan func(), maxWorkers*2),
		shutdownChan: make(chan struct{}),
	}

	for i := 0; i < maxWorkers; i++ {
		pool.workerWg.Add(1)
		go pool.worker()
	}

	return pool
}

func (wp *WorkerPool) worker() {
	defer wp.workerWg.Done()

	for {
		select {
		case task := <-wp.taskChan:
			if task != nil {
				task()
			}
		case <-wp.shutdownChan:
			return
		}
	}
}

// Submit queues a task for execution. If the pool is saturated this
// call blocks until a worker frees up, the context is cancelled, or
// the pool shuts down.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	select {
	case wp.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	}
}

// Shutdown stops the pool, waiting for currently executing tasks to
// complete. Safe to call more than once.
func (wp *WorkerPool) Shutdown() {
	wp.once.Do(func() {
		close(wp.shutdownChan)
		close(wp.taskChan)
		wp.workerWg.Wait()
	})
}

// ErrPoolShutdown is returned when submitting to a shut-down pool.
var ErrPoolShutdown = fmt.Errorf("worker pool has been shutdown")

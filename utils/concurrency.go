package utils

import (
	"runtime"
	"sync"
)

// WorkerPool runs jobs on a bounded number of goroutines.
type WorkerPool struct {
	maxWorkers int
	semaphore  chan struct{}
	wg         sync.WaitGroup
}

// NewWorkerPool creates a WorkerPool. maxWorkers <= 0 means GOMAXPROCS.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.GOMAXPROCS(0)
	}
	return &WorkerPool{
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
	}
}

// Submit enqueues a job for execution in the pool. It blocks while all
// workers are busy.
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// ParallelRange splits [0, n) into contiguous chunks, one job per chunk, and
// waits for all of them. fn must only write state owned by its own indices.
func ParallelRange(workers, n int, fn func(lo, hi int)) {
	if n == 0 {
		return
	}
	pool := NewWorkerPool(workers)
	chunk := (n + pool.maxWorkers - 1) / pool.maxWorkers
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		lo := lo
		pool.Submit(func() { fn(lo, hi) })
	}
	pool.Wait()
}

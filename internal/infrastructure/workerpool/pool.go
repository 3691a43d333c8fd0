package workerpool

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool runs CPU-bound jobs on a bounded number of goroutines.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// New creates a pool with size concurrent slots. Non-positive size means GOMAXPROCS.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

// Size returns the number of concurrent slots.
func (p *Pool) Size() int {
	return p.size
}

type result struct {
	data []byte
	err  error
}

// Do runs fn on a pool goroutine and waits for its result or ctx cancellation.
// A job that was already started keeps running after cancellation and releases its slot on completion.
func (p *Pool) Do(ctx context.Context, fn func() ([]byte, error)) ([]byte, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	done := make(chan result, 1)
	go func() {
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("worker panic: %v", r)}
			}
		}()

		data, err := fn()
		done <- result{data: data, err: err}
	}()

	select {
	case res := <-done:
		return res.data, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

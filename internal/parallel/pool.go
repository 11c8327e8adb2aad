package parallel

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Result is the outcome of one job.
type Result[T any] struct {
	Name     string
	Value    T
	Err      error
	Duration time.Duration
	// Skipped is set when the pool was cancelled before the job started.
	Skipped bool
}

// Pool runs jobs with bounded concurrency.
type Pool[T any] struct {
	maxWorkers int
	semaphore  chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	results    []Result[T]
	failFast   bool
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewPool creates a pool. maxWorkers <= 0 means no limit. With failFast the
// pool context is cancelled on the first error.
func NewPool[T any](ctx context.Context, maxWorkers int, failFast bool) *Pool[T] {
	ctx, cancel := context.WithCancel(ctx)
	p := &Pool[T]{
		maxWorkers: maxWorkers,
		failFast:   failFast,
		ctx:        ctx,
		cancel:     cancel,
	}
	if maxWorkers > 0 {
		p.semaphore = make(chan struct{}, maxWorkers)
	}
	return p
}

// Submit starts fn in a goroutine once a worker slot is free. fn receives the
// pool context.
func (p *Pool[T]) Submit(name string, fn func(ctx context.Context) (T, error)) {
	p.mu.Lock()
	idx := len(p.results)
	p.results = append(p.results, Result[T]{Name: name})
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		if p.semaphore != nil {
			select {
			case p.semaphore <- struct{}{}:
				defer func() { <-p.semaphore }()
			case <-p.ctx.Done():
				p.skip(idx)
				return
			}
		}
		if p.ctx.Err() != nil {
			p.skip(idx)
			return
		}

		start := time.Now()
		value, err := p.call(name, fn)
		duration := time.Since(start)

		p.mu.Lock()
		defer p.mu.Unlock()
		p.results[idx].Value = value
		p.results[idx].Err = err
		p.results[idx].Duration = duration
		if err != nil && p.failFast {
			p.cancel()
		}
	}()
}

// call runs fn, turning a panic into an error.
func (p *Pool[T]) call(name string, fn func(ctx context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", name, r)
		}
	}()
	return fn(p.ctx)
}

func (p *Pool[T]) skip(idx int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results[idx].Skipped = true
	p.results[idx].Err = p.ctx.Err()
}

// Wait blocks until every submitted job finished and returns the results in
// submission order.
func (p *Pool[T]) Wait() []Result[T] {
	p.wg.Wait()
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	results := make([]Result[T], len(p.results))
	copy(results, p.results)
	return results
}

// Cancel cancels all pending work in the pool.
func (p *Pool[T]) Cancel() {
	p.cancel()
}

// Errors returns the errors of a result set, each prefixed with its job name.
func Errors[T any](results []Result[T]) []error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	}
	return errs
}

package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plstore/internal/shared"
)

const (
	defaultSize = 4
	queueFactor = 16
)

// Pool is a fixed set of goroutines draining a job queue.
type Pool struct {
	jobs   chan func()
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	logger *log.Logger
}

// NewPool starts size workers. A size of zero or less uses the default of 4.
func NewPool(size int, logger *log.Logger) *Pool {
	if size <= 0 {
		size = defaultSize
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	p := &Pool{
		jobs:   make(chan func(), size*queueFactor),
		logger: logger,
	}

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.work()
	}

	return p
}

func (p *Pool) work() {
	defer p.wg.Done()
	for job := range p.jobs {
		job()
	}
}

// Submit queues fn, waiting for queue space until ctx is done.
func (p *Pool) Submit(ctx context.Context, fn func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return shared.ErrClosed
	}

	select {
	case p.jobs <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work and waits for queued jobs to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

// Future is the eventual result of a call submitted with [Go].
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is ready or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (f *Future[T]) resolve(v T, err error) {
	f.val, f.err = v, err
	close(f.done)
}

// Go submits fn to the pool and returns immediately.
//
// fn receives ctx, so cancelling it aborts in-flight queries. If ctx is already
// done when a worker picks the job up, fn is skipped.
func Go[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	job := func() {
		var zero T
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("worker job panicked", "panic", r, "stack", string(debug.Stack()))
				f.resolve(zero, fmt.Errorf("%w: worker panic: %v", shared.ErrStorage, r))
			}
		}()

		if err := ctx.Err(); err != nil {
			f.resolve(zero, err)
			return
		}
		v, err := fn(ctx)
		f.resolve(v, err)
	}

	if err := p.Submit(ctx, job); err != nil {
		var zero T
		f.resolve(zero, err)
	}

	return f
}

// Do runs fn on the pool and waits for its result.
func Do[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	return Go(ctx, p, fn).Await(ctx)
}

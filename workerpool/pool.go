package workerpool

import (
	"context"
	"errors"
	"fmt"
	"learntube-api-go/logcolors"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrPoolClosed is returned by Submit after Shutdown has been called
	ErrPoolClosed = errors.New("worker pool closed")
	// ErrNotStarted wraps the ctx error when Do gave up before fn began running
	ErrNotStarted = errors.New("task never started")
)

// Task is a unit of blocking work executed by a pool worker
type Task func()

// Config controls the pool's concurrency
type Config struct {
	Workers   int
	QueueSize int
}

// Pool runs submitted tasks on a fixed number of workers. Callers block for
// a queue slot when the queue is full.
type Pool struct {
	name    string
	tasks   chan Task
	workers int

	active    atomic.Int64
	completed atomic.Int64

	closed chan struct{}
	mu     sync.RWMutex
	wg     sync.WaitGroup
	once   sync.Once
}

// New starts a pool with cfg.Workers workers
func New(name string, cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 3
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}

	p := &Pool{
		name:    name,
		tasks:   make(chan Task, cfg.QueueSize),
		workers: cfg.Workers,
		closed:  make(chan struct{}),
	}

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}

	log.Infof("%s %s started with %d workers (queue: %d)", logcolors.LogWorkerPool, name, cfg.Workers, cfg.QueueSize)
	return p
}

// Submit enqueues task, blocking until a slot frees up, ctx ends or the pool closes
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	select {
	case <-p.closed:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case <-p.closed:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	case p.tasks <- task:
		return nil
	}
}

// Shutdown stops accepting tasks and waits for queued and running tasks to finish
func (p *Pool) Shutdown(ctx context.Context) error {
	p.once.Do(func() {
		close(p.closed)
		// wait for in-progress Submit calls before closing the queue
		p.mu.Lock()
		close(p.tasks)
		p.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		log.Infof("%s %s drained (%d tasks completed)", logcolors.LogWorkerPool, p.name, p.completed.Load())
		return nil
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	p.active.Add(1)
	defer func() {
		p.active.Add(-1)
		p.completed.Add(1)
		if r := recover(); r != nil {
			log.Errorf("%s %s task panicked: %v", logcolors.LogWorkerPool, p.name, r)
		}
	}()
	task()
}

// Workers returns the number of workers
func (p *Pool) Workers() int {
	return p.workers
}

// Active returns the number of tasks currently running
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Queued returns the number of tasks waiting for a worker
func (p *Pool) Queued() int {
	return len(p.tasks)
}

// Completed returns the number of tasks that have finished
func (p *Pool) Completed() int64 {
	return p.completed.Load()
}

// Do runs fn on the pool and waits for its result. If ctx ends first, Do returns
// ctx.Err() and the task's result is discarded; a task that has not started yet
// skips fn. When fn never ran the error also wraps ErrNotStarted.
func Do[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	var zero T

	var started atomic.Bool
	done := make(chan result, 1)
	err := p.Submit(ctx, func() {
		if err := ctx.Err(); err != nil {
			done <- result{err: fmt.Errorf("%w: %w", ErrNotStarted, err)}
			return
		}
		started.Store(true)
		v, err := fn(ctx)
		done <- result{value: v, err: err}
	})
	if err != nil {
		if errors.Is(err, ErrPoolClosed) {
			return zero, err
		}
		return zero, fmt.Errorf("%w: %w", ErrNotStarted, err)
	}

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		if !started.Load() {
			return zero, fmt.Errorf("%w: %w", ErrNotStarted, ctx.Err())
		}
		return zero, ctx.Err()
	}
}

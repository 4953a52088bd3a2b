// Package queue provides the process-wide bounded work queue that
// rate-limits upstream LLM calls. Overflow is reported immediately so
// callers can degrade to their synthetic failure instead of waiting.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrQueueFull indicates the bounded queue has no free slot
	ErrQueueFull = errors.New("llm work queue full")

	// ErrStopped indicates the dispatcher is shut down
	ErrStopped = errors.New("llm work queue stopped")
)

// Task is one unit of LLM-bound work. It must honor ctx and return promptly
// once the deadline passes; the dispatcher never kills a running task.
type Task func(ctx context.Context)

type submission struct {
	ctx  context.Context
	run  Task
	done chan struct{}
}

// Dispatcher owns a fixed worker pool reading from a bounded task channel.
type Dispatcher struct {
	tasks   chan submission
	workers int

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu        sync.RWMutex
	stopped   bool
	processed int64
}

// NewDispatcher creates a dispatcher with the given queue capacity and
// worker count. Both must be >= 1.
func NewDispatcher(capacity, workers int) *Dispatcher {
	if capacity < 1 {
		capacity = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		tasks:   make(chan submission, capacity),
		workers: workers,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(i)
	}
	slog.Info("LLM dispatch queue started", "capacity", cap(d.tasks), "workers", d.workers)
}

// Stop refuses new work, drains queued tasks, and waits for the workers.
// Safe to call multiple times.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.stopped = true
		d.mu.Unlock()
		close(d.stopCh)
	})
	d.wg.Wait()
}

// Do submits fn and waits until a worker has run it to completion.
// It returns ErrQueueFull immediately when the queue has no free slot and
// ErrStopped after shutdown; fn is not run in either case.
func (d *Dispatcher) Do(ctx context.Context, fn Task) error {
	d.mu.RLock()
	if d.stopped {
		d.mu.RUnlock()
		return ErrStopped
	}

	sub := submission{ctx: ctx, run: fn, done: make(chan struct{})}
	select {
	case d.tasks <- sub:
		d.mu.RUnlock()
	default:
		d.mu.RUnlock()
		return ErrQueueFull
	}

	// Wait for completion, not cancellation: a task past the deadline
	// returns promptly on its own and the audit trail stays whole.
	<-sub.done
	return nil
}

// Depth returns the number of queued tasks not yet picked up.
func (d *Dispatcher) Depth() int {
	return len(d.tasks)
}

// Capacity returns the queue capacity.
func (d *Dispatcher) Capacity() int {
	return cap(d.tasks)
}

// Processed returns the number of tasks run to completion.
func (d *Dispatcher) Processed() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.processed
}

func (d *Dispatcher) run(id int) {
	defer d.wg.Done()

	log := slog.With("queue_worker", id)
	for {
		select {
		case <-d.stopCh:
			// Drain whatever was accepted before shutdown.
			for {
				select {
				case sub := <-d.tasks:
					d.process(log, sub)
				default:
					return
				}
			}
		case sub := <-d.tasks:
			d.process(log, sub)
		}
	}
}

func (d *Dispatcher) process(log *slog.Logger, sub submission) {
	defer close(sub.done)

	start := time.Now()
	sub.run(sub.ctx)

	d.mu.Lock()
	d.processed++
	d.mu.Unlock()

	log.Debug("Task processed", "duration_ms", time.Since(start).Milliseconds(), "queued", len(d.tasks))
}

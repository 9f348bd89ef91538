// Package worker runs detached background tasks with bounded concurrency.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrPoolClosed = errors.New("worker pool is closed")
	ErrQueueFull  = errors.New("worker queue is full")
)

// Config holds configuration for the pool.
type Config struct {
	Concurrency int
	QueueSize   int
	TaskTimeout time.Duration
}

// Task is a named unit of work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Ticket tracks a submitted task until it finishes.
type Ticket struct {
	Name string
	done chan struct{}
	err  error
}

// Done is closed once the task has finished.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx ends.
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the task result. It is only meaningful after Done is closed.
func (t *Ticket) Err() error {
	return t.err
}

type job struct {
	ctx    context.Context
	task   Task
	ticket *Ticket
}

// Pool executes submitted tasks. Tasks outlive the request that submitted
// them: they run under a context detached from the submitter's cancellation
// and bounded only by TaskTimeout.
type Pool struct {
	config Config
	logger *slog.Logger
	tasks  chan job

	mu     sync.RWMutex
	closed bool

	done chan struct{}
}

// New creates a pool. Tasks are buffered until Run is started.
func New(config Config, logger *slog.Logger) *Pool {
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = 2 * time.Minute
	}

	return &Pool{
		config: config,
		logger: logger.With("component", "worker"),
		tasks:  make(chan job, config.QueueSize),
		done:   make(chan struct{}),
	}
}

// Submit queues a task. ctx supplies values such as the trace and request id;
// its cancellation does not reach the task.
func (p *Pool) Submit(ctx context.Context, task Task) (*Ticket, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	ticket := &Ticket{Name: task.Name, done: make(chan struct{})}
	select {
	case p.tasks <- job{ctx: context.WithoutCancel(ctx), task: task, ticket: ticket}:
		return ticket, nil
	default:
		return nil, ErrQueueFull
	}
}

// Run dispatches queued tasks until ctx is cancelled. On cancellation it stops
// accepting work, runs what was already queued, waits for in-flight tasks and
// closes Done.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info("worker pool starting", "concurrency", p.config.Concurrency)

	sem := make(chan struct{}, p.config.Concurrency)
	var wg sync.WaitGroup

	dispatch := func(j job) {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			p.execute(j)
		}()
	}

	for {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.closed = true
			p.mu.Unlock()

			p.logger.Info("worker pool draining", "queued", len(p.tasks))
			for drained := false; !drained; {
				select {
				case j := <-p.tasks:
					dispatch(j)
				default:
					drained = true
				}
			}

			wg.Wait()
			close(p.done)
			return ctx.Err()

		case j := <-p.tasks:
			dispatch(j)
		}
	}
}

// Done returns a channel that is closed when the pool has fully stopped.
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

func (p *Pool) execute(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, p.config.TaskTimeout)
	defer cancel()

	tracer := otel.Tracer("adhocdist/worker")
	ctx, span := tracer.Start(ctx, "worker."+j.task.Name,
		trace.WithAttributes(attribute.String("task.name", j.task.Name)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	start := time.Now()
	err := p.safeRun(ctx, j.task)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error("task failed", "task", j.task.Name, "error", err, "duration", time.Since(start))
	} else {
		p.logger.Debug("task finished", "task", j.task.Name, "duration", time.Since(start))
	}

	j.ticket.err = err
	close(j.ticket.done)
}

func (p *Pool) safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	return task.Run(ctx)
}

// Package worker drains the unlock notice queue and fans each notice out to
// the configured notifiers.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/ascend/internal/adapters/mq/queue"
	"github.com/okian/ascend/pkg/logger"
	"github.com/okian/ascend/pkg/metrics"
)

const (
	notifyTimeout       = 5 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Queue defines how workers receive notices.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Notice
}

// Worker delivers queued notices.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is closed.
	Run(ctx context.Context)

	// Shutdown waits for the worker to finish.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	notifiers []Notifier
	name      string
	done      chan struct{}
	logger    logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, notifiers []Notifier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		notifiers: notifiers,
		name:      "worker",
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Named(w.name)
	}
	return w
}

// Run delivers notices until the queue is closed and drained or ctx ends.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	notices := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notices:
			if !ok {
				return
			}
			w.deliver(ctx, n)
		}
	}
}

// Shutdown waits for Run to return.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// deliver hands n to every notifier. A failing notifier does not stop the others.
func (w *InMemoryWorker) deliver(ctx context.Context, n queue.Notice) {
	for _, notifier := range w.notifiers {
		nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		err := notifier.Notify(nctx, n)
		cancel()
		if err != nil {
			metrics.RecordDispatchError(notifier.Name())
			w.logger.Error(ctx, "notice delivery failed",
				logger.String("notifier", notifier.Name()),
				logger.Int("unlocked_level", n.Level),
				logger.Error(err),
			)
			continue
		}
		metrics.RecordDispatched()
	}
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. A non-positive count uses
// one worker per CPU.
func NewPool(workerCount int, q Queue, notifiers []Notifier) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, notifiers, WithName("worker-"+strconv.Itoa(i)))
	}
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return err
		}
	}
	return nil
}

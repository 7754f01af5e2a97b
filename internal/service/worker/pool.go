// Package worker provides the one-way task pool that decouples
// upload-triggered work from the request that triggered it. Submission is
// fire-and-forget: failures are observable only through entity state, never
// through the submitting call.
package worker

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ai-clinical-scribe-service/internal/observability/logging"
)

// Task is one unit of background work.
type Task func(ctx context.Context)

// Pool runs submitted tasks on a fixed number of workers.
type Pool struct {
	tasks  chan Task
	quit   chan struct{}
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger

	mu         sync.Mutex
	pending    sync.WaitGroup
	submitters sync.WaitGroup
	closed     bool
}

// New creates a pool with the given number of workers and starts them.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	p := &Pool{
		tasks:  make(chan Task, workers*8),
		quit:   make(chan struct{}),
		group:  g,
		ctx:    gctx,
		cancel: cancel,
		logger: logging.WithComponent("worker"),
	}
	for i := 0; i < workers; i++ {
		g.Go(p.run)
	}
	return p
}

func (p *Pool) run() error {
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return nil
			}
			p.runOne(task)
		case <-p.ctx.Done():
			return p.ctx.Err()
		}
	}
}

func (p *Pool) runOne(task Task) {
	defer p.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Msg("Background task panicked")
		}
	}()
	task(p.ctx)
}

// Submit queues a task. It returns false if the pool is shut down or shuts
// down while the queue is full; the caller gets no other signal about the
// task's outcome. The mutex is never held across the channel send, so a
// submitter blocked on a full queue cannot stall other submitters or
// Shutdown.
func (p *Pool) Submit(task Task) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.submitters.Add(1)
	p.pending.Add(1)
	p.mu.Unlock()
	defer p.submitters.Done()

	select {
	case p.tasks <- task:
		return true
	case <-p.quit:
		p.pending.Done()
		return false
	}
}

// Wait blocks until every task submitted so far has finished. Gives tests a
// deterministic way to await fire-and-forget work.
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Shutdown drains queued tasks and stops the workers. Submissions blocked
// on a full queue are released with a false return; their tasks never run.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.quit)
	p.mu.Unlock()

	// Queued tasks still drain; the channel closes only once every
	// in-flight Submit has either enqueued or given up.
	p.submitters.Wait()
	close(p.tasks)
	p.pending.Wait()
	p.cancel()
	_ = p.group.Wait()
}

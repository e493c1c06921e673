package workerpool

import (
	"context"
	"sync"
	"time"

	"github.com/devswarm/devswarm/internal/errors"
	"github.com/devswarm/devswarm/internal/logging"
)

// Func is the work a submitted job performs. It must communicate its
// outcome only through the returned (any, error) pair — workers share no
// mutable state with the caller.
type Func func(ctx context.Context) (any, error)

// Result is delivered on a submission's channel once its Func returns, is
// cancelled, or times out.
type Result struct {
	ID    string
	Value any
	Err   error
}

// Pool is a bounded worker pool: at most Size() Funcs run concurrently,
// excess submissions wait at the semaphore until a worker frees up, in no
// guaranteed order.
type Pool struct {
	sem    *dynamicSemaphore
	cfg    config
	wg     sync.WaitGroup
	logger *logging.Logger
}

// New creates a Pool with the given worker count. A size of 0 uses
// DefaultSize.
func New(size int, opts ...Option) *Pool {
	if size == 0 {
		size = DefaultSize
	}
	cfg := config{taskTimeout: defaultTaskTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Pool{
		sem:    newDynamicSemaphore(size),
		cfg:    cfg,
		logger: logger,
	}
}

// Size returns the current worker count (0 means unlimited).
func (p *Pool) Size() int { return p.sem.Limit() }

// SetSize resizes the pool at runtime.
func (p *Pool) SetSize(n int) { p.sem.SetLimit(n) }

// Active returns the number of Funcs currently running.
func (p *Pool) Active() int { return p.sem.Acquired() }

// Submit queues fn for execution, bounded by the pool's default task
// timeout, and returns a channel that receives exactly one Result.
func (p *Pool) Submit(ctx context.Context, id string, fn Func) <-chan Result {
	return p.SubmitTimeout(ctx, p.cfg.taskTimeout, id, fn)
}

// SubmitTimeout is like Submit but with an explicit per-submission
// wall-clock timeout. A non-positive timeout disables the deadline.
func (p *Pool) SubmitTimeout(ctx context.Context, timeout time.Duration, id string, fn Func) <-chan Result {
	out := make(chan Result, 1)
	p.wg.Add(1)

	go func() {
		defer p.wg.Done()

		if err := p.sem.Acquire(ctx); err != nil {
			out <- Result{ID: id, Err: err}
			close(out)
			return
		}
		defer p.sem.Release()

		workCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			workCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		p.logger.Info("worker started", "job_id", id)
		value, err := fn(workCtx)
		if err == nil && workCtx.Err() != nil {
			err = workCtx.Err()
		}
		if err == context.DeadlineExceeded {
			err = errors.NewTaskError("subtask timed out", err).
				WithTaskID(id).
				WithClass(errors.ClassTimeout)
			p.logger.Warn("worker timed out", "job_id", id, "timeout", timeout)
		} else if err != nil {
			p.logger.Warn("worker failed", "job_id", id, "error", err)
		} else {
			p.logger.Info("worker completed", "job_id", id)
		}

		out <- Result{ID: id, Value: value, Err: err}
		close(out)
	}()

	return out
}

// Wait blocks until every submitted job has returned a Result.
func (p *Pool) Wait() {
	p.wg.Wait()
}

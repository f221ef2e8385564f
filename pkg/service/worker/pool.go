package worker

import (
	"context"
	"sync"
	"time"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/utils/errutil"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers    = 2
	DefaultQueueSize  = 256
	DefaultJobTimeout = 5 * time.Minute
)

var (
	ErrPoolStopped = goerr.New("job pool is stopped")
	ErrPoolStarted = goerr.New("job pool is already started")
)

// Handler runs one job
type Handler func(ctx context.Context, job model.Job) error

// JobPool is an in-process job queue drained by a fixed number of workers.
//
// Architecture assumptions:
// - Delivery is at-least-once only within a process; queued jobs are lost on
//   shutdown and recovered by the watcher replay or a backfill run
// - Handlers must be idempotent
type JobPool struct {
	handler    Handler
	workers    int
	jobTimeout time.Duration

	queue   chan model.Job
	stopCh  chan struct{}
	eg      *errgroup.Group
	mu      sync.RWMutex
	started bool
	stopped bool
}

type PoolOption func(*JobPool)

func WithWorkers(n int) PoolOption {
	return func(p *JobPool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithQueueSize(n int) PoolOption {
	return func(p *JobPool) {
		if n > 0 {
			p.queue = make(chan model.Job, n)
		}
	}
}

func WithJobTimeout(d time.Duration) PoolOption {
	return func(p *JobPool) {
		if d > 0 {
			p.jobTimeout = d
		}
	}
}

// NewJobPool creates a pool that runs handler for every enqueued job
func NewJobPool(handler Handler, opts ...PoolOption) *JobPool {
	p := &JobPool{
		handler:    handler,
		workers:    DefaultWorkers,
		jobTimeout: DefaultJobTimeout,
		queue:      make(chan model.Job, DefaultQueueSize),
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the workers. They stop when Stop is called or ctx is done.
func (p *JobPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrPoolStarted
	}
	p.started = true

	logging.Default().Info("Job pool starting", "workers", p.workers, "queue_size", cap(p.queue))

	p.eg = &errgroup.Group{}
	for i := 0; i < p.workers; i++ {
		workerID := i
		p.eg.Go(func() error {
			p.run(ctx, workerID)
			return nil
		})
	}
	return nil
}

// Enqueue adds a job, blocking while the queue is full
func (p *JobPool) Enqueue(ctx context.Context, job model.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	p.mu.RLock()
	stopped := p.stopped
	p.mu.RUnlock()
	if stopped {
		return ErrPoolStopped
	}

	select {
	case p.queue <- job:
		logging.From(ctx).Debug("Job enqueued",
			"job_id", job.ID,
			"owner_id", job.OwnerID,
			"bookmark_id", job.BookmarkID,
			"operation", job.Operation)
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "failed to enqueue job", goerr.V("job_id", job.ID))
	case <-p.stopCh:
		return ErrPoolStopped
	}
}

// Stop signals the workers to stop and waits until running jobs finish.
// Jobs still queued are dropped.
func (p *JobPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.stopCh)
	started := p.started
	p.mu.Unlock()

	logging.Default().Info("Job pool stopping", "pending", len(p.queue))
	if started {
		_ = p.eg.Wait()
	}
	logging.Default().Info("Job pool stopped")
}

// Pending returns the number of queued jobs
func (p *JobPool) Pending() int {
	return len(p.queue)
}

func (p *JobPool) run(ctx context.Context, workerID int) {
	for {
		select {
		case job := <-p.queue:
			p.execute(ctx, workerID, job)

		case <-p.stopCh:
			return

		case <-ctx.Done():
			return
		}
	}
}

func (p *JobPool) execute(ctx context.Context, workerID int, job model.Job) {
	logger := logging.From(ctx).With(
		"worker", workerID,
		"job_id", job.ID,
		"owner_id", job.OwnerID,
		"bookmark_id", job.BookmarkID,
		"operation", job.Operation,
	)
	jobCtx, cancel := context.WithTimeout(logging.With(ctx, logger), p.jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			_ = errutil.Handle(jobCtx, goerr.New("panic in job handler", goerr.V("panic", r)), "job handler panicked")
		}
	}()

	started := time.Now()
	if err := p.handler(jobCtx, job); err != nil {
		_ = errutil.Handle(jobCtx, err, "job failed")
		return
	}
	logger.Info("Job completed", "duration", time.Since(started).String())
}

// Package queue provides the in-process job queue that decouples the
// scheduler from scrape execution. Jobs are identified by opaque
// handles; callers poll Status to observe the pending/started/
// success/failure lifecycle and the terminal result.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leakhound/leakhound/internal/fetch"
	"github.com/leakhound/leakhound/internal/model"
	"github.com/leakhound/leakhound/internal/scrape"
	"github.com/leakhound/leakhound/internal/scraper"
)

var (
	// ErrQueueClosed is returned when enqueuing after Close.
	ErrQueueClosed = errors.New("queue: closed")

	// ErrQueueFull is returned when the backlog is at capacity. The
	// scheduler treats this as a skipped tick; the next tick retries.
	ErrQueueFull = errors.New("queue: backlog full")

	// ErrUnknownHandle is returned by Status for handles the queue
	// never issued (or that were issued before a restart).
	ErrUnknownHandle = errors.New("queue: unknown job handle")
)

// Handle identifies one enqueued job.
type Handle = uuid.UUID

// Task is the unit of queued work. It returns the number of new leak
// records it stored.
type Task func(ctx context.Context) (int, error)

type job struct {
	handle Handle
	name   string
	run    Task
}

// Queue runs tasks on a bounded worker pool.
type Queue struct {
	logger *slog.Logger
	jobs   chan job

	mu      sync.RWMutex
	results map[Handle]model.JobResult
	closed  bool

	group  *errgroup.Group
	cancel context.CancelFunc
}

// New creates a queue with the given worker count and backlog size and
// starts its workers immediately.
func New(workers, backlog int, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 1
	}
	if backlog <= 0 {
		backlog = 64
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	q := &Queue{
		logger:  logger,
		jobs:    make(chan job, backlog),
		results: make(map[Handle]model.JobResult),
		group:   group,
		cancel:  cancel,
	}

	for range workers {
		group.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case j, ok := <-q.jobs:
					if !ok {
						return nil
					}
					q.execute(ctx, j)
				}
			}
		})
	}
	return q
}

// Enqueue submits a task and returns its handle. The job starts in the
// pending state; Status tracks it from there.
//
// The send happens under the same lock that guards closed: Close flips
// the flag before closing the channel, so a racing Enqueue either sends
// on the still-open channel or observes closed, never a send on a
// closed channel. The send is non-blocking, so holding the lock across
// it is safe.
func (q *Queue) Enqueue(name string, run Task) (Handle, error) {
	handle := uuid.New()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return Handle{}, ErrQueueClosed
	}

	select {
	case q.jobs <- job{handle: handle, name: name, run: run}:
		q.results[handle] = model.JobResult{Status: model.JobPending}
		return handle, nil
	default:
		return Handle{}, fmt.Errorf("%w: %q not accepted", ErrQueueFull, name)
	}
}

// Status reports a job's current state and, once terminal, its result.
func (q *Queue) Status(handle Handle) (model.JobResult, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	result, ok := q.results[handle]
	if !ok {
		return model.JobResult{}, ErrUnknownHandle
	}
	return result, nil
}

// Close stops accepting jobs, drains the backlog, and waits for
// running jobs to finish.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	close(q.jobs)
	err := q.group.Wait()
	q.cancel()
	return err
}

func (q *Queue) execute(ctx context.Context, j job) {
	q.setResult(j.handle, model.JobResult{Status: model.JobStarted})

	inserted, err := j.run(ctx)
	if err != nil {
		q.logger.Warn("job failed",
			slog.String("job", j.name),
			slog.String("handle", j.handle.String()),
			slog.String("error", err.Error()))
		q.setResult(j.handle, model.JobResult{
			Status:    model.JobFailure,
			FailKind:  classify(err),
			FailError: err.Error(),
		})
		return
	}

	q.setResult(j.handle, model.JobResult{
		Status:   model.JobSuccess,
		Inserted: inserted,
	})
}

func (q *Queue) setResult(handle Handle, result model.JobResult) {
	q.mu.Lock()
	q.results[handle] = result
	q.mu.Unlock()
}

// classify maps an error onto a stable failure kind for job results.
// Consumers branch on the kind; the message is for humans.
func classify(err error) string {
	switch {
	case errors.Is(err, scrape.ErrTargetNotFound):
		return "target_not_found"
	case errors.Is(err, scraper.ErrScraperNotFound):
		return "config"
	case errors.Is(err, fetch.ErrFetchTimeout):
		return "timeout"
	case errors.Is(err, fetch.ErrNoRenderer), errors.Is(err, fetch.ErrProxyUnavailable):
		return "config"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

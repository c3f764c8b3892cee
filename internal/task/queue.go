package task

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/devbot/internal/logging"
)

// ErrQueueFull is returned by Submit when the backlog is at capacity.
var ErrQueueFull = errors.New("task queue full")

// ErrQueueClosed is returned by Submit after the queue stops accepting
// work.
var ErrQueueClosed = errors.New("task queue closed")

// Job is a unit of queued work. Run receives the queue's run context.
type Job struct {
	Name string
	Run  func(ctx context.Context)
}

// Queue serializes jobs through a single worker. All tasks mutate the
// same working tree, so concurrency is deliberately one.
type Queue struct {
	jobs   chan Job
	logger *logging.Logger

	mu     sync.Mutex
	closed bool
}

// NewQueue creates a queue with the given backlog capacity.
func NewQueue(capacity int, logger *logging.Logger) *Queue {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Queue{
		jobs:   make(chan Job, capacity),
		logger: logger.Named("queue"),
	}
}

// Submit enqueues a job without blocking. It fails fast when the
// backlog is full or the queue has been closed.
func (q *Queue) Submit(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		q.logger.Info(context.Background(), "job queued",
			zap.String("job", job.Name),
			zap.Int("backlog", len(q.jobs)),
		)
		return nil
	default:
		return ErrQueueFull
	}
}

// Run drains jobs one at a time until ctx is cancelled. It closes the
// queue on exit; jobs still in the backlog are dropped.
func (q *Queue) Run(ctx context.Context) {
	defer func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.logger.Info(ctx, "job starting", zap.String("job", job.Name))
			job.Run(ctx)
			q.logger.Info(ctx, "job finished", zap.String("job", job.Name))
		}
	}
}

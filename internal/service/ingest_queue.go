package service

import (
	"context"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/framefinder/internal/pkg/errors"
)

type IngestRunner interface {
	Ingest(ctx context.Context, videoID string) bool
}

type ingestTask struct {
	videoID string
	ctx     context.Context
}

// IngestQueue runs ingestion on a fixed set of workers. A video id can be
// queued or running at most once; every task can be cancelled.
type IngestQueue struct {
	runner IngestRunner
	tasks  chan ingestTask

	mu     sync.Mutex
	active map[string]context.CancelFunc
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewIngestQueue(runner IngestRunner, workers, size int) *IngestQueue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &IngestQueue{
		runner: runner,
		tasks:  make(chan ingestTask, size),
		active: make(map[string]context.CancelFunc),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.work(i)
	}
	return q
}

// Enqueue schedules ingestion of videoID. It fails with ErrIngestInProgress
// when the id is already queued or running and with ErrTooMany when the
// queue is full. accepted, when set, runs once the task is taken and before
// any worker can see it. It runs under the queue lock, so a concurrent
// enqueue of the same id cannot slip in between.
func (q *IngestQueue) Enqueue(videoID string, accepted func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	if _, ok := q.active[videoID]; ok {
		return ErrIngestInProgress
	}
	// only Enqueue sends, under q.mu, so free space cannot shrink before the send
	if len(q.tasks) >= cap(q.tasks) {
		return appErr.ErrTooMany
	}
	if accepted != nil {
		accepted()
	}
	ctx, cancel := context.WithCancel(q.ctx)
	q.active[videoID] = cancel
	q.tasks <- ingestTask{videoID: videoID, ctx: ctx}
	return nil
}

// Cancel stops a queued or running ingestion. The video ends up failed.
func (q *IngestQueue) Cancel(videoID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	cancel, ok := q.active[videoID]
	if ok {
		cancel()
	}
	return ok
}

func (q *IngestQueue) Active(videoID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.active[videoID]
	return ok
}

// Shutdown stops accepting work, cancels everything in flight and waits for
// the workers until ctx expires.
func (q *IngestQueue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *IngestQueue) work(idx int) {
	defer q.wg.Done()
	for task := range q.tasks {
		logger := logutil.GetLogger(task.ctx).With(zap.Int("worker", idx), zap.String("video_id", task.videoID))
		logger.Info("ingest task started")
		ok := q.runner.Ingest(task.ctx, task.videoID)
		q.finish(task.videoID)
		logger.Info("ingest task finished", zap.Bool("ok", ok))
	}
}

func (q *IngestQueue) finish(videoID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if cancel, ok := q.active[videoID]; ok {
		cancel()
		delete(q.active, videoID)
	}
}

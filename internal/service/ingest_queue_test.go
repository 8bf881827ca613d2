package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/framefinder/internal/pkg/errors"
)

// blockingRunner holds every ingestion until its context ends or release is
// closed.
type blockingRunner struct {
	mu       sync.Mutex
	started  chan string
	release  chan struct{}
	finished map[string]bool
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		started:  make(chan string, 16),
		release:  make(chan struct{}),
		finished: make(map[string]bool),
	}
}

func (r *blockingRunner) Ingest(ctx context.Context, videoID string) bool {
	r.started <- videoID
	ok := true
	select {
	case <-ctx.Done():
		ok = false
	case <-r.release:
	}
	r.mu.Lock()
	r.finished[videoID] = ok
	r.mu.Unlock()
	return ok
}

func (r *blockingRunner) result(videoID string) (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ok, done := r.finished[videoID]
	return ok, done
}

func TestIngestQueueRejectsDuplicates(t *testing.T) {
	runner := newBlockingRunner()
	q := NewIngestQueue(runner, 1, 4)
	defer q.Shutdown(context.Background())

	require.NoError(t, q.Enqueue("a", nil))
	require.ErrorIs(t, q.Enqueue("a", nil), ErrIngestInProgress)
	require.Equal(t, "a", <-runner.started)
	require.True(t, q.Active("a"))
	require.ErrorIs(t, q.Enqueue("a", nil), ErrIngestInProgress)

	close(runner.release)
	require.Eventually(t, func() bool { return !q.Active("a") }, time.Second, 5*time.Millisecond)
	ok, _ := runner.result("a")
	require.True(t, ok)

	require.NoError(t, q.Enqueue("a", nil))
}

func TestIngestQueueFull(t *testing.T) {
	runner := newBlockingRunner()
	q := NewIngestQueue(runner, 1, 1)
	defer q.Shutdown(context.Background())

	require.NoError(t, q.Enqueue("a", nil))
	<-runner.started
	require.NoError(t, q.Enqueue("b", nil))
	require.ErrorIs(t, q.Enqueue("c", nil), appErr.ErrTooMany)
}

func TestIngestQueueCancel(t *testing.T) {
	runner := newBlockingRunner()
	q := NewIngestQueue(runner, 1, 4)
	defer q.Shutdown(context.Background())

	require.NoError(t, q.Enqueue("a", nil))
	<-runner.started
	require.True(t, q.Cancel("a"))
	require.Eventually(t, func() bool {
		_, done := runner.result("a")
		return done
	}, time.Second, 5*time.Millisecond)
	ok, _ := runner.result("a")
	require.False(t, ok)
	require.False(t, q.Cancel("missing"))
}

func TestIngestQueueShutdown(t *testing.T) {
	runner := newBlockingRunner()
	q := NewIngestQueue(runner, 2, 4)

	require.NoError(t, q.Enqueue("a", nil))
	require.NoError(t, q.Enqueue("b", nil))
	<-runner.started
	<-runner.started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, q.Shutdown(ctx))
	for _, id := range []string{"a", "b"} {
		ok, done := runner.result(id)
		require.True(t, done)
		require.False(t, ok)
	}
	require.ErrorIs(t, q.Enqueue("c", nil), ErrQueueClosed)
	require.NoError(t, q.Shutdown(ctx))
}

func TestIngestQueueAcceptedHook(t *testing.T) {
	runner := newBlockingRunner()
	q := NewIngestQueue(runner, 1, 1)
	defer q.Shutdown(context.Background())

	var calls []string
	hook := func(id string) func() {
		return func() {
			// the task is not visible to workers yet
			require.Empty(t, q.tasks)
			calls = append(calls, id)
		}
	}
	require.NoError(t, q.Enqueue("a", hook("a")))
	require.Equal(t, "a", <-runner.started)
	require.ErrorIs(t, q.Enqueue("a", hook("a")), ErrIngestInProgress)
	require.NoError(t, q.Enqueue("b", hook("b")))
	require.ErrorIs(t, q.Enqueue("c", hook("c")), appErr.ErrTooMany)
	require.Equal(t, []string{"a", "b"}, calls)
}

package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type StaleFailer interface {
	FailStale(ctx context.Context, cutoff time.Time) (int, error)
}

// StaleIngestJob fails videos left in processing by a crashed or restarted
// process. They are not retried.
type StaleIngestJob struct {
	videos StaleFailer
	after  time.Duration
	now    func() time.Time
}

func NewStaleIngestJob(videos StaleFailer, after time.Duration) *StaleIngestJob {
	return &StaleIngestJob{videos: videos, after: after, now: time.Now}
}

func (j *StaleIngestJob) Name() string {
	return "stale_ingest"
}

func (j *StaleIngestJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.after)
	n, err := j.videos.FailStale(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		logutil.GetLogger(ctx).Warn("stale ingestions marked failed", zap.Int("count", n), zap.Time("cutoff", cutoff))
	}
	return nil
}

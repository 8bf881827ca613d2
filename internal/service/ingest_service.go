package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/framefinder/internal/ai"
	"github.com/xxxsen/framefinder/internal/model"
	"github.com/xxxsen/framefinder/internal/pkg/timeutil"
	"github.com/xxxsen/framefinder/internal/transcribe"
)

type VideoStore interface {
	GetByID(ctx context.Context, id string) (*model.Video, error)
	UpdateStatus(ctx context.Context, id string, status model.VideoStatus, mtime int64) error
	UpdateDuration(ctx context.Context, id string, duration float64, mtime int64) error
}

type TranscriptWriter interface {
	Replace(ctx context.Context, transcript *model.Transcript, segments []model.TranscriptSegment) error
}

type FileResolver interface {
	LocalPath(ctx context.Context, key string) (string, func(), error)
}

type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
}

type IngestDeps struct {
	Videos      VideoStore
	Transcripts TranscriptWriter
	Files       FileResolver
	Prober      DurationProber
	Transcriber transcribe.Transcriber
	Embedder    Embedder
	Broker      *StatusBroker
}

type IngestService struct {
	deps        IngestDeps
	maxDuration float64
}

func NewIngestService(deps IngestDeps, maxDuration float64) *IngestService {
	return &IngestService{deps: deps, maxDuration: maxDuration}
}

// Ingest validates, transcribes and embeds one video. It never returns an
// error: the outcome is the returned bool and the video's persisted status.
func (s *IngestService) Ingest(ctx context.Context, videoID string) bool {
	logger := logutil.GetLogger(ctx).With(zap.String("video_id", videoID))
	start := time.Now()
	if err := s.run(ctx, videoID); err != nil {
		logger.Error("video ingestion failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		s.markFailed(ctx, videoID)
		return false
	}
	logger.Info("video ingestion completed", zap.Duration("duration", time.Since(start)))
	return true
}

func (s *IngestService) run(ctx context.Context, videoID string) error {
	logger := logutil.GetLogger(ctx).With(zap.String("video_id", videoID))
	video, err := s.deps.Videos.GetByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("load video: %w", err)
	}
	if err := s.setStatus(ctx, videoID, model.VideoStatusProcessing); err != nil {
		return err
	}
	path, release, err := s.deps.Files.LocalPath(ctx, video.FileKey)
	if err != nil {
		return fmt.Errorf("resolve video file: %w", err)
	}
	defer release()

	if err := ctx.Err(); err != nil {
		return err
	}
	duration, err := s.deps.Prober.Duration(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDurationUnavailable, err)
	}
	if s.maxDuration > 0 && duration > s.maxDuration {
		return &DurationExceededError{Actual: duration, Max: s.maxDuration}
	}
	if err := s.deps.Videos.UpdateDuration(ctx, videoID, duration, timeutil.NowUnix()); err != nil {
		return fmt.Errorf("save duration: %w", err)
	}
	logger.Info("video duration validated", zap.Float64("duration", duration), zap.Float64("max", s.maxDuration))

	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := s.deps.Transcriber.Transcribe(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}
	segments := normalizeSegments(result, duration)
	logger.Info("video transcribed",
		zap.String("transcriber", s.deps.Transcriber.Name()),
		zap.Int("segments", len(segments)),
	)

	for i := range segments {
		if err := ctx.Err(); err != nil {
			return err
		}
		vec, err := s.deps.Embedder.Embed(ctx, segments[i].Text, ai.TaskRetrievalDocument)
		if err != nil {
			return fmt.Errorf("%w: segment %d: %v", ErrEmbeddingFailed, i, err)
		}
		segments[i].Embedding = vec
	}

	transcript := &model.Transcript{
		VideoID:  videoID,
		FullText: strings.TrimSpace(result.Text),
		Ctime:    timeutil.NowUnix(),
	}
	if err := s.deps.Transcripts.Replace(ctx, transcript, segments); err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return s.setStatus(ctx, videoID, model.VideoStatusCompleted)
}

// normalizeSegments trims text, drops empty or inverted segments and orders
// the rest by start time. A transcript with text but no timing becomes one
// segment spanning the whole video.
func normalizeSegments(result *transcribe.Result, duration float64) []model.TranscriptSegment {
	raw := result.Segments
	if len(raw) == 0 && strings.TrimSpace(result.Text) != "" && duration > 0 {
		raw = []transcribe.Segment{{Start: 0, End: duration, Text: result.Text}}
	}
	out := make([]model.TranscriptSegment, 0, len(raw))
	for _, seg := range raw {
		text := strings.TrimSpace(seg.Text)
		if text == "" || seg.End <= seg.Start {
			continue
		}
		out = append(out, model.TranscriptSegment{Text: text, StartTime: seg.Start, EndTime: seg.End})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

func (s *IngestService) setStatus(ctx context.Context, videoID string, status model.VideoStatus) error {
	if err := s.deps.Videos.UpdateStatus(ctx, videoID, status, timeutil.NowUnix()); err != nil {
		return fmt.Errorf("set status %s: %w", status, err)
	}
	s.publish(videoID, status)
	return nil
}

// markFailed is best effort and still runs when ctx was cancelled.
func (s *IngestService) markFailed(ctx context.Context, videoID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.deps.Videos.UpdateStatus(ctx, videoID, model.VideoStatusFailed, timeutil.NowUnix()); err != nil {
		logutil.GetLogger(ctx).Warn("mark video failed", zap.String("video_id", videoID), zap.Error(err))
		return
	}
	s.publish(videoID, model.VideoStatusFailed)
}

func (s *IngestService) publish(videoID string, status model.VideoStatus) {
	if s.deps.Broker != nil {
		s.deps.Broker.Publish(NewStatusEvent(videoID, status))
	}
}


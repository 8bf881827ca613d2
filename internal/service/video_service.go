package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/framefinder/internal/filestore"
	"github.com/xxxsen/framefinder/internal/model"
	appErr "github.com/xxxsen/framefinder/internal/pkg/errors"
	"github.com/xxxsen/framefinder/internal/pkg/timeutil"
)

var allowedVideoExts = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
	".wmv":  true,
	".flv":  true,
	".m4v":  true,
}

type VideoRepository interface {
	VideoStore
	Create(ctx context.Context, video *model.Video) error
	List(ctx context.Context, offset, limit int) ([]model.Video, error)
	ListStale(ctx context.Context, before int64) ([]model.Video, error)
	Delete(ctx context.Context, id string) error
}

type SearchLogReader interface {
	ListByVideo(ctx context.Context, videoID string, offset, limit int) ([]model.SearchLog, error)
}

type IngestScheduler interface {
	Enqueue(videoID string, accepted func()) error
	Cancel(videoID string) bool
	Active(videoID string) bool
}

type VideoService struct {
	videos VideoRepository
	logs   SearchLogReader
	files  filestore.Store
	queue  IngestScheduler
	broker *StatusBroker
}

func NewVideoService(videos VideoRepository, logs SearchLogReader, files filestore.Store, queue IngestScheduler, broker *StatusBroker) *VideoService {
	return &VideoService{videos: videos, logs: logs, files: files, queue: queue, broker: broker}
}

// Upload stores the file, records the video as processing and queues its
// ingestion.
func (s *VideoService) Upload(ctx context.Context, title, filename string, r io.ReadSeeker, size int64) (*model.Video, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedVideoExts[ext] {
		return nil, fmt.Errorf("%w: unsupported video type %q", appErr.ErrInvalid, ext)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	id := uuid.NewString()
	key := id + ext
	if err := s.files.Save(ctx, key, r, size); err != nil {
		return nil, fmt.Errorf("store video file: %w", err)
	}
	now := timeutil.NowUnix()
	video := &model.Video{
		ID:      id,
		Title:   title,
		FileKey: key,
		Status:  model.VideoStatusProcessing,
		Ctime:   now,
		Mtime:   now,
	}
	if err := s.videos.Create(ctx, video); err != nil {
		_ = s.files.Delete(ctx, key)
		return nil, err
	}
	if err := s.queue.Enqueue(id, nil); err != nil {
		logutil.GetLogger(ctx).Error("enqueue ingestion failed", zap.String("video_id", id), zap.Error(err))
		s.setStatus(ctx, id, model.VideoStatusFailed)
		video.Status = model.VideoStatusFailed
	}
	return video, nil
}

func (s *VideoService) Get(ctx context.Context, id string) (*model.Video, error) {
	return s.videos.GetByID(ctx, id)
}

func (s *VideoService) List(ctx context.Context, offset, limit int) ([]model.Video, error) {
	return s.videos.List(ctx, offset, limit)
}

// RequireCompleted loads a video that is ready to be searched.
func (s *VideoService) RequireCompleted(ctx context.Context, id string) (*model.Video, error) {
	video, err := s.videos.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !video.Processed() {
		return nil, ErrVideoNotReady
	}
	return video, nil
}

// Reingest queues a fresh ingestion. Failed videos are only retried this
// way, never automatically.
func (s *VideoService) Reingest(ctx context.Context, id string) error {
	if _, err := s.videos.GetByID(ctx, id); err != nil {
		return err
	}
	// the status only moves once the queue owns the task, and before a worker
	// can write its own final status
	return s.queue.Enqueue(id, func() {
		s.setStatus(ctx, id, model.VideoStatusProcessing)
	})
}

// Delete removes the video and everything hanging off it. The stored file
// is removed best effort.
func (s *VideoService) Delete(ctx context.Context, id string) error {
	video, err := s.videos.GetByID(ctx, id)
	if err != nil {
		return err
	}
	s.queue.Cancel(id)
	if err := s.videos.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.files.Delete(ctx, video.FileKey); err != nil {
		logutil.GetLogger(ctx).Warn("remove video file failed", zap.String("video_id", id), zap.String("file_key", video.FileKey), zap.Error(err))
	}
	return nil
}

func (s *VideoService) SearchLogs(ctx context.Context, id string, offset, limit int) ([]model.SearchLog, error) {
	if _, err := s.videos.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.logs.ListByVideo(ctx, id, offset, limit)
}

// OpenFile returns a local path for clip extraction.
func (s *VideoService) OpenFile(ctx context.Context, id string) (*model.Video, string, func(), error) {
	video, err := s.videos.GetByID(ctx, id)
	if err != nil {
		return nil, "", nil, err
	}
	path, release, err := s.files.LocalPath(ctx, video.FileKey)
	if err != nil {
		return nil, "", nil, err
	}
	return video, path, release, nil
}

// WatchStatus subscribes to status changes and returns the current status.
// Subscribing first means no change can slip between the read and the
// subscription.
func (s *VideoService) WatchStatus(ctx context.Context, id string) (*Subscription, StatusEvent, error) {
	sub := s.broker.Subscribe(id)
	video, err := s.videos.GetByID(ctx, id)
	if err != nil {
		sub.Close()
		return nil, StatusEvent{}, err
	}
	ev := NewStatusEvent(id, video.Status)
	return sub, ev, nil
}

// FailStale marks videos stuck in processing since before cutoff as failed,
// skipping any the queue still owns.
func (s *VideoService) FailStale(ctx context.Context, cutoff time.Time) (int, error) {
	videos, err := s.videos.ListStale(ctx, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	count := 0
	for _, video := range videos {
		if s.queue.Active(video.ID) {
			continue
		}
		if err := s.videos.UpdateStatus(ctx, video.ID, model.VideoStatusFailed, timeutil.NowUnix()); err != nil {
			if errors.Is(err, appErr.ErrNotFound) {
				continue
			}
			return count, err
		}
		s.broker.Publish(NewStatusEvent(video.ID, model.VideoStatusFailed))
		count++
	}
	return count, nil
}

func (s *VideoService) setStatus(ctx context.Context, id string, status model.VideoStatus) {
	if err := s.videos.UpdateStatus(ctx, id, status, timeutil.NowUnix()); err != nil {
		logutil.GetLogger(ctx).Warn("update video status failed", zap.String("video_id", id), zap.Error(err))
		return
	}
	s.broker.Publish(NewStatusEvent(id, status))
}

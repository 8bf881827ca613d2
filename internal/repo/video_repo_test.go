package repo_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/framefinder/internal/model"
	appErr "github.com/xxxsen/framefinder/internal/pkg/errors"
	"github.com/xxxsen/framefinder/internal/pkg/timeutil"
	"github.com/xxxsen/framefinder/internal/repo"
	"github.com/xxxsen/framefinder/internal/testutil"
)

func newVideo(t *testing.T, videos *repo.VideoRepo, status model.VideoStatus, mtime int64) *model.Video {
	t.Helper()
	video := &model.Video{
		ID:      uuid.NewString(),
		Title:   "clip",
		FileKey: "videos/clip.mp4",
		Status:  status,
		Ctime:   mtime,
		Mtime:   mtime,
	}
	require.NoError(t, videos.Create(context.Background(), video))
	return video
}

func TestVideoRepoRejectsUnknownStatus(t *testing.T) {
	videos := repo.NewVideoRepo(nil)
	ctx := context.Background()
	err := videos.UpdateStatus(ctx, "v1", model.VideoStatus("paused"), 1)
	require.ErrorIs(t, err, appErr.ErrInvalid)
	err = videos.Create(ctx, &model.Video{ID: "v1", Status: ""})
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestVideoRepoLifecycle(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	ctx := context.Background()
	videos := repo.NewVideoRepo(db)
	now := timeutil.NowUnix()
	video := newVideo(t, videos, model.VideoStatusProcessing, now)

	require.ErrorIs(t, videos.Create(ctx, video), appErr.ErrConflict)

	require.NoError(t, videos.UpdateDuration(ctx, video.ID, 42.5, now))
	require.NoError(t, videos.UpdateStatus(ctx, video.ID, model.VideoStatusCompleted, now+1))

	fetched, err := videos.GetByID(ctx, video.ID)
	require.NoError(t, err)
	require.Equal(t, 42.5, fetched.Duration)
	require.Equal(t, model.VideoStatusCompleted, fetched.Status)
	require.True(t, fetched.Processed())

	list, err := videos.List(ctx, 0, 1000)
	require.NoError(t, err)
	require.NotEmpty(t, list)

	require.NoError(t, videos.Delete(ctx, video.ID))
	_, err = videos.GetByID(ctx, video.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.ErrorIs(t, videos.UpdateStatus(ctx, video.ID, model.VideoStatusFailed, now), appErr.ErrNotFound)
}

func TestVideoRepoListStale(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	ctx := context.Background()
	videos := repo.NewVideoRepo(db)
	now := timeutil.NowUnix()
	stale := newVideo(t, videos, model.VideoStatusProcessing, now-7200)
	fresh := newVideo(t, videos, model.VideoStatusProcessing, now)
	done := newVideo(t, videos, model.VideoStatusCompleted, now-7200)
	defer func() {
		for _, id := range []string{stale.ID, fresh.ID, done.ID} {
			_ = videos.Delete(ctx, id)
		}
	}()

	list, err := videos.ListStale(ctx, now-3600)
	require.NoError(t, err)
	ids := make(map[string]bool)
	for _, v := range list {
		ids[v.ID] = true
	}
	require.True(t, ids[stale.ID])
	require.False(t, ids[fresh.ID])
	require.False(t, ids[done.ID])
}

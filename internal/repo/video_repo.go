package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/framefinder/internal/model"
	"github.com/xxxsen/framefinder/internal/pkg/dbutil"
	appErr "github.com/xxxsen/framefinder/internal/pkg/errors"
)

var videoFields = []string{"id", "title", "file_key", "duration", "status", "ctime", "mtime"}

type VideoRepo struct {
	db *sql.DB
}

func NewVideoRepo(db *sql.DB) *VideoRepo {
	return &VideoRepo{db: db}
}

func (r *VideoRepo) Create(ctx context.Context, video *model.Video) error {
	if !video.Status.Valid() {
		return fmt.Errorf("%w: video status %q", appErr.ErrInvalid, video.Status)
	}
	data := map[string]interface{}{
		"id":       video.ID,
		"title":    video.Title,
		"file_key": video.FileKey,
		"duration": video.Duration,
		"status":   string(video.Status),
		"ctime":    video.Ctime,
		"mtime":    video.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("videos", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *VideoRepo) GetByID(ctx context.Context, id string) (*model.Video, error) {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildSelect("videos", where, videoFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	video, err := scanVideo(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return video, nil
}

// List returns videos newest first.
func (r *VideoRepo) List(ctx context.Context, offset, limit int) ([]model.Video, error) {
	where := map[string]interface{}{
		"_orderby": "ctime desc",
	}
	if limit > 0 {
		where["_limit"] = []uint{uint(offset), uint(limit)}
	}
	sqlStr, args, err := builder.BuildSelect("videos", where, videoFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return r.query(ctx, sqlStr, args)
}

// ListStale returns videos still processing whose last status change is
// older than before.
func (r *VideoRepo) ListStale(ctx context.Context, before int64) ([]model.Video, error) {
	where := map[string]interface{}{
		"status":   string(model.VideoStatusProcessing),
		"mtime <":  before,
		"_orderby": "mtime asc",
	}
	sqlStr, args, err := builder.BuildSelect("videos", where, videoFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	return r.query(ctx, sqlStr, args)
}

func (r *VideoRepo) UpdateStatus(ctx context.Context, id string, status model.VideoStatus, mtime int64) error {
	if !status.Valid() {
		return fmt.Errorf("%w: video status %q", appErr.ErrInvalid, status)
	}
	return r.update(ctx, id, map[string]interface{}{
		"status": string(status),
		"mtime":  mtime,
	})
}

func (r *VideoRepo) UpdateDuration(ctx context.Context, id string, duration float64, mtime int64) error {
	return r.update(ctx, id, map[string]interface{}{
		"duration": duration,
		"mtime":    mtime,
	})
}

func (r *VideoRepo) Delete(ctx context.Context, id string) error {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildDelete("videos", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *VideoRepo) update(ctx context.Context, id string, update map[string]interface{}) error {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildUpdate("videos", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *VideoRepo) query(ctx context.Context, sqlStr string, args []interface{}) ([]model.Video, error) {
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var videos []model.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *video)
	}
	return videos, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVideo(row rowScanner) (*model.Video, error) {
	var video model.Video
	var status string
	if err := row.Scan(&video.ID, &video.Title, &video.FileKey, &video.Duration, &status, &video.Ctime, &video.Mtime); err != nil {
		return nil, err
	}
	video.Status = model.VideoStatus(status)
	return &video, nil
}

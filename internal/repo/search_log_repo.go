package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/framefinder/internal/model"
	"github.com/xxxsen/framefinder/internal/pkg/dbutil"
	appErr "github.com/xxxsen/framefinder/internal/pkg/errors"
)

type SearchLogRepo struct {
	db *sql.DB
}

func NewSearchLogRepo(db *sql.DB) *SearchLogRepo {
	return &SearchLogRepo{db: db}
}

func (r *SearchLogRepo) Append(ctx context.Context, item *model.SearchLog) error {
	const query = `
		INSERT INTO search_logs (video_id, query, result_timestamp, result_text, ctime)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	row := r.db.QueryRowContext(ctx, query, item.VideoID, item.Query, item.ResultTimestamp, item.ResultText, item.Ctime)
	if err := row.Scan(&item.ID); err != nil {
		if dbutil.IsForeignKeyViolation(err) {
			return appErr.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *SearchLogRepo) ListByVideo(ctx context.Context, videoID string, offset, limit int) ([]model.SearchLog, error) {
	where := map[string]interface{}{
		"video_id": videoID,
		"_orderby": "id desc",
	}
	if limit > 0 {
		where["_limit"] = []uint{uint(offset), uint(limit)}
	}
	sqlStr, args, err := builder.BuildSelect("search_logs", where, []string{"id", "video_id", "query", "result_timestamp", "result_text", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.SearchLog
	for rows.Next() {
		var item model.SearchLog
		var ts sql.NullFloat64
		var text sql.NullString
		if err := rows.Scan(&item.ID, &item.VideoID, &item.Query, &ts, &text, &item.Ctime); err != nil {
			return nil, err
		}
		if ts.Valid {
			item.ResultTimestamp = &ts.Float64
		}
		if text.Valid {
			item.ResultText = &text.String
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

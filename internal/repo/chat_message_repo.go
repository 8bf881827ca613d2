package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/framefinder/internal/model"
	"github.com/xxxsen/framefinder/internal/pkg/dbutil"
	appErr "github.com/xxxsen/framefinder/internal/pkg/errors"
)

type ChatMessageRepo struct {
	db *sql.DB
}

func NewChatMessageRepo(db *sql.DB) *ChatMessageRepo {
	return &ChatMessageRepo{db: db}
}

func (r *ChatMessageRepo) Create(ctx context.Context, msg *model.ChatMessage) error {
	const query = `
		INSERT INTO chat_messages (video_id, message, response, timestamp, segment_text, ctime)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	row := r.db.QueryRowContext(ctx, query, msg.VideoID, msg.Message, msg.Response, msg.Timestamp, msg.SegmentText, msg.Ctime)
	if err := row.Scan(&msg.ID); err != nil {
		if dbutil.IsForeignKeyViolation(err) {
			return appErr.ErrNotFound
		}
		return err
	}
	return nil
}

// ListByVideo returns the conversation in the order it happened.
func (r *ChatMessageRepo) ListByVideo(ctx context.Context, videoID string, limit int) ([]model.ChatMessage, error) {
	where := map[string]interface{}{
		"video_id": videoID,
		"_orderby": "id asc",
	}
	if limit > 0 {
		where["_limit"] = []uint{0, uint(limit)}
	}
	sqlStr, args, err := builder.BuildSelect("chat_messages", where, []string{"id", "video_id", "message", "response", "timestamp", "segment_text", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.ChatMessage
	for rows.Next() {
		var item model.ChatMessage
		var response sql.NullString
		var ts sql.NullFloat64
		var segText sql.NullString
		if err := rows.Scan(&item.ID, &item.VideoID, &item.Message, &response, &ts, &segText, &item.Ctime); err != nil {
			return nil, err
		}
		item.Response = response.String
		if ts.Valid {
			item.Timestamp = &ts.Float64
		}
		if segText.Valid {
			item.SegmentText = &segText.String
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

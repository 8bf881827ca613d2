package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/framefinder/internal/model"
)

type TranscriptRepo struct {
	db *sql.DB
}

func NewTranscriptRepo(db *sql.DB) *TranscriptRepo {
	return &TranscriptRepo{db: db}
}

// Replace stores the transcript and its segments for a video in one
// transaction, dropping whatever transcript the video had before.
func (r *TranscriptRepo) Replace(ctx context.Context, transcript *model.Transcript, segments []model.TranscriptSegment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transcripts WHERE video_id = $1`, transcript.VideoID); err != nil {
		return fmt.Errorf("delete old transcript: %w", err)
	}
	row := tx.QueryRowContext(ctx,
		`INSERT INTO transcripts (video_id, full_text, ctime) VALUES ($1, $2, $3) RETURNING id`,
		transcript.VideoID, transcript.FullText, transcript.Ctime,
	)
	if err := row.Scan(&transcript.ID); err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transcript_segments (transcript_id, text, start_time, end_time, embedding)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i := range segments {
		seg := &segments[i]
		seg.TranscriptID = transcript.ID
		var embedding interface{}
		if len(seg.Embedding) > 0 {
			embedding = pgvector.NewVector(seg.Embedding)
		}
		if err := stmt.QueryRowContext(ctx, seg.TranscriptID, seg.Text, seg.StartTime, seg.EndTime, embedding).Scan(&seg.ID); err != nil {
			return fmt.Errorf("insert segment %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// ListSegments returns every segment of the video's transcript ordered by
// start time. A video without transcript yields an empty list.
func (r *TranscriptRepo) ListSegments(ctx context.Context, videoID string) ([]model.TranscriptSegment, error) {
	const query = `
		SELECT s.id, s.transcript_id, s.text, s.start_time, s.end_time, s.embedding
		FROM transcript_segments s
		JOIN transcripts t ON t.id = s.transcript_id
		WHERE t.video_id = $1
		ORDER BY s.start_time ASC, s.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, videoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var segments []model.TranscriptSegment
	for rows.Next() {
		var seg model.TranscriptSegment
		var embedding pgvector.Vector
		if err := rows.Scan(&seg.ID, &seg.TranscriptID, &seg.Text, &seg.StartTime, &seg.EndTime, &nullVector{v: &embedding}); err != nil {
			return nil, err
		}
		seg.Embedding = embedding.Slice()
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// nullVector scans a nullable vector column, leaving the target empty on NULL.
type nullVector struct {
	v *pgvector.Vector
}

func (n *nullVector) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	return n.v.Scan(src)
}

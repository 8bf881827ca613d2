package service

import (
	"errors"
	"fmt"
)

var (
	ErrDurationUnavailable = errors.New("video duration unavailable")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrEmbeddingFailed     = errors.New("embedding failed")
	ErrIngestInProgress    = errors.New("ingestion already queued or running")
	ErrQueueClosed         = errors.New("ingest queue closed")
	ErrVideoNotReady       = errors.New("video is still processing")
)

type DurationExceededError struct {
	Actual float64
	Max    float64
}

func (e *DurationExceededError) Error() string {
	return fmt.Sprintf("video duration (%.1fs) exceeds maximum allowed duration (%.0fs)", e.Actual, e.Max)
}

// Package transcribe turns a video file into timed transcript segments.
package transcribe

import (
	"context"
	"os"
	"time"

	"github.com/xxxsen/framefinder/internal/config"
	"github.com/xxxsen/framefinder/internal/media"
)

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type Result struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, path string) (*Result, error)
}

// AudioExtractor is the slice of media.FFmpeg the transcribers need.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, in, out string) error
	ExtractWAV(ctx context.Context, in, out string) error
}

var _ AudioExtractor = (*media.FFmpeg)(nil)

// New builds the transcription chain from config. The remote API is only
// used when enabled and keyed; otherwise the local model runs alone.
func New(cfg config.TranscriptionConfig, extractor AudioExtractor) Transcriber {
	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	local := WithTimeout(NewWhisperCPP(cfg.Local, extractor, workDir), timeout)
	if !cfg.Remote.Enabled || cfg.Remote.APIKey == "" {
		return local
	}
	remote := WithTimeout(NewOpenAI(cfg.Remote, extractor, workDir), timeout)
	return WithFallback(remote, local)
}

type timed struct {
	next    Transcriber
	timeout time.Duration
}

// WithTimeout gives every Transcribe call its own deadline.
func WithTimeout(t Transcriber, timeout time.Duration) Transcriber {
	if timeout <= 0 {
		return t
	}
	return &timed{next: t, timeout: timeout}
}

func (t *timed) Name() string {
	return t.next.Name()
}

func (t *timed) Transcribe(ctx context.Context, path string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Transcribe(ctx, path)
}

// Package media wraps the ffmpeg and ffprobe binaries.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNoDuration means ffprobe ran but reported no usable duration.
var ErrNoDuration = errors.New("media duration unavailable")

// audioOnlyUnfriendly lists containers the remote transcription API refuses;
// their audio is extracted first.
var audioOnlyUnfriendly = map[string]bool{
	".mov": true,
	".avi": true,
	".mkv": true,
	".wmv": true,
	".flv": true,
}

type FFmpeg struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// Duration returns the video stream duration in seconds, or the container
// duration when the stream carries none.
func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, f.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=duration:format=duration",
		"-of", "json",
		path,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseProbeDuration(out)
}

type probeOutput struct {
	Streams []struct {
		Duration string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbeDuration(raw []byte) (float64, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("decode ffprobe output: %w", err)
	}
	candidates := make([]string, 0, len(out.Streams)+1)
	for _, s := range out.Streams {
		candidates = append(candidates, s.Duration)
	}
	candidates = append(candidates, out.Format.Duration)
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || c == "N/A" {
			continue
		}
		sec, err := strconv.ParseFloat(c, 64)
		if err != nil || sec <= 0 {
			continue
		}
		return sec, nil
	}
	return 0, ErrNoDuration
}

// NeedsAudioExtraction reports whether path must be converted to audio before
// remote transcription.
func NeedsAudioExtraction(path string) bool {
	return audioOnlyUnfriendly[strings.ToLower(filepath.Ext(path))]
}

// ExtractAudio writes a mono 128k mp3 of the input's audio track to out.
func (f *FFmpeg) ExtractAudio(ctx context.Context, in, out string) error {
	cmd := exec.CommandContext(ctx, f.ffmpeg,
		"-y",
		"-i", in,
		"-vn",
		"-ac", "1",
		"-acodec", "libmp3lame",
		"-b:a", "128k",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

// ExtractWAV writes 16kHz mono PCM, the input format whisper.cpp expects.
func (f *FFmpeg) ExtractWAV(ctx context.Context, in, out string) error {
	cmd := exec.CommandContext(ctx, f.ffmpeg,
		"-y",
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		out,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract wav: %w\n%s", err, string(b))
	}
	return nil
}

// StreamClip copies [start, end] of the input to w as fragmented mp4 without
// re-encoding, so bytes flow before ffmpeg finishes.
func (f *FFmpeg) StreamClip(ctx context.Context, in string, start, end float64, w io.Writer) error {
	if end <= start {
		return fmt.Errorf("invalid clip range %.3f-%.3f", start, end)
	}
	cmd := exec.CommandContext(ctx, f.ffmpeg, clipArgs(in, start, end)...)
	var stderr strings.Builder
	cmd.Stdout = w
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg clip: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func clipArgs(in string, start, end float64) []string {
	return []string{
		"-v", "error",
		"-ss", fmtSeconds(start),
		"-i", in,
		"-t", fmtSeconds(end - start),
		"-c", "copy",
		"-movflags", "frag_keyframe+empty_moov",
		"-f", "mp4",
		"pipe:1",
	}
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

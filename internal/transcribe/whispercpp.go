package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/xxxsen/framefinder/internal/config"
)

// WhisperCPP runs a local whisper.cpp binary against a 16kHz wav copy of the
// input.
type WhisperCPP struct {
	bin       string
	model     string
	language  string
	extractor AudioExtractor
	workDir   string
}

func NewWhisperCPP(cfg config.LocalTranscriptionConfig, extractor AudioExtractor, workDir string) *WhisperCPP {
	bin := cfg.Bin
	if bin == "" {
		bin = "whisper-cli"
	}
	return &WhisperCPP{bin: bin, model: cfg.Model, language: cfg.Language, extractor: extractor, workDir: workDir}
}

func (w *WhisperCPP) Name() string {
	return "whispercpp"
}

func (w *WhisperCPP) Transcribe(ctx context.Context, path string) (*Result, error) {
	dir, err := os.MkdirTemp(w.workDir, "whisper-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()
	wavPath := filepath.Join(dir, "audio.wav")
	if err := w.extractor.ExtractWAV(ctx, path, wavPath); err != nil {
		return nil, err
	}
	outPrefix := filepath.Join(dir, "whisper")
	args := []string{
		"-m", w.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
	}
	if w.language != "" {
		args = append(args, "-l", w.language)
	}
	cmd := exec.CommandContext(ctx, w.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}
	raw, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return nil, err
	}
	return parseWhisperJSON(raw)
}

type whisperOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// parseWhisperJSON reads the -oj output, whose offsets are milliseconds.
func parseWhisperJSON(raw []byte) (*Result, error) {
	var out whisperOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode whisper.cpp output: %w", err)
	}
	res := &Result{}
	texts := make([]string, 0, len(out.Transcription))
	for _, item := range out.Transcription {
		text := strings.TrimSpace(item.Text)
		res.Segments = append(res.Segments, Segment{
			Start: float64(item.Offsets.From) / 1000,
			End:   float64(item.Offsets.To) / 1000,
			Text:  text,
		})
		if text != "" {
			texts = append(texts, text)
		}
	}
	res.Text = strings.Join(texts, " ")
	return res, nil
}

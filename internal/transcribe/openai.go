package transcribe

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/framefinder/internal/config"
	"github.com/xxxsen/framefinder/internal/media"
)

// OpenAI uses the hosted Whisper API with verbose JSON to get segment
// timestamps.
type OpenAI struct {
	client    *openai.Client
	model     string
	language  string
	extractor AudioExtractor
	workDir   string
}

func NewOpenAI(cfg config.RemoteTranscriptionConfig, extractor AudioExtractor, workDir string) *OpenAI {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAI{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     model,
		language:  cfg.Language,
		extractor: extractor,
		workDir:   workDir,
	}
}

func (o *OpenAI) Name() string {
	return "openai"
}

func (o *OpenAI) Transcribe(ctx context.Context, path string) (*Result, error) {
	input := path
	if media.NeedsAudioExtraction(path) {
		audio, err := os.CreateTemp(o.workDir, "audio-*.mp3")
		if err != nil {
			return nil, err
		}
		audioPath := audio.Name()
		_ = audio.Close()
		defer func() {
			_ = os.Remove(audioPath)
		}()
		if err := o.extractor.ExtractAudio(ctx, path, audioPath); err != nil {
			return nil, err
		}
		logutil.GetLogger(ctx).Debug("extracted audio for remote transcription", zap.String("audio", audioPath))
		input = audioPath
	}
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: input,
		Format:   openai.AudioResponseFormatVerboseJSON,
		Language: o.language,
	})
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}
	res := &Result{Text: strings.TrimSpace(resp.Text)}
	for _, seg := range resp.Segments {
		res.Segments = append(res.Segments, Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	return res, nil
}

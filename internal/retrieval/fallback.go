package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/framefinder/internal/ai"
	"github.com/xxxsen/framefinder/internal/model"
)

const fallbackPromptHeader = `Below is the complete transcript of a video with timestamps in seconds.
Find the earliest moment in the video that answers the question.

Question: %s

Transcript:
%s

Reply with JSON only, in exactly this shape:
{"found": true, "start_time": <seconds or null>, "end_time": <seconds or null>, "text": "<the transcript excerpt that answers the question, or null>"}
Set "found" to false when the transcript does not answer the question.`

// Padding, in seconds, around a single point returned by the model.
const (
	pointBefore = 2.0
	pointAfter  = 4.0
	broadBefore = 3.0
	broadAfter  = 8.0
)

// pointQuestionWords open questions answered by a moment rather than an
// explanation, so they get the tighter window.
var pointQuestionWords = map[string]bool{"when": true, "where": true, "who": true}

type fallbackLine struct {
	StartS float64 `json:"start_s"`
	EndS   float64 `json:"end_s"`
	Text   string  `json:"text"`
}

type fallbackReply struct {
	Found     bool    `json:"found"`
	StartTime seconds `json:"start_time"`
	EndTime   seconds `json:"end_time"`
	Text      *string `json:"text"`
}

// TranscriptSearcher runs when the refiner gives up: it shows the model the
// whole transcript rather than the ranked candidates.
type TranscriptSearcher struct {
	llm Completer
}

func NewTranscriptSearcher(llm Completer) *TranscriptSearcher {
	return &TranscriptSearcher{llm: llm}
}

// Search follows the same error contract as Refiner.Refine.
func (s *TranscriptSearcher) Search(ctx context.Context, query string, segments []model.TranscriptSegment) (Outcome, error) {
	if len(segments) == 0 {
		return NotFound, nil
	}
	logger := logutil.GetLogger(ctx).With(zap.String("stage", "full_transcript"), zap.String("query", query))
	prompt, err := buildFallbackPrompt(query, segments)
	if err != nil {
		logger.Error("build transcript prompt failed", zap.Error(err))
		return NotFound, nil
	}
	raw, err := s.llm.Complete(ctx, prompt, refineTemperature)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return NotFound, err
		}
		logger.Warn("transcript search call failed", zap.Error(err))
		return NotFound, nil
	}
	var reply fallbackReply
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &reply); err != nil {
		logger.Warn("transcript reply is not valid json", zap.Error(err), zap.String("reply", raw))
		return NotFound, nil
	}
	start, ok := reply.StartTime.get()
	if !reply.Found || !ok {
		return NotFound, nil
	}
	window := ContextWindow(query, start)
	if end, ok := reply.EndTime.get(); ok && end > start {
		window = TimeRange{Start: start, End: end}
	}
	text := ""
	if reply.Text != nil {
		text = PlainText(*reply.Text)
	}
	if text == "" {
		text = Truncate(segmentText(segments, window.Start, window.End), refineTextLimit)
	}
	return Found(Match{
		Timestamp: start,
		Text:      text,
		Window:    window,
	}), nil
}

// ContextWindow sizes a playable range around a single point in time from
// the shape of the question.
func ContextWindow(query string, point float64) TimeRange {
	if pointQuestionWords[firstWord(query)] {
		return TimeRange{Start: maxFloat(0, point-pointBefore), End: point + pointAfter}
	}
	return TimeRange{Start: maxFloat(0, point-broadBefore), End: point + broadAfter}
}

func firstWord(query string) string {
	query = strings.ToLower(strings.TrimSpace(query))
	end := strings.IndexFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if end < 0 {
		return query
	}
	return query[:end]
}

func buildFallbackPrompt(query string, segments []model.TranscriptSegment) (string, error) {
	lines := make([]fallbackLine, 0, len(segments))
	for _, seg := range segments {
		lines = append(lines, fallbackLine{StartS: seg.StartTime, EndS: seg.EndTime, Text: seg.Text})
	}
	data, err := json.MarshalIndent(lines, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(fallbackPromptHeader, query, string(data)), nil
}

func segmentText(segments []model.TranscriptSegment, start, end float64) string {
	parts := make([]string, 0, 4)
	for _, seg := range segments {
		if seg.Overlaps(start, end) {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, " ")
}

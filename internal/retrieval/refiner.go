package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/framefinder/internal/ai"
)

// Completer is the language model as seen by the retrieval stages.
type Completer interface {
	Complete(ctx context.Context, prompt string, temperature float32) (string, error)
}

const (
	refineTemperature  = 0
	refineTextLimit    = 200
	refinePromptHeader = `You are given segments of a video transcript and a question about the video.
Choose the part of the video that should be played to answer the question.

Question: %s

Candidate segments, in chronological order:
%s

Rules:
- The range must be one continuous span; it may cover one segment or several adjacent ones.
- Pick the shortest range that fully answers the question.
- If none of the segments answer the question, set "found" to false.

Reply with JSON only, in exactly this shape:
{"found": true, "play_start_time": <seconds>, "play_end_time": <seconds>, "explanation": "<what is said in this range that answers the question>"}`
)

type refineCandidate struct {
	SegmentNumber  int    `json:"segment_number"`
	TimeRange      string `json:"time_range"`
	Text           string `json:"text"`
	RelevanceScore string `json:"relevance_score"`
}

type refineReply struct {
	Found         bool    `json:"found"`
	PlayStartTime seconds `json:"play_start_time"`
	PlayEndTime   seconds `json:"play_end_time"`
	Explanation   string  `json:"explanation"`
}

// Refiner asks the model to pick one continuous range out of the top ranked
// candidates.
type Refiner struct {
	llm Completer
}

func NewRefiner(llm Completer) *Refiner {
	return &Refiner{llm: llm}
}

// Refine returns NotFound for every model or parse problem. The only error
// it reports is ai.ErrUnavailable, so callers can tell "no model" from "no
// answer".
func (r *Refiner) Refine(ctx context.Context, query string, candidates []ScoredSegment) (Outcome, error) {
	if len(candidates) == 0 {
		return NotFound, nil
	}
	logger := logutil.GetLogger(ctx).With(zap.String("stage", "refine"), zap.String("query", query))
	ordered := byStart(candidates)
	prompt, err := buildRefinePrompt(query, ordered)
	if err != nil {
		logger.Error("build refine prompt failed", zap.Error(err))
		return NotFound, nil
	}
	raw, err := r.llm.Complete(ctx, prompt, refineTemperature)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			return NotFound, err
		}
		logger.Warn("refine call failed", zap.Error(err))
		return NotFound, nil
	}
	var reply refineReply
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &reply); err != nil {
		logger.Warn("refine reply is not valid json", zap.Error(err), zap.String("reply", raw))
		return NotFound, nil
	}
	start, okStart := reply.PlayStartTime.get()
	end, okEnd := reply.PlayEndTime.get()
	if !reply.Found || !okStart || !okEnd {
		logger.Debug("refiner found nothing", zap.Bool("found", reply.Found))
		return NotFound, nil
	}
	if end < start {
		logger.Warn("refiner returned inverted range", zap.Float64("start", start), zap.Float64("end", end))
		return NotFound, nil
	}
	text := PlainText(reply.Explanation)
	if text == "" {
		text = Truncate(overlappingText(ordered, start, end), refineTextLimit)
	}
	return Found(Match{
		Timestamp: start,
		Text:      text,
		Window:    TimeRange{Start: start, End: end},
	}), nil
}

func buildRefinePrompt(query string, ordered []ScoredSegment) (string, error) {
	items := make([]refineCandidate, 0, len(ordered))
	for i, item := range ordered {
		items = append(items, refineCandidate{
			SegmentNumber:  i + 1,
			TimeRange:      fmt.Sprintf("%.1fs - %.1fs", item.Segment.StartTime, item.Segment.EndTime),
			Text:           item.Segment.Text,
			RelevanceScore: fmt.Sprintf("%.3f", item.Score),
		})
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(refinePromptHeader, query, string(data)), nil
}

func overlappingText(ordered []ScoredSegment, start, end float64) string {
	parts := make([]string, 0, len(ordered))
	for _, item := range ordered {
		if item.Segment.Overlaps(start, end) {
			parts = append(parts, item.Segment.Text)
		}
	}
	return strings.Join(parts, " ")
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/framefinder/internal/ai"
	"github.com/xxxsen/framefinder/internal/model"
	"github.com/xxxsen/framefinder/internal/pkg/timeutil"
	"github.com/xxxsen/framefinder/internal/retrieval"
)

const (
	chatExcerptLimit = 100
	chatNotFoundText = "I couldn't find specific information about that in the video. Could you try rephrasing your question?"
)

type SegmentReader interface {
	ListSegments(ctx context.Context, videoID string) ([]model.TranscriptSegment, error)
}

type SearchLogWriter interface {
	Append(ctx context.Context, item *model.SearchLog) error
}

type ChatStore interface {
	Create(ctx context.Context, msg *model.ChatMessage) error
	ListByVideo(ctx context.Context, videoID string, limit int) ([]model.ChatMessage, error)
}

type SearchDeps struct {
	Segments SegmentReader
	Logs     SearchLogWriter
	Chats    ChatStore
	Embedder Embedder
	LLM      retrieval.Completer
}

// SearchService answers questions about one video's transcript. Failures
// never escape: they end as the all-null result.
type SearchService struct {
	deps     SearchDeps
	refiner  *retrieval.Refiner
	searcher *retrieval.TranscriptSearcher
	topK     int
}

func NewSearchService(deps SearchDeps, topK int) *SearchService {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	return &SearchService{
		deps:     deps,
		refiner:  retrieval.NewRefiner(deps.LLM),
		searcher: retrieval.NewTranscriptSearcher(deps.LLM),
		topK:     topK,
	}
}

type ChatReply struct {
	Text        string               `json:"text"`
	Timestamp   *float64             `json:"timestamp"`
	Window      *retrieval.TimeRange `json:"window"`
	SegmentText *string              `json:"segment_text"`
}

func (s *SearchService) Search(ctx context.Context, videoID, query string) retrieval.Result {
	outcome := s.find(ctx, videoID, query)
	s.record(ctx, videoID, query, outcome)
	return outcome.Result()
}

func (s *SearchService) find(ctx context.Context, videoID, query string) retrieval.Outcome {
	logger := logutil.GetLogger(ctx).With(zap.String("video_id", videoID), zap.String("query", query))
	segments, err := s.deps.Segments.ListSegments(ctx, videoID)
	if err != nil {
		logger.Error("load segments failed", zap.Error(err))
		return retrieval.NotFound
	}
	if len(segments) == 0 {
		logger.Info("video has no transcript segments")
		return retrieval.NotFound
	}
	queryVec, err := s.deps.Embedder.Embed(ctx, query, ai.TaskRetrievalQuery)
	if err != nil {
		logger.Error("embed query failed", zap.Error(err))
		return retrieval.NotFound
	}
	top := retrieval.TopK(retrieval.Rank(queryVec, segments), s.topK)
	logger.Debug("ranked segments", zap.Int("segments", len(segments)), zap.Int("candidates", len(top)))

	outcome, err := s.refiner.Refine(ctx, query, top)
	if err != nil {
		s.logStageError(logger, err)
		return retrieval.NotFound
	}
	if outcome.Found() {
		return outcome
	}
	logger.Info("refiner inconclusive, searching full transcript")
	outcome, err = s.searcher.Search(ctx, query, segments)
	if err != nil {
		s.logStageError(logger, err)
		return retrieval.NotFound
	}
	return outcome
}

func (s *SearchService) logStageError(logger *zap.Logger, err error) {
	if errors.Is(err, ai.ErrUnavailable) {
		logger.Warn("language model unavailable, returning empty result")
		return
	}
	logger.Error("search stage failed", zap.Error(err))
}

func (s *SearchService) record(ctx context.Context, videoID, query string, outcome retrieval.Outcome) {
	res := outcome.Result()
	item := &model.SearchLog{
		VideoID:         videoID,
		Query:           query,
		ResultTimestamp: res.Timestamp,
		ResultText:      res.Text,
		Ctime:           timeutil.NowUnix(),
	}
	if err := s.deps.Logs.Append(ctx, item); err != nil {
		logutil.GetLogger(ctx).Warn("append search log failed", zap.String("video_id", videoID), zap.Error(err))
	}
}

// SearchForChat runs Search and phrases the result as a chat answer, which
// is stored as part of the video's conversation.
func (s *SearchService) SearchForChat(ctx context.Context, videoID, message string) ChatReply {
	reply := chatReplyFor(s.Search(ctx, videoID, message))
	msg := &model.ChatMessage{
		VideoID:     videoID,
		Message:     message,
		Response:    reply.Text,
		Timestamp:   reply.Timestamp,
		SegmentText: reply.SegmentText,
		Ctime:       timeutil.NowUnix(),
	}
	if err := s.deps.Chats.Create(ctx, msg); err != nil {
		logutil.GetLogger(ctx).Warn("save chat message failed", zap.String("video_id", videoID), zap.Error(err))
	}
	return reply
}

func chatReplyFor(res retrieval.Result) ChatReply {
	if res.Timestamp == nil {
		return ChatReply{Text: chatNotFoundText}
	}
	clock := timeutil.FormatClock(*res.Timestamp)
	text := fmt.Sprintf("I found something relevant at %s in the video.", clock)
	if res.Text != nil && *res.Text != "" {
		text = fmt.Sprintf("I found relevant information at %s in the video. %s", clock, retrieval.Truncate(*res.Text, chatExcerptLimit))
	}
	return ChatReply{
		Text:        text,
		Timestamp:   res.Timestamp,
		Window:      res.Window,
		SegmentText: res.Text,
	}
}

func (s *SearchService) ChatHistory(ctx context.Context, videoID string, limit int) ([]model.ChatMessage, error) {
	return s.deps.Chats.ListByVideo(ctx, videoID, limit)
}

// CandidateWindows groups the top ranked segments into windows without
// asking the language model.
func (s *SearchService) CandidateWindows(ctx context.Context, videoID, query string) ([]retrieval.Window, error) {
	segments, err := s.deps.Segments.ListSegments(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, nil
	}
	queryVec, err := s.deps.Embedder.Embed(ctx, query, ai.TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return retrieval.Merge(retrieval.TopK(retrieval.Rank(queryVec, segments), s.topK)), nil
}

package handler

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/framefinder/internal/model"
	"github.com/xxxsen/framefinder/internal/pkg/errcode"
	"github.com/xxxsen/framefinder/internal/pkg/response"
	"github.com/xxxsen/framefinder/internal/retrieval"
	"github.com/xxxsen/framefinder/internal/service"
)

const maxQueryLength = 1000

type SearchAPI interface {
	Search(ctx context.Context, videoID, query string) retrieval.Result
	SearchForChat(ctx context.Context, videoID, message string) service.ChatReply
	ChatHistory(ctx context.Context, videoID string, limit int) ([]model.ChatMessage, error)
	CandidateWindows(ctx context.Context, videoID, query string) ([]retrieval.Window, error)
}

type VideoGate interface {
	RequireCompleted(ctx context.Context, id string) (*model.Video, error)
}

type SearchHandler struct {
	videos   VideoGate
	search   SearchAPI
	clipPath string
}

// NewSearchHandler takes the public path of the clip endpoint, used to build
// segment_url.
func NewSearchHandler(videos VideoGate, search SearchAPI, clipPath string) *SearchHandler {
	return &SearchHandler{videos: videos, search: search, clipPath: clipPath}
}

type searchRequest struct {
	Query string `json:"query"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type searchResponse struct {
	retrieval.Result
	SegmentURL *string `json:"segment_url"`
}

type chatResponse struct {
	service.ChatReply
	SegmentURL *string `json:"segment_url"`
}

type windowResponse struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
	BestStart float64 `json:"best_start"`
	BestEnd   float64 `json:"best_end"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	query, ok := h.cleanQuery(c, req.Query)
	if !ok {
		return
	}
	videoID := c.Param("id")
	if _, err := h.videos.RequireCompleted(c.Request.Context(), videoID); err != nil {
		handleError(c, err)
		return
	}
	res := h.search.Search(c.Request.Context(), videoID, query)
	response.Success(c, searchResponse{Result: res, SegmentURL: h.segmentURL(videoID, res.Window)})
}

func (h *SearchHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	message, ok := h.cleanQuery(c, req.Message)
	if !ok {
		return
	}
	videoID := c.Param("id")
	if _, err := h.videos.RequireCompleted(c.Request.Context(), videoID); err != nil {
		handleError(c, err)
		return
	}
	reply := h.search.SearchForChat(c.Request.Context(), videoID, message)
	response.Success(c, chatResponse{ChatReply: reply, SegmentURL: h.segmentURL(videoID, reply.Window)})
}

func (h *SearchHandler) ChatHistory(c *gin.Context) {
	_, limit := parsePaging(c)
	items, err := h.search.ChatHistory(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		handleError(c, err)
		return
	}
	if items == nil {
		items = []model.ChatMessage{}
	}
	response.Success(c, items)
}

// Windows lists candidate windows for a query without consulting the
// language model.
func (h *SearchHandler) Windows(c *gin.Context) {
	query, ok := h.cleanQuery(c, c.Query("q"))
	if !ok {
		return
	}
	videoID := c.Param("id")
	if _, err := h.videos.RequireCompleted(c.Request.Context(), videoID); err != nil {
		handleError(c, err)
		return
	}
	windows, err := h.search.CandidateWindows(c.Request.Context(), videoID, query)
	if err != nil {
		handleError(c, err)
		return
	}
	out := make([]windowResponse, 0, len(windows))
	for _, w := range windows {
		out = append(out, windowResponse{
			Start:     w.Start,
			End:       w.End,
			Text:      w.Text,
			Score:     w.Score,
			BestStart: w.Best.StartTime,
			BestEnd:   w.Best.EndTime,
		})
	}
	response.Success(c, out)
}

func (h *SearchHandler) cleanQuery(c *gin.Context, raw string) (string, bool) {
	query := strings.TrimSpace(raw)
	if query == "" {
		response.Error(c, errcode.ErrInvalid, "query is required")
		return "", false
	}
	if len([]rune(query)) > maxQueryLength {
		response.Error(c, errcode.ErrInvalid, fmt.Sprintf("query exceeds %d characters", maxQueryLength))
		return "", false
	}
	return query, true
}

func (h *SearchHandler) segmentURL(videoID string, window *retrieval.TimeRange) *string {
	if window == nil {
		return nil
	}
	values := url.Values{}
	values.Set("video_id", videoID)
	values.Set("start", strconv.FormatFloat(window.Start, 'f', -1, 64))
	values.Set("end", strconv.FormatFloat(window.End, 'f', -1, 64))
	link := h.clipPath + "?" + values.Encode()
	return &link
}

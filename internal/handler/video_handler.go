package handler

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/framefinder/internal/model"
	"github.com/xxxsen/framefinder/internal/pkg/errcode"
	"github.com/xxxsen/framefinder/internal/pkg/response"
	"github.com/xxxsen/framefinder/internal/service"
)

const statusKeepAlive = 15 * time.Second

type VideoAPI interface {
	Upload(ctx context.Context, title, filename string, r io.ReadSeeker, size int64) (*model.Video, error)
	List(ctx context.Context, offset, limit int) ([]model.Video, error)
	Get(ctx context.Context, id string) (*model.Video, error)
	Delete(ctx context.Context, id string) error
	Reingest(ctx context.Context, id string) error
	SearchLogs(ctx context.Context, id string, offset, limit int) ([]model.SearchLog, error)
	WatchStatus(ctx context.Context, id string) (*service.Subscription, service.StatusEvent, error)
}

type VideoHandler struct {
	videos        VideoAPI
	maxUploadSize int64
}

func NewVideoHandler(videos VideoAPI, maxUploadSize int64) *VideoHandler {
	return &VideoHandler{videos: videos, maxUploadSize: maxUploadSize}
}

type videoListResponse struct {
	Items  []model.Video `json:"items"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
}

func (h *VideoHandler) Upload(c *gin.Context) {
	limitBody(c, h.maxUploadSize)
	file, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			response.Error(c, errcode.ErrInvalidFile, fmt.Sprintf("file exceeds %s", formatUploadLimit(h.maxUploadSize)))
			return
		}
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()
	video, err := h.videos.Upload(c.Request.Context(), c.PostForm("title"), file.Filename, opened, file.Size)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, video)
}

func (h *VideoHandler) List(c *gin.Context) {
	offset, limit := parsePaging(c)
	videos, err := h.videos.List(c.Request.Context(), offset, limit)
	if err != nil {
		handleError(c, err)
		return
	}
	if videos == nil {
		videos = []model.Video{}
	}
	response.Success(c, videoListResponse{Items: videos, Offset: offset, Limit: limit})
}

func (h *VideoHandler) Get(c *gin.Context) {
	video, err := h.videos.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, video)
}

func (h *VideoHandler) Delete(c *gin.Context) {
	if err := h.videos.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id")})
}

func (h *VideoHandler) Reingest(c *gin.Context) {
	if err := h.videos.Reingest(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"id": c.Param("id"), "status": model.VideoStatusProcessing})
}

func (h *VideoHandler) Searches(c *gin.Context) {
	offset, limit := parsePaging(c)
	logs, err := h.videos.SearchLogs(c.Request.Context(), c.Param("id"), offset, limit)
	if err != nil {
		handleError(c, err)
		return
	}
	if logs == nil {
		logs = []model.SearchLog{}
	}
	response.Success(c, logs)
}

// Status streams status events as server-sent events until the video
// reaches a terminal status or the client goes away.
func (h *VideoHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	sub, current, err := h.videos.WatchStatus(ctx, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("status", current)
	c.Writer.Flush()
	if current.Status.Terminal() {
		return
	}
	ticker := time.NewTicker(statusKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.C:
			c.SSEvent("status", ev)
			c.Writer.Flush()
			if ev.Status.Terminal() {
				return
			}
		case <-ticker.C:
			if _, err := io.WriteString(c.Writer, ": ping\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

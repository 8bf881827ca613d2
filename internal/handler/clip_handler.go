package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/framefinder/internal/model"
	"github.com/xxxsen/framefinder/internal/pkg/errcode"
	"github.com/xxxsen/framefinder/internal/pkg/response"
)

const defaultClipTimeout = 30 * time.Second

type VideoFileOpener interface {
	OpenFile(ctx context.Context, id string) (*model.Video, string, func(), error)
}

type ClipStreamer interface {
	StreamClip(ctx context.Context, in string, start, end float64, w io.Writer) error
}

type ClipHandler struct {
	videos  VideoFileOpener
	clipper ClipStreamer
	timeout time.Duration
}

func NewClipHandler(videos VideoFileOpener, clipper ClipStreamer, timeout time.Duration) *ClipHandler {
	if timeout <= 0 {
		timeout = defaultClipTimeout
	}
	return &ClipHandler{videos: videos, clipper: clipper, timeout: timeout}
}

// Clip streams [start, end) of a video as fragmented MP4. HEAD answers with
// the headers only so players can probe the url.
func (h *ClipHandler) Clip(c *gin.Context) {
	videoID := c.Query("video_id")
	start, errStart := strconv.ParseFloat(c.Query("start"), 64)
	end, errEnd := strconv.ParseFloat(c.Query("end"), 64)
	if videoID == "" || errStart != nil || errEnd != nil || start < 0 || end <= start {
		response.Error(c, errcode.ErrInvalid, "video_id, start and end are required and start must be before end")
		return
	}
	video, path, release, err := h.videos.OpenFile(c.Request.Context(), videoID)
	if err != nil {
		handleError(c, err)
		return
	}
	defer release()
	if video.Duration > 0 && start >= video.Duration {
		response.Error(c, errcode.ErrInvalid, "start is beyond the end of the video")
		return
	}

	c.Header("Content-Type", "video/mp4")
	c.Header("Cache-Control", "no-cache")
	c.Header("Accept-Ranges", "none")
	if c.Request.Method == http.MethodHead {
		c.Status(http.StatusOK)
		return
	}
	c.Status(http.StatusOK)
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()
	if err := h.clipper.StreamClip(ctx, path, start, end, c.Writer); err != nil {
		logutil.GetLogger(ctx).Warn("clip stream ended with error",
			zap.String("video_id", videoID),
			zap.Float64("start", start),
			zap.Float64("end", end),
			zap.Error(err),
		)
	}
}

package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/framefinder/internal/pkg/errcode"
	appErr "github.com/xxxsen/framefinder/internal/pkg/errors"
	"github.com/xxxsen/framefinder/internal/pkg/response"
	"github.com/xxxsen/framefinder/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Warn("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, service.ErrVideoNotReady):
		response.Error(c, errcode.ErrVideoProcessing, service.ErrVideoNotReady.Error())
	case errors.Is(err, service.ErrIngestInProgress):
		response.Error(c, errcode.ErrIngestInProgress, service.ErrIngestInProgress.Error())
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, err.Error())
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrTooMany), errors.Is(err, service.ErrQueueClosed):
		response.Error(c, errcode.ErrTooMany, "ingest queue is full, try again later")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}

func parsePaging(c *gin.Context) (int, int) {
	offset, _ := strconv.Atoi(c.Query("offset"))
	if offset < 0 {
		offset = 0
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return offset, limit
}

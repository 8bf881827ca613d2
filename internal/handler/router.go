package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/framefinder/internal/middleware"
)

// ClipPath is where the clip endpoint is mounted under the api prefix.
const ClipPath = "/clip"

type RouterDeps struct {
	Videos    *VideoHandler
	Search    *SearchHandler
	Clips     *ClipHandler
	JWTSecret []byte
	RateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/videos", deps.Videos.Upload)
	authGroup.GET("/videos", deps.Videos.List)
	authGroup.GET("/videos/:id", deps.Videos.Get)
	authGroup.DELETE("/videos/:id", deps.Videos.Delete)
	authGroup.POST("/videos/:id/ingest", deps.Videos.Reingest)
	authGroup.GET("/videos/:id/status", deps.Videos.Status)
	authGroup.GET("/videos/:id/searches", deps.Videos.Searches)

	limited := authGroup.Group("")
	limited.Use(middleware.RateLimit(deps.RateLimit))
	limited.POST("/videos/:id/search", deps.Search.Search)
	limited.POST("/videos/:id/chat", deps.Search.Chat)
	limited.GET("/videos/:id/windows", deps.Search.Windows)
	authGroup.GET("/videos/:id/chat", deps.Search.ChatHistory)

	authGroup.GET(ClipPath, deps.Clips.Clip)
	authGroup.HEAD(ClipPath, deps.Clips.Clip)
}

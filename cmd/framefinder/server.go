package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/framefinder/internal/config"
	"github.com/xxxsen/framefinder/internal/handler"
	"github.com/xxxsen/framefinder/internal/job"
	"github.com/xxxsen/framefinder/internal/middleware"
	"github.com/xxxsen/framefinder/internal/schedule"
)

const (
	apiPrefix       = "/api/v1"
	shutdownTimeout = 30 * time.Second
)

func runServer(ctx context.Context, cfg *config.Config) error {
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	logger := logutil.GetLogger(ctx)
	logger.Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
		zap.Float64("max_duration", cfg.Ingest.MaxDurationSeconds),
		zap.Int("ingest_workers", cfg.Ingest.Workers),
	)

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(a.embedCaches, cfg.Jobs.EmbeddingCacheMaxDays), cfg.Jobs.EmbeddingCacheCleanup); err != nil {
		return err
	}
	staleAfter := time.Duration(cfg.Ingest.StaleAfterMinutes) * time.Minute
	if err := scheduler.AddJob(job.NewStaleIngestJob(a.videos, staleAfter), cfg.Jobs.StaleIngest); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	deps := handler.RouterDeps{
		Videos:    handler.NewVideoHandler(a.videos, cfg.Ingest.MaxUploadSize),
		Search:    handler.NewSearchHandler(a.videos, a.search, apiPrefix+handler.ClipPath),
		Clips:     handler.NewClipHandler(a.videos, a.ffmpeg, time.Duration(cfg.Search.ClipTimeout)*time.Second),
		JWTSecret: []byte(cfg.Auth.JWTSecret),
		RateLimit: time.Duration(cfg.Search.RateLimitMillis) * time.Millisecond,
	}
	engine, err := webapi.NewEngine(
		apiPrefix,
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{
				`/videos/[^/]+/status$`,
				`/clip$`,
			})),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logger.Info("http server listening", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}
	logger.Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.queue.Shutdown(shutdownCtx); err != nil {
		logger.Warn("ingest workers did not stop in time", zap.Error(err))
	}
	return nil
}

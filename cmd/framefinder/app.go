package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/xxxsen/framefinder/internal/ai"
	"github.com/xxxsen/framefinder/internal/config"
	"github.com/xxxsen/framefinder/internal/db"
	"github.com/xxxsen/framefinder/internal/embedcache"
	"github.com/xxxsen/framefinder/internal/filestore"
	"github.com/xxxsen/framefinder/internal/media"
	"github.com/xxxsen/framefinder/internal/repo"
	"github.com/xxxsen/framefinder/internal/service"
	"github.com/xxxsen/framefinder/internal/transcribe"
	"github.com/xxxsen/framefinder/internal/workpool"
)

// app holds the wired components shared by the cli commands.
type app struct {
	cfg         *config.Config
	db          *sql.DB
	ffmpeg      *media.FFmpeg
	broker      *service.StatusBroker
	ingest      *service.IngestService
	queue       *service.IngestQueue
	search      *service.SearchService
	videos      *service.VideoService
	embedCaches *repo.EmbeddingCacheRepo
}

func newApp(cfg *config.Config) (*app, error) {
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	a, err := wire(cfg, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return a, nil
}

func wire(cfg *config.Config, conn *sql.DB) (*app, error) {
	videoRepo := repo.NewVideoRepo(conn)
	transcriptRepo := repo.NewTranscriptRepo(conn)
	searchLogRepo := repo.NewSearchLogRepo(conn)
	chatRepo := repo.NewChatMessageRepo(conn)
	cacheRepo := repo.NewEmbeddingCacheRepo(conn)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return nil, fmt.Errorf("init file store: %w", err)
	}

	generator, err := ai.BuildGenerator(cfg.AI.Generator)
	if err != nil {
		return nil, fmt.Errorf("init generator: %w", err)
	}
	embedder, err := ai.BuildEmbedder(cfg.AI.Embedder)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	if cfg.AI.EmbedCache.DBEnabled {
		embedder = embedcache.WrapDB(embedder, cacheRepo)
	}
	if cfg.AI.EmbedCache.LRUSize > 0 {
		embedder = embedcache.WrapLRU(embedder, cfg.AI.EmbedCache.LRUSize, time.Duration(cfg.AI.EmbedCache.LRUTTLSeconds)*time.Second)
	}
	manager := ai.NewManager(generator, embedder, workpool.New(cfg.AI.Workers), ai.ManagerConfig{Timeout: cfg.AI.Timeout})

	ffmpeg := media.New(cfg.Transcription.FFmpegPath, cfg.Transcription.FFprobePath)
	broker := service.NewStatusBroker()
	ingest := service.NewIngestService(service.IngestDeps{
		Videos:      videoRepo,
		Transcripts: transcriptRepo,
		Files:       store,
		Prober:      ffmpeg,
		Transcriber: transcribe.New(cfg.Transcription, ffmpeg),
		Embedder:    manager,
		Broker:      broker,
	}, cfg.Ingest.MaxDurationSeconds)
	queue := service.NewIngestQueue(ingest, cfg.Ingest.Workers, cfg.Ingest.QueueSize)
	search := service.NewSearchService(service.SearchDeps{
		Segments: transcriptRepo,
		Logs:     searchLogRepo,
		Chats:    chatRepo,
		Embedder: manager,
		LLM:      manager,
	}, cfg.Search.TopK)
	videos := service.NewVideoService(videoRepo, searchLogRepo, store, queue, broker)

	return &app{
		cfg:         cfg,
		db:          conn,
		ffmpeg:      ffmpeg,
		broker:      broker,
		ingest:      ingest,
		queue:       queue,
		search:      search,
		videos:      videos,
		embedCaches: cacheRepo,
	}, nil
}

func (a *app) Close() {
	_ = a.db.Close()
}

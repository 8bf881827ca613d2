package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logger"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port          int                 `json:"port"`
	LogConfig     logger.LogConfig    `json:"log_config"`
	Database      DatabaseConfig      `json:"database"`
	FileStore     FileStoreConfig     `json:"file_store"`
	AI            AIConfig            `json:"ai"`
	Transcription TranscriptionConfig `json:"transcription"`
	Ingest        IngestConfig        `json:"ingest"`
	Search        SearchConfig        `json:"search"`
	Auth          AuthConfig          `json:"auth"`
	Jobs          JobsConfig          `json:"jobs"`
	CORSOrigins   []string            `json:"cors_origins"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ProviderConfig struct {
	Name     string      `json:"name"`
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type EmbedCacheConfig struct {
	LRUSize       int  `json:"lru_size"`
	LRUTTLSeconds int  `json:"lru_ttl_seconds"`
	DBEnabled     bool `json:"db_enabled"`
}

type AIConfig struct {
	Generator  []ProviderConfig `json:"generator"`
	Embedder   []ProviderConfig `json:"embedder"`
	Timeout    int              `json:"timeout"`
	Workers    int              `json:"workers"`
	EmbedCache EmbedCacheConfig `json:"embed_cache"`
}

type RemoteTranscriptionConfig struct {
	Enabled  bool   `json:"enabled"`
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

type LocalTranscriptionConfig struct {
	Bin      string `json:"bin"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

type TranscriptionConfig struct {
	Remote      RemoteTranscriptionConfig `json:"remote"`
	Local       LocalTranscriptionConfig  `json:"local"`
	Timeout     int                       `json:"timeout"`
	FFmpegPath  string                    `json:"ffmpeg_path"`
	FFprobePath string                    `json:"ffprobe_path"`
	WorkDir     string                    `json:"work_dir"`
}

type IngestConfig struct {
	MaxDurationSeconds float64 `json:"max_duration_seconds"`
	Workers            int     `json:"workers"`
	QueueSize          int     `json:"queue_size"`
	StaleAfterMinutes  int     `json:"stale_after_minutes"`
	MaxUploadSize      int64   `json:"max_upload_size"`
}

type SearchConfig struct {
	TopK            int `json:"top_k"`
	RateLimitMillis int `json:"rate_limit_ms"`
	ClipTimeout     int `json:"clip_timeout"`
}

type AuthConfig struct {
	JWTSecret     string `json:"jwt_secret"`
	TokenTTLHours int    `json:"token_ttl_hours"`
}

type JobsConfig struct {
	EmbeddingCacheCleanup string `json:"embedding_cache_cleanup"`
	EmbeddingCacheMaxDays int    `json:"embedding_cache_max_days"`
	StaleIngest           string `json:"stale_ingest"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		raw, err = yamlToJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("decode yaml config: %w", err)
		}
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// yamlToJSON lets the json tags above describe both formats.
func yamlToJSON(raw []byte) ([]byte, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func (cfg *Config) applyDefaults() error {
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	switch cfg.FileStore.Type {
	case "local", "s3":
	default:
		return fmt.Errorf("file_store.type must be local or s3")
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 60
	}
	if cfg.AI.Workers <= 0 {
		cfg.AI.Workers = 4
	}
	if cfg.AI.EmbedCache.LRUSize > 0 && cfg.AI.EmbedCache.LRUTTLSeconds <= 0 {
		cfg.AI.EmbedCache.LRUTTLSeconds = 3600
	}
	if cfg.Transcription.Timeout <= 0 {
		cfg.Transcription.Timeout = 600
	}
	if cfg.Transcription.Remote.APIKey == "" {
		cfg.Transcription.Remote.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Transcription.Remote.Model == "" {
		cfg.Transcription.Remote.Model = "whisper-1"
	}
	if cfg.Transcription.Local.Language == "" {
		cfg.Transcription.Local.Language = "en"
	}
	if cfg.Ingest.MaxDurationSeconds <= 0 {
		cfg.Ingest.MaxDurationSeconds = 180
	}
	if cfg.Ingest.Workers <= 0 {
		cfg.Ingest.Workers = 2
	}
	if cfg.Ingest.QueueSize <= 0 {
		cfg.Ingest.QueueSize = 64
	}
	if cfg.Ingest.MaxUploadSize <= 0 {
		cfg.Ingest.MaxUploadSize = 500 * 1024 * 1024
	}
	if cfg.Ingest.StaleAfterMinutes <= 0 {
		cfg.Ingest.StaleAfterMinutes = 60
	}
	if cfg.Search.TopK <= 0 {
		cfg.Search.TopK = 10
	}
	if cfg.Search.ClipTimeout <= 0 {
		cfg.Search.ClipTimeout = 30
	}
	if cfg.Auth.TokenTTLHours <= 0 {
		cfg.Auth.TokenTTLHours = 24 * 30
	}
	if cfg.Jobs.EmbeddingCacheCleanup == "" {
		cfg.Jobs.EmbeddingCacheCleanup = "30 3 * * *"
	}
	if cfg.Jobs.StaleIngest == "" {
		cfg.Jobs.StaleIngest = "*/10 * * * *"
	}
	for i := range cfg.AI.Generator {
		if err := fillProviderKey(&cfg.AI.Generator[i]); err != nil {
			return fmt.Errorf("ai.generator[%d]: %w", i, err)
		}
	}
	for i := range cfg.AI.Embedder {
		if err := fillProviderKey(&cfg.AI.Embedder[i]); err != nil {
			return fmt.Errorf("ai.embedder[%d]: %w", i, err)
		}
	}
	return nil
}

var providerKeyEnv = map[string]string{
	"gemini":     "GOOGLE_API_KEY",
	"openai":     "OPENAI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

// fillProviderKey injects the provider api key from the environment when the
// config file leaves it out.
func fillProviderKey(p *ProviderConfig) error {
	if strings.TrimSpace(p.Provider) == "" {
		return fmt.Errorf("provider is required")
	}
	if strings.TrimSpace(p.Model) == "" {
		return fmt.Errorf("model is required")
	}
	data, ok := p.Data.(map[string]interface{})
	if p.Data == nil {
		data = map[string]interface{}{}
		ok = true
	}
	if !ok {
		return nil
	}
	if key, _ := data["api_key"].(string); strings.TrimSpace(key) == "" {
		if env := providerKeyEnv[strings.ToLower(p.Provider)]; env != "" {
			data["api_key"] = os.Getenv(env)
		}
	}
	p.Data = data
	return nil
}

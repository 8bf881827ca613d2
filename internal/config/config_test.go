package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSONAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"port": 8080,
		"database": {"dsn": "postgres://localhost/framefinder"},
		"ai": {"generator": [{"provider": "gemini", "model": "gemini-1.5-flash", "data": {"api_key": "k"}}]}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 180.0, cfg.Ingest.MaxDurationSeconds)
	require.Equal(t, 10, cfg.Search.TopK)
	require.Equal(t, "local", cfg.FileStore.Type)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, 30, cfg.Search.ClipTimeout)
	require.Equal(t, int64(500*1024*1024), cfg.Ingest.MaxUploadSize)
	require.Equal(t, "*/10 * * * *", cfg.Jobs.StaleIngest)
	data := cfg.AI.Generator[0].Data.(map[string]interface{})
	require.Equal(t, "k", data["api_key"])
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
port: 9000
database:
  host: db
  user: ff
ingest:
  max_duration_seconds: 300
search:
  top_k: 5
file_store:
  type: local
  data:
    dir: /tmp/videos
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9000, cfg.Port)
	require.Equal(t, "db", cfg.Database.Host)
	require.Equal(t, 300.0, cfg.Ingest.MaxDurationSeconds)
	require.Equal(t, 5, cfg.Search.TopK)
}

func TestLoadProviderKeyFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	path := writeConfig(t, "config.json", `{
		"port": 8080,
		"database": {"dsn": "x"},
		"ai": {"embedder": [{"provider": "openai", "model": "text-embedding-3-small"}]}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	data := cfg.AI.Embedder[0].Data.(map[string]interface{})
	require.Equal(t, "env-key", data["api_key"])
	require.Equal(t, "env-key", cfg.Transcription.Remote.APIKey)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "missing port", content: `{"database": {"dsn": "x"}}`},
		{name: "missing database", content: `{"port": 1}`},
		{name: "bad store", content: `{"port": 1, "database": {"dsn": "x"}, "file_store": {"type": "ftp"}}`},
		{name: "provider without model", content: `{"port": 1, "database": {"dsn": "x"}, "ai": {"generator": [{"provider": "gemini"}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.json", tt.content))
			require.Error(t, err)
		})
	}
}

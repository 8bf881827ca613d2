package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/framefinder/internal/workpool"
)

type ManagerConfig struct {
	Timeout int
}

// Manager is the single entry point for model calls. Every call gets its own
// deadline and runs on the shared worker pool.
type Manager struct {
	generator IGenerator
	embedder  IEmbedder
	pool      *workpool.Pool
	cfg       ManagerConfig
}

func NewManager(generator IGenerator, embedder IEmbedder, pool *workpool.Pool, cfg ManagerConfig) *Manager {
	return &Manager{
		generator: generator,
		embedder:  embedder,
		pool:      pool,
		cfg:       cfg,
	}
}

func (m *Manager) Complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	if m.generator == nil {
		return "", ErrUnavailable
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	var text string
	err := m.pool.Do(ctx, func(ctx context.Context) error {
		resp, err := m.generator.Generate(ctx, prompt, temperature)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(resp)
		return nil
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("empty ai response")
	}
	return text, nil
}

func (m *Manager) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if m.embedder == nil {
		return nil, ErrUnavailable
	}
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()
	var vec []float32
	err := m.pool.Do(ctx, func(ctx context.Context) error {
		res, err := m.embedder.Embed(ctx, text, taskType)
		if err != nil {
			return err
		}
		vec = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	return vec, nil
}

func (m *Manager) EmbeddingModelName() string {
	if m.embedder == nil {
		return ""
	}
	return m.embedder.ModelName()
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(m.cfg.Timeout)*time.Second)
}

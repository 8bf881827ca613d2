package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/framefinder/internal/config"
	"github.com/xxxsen/framefinder/internal/workpool"
)

type stubGenerator struct {
	resp  string
	err   error
	temps []float32
	delay time.Duration
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	s.temps = append(s.temps, temperature)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.resp, s.err
}

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return s.vec, s.err
}

func (s *stubEmbedder) ModelName() string { return "stub" }

func TestProvidersWithoutKeyAreUnavailable(t *testing.T) {
	for _, name := range []string{"gemini", "openai", "openrouter"} {
		p, err := NewProvider(name, map[string]interface{}{"api_key": ""})
		require.NoError(t, err)
		_, err = p.Generate(context.Background(), "m", "hi", 0)
		require.ErrorIs(t, err, ErrUnavailable, name)
		_, err = p.Embed(context.Background(), "m", "hi", TaskRetrievalQuery)
		require.ErrorIs(t, err, ErrUnavailable, name)
	}
}

func TestNewProviderRejectsUnknown(t *testing.T) {
	_, err := NewProvider("nope", map[string]interface{}{})
	require.Error(t, err)
	_, err = NewProvider("", nil)
	require.Error(t, err)
}

func TestGroupGeneratorFallsThrough(t *testing.T) {
	first := &stubGenerator{err: errors.New("quota")}
	second := &stubGenerator{resp: "ok"}
	g := NewGroupGenerator([]GeneratorEntry{{Name: "a", Generator: first}, {Name: "b", Generator: second}})
	res, err := g.Generate(context.Background(), "p", 0)
	require.NoError(t, err)
	require.Equal(t, "ok", res)
}

func TestGroupErrorPrefersRealFailure(t *testing.T) {
	boom := errors.New("boom")
	g := NewGroupGenerator([]GeneratorEntry{
		{Name: "a", Generator: &stubGenerator{err: boom}},
		{Name: "b", Generator: &stubGenerator{err: ErrUnavailable}},
	})
	_, err := g.Generate(context.Background(), "p", 0)
	require.ErrorIs(t, err, boom)

	g = NewGroupGenerator([]GeneratorEntry{{Name: "a", Generator: &stubGenerator{err: ErrUnavailable}}})
	_, err = g.Generate(context.Background(), "p", 0)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestBuildEmbedderFromConfig(t *testing.T) {
	e, err := BuildEmbedder([]config.ProviderConfig{{Provider: "gemini", Model: "text-embedding-004", Data: map[string]interface{}{}}})
	require.NoError(t, err)
	require.Equal(t, "gemini:text-embedding-004", e.ModelName())

	_, err = BuildGenerator([]config.ProviderConfig{{Provider: "unknown", Model: "x"}})
	require.Error(t, err)

	g, err := BuildGenerator(nil)
	require.NoError(t, err)
	require.Nil(t, g)
}

func TestManagerComplete(t *testing.T) {
	gen := &stubGenerator{resp: "  {\"found\": true}  "}
	m := NewManager(gen, nil, workpool.New(1), ManagerConfig{Timeout: 5})
	res, err := m.Complete(context.Background(), "p", 0)
	require.NoError(t, err)
	require.Equal(t, `{"found": true}`, res)
	require.Equal(t, []float32{0}, gen.temps)

	_, err = m.Embed(context.Background(), "t", TaskRetrievalQuery)
	require.ErrorIs(t, err, ErrUnavailable)

	empty := NewManager(&stubGenerator{resp: "   "}, nil, nil, ManagerConfig{})
	_, err = empty.Complete(context.Background(), "p", 0)
	require.Error(t, err)

	none := NewManager(nil, nil, nil, ManagerConfig{})
	_, err = none.Complete(context.Background(), "p", 0)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestManagerAppliesDeadline(t *testing.T) {
	m := NewManager(&stubGenerator{resp: "late", delay: 3 * time.Second}, nil, workpool.New(1), ManagerConfig{Timeout: 1})
	start := time.Now()
	_, err := m.Complete(context.Background(), "p", 0)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 3*time.Second)
}

func TestManagerEmbed(t *testing.T) {
	m := NewManager(nil, &stubEmbedder{vec: []float32{1, 2}}, workpool.New(2), ManagerConfig{Timeout: 5})
	vec, err := m.Embed(context.Background(), "t", TaskRetrievalDocument)
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2}, vec)
	require.Equal(t, "stub", m.EmbeddingModelName())
}

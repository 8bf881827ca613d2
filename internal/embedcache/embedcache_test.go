package embedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/framefinder/internal/model"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) ModelName() string { return "counting" }

type memStore struct {
	items   map[string][]float32
	failGet bool
}

func (m *memStore) Get(ctx context.Context, modelName, taskType, contentHash string) ([]float32, bool, error) {
	if m.failGet {
		return nil, false, errors.New("db down")
	}
	v, ok := m.items[modelName+taskType+contentHash]
	return v, ok, nil
}

func (m *memStore) Save(ctx context.Context, item *model.EmbeddingCache) error {
	m.items[item.ModelName+item.TaskType+item.ContentHash] = item.Embedding
	return nil
}

func TestLRUReusesVectors(t *testing.T) {
	inner := &countingEmbedder{}
	e := WrapLRU(inner, 8, time.Minute)
	first, err := e.Embed(context.Background(), "cat", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	first[0] = 99
	second, err := e.Embed(context.Background(), "cat", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)
	require.Equal(t, float32(3), second[0])

	_, err = e.Embed(context.Background(), "cat", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, 2, inner.calls)
	require.Equal(t, "counting", e.ModelName())
}

func TestLRUDisabled(t *testing.T) {
	inner := &countingEmbedder{}
	require.Same(t, inner, WrapLRU(inner, 0, time.Minute))
}

func TestDBCache(t *testing.T) {
	inner := &countingEmbedder{}
	store := &memStore{items: map[string][]float32{}}
	e := WrapDB(inner, store)
	for i := 0; i < 3; i++ {
		vec, err := e.Embed(context.Background(), " intro ", "RETRIEVAL_DOCUMENT")
		require.NoError(t, err)
		require.Equal(t, []float32{7, 1}, vec)
	}
	require.Equal(t, 1, inner.calls)
	require.Len(t, store.items, 1)
}

func TestDBCacheReadFailureFallsThrough(t *testing.T) {
	inner := &countingEmbedder{}
	e := WrapDB(inner, &memStore{items: map[string][]float32{}, failGet: true})
	_, err := e.Embed(context.Background(), "x", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, 1, inner.calls)

	failing := WrapDB(&countingEmbedder{err: errors.New("quota")}, &memStore{items: map[string][]float32{}})
	_, err = failing.Embed(context.Background(), "x", "RETRIEVAL_DOCUMENT")
	require.Error(t, err)
}

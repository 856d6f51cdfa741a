package embedding

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicalrag/internal/domain/providers"
	"github.com/zatekoja/clinicalrag/pkg/config"
	apperrors "github.com/zatekoja/clinicalrag/pkg/errors"
)

func TestFuncEmbedder_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, text string) ([]float32, error) {
		if calls.Add(1) < 2 {
			return nil, errors.New("connection reset")
		}
		return []float32{1, 0}, nil
	}
	e := NewFuncEmbedder("ollama", "all-minilm", fn, time.Second, 3)
	e.retry.InitialDelay = time.Millisecond

	vec, err := e.Embed(context.Background(), "fever")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "all-minilm", e.Model())
}

func TestFuncEmbedder_ExhaustedRetriesAreExternal(t *testing.T) {
	fn := func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("unavailable")
	}
	e := NewFuncEmbedder("ollama", "all-minilm", fn, time.Second, 2)
	e.retry.InitialDelay = time.Millisecond

	_, err := e.Embed(context.Background(), "fever")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
}

func TestFuncEmbedder_EmptyVectorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, text string) ([]float32, error) {
		calls.Add(1)
		return nil, nil
	}
	e := NewFuncEmbedder("ollama", "all-minilm", fn, time.Second, 3)

	_, err := e.Embed(context.Background(), "fever")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNew_OllamaAgainstServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embedding":[0.6,0.8],"embeddings":[[0.6,0.8]]}`))
	}))
	defer server.Close()

	e, err := New(config.EmbeddingConfig{Provider: "ollama", Model: "all-minilm", BaseURL: server.URL, Timeout: time.Second}, 1)
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "fever")
	require.NoError(t, err)
	assert.Len(t, vec, 2)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(config.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small"}, 1)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = New(config.EmbeddingConfig{Provider: "word2vec", Model: "x"}, 1)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	e, err := New(config.EmbeddingConfig{Provider: "openai", Model: "text-embedding-3-small", APIKey: "sk-test"}, 1)
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-3-small", e.Model())
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	fail bool
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errors.New("connection refused")
	}
	v, ok := m.data[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("connection refused")
	}
	m.data[key] = value
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) Model() string { return "counting" }

func TestCachedEmbedder_HitsCacheOnSecondCall(t *testing.T) {
	inner := &countingEmbedder{}
	cache := &memoryCache{data: map[string][]byte{}}
	e := NewCachedEmbedder(inner, cache, time.Hour)

	first, err := e.Embed(context.Background(), "fever and chills")
	require.NoError(t, err)
	second, err := e.Embed(context.Background(), "fever and chills")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Contains(t, cache.data, CacheKey("counting", "fever and chills"))
	assert.Equal(t, "counting", e.Model())
}

func TestCachedEmbedder_FallsThroughWhenCacheDown(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewCachedEmbedder(inner, &memoryCache{data: map[string][]byte{}, fail: true}, time.Hour)

	for i := 0; i < 2; i++ {
		_, err := e.Embed(context.Background(), "fever")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, inner.calls)
}

func TestCacheKey_DependsOnModel(t *testing.T) {
	assert.NotEqual(t, CacheKey("a", "fever"), CacheKey("b", "fever"))
	assert.Equal(t, CacheKey("a", "fever"), CacheKey("a", "fever"))
}

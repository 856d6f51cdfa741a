package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/clinicalrag/internal/domain/providers"
	"github.com/zatekoja/clinicalrag/internal/infrastructure/observability"
)

const cacheName = "embedding"

// CachedEmbedder memoises embeddings in a cache keyed by model and text hash.
// Cache failures fall through to the wrapped embedder.
type CachedEmbedder struct {
	inner providers.Embedder
	cache providers.CacheProvider
	ttl   time.Duration
}

// NewCachedEmbedder wraps inner with cache.
func NewCachedEmbedder(inner providers.Embedder, cache providers.CacheProvider, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache, ttl: ttl}
}

// Model returns the wrapped model identity.
func (c *CachedEmbedder) Model() string {
	return c.inner.Model()
}

// Embed returns the cached embedding of text or computes and stores it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(c.inner.Model(), text)

	data, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var vec []float32
		if jsonErr := json.Unmarshal(data, &vec); jsonErr == nil && len(vec) > 0 {
			observability.RecordCacheHit(ctx, cacheName)
			return vec, nil
		}
		log.Warn().Str("key", key).Msg("Ignoring undecodable cached embedding")
	case errors.Is(err, providers.ErrCacheMiss):
	default:
		log.Warn().Err(err).Msg("Embedding cache unavailable")
	}
	observability.RecordCacheMiss(ctx, cacheName)

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(vec); err == nil {
		if err := c.cache.Set(ctx, key, encoded, c.ttl); err != nil {
			log.Warn().Err(err).Msg("Failed to store embedding in cache")
		}
	}
	return vec, nil
}

// CacheKey derives the cache key for text embedded by model.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return cacheName + ":" + model + ":" + hex.EncodeToString(sum[:])
}

var _ providers.Embedder = (*CachedEmbedder)(nil)

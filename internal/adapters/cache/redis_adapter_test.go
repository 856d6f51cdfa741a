package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicalrag/internal/domain/providers"
)

func unreachableClient(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisAdapter_ConnectionErrorIsNotCacheMiss(t *testing.T) {
	adapter := NewRedisAdapter(unreachableClient(t))

	_, err := adapter.Get(context.Background(), "embedding:k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, providers.ErrCacheMiss))
	assert.Contains(t, err.Error(), "failed to get from cache")
}

func TestRedisAdapter_SetAndDeleteReportErrors(t *testing.T) {
	adapter := NewRedisAdapter(unreachableClient(t))

	err := adapter.Set(context.Background(), "k", []byte("v"), time.Minute)
	assert.ErrorContains(t, err, "failed to set in cache")

	err = adapter.Delete(context.Background(), "k")
	assert.ErrorContains(t, err, "failed to delete from cache")
}

package clients

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	assert.NoError(t, ClassifyStatus("gemini", 200, ""))

	err := ClassifyStatus("gemini", 429, "quota")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.True(t, statusErr.Retryable())
	assert.Contains(t, err.Error(), "429")

	err = ClassifyStatus("gemini", 503, "")
	require.True(t, errors.As(err, &statusErr))
	assert.True(t, statusErr.Retryable())

	err = ClassifyStatus("openai", 401, "bad key")
	require.True(t, errors.As(err, &statusErr))
	assert.False(t, statusErr.Retryable())
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0, 5))
	limiter := NewLimiter(60, 0)
	require.NotNil(t, limiter)
	assert.Equal(t, 1, limiter.Burst())

	require.NoError(t, Wait(context.Background(), limiter, "gemini", "gemma"))
	require.NoError(t, Wait(context.Background(), nil, "gemini", "gemma"))
}

func TestTruncateBody_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", TruncateBody("short", 10))
	// "°" is two bytes; a cut at 5 would split it.
	assert.Equal(t, "104", TruncateBody("104°f", 4))
	assert.Equal(t, "104°", TruncateBody("104°f", 5))
}

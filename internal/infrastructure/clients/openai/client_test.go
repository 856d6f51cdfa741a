package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/clinicalrag/internal/domain/providers"
	"github.com/zatekoja/clinicalrag/pkg/config"
	apperrors "github.com/zatekoja/clinicalrag/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.LLMConfig{
		APIKey:     "sk-test",
		Model:      "gpt-4o-mini",
		BaseURL:    server.URL,
		Timeout:    time.Second,
		MaxRetries: 2,
	})
	require.NoError(t, err)
	client.retry.InitialDelay = time.Millisecond
	return client
}

func TestGenerate_ParsesOutputText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "gpt-4o-mini", payload["model"])
		assert.Equal(t, float64(512), payload["max_output_tokens"])
		assert.NotNil(t, payload["text"])

		_, _ = w.Write([]byte(`{"output":[{"content":[{"type":"reasoning","text":""},{"type":"output_text","text":"{\"diseases\":[]}"}]}]}`))
	})

	text, err := client.Generate(context.Background(), "prompt", providers.GenerationOptions{Temperature: 0.2, MaxOutputTokens: 512, JSONOutput: true})
	require.NoError(t, err)
	assert.Equal(t, `{"diseases":[]}`, text)
}

func TestGenerate_UnauthorizedIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Generate(context.Background(), "prompt", providers.GenerationOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerate_ServerErrorRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Generate(context.Background(), "prompt", providers.GenerationOptions{})
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerate_MissingOutputText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output":[]}`))
	})

	_, err := client.Generate(context.Background(), "prompt", providers.GenerationOptions{})
	assert.ErrorContains(t, err, "missing output text")
}

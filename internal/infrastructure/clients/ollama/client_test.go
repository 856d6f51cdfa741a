package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net"
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
	"github.com/zatekoja/clinicalrag/pkg/retry"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&config.LLMConfig{
		Model:      "llama3",
		BaseURL:    server.URL,
		Timeout:    time.Second,
		MaxRetries: 2,
	})
	require.NoError(t, err)
	client.retry.InitialDelay = time.Millisecond
	return client
}

func TestGenerate_NonStreaming(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req["model"])
		assert.Equal(t, false, req["stream"])
		options := req["options"].(map[string]interface{})
		assert.Equal(t, 0.7, options["temperature"])
		assert.Equal(t, float64(512), options["num_predict"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3","response":"Most likely malaria","done":true}` + "\n"))
	})

	text, err := client.Generate(context.Background(), "prompt", providers.GenerationOptions{Temperature: 0.7, MaxOutputTokens: 512})
	require.NoError(t, err)
	assert.Equal(t, "Most likely malaria", text)
	assert.Equal(t, "llama3", client.Model())
}

func TestGenerate_ModelNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"llama3\" not found"}`))
	})

	_, err := client.Generate(context.Background(), "prompt", providers.GenerationOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewClient_RequiresModel(t *testing.T) {
	_, err := NewClient(&config.LLMConfig{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestGenerate_RetriesDroppedConnection(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
				_ = conn.Close()
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3","response":"dengue","done":true}` + "\n"))
	})

	text, err := client.Generate(context.Background(), "prompt", providers.GenerationOptions{})
	require.NoError(t, err)
	assert.Equal(t, "dengue", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClassifyError(t *testing.T) {
	assert.IsType(t, retry.Permanent(errors.New("x")), classifyError(errors.New(`model "llama3" not found`)))
	assert.Equal(t, context.DeadlineExceeded, classifyError(context.DeadlineExceeded))

	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	assert.Same(t, opErr, classifyError(opErr))
}

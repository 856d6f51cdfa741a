package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/clinicalrag/internal/domain/providers"
	"github.com/zatekoja/clinicalrag/internal/infrastructure/observability"
	"github.com/zatekoja/clinicalrag/pkg/config"
	apperrors "github.com/zatekoja/clinicalrag/pkg/errors"
	"github.com/zatekoja/clinicalrag/pkg/retry"
)

// FuncEmbedder adapts a chromem embedding function to providers.Embedder,
// adding a per-call timeout, bounded retries and request metrics.
type FuncEmbedder struct {
	provider string
	model    string
	fn       chromem.EmbeddingFunc
	timeout  time.Duration
	retry    retry.Config
}

// NewFuncEmbedder wraps fn under the given provider and model identity.
func NewFuncEmbedder(provider, model string, fn chromem.EmbeddingFunc, timeout time.Duration, maxAttempts int) *FuncEmbedder {
	rc := retry.DefaultConfig()
	if maxAttempts > 0 {
		rc.MaxAttempts = maxAttempts
	}
	return &FuncEmbedder{
		provider: provider,
		model:    model,
		fn:       fn,
		timeout:  timeout,
		retry:    rc,
	}
}

// New creates the embedder selected by cfg.
func New(cfg config.EmbeddingConfig, maxAttempts int) (*FuncEmbedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama", "":
		baseURL := cfg.BaseURL
		if baseURL != "" && !strings.HasSuffix(strings.TrimRight(baseURL, "/"), "/api") {
			baseURL = strings.TrimRight(baseURL, "/") + "/api"
		}
		fn := chromem.NewEmbeddingFuncOllama(cfg.Model, baseURL)
		return NewFuncEmbedder("ollama", cfg.Model, fn, cfg.Timeout, maxAttempts), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, apperrors.NewValidationError("openai embedding api key is required")
		}
		fn := chromem.NewEmbeddingFuncOpenAI(cfg.APIKey, chromem.EmbeddingModelOpenAI(cfg.Model))
		return NewFuncEmbedder("openai", cfg.Model, fn, cfg.Timeout, maxAttempts), nil
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown embedding provider %q", cfg.Provider))
	}
}

// Model returns the embedding model identity.
func (e *FuncEmbedder) Model() string {
	return e.model
}

// Embed returns the embedding of text.
func (e *FuncEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := retry.DoWithLog(ctx, e.retry, e.provider+" embedding", func() error {
		callCtx := ctx
		if e.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
		}

		start := time.Now()
		v, err := e.fn(callCtx, text)
		observability.RecordLLMRequest(ctx, e.provider, e.model, 0, time.Since(start), err)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return retry.Permanent(fmt.Errorf("empty embedding returned by %s", e.model))
		}
		vec = v
		return nil
	}, func(attempt int, err error, next time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Str("model", e.model).Msg("Embedding call failed, retrying")
	})
	if err != nil {
		return nil, apperrors.NewExternalError(fmt.Sprintf("%s embedding failed", e.provider), err)
	}
	return vec, nil
}

var _ providers.Embedder = (*FuncEmbedder)(nil)

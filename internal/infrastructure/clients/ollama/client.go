package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/zatekoja/clinicalrag/internal/domain/providers"
	"github.com/zatekoja/clinicalrag/internal/infrastructure/clients"
	"github.com/zatekoja/clinicalrag/internal/infrastructure/observability"
	"github.com/zatekoja/clinicalrag/pkg/config"
	apperrors "github.com/zatekoja/clinicalrag/pkg/errors"
	"github.com/zatekoja/clinicalrag/pkg/retry"
)

const (
	providerName   = "ollama"
	defaultBaseURL = "http://localhost:11434"
)

// Client generates text with a local Ollama server.
type Client struct {
	api     *api.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	retry   retry.Config
}

// NewClient creates a new Ollama client.
func NewClient(cfg *config.LLMConfig) (*Client, error) {
	if cfg == nil || cfg.Model == "" {
		return nil, apperrors.NewValidationError("ollama model is required")
	}

	raw := cfg.BaseURL
	if raw == "" {
		raw = defaultBaseURL
	}
	base, err := url.Parse(strings.TrimSuffix(strings.TrimRight(raw, "/"), "/api"))
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid ollama base url %q", raw))
	}

	return &Client{
		api:     api.NewClient(base, &http.Client{}),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		limiter: clients.NewLimiter(cfg.RateLimitRPM, cfg.RateLimitBurst),
		retry:   clients.RetryConfig(cfg.MaxRetries),
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Generate runs a non-streaming completion of prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts providers.GenerationOptions) (string, error) {
	stream := false
	options := map[string]interface{}{
		"temperature": opts.Temperature,
	}
	if opts.MaxOutputTokens > 0 {
		options["num_predict"] = opts.MaxOutputTokens
	}
	req := &api.GenerateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: options,
	}

	var text string
	err := retry.DoWithLog(ctx, c.retry, providerName, func() error {
		if err := clients.Wait(ctx, c.limiter, providerName, c.model); err != nil {
			return retry.Permanent(err)
		}
		t, err := c.call(ctx, req)
		if err != nil {
			return err
		}
		text = t
		return nil
	}, func(attempt int, err error, next time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Str("model", c.model).Msg("Ollama call failed, retrying")
	})
	if err != nil {
		return "", apperrors.NewExternalError("ollama generation failed", err)
	}
	return text, nil
}

func (c *Client) call(ctx context.Context, req *api.GenerateRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var sb strings.Builder
	start := time.Now()
	err := c.api.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			observability.RecordLLMRequest(ctx, providerName, c.model, statusErr.StatusCode, time.Since(start), err)
			return "", clients.ClassifyStatus(providerName, statusErr.StatusCode, statusErr.ErrorMessage)
		}
		observability.RecordLLMRequest(ctx, providerName, c.model, 0, time.Since(start), err)
		return "", classifyError(err)
	}

	if strings.TrimSpace(sb.String()) == "" {
		err := errors.New("ollama returned an empty response")
		observability.RecordLLMRequest(ctx, providerName, c.model, http.StatusOK, time.Since(start), err)
		return "", retry.Permanent(err)
	}

	observability.RecordLLMRequest(ctx, providerName, c.model, http.StatusOK, time.Since(start), nil)
	return sb.String(), nil
}

// classifyError marks err permanent unless it is a timeout or network failure.
// The api client reports error bodies such as an unknown model as plain
// errors, so those carry no status to classify.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return err
	}
	return retry.Permanent(err)
}

var _ providers.TextGenerator = (*Client)(nil)

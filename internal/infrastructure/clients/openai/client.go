package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

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
	providerName   = "openai"
	defaultBaseURL = "https://api.openai.com/v1"
)

// Client implements text generation over the OpenAI Responses API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      retry.Config
}

// NewClient creates a new OpenAI client.
func NewClient(cfg *config.LLMConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, apperrors.NewValidationError("openai api key is required (LLM_API_KEY or OPENAI_API_KEY)")
	}

	model := cfg.Model
	if model == "" || strings.HasPrefix(model, "gemma") {
		model = "gpt-4o-mini"
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
		limiter:    clients.NewLimiter(cfg.RateLimitRPM, cfg.RateLimitBurst),
		retry:      clients.RetryConfig(cfg.MaxRetries),
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

type responseContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseOutput struct {
	Content []responseContent `json:"content"`
}

type responseEnvelope struct {
	Output []responseOutput `json:"output"`
}

// Generate sends prompt as a single user turn and returns the first output text.
func (c *Client) Generate(ctx context.Context, prompt string, opts providers.GenerationOptions) (string, error) {
	payload := map[string]interface{}{
		"model": c.model,
		"input": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": opts.Temperature,
	}
	if opts.MaxOutputTokens > 0 {
		payload["max_output_tokens"] = opts.MaxOutputTokens
	}
	if opts.JSONOutput {
		payload["text"] = map[string]interface{}{
			"format": map[string]string{"type": "json_object"},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	var text string
	err = retry.DoWithLog(ctx, c.retry, providerName, func() error {
		if err := clients.Wait(ctx, c.limiter, providerName, c.model); err != nil {
			return retry.Permanent(err)
		}
		t, err := c.call(ctx, body)
		if err != nil {
			return err
		}
		text = t
		return nil
	}, func(attempt int, err error, next time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Str("model", c.model).Msg("OpenAI call failed, retrying")
	})
	if err != nil {
		return "", apperrors.NewExternalError("openai generation failed", err)
	}
	return text, nil
}

func (c *Client) call(ctx context.Context, body []byte) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return "", retry.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.RecordLLMRequest(ctx, providerName, c.model, 0, time.Since(start), err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		statusErr := clients.ClassifyStatus(providerName, resp.StatusCode, string(raw))
		observability.RecordLLMRequest(ctx, providerName, c.model, resp.StatusCode, time.Since(start), statusErr)
		return "", statusErr
	}

	var envelope responseEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		observability.RecordLLMRequest(ctx, providerName, c.model, resp.StatusCode, time.Since(start), err)
		return "", fmt.Errorf("failed to decode openai response: %w", err)
	}

	var text string
	for _, out := range envelope.Output {
		for _, content := range out.Content {
			if content.Type == "output_text" && content.Text != "" {
				text = content.Text
				break
			}
		}
		if text != "" {
			break
		}
	}

	if text == "" {
		err := errors.New("openai response missing output text")
		observability.RecordLLMRequest(ctx, providerName, c.model, resp.StatusCode, time.Since(start), err)
		return "", retry.Permanent(err)
	}

	observability.RecordLLMRequest(ctx, providerName, c.model, resp.StatusCode, time.Since(start), nil)
	return text, nil
}

var _ providers.TextGenerator = (*Client)(nil)

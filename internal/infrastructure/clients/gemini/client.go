package gemini

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
	providerName   = "gemini"
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemma-3-27b-it"
)

// Client calls the Gemini generateContent REST endpoint.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      retry.Config
}

// NewClient creates a new Gemini client.
func NewClient(cfg *config.LLMConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, apperrors.NewValidationError("gemini api key is required (LLM_API_KEY or GOOGLE_API_KEY)")
	}

	model := strings.TrimPrefix(cfg.Model, "models/")
	if model == "" {
		model = defaultModel
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

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate sends prompt and returns the text of the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string, opts providers.GenerationOptions) (string, error) {
	genCfg := generationConfig{
		Temperature:     opts.Temperature,
		MaxOutputTokens: opts.MaxOutputTokens,
	}
	// Gemma models reject JSON mode; they are steered by the prompt alone.
	if opts.JSONOutput && !strings.HasPrefix(c.model, "gemma") {
		genCfg.ResponseMIMEType = "application/json"
	}

	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: genCfg,
	})
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
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Str("model", c.model).Msg("Gemini call failed, retrying")
	})
	if err != nil {
		return "", apperrors.NewExternalError("gemini generation failed", err)
	}
	return text, nil
}

func (c *Client) call(ctx context.Context, body []byte) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

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

	var envelope generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		observability.RecordLLMRequest(ctx, providerName, c.model, resp.StatusCode, time.Since(start), err)
		return "", fmt.Errorf("failed to decode gemini response: %w", err)
	}

	if envelope.PromptFeedback.BlockReason != "" {
		err := fmt.Errorf("prompt blocked: %s", envelope.PromptFeedback.BlockReason)
		observability.RecordLLMRequest(ctx, providerName, c.model, resp.StatusCode, time.Since(start), err)
		return "", retry.Permanent(err)
	}

	var sb strings.Builder
	if len(envelope.Candidates) > 0 {
		for _, p := range envelope.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		err := errors.New("gemini response missing candidate text")
		observability.RecordLLMRequest(ctx, providerName, c.model, resp.StatusCode, time.Since(start), err)
		return "", retry.Permanent(err)
	}

	observability.RecordLLMRequest(ctx, providerName, c.model, resp.StatusCode, time.Since(start), nil)
	return sb.String(), nil
}

var _ providers.TextGenerator = (*Client)(nil)

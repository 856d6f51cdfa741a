package providers

import "context"

// GenerationOptions controls sampling and output length of one generation call.
type GenerationOptions struct {
	Temperature     float64
	MaxOutputTokens int
	// JSONOutput asks the service for a bare JSON object where supported.
	JSONOutput bool
}

// TextGenerator is a single-turn text generation service. Implementations
// block until the full response is available.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, opts GenerationOptions) (string, error)
	// Model identifies the generation model, e.g. "gemini:gemma-3-27b-it".
	Model() string
}

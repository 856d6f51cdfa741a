package providers

import "context"

// Embedder converts text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// Model identifies the embedding model, e.g. "ollama:all-minilm". Indexes
	// record it so queries are embedded with the model used at build time.
	Model() string
}

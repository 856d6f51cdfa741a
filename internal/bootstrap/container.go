// Package bootstrap wires adapters, clients and services from one explicit
// configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/clinicalrag/internal/adapters/cache"
	"github.com/zatekoja/clinicalrag/internal/adapters/embedding"
	"github.com/zatekoja/clinicalrag/internal/adapters/events"
	"github.com/zatekoja/clinicalrag/internal/adapters/extraction"
	"github.com/zatekoja/clinicalrag/internal/adapters/pdf"
	"github.com/zatekoja/clinicalrag/internal/adapters/storage"
	"github.com/zatekoja/clinicalrag/internal/adapters/vectorindex"
	"github.com/zatekoja/clinicalrag/internal/application/services"
	"github.com/zatekoja/clinicalrag/internal/domain/providers"
	"github.com/zatekoja/clinicalrag/internal/domain/repositories"
	"github.com/zatekoja/clinicalrag/internal/infrastructure/clients/gemini"
	"github.com/zatekoja/clinicalrag/internal/infrastructure/clients/ollama"
	"github.com/zatekoja/clinicalrag/internal/infrastructure/clients/openai"
	"github.com/zatekoja/clinicalrag/internal/infrastructure/clients/redis"
	"github.com/zatekoja/clinicalrag/internal/infrastructure/tokenizer"
	"github.com/zatekoja/clinicalrag/pkg/config"
	apperrors "github.com/zatekoja/clinicalrag/pkg/errors"
)

// Container holds the shared components of one process. Remote clients are
// created on first use so stages that never call them need no credentials.
type Container struct {
	Config *config.Config

	Sources repositories.SourceDocumentRepository
	Records repositories.CaseRecordRepository

	mu        sync.Mutex
	generator providers.TextGenerator
	embedder  providers.Embedder
	redis     *redis.Client
	bus       providers.EventBus
}

// New creates a container for cfg.
func New(cfg *config.Config) *Container {
	return &Container{
		Config:  cfg,
		Sources: storage.NewSourceFileAdapter(cfg.Paths.ExtractedDir),
		Records: storage.NewCaseFileAdapter(cfg.Paths.FilteredDir),
	}
}

// NewGenerator returns the text generation client for the configured provider.
func NewGenerator(cfg *config.LLMConfig) (providers.TextGenerator, error) {
	switch cfg.Provider {
	case "", "gemini":
		return gemini.NewClient(cfg)
	case "openai":
		return openai.NewClient(cfg)
	case "ollama":
		return ollama.NewClient(cfg)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown llm provider %q", cfg.Provider))
	}
}

// Generator returns the shared text generation client.
func (c *Container) Generator() (providers.TextGenerator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generator == nil {
		gen, err := NewGenerator(&c.Config.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", c.Config.LLM.Provider, err)
		}
		log.Info().Str("provider", c.Config.LLM.Provider).Str("model", gen.Model()).Msg("Text generation client initialized")
		c.generator = gen
	}
	return c.generator, nil
}

// Embedder returns the shared embedder, wrapped with the Redis cache when
// enabled and reachable.
func (c *Container) Embedder(ctx context.Context) (providers.Embedder, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.embedder != nil {
		return c.embedder, nil
	}

	base, err := embedding.New(c.Config.Embedding, c.Config.LLM.MaxRetries)
	if err != nil {
		return nil, err
	}
	c.embedder = base

	if !c.Config.Embedding.CacheEnabled {
		return c.embedder, nil
	}
	if !c.Config.Redis.Enabled {
		log.Warn().Msg("Embedding cache requested but Redis is disabled")
		return c.embedder, nil
	}

	client, err := c.redisClient(ctx)
	if err != nil {
		// Caching is optional
		log.Warn().Err(err).Msg("Redis unavailable, embedding without cache")
		return c.embedder, nil
	}
	c.embedder = embedding.NewCachedEmbedder(base, cache.NewRedisAdapter(client.Client()), c.Config.Embedding.CacheTTL)
	log.Info().Str("addr", c.Config.Redis.RedisAddr()).Msg("Embedding cache enabled")

	return c.embedder, nil
}

// redisClient connects on first use. Callers hold c.mu.
func (c *Container) redisClient(ctx context.Context) (*redis.Client, error) {
	if c.redis != nil {
		return c.redis, nil
	}
	client, err := redis.NewClient(ctx, &c.Config.Redis)
	if err != nil {
		return nil, err
	}
	c.redis = client
	return client, nil
}

// EventBus returns the Redis event bus, or nil when Redis is disabled or
// unreachable.
func (c *Container) EventBus(ctx context.Context) providers.EventBus {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bus != nil || !c.Config.Redis.Enabled {
		return c.bus
	}

	client, err := c.redisClient(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, index updates will not be announced")
		return nil
	}
	c.bus = events.NewRedisEventBus(client.Client())
	return c.bus
}

// ExtractionService returns the PDF extract stage.
func (c *Container) ExtractionService() *services.ExtractionService {
	return services.NewExtractionService(pdf.NewExtractor(), c.Sources)
}

// AccumulatorService returns the filter stage.
func (c *Container) AccumulatorService() (*services.CaseAccumulatorService, error) {
	gen, err := c.Generator()
	if err != nil {
		return nil, err
	}

	ext := c.Config.Extraction
	return services.NewCaseAccumulatorService(
		extraction.NewLLMEntityExtractor(gen, c.Config.LLM.ExtractionTemperature, c.Config.LLM.ExtractionMaxTokens),
		c.Sources,
		c.Records,
		services.NewPacer(ext.Cooldown, ext.BurstSize, ext.BurstPause),
	), nil
}

// IndexService returns the embed stage.
func (c *Container) IndexService(ctx context.Context) (*services.IndexService, error) {
	emb, err := c.Embedder(ctx)
	if err != nil {
		return nil, err
	}

	gateway := vectorindex.NewGateway(emb, c.Config.Embedding.Concurrency)
	svc := services.NewIndexService(c.Records, vectorindex.NewStore(gateway, c.Config.Paths.IndexDir))
	if bus := c.EventBus(ctx); bus != nil {
		svc.WithEvents(bus)
	}
	return svc, nil
}

// Tokenizer returns the configured token counter, falling back to word
// counting when the encoding cannot be loaded.
func (c *Container) Tokenizer() tokenizer.Counter {
	counter, err := tokenizer.New(c.Config.Retrieval.TokenEncoding)
	if err != nil {
		log.Warn().Err(err).Str("encoding", c.Config.Retrieval.TokenEncoding).Msg("Falling back to word counting")
		return tokenizer.Words{}
	}
	return counter
}

// DiagnosisService returns a diagnosis service over searcher. A nil searcher
// makes every query fail with a not-found error.
func (c *Container) DiagnosisService(searcher repositories.CaseSearcher) (*services.DiagnosisService, error) {
	gen, err := c.Generator()
	if err != nil {
		return nil, err
	}

	return services.NewDiagnosisService(
		searcher,
		gen,
		services.NewPromptAssembler(c.Tokenizer(), c.Config.Retrieval.ContextTokenBudget),
		c.Config.Retrieval.TopK,
		providers.GenerationOptions{
			Temperature:     c.Config.LLM.Temperature,
			MaxOutputTokens: c.Config.LLM.MaxOutputTokens,
		},
	), nil
}

// OpenDiagnosisService loads the persisted index and returns a diagnosis
// service over it.
func (c *Container) OpenDiagnosisService(ctx context.Context) (*services.DiagnosisService, error) {
	index, err := c.IndexService(ctx)
	if err != nil {
		return nil, err
	}

	searcher, err := index.OpenIndex(ctx)
	if err != nil {
		return nil, err
	}
	return c.DiagnosisService(searcher)
}

// Close releases the clients opened by the container.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.bus != nil {
		errs = append(errs, c.bus.Close())
		c.bus = nil
	}
	if c.redis != nil {
		errs = append(errs, c.redis.Close())
		c.redis = nil
	}
	return errors.Join(errs...)
}

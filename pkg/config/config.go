package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/zatekoja/clinicalrag/pkg/secrets"
)

// ConfigPathEnv names the environment variable holding an optional YAML config file.
const ConfigPathEnv = "CLINICALRAG_CONFIG"

// Config holds all application configuration
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Paths      PathsConfig      `yaml:"paths"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Redis      RedisConfig      `yaml:"redis"`
	Server     ServerConfig     `yaml:"server"`
	OTEL       OTELConfig       `yaml:"otel"`
	Log        LogConfig        `yaml:"log"`
}

// LLMConfig configures the text generation service used for entity
// extraction and diagnosis.
type LLMConfig struct {
	Provider              string        `yaml:"provider"`
	Model                 string        `yaml:"model"`
	APIKey                string        `yaml:"api_key"`
	BaseURL               string        `yaml:"base_url"`
	Temperature           float64       `yaml:"temperature"`
	MaxOutputTokens       int           `yaml:"max_output_tokens"`
	ExtractionTemperature float64       `yaml:"extraction_temperature"`
	ExtractionMaxTokens   int           `yaml:"extraction_max_tokens"`
	Timeout               time.Duration `yaml:"timeout"`
	MaxRetries            int           `yaml:"max_retries"`
	RateLimitRPM          int           `yaml:"rate_limit_rpm"`
	RateLimitBurst        int           `yaml:"rate_limit_burst"`
}

// EmbeddingConfig configures the embedding service. The same model must be
// used at build time and query time.
type EmbeddingConfig struct {
	Provider     string        `yaml:"provider"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	Concurrency  int           `yaml:"concurrency"`
	CacheEnabled bool          `yaml:"cache_enabled"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
}

// PathsConfig holds the on-disk locations of each pipeline stage.
type PathsConfig struct {
	RawDir       string `yaml:"raw_dir"`
	ExtractedDir string `yaml:"extracted_dir"`
	FilteredDir  string `yaml:"filtered_dir"`
	IndexDir     string `yaml:"index_dir"`
}

// RetrievalConfig holds query-time retrieval settings
type RetrievalConfig struct {
	TopK               int    `yaml:"top_k"`
	ContextTokenBudget int    `yaml:"context_token_budget"`
	TokenEncoding      string `yaml:"token_encoding"`
}

// ExtractionConfig holds the rate discipline of the filter stage
type ExtractionConfig struct {
	Cooldown   time.Duration `yaml:"cooldown"`
	BurstSize  int           `yaml:"burst_size"`
	BurstPause time.Duration `yaml:"burst_pause"`
}

// EvaluationConfig holds evaluation harness settings
type EvaluationConfig struct {
	PrecisionK      int    `yaml:"precision_k"`
	GroundTruthPath string `yaml:"ground_truth_path"`
	OutputPath      string `yaml:"output_path"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Endpoint       string `yaml:"endpoint"`
	Enabled        bool   `yaml:"enabled"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Env   string `yaml:"env"`
	Level string `yaml:"level"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:              "gemini",
			Model:                 "gemma-3-27b-it",
			Temperature:           0.7,
			MaxOutputTokens:       512,
			ExtractionTemperature: 0.2,
			ExtractionMaxTokens:   2048,
			Timeout:               60 * time.Second,
			MaxRetries:            3,
			RateLimitBurst:        1,
		},
		Embedding: EmbeddingConfig{
			Provider:    "ollama",
			Model:       "all-minilm",
			Timeout:     30 * time.Second,
			Concurrency: 1,
			CacheTTL:    24 * time.Hour,
		},
		Paths: PathsConfig{
			RawDir:       "data/raw/case_reports",
			ExtractedDir: "data/processed/extracted",
			FilteredDir:  "data/processed/filtered",
			IndexDir:     "data/vector/clinical_index",
		},
		Retrieval: RetrievalConfig{
			TopK:               3,
			ContextTokenBudget: 3000,
			TokenEncoding:      "cl100k_base",
		},
		Extraction: ExtractionConfig{
			Cooldown:   4500 * time.Millisecond,
			BurstSize:  15,
			BurstPause: 60 * time.Second,
		},
		Evaluation: EvaluationConfig{
			PrecisionK: 5,
			OutputPath: "metrics.json",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: 6379,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		OTEL: OTELConfig{
			ServiceName:    "clinical-rag",
			ServiceVersion: "1.0.0",
		},
		Log: LogConfig{
			Env:   "production",
			Level: "info",
		},
	}
}

// Load loads configuration from a .env file, the YAML file named by
// CLINICALRAG_CONFIG (if any) and environment variables, in that order of
// increasing precedence. When VAULT_ENABLED is set, the Vault secret is
// exported into the environment first.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if _, err := secrets.Apply(context.Background(), secrets.ConfigFromEnv()); err != nil {
		return nil, fmt.Errorf("failed to load vault secrets: %w", err)
	}
	return LoadFrom(os.Getenv(ConfigPathEnv))
}

// LoadFrom loads configuration using the YAML file at path (skipped when
// empty) and environment overrides. It does not read .env.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", cfg.LLM.Provider))
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = getEnv("LLM_API_KEY", cfg.LLM.APIKey)
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "gemini":
			cfg.LLM.APIKey = getEnv("GOOGLE_API_KEY", "")
		case "openai":
			cfg.LLM.APIKey = getEnv("OPENAI_API_KEY", "")
		}
	}
	cfg.LLM.Temperature = getEnvAsFloat("LLM_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.MaxOutputTokens = getEnvAsInt("LLM_MAX_OUTPUT_TOKENS", cfg.LLM.MaxOutputTokens)
	cfg.LLM.ExtractionTemperature = getEnvAsFloat("LLM_EXTRACTION_TEMPERATURE", cfg.LLM.ExtractionTemperature)
	cfg.LLM.ExtractionMaxTokens = getEnvAsInt("LLM_EXTRACTION_MAX_TOKENS", cfg.LLM.ExtractionMaxTokens)
	cfg.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", cfg.LLM.Timeout)
	cfg.LLM.MaxRetries = getEnvAsInt("LLM_MAX_RETRIES", cfg.LLM.MaxRetries)
	cfg.LLM.RateLimitRPM = getEnvAsInt("LLM_RATE_LIMIT_RPM", cfg.LLM.RateLimitRPM)
	cfg.LLM.RateLimitBurst = getEnvAsInt("LLM_RATE_LIMIT_BURST", cfg.LLM.RateLimitBurst)

	cfg.Embedding.Provider = strings.ToLower(getEnv("EMBEDDING_PROVIDER", cfg.Embedding.Provider))
	cfg.Embedding.Model = getEnv("EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.BaseURL = getEnv("EMBEDDING_BASE_URL", cfg.Embedding.BaseURL)
	cfg.Embedding.APIKey = getEnv("EMBEDDING_API_KEY", cfg.Embedding.APIKey)
	if cfg.Embedding.APIKey == "" && cfg.Embedding.Provider == "openai" {
		cfg.Embedding.APIKey = getEnv("OPENAI_API_KEY", "")
	}
	cfg.Embedding.Timeout = getEnvAsDuration("EMBEDDING_TIMEOUT", cfg.Embedding.Timeout)
	cfg.Embedding.Concurrency = getEnvAsInt("EMBEDDING_CONCURRENCY", cfg.Embedding.Concurrency)
	cfg.Embedding.CacheEnabled = getEnvAsBool("EMBEDDING_CACHE_ENABLED", cfg.Embedding.CacheEnabled)
	cfg.Embedding.CacheTTL = getEnvAsDuration("EMBEDDING_CACHE_TTL", cfg.Embedding.CacheTTL)

	cfg.Paths.RawDir = getEnv("RAW_DATA_DIR", cfg.Paths.RawDir)
	cfg.Paths.ExtractedDir = getEnv("EXTRACTED_DATA_DIR", cfg.Paths.ExtractedDir)
	cfg.Paths.FilteredDir = getEnv("FILTERED_DATA_DIR", cfg.Paths.FilteredDir)
	cfg.Paths.IndexDir = getEnv("VECTOR_STORE_DIR", cfg.Paths.IndexDir)

	cfg.Retrieval.TopK = getEnvAsInt("RETRIEVAL_TOP_K", cfg.Retrieval.TopK)
	cfg.Retrieval.ContextTokenBudget = getEnvAsInt("RETRIEVAL_CONTEXT_TOKENS", cfg.Retrieval.ContextTokenBudget)
	cfg.Retrieval.TokenEncoding = getEnv("RETRIEVAL_TOKEN_ENCODING", cfg.Retrieval.TokenEncoding)

	cfg.Extraction.Cooldown = getEnvAsDuration("EXTRACTION_COOLDOWN", cfg.Extraction.Cooldown)
	cfg.Extraction.BurstSize = getEnvAsInt("EXTRACTION_BURST_SIZE", cfg.Extraction.BurstSize)
	cfg.Extraction.BurstPause = getEnvAsDuration("EXTRACTION_BURST_PAUSE", cfg.Extraction.BurstPause)

	cfg.Evaluation.PrecisionK = getEnvAsInt("EVAL_PRECISION_K", cfg.Evaluation.PrecisionK)
	cfg.Evaluation.GroundTruthPath = getEnv("EVAL_GROUND_TRUTH", cfg.Evaluation.GroundTruthPath)
	cfg.Evaluation.OutputPath = getEnv("EVAL_OUTPUT", cfg.Evaluation.OutputPath)

	cfg.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.Host = getEnv("REDIS_HOST", cfg.Redis.Host)
	cfg.Redis.Port = getEnvAsInt("REDIS_PORT", cfg.Redis.Port)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)

	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvAsInt("SERVER_PORT", cfg.Server.Port)
	if origins := getEnv("ALLOWED_ORIGINS", ""); origins != "" {
		cfg.Server.AllowedOrigins = splitList(origins)
	}
	cfg.Server.ReadTimeout = getEnvAsDuration("SERVER_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvAsDuration("SERVER_WRITE_TIMEOUT", cfg.Server.WriteTimeout)

	cfg.OTEL.ServiceName = getEnv("OTEL_SERVICE_NAME", cfg.OTEL.ServiceName)
	cfg.OTEL.ServiceVersion = getEnv("OTEL_SERVICE_VERSION", cfg.OTEL.ServiceVersion)
	cfg.OTEL.Endpoint = getEnv("OTEL_ENDPOINT", cfg.OTEL.Endpoint)
	cfg.OTEL.Enabled = getEnvAsBool("OTEL_ENABLED", cfg.OTEL.Enabled)

	cfg.Log.Env = getEnv("ENV", cfg.Log.Env)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch {
	case c.Retrieval.TopK < 1:
		return fmt.Errorf("retrieval top_k must be at least 1, got %d", c.Retrieval.TopK)
	case c.Retrieval.ContextTokenBudget < 1:
		return fmt.Errorf("retrieval context_token_budget must be positive, got %d", c.Retrieval.ContextTokenBudget)
	case c.Extraction.Cooldown < 0 || c.Extraction.BurstPause < 0:
		return errors.New("extraction cooldown and burst_pause must not be negative")
	case c.Extraction.BurstSize < 0:
		return fmt.Errorf("extraction burst_size must not be negative, got %d", c.Extraction.BurstSize)
	case c.Evaluation.PrecisionK < 1:
		return fmt.Errorf("evaluation precision_k must be at least 1, got %d", c.Evaluation.PrecisionK)
	case c.LLM.Timeout <= 0 || c.Embedding.Timeout <= 0:
		return errors.New("llm and embedding timeouts must be positive")
	case c.Embedding.Model == "":
		return errors.New("embedding model is required")
	}
	return nil
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the HTTP listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "all-minilm", cfg.Embedding.Model)
	assert.Equal(t, 4500*time.Millisecond, cfg.Extraction.Cooldown)
	assert.Equal(t, 15, cfg.Extraction.BurstSize)
	assert.Equal(t, 60*time.Second, cfg.Extraction.BurstPause)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, 512, cfg.LLM.MaxOutputTokens)
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "5")
	t.Setenv("EXTRACTION_COOLDOWN", "2s")
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := LoadFrom("")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 2*time.Second, cfg.Extraction.Cooldown)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.True(t, cfg.Redis.Enabled)
}

func TestLoadFrom_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
retrieval:
  top_k: 7
extraction:
  cooldown: 1s
  burst_size: 4
paths:
  index_dir: /tmp/idx
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("EXTRACTION_BURST_SIZE", "9")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Retrieval.TopK)
	assert.Equal(t, time.Second, cfg.Extraction.Cooldown)
	assert.Equal(t, 9, cfg.Extraction.BurstSize)
	assert.Equal(t, "/tmp/idx", cfg.Paths.IndexDir)
	// untouched sections keep defaults
	assert.Equal(t, "data/processed/filtered", cfg.Paths.FilteredDir)
}

func TestLoadFrom_InvalidTopK(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "0")

	_, err := LoadFrom("")
	assert.Error(t, err)
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFrom_AllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := LoadFrom("")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

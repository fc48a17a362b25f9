package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("EMBEDDING_API_URL", "")
	t.Setenv("EMBEDDING_API_KEY", "")
	t.Setenv("GENERATION_TIMEOUT", "")

	cfg := Load()

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 120*time.Second, cfg.GenerationTimeout)
	assert.Equal(t, "text-embedding-ada-002", cfg.EmbeddingModel)
	assert.False(t, cfg.EmbeddingsEnabled())
}

func TestLLMKeyFallsBackToOpenRouterKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "or-key")

	cfg := Load()

	assert.Equal(t, "or-key", cfg.LLMAPIKey)
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Duration
	}{
		{name: "go duration", value: "90s", expected: 90 * time.Second},
		{name: "bare seconds", value: "45", expected: 45 * time.Second},
		{name: "garbage falls back", value: "soon", expected: time.Minute},
		{name: "empty falls back", value: "", expected: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.expected, getEnvDuration("TEST_DURATION", time.Minute))
		})
	}
}

func TestEmbeddingsEnabledRequiresURLAndKey(t *testing.T) {
	cfg := &Config{EmbeddingAPIURL: "https://embed.example.com"}
	assert.False(t, cfg.EmbeddingsEnabled())

	cfg.EmbeddingAPIKey = "k"
	assert.True(t, cfg.EmbeddingsEnabled())
}

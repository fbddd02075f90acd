package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.False(t, cfg.Redis.Enabled)
	assert.InDelta(t, 5.0, cfg.RateLimit.RequestsPerSecond, 1e-9)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
	assert.False(t, cfg.AI.MockMode)
	assert.Equal(t, 50000, cfg.AI.MaxInputChars)
	assert.Equal(t, "openai", cfg.AI.DefaultProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.DefaultModel)
	assert.Equal(t, 10, cfg.Metrics.AlertThreshold)
	assert.Equal(t, 50, cfg.Metrics.SampleLimit)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoadConfigEnvAliases(t *testing.T) {
	t.Setenv("AI_PORT", "9090")
	t.Setenv("AI_DB_DSN", "file:test.db")
	t.Setenv("JWT_SECRET", "super-secret")
	t.Setenv("AI_MOCK_MODE", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "file:test.db", cfg.Database.DSN)
	assert.Equal(t, "super-secret", cfg.Auth.JWTSecret)
	assert.True(t, cfg.AI.MockMode)
}

func TestLoadConfigRedisURLEnables(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestLoadConfigDefaultEnvCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("OPENAI_BASE_URL", "https://proxy.internal")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.NotEmpty(t, cfg.EnvCredentials)
	assert.Equal(t, "openai", cfg.EnvCredentials[0].ProviderCode)
	assert.Equal(t, "sk-from-env", cfg.EnvCredentials[0].APIKey)
	assert.Equal(t, "https://proxy.internal", cfg.EnvCredentials[0].BaseURL)
}

func TestLoadConfigTaskModelsFromEnv(t *testing.T) {
	t.Setenv("MODEL_SUMMARY", "gpt-4o")
	t.Setenv("MODEL_TRANSLATE", "gpt-4o-mini")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.AI.TaskModels["summary"])
	assert.Equal(t, "gpt-4o-mini", cfg.AI.TaskModels["translate"])
	assert.Empty(t, cfg.AI.TaskModels["tags"])
}

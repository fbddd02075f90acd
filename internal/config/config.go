package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	AI        AIConfig        `mapstructure:"ai"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing"`

	// Environment-configured credentials, the last resolution tier
	EnvCredentials []EnvCredentialConfig `mapstructure:"env_credentials"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type AuthConfig struct {
	// Shared HMAC secret; also derives the credential encryption key
	JWTSecret string `mapstructure:"jwt_secret"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type AIConfig struct {
	MockMode      bool `mapstructure:"mock_mode"`
	MaxInputChars int  `mapstructure:"max_input_chars"`

	// Default provider/models for the environment fallback tier
	DefaultProvider string            `mapstructure:"default_provider"`
	DefaultModel    string            `mapstructure:"default_model"`
	TaskModels      map[string]string `mapstructure:"task_models"`
}

type MetricsConfig struct {
	AlertThreshold int `mapstructure:"alert_threshold"`
	SampleLimit    int `mapstructure:"sample_limit"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type EnvCredentialConfig struct {
	ProviderCode string `mapstructure:"provider_code"`
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	// Load .env file if present
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./internal/config")

	// Default Values
	v.SetDefault("server.port", "8081")
	v.SetDefault("server.env", "development")
	v.SetDefault("database.dsn", "file:ai.db?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("rate_limit.requests_per_second", 5.0)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("ai.mock_mode", false)
	v.SetDefault("ai.max_input_chars", 50000)
	v.SetDefault("ai.default_provider", "openai")
	v.SetDefault("ai.default_model", "gpt-4o-mini")
	v.SetDefault("metrics.alert_threshold", 10)
	v.SetDefault("metrics.sample_limit", 50)
	v.SetDefault("tracing.enabled", false)

	// Environment Variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Flat env aliases matching the deployment environment
	bindAliases(v, map[string]string{
		"server.port":        "AI_PORT",
		"database.dsn":       "AI_DB_DSN",
		"redis.url":          "REDIS_URL",
		"auth.jwt_secret":    "JWT_SECRET",
		"ai.mock_mode":       "AI_MOCK_MODE",
		"ai.max_input_chars": "AI_MAX_INPUT_CHARS",
	})

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if cfg.Redis.URL != "" {
		cfg.Redis.Enabled = true
	}

	// Resolve ENV: references in configured credentials
	for i, c := range cfg.EnvCredentials {
		if strings.HasPrefix(c.APIKey, "ENV:") {
			envVar := strings.TrimPrefix(c.APIKey, "ENV:")
			// Check process environment first (explicit override)
			val := os.Getenv(envVar)
			if val == "" {
				// Then check viper (which might have it from other sources)
				val = v.GetString(envVar)
			}
			cfg.EnvCredentials[i].APIKey = val
		}
	}

	// Default fallback entries when the table is not configured
	if len(cfg.EnvCredentials) == 0 {
		cfg.EnvCredentials = []EnvCredentialConfig{
			{ProviderCode: "openai", APIKey: os.Getenv("OPENAI_API_KEY"), BaseURL: os.Getenv("OPENAI_BASE_URL")},
			{ProviderCode: "openai_compat", APIKey: os.Getenv("OPENAI_COMPAT_API_KEY"), BaseURL: os.Getenv("OPENAI_COMPAT_BASE_URL")},
		}
	}

	// Per-task model aliases from flat env (MODEL_SUMMARY, MODEL_TAGS, ...)
	if cfg.AI.TaskModels == nil {
		cfg.AI.TaskModels = make(map[string]string)
	}
	for _, task := range []string{"summary", "tags", "titles", "polish", "outline", "translate", "embedding"} {
		if cfg.AI.TaskModels[task] != "" {
			continue
		}
		if val := os.Getenv("MODEL_" + strings.ToUpper(task)); val != "" {
			cfg.AI.TaskModels[task] = val
		}
	}

	return &cfg, nil
}

func bindAliases(v *viper.Viper, aliases map[string]string) {
	for key, env := range aliases {
		_ = v.BindEnv(key, env)
	}
}

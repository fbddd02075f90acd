package model

import (
	"database/sql"
	"time"
)

// Provider api_type values. openai_compat covers every OpenAI-style API,
// custom is openai_compat with a caller-supplied base URL.
const (
	APITypeOpenAICompat = "openai_compat"
	APITypeAnthropic    = "anthropic"
	APITypeGoogle       = "google"
	APITypeAzure        = "azure"
	APITypeCustom       = "custom"
)

// Model type values.
const (
	ModelTypeChat      = "chat"
	ModelTypeEmbedding = "embedding"
	ModelTypeImage     = "image"
	ModelTypeAudio     = "audio"
	ModelTypeReasoning = "reasoning"
	ModelTypeTTS       = "tts"
	ModelTypeSTT       = "stt"
	ModelTypeRealtime  = "realtime"
	ModelTypeVideo     = "text-to-video"
	ModelTypeMusic     = "text-to-music"
)

// Provider represents an upstream LLM vendor integration.
type Provider struct {
	ID           int64          `db:"id" json:"id"`
	Code         string         `db:"code" json:"code"`
	Name         string         `db:"name" json:"name"`
	APIType      string         `db:"api_type" json:"api_type"`
	BaseURL      sql.NullString `db:"base_url" json:"base_url,omitempty"`
	IsEnabled    bool           `db:"is_enabled" json:"is_enabled"`
	Priority     int            `db:"priority" json:"priority"`
	Capabilities JSONMap        `db:"capabilities" json:"capabilities,omitempty"`
	ConfigSchema JSONMap        `db:"config_schema" json:"config_schema,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Model is one concrete model offered by a provider. Costs are per 1k
// tokens and nullable; unknown pricing is valid.
type Model struct {
	ID            int64           `db:"id" json:"id"`
	ProviderID    int64           `db:"provider_id" json:"provider_id"`
	ModelID       string          `db:"model_id" json:"model_id"`
	Name          sql.NullString  `db:"name" json:"name,omitempty"`
	ModelType     string          `db:"model_type" json:"model_type"`
	ContextWindow sql.NullInt64   `db:"context_window" json:"context_window,omitempty"`
	MaxTokens     sql.NullInt64   `db:"max_tokens" json:"max_tokens,omitempty"`
	InputCost     sql.NullFloat64 `db:"input_cost_per_1k" json:"input_cost_per_1k,omitempty"`
	OutputCost    sql.NullFloat64 `db:"output_cost_per_1k" json:"output_cost_per_1k,omitempty"`
	Capabilities  JSONMap         `db:"capabilities" json:"capabilities,omitempty"`
	IsEnabled     bool            `db:"is_enabled" json:"is_enabled"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`

	// Joined from ai_providers, not a column of ai_models
	ProviderCode    string `db:"provider_code" json:"provider_code,omitempty"`
	ProviderAPIType string `db:"provider_api_type" json:"provider_api_type,omitempty"`
}

// Credential stores an encrypted API key for a provider, optionally scoped
// to a user. A null user means system-wide.
type Credential struct {
	ID              int64          `db:"id" json:"id"`
	UserID          sql.NullInt64  `db:"user_id" json:"user_id,omitempty"`
	ProviderID      int64          `db:"provider_id" json:"provider_id"`
	APIKeyEncrypted string         `db:"api_key_encrypted" json:"-"` // Never return ciphertext
	APIKeyHint      string         `db:"api_key_hint" json:"api_key_hint"`
	BaseURL         sql.NullString `db:"base_url" json:"base_url,omitempty"`
	IsDefault       bool           `db:"is_default" json:"is_default"`
	LastUsedAt      sql.NullTime   `db:"last_used_at" json:"last_used_at,omitempty"`
	LastError       sql.NullString `db:"last_error" json:"last_error,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`

	ProviderCode string `db:"provider_code" json:"provider_code,omitempty"`
}

// TaskType is a logical operation (summary, translate, ...) with its
// defaults.
type TaskType struct {
	ID                 int64           `db:"id" json:"id"`
	Code               string          `db:"code" json:"code"`
	Name               string          `db:"name" json:"name"`
	DefaultModel       sql.NullString  `db:"default_model" json:"default_model,omitempty"`
	DefaultTemperature sql.NullFloat64 `db:"default_temperature" json:"default_temperature,omitempty"`
	DefaultMaxTokens   sql.NullInt64   `db:"default_max_tokens" json:"default_max_tokens,omitempty"`
	PromptTemplate     sql.NullString  `db:"prompt_template" json:"prompt_template,omitempty"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

// TaskRouting maps (task type, user) to a primary model, optional fallback
// model and credential. At most one enabled row per (user, task type).
type TaskRouting struct {
	ID              int64          `db:"id" json:"id"`
	UserID          sql.NullInt64  `db:"user_id" json:"user_id,omitempty"`
	TaskTypeID      int64          `db:"task_type_id" json:"task_type_id"`
	PrimaryModelID  sql.NullInt64  `db:"primary_model_id" json:"primary_model_id,omitempty"`
	FallbackModelID sql.NullInt64  `db:"fallback_model_id" json:"fallback_model_id,omitempty"`
	CredentialID    sql.NullInt64  `db:"credential_id" json:"credential_id,omitempty"`
	ConfigOverride  JSONMap        `db:"config_override" json:"config_override,omitempty"`
	PromptTemplate  sql.NullString `db:"prompt_template" json:"prompt_template,omitempty"`
	IsEnabled       bool           `db:"is_enabled" json:"is_enabled"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// ResolvedRouting is the join the router reads: the routing row plus the
// task-type defaults and the primary/fallback model and provider columns.
type ResolvedRouting struct {
	TaskRouting

	TaskTypeCode       string          `db:"task_type_code"`
	DefaultTemperature sql.NullFloat64 `db:"default_temperature"`
	DefaultMaxTokens   sql.NullInt64   `db:"default_max_tokens"`
	DefaultPrompt      sql.NullString  `db:"default_prompt"`

	PrimaryModel        sql.NullString `db:"primary_model"`
	PrimaryProviderCode sql.NullString `db:"primary_provider_code"`
	PrimaryAPIType      sql.NullString `db:"primary_api_type"`

	FallbackModel        sql.NullString `db:"fallback_model"`
	FallbackProviderCode sql.NullString `db:"fallback_provider_code"`
	FallbackAPIType      sql.NullString `db:"fallback_api_type"`
}

// DailyUsage is one aggregated row of the usage overview.
type DailyUsage struct {
	Day           string  `db:"day" json:"day"`
	Requests      int64   `db:"requests" json:"requests"`
	Failures      int64   `db:"failures" json:"failures"`
	CacheHits     int64   `db:"cache_hits" json:"cache_hits"`
	TotalTokens   int64   `db:"total_tokens" json:"total_tokens"`
	EstimatedCost float64 `db:"estimated_cost" json:"estimated_cost"`
}

// UsageLog is one audit row per completed request, success or failure.
type UsageLog struct {
	ID            int64          `db:"id" json:"id"`
	UserID        sql.NullString `db:"user_id" json:"user_id,omitempty"`
	Endpoint      string         `db:"endpoint" json:"endpoint"`
	TaskType      string         `db:"task_type" json:"task_type"`
	ProviderCode  string         `db:"provider_code" json:"provider_code"`
	ModelID       string         `db:"model_id" json:"model_id"`
	TokensIn      int            `db:"tokens_in" json:"tokens_in"`
	TokensOut     int            `db:"tokens_out" json:"tokens_out"`
	TotalTokens   int            `db:"total_tokens" json:"total_tokens"`
	LatencyMS     int64          `db:"latency_ms" json:"latency_ms"`
	EstimatedCost float64        `db:"estimated_cost" json:"estimated_cost"`
	Success       bool           `db:"success" json:"success"`
	Cached        bool           `db:"cached" json:"cached"`
	ErrorCode     sql.NullString `db:"error_code" json:"error_code,omitempty"`
	RequestID     sql.NullString `db:"request_id" json:"request_id,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

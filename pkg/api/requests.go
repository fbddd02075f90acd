package api

// TaskOptions carries the override fields shared by every generation task.
// All of them are optional; when absent the stored routing (or the
// environment fallback) decides which model and prompt are used.
type TaskOptions struct {
	// Prompt template override with {name} placeholders
	PromptTemplate string `json:"promptTemplate,omitempty"`

	// Explicit model override. Setting it disables fallback for the request.
	ModelID string `json:"modelId,omitempty"`

	// Narrows the explicit model lookup to one provider
	ProviderCode string `json:"providerCode,omitempty"`

	// Participates in the response-cache key
	PromptVersion string `json:"promptVersion,omitempty"`
}

type SummaryRequest struct {
	Content   string `json:"content" binding:"required"`
	MaxLength int    `json:"maxLength,omitempty" binding:"omitempty,min=1,max=2000"`
	TaskOptions
}

type TagsRequest struct {
	Content string `json:"content" binding:"required"`
	MaxTags int    `json:"maxTags,omitempty" binding:"omitempty,min=1,max=20"`
	TaskOptions
}

type TitlesRequest struct {
	Content   string `json:"content" binding:"required"`
	MaxTitles int    `json:"maxTitles,omitempty" binding:"omitempty,min=1,max=10"`
	TaskOptions
}

type PolishRequest struct {
	Content string `json:"content" binding:"required"`
	Tone    string `json:"tone,omitempty" binding:"omitempty,oneof=formal casual technical friendly"`
	TaskOptions
}

type OutlineRequest struct {
	Topic           string `json:"topic" binding:"required"`
	Depth           int    `json:"depth,omitempty" binding:"omitempty,min=1,max=5"`
	Style           string `json:"style,omitempty"`
	ExistingContent string `json:"existingContent,omitempty"`
	TaskOptions
}

type TranslateRequest struct {
	Content        string `json:"content" binding:"required"`
	TargetLanguage string `json:"targetLanguage" binding:"required"`
	SourceLanguage string `json:"sourceLanguage,omitempty"`
	TaskOptions
}

type EmbeddingRequest struct {
	Text string `json:"text" binding:"required"`
}

// Admin payloads

type ProviderRequest struct {
	Code         string                 `json:"code" binding:"required"`
	Name         string                 `json:"name" binding:"required"`
	APIType      string                 `json:"apiType" binding:"required,oneof=openai_compat anthropic google azure custom"`
	BaseURL      string                 `json:"baseUrl,omitempty"`
	IsEnabled    *bool                  `json:"isEnabled,omitempty"`
	Priority     int                    `json:"priority,omitempty"`
	Capabilities map[string]interface{} `json:"capabilities,omitempty"`
	ConfigSchema map[string]interface{} `json:"configSchema,omitempty"`
}

type ModelRequest struct {
	ModelID       string                 `json:"modelId" binding:"required"`
	Name          string                 `json:"name,omitempty"`
	ModelType     string                 `json:"modelType,omitempty" binding:"omitempty,oneof=chat embedding image audio reasoning tts stt realtime text-to-video text-to-music"`
	ContextWindow *int                   `json:"contextWindow,omitempty"`
	MaxTokens     *int                   `json:"maxTokens,omitempty"`
	InputCost     *float64               `json:"inputCostPer1k,omitempty"`
	OutputCost    *float64               `json:"outputCostPer1k,omitempty"`
	Capabilities  map[string]interface{} `json:"capabilities,omitempty"`
	IsEnabled     *bool                  `json:"isEnabled,omitempty"`
}

type CredentialRequest struct {
	ProviderCode string `json:"providerCode" binding:"required"`
	APIKey       string `json:"apiKey" binding:"required"`
	BaseURL      string `json:"baseUrl,omitempty"`
	IsDefault    bool   `json:"isDefault,omitempty"`
}

type BatchToggleRequest struct {
	IDs     []int64 `json:"ids" binding:"required,min=1"`
	Enabled bool    `json:"enabled"`
}

type SortItem struct {
	ID   int64 `json:"id" binding:"required"`
	Sort int   `json:"sort"`
}

type SortUpdateRequest struct {
	Items []SortItem `json:"items" binding:"required,min=1,dive"`
}

// RoutingUpdateRequest is a partial update. The Optional* wrappers record
// whether a field appeared in the JSON body at all, so an explicit null
// still overwrites while an absent field leaves the stored value alone.
type RoutingUpdateRequest struct {
	TaskType        string          `json:"taskType" binding:"required"`
	PrimaryModelID  OptionalInt64   `json:"primaryModelId"`
	FallbackModelID OptionalInt64   `json:"fallbackModelId"`
	CredentialID    OptionalInt64   `json:"credentialId"`
	ConfigOverride  OptionalJSONMap `json:"configOverride"`
	PromptTemplate  OptionalString  `json:"promptTemplate"`
	IsEnabled       *bool           `json:"isEnabled,omitempty"`
}

type SyncModelsRequest struct {
	ProviderCode string `json:"providerCode" binding:"required"`
}

package api

// Response is the envelope every non-streaming endpoint returns.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(data interface{}) Response {
	return Response{Code: 0, Message: "ok", Data: data}
}

// TaskResult is the shared shape of every generation task response.
type TaskResult struct {
	Model      string `json:"model"`
	TokensUsed int    `json:"tokensUsed"`
	LatencyMS  int64  `json:"latencyMs"`
	Cached     bool   `json:"cached"`
}

type SummaryResponse struct {
	Summary string `json:"summary"`
	TaskResult
}

type TagsResponse struct {
	Tags []string `json:"tags"`
	TaskResult
}

type TitlesResponse struct {
	Titles []string `json:"titles"`
	TaskResult
}

type PolishResponse struct {
	Polished string `json:"polished"`
	TaskResult
}

type OutlineResponse struct {
	Outline string `json:"outline"`
	TaskResult
}

type TranslateResponse struct {
	Translated string `json:"translated"`
	TaskResult
}

type EmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
	Dimension int       `json:"dimension"`
	Model     string    `json:"model"`
}

// StreamEvent is one NDJSON/SSE frame of a streaming task response.
// Type is "delta", "error" or "done"; a "done" frame always terminates
// the stream, even after an error.
type StreamEvent struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	IsThink bool   `json:"isThink,omitempty"`
	Message string `json:"message,omitempty"`
}

type ProviderResponse struct {
	ID           int64                  `json:"id"`
	Code         string                 `json:"code"`
	Name         string                 `json:"name"`
	APIType      string                 `json:"apiType"`
	BaseURL      string                 `json:"baseUrl,omitempty"`
	IsEnabled    bool                   `json:"isEnabled"`
	Priority     int                    `json:"priority"`
	Capabilities map[string]interface{} `json:"capabilities,omitempty"`
}

type ModelResponse struct {
	ID            int64                  `json:"id"`
	ProviderID    int64                  `json:"providerId"`
	ProviderCode  string                 `json:"providerCode,omitempty"`
	ModelID       string                 `json:"modelId"`
	Name          string                 `json:"name,omitempty"`
	ModelType     string                 `json:"modelType"`
	ContextWindow *int                   `json:"contextWindow,omitempty"`
	MaxTokens     *int                   `json:"maxTokens,omitempty"`
	InputCost     *float64               `json:"inputCostPer1k,omitempty"`
	OutputCost    *float64               `json:"outputCostPer1k,omitempty"`
	Capabilities  map[string]interface{} `json:"capabilities,omitempty"`
	IsEnabled     bool                   `json:"isEnabled"`
}

// CredentialResponse never carries the key itself, only the hint.
type CredentialResponse struct {
	ID           int64  `json:"id"`
	ProviderCode string `json:"providerCode"`
	APIKeyHint   string `json:"apiKeyHint"`
	BaseURL      string `json:"baseUrl,omitempty"`
	IsDefault    bool   `json:"isDefault"`
	LastUsedAt   string `json:"lastUsedAt,omitempty"`
	LastError    string `json:"lastError,omitempty"`
}

type TaskTypeResponse struct {
	ID                 int64    `json:"id"`
	Code               string   `json:"code"`
	Name               string   `json:"name"`
	DefaultModel       string   `json:"defaultModel,omitempty"`
	DefaultTemperature *float64 `json:"defaultTemperature,omitempty"`
	DefaultMaxTokens   *int     `json:"defaultMaxTokens,omitempty"`
	PromptTemplate     string   `json:"promptTemplate,omitempty"`
}

type SyncModelsResponse struct {
	ProviderCode string `json:"providerCode"`
	Fetched      int    `json:"fetched"`
	Inserted     int    `json:"inserted"`
}

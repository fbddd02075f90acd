package llm

import (
	"context"
)

// CompletionRequest is one upstream call, fully resolved: the (possibly
// protocol-prefixed) model string, the wire protocol, the credential and
// the rendered prompt.
type CompletionRequest struct {
	Model   string
	APIType string
	APIKey  string
	BaseURL string

	Prompt      string
	Temperature float64
	MaxTokens   *int
}

// CompletionResult carries the text and the token usage the upstream
// reported. Zero token counts are possible; the usage logger estimates in
// that case.
type CompletionResult struct {
	Text      string
	TokensIn  int
	TokensOut int
}

// ChunkHandler consumes one text chunk of a streaming completion.
type ChunkHandler func(text string) error

type EmbeddingRequest struct {
	Model   string
	APIType string
	APIKey  string
	BaseURL string
	Text    string
}

// CompletionClient is the upstream boundary. One implementation speaks the
// real provider protocols, another fakes them for mock mode and tests.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
	Stream(ctx context.Context, req CompletionRequest, onChunk ChunkHandler) error
	Embed(ctx context.Context, req EmbeddingRequest) ([]float64, error)
}

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aetherblog/ai-service/internal/httpclient"
	"github.com/aetherblog/ai-service/internal/store/model"
)

const (
	defaultOpenAIBase    = "https://api.openai.com/v1"
	defaultAnthropicBase = "https://api.anthropic.com"

	anthropicVersion = "2023-06-01"
	// anthropic requires max_tokens; used when routing supplies none
	anthropicDefaultMaxTokens = 4096
)

// UpstreamClient speaks the real provider protocols. Anthropic gets its
// native messages API, everything else the OpenAI chat-completions wire
// format.
type UpstreamClient struct {
	http httpclient.HTTPClient
}

func NewUpstreamClient(client httpclient.HTTPClient) *UpstreamClient {
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &UpstreamClient{http: client}
}

func (c *UpstreamClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	if req.APIType == model.APITypeAnthropic {
		return c.completeAnthropic(ctx, req)
	}
	return c.completeOpenAI(ctx, req)
}

func (c *UpstreamClient) Stream(ctx context.Context, req CompletionRequest, onChunk ChunkHandler) error {
	if req.APIType == model.APITypeAnthropic {
		return c.streamAnthropic(ctx, req, onChunk)
	}
	return c.streamOpenAI(ctx, req, onChunk)
}

// --- OpenAI-compatible wire format ---

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *UpstreamClient) openAIHeaders(req CompletionRequest) map[string]string {
	if strings.HasPrefix(req.Model, "azure/") || req.APIType == model.APITypeAzure {
		return map[string]string{"api-key": req.APIKey}
	}
	return map[string]string{"Authorization": "Bearer " + req.APIKey}
}

func openAIBase(baseURL string) string {
	if baseURL == "" {
		return defaultOpenAIBase
	}
	return baseURL
}

func (c *UpstreamClient) completeOpenAI(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	body := openAIChatRequest{
		Model:       StripPrefix(req.Model),
		Messages:    []openAIMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	var resp openAIChatResponse
	url := openAIBase(req.BaseURL) + "/chat/completions"
	if err := httpclient.SendRequest(ctx, c.http, http.MethodPost, url, c.openAIHeaders(req), body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("upstream returned no choices")
	}

	return &CompletionResult{
		Text:      resp.Choices[0].Message.Content,
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
	}, nil
}

func (c *UpstreamClient) streamOpenAI(ctx context.Context, req CompletionRequest, onChunk ChunkHandler) error {
	body := openAIChatRequest{
		Model:       StripPrefix(req.Model),
		Messages:    []openAIMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	}

	url := openAIBase(req.BaseURL) + "/chat/completions"
	return httpclient.StreamRequest(ctx, c.http, http.MethodPost, url, c.openAIHeaders(req), body, func(line string) error {
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			return nil
		}
		if payload == "[DONE]" {
			return nil
		}

		var chunk openAIChatResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			// tolerate malformed keep-alive frames
			return nil
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			return nil
		}
		return onChunk(chunk.Choices[0].Delta.Content)
	})
}

// --- Anthropic messages API ---

type anthropicRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
	Stream      bool            `json:"stream,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

func (c *UpstreamClient) anthropicHeaders(apiKey string) map[string]string {
	return map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": anthropicVersion,
	}
}

func anthropicBase(baseURL string) string {
	if baseURL == "" {
		return defaultAnthropicBase
	}
	return baseURL
}

func anthropicBody(req CompletionRequest, stream bool) anthropicRequest {
	maxTokens := anthropicDefaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	return anthropicRequest{
		Model:       StripPrefix(req.Model),
		Messages:    []openAIMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
		Stream:      stream,
	}
}

func (c *UpstreamClient) completeAnthropic(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	var resp anthropicResponse
	url := anthropicBase(req.BaseURL) + "/v1/messages"
	if err := httpclient.SendRequest(ctx, c.http, http.MethodPost, url, c.anthropicHeaders(req.APIKey), anthropicBody(req, false), &resp); err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, errors.New("upstream returned no text content")
	}

	return &CompletionResult{
		Text:      text.String(),
		TokensIn:  resp.Usage.InputTokens,
		TokensOut: resp.Usage.OutputTokens,
	}, nil
}

func (c *UpstreamClient) streamAnthropic(ctx context.Context, req CompletionRequest, onChunk ChunkHandler) error {
	url := anthropicBase(req.BaseURL) + "/v1/messages"
	return httpclient.StreamRequest(ctx, c.http, http.MethodPost, url, c.anthropicHeaders(req.APIKey), anthropicBody(req, true), func(line string) error {
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			return nil
		}

		var event anthropicStreamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			return nil
		}
		if event.Type != "content_block_delta" || event.Delta.Text == "" {
			return nil
		}
		return onChunk(event.Delta.Text)
	})
}

// --- Embeddings (OpenAI wire only) ---

type embeddingAPIRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingAPIResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (c *UpstreamClient) Embed(ctx context.Context, req EmbeddingRequest) ([]float64, error) {
	if req.APIType == model.APITypeAnthropic {
		return nil, fmt.Errorf("api type %q does not support embeddings", req.APIType)
	}

	body := embeddingAPIRequest{Model: StripPrefix(req.Model), Input: req.Text}
	headers := map[string]string{"Authorization": "Bearer " + req.APIKey}
	if req.APIType == model.APITypeAzure {
		headers = map[string]string{"api-key": req.APIKey}
	}

	var resp embeddingAPIResponse
	url := openAIBase(req.BaseURL) + "/embeddings"
	if err := httpclient.SendRequest(ctx, c.http, http.MethodPost, url, headers, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("upstream returned no embedding")
	}
	return resp.Data[0].Embedding, nil
}

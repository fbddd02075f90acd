package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aetherblog/ai-service/internal/llm"
	"github.com/aetherblog/ai-service/internal/server/middleware"
	"github.com/aetherblog/ai-service/internal/usage"
	"github.com/aetherblog/ai-service/pkg/api"
)

// stream runs a task as a server-sent event stream. Events are think-aware
// deltas; the stream always closes with a done event, even on failure.
func (h *AIHandler) stream(c *gin.Context, alias, content string, vars map[string]interface{}, opts api.TaskOptions) {
	if !h.checkInput(c, content) {
		return
	}

	endpoint := c.Request.URL.Path
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		_ = c.Error(api.InternalError("streaming unsupported by this connection", nil))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	var answer strings.Builder
	start := time.Now()

	modelUsed, err := h.llm.StreamChatWithThinkDetection(c.Request.Context(), llm.ChatRequest{
		TaskAlias:     alias,
		UserID:        middleware.UserID(c),
		Variables:     vars,
		CustomPrompt:  opts.PromptTemplate,
		DefaultPrompt: defaultTemplates[alias],
		ModelID:       opts.ModelID,
		ProviderCode:  opts.ProviderCode,
	}, func(event api.StreamEvent) error {
		if event.Type == "delta" && !event.IsThink {
			answer.WriteString(event.Content)
		}
		payload, marshalErr := json.Marshal(event)
		if marshalErr != nil {
			return marshalErr
		}
		if _, writeErr := fmt.Fprintf(c.Writer, "data: %s\n\n", payload); writeErr != nil {
			return writeErr
		}
		flusher.Flush()
		return nil
	})
	latency := time.Since(start).Milliseconds()

	if err != nil {
		h.recordFailure(c, endpoint, alias, latency, err)
		return
	}
	h.recordSuccess(c, endpoint, alias, &taskOutcome{
		Model:     modelUsed,
		TokensIn:  usage.EstimateTokens(content),
		TokensOut: usage.EstimateTokens(answer.String()),
		LatencyMS: latency,
	})
}

func (h *AIHandler) SummaryStream(c *gin.Context) {
	var req api.SummaryRequest
	if !bind(c, &req) {
		return
	}
	if req.MaxLength == 0 {
		req.MaxLength = 200
	}
	h.stream(c, "summary", req.Content,
		map[string]interface{}{"content": req.Content, "max_length": req.MaxLength}, req.TaskOptions)
}

func (h *AIHandler) TagsStream(c *gin.Context) {
	var req api.TagsRequest
	if !bind(c, &req) {
		return
	}
	if req.MaxTags == 0 {
		req.MaxTags = 5
	}
	h.stream(c, "tags", req.Content,
		map[string]interface{}{"content": req.Content, "max_tags": req.MaxTags}, req.TaskOptions)
}

func (h *AIHandler) TitlesStream(c *gin.Context) {
	var req api.TitlesRequest
	if !bind(c, &req) {
		return
	}
	if req.MaxTitles == 0 {
		req.MaxTitles = 5
	}
	h.stream(c, "titles", req.Content,
		map[string]interface{}{"content": req.Content, "max_titles": req.MaxTitles}, req.TaskOptions)
}

func (h *AIHandler) PolishStream(c *gin.Context) {
	var req api.PolishRequest
	if !bind(c, &req) {
		return
	}
	if req.Tone == "" {
		req.Tone = "friendly"
	}
	h.stream(c, "polish", req.Content,
		map[string]interface{}{"content": req.Content, "tone": req.Tone}, req.TaskOptions)
}

func (h *AIHandler) OutlineStream(c *gin.Context) {
	var req api.OutlineRequest
	if !bind(c, &req) {
		return
	}
	if req.Depth == 0 {
		req.Depth = 3
	}
	if req.Style == "" {
		req.Style = "standard"
	}
	h.stream(c, "outline", req.Topic+req.ExistingContent, map[string]interface{}{
		"topic":            req.Topic,
		"depth":            req.Depth,
		"style":            req.Style,
		"existing_content": req.ExistingContent,
	}, req.TaskOptions)
}

func (h *AIHandler) TranslateStream(c *gin.Context) {
	var req api.TranslateRequest
	if !bind(c, &req) {
		return
	}
	if req.SourceLanguage == "" {
		req.SourceLanguage = "auto"
	}
	h.stream(c, "translate", req.Content, map[string]interface{}{
		"content":         req.Content,
		"target_language": req.TargetLanguage,
		"source_language": req.SourceLanguage,
	}, req.TaskOptions)
}

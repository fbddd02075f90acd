package v1

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aetherblog/ai-service/internal/cache"
	"github.com/aetherblog/ai-service/internal/llm"
	"github.com/aetherblog/ai-service/internal/metrics"
	"github.com/aetherblog/ai-service/internal/registry"
	"github.com/aetherblog/ai-service/internal/server/middleware"
	"github.com/aetherblog/ai-service/internal/usage"
	"github.com/aetherblog/ai-service/pkg/api"
)

// Response cache TTLs per task. Titles rotate faster on purpose so a
// regenerate button feels responsive.
const (
	summaryCacheTTL   = 24 * time.Hour
	tagsCacheTTL      = 24 * time.Hour
	titlesCacheTTL    = time.Hour
	translateCacheTTL = 24 * time.Hour
)

// defaultTemplates back each task when neither routing nor the request
// supplies a prompt.
var defaultTemplates = map[string]string{
	"summary":   "Summarize the following blog post in at most {max_length} characters. Return only the summary.\n\n{content}",
	"tags":      "Suggest up to {max_tags} short topical tags for the following blog post. Return one tag per line, no numbering.\n\n{content}",
	"titles":    "Propose {max_titles} alternative titles for the following blog post. Return one title per line, no numbering.\n\n{content}",
	"polish":    "Polish the following blog post for clarity and flow, keeping its meaning and a {tone} tone. Return only the revised text.\n\n{content}",
	"outline":   "Create a blog post outline for the topic \"{topic}\" with up to {depth} heading levels, {style} style. Use markdown headings.\n\n{existing_content}",
	"translate": "Translate the following blog post from {source_language} to {target_language}. Preserve markdown formatting. Return only the translation.\n\n{content}",
}

// AIHandler serves the generation tasks.
type AIHandler struct {
	llm      *llm.Router
	usage    *usage.Logger
	metrics  *metrics.Store
	cache    cache.CacheService
	registry *registry.Registry
	maxInput int
}

func NewAIHandler(router *llm.Router, usageLog *usage.Logger, m *metrics.Store, c cache.CacheService, reg *registry.Registry, maxInput int) *AIHandler {
	return &AIHandler{
		llm:      router,
		usage:    usageLog,
		metrics:  m,
		cache:    c,
		registry: reg,
		maxInput: maxInput,
	}
}

// taskOutcome is the cached/logged shape shared by all tasks.
type taskOutcome struct {
	Text      string `json:"text"`
	Model     string `json:"model"`
	TokensIn  int    `json:"tokensIn"`
	TokensOut int    `json:"tokensOut"`
	LatencyMS int64  `json:"latencyMs"`
	Cached    bool   `json:"-"`
}

// run executes one task end to end: input limit, cache lookup, dispatch,
// usage log, cache fill. A false return means the error is already on the
// context.
func (h *AIHandler) run(c *gin.Context, alias, content string, vars map[string]interface{}, opts api.TaskOptions, ttl time.Duration, keyExtra ...string) (*taskOutcome, bool) {
	if !h.checkInput(c, content) {
		return nil, false
	}

	userID := middleware.UserID(c)
	endpoint := c.Request.URL.Path

	var cacheKey string
	if ttl > 0 && h.cache != nil {
		parts := append([]string{content, opts.ModelID, opts.ProviderCode, opts.PromptVersion, opts.PromptTemplate}, keyExtra...)
		cacheKey = cache.Key(alias, parts...)

		var cached taskOutcome
		if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil {
			cached.Cached = true
			cached.LatencyMS = 0
			h.recordSuccess(c, endpoint, alias, &cached)
			return &cached, true
		}
	}

	start := time.Now()
	result, err := h.llm.Chat(c.Request.Context(), llm.ChatRequest{
		TaskAlias:     alias,
		UserID:        userID,
		Variables:     vars,
		CustomPrompt:  opts.PromptTemplate,
		DefaultPrompt: defaultTemplates[alias],
		ModelID:       opts.ModelID,
		ProviderCode:  opts.ProviderCode,
	})
	latency := time.Since(start).Milliseconds()

	if err != nil {
		h.recordFailure(c, endpoint, alias, latency, err)
		h.fail(c, err)
		return nil, false
	}

	outcome := &taskOutcome{
		Text:      result.Text,
		Model:     result.Model,
		TokensIn:  result.TokensIn,
		TokensOut: result.TokensOut,
		LatencyMS: latency,
	}
	if outcome.TokensIn == 0 {
		outcome.TokensIn = usage.EstimateTokens(content)
	}
	if outcome.TokensOut == 0 {
		outcome.TokensOut = usage.EstimateTokens(result.Text)
	}

	h.recordSuccess(c, endpoint, alias, outcome)

	if cacheKey != "" {
		_ = h.cache.Set(c.Request.Context(), cacheKey, outcome, ttl)
	}
	return outcome, true
}

func (h *AIHandler) checkInput(c *gin.Context, content string) bool {
	if h.maxInput > 0 && len(content) > h.maxInput {
		_ = c.Error(api.PayloadTooLargeError(
			fmt.Sprintf("input exceeds the %d character limit", h.maxInput)))
		return false
	}
	return true
}

// fail pushes a dispatch error onto the context, wrapping raw upstream
// errors as 502s.
func (h *AIHandler) fail(c *gin.Context, err error) {
	var problem *api.Problem
	var appErr *api.Error
	if errors.As(err, &problem) || errors.As(err, &appErr) {
		_ = c.Error(err)
		return
	}
	_ = c.Error(api.ProviderError("upstream model call failed", err))
}

func (h *AIHandler) recordSuccess(c *gin.Context, endpoint, alias string, outcome *taskOutcome) {
	inCost, outCost := h.modelCosts(c, outcome.Model)
	h.usage.Record(c.Request.Context(), usage.Entry{
		UserID:          userIDString(c),
		Endpoint:        endpoint,
		TaskType:        alias,
		Model:           outcome.Model,
		TokensIn:        outcome.TokensIn,
		TokensOut:       outcome.TokensOut,
		LatencyMS:       outcome.LatencyMS,
		InputCostPer1k:  inCost,
		OutputCostPer1k: outCost,
		Success:         true,
		Cached:          outcome.Cached,
		RequestID:       middleware.RequestID(c),
	})
	h.metrics.RecordRequest(endpoint, outcome.Model, true, outcome.LatencyMS)
}

func (h *AIHandler) recordFailure(c *gin.Context, endpoint, alias string, latency int64, err error) {
	code := err.Error()
	if len(code) > 120 {
		code = code[:120]
	}
	h.usage.Record(c.Request.Context(), usage.Entry{
		UserID:    userIDString(c),
		Endpoint:  endpoint,
		TaskType:  alias,
		LatencyMS: latency,
		Success:   false,
		ErrorCode: code,
		RequestID: middleware.RequestID(c),
	})
	h.metrics.RecordRequest(endpoint, "", false, latency)
}

// modelCosts looks the dispatched model's pricing up for cost estimation.
// Unknown models just cost zero.
func (h *AIHandler) modelCosts(c *gin.Context, combined string) (*float64, *float64) {
	_, modelID := usage.SplitModel(llm.StripPrefix(combined))
	if modelID == "" {
		modelID = llm.StripPrefix(combined)
	}
	m, err := h.registry.GetModel(c.Request.Context(), modelID, "")
	if err != nil {
		return nil, nil
	}
	var in, out *float64
	if m.InputCost.Valid {
		v := m.InputCost.Float64
		in = &v
	}
	if m.OutputCost.Valid {
		v := m.OutputCost.Float64
		out = &v
	}
	return in, out
}

func userIDString(c *gin.Context) string {
	if id := middleware.UserID(c); id != nil {
		return fmt.Sprintf("%d", *id)
	}
	return ""
}

// --- task endpoints ---

func (h *AIHandler) Summary(c *gin.Context) {
	var req api.SummaryRequest
	if !bind(c, &req) {
		return
	}
	if req.MaxLength == 0 {
		req.MaxLength = 200
	}

	vars := map[string]interface{}{"content": req.Content, "max_length": req.MaxLength}
	outcome, ok := h.run(c, "summary", req.Content, vars, req.TaskOptions,
		summaryCacheTTL, fmt.Sprintf("len=%d", req.MaxLength))
	if !ok {
		return
	}

	c.JSON(http.StatusOK, api.OK(api.SummaryResponse{
		Summary:    strings.TrimSpace(outcome.Text),
		TaskResult: taskResult(outcome),
	}))
}

func (h *AIHandler) Tags(c *gin.Context) {
	var req api.TagsRequest
	if !bind(c, &req) {
		return
	}
	if req.MaxTags == 0 {
		req.MaxTags = 5
	}

	vars := map[string]interface{}{"content": req.Content, "max_tags": req.MaxTags}
	outcome, ok := h.run(c, "tags", req.Content, vars, req.TaskOptions,
		tagsCacheTTL, fmt.Sprintf("n=%d", req.MaxTags))
	if !ok {
		return
	}

	c.JSON(http.StatusOK, api.OK(api.TagsResponse{
		Tags:       parseList(outcome.Text, req.MaxTags),
		TaskResult: taskResult(outcome),
	}))
}

func (h *AIHandler) Titles(c *gin.Context) {
	var req api.TitlesRequest
	if !bind(c, &req) {
		return
	}
	if req.MaxTitles == 0 {
		req.MaxTitles = 5
	}

	vars := map[string]interface{}{"content": req.Content, "max_titles": req.MaxTitles}
	outcome, ok := h.run(c, "titles", req.Content, vars, req.TaskOptions,
		titlesCacheTTL, fmt.Sprintf("n=%d", req.MaxTitles))
	if !ok {
		return
	}

	c.JSON(http.StatusOK, api.OK(api.TitlesResponse{
		Titles:     parseList(outcome.Text, req.MaxTitles),
		TaskResult: taskResult(outcome),
	}))
}

func (h *AIHandler) Polish(c *gin.Context) {
	var req api.PolishRequest
	if !bind(c, &req) {
		return
	}
	if req.Tone == "" {
		req.Tone = "friendly"
	}

	vars := map[string]interface{}{"content": req.Content, "tone": req.Tone}
	outcome, ok := h.run(c, "polish", req.Content, vars, req.TaskOptions, 0)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, api.OK(api.PolishResponse{
		Polished:   strings.TrimSpace(outcome.Text),
		TaskResult: taskResult(outcome),
	}))
}

func (h *AIHandler) Outline(c *gin.Context) {
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

	vars := map[string]interface{}{
		"topic":            req.Topic,
		"depth":            req.Depth,
		"style":            req.Style,
		"existing_content": req.ExistingContent,
	}
	outcome, ok := h.run(c, "outline", req.Topic+req.ExistingContent, vars,
		req.TaskOptions, 0)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, api.OK(api.OutlineResponse{
		Outline:    strings.TrimSpace(outcome.Text),
		TaskResult: taskResult(outcome),
	}))
}

func (h *AIHandler) Translate(c *gin.Context) {
	var req api.TranslateRequest
	if !bind(c, &req) {
		return
	}
	if req.SourceLanguage == "" {
		req.SourceLanguage = "auto"
	}

	vars := map[string]interface{}{
		"content":         req.Content,
		"target_language": req.TargetLanguage,
		"source_language": req.SourceLanguage,
	}
	outcome, ok := h.run(c, "translate", req.Content, vars, req.TaskOptions,
		translateCacheTTL, req.TargetLanguage, req.SourceLanguage)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, api.OK(api.TranslateResponse{
		Translated: strings.TrimSpace(outcome.Text),
		TaskResult: taskResult(outcome),
	}))
}

func (h *AIHandler) Embedding(c *gin.Context) {
	var req api.EmbeddingRequest
	if !bind(c, &req) {
		return
	}
	if !h.checkInput(c, req.Text) {
		return
	}

	endpoint := c.Request.URL.Path
	start := time.Now()
	vec, modelUsed, err := h.llm.Embed(c.Request.Context(), req.Text, middleware.UserID(c))
	latency := time.Since(start).Milliseconds()

	if err != nil {
		h.recordFailure(c, endpoint, "embedding", latency, err)
		h.fail(c, err)
		return
	}

	h.recordSuccess(c, endpoint, "embedding", &taskOutcome{
		Model:     modelUsed,
		TokensIn:  usage.EstimateTokens(req.Text),
		LatencyMS: latency,
	})

	c.JSON(http.StatusOK, api.OK(api.EmbeddingResponse{
		Embedding: vec,
		Dimension: len(vec),
		Model:     modelUsed,
	}))
}

// --- helpers ---

func taskResult(outcome *taskOutcome) api.TaskResult {
	return api.TaskResult{
		Model:      outcome.Model,
		TokensUsed: outcome.TokensIn + outcome.TokensOut,
		LatencyMS:  outcome.LatencyMS,
		Cached:     outcome.Cached,
	}
}

// parseList splits a model reply into clean list items, tolerating
// numbering, bullets and comma-separated one-liners.
func parseList(text string, max int) []string {
	lines := strings.Split(text, "\n")
	if len(lines) == 1 && strings.Contains(text, ",") {
		lines = strings.Split(text, ",")
	}

	items := make([]string, 0, max)
	for _, line := range lines {
		item := strings.TrimSpace(line)
		item = strings.TrimLeft(item, "-*•0123456789. )")
		item = strings.Trim(item, `"'`)
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		items = append(items, item)
		if len(items) == max {
			break
		}
	}
	return items
}

package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aetherblog/ai-service/internal/credentials"
	"github.com/aetherblog/ai-service/internal/llm/processing"
	"github.com/aetherblog/ai-service/internal/platform/logger"
	"github.com/aetherblog/ai-service/internal/registry"
	"github.com/aetherblog/ai-service/internal/routing"
	"github.com/aetherblog/ai-service/internal/store/model"
	"github.com/aetherblog/ai-service/pkg/api"
)

// EnvFallback is the last resolution tier: models and a provider wired
// through environment configuration, used when neither an override nor a
// routing row applies.
type EnvFallback struct {
	// Provider whose credential the env tier resolves against
	DefaultProvider string
	APIType         string
	// task alias -> model identifier
	Models       map[string]string
	DefaultModel string
}

// ChatRequest is one dispatch: a task alias plus optional overrides.
type ChatRequest struct {
	TaskAlias    string
	UserID       *int64
	Variables    map[string]interface{}
	CustomPrompt string
	// DefaultPrompt applies only when neither the request nor the routing
	// row carries a template.
	DefaultPrompt string
	ModelID       string
	ProviderCode  string
}

// ChatResult is the outcome of a completed (non-streaming) dispatch.
type ChatResult struct {
	Text      string
	Model     string
	TokensIn  int
	TokensOut int
}

// Router resolves a route and dispatches the upstream call, with
// single-level fallback when routing configured one.
type Router struct {
	registry *registry.Registry
	routing  *routing.Router
	resolver *credentials.Resolver
	client   CompletionClient
	mock     CompletionClient
	env      EnvFallback
}

func NewRouter(reg *registry.Registry, router *routing.Router, resolver *credentials.Resolver, client CompletionClient, env EnvFallback) *Router {
	if env.APIType == "" {
		env.APIType = model.APITypeOpenAICompat
	}
	return &Router{
		registry: reg,
		routing:  router,
		resolver: resolver,
		client:   client,
		env:      env,
	}
}

// EnableMock makes every non-override dispatch answer locally. Explicit
// model overrides keep hitting the real upstream.
func (r *Router) EnableMock(mock CompletionClient) {
	r.mock = mock
}

// route is the resolved dispatch plan, computed once per request and
// reused for the fallback retry.
type route struct {
	model   string // protocol-prefixed
	apiType string
	cred    *credentials.Resolved

	temperature    float64
	maxTokens      *int
	promptTemplate string

	fallbackModel    string
	fallbackProvider string
	fallbackAPIType  string

	fromOverride bool
	fromRouting  bool
}

func (rt *route) hasFallback() bool {
	return rt.fromRouting && !rt.fromOverride && rt.fallbackModel != ""
}

// resolveRoute walks the three tiers: explicit override, routing table,
// environment fallback. Override failures surface; they are never
// downgraded to the next tier.
func (r *Router) resolveRoute(ctx context.Context, req ChatRequest) (*route, error) {
	if req.ModelID != "" {
		m, err := r.registry.GetModel(ctx, req.ModelID, req.ProviderCode)
		if err != nil {
			return nil, err
		}

		cred, err := r.resolver.Get(ctx, m.ProviderCode, req.UserID, nil)
		if err != nil {
			return nil, err
		}
		if cred == nil {
			return nil, api.NotFoundError(
				fmt.Sprintf("no credential available for provider '%s'", m.ProviderCode))
		}

		return &route{
			model:        ApplyPrefix(m.ModelID, m.ProviderAPIType),
			apiType:      m.ProviderAPIType,
			cred:         cred,
			temperature:  0.7,
			fromOverride: true,
		}, nil
	}

	cfg, err := r.routing.Resolve(ctx, req.TaskAlias, req.UserID)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		cred, err := r.resolver.Get(ctx, cfg.ProviderCode, req.UserID, cfg.CredentialID)
		if err != nil {
			return nil, err
		}
		if cred == nil {
			return nil, api.NotFoundError(
				fmt.Sprintf("no credential available for provider '%s'", cfg.ProviderCode))
		}

		return &route{
			model:            ApplyPrefix(cfg.Model, cfg.APIType),
			apiType:          cfg.APIType,
			cred:             cred,
			temperature:      cfg.Temperature,
			maxTokens:        cfg.MaxTokens,
			promptTemplate:   cfg.PromptTemplate,
			fallbackModel:    cfg.FallbackModel,
			fallbackProvider: cfg.FallbackProviderCode,
			fallbackAPIType:  cfg.FallbackAPIType,
			fromRouting:      true,
		}, nil
	}

	modelID := r.env.Models[req.TaskAlias]
	if modelID == "" {
		modelID = r.env.DefaultModel
	}
	if modelID == "" {
		return nil, api.BadRequestError(
			fmt.Sprintf("no model configured for task '%s'", req.TaskAlias))
	}

	cred, err := r.resolver.Get(ctx, r.env.DefaultProvider, req.UserID, nil)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, api.NotFoundError(
			fmt.Sprintf("no credential available for provider '%s'", r.env.DefaultProvider))
	}

	apiType := cred.APIType
	if apiType == "" {
		apiType = r.env.APIType
	}
	return &route{
		model:       ApplyPrefix(modelID, apiType),
		apiType:     apiType,
		cred:        cred,
		temperature: 0.7,
	}, nil
}

// ResolveEffectiveModel reports which (prefixed) model a dispatch with the
// given overrides would hit, without calling upstream.
func (r *Router) ResolveEffectiveModel(ctx context.Context, taskAlias string, userID *int64, modelID, providerCode string) (string, error) {
	rt, err := r.resolveRoute(ctx, ChatRequest{
		TaskAlias:    taskAlias,
		UserID:       userID,
		ModelID:      modelID,
		ProviderCode: providerCode,
	})
	if err != nil {
		return "", err
	}
	return rt.model, nil
}

func (r *Router) pickClient(rt *route) CompletionClient {
	if r.mock != nil && !rt.fromOverride {
		return r.mock
	}
	return r.client
}

func (r *Router) completionRequest(rt *route, prompt string) CompletionRequest {
	return CompletionRequest{
		Model:       rt.model,
		APIType:     rt.apiType,
		APIKey:      rt.cred.APIKey,
		BaseURL:     rt.cred.BaseURL,
		Prompt:      prompt,
		Temperature: rt.temperature,
		MaxTokens:   rt.maxTokens,
	}
}

// fallbackRoute rebuilds the plan against the fallback model, resolving a
// system credential for its provider. Generation parameters and the
// rendered prompt carry over unchanged.
func (r *Router) fallbackRoute(ctx context.Context, rt *route) (*route, error) {
	cred, err := r.resolver.Get(ctx, rt.fallbackProvider, nil, nil)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, fmt.Errorf("no credential available for fallback provider %q", rt.fallbackProvider)
	}

	fb := *rt
	fb.model = ApplyPrefix(rt.fallbackModel, rt.fallbackAPIType)
	fb.apiType = rt.fallbackAPIType
	fb.cred = cred
	fb.fallbackModel = ""
	fb.fallbackProvider = ""
	fb.fallbackAPIType = ""
	return &fb, nil
}

func (r *Router) renderPrompt(req ChatRequest, rt *route) string {
	template := req.CustomPrompt
	if template == "" {
		template = rt.promptTemplate
	}
	if template == "" {
		template = req.DefaultPrompt
	}
	return RenderPrompt(template, req.Variables)
}

// Chat resolves the route once, renders the prompt and calls upstream. On
// a primary failure it retries exactly once with the routing-configured
// fallback model; override routes never fall back.
func (r *Router) Chat(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	rt, err := r.resolveRoute(ctx, req)
	if err != nil {
		return nil, err
	}

	prompt := r.renderPrompt(req, rt)
	client := r.pickClient(rt)

	result, callErr := client.Complete(ctx, r.completionRequest(rt, prompt))
	r.resolver.MarkUsed(ctx, rt.cred.CredentialID, callErr)

	if callErr != nil && rt.hasFallback() {
		logger.Warn("primary model failed, trying fallback",
			zap.String("task", req.TaskAlias),
			zap.String("model", rt.model),
			zap.String("fallback", rt.fallbackModel),
			zap.Error(callErr))

		fb, fbErr := r.fallbackRoute(ctx, rt)
		if fbErr != nil {
			return nil, callErr
		}
		result, fbErr = client.Complete(ctx, r.completionRequest(fb, prompt))
		r.resolver.MarkUsed(ctx, fb.cred.CredentialID, fbErr)
		if fbErr != nil {
			return nil, callErr
		}
		return &ChatResult{
			Text:      result.Text,
			Model:     fb.model,
			TokensIn:  result.TokensIn,
			TokensOut: result.TokensOut,
		}, nil
	}
	if callErr != nil {
		return nil, callErr
	}

	return &ChatResult{
		Text:      result.Text,
		Model:     rt.model,
		TokensIn:  result.TokensIn,
		TokensOut: result.TokensOut,
	}, nil
}

// StreamChat streams raw text chunks. The fallback retry only happens when
// the primary stream failed before producing any output; a mid-stream
// failure surfaces as-is.
func (r *Router) StreamChat(ctx context.Context, req ChatRequest, onChunk ChunkHandler) (string, error) {
	rt, err := r.resolveRoute(ctx, req)
	if err != nil {
		return "", err
	}

	prompt := r.renderPrompt(req, rt)
	client := r.pickClient(rt)

	started := false
	wrapped := func(text string) error {
		started = true
		return onChunk(text)
	}

	callErr := client.Stream(ctx, r.completionRequest(rt, prompt), wrapped)
	r.resolver.MarkUsed(ctx, rt.cred.CredentialID, callErr)

	if callErr != nil && !started && rt.hasFallback() {
		logger.Warn("primary stream failed before output, trying fallback",
			zap.String("task", req.TaskAlias),
			zap.String("model", rt.model),
			zap.String("fallback", rt.fallbackModel),
			zap.Error(callErr))

		fb, fbErr := r.fallbackRoute(ctx, rt)
		if fbErr != nil {
			return rt.model, callErr
		}
		fbErr = client.Stream(ctx, r.completionRequest(fb, prompt), onChunk)
		r.resolver.MarkUsed(ctx, fb.cred.CredentialID, fbErr)
		if fbErr != nil {
			return fb.model, callErr
		}
		return fb.model, nil
	}

	return rt.model, callErr
}

// StreamChatWithThinkDetection streams structured events, separating
// <think> spans from the answer. The sequence always terminates with a
// done event, preceded by an error event when upstream failed.
func (r *Router) StreamChatWithThinkDetection(ctx context.Context, req ChatRequest, emit func(api.StreamEvent) error) (string, error) {
	detector := processing.NewThinkDetector()

	emitSegments := func(segments []processing.Segment) error {
		for _, seg := range segments {
			event := api.StreamEvent{Type: "delta", Content: seg.Text, IsThink: seg.Think}
			if err := emit(event); err != nil {
				return err
			}
		}
		return nil
	}

	modelUsed, callErr := r.StreamChat(ctx, req, func(text string) error {
		return emitSegments(detector.Feed(text))
	})

	if flushErr := emitSegments(detector.Flush()); flushErr != nil && callErr == nil {
		callErr = flushErr
	}

	if callErr != nil {
		_ = emit(api.StreamEvent{Type: "error", Message: "upstream model call failed"})
	}
	_ = emit(api.StreamEvent{Type: "done"})

	return modelUsed, callErr
}

// Embed resolves the embedding route (routing table first, then the env
// tier) and returns the vector.
func (r *Router) Embed(ctx context.Context, text string, userID *int64) ([]float64, string, error) {
	rt, err := r.resolveRoute(ctx, ChatRequest{TaskAlias: "embedding", UserID: userID})
	if err != nil {
		return nil, "", err
	}

	client := r.pickClient(rt)
	vec, callErr := client.Embed(ctx, EmbeddingRequest{
		Model:   rt.model,
		APIType: rt.apiType,
		APIKey:  rt.cred.APIKey,
		BaseURL: rt.cred.BaseURL,
		Text:    text,
	})
	r.resolver.MarkUsed(ctx, rt.cred.CredentialID, callErr)
	if callErr != nil {
		return nil, rt.model, callErr
	}
	return vec, rt.model, nil
}

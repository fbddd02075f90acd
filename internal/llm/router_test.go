package llm

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aetherblog/ai-service/internal/credentials"
	"github.com/aetherblog/ai-service/internal/registry"
	"github.com/aetherblog/ai-service/internal/routing"
	"github.com/aetherblog/ai-service/internal/store"
	"github.com/aetherblog/ai-service/internal/store/model"
	"github.com/aetherblog/ai-service/internal/store/sqlite"
	"github.com/aetherblog/ai-service/pkg/api"
)

// fakeClient answers completions locally, failing for the models listed in
// failFor. It records every request it received.
type fakeClient struct {
	completions []CompletionRequest
	streams     []CompletionRequest
	failFor     map[string]error

	text           string
	chunks         []string
	emitBeforeFail bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		failFor: map[string]error{},
		text:    "fake answer",
		chunks:  []string{"fake ", "answer"},
	}
}

func (f *fakeClient) Complete(_ context.Context, req CompletionRequest) (*CompletionResult, error) {
	f.completions = append(f.completions, req)
	if err := f.failFor[req.Model]; err != nil {
		return nil, err
	}
	return &CompletionResult{Text: f.text, TokensIn: 10, TokensOut: 20}, nil
}

func (f *fakeClient) Stream(_ context.Context, req CompletionRequest, onChunk ChunkHandler) error {
	f.streams = append(f.streams, req)
	if err := f.failFor[req.Model]; err != nil {
		if f.emitBeforeFail {
			_ = onChunk("partial ")
		}
		return err
	}
	for _, c := range f.chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeClient) Embed(_ context.Context, req EmbeddingRequest) ([]float64, error) {
	if err := f.failFor[req.Model]; err != nil {
		return nil, err
	}
	return []float64{0.1, 0.2, 0.3}, nil
}

type routerFixture struct {
	repo     store.Repository
	reg      *registry.Registry
	resolver *credentials.Resolver
	client   *fakeClient
	router   *Router
}

func newRouterFixture(t *testing.T, env EnvFallback) *routerFixture {
	t.Helper()

	repo, err := sqlite.NewSQLiteStorage("file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	cipher, err := credentials.NewCipher("test-secret")
	require.NoError(t, err)
	resolver := credentials.NewResolver(repo, cipher, nil)

	client := newFakeClient()
	reg := registry.New(repo)
	return &routerFixture{
		repo:     repo,
		reg:      reg,
		resolver: resolver,
		client:   client,
		router:   NewRouter(reg, routing.NewRouter(repo), resolver, client, env),
	}
}

func (f *routerFixture) seedProvider(t *testing.T, code, apiType string) *model.Provider {
	t.Helper()
	p := &model.Provider{
		Code:      code,
		Name:      code,
		APIType:   apiType,
		BaseURL:   sql.NullString{String: "https://" + code + ".example.com", Valid: true},
		IsEnabled: true,
	}
	require.NoError(t, f.repo.Providers().Create(context.Background(), p))
	return p
}

func (f *routerFixture) seedModel(t *testing.T, providerID int64, modelID string) *model.Model {
	t.Helper()
	m := &model.Model{
		ProviderID: providerID,
		ModelID:    modelID,
		ModelType:  model.ModelTypeChat,
		IsEnabled:  true,
	}
	require.NoError(t, f.repo.Models().Create(context.Background(), m))
	return m
}

func (f *routerFixture) seedTask(t *testing.T, code string) *model.TaskType {
	t.Helper()
	tt := &model.TaskType{Code: code, Name: code}
	require.NoError(t, f.repo.TaskTypes().Create(context.Background(), tt))
	return tt
}

func (f *routerFixture) seedRouting(t *testing.T, row *model.TaskRouting) {
	t.Helper()
	row.IsEnabled = true
	require.NoError(t, f.repo.Routing().Insert(context.Background(), row))
}

func (f *routerFixture) seedSystemCredential(t *testing.T, providerCode string) {
	t.Helper()
	_, err := f.resolver.Save(context.Background(), nil, providerCode, "sk-system-"+providerCode, "", true)
	require.NoError(t, err)
}

// chatFixture wires one provider, one model, one task and a system
// credential, with an enabled routing row pointing at the model.
func chatFixture(t *testing.T) (*routerFixture, *model.Model, *model.TaskType) {
	f := newRouterFixture(t, EnvFallback{})
	p := f.seedProvider(t, "openai", model.APITypeOpenAICompat)
	m := f.seedModel(t, p.ID, "gpt-4o")
	task := f.seedTask(t, "summary")
	f.seedSystemCredential(t, "openai")
	f.seedRouting(t, &model.TaskRouting{
		TaskTypeID:     task.ID,
		PrimaryModelID: sql.NullInt64{Int64: m.ID, Valid: true},
	})
	return f, m, task
}

func TestChatUsesRoutingRow(t *testing.T) {
	f, _, _ := chatFixture(t)

	result, err := f.router.Chat(context.Background(), ChatRequest{
		TaskAlias: "summary",
		Variables: map[string]interface{}{"content": "hello"},
	})
	require.NoError(t, err)

	assert.Equal(t, "fake answer", result.Text)
	assert.Equal(t, "openai/gpt-4o", result.Model)
	assert.Equal(t, 10, result.TokensIn)
	assert.Equal(t, 20, result.TokensOut)

	require.Len(t, f.client.completions, 1)
	req := f.client.completions[0]
	assert.Equal(t, "openai/gpt-4o", req.Model)
	assert.Equal(t, model.APITypeOpenAICompat, req.APIType)
	assert.Equal(t, "sk-system-openai", req.APIKey)
	assert.Equal(t, "https://openai.example.com/v1", req.BaseURL)
}

func TestChatPromptPrecedence(t *testing.T) {
	f := newRouterFixture(t, EnvFallback{})
	p := f.seedProvider(t, "openai", model.APITypeOpenAICompat)
	m := f.seedModel(t, p.ID, "gpt-4o")
	task := f.seedTask(t, "summary")
	f.seedSystemCredential(t, "openai")
	f.seedRouting(t, &model.TaskRouting{
		TaskTypeID:     task.ID,
		PrimaryModelID: sql.NullInt64{Int64: m.ID, Valid: true},
		PromptTemplate: sql.NullString{String: "ROUTE {content}", Valid: true},
	})

	ctx := context.Background()
	vars := map[string]interface{}{"content": "hi"}

	// an explicit custom prompt beats the routing row's template
	_, err := f.router.Chat(ctx, ChatRequest{
		TaskAlias:     "summary",
		Variables:     vars,
		CustomPrompt:  "CUSTOM {content}",
		DefaultPrompt: "DEFAULT {content}",
	})
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM hi", f.client.completions[0].Prompt)

	// without a custom prompt the routing template wins over the default
	_, err = f.router.Chat(ctx, ChatRequest{
		TaskAlias:     "summary",
		Variables:     vars,
		DefaultPrompt: "DEFAULT {content}",
	})
	require.NoError(t, err)
	assert.Equal(t, "ROUTE hi", f.client.completions[1].Prompt)
}

func TestChatDefaultPromptWhenRouteHasNone(t *testing.T) {
	f, _, _ := chatFixture(t)

	_, err := f.router.Chat(context.Background(), ChatRequest{
		TaskAlias:     "summary",
		Variables:     map[string]interface{}{"content": "hi"},
		DefaultPrompt: "DEFAULT {content}",
	})
	require.NoError(t, err)
	assert.Equal(t, "DEFAULT hi", f.client.completions[0].Prompt)
}

func TestChatFallbackOnPrimaryFailure(t *testing.T) {
	f := newRouterFixture(t, EnvFallback{})
	p := f.seedProvider(t, "openai", model.APITypeOpenAICompat)
	primary := f.seedModel(t, p.ID, "gpt-4o")

	anthropic := f.seedProvider(t, "anthropic", model.APITypeAnthropic)
	fallback := f.seedModel(t, anthropic.ID, "claude-sonnet-4-5")

	task := f.seedTask(t, "summary")
	f.seedSystemCredential(t, "openai")
	f.seedSystemCredential(t, "anthropic")
	f.seedRouting(t, &model.TaskRouting{
		TaskTypeID:      task.ID,
		PrimaryModelID:  sql.NullInt64{Int64: primary.ID, Valid: true},
		FallbackModelID: sql.NullInt64{Int64: fallback.ID, Valid: true},
	})

	f.client.failFor["openai/gpt-4o"] = errors.New("rate limited")

	result, err := f.router.Chat(context.Background(), ChatRequest{TaskAlias: "summary"})
	require.NoError(t, err)

	assert.Equal(t, "claude-sonnet-4-5", result.Model)
	require.Len(t, f.client.completions, 2)
	assert.Equal(t, "openai/gpt-4o", f.client.completions[0].Model)
	assert.Equal(t, "claude-sonnet-4-5", f.client.completions[1].Model)
	// the fallback call runs on the fallback provider's system credential
	assert.Equal(t, "sk-system-anthropic", f.client.completions[1].APIKey)
}

func TestChatFallbackFailureReturnsOriginalError(t *testing.T) {
	f := newRouterFixture(t, EnvFallback{})
	p := f.seedProvider(t, "openai", model.APITypeOpenAICompat)
	primary := f.seedModel(t, p.ID, "gpt-4o")
	fallback := f.seedModel(t, p.ID, "gpt-4o-mini")
	task := f.seedTask(t, "summary")
	f.seedSystemCredential(t, "openai")
	f.seedRouting(t, &model.TaskRouting{
		TaskTypeID:      task.ID,
		PrimaryModelID:  sql.NullInt64{Int64: primary.ID, Valid: true},
		FallbackModelID: sql.NullInt64{Int64: fallback.ID, Valid: true},
	})

	primaryErr := errors.New("primary exploded")
	f.client.failFor["openai/gpt-4o"] = primaryErr
	f.client.failFor["openai/gpt-4o-mini"] = errors.New("fallback exploded")

	_, err := f.router.Chat(context.Background(), ChatRequest{TaskAlias: "summary"})
	require.Error(t, err)
	assert.ErrorIs(t, err, primaryErr)
	assert.Len(t, f.client.completions, 2)
}

func TestChatOverrideNeverFallsBack(t *testing.T) {
	f, _, _ := chatFixture(t)

	f.client.failFor["openai/gpt-4o"] = errors.New("boom")

	_, err := f.router.Chat(context.Background(), ChatRequest{
		TaskAlias: "summary",
		ModelID:   "gpt-4o",
	})
	require.Error(t, err)
	assert.Len(t, f.client.completions, 1)
}

func TestChatEnvFallbackTier(t *testing.T) {
	f := newRouterFixture(t, EnvFallback{
		DefaultProvider: "openai",
		Models:          map[string]string{"summary": "gpt-4o-mini"},
		DefaultModel:    "gpt-3.5-turbo",
	})
	f.seedProvider(t, "openai", model.APITypeOpenAICompat)
	f.seedSystemCredential(t, "openai")

	// task-specific env model
	result, err := f.router.Chat(context.Background(), ChatRequest{TaskAlias: "summary"})
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o-mini", result.Model)

	// unknown task falls to the default model
	result, err = f.router.Chat(context.Background(), ChatRequest{TaskAlias: "tags"})
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-3.5-turbo", result.Model)
}

func TestChatNoModelConfigured(t *testing.T) {
	f := newRouterFixture(t, EnvFallback{})

	_, err := f.router.Chat(context.Background(), ChatRequest{TaskAlias: "summary"})
	require.Error(t, err)
	assert.Empty(t, f.client.completions)
}

func TestStreamChatFallbackOnlyBeforeOutput(t *testing.T) {
	build := func(t *testing.T) *routerFixture {
		f := newRouterFixture(t, EnvFallback{})
		p := f.seedProvider(t, "openai", model.APITypeOpenAICompat)
		primary := f.seedModel(t, p.ID, "gpt-4o")
		fallback := f.seedModel(t, p.ID, "gpt-4o-mini")
		task := f.seedTask(t, "summary")
		f.seedSystemCredential(t, "openai")
		f.seedRouting(t, &model.TaskRouting{
			TaskTypeID:      task.ID,
			PrimaryModelID:  sql.NullInt64{Int64: primary.ID, Valid: true},
			FallbackModelID: sql.NullInt64{Int64: fallback.ID, Valid: true},
		})
		f.client.failFor["openai/gpt-4o"] = errors.New("stream broke")
		return f
	}

	t.Run("fails before any output, retries on fallback", func(t *testing.T) {
		f := build(t)
		var got string
		modelUsed, err := f.router.StreamChat(context.Background(), ChatRequest{TaskAlias: "summary"},
			func(text string) error {
				got += text
				return nil
			})
		require.NoError(t, err)
		assert.Equal(t, "openai/gpt-4o-mini", modelUsed)
		assert.Equal(t, "fake answer", got)
		assert.Len(t, f.client.streams, 2)
	})

	t.Run("fails mid-stream, surfaces as-is", func(t *testing.T) {
		f := build(t)
		f.client.emitBeforeFail = true
		var got string
		_, err := f.router.StreamChat(context.Background(), ChatRequest{TaskAlias: "summary"},
			func(text string) error {
				got += text
				return nil
			})
		require.Error(t, err)
		assert.Equal(t, "partial ", got)
		assert.Len(t, f.client.streams, 1)
	})
}

func TestStreamChatWithThinkDetection(t *testing.T) {
	f, _, _ := chatFixture(t)
	f.client.chunks = []string{"<think>reasoning", "</think>visible answer"}

	var events []string
	var visible string
	_, err := f.router.StreamChatWithThinkDetection(context.Background(),
		ChatRequest{TaskAlias: "summary"},
		func(ev api.StreamEvent) error {
			events = append(events, ev.Type)
			if ev.Type == "delta" && !ev.IsThink {
				visible += ev.Content
			}
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, "visible answer", visible)
	require.NotEmpty(t, events)
	assert.Equal(t, "done", events[len(events)-1])
	assert.NotContains(t, events, "error")
}

func TestMockClientSkippedForOverrides(t *testing.T) {
	f, _, _ := chatFixture(t)

	mock := newFakeClient()
	mock.text = "mock answer"
	f.router.EnableMock(mock)

	// routed dispatch answers from the mock
	result, err := f.router.Chat(context.Background(), ChatRequest{TaskAlias: "summary"})
	require.NoError(t, err)
	assert.Equal(t, "mock answer", result.Text)
	assert.Empty(t, f.client.completions)

	// explicit model override still hits the real client
	result, err = f.router.Chat(context.Background(), ChatRequest{
		TaskAlias: "summary",
		ModelID:   "gpt-4o",
	})
	require.NoError(t, err)
	assert.Equal(t, "fake answer", result.Text)
	assert.Len(t, f.client.completions, 1)
}

func TestResolveEffectiveModel(t *testing.T) {
	f, _, _ := chatFixture(t)

	got, err := f.router.ResolveEffectiveModel(context.Background(), "summary", nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o", got)

	got, err = f.router.ResolveEffectiveModel(context.Background(), "summary", nil, "gpt-4o", "openai")
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o", got)
}

func TestEmbed(t *testing.T) {
	f := newRouterFixture(t, EnvFallback{})
	p := f.seedProvider(t, "openai", model.APITypeOpenAICompat)
	m := f.seedModel(t, p.ID, "text-embedding-3-small")
	task := f.seedTask(t, "embedding")
	f.seedSystemCredential(t, "openai")
	f.seedRouting(t, &model.TaskRouting{
		TaskTypeID:     task.ID,
		PrimaryModelID: sql.NullInt64{Int64: m.ID, Valid: true},
	})

	vec, modelUsed, err := f.router.Embed(context.Background(), "some text", nil)
	require.NoError(t, err)
	assert.Equal(t, "openai/text-embedding-3-small", modelUsed)
	assert.Len(t, vec, 3)
}

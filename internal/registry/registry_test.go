package registry

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aetherblog/ai-service/internal/store"
	"github.com/aetherblog/ai-service/internal/store/model"
	"github.com/aetherblog/ai-service/internal/store/sqlite"
)

func newTestRegistry(t *testing.T) (*Registry, store.Repository) {
	t.Helper()
	repo, err := sqlite.NewSQLiteStorage("file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return New(repo), repo
}

func seedProvider(t *testing.T, r *Registry, code, apiType string) *model.Provider {
	t.Helper()
	p := &model.Provider{Code: code, Name: code, APIType: apiType, IsEnabled: true}
	require.NoError(t, r.CreateProvider(context.Background(), p))
	return p
}

func seedModel(t *testing.T, r *Registry, providerID int64, modelID string) *model.Model {
	t.Helper()
	m := &model.Model{ProviderID: providerID, ModelID: modelID, ModelType: model.ModelTypeChat, IsEnabled: true}
	require.NoError(t, r.CreateModel(context.Background(), m))
	return m
}

func TestGetProviderCachesLookups(t *testing.T) {
	r, _ := newTestRegistry(t)
	seedProvider(t, r, "openai", model.APITypeOpenAICompat)
	ctx := context.Background()

	first, err := r.GetProvider(ctx, "openai")
	require.NoError(t, err)

	// the second lookup is served from cache, same pointer
	second, err := r.GetProvider(ctx, "openai")
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = r.GetProvider(ctx, "missing")
	assert.Error(t, err)
}

func TestUpdateProviderInvalidatesCache(t *testing.T) {
	r, _ := newTestRegistry(t)
	p := seedProvider(t, r, "openai", model.APITypeOpenAICompat)
	ctx := context.Background()

	cached, err := r.GetProvider(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", cached.Name)

	p.Name = "OpenAI Inc"
	require.NoError(t, r.UpdateProvider(ctx, p))

	fresh, err := r.GetProvider(ctx, "openai")
	require.NoError(t, err)
	assert.Equal(t, "OpenAI Inc", fresh.Name)
}

func TestGetModelScopedByProvider(t *testing.T) {
	r, _ := newTestRegistry(t)
	openai := seedProvider(t, r, "openai", model.APITypeOpenAICompat)
	custom := seedProvider(t, r, "custom", model.APITypeCustom)
	seedModel(t, r, openai.ID, "gpt-4o")
	seedModel(t, r, custom.ID, "gpt-4o")
	ctx := context.Background()

	m, err := r.GetModel(ctx, "gpt-4o", "custom")
	require.NoError(t, err)
	assert.Equal(t, "custom", m.ProviderCode)
	assert.Equal(t, model.APITypeCustom, m.ProviderAPIType)

	_, err = r.GetModel(ctx, "gpt-4o", "missing-provider")
	assert.Error(t, err)
}

func TestBulkInsertModelsSkipsDuplicates(t *testing.T) {
	r, _ := newTestRegistry(t)
	p := seedProvider(t, r, "openai", model.APITypeOpenAICompat)
	seedModel(t, r, p.ID, "gpt-4o")
	ctx := context.Background()

	inserted, err := r.BulkInsertModels(ctx, []model.Model{
		{ProviderID: p.ID, ModelID: "gpt-4o", ModelType: model.ModelTypeChat},
		{ProviderID: p.ID, ModelID: "gpt-4o-mini", ModelType: model.ModelTypeChat},
		{ProviderID: p.ID, ModelID: "text-embedding-3-small", ModelType: model.ModelTypeEmbedding},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// running the same batch again inserts nothing
	inserted, err = r.BulkInsertModels(ctx, []model.Model{
		{ProviderID: p.ID, ModelID: "gpt-4o-mini", ModelType: model.ModelTypeChat},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)
}

func TestDeleteModelNullsRoutingRefs(t *testing.T) {
	r, repo := newTestRegistry(t)
	p := seedProvider(t, r, "openai", model.APITypeOpenAICompat)
	m := seedModel(t, r, p.ID, "gpt-4o")
	ctx := context.Background()

	task := &model.TaskType{Code: "summary", Name: "Summary"}
	require.NoError(t, repo.TaskTypes().Create(ctx, task))
	row := &model.TaskRouting{
		TaskTypeID:     task.ID,
		PrimaryModelID: sql.NullInt64{Int64: m.ID, Valid: true},
		IsEnabled:      true,
	}
	require.NoError(t, repo.Routing().Insert(ctx, row))

	require.NoError(t, r.DeleteModel(ctx, m.ID))

	got, err := repo.Routing().GetRow(ctx, nil, task.ID)
	require.NoError(t, err)
	assert.False(t, got.PrimaryModelID.Valid, "routing reference was nulled, not orphaned")

	_, err = r.GetModel(ctx, "gpt-4o", "openai")
	assert.Error(t, err)
}

func TestDeleteProviderCleansUp(t *testing.T) {
	r, repo := newTestRegistry(t)
	p := seedProvider(t, r, "openai", model.APITypeOpenAICompat)
	seedModel(t, r, p.ID, "gpt-4o")
	ctx := context.Background()

	require.NoError(t, r.DeleteProvider(ctx, p.ID))

	_, err := r.GetProvider(ctx, "openai")
	assert.Error(t, err)

	models, err := repo.Models().List(ctx, store.ListModelsParams{ProviderCode: "openai"})
	require.NoError(t, err)
	assert.Empty(t, models)
}

func TestListModelsFiltersByType(t *testing.T) {
	r, _ := newTestRegistry(t)
	p := seedProvider(t, r, "openai", model.APITypeOpenAICompat)
	ctx := context.Background()

	for id, typ := range map[string]string{
		"gpt-4o":    model.ModelTypeChat,
		"sora-2":    model.ModelTypeVideo,
		"music-gen": model.ModelTypeMusic,
		"whisper-1": model.ModelTypeSTT,
	} {
		m := &model.Model{ProviderID: p.ID, ModelID: id, ModelType: typ, IsEnabled: true}
		require.NoError(t, r.CreateModel(ctx, m))
	}

	models, err := r.ListModels(ctx, store.ListModelsParams{ModelType: model.ModelTypeVideo})
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "sora-2", models[0].ModelID)

	models, err = r.ListModels(ctx, store.ListModelsParams{ModelType: model.ModelTypeMusic})
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "music-gen", models[0].ModelID)
}

func TestBatchToggleModels(t *testing.T) {
	r, _ := newTestRegistry(t)
	p := seedProvider(t, r, "openai", model.APITypeOpenAICompat)
	a := seedModel(t, r, p.ID, "gpt-4o")
	b := seedModel(t, r, p.ID, "gpt-4o-mini")
	ctx := context.Background()

	require.NoError(t, r.BatchToggleModels(ctx, []int64{a.ID, b.ID}, false))

	models, err := r.ListModels(ctx, store.ListModelsParams{EnabledOnly: true})
	require.NoError(t, err)
	assert.Empty(t, models)
}

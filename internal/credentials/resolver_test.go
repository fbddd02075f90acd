package credentials

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

func newTestRepo(t *testing.T) store.Repository {
	t.Helper()
	repo, err := sqlite.NewSQLiteStorage("file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedProvider(t *testing.T, repo store.Repository, code, apiType string) *model.Provider {
	t.Helper()
	p := &model.Provider{
		Code:      code,
		Name:      code,
		APIType:   apiType,
		BaseURL:   sql.NullString{String: "https://api.example.com", Valid: true},
		IsEnabled: true,
	}
	require.NoError(t, repo.Providers().Create(context.Background(), p))
	return p
}

func newTestResolver(t *testing.T, repo store.Repository, env []EnvCredential) *Resolver {
	t.Helper()
	cipher, err := NewCipher("test-secret")
	require.NoError(t, err)
	return NewResolver(repo, cipher, env)
}

func TestResolverSaveAndGetExplicit(t *testing.T) {
	repo := newTestRepo(t)
	seedProvider(t, repo, "openai", model.APITypeOpenAICompat)
	r := newTestResolver(t, repo, nil)
	ctx := context.Background()

	userID := int64(7)
	cred, err := r.Save(ctx, &userID, "openai", "sk-live-abcdef123456", "", true)
	require.NoError(t, err)
	assert.Equal(t, "sk-...456", cred.APIKeyHint)
	assert.NotEqual(t, "sk-live-abcdef123456", cred.APIKeyEncrypted)

	resolved, err := r.Get(ctx, "openai", &userID, &cred.ID)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "sk-live-abcdef123456", resolved.APIKey)
	assert.Equal(t, "explicit", resolved.Source)
	assert.Equal(t, "https://api.example.com/v1", resolved.BaseURL)
}

func TestResolverExplicitMissing(t *testing.T) {
	repo := newTestRepo(t)
	seedProvider(t, repo, "openai", model.APITypeOpenAICompat)
	r := newTestResolver(t, repo, nil)

	missing := int64(999)
	_, err := r.Get(context.Background(), "openai", nil, &missing)
	assert.Error(t, err)
}

func TestResolverUserBeatsSystem(t *testing.T) {
	repo := newTestRepo(t)
	seedProvider(t, repo, "openai", model.APITypeOpenAICompat)
	r := newTestResolver(t, repo, nil)
	ctx := context.Background()

	_, err := r.Save(ctx, nil, "openai", "sk-system-key-000001", "", true)
	require.NoError(t, err)

	userID := int64(42)
	_, err = r.Save(ctx, &userID, "openai", "sk-user-key-00000001", "", false)
	require.NoError(t, err)

	resolved, err := r.Get(ctx, "openai", &userID, nil)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "user", resolved.Source)
	assert.Equal(t, "sk-user-key-00000001", resolved.APIKey)

	// A different user falls through to the system credential
	otherID := int64(99)
	resolved, err = r.Get(ctx, "openai", &otherID, nil)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "system", resolved.Source)
	assert.Equal(t, "sk-system-key-000001", resolved.APIKey)
}

func TestResolverEnvFallback(t *testing.T) {
	repo := newTestRepo(t)
	seedProvider(t, repo, "openai", model.APITypeOpenAICompat)
	r := newTestResolver(t, repo, []EnvCredential{
		{ProviderCode: "openai", APIKey: "sk-env-key", BaseURL: "https://proxy.internal"},
	})

	resolved, err := r.Get(context.Background(), "openai", nil, nil)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "env", resolved.Source)
	assert.Equal(t, "sk-env-key", resolved.APIKey)
	assert.Equal(t, "https://proxy.internal/v1", resolved.BaseURL)
	assert.Nil(t, resolved.CredentialID)
}

func TestResolverNothingMatches(t *testing.T) {
	repo := newTestRepo(t)
	seedProvider(t, repo, "openai", model.APITypeOpenAICompat)
	r := newTestResolver(t, repo, nil)

	resolved, err := r.Get(context.Background(), "openai", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestResolverDefaultIsExclusive(t *testing.T) {
	repo := newTestRepo(t)
	seedProvider(t, repo, "openai", model.APITypeOpenAICompat)
	r := newTestResolver(t, repo, nil)
	ctx := context.Background()

	userID := int64(1)
	first, err := r.Save(ctx, &userID, "openai", "sk-first-key-0000001", "", true)
	require.NoError(t, err)
	second, err := r.Save(ctx, &userID, "openai", "sk-second-key-000001", "", true)
	require.NoError(t, err)

	creds, err := r.List(ctx, &userID)
	require.NoError(t, err)
	require.Len(t, creds, 2)

	for _, c := range creds {
		switch c.ID {
		case first.ID:
			assert.False(t, c.IsDefault)
		case second.ID:
			assert.True(t, c.IsDefault)
		}
	}
}

func TestResolverCredentialBaseURLOverride(t *testing.T) {
	repo := newTestRepo(t)
	seedProvider(t, repo, "custom", model.APITypeCustom)
	r := newTestResolver(t, repo, nil)
	ctx := context.Background()

	userID := int64(3)
	cred, err := r.Save(ctx, &userID, "custom", "sk-custom-key-000001", "https://my-gateway.local/api", false)
	require.NoError(t, err)

	resolved, err := r.Get(ctx, "custom", &userID, &cred.ID)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, "https://my-gateway.local/api", resolved.BaseURL)
}

func TestResolverMarkUsed(t *testing.T) {
	repo := newTestRepo(t)
	seedProvider(t, repo, "openai", model.APITypeOpenAICompat)
	r := newTestResolver(t, repo, nil)
	ctx := context.Background()

	userID := int64(5)
	cred, err := r.Save(ctx, &userID, "openai", "sk-mark-used-0000001", "", false)
	require.NoError(t, err)

	r.MarkUsed(ctx, &cred.ID, assert.AnError)

	creds, err := r.List(ctx, &userID)
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.True(t, creds[0].LastUsedAt.Valid)
	assert.Equal(t, assert.AnError.Error(), creds[0].LastError.String)

	// A successful call clears the stored error
	r.MarkUsed(ctx, &cred.ID, nil)
	creds, err = r.List(ctx, &userID)
	require.NoError(t, err)
	assert.False(t, creds[0].LastError.Valid)
}

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aetherblog/ai-service/internal/cache"
	"github.com/aetherblog/ai-service/internal/config"
	"github.com/aetherblog/ai-service/internal/credentials"
	"github.com/aetherblog/ai-service/internal/llm"
	"github.com/aetherblog/ai-service/internal/metrics"
	"github.com/aetherblog/ai-service/internal/registry"
	"github.com/aetherblog/ai-service/internal/routing"
	"github.com/aetherblog/ai-service/internal/store/sqlite"
	"github.com/aetherblog/ai-service/internal/usage"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()

	repo, err := sqlite.NewSQLiteStorage("file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	cipher, err := credentials.NewCipher(testSecret)
	require.NoError(t, err)
	resolver := credentials.NewResolver(repo, cipher, []credentials.EnvCredential{
		{ProviderCode: "openai", APIKey: "sk-test", BaseURL: "https://api.openai.com"},
	})

	reg := registry.New(repo)
	metricsStore := metrics.NewStore(10, 50)
	usageLog := usage.NewLogger(repo, metricsStore)

	router := llm.NewRouter(reg, routing.NewRouter(repo), resolver, llm.NewUpstreamClient(nil),
		llm.EnvFallback{
			DefaultProvider: "openai",
			DefaultModel:    "gpt-4o-mini",
		})
	router.EnableMock(llm.NewMockClient())

	cfg := &config.Config{}
	cfg.Server.Env = "test"
	cfg.Auth.JWTSecret = testSecret
	cfg.RateLimit.RequestsPerSecond = 1000
	cfg.RateLimit.Burst = 1000
	cfg.AI.MaxInputChars = 500

	return New(Deps{
		Config:   cfg,
		Logger:   zap.NewNop(),
		Repo:     repo,
		Registry: reg,
		Syncer:   registry.NewSyncer(reg, resolver, nil),
		Resolver: resolver,
		Routing:  routing.NewRouter(repo),
		LLM:      router,
		Usage:    usageLog,
		Metrics:  metricsStore,
		Cache:    cache.NewMemoryCache(),
		Version:  "test",
	})
}

func doJSON(t *testing.T, s *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

type taskEnvelope struct {
	Code int `json:"code"`
	Data struct {
		Summary    string `json:"summary"`
		Model      string `json:"model"`
		TokensUsed int    `json:"tokensUsed"`
		Cached     bool   `json:"cached"`
	} `json:"data"`
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status"`)
}

func TestSummaryEndToEnd(t *testing.T) {
	s := newTestServer(t)
	body := map[string]interface{}{"content": "A blog post about Go testing."}

	w := doJSON(t, s, http.MethodPost, "/api/v1/ai/summary", "", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env taskEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, 0, env.Code)
	assert.Equal(t, "[mock:openai/gpt-4o-mini]", env.Data.Summary)
	assert.False(t, env.Data.Cached)
	// the cached flag is always on the wire, even when false
	assert.Contains(t, w.Body.String(), `"cached":false`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	// the identical request is served from cache
	w = doJSON(t, s, http.MethodPost, "/api/v1/ai/summary", "", body)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Data.Cached)

	// different content misses the cache
	w = doJSON(t, s, http.MethodPost, "/api/v1/ai/summary", "",
		map[string]interface{}{"content": "A different post."})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(t, env.Data.Cached)
}

func TestSummaryInputTooLarge(t *testing.T) {
	s := newTestServer(t)

	big := make([]byte, 600)
	for i := range big {
		big[i] = 'x'
	}
	w := doJSON(t, s, http.MethodPost, "/api/v1/ai/summary", "",
		map[string]interface{}{"content": string(big)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestSummaryValidation(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/ai/summary", "", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEmbeddingEndToEnd(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/ai/embedding", "",
		map[string]interface{}{"text": "embed me"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env struct {
		Data struct {
			Embedding []float64 `json:"embedding"`
			Dimension int       `json:"dimension"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, 256, env.Data.Dimension)
	assert.Len(t, env.Data.Embedding, 256)
}

func TestUserRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/v1/credentials", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := signToken(t, jwt.MapClaims{"user_id": float64(7)})
	w = doJSON(t, s, http.MethodGet, "/api/v1/credentials", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRoutesRequireRole(t *testing.T) {
	s := newTestServer(t)

	userToken := signToken(t, jwt.MapClaims{"user_id": float64(7)})
	w := doJSON(t, s, http.MethodGet, "/api/v1/admin/metrics", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken := signToken(t, jwt.MapClaims{"user_id": float64(1), "role": "admin"})
	w = doJSON(t, s, http.MethodGet, "/api/v1/admin/metrics", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInvalidTokenRejected(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/ai/summary", "garbage.token.here",
		map[string]interface{}{"content": "hi"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStreamingSummary(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/ai/summary/stream", "",
		map[string]interface{}{"content": "A blog post."})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := w.Body.String()
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")
	assert.Contains(t, body, `"type":"delta"`)
	assert.Contains(t, body, `"type":"done"`)
}

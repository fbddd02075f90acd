package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aetherblog/ai-service/internal/credentials"
	"github.com/aetherblog/ai-service/internal/server/middleware"
	"github.com/aetherblog/ai-service/internal/store/model"
	"github.com/aetherblog/ai-service/pkg/api"
)

// CredentialHandler manages stored API keys. The user routes operate on
// the caller's own credentials; the system variants (admin only) operate
// on the shared null-user pool.
type CredentialHandler struct {
	resolver *credentials.Resolver
	system   bool
}

func NewCredentialHandler(resolver *credentials.Resolver) *CredentialHandler {
	return &CredentialHandler{resolver: resolver}
}

// System returns a view of the handler scoped to system credentials.
func (h *CredentialHandler) System() *CredentialHandler {
	return &CredentialHandler{resolver: h.resolver, system: true}
}

func (h *CredentialHandler) owner(c *gin.Context) *int64 {
	if h.system {
		return nil
	}
	return middleware.UserID(c)
}

func (h *CredentialHandler) Create(c *gin.Context) {
	var req api.CredentialRequest
	if !bind(c, &req) {
		return
	}

	cred, err := h.resolver.Save(c.Request.Context(), h.owner(c),
		req.ProviderCode, req.APIKey, req.BaseURL, req.IsDefault)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, api.OK(toCredentialResponse(cred)))
}

func (h *CredentialHandler) List(c *gin.Context) {
	creds, err := h.resolver.List(c.Request.Context(), h.owner(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	out := make([]api.CredentialResponse, 0, len(creds))
	for i := range creds {
		out = append(out, toCredentialResponse(&creds[i]))
	}
	c.JSON(http.StatusOK, api.OK(out))
}

func (h *CredentialHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.resolver.Delete(c.Request.Context(), id, h.owner(c)); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, api.OK(nil))
}

func toCredentialResponse(cred *model.Credential) api.CredentialResponse {
	resp := api.CredentialResponse{
		ID:           cred.ID,
		ProviderCode: cred.ProviderCode,
		APIKeyHint:   cred.APIKeyHint,
		BaseURL:      cred.BaseURL.String,
		IsDefault:    cred.IsDefault,
		LastError:    cred.LastError.String,
	}
	if cred.LastUsedAt.Valid {
		resp.LastUsedAt = cred.LastUsedAt.Time.UTC().Format("2006-01-02T15:04:05Z")
	}
	return resp
}

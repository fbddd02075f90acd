package v1

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aetherblog/ai-service/internal/registry"
	"github.com/aetherblog/ai-service/internal/store"
	"github.com/aetherblog/ai-service/internal/store/model"
	"github.com/aetherblog/ai-service/pkg/api"
)

// AdminHandler manages the provider/model catalog.
type AdminHandler struct {
	registry *registry.Registry
	syncer   *registry.Syncer
}

func NewAdminHandler(reg *registry.Registry, syncer *registry.Syncer) *AdminHandler {
	return &AdminHandler{registry: reg, syncer: syncer}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		_ = c.Error(api.BadRequestError("invalid id in path"))
		return 0, false
	}
	return id, true
}

// --- providers ---

func (h *AdminHandler) ListProviders(c *gin.Context) {
	enabledOnly := c.Query("enabled") == "true"
	providers, err := h.registry.ListProviders(c.Request.Context(), enabledOnly)
	if err != nil {
		_ = c.Error(err)
		return
	}

	out := make([]api.ProviderResponse, 0, len(providers))
	for i := range providers {
		out = append(out, toProviderResponse(&providers[i]))
	}
	c.JSON(http.StatusOK, api.OK(out))
}

func (h *AdminHandler) CreateProvider(c *gin.Context) {
	var req api.ProviderRequest
	if !bind(c, &req) {
		return
	}

	p := providerFromRequest(&req)
	if err := h.registry.CreateProvider(c.Request.Context(), p); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, api.OK(toProviderResponse(p)))
}

func (h *AdminHandler) UpdateProvider(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req api.ProviderRequest
	if !bind(c, &req) {
		return
	}

	p := providerFromRequest(&req)
	p.ID = id
	if err := h.registry.UpdateProvider(c.Request.Context(), p); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, api.OK(toProviderResponse(p)))
}

func (h *AdminHandler) DeleteProvider(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.registry.DeleteProvider(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, api.OK(nil))
}

// SyncModels pulls the provider's remote model listing and imports new
// entries, disabled, for an admin to review.
func (h *AdminHandler) SyncModels(c *gin.Context) {
	var req api.SyncModelsRequest
	if !bind(c, &req) {
		return
	}

	fetched, inserted, err := h.syncer.Sync(c.Request.Context(), req.ProviderCode)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, api.OK(api.SyncModelsResponse{
		ProviderCode: req.ProviderCode,
		Fetched:      fetched,
		Inserted:     inserted,
	}))
}

// --- models ---

func (h *AdminHandler) ListModels(c *gin.Context) {
	params := store.ListModelsParams{
		ProviderCode: c.Query("provider"),
		ModelType:    c.Query("type"),
		EnabledOnly:  c.Query("enabled") == "true",
	}
	models, err := h.registry.ListModels(c.Request.Context(), params)
	if err != nil {
		_ = c.Error(err)
		return
	}

	out := make([]api.ModelResponse, 0, len(models))
	for i := range models {
		out = append(out, toModelResponse(&models[i]))
	}
	c.JSON(http.StatusOK, api.OK(out))
}

func (h *AdminHandler) CreateModel(c *gin.Context) {
	providerID, ok := pathID(c)
	if !ok {
		return
	}
	var req api.ModelRequest
	if !bind(c, &req) {
		return
	}

	m := modelFromRequest(&req)
	m.ProviderID = providerID
	if err := h.registry.CreateModel(c.Request.Context(), m); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, api.OK(toModelResponse(m)))
}

func (h *AdminHandler) UpdateModel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req api.ModelRequest
	if !bind(c, &req) {
		return
	}

	existing, err := h.registry.GetModelByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	m := modelFromRequest(&req)
	m.ID = existing.ID
	m.ProviderID = existing.ProviderID
	if err := h.registry.UpdateModel(c.Request.Context(), m); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, api.OK(toModelResponse(m)))
}

func (h *AdminHandler) DeleteModel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.registry.DeleteModel(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, api.OK(nil))
}

func (h *AdminHandler) BatchToggleModels(c *gin.Context) {
	var req api.BatchToggleRequest
	if !bind(c, &req) {
		return
	}
	if err := h.registry.BatchToggleModels(c.Request.Context(), req.IDs, req.Enabled); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, api.OK(gin.H{"updated": len(req.IDs)}))
}

func (h *AdminHandler) UpdateModelsSort(c *gin.Context) {
	var req api.SortUpdateRequest
	if !bind(c, &req) {
		return
	}

	items := make([]registry.SortItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, registry.SortItem{ID: it.ID, Sort: it.Sort})
	}
	if err := h.registry.UpdateModelsSort(c.Request.Context(), items); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, api.OK(gin.H{"updated": len(items)}))
}

// --- converters ---

func providerFromRequest(req *api.ProviderRequest) *model.Provider {
	p := &model.Provider{
		Code:         req.Code,
		Name:         req.Name,
		APIType:      req.APIType,
		IsEnabled:    true,
		Priority:     req.Priority,
		Capabilities: model.JSONMap(req.Capabilities),
		ConfigSchema: model.JSONMap(req.ConfigSchema),
	}
	if req.BaseURL != "" {
		p.BaseURL = sql.NullString{String: req.BaseURL, Valid: true}
	}
	if req.IsEnabled != nil {
		p.IsEnabled = *req.IsEnabled
	}
	return p
}

func modelFromRequest(req *api.ModelRequest) *model.Model {
	m := &model.Model{
		ModelID:      req.ModelID,
		ModelType:    req.ModelType,
		IsEnabled:    true,
		Capabilities: model.JSONMap(req.Capabilities),
	}
	if m.ModelType == "" {
		m.ModelType = registry.InferModelType(req.ModelID)
	}
	if req.Name != "" {
		m.Name = sql.NullString{String: req.Name, Valid: true}
	}
	if req.ContextWindow != nil {
		m.ContextWindow = sql.NullInt64{Int64: int64(*req.ContextWindow), Valid: true}
	}
	if req.MaxTokens != nil {
		m.MaxTokens = sql.NullInt64{Int64: int64(*req.MaxTokens), Valid: true}
	}
	if req.InputCost != nil {
		m.InputCost = sql.NullFloat64{Float64: *req.InputCost, Valid: true}
	}
	if req.OutputCost != nil {
		m.OutputCost = sql.NullFloat64{Float64: *req.OutputCost, Valid: true}
	}
	if req.IsEnabled != nil {
		m.IsEnabled = *req.IsEnabled
	}
	return m
}

func toProviderResponse(p *model.Provider) api.ProviderResponse {
	return api.ProviderResponse{
		ID:           p.ID,
		Code:         p.Code,
		Name:         p.Name,
		APIType:      p.APIType,
		BaseURL:      p.BaseURL.String,
		IsEnabled:    p.IsEnabled,
		Priority:     p.Priority,
		Capabilities: p.Capabilities,
	}
}

func toModelResponse(m *model.Model) api.ModelResponse {
	resp := api.ModelResponse{
		ID:           m.ID,
		ProviderID:   m.ProviderID,
		ProviderCode: m.ProviderCode,
		ModelID:      m.ModelID,
		Name:         m.Name.String,
		ModelType:    m.ModelType,
		Capabilities: m.Capabilities,
		IsEnabled:    m.IsEnabled,
	}
	if m.ContextWindow.Valid {
		v := int(m.ContextWindow.Int64)
		resp.ContextWindow = &v
	}
	if m.MaxTokens.Valid {
		v := int(m.MaxTokens.Int64)
		resp.MaxTokens = &v
	}
	if m.InputCost.Valid {
		v := m.InputCost.Float64
		resp.InputCost = &v
	}
	if m.OutputCost.Valid {
		v := m.OutputCost.Float64
		resp.OutputCost = &v
	}
	return resp
}

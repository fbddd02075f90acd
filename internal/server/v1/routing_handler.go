package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aetherblog/ai-service/internal/llm"
	"github.com/aetherblog/ai-service/internal/routing"
	"github.com/aetherblog/ai-service/internal/server/middleware"
	"github.com/aetherblog/ai-service/internal/store/model"
	"github.com/aetherblog/ai-service/pkg/api"
)

// RoutingHandler manages task routing rows. The user routes touch the
// caller's own rows; the system variant (admin only) the null-user rows
// every user inherits.
type RoutingHandler struct {
	routing *routing.Router
	llm     *llm.Router
	system  bool
}

func NewRoutingHandler(router *routing.Router, llmRouter *llm.Router) *RoutingHandler {
	return &RoutingHandler{routing: router, llm: llmRouter}
}

func (h *RoutingHandler) System() *RoutingHandler {
	return &RoutingHandler{routing: h.routing, llm: h.llm, system: true}
}

func (h *RoutingHandler) owner(c *gin.Context) *int64 {
	if h.system {
		return nil
	}
	return middleware.UserID(c)
}

func (h *RoutingHandler) ListTaskTypes(c *gin.Context) {
	types, err := h.routing.ListTaskTypes(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	out := make([]api.TaskTypeResponse, 0, len(types))
	for i := range types {
		out = append(out, toTaskTypeResponse(&types[i]))
	}
	c.JSON(http.StatusOK, api.OK(out))
}

// Update upserts the routing row for one task. Absent fields keep their
// stored value; explicit nulls clear it.
func (h *RoutingHandler) Update(c *gin.Context) {
	var req api.RoutingUpdateRequest
	if !bind(c, &req) {
		return
	}

	row, err := h.routing.Update(c.Request.Context(), routing.UpdateParams{
		TaskType:        req.TaskType,
		UserID:          h.owner(c),
		PrimaryModelID:  req.PrimaryModelID.Value,
		UpdatePrimary:   req.PrimaryModelID.Set,
		FallbackModelID: req.FallbackModelID.Value,
		UpdateFallback:  req.FallbackModelID.Set,
		CredentialID:    req.CredentialID.Value,
		UpdateCred:      req.CredentialID.Set,
		ConfigOverride:  model.JSONMap(req.ConfigOverride.Value),
		UpdateConfig:    req.ConfigOverride.Set,
		PromptTemplate:  req.PromptTemplate.Value,
		UpdatePrompt:    req.PromptTemplate.Set,
		IsEnabled:       req.IsEnabled,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, api.OK(row))
}

// EffectiveModel reports which model a dispatch for the given task would
// hit for this caller, without calling upstream.
func (h *RoutingHandler) EffectiveModel(c *gin.Context) {
	task := c.Query("task")
	if task == "" {
		_ = c.Error(api.BadRequestError("query parameter 'task' is required"))
		return
	}

	resolved, err := h.llm.ResolveEffectiveModel(c.Request.Context(), task,
		middleware.UserID(c), c.Query("modelId"), c.Query("providerCode"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, api.OK(gin.H{"task": task, "model": resolved}))
}

func toTaskTypeResponse(t *model.TaskType) api.TaskTypeResponse {
	resp := api.TaskTypeResponse{
		ID:             t.ID,
		Code:           t.Code,
		Name:           t.Name,
		DefaultModel:   t.DefaultModel.String,
		PromptTemplate: t.PromptTemplate.String,
	}
	if t.DefaultTemperature.Valid {
		v := t.DefaultTemperature.Float64
		resp.DefaultTemperature = &v
	}
	if t.DefaultMaxTokens.Valid {
		v := int(t.DefaultMaxTokens.Int64)
		resp.DefaultMaxTokens = &v
	}
	return resp
}

package v1

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aetherblog/ai-service/internal/metrics"
	"github.com/aetherblog/ai-service/internal/store"
	"github.com/aetherblog/ai-service/pkg/api"
)

// MetricsHandler exposes the in-process counters and recent usage rows.
type MetricsHandler struct {
	metrics *metrics.Store
	repo    store.Repository
}

func NewMetricsHandler(m *metrics.Store, repo store.Repository) *MetricsHandler {
	return &MetricsHandler{metrics: m, repo: repo}
}

func (h *MetricsHandler) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, api.OK(h.metrics.Snapshot()))
}

// DailyUsage returns the per-day usage overview for the last N days.
func (h *MetricsHandler) DailyUsage(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days <= 0 || days > 365 {
		days = 7
	}

	stats, err := h.repo.Usage().Daily(c.Request.Context(), days)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, api.OK(stats))
}

// RecentUsage returns the latest usage-audit rows, newest first.
func (h *MetricsHandler) RecentUsage(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := h.repo.Usage().Recent(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, api.OK(rows))
}

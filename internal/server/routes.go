package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aetherblog/ai-service/internal/server/middleware"
	v1 "github.com/aetherblog/ai-service/internal/server/v1"
)

func (s *Server) SetupRoutes() {
	healthHandler := v1.NewHealthHandler(s.deps.Version)
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	aiHandler := v1.NewAIHandler(s.deps.LLM, s.deps.Usage, s.deps.Metrics,
		s.deps.Cache, s.deps.Registry, s.deps.Config.AI.MaxInputChars)
	credHandler := v1.NewCredentialHandler(s.deps.Resolver)
	routingHandler := v1.NewRoutingHandler(s.deps.Routing, s.deps.LLM)
	adminHandler := v1.NewAdminHandler(s.deps.Registry, s.deps.Syncer)
	metricsHandler := v1.NewMetricsHandler(s.deps.Metrics, s.deps.Repo)

	api := s.router.Group("/api/v1")
	api.Use(middleware.Identity(s.deps.Config.Auth.JWTSecret))

	limiter := middleware.NewRateLimiter(
		s.deps.Config.RateLimit.RequestsPerSecond,
		s.deps.Config.RateLimit.Burst)

	ai := api.Group("/ai")
	ai.Use(limiter.Middleware())
	{
		ai.POST("/summary", aiHandler.Summary)
		ai.POST("/summary/stream", aiHandler.SummaryStream)
		ai.POST("/tags", aiHandler.Tags)
		ai.POST("/tags/stream", aiHandler.TagsStream)
		ai.POST("/titles", aiHandler.Titles)
		ai.POST("/titles/stream", aiHandler.TitlesStream)
		ai.POST("/polish", aiHandler.Polish)
		ai.POST("/polish/stream", aiHandler.PolishStream)
		ai.POST("/outline", aiHandler.Outline)
		ai.POST("/outline/stream", aiHandler.OutlineStream)
		ai.POST("/translate", aiHandler.Translate)
		ai.POST("/translate/stream", aiHandler.TranslateStream)
		ai.POST("/embedding", aiHandler.Embedding)
	}

	// Per-user credential and routing management
	user := api.Group("")
	user.Use(middleware.RequireUser())
	{
		user.GET("/credentials", credHandler.List)
		user.POST("/credentials", credHandler.Create)
		user.DELETE("/credentials/:id", credHandler.Delete)

		user.GET("/tasks", routingHandler.ListTaskTypes)
		user.PUT("/routing", routingHandler.Update)
		user.GET("/routing/effective", routingHandler.EffectiveModel)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/providers", adminHandler.ListProviders)
		admin.POST("/providers", adminHandler.CreateProvider)
		admin.PUT("/providers/:id", adminHandler.UpdateProvider)
		admin.DELETE("/providers/:id", adminHandler.DeleteProvider)
		admin.POST("/providers/:id/models", adminHandler.CreateModel)
		admin.POST("/providers/sync", adminHandler.SyncModels)

		admin.GET("/models", adminHandler.ListModels)
		admin.PUT("/models/:id", adminHandler.UpdateModel)
		admin.DELETE("/models/:id", adminHandler.DeleteModel)
		admin.POST("/models/batch-toggle", adminHandler.BatchToggleModels)
		admin.PUT("/models/sort", adminHandler.UpdateModelsSort)

		systemCreds := credHandler.System()
		admin.GET("/credentials", systemCreds.List)
		admin.POST("/credentials", systemCreds.Create)
		admin.DELETE("/credentials/:id", systemCreds.Delete)

		admin.PUT("/routing", routingHandler.System().Update)

		admin.GET("/metrics", metricsHandler.Snapshot)
		admin.GET("/usage/recent", metricsHandler.RecentUsage)
		admin.GET("/usage/daily", metricsHandler.DailyUsage)
	}
}

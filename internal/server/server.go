package server

import (
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aetherblog/ai-service/internal/cache"
	"github.com/aetherblog/ai-service/internal/config"
	"github.com/aetherblog/ai-service/internal/credentials"
	"github.com/aetherblog/ai-service/internal/llm"
	"github.com/aetherblog/ai-service/internal/metrics"
	"github.com/aetherblog/ai-service/internal/registry"
	"github.com/aetherblog/ai-service/internal/routing"
	"github.com/aetherblog/ai-service/internal/server/middleware"
	"github.com/aetherblog/ai-service/internal/server/validator"
	"github.com/aetherblog/ai-service/internal/store"
	"github.com/aetherblog/ai-service/internal/usage"
)

// Deps are the wired components the HTTP layer serves. Everything is
// constructed in main and passed in; the server owns no state of its own.
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Repo     store.Repository
	Registry *registry.Registry
	Syncer   *registry.Syncer
	Resolver *credentials.Resolver
	Routing  *routing.Router
	LLM      *llm.Router
	Usage    *usage.Logger
	Metrics  *metrics.Store
	Cache    cache.CacheService
	Version  string
}

type Server struct {
	router *gin.Engine
	deps   Deps
	logger *zap.Logger
}

func New(deps Deps) *Server {
	if deps.Config.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	validator.InitValidator()

	engine := gin.New()
	engine.Use(ginzap.RecoveryWithZap(deps.Logger, true))
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.Logger(deps.Logger))
	engine.Use(middleware.CORS())
	if deps.Config.Tracing.Enabled {
		engine.Use(middleware.Tracing("ai-service"))
	}
	engine.Use(middleware.ErrorHandler())

	s := &Server{
		router: engine,
		deps:   deps,
		logger: deps.Logger,
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

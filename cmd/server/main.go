package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/aetherblog/ai-service/cmd"
	"github.com/aetherblog/ai-service/internal/cache"
	"github.com/aetherblog/ai-service/internal/config"
	"github.com/aetherblog/ai-service/internal/credentials"
	"github.com/aetherblog/ai-service/internal/llm"
	"github.com/aetherblog/ai-service/internal/metrics"
	"github.com/aetherblog/ai-service/internal/platform/logger"
	"github.com/aetherblog/ai-service/internal/platform/otel"
	"github.com/aetherblog/ai-service/internal/registry"
	"github.com/aetherblog/ai-service/internal/routing"
	"github.com/aetherblog/ai-service/internal/server"
	"github.com/aetherblog/ai-service/internal/store/sqlite"
	"github.com/aetherblog/ai-service/internal/usage"
)

func main() {
	logger.Initialize(logger.DefaultConfig())
	defer logger.Sync()
	log := logger.Get()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set; it signs tokens and derives the credential encryption key")
	}

	go cmd.CheckForUpdates()

	repo, err := sqlite.NewSQLiteStorage(cfg.Database.DSN)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer func() {
		_ = repo.Close()
	}()

	if cfg.Tracing.Enabled {
		shutdown, err := otel.InitTracer("ai-service", log, os.Stdout)
		if err != nil {
			log.Fatal("failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	cipher, err := credentials.NewCipher(cfg.Auth.JWTSecret)
	if err != nil {
		log.Fatal("failed to initialize credential cipher", zap.Error(err))
	}

	envCreds := make([]credentials.EnvCredential, 0, len(cfg.EnvCredentials))
	for _, c := range cfg.EnvCredentials {
		envCreds = append(envCreds, credentials.EnvCredential{
			ProviderCode: c.ProviderCode,
			APIKey:       c.APIKey,
			BaseURL:      c.BaseURL,
		})
	}

	resolver := credentials.NewResolver(repo, cipher, envCreds)
	reg := registry.New(repo)
	syncer := registry.NewSyncer(reg, resolver, nil)
	taskRouter := routing.NewRouter(repo)
	metricsStore := metrics.NewStore(cfg.Metrics.AlertThreshold, cfg.Metrics.SampleLimit)
	usageLogger := usage.NewLogger(repo, metricsStore)

	llmRouter := llm.NewRouter(reg, taskRouter, resolver, llm.NewUpstreamClient(nil), llm.EnvFallback{
		DefaultProvider: cfg.AI.DefaultProvider,
		Models:          cfg.AI.TaskModels,
		DefaultModel:    cfg.AI.DefaultModel,
	})
	if cfg.AI.MockMode {
		log.Warn("mock mode enabled, upstream calls are stubbed")
		llmRouter.EnableMock(llm.NewMockClient())
	}

	var cacheSvc cache.CacheService
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(context.Background(), cfg.Redis.URL)
		if err != nil {
			log.Warn("redis unavailable, using in-memory cache", zap.Error(err))
			cacheSvc = cache.NewMemoryCache()
		} else {
			defer redisCache.Close()
			cacheSvc = redisCache
		}
	} else {
		cacheSvc = cache.NewMemoryCache()
	}

	srv := server.New(server.Deps{
		Config:   cfg,
		Logger:   log,
		Repo:     repo,
		Registry: reg,
		Syncer:   syncer,
		Resolver: resolver,
		Routing:  taskRouter,
		LLM:      llmRouter,
		Usage:    usageLogger,
		Metrics:  metricsStore,
		Cache:    cacheSvc,
		Version:  cmd.AppVersion,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting ai-service",
			zap.String("port", cfg.Server.Port),
			zap.String("env", cfg.Server.Env),
			zap.String("version", cmd.AppVersion))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/culture-compass/backend/internal/affinity"
	"github.com/culture-compass/backend/internal/api"
	"github.com/culture-compass/backend/internal/cache/redis"
	"github.com/culture-compass/backend/internal/insights"
	"github.com/culture-compass/backend/internal/llm"
	"github.com/culture-compass/backend/internal/metrics"
	"github.com/culture-compass/backend/internal/narrative"
	"github.com/culture-compass/backend/internal/recommend"
	"github.com/culture-compass/backend/internal/storage"
	"github.com/culture-compass/backend/internal/storage/memory"
	"github.com/culture-compass/backend/internal/storage/sqlite"
	"github.com/culture-compass/backend/internal/tastegraph"
	"github.com/culture-compass/backend/pkg/config"
	appLogger "github.com/culture-compass/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Culture Compass API server")

	metrics.Init()

	readyChecks := map[string]func(context.Context) error{}

	var store storage.Store
	switch cfg.Storage.Driver {
	case "sqlite":
		sqliteClient, err := sqlite.NewClient(cfg.Storage.SQLitePath)
		if err != nil {
			appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
		}
		if err := sqliteClient.InitSchema(); err != nil {
			appLogger.Fatal("Failed to initialize schema", zap.Error(err))
		}
		readyChecks["sqlite"] = sqliteClient.Ping
		store = sqliteClient
	default:
		store = memory.New()
	}
	defer store.Close()

	graphCfg := tastegraph.Config{
		BaseURL:  cfg.TasteGraph.BaseURL,
		APIKey:   cfg.TasteGraph.APIKey,
		Timeout:  time.Duration(cfg.TasteGraph.TimeoutSec) * time.Second,
		CacheTTL: time.Duration(cfg.Redis.TTLSec) * time.Second,
	}
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, taste-graph responses will not be cached", zap.Error(err))
		} else {
			defer redisClient.Close()
			graphCfg.Cache = redisClient
			readyChecks["redis"] = redisClient.Ping
		}
	}
	graph := tastegraph.NewClient(graphCfg)

	llmClient := llm.NewClient(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
	})
	generator := narrative.NewGenerator(llmClient)

	aggregator := affinity.NewAggregator(graph, affinity.Config{
		ItemsPerCategory:  cfg.TasteGraph.ItemsPerCategory,
		EntityIDsPerQuery: cfg.TasteGraph.EntityIDsPerQuery,
	})
	builder := recommend.NewBuilder(graph, generator, store, recommend.Config{
		ItemsPerCategory: cfg.Recommend.ItemsPerCategory,
		MaxCandidates:    cfg.Recommend.MaxCandidates,
		Scorer:           recommend.NewRandomScorer(cfg.Recommend.MinMatch, cfg.Recommend.MaxMatch, time.Now().UnixNano()),
	})
	engine := insights.NewEngine(store, aggregator, generator, builder)

	server := api.New(api.Options{
		ReadTimeout:          time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:         time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:            cfg.Server.BodyLimit,
		AllowedOrigins:       cfg.Server.AllowedOrigins,
		Development:          cfg.Server.Development,
		RateLimitEnabled:     cfg.RateLimit.Enabled,
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		RequestLog:           true,
	}, api.Deps{
		Store:       store,
		Engine:      engine,
		Search:      graph,
		ReadyChecks: readyChecks,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting",
		zap.String("address", addr),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("model", llmClient.Model()),
	)

	go func() {
		if err := server.App.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := server.Shutdown(); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

// cmd/insight-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"api-insights/internal/cache"
	"api-insights/internal/catalog"
	"api-insights/internal/collaborators/codegen"
	"api-insights/internal/collaborators/intent"
	"api-insights/internal/collaborators/narrative"
	"api-insights/internal/collaborators/toolselect"
	"api-insights/internal/common/config"
	"api-insights/internal/common/database"
	"api-insights/internal/common/logger"
	"api-insights/internal/common/observability"
	"api-insights/internal/pipeline"
	"api-insights/internal/sandbox"
	"api-insights/internal/server"
	"api-insights/internal/tools"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = operation(); err == nil {
			return nil
		}
		if attempt < maxRetries {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
			time.Sleep(delay)
			delay *= 2
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var initErr error
		esClient, initErr = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if initErr != nil {
			return initErr
		}
		return esClient.Ping()
	}, 5, time.Second, zapLog, "elasticsearch init")
	if err != nil {
		zapLog.Fatal("elasticsearch unavailable", zap.Error(err))
	}

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var initErr error
		redisClient, initErr = database.NewRedis(cfg.Database.Redis)
		if initErr != nil {
			return initErr
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return redisClient.Ping(ctx)
	}, 5, time.Second, zapLog, "redis init")
	if err != nil {
		zapLog.Fatal("redis unavailable", zap.Error(err))
	}
	defer redisClient.Close()

	// --- Init PostgreSQL (optional, tool catalog only) ---
	var pgClient *database.PostgresClient
	if cfg.Database.Postgres.Host != "" {
		err = retryWithBackoff(func() error {
			var initErr error
			pgClient, initErr = database.NewPostgres(cfg.Database.Postgres)
			if initErr != nil {
				return initErr
			}
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return pgClient.Ping(ctx)
		}, 3, time.Second, zapLog, "postgres init")
		if err != nil {
			zapLog.Warn("postgres unavailable, tool catalog falls back to file", zap.Error(err))
			pgClient = nil
		} else {
			defer pgClient.Close()
		}
	}

	// --- Tool catalog ---
	var primary, fallback catalog.Store
	if pgClient != nil {
		primary = catalog.NewPostgresStore(pgClient)
	}
	if cfg.Catalog.RegistryPath != "" {
		fallback = catalog.NewFileStore(cfg.Catalog.RegistryPath)
	}
	catalogService := catalog.NewService(primary, fallback, log)

	// --- Telemetry adapters ---
	orgID := cfg.Organization.ID
	envID := cfg.Organization.EnvironmentID
	registry := tools.NewRegistry(
		tools.NewErrorDataAdapter(esClient.Client, orgID, envID, log),
		tools.NewTrafficDataAdapter(esClient.Client, orgID, envID, log),
		tools.NewLatencyDataAdapter(esClient.Client, orgID, envID, log),
		tools.NewSummaryDataAdapter(esClient.Client, orgID, envID, log),
	)
	inventory := tools.NewInventory(esClient.Client, orgID, envID, log)

	// --- Collaborator clients ---
	genAI := cfg.APIs.GenAI
	collabTimeout := config.GetDuration(genAI.Timeout)
	resolver := intent.NewClient(&intent.Config{
		GenAIBaseURL: genAI.BaseURL, APIKey: genAI.APIKey, Model: genAI.Model,
		Timeout: collabTimeout, MaxRetries: genAI.MaxRetries,
	}, log)
	selector := toolselect.NewClient(&toolselect.Config{
		GenAIBaseURL: genAI.BaseURL, APIKey: genAI.APIKey, Model: genAI.Model,
		Timeout: collabTimeout, MaxRetries: genAI.MaxRetries,
	}, log)
	generator := codegen.NewClient(&codegen.Config{
		GenAIBaseURL: genAI.BaseURL, APIKey: genAI.APIKey, Model: genAI.Model,
		Timeout: collabTimeout, MaxRetries: genAI.MaxRetries,
	}, log)
	composer := narrative.NewClient(&narrative.Config{
		GenAIBaseURL: genAI.BaseURL, APIKey: genAI.APIKey, Model: genAI.Model,
		Timeout: collabTimeout, MaxRetries: genAI.MaxRetries,
	}, log)

	// --- Sandbox and answer cache ---
	runner := sandbox.NewRunner(cfg.Sandbox, log)

	var answers pipeline.AnswerStore
	if cfg.Cache.Enabled {
		answers = cache.NewAnswerCache(redisClient, time.Duration(cfg.Cache.TTL)*time.Second, log)
	}

	orchestrator := pipeline.NewOrchestrator(pipeline.Options{
		Resolver:      resolver,
		Selector:      selector,
		Generator:     generator,
		Executor:      runner,
		Composer:      composer,
		Registry:      registry,
		Catalog:       catalogService,
		Inventory:     inventory,
		Answers:       answers,
		CacheKey:      cache.Key,
		Observability: obs,
		Logger:        log,
	})

	srv := server.New(cfg.Server, server.Dependencies{
		Orchestrator:  orchestrator,
		Elasticsearch: esClient.Client,
		Postgres:      pgClient,
		Redis:         redisClient,
		Logger:        log,
	})

	go func() {
		if err := srv.Start(); err != nil {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	zapLog.Info("insight server started",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
		zap.Int("port", cfg.Server.Port))

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining requests...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLog.Error("shutdown did not complete cleanly", zap.Error(err))
	}
	zapLog.Info("insight server stopped")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/floatchat/internal/config"
	dbRedis "github.com/kailas-cloud/floatchat/internal/db/redis"
	"github.com/kailas-cloud/floatchat/internal/domain"
	logpkg "github.com/kailas-cloud/floatchat/internal/logger"
	"github.com/kailas-cloud/floatchat/internal/metrics"
	"github.com/kailas-cloud/floatchat/internal/repository/embcache"
	"github.com/kailas-cloud/floatchat/internal/repository/measurement"
	"github.com/kailas-cloud/floatchat/internal/repository/querylog"
	retrievalrepo "github.com/kailas-cloud/floatchat/internal/repository/retrieval"
	sessionrepo "github.com/kailas-cloud/floatchat/internal/repository/session"
	chiTransport "github.com/kailas-cloud/floatchat/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/floatchat/internal/transport/openai"
	"github.com/kailas-cloud/floatchat/internal/usecase/assemble"
	"github.com/kailas-cloud/floatchat/internal/usecase/compile"
	embeddinguc "github.com/kailas-cloud/floatchat/internal/usecase/embedding"
	"github.com/kailas-cloud/floatchat/internal/usecase/engine"
	"github.com/kailas-cloud/floatchat/internal/usecase/execute"
	"github.com/kailas-cloud/floatchat/internal/usecase/extract"
	"github.com/kailas-cloud/floatchat/internal/usecase/guard"
	healthuc "github.com/kailas-cloud/floatchat/internal/usecase/health"
	inventoryuc "github.com/kailas-cloud/floatchat/internal/usecase/inventory"
	"github.com/kailas-cloud/floatchat/internal/usecase/memory"
	"github.com/kailas-cloud/floatchat/internal/usecase/retry"
	"github.com/kailas-cloud/floatchat/internal/usecase/synthesize"
	"github.com/kailas-cloud/floatchat/internal/version"
)

const day = 24 * time.Hour

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLoggerWithFile(env, cfg.Logging.Level, logpkg.FileConfig{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting floatchat API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("redis_addrs", cfg.Database.Addrs),
		zap.String("measurement_driver", cfg.Measurement.Driver),
	)

	ctx := context.Background()

	// Redis: embedding cache, retrieval corpus, query log
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create redis store", zap.Error(err))
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Redis not ready", zap.Error(err))
	}
	logger.Info("Connected to redis")

	// Measurement store
	sqlDB, err := measurement.Open(ctx, measurement.DBConfig{
		Driver:       cfg.Measurement.Driver,
		DSN:          cfg.Measurement.DSN,
		MaxOpenConns: cfg.Measurement.MaxOpenConns,
		MaxIdleConns: cfg.Measurement.MaxIdleConns,
		PingTimeout:  time.Duration(cfg.Database.ReadinessTimeout) * time.Second,
	})
	if err != nil {
		logger.Fatal("Measurement database not ready", zap.Error(err))
	}
	measurementStore := measurement.NewStore(sqlDB, logger)
	defer func() { _ = measurementStore.Close() }()
	logger.Info("Connected to measurement database")

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterLLMMetrics()
	metrics.RegisterPipelineMetrics()

	policies := retry.FromConfig(cfg.Capabilities)

	queryEmbedder, provider := buildEmbedder(cfg, cfg.Embedding.Vectorizer.QueryInstruction, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider.Name),
		zap.String("model", cfg.Embedding.Vectorizer.Model),
		zap.Int("dimensions", cfg.Embedding.Vectorizer.Dimensions),
	)

	llm := openaiTransport.NewChatModel(&openaiTransport.ChatConfig{
		Config: openaiTransport.Config{
			APIKey:   cfg.LLM.Provider.APIKey,
			BaseURL:  cfg.LLM.Provider.BaseURL,
			Model:    cfg.LLM.Model,
			Provider: cfg.LLM.Provider.Name,
			Logger:   logger,
		},
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})

	counter, err := assemble.NewCounter(cfg.Context.Unit, cfg.Context.Encoding)
	if err != nil {
		logger.Fatal("Failed to create context counter", zap.Error(err))
	}

	corpus := retrievalrepo.New(store, retrievalrepo.Options{
		KeyPrefix:   cfg.Storage.KeyPrefix,
		Index:       cfg.Retrieval.Index,
		Dimensions:  cfg.Embedding.Vectorizer.Dimensions,
		HNSWM:       cfg.Retrieval.HNSWM,
		EFConstruct: cfg.Retrieval.HNSWEFConstruct,
	})
	if ok, err := corpus.IndexExists(ctx); err != nil || !ok {
		logger.Warn("Retrieval corpus index missing, answers will degrade until floatchat-corpus runs",
			zap.String("index", cfg.Retrieval.Index), zap.Error(err))
	}

	sessions := sessionrepo.New(time.Duration(cfg.Sessions.CleanupMinutes) * time.Minute)

	deps := engine.Deps{
		Memory: memory.New(sessions, memory.Options{
			TTL:       cfg.SessionTTL(),
			Retention: cfg.SessionRetention(),
			MaxTurns:  cfg.Sessions.MaxTurns,
		}, nil),
		Assembler: assemble.New(queryEmbedder, corpus, counter, policies, assemble.Options{
			TopK:        cfg.Retrieval.TopK,
			MemoryTurns: cfg.Context.MemoryTurns,
			Ceiling:     cfg.Context.Ceiling,
		}, logger),
		Extractor: extract.New(llm, policies, *cfg.Extraction.CorrectionRetries, nil, logger),
		Validator: guard.New(guard.Options{
			MaxRows: cfg.Guard.MaxRows,
			MaxSpan: time.Duration(cfg.Guard.MaxSpanDays) * day,
		}, nil, logger),
		Executor:    execute.New(measurementStore, policies, cfg.Execution.SampleRows, logger),
		Synthesizer: synthesize.New(llm, policies, logger),
	}
	if cfg.QueryLog.Enabled {
		deps.QueryLog = querylog.New(store, cfg.Storage.KeyPrefix, time.Duration(cfg.QueryLog.TTLHours)*time.Hour)
	}

	eng := engine.New(deps, compile.Options{
		DefaultRowCap:  cfg.Guard.DefaultRowCap,
		DefaultSpanCap: time.Duration(cfg.Guard.DefaultSpanDays) * day,
	}, nil, logger)

	healthSvc := healthuc.New(store, measurementStore, provider)

	summarySvc := inventoryuc.New(measurementStore, corpus, policies, cfg.SummaryCacheTTL(), logger)

	server := chiTransport.NewServer(eng, healthSvc, summarySvc)
	handler := chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
// The bare provider is returned for health checks.
func buildEmbedder(
	cfg config.Config, instruction string, store *dbRedis.Store, logger *zap.Logger,
) (domain.Embedder, domain.HealthChecker) {
	prov := cfg.Embedding.Provider
	vec := cfg.Embedding.Vectorizer

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     prov.APIKey,
		BaseURL:    prov.BaseURL,
		Model:      vec.Model,
		Dimensions: vec.Dimensions,
		Provider:   prov.Name,
		Logger:     logger,
	})

	var embedder domain.Embedder = embcache.New(base, store, embcache.Options{
		KeyPrefix: cfg.Storage.KeyPrefix,
		Model:     vec.Model,
		TTL:       time.Duration(cfg.Embedding.CacheTTL) * time.Hour,
	}, metrics.EmbeddingCacheTotal, logger)

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, prov.Name, vec.Model, vec.Dimensions, logger)

	// cache key includes the instruction, so it stays outermost
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction), base
	}
	return embedder, base
}

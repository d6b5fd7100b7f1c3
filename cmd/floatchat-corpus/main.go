// Command floatchat-corpus embeds the grounding corpus and writes it to the retrieval index.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/floatchat/internal/config"
	dbRedis "github.com/kailas-cloud/floatchat/internal/db/redis"
	"github.com/kailas-cloud/floatchat/internal/domain"
	logpkg "github.com/kailas-cloud/floatchat/internal/logger"
	"github.com/kailas-cloud/floatchat/internal/metrics"
	retrievalrepo "github.com/kailas-cloud/floatchat/internal/repository/retrieval"
	openaiTransport "github.com/kailas-cloud/floatchat/internal/transport/openai"
	"github.com/kailas-cloud/floatchat/internal/usecase/corpus"
	embeddinguc "github.com/kailas-cloud/floatchat/internal/usecase/embedding"
	"github.com/kailas-cloud/floatchat/internal/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "floatchat-corpus",
		Short:   "Index the ARGO grounding corpus (schema docs, exemplars, glossary)",
		Version: version.Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("corpus")
			rebuild, _ := cmd.Flags().GetBool("rebuild")
			batch, _ := cmd.Flags().GetInt("batch-size")
			return run(cmd.Context(), path, rebuild, batch)
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().StringP("corpus", "c", "corpus/argo.yaml", "Corpus YAML file")
	rootCmd.Flags().Bool("rebuild", false, "Drop the index before indexing (needed after a dimension change)")
	rootCmd.Flags().Int("batch-size", corpus.DefaultBatchSize, "Documents per embedding call")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, path string, rebuild bool, batch int) error {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	docs, err := corpus.Load(path)
	if err != nil {
		logger.Error("Failed to load corpus", zap.String("path", path), zap.Error(err))
		return err
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		return fmt.Errorf("create redis store: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("redis not ready: %w", err)
	}

	metrics.RegisterEmbeddingMetrics()

	prov := cfg.Embedding.Provider
	vec := cfg.Embedding.Vectorizer
	instrumented := embeddinguc.NewInstrumentedEmbedder(
		openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     prov.APIKey,
			BaseURL:    prov.BaseURL,
			Model:      vec.Model,
			Dimensions: vec.Dimensions,
			Provider:   prov.Name,
			Logger:     logger,
		}),
		prov.Name, vec.Model, vec.Dimensions, logger,
	)
	var embedder corpus.Embedder = instrumented
	if vec.DocumentInstruction != "" {
		embedder = domain.NewInstructionEmbedder(instrumented, vec.DocumentInstruction)
	}

	index := retrievalrepo.New(store, retrievalrepo.Options{
		KeyPrefix:   cfg.Storage.KeyPrefix,
		Index:       cfg.Retrieval.Index,
		Dimensions:  vec.Dimensions,
		HNSWM:       cfg.Retrieval.HNSWM,
		EFConstruct: cfg.Retrieval.HNSWEFConstruct,
	})
	if rebuild {
		if err := index.DropIndex(ctx); err != nil {
			return fmt.Errorf("drop index: %w", err)
		}
		logger.Info("Dropped retrieval index", zap.String("index", cfg.Retrieval.Index))
	}

	ctx, usage := domain.NewContextWithUsage(ctx)
	start := time.Now()
	stats, err := corpus.New(embedder, index, logger).WithBatchSize(batch).Sync(ctx, docs)
	if err != nil {
		logger.Error("Corpus indexing failed", zap.Error(err))
		return err
	}

	tokens, _, _, _ := usage.Snapshot()
	logger.Info("Corpus indexed",
		zap.String("path", path),
		zap.String("index", cfg.Retrieval.Index),
		zap.Int("indexed", stats.Indexed),
		zap.Int("pruned", stats.Pruned),
		zap.Int("embedding_tokens", tokens),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

package corpus

import (
	"context"

	"github.com/kailas-cloud/floatchat/internal/domain"
	"github.com/kailas-cloud/floatchat/internal/domain/retrieval"
)

// Embedder vectorizes documents in batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Index stores the corpus.
type Index interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, docs []retrieval.Document, vectors [][]float32) error
	Prune(ctx context.Context, keep []string) (int, error)
}

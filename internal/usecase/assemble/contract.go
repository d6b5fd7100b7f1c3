package assemble

import (
	"context"

	"github.com/kailas-cloud/floatchat/internal/domain"
	"github.com/kailas-cloud/floatchat/internal/domain/retrieval"
)

// Embedder vectorizes the question.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Retriever searches the grounding corpus by vector and by keywords.
type Retriever interface {
	Search(ctx context.Context, vector []float32, k int, categories ...retrieval.Category) ([]retrieval.Document, error)
	SearchText(ctx context.Context, text string, k int, categories ...retrieval.Category) ([]retrieval.Document, error)
}

// Counter measures and cuts text in the ceiling unit.
type Counter interface {
	Count(s string) int
	Cut(s string, n int) string
}

// Package corpus indexes the grounding corpus: schema documentation, question exemplars
// and the glossary the context assembler retrieves from.
package corpus

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/floatchat/internal/domain/retrieval"
)

// DefaultBatchSize is the number of documents embedded per provider call.
const DefaultBatchSize = 64

// Stats reports what Sync changed.
type Stats struct {
	Indexed int
	Pruned  int
}

// Service syncs a corpus into the retrieval index.
type Service struct {
	embed     Embedder
	index     Index
	batchSize int
	logger    *zap.Logger
}

// New creates a corpus service.
func New(embed Embedder, index Index, logger *zap.Logger) *Service {
	return &Service{embed: embed, index: index, batchSize: DefaultBatchSize, logger: logger}
}

// WithBatchSize configures the embedding batch size.
func (s *Service) WithBatchSize(size int) *Service {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// Sync makes the index hold exactly docs: ensures the index, embeds and writes every
// document, then removes documents no longer in the corpus.
func (s *Service) Sync(ctx context.Context, docs []retrieval.Document) (Stats, error) {
	var st Stats
	if err := s.index.EnsureIndex(ctx); err != nil {
		return st, fmt.Errorf("ensure index: %w", err)
	}

	for start := 0; start < len(docs); start += s.batchSize {
		end := min(start+s.batchSize, len(docs))
		chunk := docs[start:end]

		texts := make([]string, len(chunk))
		for i, d := range chunk {
			texts[i] = embeddingText(d)
		}
		res, err := s.embed.BatchEmbed(ctx, texts)
		if err != nil {
			return st, fmt.Errorf("embed documents %d-%d: %w", start, end-1, err)
		}
		if len(res.Embeddings) != len(chunk) {
			return st, fmt.Errorf("embed documents %d-%d: got %d vectors", start, end-1, len(res.Embeddings))
		}
		if err := s.index.Upsert(ctx, chunk, res.Embeddings); err != nil {
			return st, err
		}
		st.Indexed += len(chunk)
		s.logger.Debug("Corpus batch indexed",
			zap.Int("from", start),
			zap.Int("count", len(chunk)),
			zap.Int("tokens", res.TotalTokens),
		)
	}

	keep := make([]string, len(docs))
	for i, d := range docs {
		keep[i] = d.ID
	}
	pruned, err := s.index.Prune(ctx, keep)
	if err != nil {
		return st, fmt.Errorf("prune corpus: %w", err)
	}
	st.Pruned = pruned

	s.logger.Info("Corpus synced", zap.Int("indexed", st.Indexed), zap.Int("pruned", st.Pruned))
	return st, nil
}

// embeddingText prefixes the category so exemplars and schema docs separate in vector space.
func embeddingText(d retrieval.Document) string {
	return strings.ReplaceAll(string(d.Category), "-", " ") + ": " + d.Text
}

// Package inventory builds the data summary: how many floats, profiles and
// observations are loaded, the area and time span they cover, and the corpus size.
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/kailas-cloud/floatchat/internal/domain"
	"github.com/kailas-cloud/floatchat/internal/domain/inventory"
	"github.com/kailas-cloud/floatchat/internal/domain/retrieval"
	"github.com/kailas-cloud/floatchat/internal/usecase/retry"
)

const summaryKey = "summary"

// Service computes summaries. Results are cached for the configured TTL; zero disables caching.
type Service struct {
	measurements Measurements
	corpus       Corpus
	policies     retry.Table
	ttl          time.Duration
	cache        *cache.Cache
	now          func() time.Time
	logger       *zap.Logger
}

// New creates the service. corpus can be nil when retrieval is not configured.
func New(m Measurements, corpus Corpus, policies retry.Table, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{
		measurements: m,
		corpus:       corpus,
		policies:     policies,
		ttl:          ttl,
		cache:        cache.New(ttl, 2*ttl),
		now:          time.Now,
		logger:       logger,
	}
}

// Summary returns the data summary. A measurement store failure fails the call with
// ErrExecution; an unreachable corpus only marks the summary degraded.
func (s *Service) Summary(ctx context.Context) (*inventory.Summary, error) {
	if s.ttl > 0 {
		if v, ok := s.cache.Get(summaryKey); ok {
			return v.(*inventory.Summary), nil
		}
	}

	m, err := retry.Do(ctx, s.policies, retry.Storage, func(ctx context.Context) (inventory.Measurements, error) {
		return s.measurements.Inventory(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExecution, err)
	}

	sum := &inventory.Summary{Measurements: m, GeneratedAt: s.now().UTC()}
	if s.corpus != nil {
		st, err := retry.Attempt(ctx, s.policies, retry.Retrieval, func(ctx context.Context) (*retrieval.Stats, error) {
			return s.corpus.Stats(ctx)
		})
		if err != nil {
			s.logger.Warn("Corpus stats unavailable", zap.Error(err))
			sum.Degraded = true
		} else {
			sum.Corpus = st
		}
	}

	// degraded summaries are not cached so the next call retries the corpus
	if s.ttl > 0 && !sum.Degraded {
		s.cache.Set(summaryKey, sum, cache.DefaultExpiration)
	}
	return sum, nil
}

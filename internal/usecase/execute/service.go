// Package execute is the execution adapter between validated queries and the measurement store.
package execute

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/floatchat/internal/domain"
	"github.com/kailas-cloud/floatchat/internal/domain/query"
	"github.com/kailas-cloud/floatchat/internal/domain/result"
	"github.com/kailas-cloud/floatchat/internal/usecase/retry"
)

// DefaultSampleRows is the sample size when none is configured.
const DefaultSampleRows = 20

// Service executes queries and summarizes their results.
type Service struct {
	store      Store
	policies   retry.Table
	sampleRows int
	logger     *zap.Logger
}

// New creates the adapter.
func New(store Store, policies retry.Table, sampleRows int, logger *zap.Logger) *Service {
	if sampleRows <= 0 {
		sampleRows = DefaultSampleRows
	}
	return &Service{store: store, policies: policies, sampleRows: sampleRows, logger: logger}
}

// Run executes q under the storage policy. Failures after retries are ErrExecution.
func (s *Service) Run(ctx context.Context, q query.CompiledQuery) (result.Summary, error) {
	rs, err := retry.Do(ctx, s.policies, retry.Storage, func(ctx context.Context) (result.RowSet, error) {
		return s.store.Query(ctx, q)
	})
	if err != nil {
		if errors.Is(err, domain.ErrMalformedQuery) {
			s.logger.Error("invariant violation: validated query rejected by store",
				zap.Error(err),
				zap.String("fingerprint", q.Fingerprint()),
				zap.ByteString("query", q.Canonical()),
			)
		}
		return result.Summary{}, fmt.Errorf("%w: %w", domain.ErrExecution, err)
	}

	return result.Summarize(rs, q.RowCap, s.sampleRows), nil
}

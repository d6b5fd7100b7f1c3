package execute

import (
	"context"

	"github.com/kailas-cloud/floatchat/internal/domain/query"
	"github.com/kailas-cloud/floatchat/internal/domain/result"
)

// Store runs compiled queries against the measurement database.
type Store interface {
	Query(ctx context.Context, q query.CompiledQuery) (result.RowSet, error)
}

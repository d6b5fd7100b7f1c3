package inventory

import (
	"context"

	"github.com/kailas-cloud/floatchat/internal/domain/inventory"
	"github.com/kailas-cloud/floatchat/internal/domain/retrieval"
)

// Measurements reports what the measurement store holds.
type Measurements interface {
	Inventory(ctx context.Context) (inventory.Measurements, error)
}

// Corpus reports the state of the retrieval index.
type Corpus interface {
	Stats(ctx context.Context) (*retrieval.Stats, error)
}

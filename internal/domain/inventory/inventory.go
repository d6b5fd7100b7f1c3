// Package inventory describes what data the engine can answer questions about.
package inventory

import (
	"time"

	"github.com/kailas-cloud/floatchat/internal/domain/geo"
	"github.com/kailas-cloud/floatchat/internal/domain/retrieval"
)

// Measurements summarize the profile data of the measurement store.
// Bounds and the time range are nil while the store is empty.
type Measurements struct {
	Floats       int64
	Profiles     int64
	Observations int64
	Bounds       *geo.BBox
	First        *time.Time
	Last         *time.Time
}

// Empty reports whether the store holds no observations.
func (m Measurements) Empty() bool {
	return m.Observations == 0
}

// Summary is a point-in-time overview of the loaded data. Corpus is nil when the
// retrieval index could not be reached; Degraded is set then.
type Summary struct {
	Measurements Measurements
	Corpus       *retrieval.Stats
	Degraded     bool
	GeneratedAt  time.Time
}

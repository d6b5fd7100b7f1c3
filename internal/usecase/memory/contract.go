package memory

import (
	"time"

	domsession "github.com/kailas-cloud/floatchat/internal/domain/session"
)

// Repository stores sessions. Get and Save work on copies; Save keeps the entry for keep.
type Repository interface {
	Get(id string) (*domsession.Session, bool)
	Save(s *domsession.Session, keep time.Duration)
	Delete(id string)
	Count() int
}

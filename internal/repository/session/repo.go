// Package session keeps conversations in process memory.
package session

import (
	"time"

	"github.com/patrickmn/go-cache"

	domsession "github.com/kailas-cloud/floatchat/internal/domain/session"
)

// Repo is an in-memory session store. Each entry carries its own lifetime, set by the
// caller on Save; the janitor purges lapsed entries every cleanupInterval.
type Repo struct {
	cache *cache.Cache
}

// New creates an empty store.
func New(cleanupInterval time.Duration) *Repo {
	return &Repo{cache: cache.New(cache.NoExpiration, cleanupInterval)}
}

// Get returns a copy of the stored session.
func (r *Repo) Get(id string) (*domsession.Session, bool) {
	x, found := r.cache.Get(id)
	if !found {
		return nil, false
	}
	return x.(*domsession.Session).Clone(), true
}

// Save stores a copy of s for keep. keep <= 0 stores it until deleted.
func (r *Repo) Save(s *domsession.Session, keep time.Duration) {
	if keep <= 0 {
		keep = cache.NoExpiration
	}
	r.cache.Set(s.ID, s.Clone(), keep)
}

// Delete removes a session. Missing ids are ignored.
func (r *Repo) Delete(id string) {
	r.cache.Delete(id)
}

// Count returns the number of stored sessions, expired ones included until purged.
func (r *Repo) Count() int {
	return r.cache.ItemCount()
}

// Package session holds conversations and their turns.
package session

import (
	"time"

	"github.com/kailas-cloud/floatchat/internal/domain/intent"
	"github.com/kailas-cloud/floatchat/internal/domain/query"
	"github.com/kailas-cloud/floatchat/internal/domain/result"
	"github.com/kailas-cloud/floatchat/internal/domain/verdict"
)

// Turn is one finished question/answer exchange. Never mutated after it is appended.
type Turn struct {
	ID          string              `json:"id"`
	Question    string              `json:"question"`
	Intent      intent.Intent       `json:"intent"`
	Query       query.CompiledQuery `json:"query"`
	Verdict     verdict.Kind        `json:"verdict"`
	Summary     result.Summary      `json:"summary"`
	Answer      string              `json:"answer"`
	FollowUps   []string            `json:"follow_ups,omitempty"`
	Degraded    bool                `json:"degraded"`
	Degradation []string            `json:"degradation,omitempty"`
	Context     string              `json:"context"`
	CreatedAt   time.Time           `json:"created_at"`
}

// Session is a conversation. Turns are ordered oldest first.
type Session struct {
	ID           string
	Turns        []Turn
	CreatedAt    time.Time
	LastActivity time.Time
}

// New creates an empty session.
func New(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now, LastActivity: now}
}

// ExpiresAt is the moment the session becomes stale without another turn.
func (s *Session) ExpiresAt(ttl time.Duration) time.Time {
	return s.LastActivity.Add(ttl)
}

// Expired reports whether the session is stale at now.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && !now.Before(s.ExpiresAt(ttl))
}

// Append adds a turn and evicts the oldest turns beyond maxTurns (0 = unbounded).
func (s *Session) Append(t Turn, maxTurns int) {
	s.Turns = append(s.Turns, t)
	if maxTurns > 0 && len(s.Turns) > maxTurns {
		s.Turns = append([]Turn(nil), s.Turns[len(s.Turns)-maxTurns:]...)
	}
	s.LastActivity = t.CreatedAt
}

// Recent returns up to n most recent turns, oldest first.
func (s *Session) Recent(n int) []Turn {
	if n <= 0 || len(s.Turns) == 0 {
		return nil
	}
	if n > len(s.Turns) {
		n = len(s.Turns)
	}
	return append([]Turn(nil), s.Turns[len(s.Turns)-n:]...)
}

// Clone returns a copy whose turn slice can be appended to independently.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Turns = append([]Turn(nil), s.Turns...)
	return &cp
}

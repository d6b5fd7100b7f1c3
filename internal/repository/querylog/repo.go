// Package querylog keeps a short-lived audit trail of answered questions in Redis.
package querylog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// store is the consumer interface for the log (ISP).
type store interface {
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Entry is one logged turn.
type Entry struct {
	SessionID   string    `json:"session_id"`
	TurnID      string    `json:"turn_id"`
	Question    string    `json:"question"`
	Intent      string    `json:"intent,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Query       string    `json:"query,omitempty"`
	Verdict     string    `json:"verdict,omitempty"`
	RowCount    int       `json:"row_count"`
	Success     bool      `json:"success"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Degraded    bool      `json:"degraded"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repo writes log entries as JSON strings under <prefix>querylog:<session>:<turn>.
type Repo struct {
	store  store
	prefix string
	ttl    time.Duration
}

// New creates a query log repository.
func New(s store, keyPrefix string, ttl time.Duration) *Repo {
	return &Repo{store: s, prefix: keyPrefix + "querylog:", ttl: ttl}
}

// Key returns the storage key of an entry.
func (r *Repo) Key(e Entry) string {
	return r.prefix + e.SessionID + ":" + e.TurnID
}

// Write stores an entry.
func (r *Repo) Write(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal query log entry: %w", err)
	}
	if err := r.store.SetWithTTL(ctx, r.Key(e), data, r.ttl); err != nil {
		return fmt.Errorf("write query log %s: %w", r.Key(e), err)
	}
	return nil
}

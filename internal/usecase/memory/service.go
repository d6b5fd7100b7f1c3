// Package memory is the conversation memory: per-session exclusive access, turn history
// with bounded length, and inactivity expiry.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/floatchat/internal/domain"
	domsession "github.com/kailas-cloud/floatchat/internal/domain/session"
	"github.com/kailas-cloud/floatchat/internal/metrics"
)

// Options configures the memory.
//
// Retention is how long a session stays stored after it expires, so that the next
// question on it is answered with ErrSessionExpired instead of a silent fresh start.
// Zero means one more TTL.
type Options struct {
	TTL       time.Duration
	Retention time.Duration
	MaxTurns  int
}

// Service hands out exclusive session handles.
type Service struct {
	repo  Repository
	opts  Options
	clock func() time.Time

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is a context-aware mutex: a buffered channel of one slot.
type sessionLock struct {
	ch   chan struct{}
	refs int
}

// New creates the memory service. clock may be nil (time.Now).
func New(repo Repository, opts Options, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	if opts.Retention <= 0 {
		opts.Retention = opts.TTL
	}
	return &Service{repo: repo, opts: opts, clock: clock, locks: make(map[string]*sessionLock)}
}

// Handle is exclusive access to one session until Release.
type Handle struct {
	svc      *Service
	id       string
	lock     *sessionLock
	session  *domsession.Session
	released bool
}

// Acquire waits for the session lock or ctx. An expired session is discarded and
// ErrSessionExpired returned; the next Acquire with the same id starts fresh.
func (s *Service) Acquire(ctx context.Context, id string) (*Handle, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty session id", domain.ErrInvalidRequest)
	}

	l := s.ref(id)
	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		s.unref(id)
		return nil, fmt.Errorf("acquire session %s: %w", id, ctx.Err())
	}

	now := s.clock()
	sess, ok := s.repo.Get(id)
	if ok && sess.Expired(now, s.opts.TTL) {
		s.repo.Delete(id)
		s.unlock(id, l)
		metrics.ActiveSessions.Set(float64(s.repo.Count()))
		return nil, fmt.Errorf("session %s idle since %s: %w",
			id, sess.LastActivity.UTC().Format(time.RFC3339), domain.ErrSessionExpired)
	}
	if !ok {
		sess = domsession.New(id, now)
	}

	return &Handle{svc: s, id: id, lock: l, session: sess}, nil
}

// Session returns a snapshot of the session as of Acquire (plus own commits).
func (h *Handle) Session() *domsession.Session {
	return h.session.Clone()
}

// Commit appends a turn, evicts the oldest beyond MaxTurns and refreshes expiry.
func (h *Handle) Commit(t domsession.Turn) {
	if h.released {
		return
	}
	h.session.Append(t, h.svc.opts.MaxTurns)
	h.svc.repo.Save(h.session, h.svc.opts.TTL+h.svc.opts.Retention)
	metrics.ActiveSessions.Set(float64(h.svc.repo.Count()))
}

// Release unlocks the session. Safe to call more than once.
func (h *Handle) Release() {
	if h.released {
		return
	}
	h.released = true
	h.svc.unlock(h.id, h.lock)
}

// Reset deletes a session, waiting for any in-flight question on it.
func (s *Service) Reset(ctx context.Context, id string) error {
	l := s.ref(id)
	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		s.unref(id)
		return fmt.Errorf("reset session %s: %w", id, ctx.Err())
	}
	s.repo.Delete(id)
	s.unlock(id, l)
	metrics.ActiveSessions.Set(float64(s.repo.Count()))
	return nil
}

// History returns the turns of a session, oldest first. Unknown sessions have no turns.
func (s *Service) History(id string) ([]domsession.Turn, error) {
	sess, ok := s.repo.Get(id)
	if !ok {
		return nil, nil
	}
	if sess.Expired(s.clock(), s.opts.TTL) {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrSessionExpired)
	}
	return sess.Turns, nil
}

func (s *Service) ref(id string) *sessionLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{ch: make(chan struct{}, 1)}
		s.locks[id] = l
	}
	l.refs++
	return l
}

func (s *Service) unlock(id string, l *sessionLock) {
	<-l.ch
	s.unref(id)
}

// unref drops the lock entry once nobody holds or waits on it.
func (s *Service) unref(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		return
	}
	l.refs--
	if l.refs == 0 {
		delete(s.locks, id)
	}
}

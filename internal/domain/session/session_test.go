package session

import (
	"fmt"
	"testing"
	"time"
)

func TestAppend_EvictsOldest(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New("s1", now)
	for i := 0; i < 5; i++ {
		s.Append(Turn{ID: fmt.Sprint(i), CreatedAt: now.Add(time.Duration(i) * time.Minute)}, 3)
	}

	if len(s.Turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(s.Turns))
	}
	if s.Turns[0].ID != "2" || s.Turns[2].ID != "4" {
		t.Errorf("expected turns 2..4, got %s..%s", s.Turns[0].ID, s.Turns[2].ID)
	}
	if !s.LastActivity.Equal(now.Add(4 * time.Minute)) {
		t.Errorf("LastActivity not refreshed: %s", s.LastActivity)
	}
}

func TestExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New("s1", now)

	if s.Expired(now.Add(29*time.Minute), 30*time.Minute) {
		t.Error("not expired before ttl")
	}
	if !s.Expired(now.Add(30*time.Minute), 30*time.Minute) {
		t.Error("expired at ttl")
	}
	if s.Expired(now.Add(1000*time.Hour), 0) {
		t.Error("ttl 0 never expires")
	}
}

func TestRecentAndClone(t *testing.T) {
	s := New("s1", time.Now())
	s.Append(Turn{ID: "a"}, 0)
	s.Append(Turn{ID: "b"}, 0)

	r := s.Recent(1)
	if len(r) != 1 || r[0].ID != "b" {
		t.Errorf("Recent(1) = %+v", r)
	}
	if got := s.Recent(10); len(got) != 2 {
		t.Errorf("Recent(10) returned %d turns", len(got))
	}

	c := s.Clone()
	c.Append(Turn{ID: "c"}, 0)
	if len(s.Turns) != 2 {
		t.Error("clone append leaked into original")
	}
}

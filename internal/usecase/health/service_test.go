package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockEmbeddingChecker struct {
	err error
}

func (m *mockEmbeddingChecker) HealthCheck(_ context.Context) error { return m.err }

type slowPinger struct{}

func (slowPinger) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// --- Tests ---

func TestCheck(t *testing.T) {
	down := errors.New("down")

	tests := []struct {
		name        string
		store       error
		measurement error
		embedding   error
		want        Status
		failed      []string
	}{
		{name: "all healthy", want: Healthy},
		{name: "store down", store: down, want: Degraded, failed: []string{ComponentStore}},
		{name: "embedding down", embedding: down, want: Degraded, failed: []string{ComponentEmbedding}},
		{name: "measurement down", measurement: down, want: Unhealthy, failed: []string{ComponentMeasurement}},
		{
			name:  "everything down",
			store: down, measurement: down, embedding: down,
			want:   Unhealthy,
			failed: []string{ComponentStore, ComponentMeasurement, ComponentEmbedding},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := New(&mockPinger{err: tt.store}, &mockPinger{err: tt.measurement}, &mockEmbeddingChecker{err: tt.embedding})
			r := svc.Check(context.Background())

			if r.Status != tt.want {
				t.Errorf("expected %q, got %q", tt.want, r.Status)
			}
			if len(r.Checks) != 3 {
				t.Fatalf("expected 3 checks, got %v", r.Checks)
			}
			failed := map[string]bool{}
			for _, name := range tt.failed {
				failed[name] = true
			}
			for name, res := range r.Checks {
				want := CheckOK
				if failed[name] {
					want = CheckError
				}
				if res != want {
					t.Errorf("%s: expected %q, got %q", name, want, res)
				}
			}
		})
	}
}

func TestCheck_NoEmbedding(t *testing.T) {
	svc := New(&mockPinger{}, &mockPinger{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks[ComponentEmbedding]; ok {
		t.Error("embedding check should be absent when embedding is nil")
	}
}

func TestCheck_Timeout(t *testing.T) {
	svc := New(slowPinger{}, &mockPinger{}, nil)
	svc.timeout = 10 * time.Millisecond

	r := svc.Check(context.Background())
	if r.Checks[ComponentStore] != CheckError {
		t.Errorf("hanging check must fail, got %q", r.Checks[ComponentStore])
	}
	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
}

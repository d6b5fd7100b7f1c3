package inventory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/floatchat/internal/domain"
	"github.com/kailas-cloud/floatchat/internal/domain/inventory"
	"github.com/kailas-cloud/floatchat/internal/domain/retrieval"
	"github.com/kailas-cloud/floatchat/internal/usecase/retry"
)

type mockMeasurements struct {
	calls int
	fn    func(call int) (inventory.Measurements, error)
}

func (m *mockMeasurements) Inventory(_ context.Context) (inventory.Measurements, error) {
	m.calls++
	return m.fn(m.calls)
}

type mockCorpus struct {
	calls int
	err   error
}

func (m *mockCorpus) Stats(_ context.Context) (*retrieval.Stats, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &retrieval.Stats{
		Index: "floatchat:corpus:idx", Present: true, Documents: 9,
		ByCategory: map[retrieval.Category]int{retrieval.CategorySchema: 9},
	}, nil
}

var policies = retry.Table{
	retry.Storage:   {Timeout: time.Second, MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	retry.Retrieval: {Timeout: time.Second, MaxAttempts: 1, Degrade: true},
}

func loaded(int) (inventory.Measurements, error) {
	return inventory.Measurements{Floats: 37, Profiles: 1204, Observations: 48210}, nil
}

func TestSummary(t *testing.T) {
	m := &mockMeasurements{fn: loaded}
	svc := New(m, &mockCorpus{}, policies, 0, zap.NewNop())
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	sum, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.Measurements.Floats != 37 || sum.Measurements.Profiles != 1204 {
		t.Errorf("measurements = %+v", sum.Measurements)
	}
	if sum.Corpus == nil || sum.Corpus.Documents != 9 || sum.Degraded {
		t.Errorf("corpus = %+v, degraded = %v", sum.Corpus, sum.Degraded)
	}
	if !sum.GeneratedAt.Equal(fixed) {
		t.Errorf("generated at = %v, want %v", sum.GeneratedAt, fixed)
	}
}

func TestSummary_RetriesTransientStoreFailure(t *testing.T) {
	m := &mockMeasurements{fn: func(call int) (inventory.Measurements, error) {
		if call == 1 {
			return inventory.Measurements{}, fmt.Errorf("%w: %w", domain.ErrStoreTimeout, domain.ErrTransient)
		}
		return loaded(call)
	}}
	svc := New(m, nil, policies, 0, zap.NewNop())

	sum, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.calls != 2 {
		t.Errorf("calls = %d, want 2", m.calls)
	}
	if sum.Corpus != nil || sum.Degraded {
		t.Errorf("no corpus configured: corpus = %+v, degraded = %v", sum.Corpus, sum.Degraded)
	}
}

func TestSummary_StoreFailureIsExecutionError(t *testing.T) {
	m := &mockMeasurements{fn: func(int) (inventory.Measurements, error) {
		return inventory.Measurements{}, domain.ErrStoreUnavailable
	}}
	svc := New(m, &mockCorpus{}, policies, 0, zap.NewNop())

	_, err := svc.Summary(context.Background())
	if !errors.Is(err, domain.ErrExecution) || !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrExecution wrapping ErrStoreUnavailable, got %v", err)
	}
}

func TestSummary_CorpusFailureDegrades(t *testing.T) {
	corpus := &mockCorpus{err: domain.ErrRetrievalUnavailable}
	svc := New(&mockMeasurements{fn: loaded}, corpus, policies, time.Minute, zap.NewNop())

	for range 2 {
		sum, err := svc.Summary(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !sum.Degraded || sum.Corpus != nil {
			t.Errorf("expected degraded summary without corpus, got %+v", sum)
		}
	}
	if corpus.calls != 2 {
		t.Errorf("degraded summary must not be cached: corpus calls = %d, want 2", corpus.calls)
	}
}

func TestSummary_Cached(t *testing.T) {
	m := &mockMeasurements{fn: loaded}
	svc := New(m, &mockCorpus{}, policies, time.Minute, zap.NewNop())

	first, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.calls != 1 {
		t.Errorf("store calls = %d, want 1", m.calls)
	}
	if first != second {
		t.Error("expected the cached summary")
	}
}

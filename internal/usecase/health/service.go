// Package health aggregates readiness of the engine's dependencies.
package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates questions are still answerable, with reduced quality.
	Degraded Status = "degraded"
	// Unhealthy indicates no question can be answered.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names in the report.
const (
	ComponentStore       = "store"
	ComponentMeasurement = "measurement"
	ComponentEmbedding   = "embedding"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// DefaultTimeout bounds every component check.
const DefaultTimeout = 3 * time.Second

// Service coordinates health checks.
type Service struct {
	store       Pinger
	measurement Pinger
	embedding   EmbeddingChecker
	timeout     time.Duration
}

// New creates a Service. embedding can be nil.
func New(store, measurement Pinger, embedding EmbeddingChecker) *Service {
	return &Service{store: store, measurement: measurement, embedding: embedding, timeout: DefaultTimeout}
}

// Check runs all component checks concurrently. The measurement database is required;
// without the store or embeddings answers degrade but still work.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]func(context.Context) error{
		ComponentStore:       s.store.Ping,
		ComponentMeasurement: s.measurement.Ping,
	}
	if s.embedding != nil {
		checks[ComponentEmbedding] = s.embedding.HealthCheck
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	results := make(map[string]CheckResult, len(checks))
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			res := CheckOK
			if err := check(cctx); err != nil {
				res = CheckError
			}
			mu.Lock()
			results[name] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := Healthy
	for name, v := range results {
		if v != CheckError {
			continue
		}
		if name == ComponentMeasurement {
			status = Unhealthy
			break
		}
		status = Degraded
	}

	return Report{Status: status, Checks: results}
}

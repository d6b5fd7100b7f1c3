// Package retry is the capability policy table: per-attempt timeouts, attempt counts and
// backoff for every external call the pipeline makes.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/kailas-cloud/floatchat/internal/config"
	"github.com/kailas-cloud/floatchat/internal/domain"
	"github.com/kailas-cloud/floatchat/internal/metrics"
)

// Capability names an external dependency of the pipeline.
type Capability string

// Capabilities.
const (
	Embedding Capability = config.CapabilityEmbedding
	Retrieval Capability = config.CapabilityRetrieval
	LLM       Capability = config.CapabilityLLM
	Storage   Capability = config.CapabilityStorage
)

// Policy is one row of the table.
type Policy struct {
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Degrade means the pipeline continues without the capability when it fails.
	Degrade bool
}

// Table maps capabilities to their policy.
type Table map[Capability]Policy

// FromConfig builds the table from the capabilities config section.
func FromConfig(caps map[string]config.CapabilityConfig) Table {
	t := make(Table, len(caps))
	for name, c := range caps {
		t[Capability(name)] = Policy{
			Timeout:        time.Duration(c.TimeoutMs) * time.Millisecond,
			MaxAttempts:    c.MaxAttempts,
			InitialBackoff: time.Duration(c.BackoffMs) * time.Millisecond,
			MaxBackoff:     time.Duration(c.MaxBackoffMs) * time.Millisecond,
			Degrade:        c.Degrade,
		}
	}
	return t
}

// Policy returns the row for c. A missing row means one attempt without a timeout.
func (t Table) Policy(c Capability) Policy {
	p, ok := t[c]
	if !ok {
		return Policy{MaxAttempts: 1}
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	return p
}

// Transient reports whether err is worth another attempt.
func Transient(err error) bool {
	return errors.Is(err, domain.ErrTransient) || errors.Is(err, context.DeadlineExceeded)
}

// Do runs op under the policy of c: each attempt gets its own timeout, transient failures
// are retried with exponential backoff, anything else is returned immediately.
func Do[T any](ctx context.Context, t Table, c Capability, op func(ctx context.Context) (T, error)) (T, error) {
	p := t.Policy(c)
	label := string(c)

	operation := func() (T, error) {
		v, err := runAttempt(ctx, p, op)
		if err == nil {
			metrics.CapabilityAttemptsTotal.WithLabelValues(label, "ok").Inc()
			return v, nil
		}
		if ctx.Err() != nil || !Transient(err) {
			metrics.CapabilityAttemptsTotal.WithLabelValues(label, "error").Inc()
			return v, backoff.Permanent(err)
		}
		metrics.CapabilityAttemptsTotal.WithLabelValues(label, "retry").Inc()
		return v, err
	}

	b := backoff.NewExponentialBackOff()
	if p.InitialBackoff > 0 {
		b.InitialInterval = p.InitialBackoff
	}
	if p.MaxBackoff > 0 {
		b.MaxInterval = p.MaxBackoff
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
	)
}

// Attempt runs op exactly once with the timeout of c.
func Attempt[T any](ctx context.Context, t Table, c Capability, op func(ctx context.Context) (T, error)) (T, error) {
	v, err := runAttempt(ctx, t.Policy(c), op)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.CapabilityAttemptsTotal.WithLabelValues(string(c), result).Inc()
	return v, err
}

func runAttempt[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	if p.Timeout <= 0 {
		return op(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return op(attemptCtx)
}

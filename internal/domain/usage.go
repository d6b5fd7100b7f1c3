package domain

import (
	"context"
	"sync"
)

type usageKey struct{}

// Usage collects token usage of one submitted question across the embedding and
// language model capabilities. The HTTP handler puts it into the context, the transports
// write to it, and the handler reports the totals in response headers.
type Usage struct {
	mu               sync.Mutex
	EmbeddingTokens  int
	PromptTokens     int
	CompletionTokens int
	ModelCalls       int
}

// NewContextWithUsage returns a context with an attached usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbedding records embedding tokens.
func (u *Usage) AddEmbedding(tokens int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.EmbeddingTokens += tokens
	u.mu.Unlock()
}

// AddCompletion records one model call and its token usage.
func (u *Usage) AddCompletion(prompt, completion int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.PromptTokens += prompt
	u.CompletionTokens += completion
	u.ModelCalls++
	u.mu.Unlock()
}

// Snapshot returns a copy of the counters.
func (u *Usage) Snapshot() (embedding, prompt, completion, calls int) {
	if u == nil {
		return 0, 0, 0, 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.EmbeddingTokens, u.PromptTokens, u.CompletionTokens, u.ModelCalls
}

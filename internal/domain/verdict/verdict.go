// Package verdict is the outcome of validating a compiled query.
package verdict

import "github.com/kailas-cloud/floatchat/internal/domain/query"

// Kind of verdict.
type Kind string

// Verdict kinds.
const (
	Accepted  Kind = "accepted"
	Rejected  Kind = "rejected"
	Rewritten Kind = "rewritten"
)

// Verdict is accepted, rejected(reason) or rewritten(query, reason).
// Query is the query to execute for accepted and rewritten verdicts.
type Verdict struct {
	Kind   Kind
	Query  query.CompiledQuery
	Reason string
}

// Accept returns an accepted verdict.
func Accept(q query.CompiledQuery) Verdict {
	return Verdict{Kind: Accepted, Query: q}
}

// Reject returns a rejected verdict.
func Reject(reason string) Verdict {
	return Verdict{Kind: Rejected, Reason: reason}
}

// Rewrite returns a rewritten verdict.
func Rewrite(q query.CompiledQuery, reason string) Verdict {
	return Verdict{Kind: Rewritten, Query: q, Reason: reason}
}

// Executable reports whether the query may run.
func (v Verdict) Executable() bool {
	return v.Kind == Accepted || v.Kind == Rewritten
}

// Package query is the compiled, store-independent form of a measurement query.
package query

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/kailas-cloud/floatchat/internal/domain/geo"
	"github.com/kailas-cloud/floatchat/internal/domain/intent"
	"github.com/kailas-cloud/floatchat/internal/domain/period"
)

// Template is the fixed grouping/ordering clause of a query.
type Template string

// Templates.
const (
	TemplateNone    Template = "none"
	TemplateCompare Template = "compare_by_entity"
	TemplateTrend   Template = "trend_by_time_bucket"
	TemplateNearest Template = "nearest_by_distance"
)

// CompiledQuery is a conjunction of typed predicates over one allowed table, with explicit
// caps. It carries no free text.
type CompiledQuery struct {
	Table      Table         `json:"table"`
	Columns    []string      `json:"columns"`
	Predicates []Predicate   `json:"predicates"`
	Template   Template      `json:"template"`
	Bucket     intent.Bucket `json:"bucket,omitempty"`
	Origin     *geo.Point    `json:"origin,omitempty"`
	RowCap     int           `json:"row_cap"`
	SpanCap    time.Duration `json:"span_cap"`
}

// Canonical returns the canonical JSON encoding. Equal queries encode to identical bytes.
func (q CompiledQuery) Canonical() []byte {
	// All fields are slices, pointers and scalars: Marshal cannot fail and has no map ordering.
	b, _ := json.Marshal(q)
	return b
}

// Fingerprint is a short stable hash of the canonical encoding.
func (q CompiledQuery) Fingerprint() string {
	sum := sha256.Sum256(q.Canonical())
	return hex.EncodeToString(sum[:8])
}

// Describe renders the predicate conjunction.
func (q CompiledQuery) Describe() string {
	return Describe(q.Predicates)
}

// Window returns the observation time window, if any.
func (q CompiledQuery) Window() (period.Interval, bool) {
	for _, p := range q.Predicates {
		if p.Kind == KindWindow && p.Column == ColObservedAt {
			return *p.Window, true
		}
	}
	return period.Interval{}, false
}

// Selective reports whether some predicate restricts the scan by float, position or time.
func (q CompiledQuery) Selective() bool {
	for _, p := range q.Predicates {
		switch {
		case p.Kind == KindIn && p.Column == ColFloatID:
			return true
		case p.Kind == KindRange && (p.Column == ColLatitude || p.Column == ColLongitude):
			return true
		case p.Kind == KindWindow:
			return true
		}
	}
	return false
}

// Parameters returns the projected measurement columns. A level column counts only when
// it was asked for as a parameter, which compiles to a not-null predicate on it.
func (q CompiledQuery) Parameters() []string {
	var out []string
	for _, c := range q.Columns {
		if IsMeasurement(c) || (IsLevel(c) && q.requires(c)) {
			out = append(out, c)
		}
	}
	return out
}

func (q CompiledQuery) requires(col string) bool {
	for _, p := range q.Predicates {
		if p.Kind == KindPresent && p.Column == col {
			return true
		}
	}
	return false
}

// ReferencedColumns returns every column the query touches, projection first.
func (q CompiledQuery) ReferencedColumns() []string {
	seen := make(map[string]struct{}, len(q.Columns)+len(q.Predicates))
	out := make([]string, 0, len(q.Columns)+len(q.Predicates))
	add := func(c string) {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	for _, c := range q.Columns {
		add(c)
	}
	for _, p := range q.Predicates {
		add(p.Column)
	}
	return out
}

// Clone returns a deep copy safe to rewrite.
func (q CompiledQuery) Clone() CompiledQuery {
	out := q
	out.Columns = append([]string(nil), q.Columns...)
	out.Predicates = make([]Predicate, len(q.Predicates))
	for i, p := range q.Predicates {
		cp := p
		cp.Values = append([]string(nil), p.Values...)
		if p.Range != nil {
			r := *p.Range
			cp.Range = &r
		}
		if p.Window != nil {
			w := *p.Window
			cp.Window = &w
		}
		out.Predicates[i] = cp
	}
	if q.Origin != nil {
		o := *q.Origin
		out.Origin = &o
	}
	return out
}

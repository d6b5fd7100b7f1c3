// Package guard is the query validator: it enforces the table/column allow-list and clamps
// row and time-span caps before anything reaches the measurement store.
package guard

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/floatchat/internal/domain/intent"
	"github.com/kailas-cloud/floatchat/internal/domain/period"
	"github.com/kailas-cloud/floatchat/internal/domain/query"
	"github.com/kailas-cloud/floatchat/internal/domain/verdict"
	"github.com/kailas-cloud/floatchat/internal/metrics"
)

// Options are the hard limits.
type Options struct {
	MaxRows int
	MaxSpan time.Duration
}

// Service validates compiled queries.
type Service struct {
	opts   Options
	clock  func() time.Time
	logger *zap.Logger
}

// New creates a guard. clock may be nil (time.Now).
func New(opts Options, clock func() time.Time, logger *zap.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{opts: opts, clock: clock, logger: logger}
}

// Validate returns accepted, rejected or rewritten. The input query is never modified.
func (s *Service) Validate(q query.CompiledQuery) verdict.Verdict {
	v := s.validate(q)
	metrics.VerdictsTotal.WithLabelValues(string(v.Kind)).Inc()
	return v
}

func (s *Service) validate(q query.CompiledQuery) verdict.Verdict {
	if reason := allowListViolation(q); reason != "" {
		// компилятор не должен выпускать такие запросы
		s.logger.Error("compiled query outside allow-list",
			zap.String("reason", reason),
			zap.ByteString("query", q.Canonical()),
		)
		return verdict.Reject(reason)
	}

	out := q.Clone()
	var reasons []string

	if out.RowCap <= 0 || out.RowCap > s.opts.MaxRows {
		reasons = append(reasons, fmt.Sprintf("row cap %d clamped to %d", out.RowCap, s.opts.MaxRows))
		out.RowCap = s.opts.MaxRows
	}

	if out.SpanCap <= 0 || out.SpanCap > s.opts.MaxSpan {
		reasons = append(reasons, fmt.Sprintf("span cap clamped to %s", days(s.opts.MaxSpan)))
		out.SpanCap = s.opts.MaxSpan
	}

	if i, ok := windowIndex(out); ok {
		w := out.Predicates[i].Window
		if w.Span() > out.SpanCap && !bucketedWithinCap(out, w.Span()) {
			reasons = append(reasons, fmt.Sprintf("time span %s exceeds %s, start moved to %s",
				days(w.Span()), days(out.SpanCap), w.End.Add(-out.SpanCap).Format(time.RFC3339)))
			w.Start = w.End.Add(-out.SpanCap)
		}
	}

	if !out.Selective() {
		end := s.clock().UTC().Truncate(time.Second)
		win := query.Within(query.ColObservedAt, period.Interval{Start: end.Add(-out.SpanCap), End: end})
		out.Predicates = append(out.Predicates, win)
		reasons = append(reasons, fmt.Sprintf("no float, area or time restriction: limited to the last %s", days(out.SpanCap)))
	}

	if len(reasons) == 0 {
		return verdict.Accept(out)
	}
	reason := strings.Join(reasons, "; ")
	s.logger.Info("compiled query rewritten", zap.String("reason", reason))
	return verdict.Rewrite(out, reason)
}

func allowListViolation(q query.CompiledQuery) string {
	if !query.AllowedTable(q.Table) {
		return fmt.Sprintf("table %q is not allowed", q.Table)
	}
	for _, c := range q.ReferencedColumns() {
		if !query.AllowedColumn(q.Table, c) {
			return fmt.Sprintf("column %q is not allowed in %s", c, q.Table)
		}
	}
	for _, p := range q.Predicates {
		if err := checkPayload(p); err != "" {
			return err
		}
	}
	switch q.Template {
	case query.TemplateNone, query.TemplateCompare, query.TemplateTrend:
	case query.TemplateNearest:
		if q.Origin == nil {
			return "nearest template without origin"
		}
	default:
		return fmt.Sprintf("template %q is not allowed", q.Template)
	}
	return ""
}

func checkPayload(p query.Predicate) string {
	switch p.Kind {
	case query.KindIn:
		if len(p.Values) == 0 {
			return fmt.Sprintf("empty IN list on %s", p.Column)
		}
	case query.KindRange:
		if p.Range == nil || p.Range.Max < p.Range.Min {
			return fmt.Sprintf("bad range on %s", p.Column)
		}
	case query.KindWindow:
		if p.Window == nil || p.Window.Validate() != nil {
			return fmt.Sprintf("bad time window on %s", p.Column)
		}
	case query.KindPresent:
	default:
		return fmt.Sprintf("predicate kind %q is not allowed", p.Kind)
	}
	return ""
}

func windowIndex(q query.CompiledQuery) (int, bool) {
	for i, p := range q.Predicates {
		if p.Kind == query.KindWindow && p.Column == query.ColObservedAt {
			return i, true
		}
	}
	return 0, false
}

// bucketedWithinCap: a trend over a long span is allowed when its bucket count fits the row cap.
func bucketedWithinCap(q query.CompiledQuery, span time.Duration) bool {
	if q.Template != query.TemplateTrend {
		return false
	}
	bucket := q.Bucket
	if bucket == "" {
		bucket = intent.BucketMonth
	}
	width := bucket.Width()
	if width <= 0 {
		return false
	}
	return int64(span/width) <= int64(q.RowCap)
}

func days(d time.Duration) string {
	return fmt.Sprintf("%d days", int64(d/(24*time.Hour)))
}

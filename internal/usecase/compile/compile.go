// Package compile is the structured query generator: a pure mapping from a resolved
// Intent to a CompiledQuery over the allowed tables.
package compile

import (
	"fmt"
	"slices"
	"time"

	"github.com/kailas-cloud/floatchat/internal/domain"
	"github.com/kailas-cloud/floatchat/internal/domain/intent"
	"github.com/kailas-cloud/floatchat/internal/domain/query"
	"github.com/kailas-cloud/floatchat/internal/domain/vocabulary"
)

// Options are the caps applied when the intent sets none.
type Options struct {
	DefaultRowCap  int
	DefaultSpanCap time.Duration
}

// Compile maps in to a query. Equal intents give byte-identical canonical encodings.
// Unknown parameters and aggregation modes are *domain.UnsupportedIntentError.
func Compile(in intent.Intent, opts Options) (query.CompiledQuery, error) {
	if in.NeedsClarification() {
		return query.CompiledQuery{}, fmt.Errorf("intent waits for clarification of %s", in.Clarification.Field)
	}

	tmpl, err := template(in.Aggregation)
	if err != nil {
		return query.CompiledQuery{}, err
	}

	params := slices.Clone(in.Parameters)
	vocabulary.SortParameters(params)
	params = slices.Compact(params)
	for _, p := range params {
		if !vocabulary.IsParameter(p) || !query.AllowedColumn(query.TableObservations, p) {
			return query.CompiledQuery{}, domain.NewUnsupportedIntent("parameter", p)
		}
	}

	if err := in.Validate(); err != nil {
		return query.CompiledQuery{}, fmt.Errorf("compile invalid intent: %w", err)
	}

	q := query.CompiledQuery{
		Table:    query.TableTrajectories,
		Template: tmpl,
		RowCap:   opts.DefaultRowCap,
		SpanCap:  opts.DefaultSpanCap,
	}
	// depth only exists per measured level
	if len(params) > 0 || in.Depth != nil {
		q.Table = query.TableObservations
	}
	if in.Limit > 0 {
		q.RowCap = in.Limit
	}

	q.Columns = append(slices.Clone(query.BaseColumns), params...)
	if in.Depth != nil && !slices.Contains(q.Columns, query.ColDepth) {
		q.Columns = append(q.Columns, query.ColDepth)
	}

	q.Predicates = predicates(in, params)

	switch tmpl {
	case query.TemplateTrend:
		q.Bucket = in.Bucket
		if q.Bucket == "" {
			q.Bucket = intent.BucketMonth
		}
	case query.TemplateNearest:
		origin := *in.Near
		q.Origin = &origin
	}

	return q, nil
}

func template(a intent.Aggregation) (query.Template, error) {
	switch a {
	case intent.AggregationNone, "":
		return query.TemplateNone, nil
	case intent.AggregationCompare:
		return query.TemplateCompare, nil
	case intent.AggregationTrend:
		return query.TemplateTrend, nil
	case intent.AggregationNearest:
		return query.TemplateNearest, nil
	default:
		return "", domain.NewUnsupportedIntent("aggregation", string(a))
	}
}

// predicates are emitted in a fixed order: float, position, time, depth, presence.
func predicates(in intent.Intent, params []string) []query.Predicate {
	var preds []query.Predicate

	if len(in.FloatIDs) > 0 {
		ids := slices.Clone(in.FloatIDs)
		slices.Sort(ids)
		preds = append(preds, query.In(query.ColFloatID, slices.Compact(ids)...))
	}
	if in.Geo != nil {
		b := in.Geo.Box
		preds = append(preds,
			query.Between(query.ColLatitude, b.MinLat, b.MaxLat),
			query.Between(query.ColLongitude, b.MinLon, b.MaxLon),
		)
	}
	if in.Time != nil {
		iv := in.Time.Interval
		iv.Start = iv.Start.UTC()
		iv.End = iv.End.UTC()
		preds = append(preds, query.Within(query.ColObservedAt, iv))
	}
	if in.Depth != nil {
		preds = append(preds, query.Between(query.ColDepth, in.Depth.Min, in.Depth.Max))
	}
	for _, p := range params {
		preds = append(preds, query.Present(p))
	}
	return preds
}

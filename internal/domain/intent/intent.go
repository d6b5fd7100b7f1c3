// Package intent is the structured form of a user question: what to look at, where,
// when and how to aggregate it.
package intent

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/floatchat/internal/domain/geo"
	"github.com/kailas-cloud/floatchat/internal/domain/period"
	"github.com/kailas-cloud/floatchat/internal/domain/vocabulary"
)

// Aggregation selects the grouping template of the compiled query.
type Aggregation string

// Aggregation modes.
const (
	AggregationNone    Aggregation = "none"
	AggregationCompare Aggregation = "compare"
	AggregationTrend   Aggregation = "trend"
	AggregationNearest Aggregation = "nearest"
)

// Shape is a presentation hint for the result.
type Shape string

// Output shapes.
const (
	ShapeTable  Shape = "table"
	ShapeSeries Shape = "series"
	ShapeMap    Shape = "map"
	ShapeScalar Shape = "scalar"
)

// Bucket is the time bucket width of a trend.
type Bucket string

// Trend buckets.
const (
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
	BucketYear  Bucket = "year"
)

// Width returns the nominal bucket duration used for output size estimates.
func (b Bucket) Width() time.Duration {
	switch b {
	case BucketDay:
		return 24 * time.Hour
	case BucketWeek:
		return 7 * 24 * time.Hour
	case BucketMonth:
		return 30 * 24 * time.Hour
	case BucketYear:
		return 365 * 24 * time.Hour
	default:
		return 0
	}
}

// GeoFilter is a resolved geographic restriction. Region is the vocabulary name when
// the user named one.
type GeoFilter struct {
	Region string   `json:"region,omitempty"`
	Box    geo.BBox `json:"box"`
}

// TimeFilter is a resolved temporal restriction. Period keeps the label the user gave.
type TimeFilter struct {
	Period   string          `json:"period,omitempty"`
	Interval period.Interval `json:"interval"`
}

// Range is a closed numeric range.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Clarification describes an ambiguous reference and the vocabulary entries it may mean.
type Clarification struct {
	Field      string   `json:"field"`
	Value      string   `json:"value"`
	Candidates []string `json:"candidates"`
}

// Question renders the clarification request shown to the user.
func (c Clarification) Question() string {
	if len(c.Candidates) == 0 {
		return fmt.Sprintf("I don't recognise the %s %q. Could you rephrase it?", c.Field, c.Value)
	}
	return fmt.Sprintf("I don't recognise the %s %q. Did you mean one of: %s?",
		c.Field, c.Value, strings.Join(c.Candidates, ", "))
}

// Intent is the resolved, structured form of a question.
type Intent struct {
	FloatIDs      []string       `json:"float_ids,omitempty"`
	Geo           *GeoFilter     `json:"geo,omitempty"`
	Time          *TimeFilter    `json:"time,omitempty"`
	Depth         *Range         `json:"depth,omitempty"`
	Near          *geo.Point     `json:"near,omitempty"`
	Parameters    []string       `json:"parameters,omitempty"`
	Aggregation   Aggregation    `json:"aggregation"`
	Bucket        Bucket         `json:"bucket,omitempty"`
	Shape         Shape          `json:"shape"`
	Limit         int            `json:"limit,omitempty"`
	Clarification *Clarification `json:"clarification,omitempty"`
}

// NeedsClarification reports whether the intent is blocked on the user disambiguating.
func (i Intent) NeedsClarification() bool {
	return i.Clarification != nil
}

// Violations lists every structural invariant the intent breaks. Unknown parameters and
// aggregation modes are not structural: the query generator reports them.
func (i Intent) Violations() []string {
	var v []string
	for _, id := range i.FloatIDs {
		if !vocabulary.ValidFloatID(id) {
			v = append(v, fmt.Sprintf("float id %q is not a 7-digit WMO number", id))
		}
	}
	if i.Geo != nil {
		if err := i.Geo.Box.Validate(); err != nil {
			v = append(v, "geo: "+err.Error())
		}
	}
	if i.Time != nil {
		if err := i.Time.Interval.Validate(); err != nil {
			v = append(v, "time: "+err.Error())
		}
	}
	if i.Depth != nil {
		if i.Depth.Min < 0 || i.Depth.Max < i.Depth.Min {
			v = append(v, fmt.Sprintf("depth range %g..%g must satisfy 0 <= min <= max", i.Depth.Min, i.Depth.Max))
		}
	}
	if i.Near != nil {
		if err := i.Near.Validate(); err != nil {
			v = append(v, "near: "+err.Error())
		}
	}
	if i.Aggregation == AggregationNearest && i.Near == nil {
		v = append(v, "aggregation nearest requires a reference point")
	}
	switch i.Bucket {
	case "", BucketDay, BucketWeek, BucketMonth, BucketYear:
	default:
		v = append(v, fmt.Sprintf("bucket %q must be one of day, week, month, year", i.Bucket))
	}
	switch i.Shape {
	case ShapeTable, ShapeSeries, ShapeMap, ShapeScalar:
	default:
		v = append(v, fmt.Sprintf("output shape %q must be one of table, series, map, scalar", i.Shape))
	}
	if i.Limit < 0 {
		v = append(v, "limit must not be negative")
	}
	return v
}

// Validate returns all violations joined, or nil.
func (i Intent) Validate() error {
	v := i.Violations()
	if len(v) == 0 {
		return nil
	}
	errs := make([]error, len(v))
	for k, s := range v {
		errs[k] = errors.New(s)
	}
	return errors.Join(errs...)
}

// Describe renders a short deterministic summary used in prompts, memory and logs.
func (i Intent) Describe() string {
	var parts []string
	if len(i.Parameters) > 0 {
		parts = append(parts, strings.Join(i.Parameters, ", "))
	} else {
		parts = append(parts, "positions")
	}
	if len(i.FloatIDs) > 0 {
		parts = append(parts, "float "+strings.Join(i.FloatIDs, ", "))
	}
	if i.Geo != nil {
		if i.Geo.Region != "" {
			parts = append(parts, "in "+i.Geo.Region)
		} else {
			parts = append(parts, "in "+i.Geo.Box.String())
		}
	}
	if i.Time != nil {
		if i.Time.Period != "" {
			parts = append(parts, "during "+i.Time.Period)
		} else {
			parts = append(parts, fmt.Sprintf("from %s to %s",
				i.Time.Interval.Start.Format("2006-01-02"), i.Time.Interval.Last().Format("2006-01-02")))
		}
	}
	if i.Depth != nil {
		parts = append(parts, fmt.Sprintf("at %g-%g m", i.Depth.Min, i.Depth.Max))
	}
	if i.Near != nil {
		parts = append(parts, fmt.Sprintf("near (%g, %g)", i.Near.Lat, i.Near.Lon))
	}
	if i.Aggregation != "" && i.Aggregation != AggregationNone {
		agg := string(i.Aggregation)
		if i.Aggregation == AggregationTrend && i.Bucket != "" {
			agg += " by " + string(i.Bucket)
		}
		parts = append(parts, "("+agg+")")
	}
	return strings.Join(parts, " ")
}

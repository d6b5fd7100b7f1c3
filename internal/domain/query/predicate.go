package query

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/floatchat/internal/domain/geo"
	"github.com/kailas-cloud/floatchat/internal/domain/period"
)

// PredicateKind is the typed shape of a predicate.
type PredicateKind string

// Predicate kinds.
const (
	KindIn      PredicateKind = "in"
	KindRange   PredicateKind = "range"
	KindWindow  PredicateKind = "window"
	KindPresent PredicateKind = "present"
)

// NumericRange is a closed numeric interval.
type NumericRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Predicate is one typed condition of the conjunction. Exactly one payload is set per kind.
type Predicate struct {
	Kind   PredicateKind    `json:"kind"`
	Column string           `json:"column"`
	Values []string         `json:"values,omitempty"`
	Range  *NumericRange    `json:"range,omitempty"`
	Window *period.Interval `json:"window,omitempty"`
}

// In builds a set membership predicate.
func In(col string, values ...string) Predicate {
	return Predicate{Kind: KindIn, Column: col, Values: values}
}

// Between builds a closed numeric range predicate.
func Between(col string, lo, hi float64) Predicate {
	return Predicate{Kind: KindRange, Column: col, Range: &NumericRange{Min: lo, Max: hi}}
}

// Within builds a half-open time window predicate: start inclusive, end exclusive.
func Within(col string, iv period.Interval) Predicate {
	return Predicate{Kind: KindWindow, Column: col, Window: &iv}
}

// Present builds a not-null predicate.
func Present(col string) Predicate {
	return Predicate{Kind: KindPresent, Column: col}
}

// String renders the predicate in the description syntax.
func (p Predicate) String() string {
	switch p.Kind {
	case KindIn:
		quoted := make([]string, len(p.Values))
		for i, v := range p.Values {
			quoted[i] = "'" + v + "'"
		}
		return fmt.Sprintf("%s IN (%s)", p.Column, strings.Join(quoted, ", "))
	case KindRange:
		return fmt.Sprintf("%s BETWEEN %s AND %s", p.Column, formatFloat(p.Range.Min), formatFloat(p.Range.Max))
	case KindWindow:
		return fmt.Sprintf("%s >= '%s' AND %s < '%s'", p.Column,
			p.Window.Start.UTC().Format(time.RFC3339Nano), p.Column, p.Window.End.UTC().Format(time.RFC3339Nano))
	case KindPresent:
		return p.Column + " IS NOT NULL"
	default:
		return fmt.Sprintf("%s <%s>", p.Column, p.Kind)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

const conjunction = " AND "

// Describe renders a conjunction of predicates. ParseDescription reverses it exactly.
func Describe(preds []Predicate) string {
	parts := make([]string, len(preds))
	for i, p := range preds {
		parts[i] = p.String()
	}
	return strings.Join(parts, conjunction)
}

var (
	inPattern      = regexp.MustCompile(`^(\w+) IN \(([^)]*)\)`)
	windowPattern  = regexp.MustCompile(`^(\w+) >= '([^']+)' AND (\w+) < '([^']+)'`)
	rangePattern   = regexp.MustCompile(`^(\w+) BETWEEN ([-+0-9.eE]+) AND ([-+0-9.eE]+)`)
	presentPattern = regexp.MustCompile(`^(\w+) IS NOT NULL`)
)

// ErrBadDescription signals text that is not a predicate description.
var ErrBadDescription = errors.New("bad predicate description")

// ParseDescription parses the output of Describe back into predicates.
func ParseDescription(s string) ([]Predicate, error) {
	var out []Predicate
	rest := s
	for rest != "" {
		p, n, err := parseOne(rest)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
		rest = rest[n:]
		if rest == "" {
			break
		}
		if !strings.HasPrefix(rest, conjunction) {
			return nil, fmt.Errorf("%w: expected AND at %q", ErrBadDescription, rest)
		}
		rest = rest[len(conjunction):]
	}
	return out, nil
}

func parseOne(s string) (Predicate, int, error) {
	if m := inPattern.FindStringSubmatch(s); m != nil {
		var values []string
		for _, v := range strings.Split(m[2], ",") {
			v = strings.TrimSpace(v)
			if len(v) < 2 || v[0] != '\'' || v[len(v)-1] != '\'' {
				return Predicate{}, 0, fmt.Errorf("%w: unquoted value %q", ErrBadDescription, v)
			}
			values = append(values, v[1:len(v)-1])
		}
		return In(m[1], values...), len(m[0]), nil
	}
	if m := windowPattern.FindStringSubmatch(s); m != nil {
		if m[1] != m[3] {
			return Predicate{}, 0, fmt.Errorf("%w: window bounds on %s and %s", ErrBadDescription, m[1], m[3])
		}
		start, err := time.Parse(time.RFC3339Nano, m[2])
		if err != nil {
			return Predicate{}, 0, fmt.Errorf("%w: %v", ErrBadDescription, err)
		}
		end, err := time.Parse(time.RFC3339Nano, m[4])
		if err != nil {
			return Predicate{}, 0, fmt.Errorf("%w: %v", ErrBadDescription, err)
		}
		return Within(m[1], period.Interval{Start: start.UTC(), End: end.UTC()}), len(m[0]), nil
	}
	if m := rangePattern.FindStringSubmatch(s); m != nil {
		lo, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return Predicate{}, 0, fmt.Errorf("%w: %v", ErrBadDescription, err)
		}
		hi, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return Predicate{}, 0, fmt.Errorf("%w: %v", ErrBadDescription, err)
		}
		return Between(m[1], lo, hi), len(m[0]), nil
	}
	if m := presentPattern.FindStringSubmatch(s); m != nil {
		return Present(m[1]), len(m[0]), nil
	}
	return Predicate{}, 0, fmt.Errorf("%w: %q", ErrBadDescription, s)
}

// Bounds extracts the geographic box and time window from a predicate set.
// The box is returned only when both latitude and longitude ranges are present.
func Bounds(preds []Predicate) (*geo.BBox, *period.Interval) {
	var (
		lat, lon *NumericRange
		window   *period.Interval
	)
	for _, p := range preds {
		switch {
		case p.Kind == KindRange && p.Column == ColLatitude:
			lat = p.Range
		case p.Kind == KindRange && p.Column == ColLongitude:
			lon = p.Range
		case p.Kind == KindWindow && p.Column == ColObservedAt:
			w := *p.Window
			window = &w
		}
	}
	if lat == nil || lon == nil {
		return nil, window
	}
	return &geo.BBox{MinLat: lat.Min, MaxLat: lat.Max, MinLon: lon.Min, MaxLon: lon.Max}, window
}

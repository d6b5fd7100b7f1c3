package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/floatchat/internal/domain/geo"
	"github.com/kailas-cloud/floatchat/internal/domain/intent"
	"github.com/kailas-cloud/floatchat/internal/domain/period"
	"github.com/kailas-cloud/floatchat/internal/domain/vocabulary"
)

// decode parses model output strictly: unknown fields and trailing data are violations.
func decode(content string) (rawIntent, error) {
	dec := json.NewDecoder(strings.NewReader(content))
	dec.DisallowUnknownFields()

	var raw rawIntent
	if err := dec.Decode(&raw); err != nil {
		return rawIntent{}, fmt.Errorf("output is not a valid intent object: %w", err)
	}
	if dec.More() {
		return rawIntent{}, fmt.Errorf("output has data after the intent object")
	}
	return raw, nil
}

// resolve turns raw output into an Intent against the vocabulary and clock. It returns the
// intent and every structural violation found; an unknown region yields a clarification.
func resolve(raw rawIntent, now time.Time) (intent.Intent, []string) {
	var (
		in         intent.Intent
		violations []string
	)

	in.FloatIDs = normalizeFloatIDs(raw.FloatIDs)

	if raw.Clarification != nil && raw.Clarification.Value != "" {
		in.Clarification = &intent.Clarification{
			Field:      raw.Clarification.Field,
			Value:      raw.Clarification.Value,
			Candidates: raw.Clarification.Candidates,
		}
	}

	geoFilter, clar, v := resolveGeo(raw)
	in.Geo = geoFilter
	violations = append(violations, v...)
	if clar != nil && in.Clarification == nil {
		in.Clarification = clar
	}

	timeFilter, v := resolveTime(raw, now)
	in.Time = timeFilter
	violations = append(violations, v...)

	switch {
	case raw.DepthMin != nil && raw.DepthMax != nil:
		in.Depth = &intent.Range{Min: *raw.DepthMin, Max: *raw.DepthMax}
	case raw.DepthMin != nil || raw.DepthMax != nil:
		violations = append(violations, "depth range needs both depth_min and depth_max")
	}

	if raw.Near != nil {
		if raw.Near.Lat == nil || raw.Near.Lon == nil {
			violations = append(violations, "near needs both lat and lon")
		} else {
			in.Near = &geo.Point{Lat: *raw.Near.Lat, Lon: *raw.Near.Lon}
		}
	}

	in.Parameters = canonicalParameters(raw.Parameters)

	in.Aggregation = intent.Aggregation(strings.ToLower(strings.TrimSpace(raw.Aggregation)))
	if in.Aggregation == "" {
		in.Aggregation = intent.AggregationNone
	}
	if raw.Bucket != nil {
		in.Bucket = intent.Bucket(strings.ToLower(strings.TrimSpace(*raw.Bucket)))
	}
	in.Shape = intent.Shape(strings.ToLower(strings.TrimSpace(raw.Shape)))
	if in.Shape == "" {
		in.Shape = intent.ShapeTable
	}
	if raw.Limit != nil {
		in.Limit = *raw.Limit
	}

	violations = append(violations, in.Violations()...)
	return in, violations
}

func resolveGeo(raw rawIntent) (*intent.GeoFilter, *intent.Clarification, []string) {
	if raw.Region != nil && strings.TrimSpace(*raw.Region) != "" {
		name := strings.TrimSpace(*raw.Region)
		r, ok := vocabulary.LookupRegion(name)
		if !ok {
			return nil, &intent.Clarification{
				Field:      "region",
				Value:      name,
				Candidates: vocabulary.RegionCandidates(name),
			}, nil
		}
		return &intent.GeoFilter{Region: r.Name, Box: r.Box}, nil, nil
	}

	if raw.BBox == nil {
		return nil, nil, nil
	}
	b := raw.BBox
	if b.MinLat == nil || b.MaxLat == nil || b.MinLon == nil || b.MaxLon == nil {
		return nil, nil, []string{"bbox needs all of min_lat, max_lat, min_lon, max_lon"}
	}
	return &intent.GeoFilter{Box: geo.BBox{
		MinLat: *b.MinLat, MaxLat: *b.MaxLat, MinLon: *b.MinLon, MaxLon: *b.MaxLon,
	}}, nil, nil
}

// resolveTime prefers a period label; explicit dates are used when no label is given.
func resolveTime(raw rawIntent, now time.Time) (*intent.TimeFilter, []string) {
	if raw.Period != nil && strings.TrimSpace(*raw.Period) != "" {
		label := strings.TrimSpace(*raw.Period)
		iv, err := period.Resolve(label, now)
		if err != nil {
			return nil, []string{fmt.Sprintf("period %q cannot be resolved: use YYYY, YYYY-MM, YYYY-MM-DD, YYYY-Qn or last N months", label)}
		}
		return &intent.TimeFilter{Period: label, Interval: iv}, nil
	}

	hasStart := raw.StartDate != nil && *raw.StartDate != ""
	hasEnd := raw.EndDate != nil && *raw.EndDate != ""
	switch {
	case hasStart && hasEnd:
		iv, err := period.FromDates(*raw.StartDate, *raw.EndDate)
		if err != nil {
			return nil, []string{"dates: " + err.Error()}
		}
		return &intent.TimeFilter{Interval: iv}, nil
	case hasStart || hasEnd:
		return nil, []string{"time range needs both start_date and end_date"}
	default:
		return nil, nil
	}
}

func normalizeFloatIDs(ids []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// canonicalParameters maps aliases to canonical names. Unknown names pass through so the
// query generator can report them.
func canonicalParameters(names []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, n := range names {
		name := strings.ToLower(strings.TrimSpace(n))
		if name == "" {
			continue
		}
		if c, ok := vocabulary.CanonicalParameter(name); ok {
			name = c
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	vocabulary.SortParameters(out)
	return out
}

// compact strips insignificant whitespace for error payloads and prompts.
func compact(content string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(content)); err != nil {
		return content
	}
	return buf.String()
}

package compile

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kailas-cloud/floatchat/internal/domain"
	"github.com/kailas-cloud/floatchat/internal/domain/geo"
	"github.com/kailas-cloud/floatchat/internal/domain/intent"
	"github.com/kailas-cloud/floatchat/internal/domain/period"
	"github.com/kailas-cloud/floatchat/internal/domain/query"
)

var opts = Options{DefaultRowCap: 1000, DefaultSpanCap: 5 * 365 * 24 * time.Hour}

func arabianSeaSalinity() intent.Intent {
	return intent.Intent{
		Geo: &intent.GeoFilter{Region: "Arabian Sea", Box: geo.BBox{MinLat: 5, MaxLat: 25, MinLon: 50, MaxLon: 75}},
		Time: &intent.TimeFilter{Period: "2023-03", Interval: period.Interval{
			Start: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
		}},
		Parameters:  []string{"salinity"},
		Aggregation: intent.AggregationNone,
		Shape:       intent.ShapeTable,
	}
}

func TestCompile_ArabianSeaSalinityMarch2023(t *testing.T) {
	q, err := Compile(arabianSeaSalinity(), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if q.Table != query.TableObservations {
		t.Errorf("expected observations table, got %s", q.Table)
	}
	wantCols := []string{"float_id", "cycle_number", "latitude", "longitude", "observed_at", "salinity"}
	if !reflect.DeepEqual(q.Columns, wantCols) {
		t.Errorf("columns = %v, want %v", q.Columns, wantCols)
	}
	want := "latitude BETWEEN 5 AND 25 AND longitude BETWEEN 50 AND 75 AND " +
		"observed_at >= '2023-03-01T00:00:00Z' AND observed_at < '2023-04-01T00:00:00Z' AND salinity IS NOT NULL"
	if got := q.Describe(); got != want {
		t.Errorf("describe:\ngot:  %s\nwant: %s", got, want)
	}
	if q.Template != query.TemplateNone || q.RowCap != 1000 || q.SpanCap != opts.DefaultSpanCap {
		t.Errorf("unexpected template/caps: %s %d %s", q.Template, q.RowCap, q.SpanCap)
	}
}

func TestCompile_Deterministic(t *testing.T) {
	a := arabianSeaSalinity()
	a.FloatIDs = []string{"2902116", "2902115"}
	a.Parameters = []string{"salinity", "temperature"}

	b := arabianSeaSalinity()
	b.FloatIDs = []string{"2902115", "2902116", "2902115"}
	b.Parameters = []string{"temperature", "salinity"}

	qa, err := Compile(a, opts)
	if err != nil {
		t.Fatalf("compile a: %v", err)
	}
	qb, err := Compile(b, opts)
	if err != nil {
		t.Fatalf("compile b: %v", err)
	}
	if !bytes.Equal(qa.Canonical(), qb.Canonical()) {
		t.Errorf("canonical encodings differ:\n%s\n%s", qa.Canonical(), qb.Canonical())
	}
	if qa.Fingerprint() != qb.Fingerprint() {
		t.Error("fingerprints differ")
	}

	again, _ := Compile(a, opts)
	if !bytes.Equal(qa.Canonical(), again.Canonical()) {
		t.Error("compiling the same intent twice changed the output")
	}
	if a.Parameters[0] != "salinity" {
		t.Error("compile must not reorder the caller's slices")
	}
}

func TestCompile_DescribeRoundTrip(t *testing.T) {
	in := arabianSeaSalinity()
	in.FloatIDs = []string{"2902116"}
	in.Depth = &intent.Range{Min: 0, Max: 200.5}

	q, err := Compile(in, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parsed, err := query.ParseDescription(q.Describe())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(parsed, q.Predicates) {
		t.Errorf("round trip mismatch:\ngot:  %+v\nwant: %+v", parsed, q.Predicates)
	}
}

func TestCompile_UnsupportedParameter(t *testing.T) {
	in := arabianSeaSalinity()
	in.Parameters = []string{"salinity", "ectoplasm"}

	_, err := Compile(in, opts)
	var ue *domain.UnsupportedIntentError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UnsupportedIntentError, got %v", err)
	}
	if ue.Field != "parameter" || ue.Value != "ectoplasm" {
		t.Errorf("unexpected error detail %+v", ue)
	}
	if domain.KindOf(err) != domain.KindUnsupportedIntent {
		t.Errorf("unexpected kind %s", domain.KindOf(err))
	}
}

func TestCompile_UnsupportedAggregation(t *testing.T) {
	in := arabianSeaSalinity()
	in.Aggregation = "forecast"

	_, err := Compile(in, opts)
	if !errors.Is(err, domain.ErrUnsupportedIntent) {
		t.Fatalf("expected ErrUnsupportedIntent, got %v", err)
	}
}

func TestCompile_FloatTrajectory(t *testing.T) {
	in := intent.Intent{FloatIDs: []string{"2902116"}, Aggregation: intent.AggregationNone, Shape: intent.ShapeMap}

	q, err := Compile(in, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Table != query.TableTrajectories {
		t.Errorf("expected trajectories table, got %s", q.Table)
	}
	if q.Describe() != "float_id IN ('2902116')" {
		t.Errorf("unexpected predicates %s", q.Describe())
	}
	if !reflect.DeepEqual(q.Columns, query.BaseColumns) {
		t.Errorf("unexpected columns %v", q.Columns)
	}
}

func TestCompile_DepthUsesObservations(t *testing.T) {
	in := intent.Intent{
		FloatIDs:    []string{"2902116"},
		Depth:       &intent.Range{Min: 0, Max: 100},
		Aggregation: intent.AggregationNone,
		Shape:       intent.ShapeTable,
	}
	q, err := Compile(in, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Table != query.TableObservations {
		t.Errorf("depth filter needs observations, got %s", q.Table)
	}
	if q.Columns[len(q.Columns)-1] != query.ColDepth {
		t.Errorf("expected depth column, got %v", q.Columns)
	}
}

func TestCompile_DepthFilterIsNotAParameter(t *testing.T) {
	in := arabianSeaSalinity()
	in.Aggregation = intent.AggregationTrend
	in.Depth = &intent.Range{Min: 0, Max: 100}

	q, err := Compile(in, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := q.Parameters(); len(got) != 1 || got[0] != "salinity" {
		t.Errorf("Parameters() = %v, want [salinity]", got)
	}

	in.Parameters = []string{"salinity", "depth"}
	q, err = Compile(in, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := q.Parameters(); len(got) != 2 || got[0] != "salinity" || got[1] != "depth" {
		t.Errorf("Parameters() = %v, want [salinity depth]", got)
	}
}

func TestCompile_Templates(t *testing.T) {
	trend := arabianSeaSalinity()
	trend.Aggregation = intent.AggregationTrend

	q, err := Compile(trend, opts)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if q.Template != query.TemplateTrend || q.Bucket != intent.BucketMonth {
		t.Errorf("trend default bucket: %s %s", q.Template, q.Bucket)
	}

	trend.Bucket = intent.BucketWeek
	q, _ = Compile(trend, opts)
	if q.Bucket != intent.BucketWeek {
		t.Errorf("expected week bucket, got %s", q.Bucket)
	}

	nearest := arabianSeaSalinity()
	nearest.Aggregation = intent.AggregationNearest
	nearest.Near = &geo.Point{Lat: 15, Lon: 65}
	nearest.Limit = 10
	q, err = Compile(nearest, opts)
	if err != nil {
		t.Fatalf("nearest: %v", err)
	}
	if q.Template != query.TemplateNearest || q.Origin == nil || q.Origin.Lat != 15 || q.RowCap != 10 {
		t.Errorf("unexpected nearest query %+v", q)
	}

	compare := intent.Intent{FloatIDs: []string{"2902116", "2902115"}, Aggregation: intent.AggregationCompare, Shape: intent.ShapeTable}
	q, _ = Compile(compare, opts)
	if q.Template != query.TemplateCompare || q.Bucket != "" {
		t.Errorf("unexpected compare query %+v", q)
	}
}

func TestCompile_RejectsUnresolvedIntent(t *testing.T) {
	in := arabianSeaSalinity()
	in.Clarification = &intent.Clarification{Field: "region", Value: "Atlantis"}
	if _, err := Compile(in, opts); err == nil {
		t.Fatal("expected error for intent awaiting clarification")
	}

	in = arabianSeaSalinity()
	in.Aggregation = intent.AggregationNearest
	if _, err := Compile(in, opts); err == nil {
		t.Fatal("expected error for nearest without reference point")
	}
}

package synthesize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/floatchat/internal/domain/intent"
	"github.com/kailas-cloud/floatchat/internal/domain/result"
)

var (
	numberPattern    = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	thousandsPattern = regexp.MustCompile(`(\d),(\d{3})\b`)
)

// integers up to this are counts and list markers, never checked
const freeIntegers = 10

// Ungrounded returns the numbers of text that match nothing in the summary, the intent or
// the question. A number written with k decimals matches a value within half a unit of
// its last digit.
func Ungrounded(text, question string, in intent.Intent, sum result.Summary) []string {
	known := knownNumbers(question, in, sum)

	var bad []string
	for _, tok := range numberPattern.FindAllString(stripThousands(text), -1) {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			continue
		}
		if !strings.Contains(tok, ".") && v <= freeIntegers {
			continue
		}
		if !matches(v, tolerance(tok), known) {
			bad = append(bad, tok)
		}
	}
	return bad
}

func stripThousands(s string) string {
	for {
		next := thousandsPattern.ReplaceAllString(s, "$1$2")
		if next == s {
			return s
		}
		s = next
	}
}

func tolerance(tok string) float64 {
	dec := 0
	if i := strings.IndexByte(tok, '.'); i >= 0 {
		dec = len(tok) - i - 1
	}
	return 0.5*math.Pow(10, -float64(dec)) + 1e-9
}

func matches(v, tol float64, known []float64) bool {
	for _, k := range known {
		if math.Abs(v-k) <= tol {
			return true
		}
	}
	return false
}

// knownNumbers collects absolute values, since signs are not part of the matched tokens.
func knownNumbers(question string, in intent.Intent, sum result.Summary) []float64 {
	var out []float64
	add := func(vs ...float64) {
		for _, v := range vs {
			out = append(out, math.Abs(v))
		}
	}
	addTime := func(t time.Time) {
		t = t.UTC()
		add(float64(t.Year()), float64(t.Month()), float64(t.Day()), float64(t.Hour()), float64(t.Minute()))
	}
	addText := func(s string) {
		for _, tok := range numberPattern.FindAllString(stripThousands(s), -1) {
			if v, err := strconv.ParseFloat(tok, 64); err == nil {
				add(v)
			}
		}
	}

	add(float64(sum.RowCount), float64(sum.RowCap), float64(len(sum.Sample)))
	for _, row := range sum.Sample {
		for _, cell := range row {
			switch x := cell.(type) {
			case time.Time:
				addTime(x)
			case string:
				addText(x)
			default:
				if f, ok := result.ToFloat(x); ok {
					add(f)
				}
			}
		}
	}
	for _, st := range sum.Stats {
		add(float64(st.Count))
		for _, p := range []*float64{st.Min, st.Max, st.Mean} {
			if p != nil {
				add(*p)
			}
		}
		if st.First != nil {
			addTime(*st.First)
		}
		if st.Last != nil {
			addTime(*st.Last)
		}
	}

	// the intent description is part of the grounding context
	addText(in.Describe())
	if in.Geo != nil {
		add(in.Geo.Box.MinLat, in.Geo.Box.MaxLat, in.Geo.Box.MinLon, in.Geo.Box.MaxLon)
	}
	if in.Time != nil {
		addTime(in.Time.Interval.Start)
		addTime(in.Time.Interval.Last())
		addTime(in.Time.Interval.End)
	}
	if in.Depth != nil {
		add(in.Depth.Min, in.Depth.Max)
	}
	if in.Near != nil {
		add(in.Near.Lat, in.Near.Lon)
	}
	add(float64(in.Limit))
	addText(question)
	return out
}

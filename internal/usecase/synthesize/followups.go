package synthesize

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/floatchat/internal/domain/intent"
	"github.com/kailas-cloud/floatchat/internal/domain/query"
	"github.com/kailas-cloud/floatchat/internal/domain/result"
	"github.com/kailas-cloud/floatchat/internal/domain/vocabulary"
)

// MaxFollowUps bounds the suggestions per answer.
const MaxFollowUps = 3

// FollowUps suggests questions built from intent fields the user has not used yet.
// Only vocabulary names and values seen in the result appear in them.
func FollowUps(in intent.Intent, sum result.Summary) []string {
	scope := scopeOf(in)
	var out []string

	if p, ok := unusedParameter(in.Parameters); ok {
		out = append(out, sentence("Show", p, scope, periodOf(in)))
	}

	if in.Aggregation != intent.AggregationTrend && len(in.Parameters) > 0 {
		out = append(out, sentence("How did", in.Parameters[0], "change over time", scope)+"?")
	}

	if len(in.FloatIDs) == 0 {
		if ids := sum.DistinctText(query.ColFloatID); len(ids) > 0 {
			out = append(out, "Show the trajectory of float "+ids[0])
		}
	} else if len(in.FloatIDs) == 1 && in.Aggregation != intent.AggregationCompare && in.Geo != nil {
		out = append(out, sentence("Compare float", in.FloatIDs[0], "with other floats", scope))
	}

	if in.Time == nil {
		out = append(out, sentence("Show the same data for the last 12 months", scope))
	}

	if len(out) > MaxFollowUps {
		out = out[:MaxFollowUps]
	}
	return out
}

func unusedParameter(asked []string) (string, bool) {
	for _, p := range vocabulary.Parameters {
		// не физические величины, а координата
		if p.Name == query.ColPressure || p.Name == query.ColDepth {
			continue
		}
		if !slices.Contains(asked, p.Name) {
			return p.Name, true
		}
	}
	return "", false
}

func scopeOf(in intent.Intent) string {
	switch {
	case len(in.FloatIDs) == 1:
		return "for float " + in.FloatIDs[0]
	case len(in.FloatIDs) > 1:
		return "for the same floats"
	case in.Geo != nil && in.Geo.Region != "":
		return "in the " + in.Geo.Region
	case in.Geo != nil:
		return "in the same area"
	default:
		return ""
	}
}

func periodOf(in intent.Intent) string {
	switch {
	case in.Time == nil:
		return ""
	case in.Time.Period != "":
		return "during " + in.Time.Period
	default:
		return "for the same period"
	}
}

func sentence(parts ...string) string {
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

package synthesize

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/floatchat/internal/domain/intent"
	"github.com/kailas-cloud/floatchat/internal/domain/query"
	"github.com/kailas-cloud/floatchat/internal/domain/result"
)

// NoData is the answer for an empty result.
func NoData(in intent.Intent) string {
	return fmt.Sprintf("No ARGO data found matching your query (%s).", in.Describe())
}

// Template builds an answer directly from the summary fields.
func Template(in intent.Intent, sum result.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s for %s.", sum.RowCount, plural(sum.RowCount, "row", "rows"), in.Describe())

	for _, st := range sum.Stats {
		switch {
		case st.Column == query.ColObservedAt && st.First != nil && st.Last != nil:
			fmt.Fprintf(&b, " Observations span %s to %s.", result.FormatValue(*st.First), result.FormatValue(*st.Last))
		case (query.IsMeasurement(st.Column) || query.IsLevel(st.Column)) && st.Min != nil && st.Max != nil && st.Mean != nil:
			fmt.Fprintf(&b, " %s ranged from %s to %s (mean %s).", capitalize(st.Column),
				result.FormatNumber(*st.Min), result.FormatNumber(*st.Max), result.FormatNumber(*st.Mean))
		}
	}

	if ids := sum.DistinctText(query.ColFloatID); len(ids) > 0 && len(ids) <= 5 {
		fmt.Fprintf(&b, " %s: %s.", plural(len(ids), "Float", "Floats"), strings.Join(ids, ", "))
	}

	if sum.Truncated {
		b.WriteString(" " + truncationNote(sum))
	}
	return b.String()
}

func truncationNote(sum result.Summary) string {
	return fmt.Sprintf("Results were truncated at %d rows; narrow the area or period to see everything.", sum.RowCap)
}

func withTruncationNote(text string, sum result.Summary) string {
	if !sum.Truncated || strings.Contains(strings.ToLower(text), "truncat") {
		return text
	}
	return text + " " + truncationNote(sum)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

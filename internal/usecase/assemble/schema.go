package assemble

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/floatchat/internal/domain/query"
	"github.com/kailas-cloud/floatchat/internal/domain/vocabulary"
)

// SchemaSummary is the static part of every payload: tables, columns, parameters, regions
// and the period forms the extractor understands.
func SchemaSummary() string {
	var b strings.Builder

	b.WriteString("Tables:\n")
	for _, t := range []query.Table{query.TableObservations, query.TableTrajectories} {
		fmt.Fprintf(&b, "- %s(", t)
		var cols []string
		for _, c := range orderedColumns(t) {
			ct, _ := query.TypeOf(t, c)
			cols = append(cols, c+" "+string(ct))
		}
		b.WriteString(strings.Join(cols, ", "))
		b.WriteString(")\n")
	}

	b.WriteString("Parameters:\n")
	for _, p := range vocabulary.Parameters {
		fmt.Fprintf(&b, "- %s", p.Name)
		if p.Unit != "" {
			fmt.Fprintf(&b, " [%s]", p.Unit)
		}
		fmt.Fprintf(&b, ": %s", p.Description)
		if len(p.Aliases) > 0 {
			fmt.Fprintf(&b, " (aka %s)", strings.Join(p.Aliases, ", "))
		}
		b.WriteByte('\n')
	}

	b.WriteString("Regions: ")
	b.WriteString(strings.Join(vocabulary.RegionNames(), ", "))
	b.WriteByte('\n')

	b.WriteString("Periods: YYYY, YYYY-MM, YYYY-MM-DD, YYYY-Qn, Month YYYY, last N days/weeks/months/years, this month, this year\n")
	b.WriteString("Float ids: 7-digit WMO numbers\n")
	return b.String()
}

// orderedColumns lists the columns of t: base columns, then measurements in vocabulary order.
func orderedColumns(t query.Table) []string {
	var out []string
	for _, c := range query.BaseColumns {
		if query.AllowedColumn(t, c) {
			out = append(out, c)
		}
	}
	for _, name := range vocabulary.ParameterNames() {
		if query.AllowedColumn(t, name) {
			out = append(out, name)
		}
	}
	return out
}

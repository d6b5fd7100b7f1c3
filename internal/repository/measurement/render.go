// Package measurement runs compiled queries against the ARGO measurement store over
// database/sql (PostgreSQL via pgx, or a DuckDB file).
package measurement

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/kailas-cloud/floatchat/internal/domain/geo"
	"github.com/kailas-cloud/floatchat/internal/domain/intent"
	"github.com/kailas-cloud/floatchat/internal/domain/query"
	"github.com/kailas-cloud/floatchat/internal/domain/result"
)

// Statement is a parameterized SQL statement with the declared result columns.
type Statement struct {
	SQL     string
	Args    []any
	Columns []result.Column
}

// Computed column names.
const (
	colBucket   = "bucket"
	colRows     = "n"
	colDistance = "distance_km"
)

// statementBuilder accumulates $n placeholders.
type statementBuilder struct {
	args []any
}

func (b *statementBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// Render turns q into SQL. Identifiers come only from the schema allow-list and every
// value is bound as a parameter.
func Render(q query.CompiledQuery) (Statement, error) {
	if !query.AllowedTable(q.Table) {
		return Statement{}, fmt.Errorf("table %q is not allowed", q.Table)
	}
	for _, c := range q.ReferencedColumns() {
		if !query.AllowedColumn(q.Table, c) {
			return Statement{}, fmt.Errorf("column %q is not allowed on %s", c, q.Table)
		}
	}
	if q.RowCap <= 0 {
		return Statement{}, fmt.Errorf("row cap must be positive, got %d", q.RowCap)
	}

	var b statementBuilder
	var (
		sel     []string
		cols    []result.Column
		groupBy string
		orderBy string
	)

	switch q.Template {
	case query.TemplateNone, "":
		sel, cols = projection(q.Table, q.Columns)
		orderBy = query.ColFloatID + ", " + query.ColObservedAt
		if slices.Contains(q.Columns, query.ColPressure) {
			orderBy += ", " + query.ColPressure
		}

	case query.TemplateCompare:
		sel = []string{query.ColFloatID, "COUNT(*) AS " + colRows}
		cols = []result.Column{
			{Name: query.ColFloatID, Type: string(query.TypeText)},
			{Name: colRows, Type: string(query.TypeInteger)},
		}
		aggSel, aggCols := aggregates(q.Parameters(), "mean", "min", "max")
		sel = append(sel, aggSel...)
		cols = append(cols, aggCols...)
		if len(q.Parameters()) == 0 {
			sel = append(sel,
				"MIN("+query.ColObservedAt+") AS first_observed",
				"MAX("+query.ColObservedAt+") AS last_observed")
			cols = append(cols,
				result.Column{Name: "first_observed", Type: string(query.TypeTimestamp)},
				result.Column{Name: "last_observed", Type: string(query.TypeTimestamp)})
		}
		groupBy = query.ColFloatID
		orderBy = query.ColFloatID

	case query.TemplateTrend:
		unit, err := truncUnit(q.Bucket)
		if err != nil {
			return Statement{}, err
		}
		sel = []string{
			fmt.Sprintf("date_trunc('%s', %s) AS %s", unit, query.ColObservedAt, colBucket),
			"COUNT(*) AS " + colRows,
		}
		cols = []result.Column{
			{Name: colBucket, Type: string(query.TypeTimestamp)},
			{Name: colRows, Type: string(query.TypeInteger)},
		}
		aggSel, aggCols := aggregates(q.Parameters(), "mean")
		sel = append(sel, aggSel...)
		cols = append(cols, aggCols...)
		groupBy = "1"
		orderBy = "1"

	case query.TemplateNearest:
		if q.Origin == nil {
			return Statement{}, fmt.Errorf("nearest template requires an origin")
		}
		sel, cols = projection(q.Table, q.Columns)
		sel = append(sel, distanceExpr(&b, *q.Origin)+" AS "+colDistance)
		cols = append(cols, result.Column{Name: colDistance, Type: string(query.TypeDouble)})
		orderBy = colDistance + ", " + query.ColObservedAt

	default:
		return Statement{}, fmt.Errorf("unknown template %q", q.Template)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(sel, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(string(q.Table))

	if len(q.Predicates) > 0 {
		conds := make([]string, len(q.Predicates))
		for i, p := range q.Predicates {
			c, err := predicateSQL(&b, p)
			if err != nil {
				return Statement{}, err
			}
			conds[i] = c
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	if groupBy != "" {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(groupBy)
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderBy)
	// one row past the cap tells a cut result from one that fits exactly
	sb.WriteString(" LIMIT ")
	sb.WriteString(b.bind(q.RowCap + 1))

	return Statement{SQL: sb.String(), Args: b.args, Columns: cols}, nil
}

func projection(t query.Table, columns []string) ([]string, []result.Column) {
	sel := make([]string, 0, len(columns))
	cols := make([]result.Column, 0, len(columns))
	for _, c := range columns {
		ct, _ := query.TypeOf(t, c)
		sel = append(sel, c)
		cols = append(cols, result.Column{Name: c, Type: string(ct)})
	}
	return sel, cols
}

var aggFuncs = map[string]string{"mean": "AVG", "min": "MIN", "max": "MAX"}

// aggregates renders fn(param) AS param_fn for each parameter; a single "mean" keeps the
// parameter name so trend series read naturally.
func aggregates(params []string, fns ...string) ([]string, []result.Column) {
	var (
		sel  []string
		cols []result.Column
	)
	for _, p := range params {
		for _, fn := range fns {
			alias := p + "_" + fn
			if len(fns) == 1 {
				alias = p
			}
			sel = append(sel, fmt.Sprintf("%s(%s) AS %s", aggFuncs[fn], p, alias))
			cols = append(cols, result.Column{Name: alias, Type: string(query.TypeDouble)})
		}
	}
	return sel, cols
}

func truncUnit(b intent.Bucket) (string, error) {
	switch b {
	case intent.BucketDay, intent.BucketWeek, intent.BucketMonth, intent.BucketYear:
		return string(b), nil
	case "":
		return string(intent.BucketMonth), nil
	default:
		return "", fmt.Errorf("unknown bucket %q", b)
	}
}

// distanceExpr is the haversine great-circle distance in kilometres.
func distanceExpr(b *statementBuilder, origin geo.Point) string {
	lat := b.bind(origin.Lat)
	lon := b.bind(origin.Lon)
	return fmt.Sprintf(
		"%s * 2 * asin(sqrt(power(sin(radians(%s - %s) / 2), 2) + "+
			"cos(radians(%s)) * cos(radians(%s)) * power(sin(radians(%s - %s) / 2), 2)))",
		strconv.FormatFloat(geo.EarthRadiusKm, 'f', -1, 64),
		query.ColLatitude, lat,
		lat, query.ColLatitude,
		query.ColLongitude, lon,
	)
}

func predicateSQL(b *statementBuilder, p query.Predicate) (string, error) {
	switch p.Kind {
	case query.KindIn:
		if len(p.Values) == 0 {
			return "", fmt.Errorf("empty IN set on %s", p.Column)
		}
		ph := make([]string, len(p.Values))
		for i, v := range p.Values {
			ph[i] = b.bind(v)
		}
		return fmt.Sprintf("%s IN (%s)", p.Column, strings.Join(ph, ", ")), nil
	case query.KindRange:
		if p.Range == nil {
			return "", fmt.Errorf("range predicate on %s without bounds", p.Column)
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", p.Column, b.bind(p.Range.Min), b.bind(p.Range.Max)), nil
	case query.KindWindow:
		if p.Window == nil {
			return "", fmt.Errorf("window predicate on %s without interval", p.Column)
		}
		return fmt.Sprintf("%s >= %s AND %s < %s", p.Column,
			b.bind(p.Window.Start.UTC()), p.Column, b.bind(p.Window.End.UTC())), nil
	case query.KindPresent:
		return p.Column + " IS NOT NULL", nil
	default:
		return "", fmt.Errorf("unknown predicate kind %q", p.Kind)
	}
}

// Package result holds measurement rows and the bounded summary used for grounding.
package result

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Column is a result column with its declared type.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// RowSet is the raw store response.
type RowSet struct {
	Columns []Column
	Rows    [][]any
}

// Stat aggregates one column over every returned row.
type Stat struct {
	Column string     `json:"column"`
	Count  int        `json:"count"`
	Min    *float64   `json:"min,omitempty"`
	Max    *float64   `json:"max,omitempty"`
	Mean   *float64   `json:"mean,omitempty"`
	First  *time.Time `json:"first,omitempty"`
	Last   *time.Time `json:"last,omitempty"`
}

// Summary is what the rest of the pipeline sees of a result: never the full row set.
type Summary struct {
	RowCount  int      `json:"row_count"`
	RowCap    int      `json:"row_cap"`
	Columns   []Column `json:"columns"`
	Truncated bool     `json:"truncated"`
	Sample    [][]any  `json:"sample"`
	Stats     []Stat   `json:"stats,omitempty"`
}

// Summarize builds a Summary with at most sampleSize sample rows. The store is asked for
// one row past rowCap: getting it back means the result was cut, and the extra row is
// dropped before counting.
func Summarize(rs RowSet, rowCap, sampleSize int) Summary {
	rows := rs.Rows
	truncated := rowCap > 0 && len(rows) > rowCap
	if truncated {
		rows = rows[:rowCap]
	}
	rs.Rows = rows
	n := len(rows)
	s := Summary{
		RowCount:  n,
		RowCap:    rowCap,
		Columns:   rs.Columns,
		Truncated: truncated,
	}
	if sampleSize > n {
		sampleSize = n
	}
	if sampleSize > 0 {
		s.Sample = make([][]any, sampleSize)
		copy(s.Sample, rs.Rows[:sampleSize])
	}
	for i, c := range rs.Columns {
		if st, ok := columnStat(c.Name, i, rs.Rows); ok {
			s.Stats = append(s.Stats, st)
		}
	}
	return s
}

func columnStat(name string, idx int, rows [][]any) (Stat, bool) {
	st := Stat{Column: name}
	var (
		sum     float64
		numeric int
	)
	for _, r := range rows {
		if idx >= len(r) || r[idx] == nil {
			continue
		}
		if t, ok := r[idx].(time.Time); ok {
			st.Count++
			if st.First == nil || t.Before(*st.First) {
				tt := t
				st.First = &tt
			}
			if st.Last == nil || t.After(*st.Last) {
				tt := t
				st.Last = &tt
			}
			continue
		}
		f, ok := ToFloat(r[idx])
		if !ok {
			continue
		}
		st.Count++
		numeric++
		sum += f
		if st.Min == nil || f < *st.Min {
			v := f
			st.Min = &v
		}
		if st.Max == nil || f > *st.Max {
			v := f
			st.Max = &v
		}
	}
	if st.Count == 0 {
		return Stat{}, false
	}
	if numeric > 0 {
		mean := sum / float64(numeric)
		st.Mean = &mean
	}
	return st, true
}

// ToFloat converts numeric row values. Strings are not numbers here: float ids stay text.
func ToFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), !math.IsNaN(float64(x))
	case int:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}

// Stat returns the statistics of a column.
func (s Summary) Stat(column string) (Stat, bool) {
	for _, st := range s.Stats {
		if st.Column == column {
			return st, true
		}
	}
	return Stat{}, false
}

// ColumnIndex returns the position of a column, or -1.
func (s Summary) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// DistinctText returns distinct non-empty string values of a column from the sample, in order.
func (s Summary) DistinctText(column string) []string {
	idx := s.ColumnIndex(column)
	if idx < 0 {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	for _, r := range s.Sample {
		if idx >= len(r) {
			continue
		}
		v := FormatValue(r[idx])
		if v == "" {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// FormatValue renders a cell for prompts and templates.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.UTC().Format("2006-01-02 15:04")
	case float64:
		return FormatNumber(x)
	case float32:
		return FormatNumber(float64(x))
	default:
		return fmt.Sprint(x)
	}
}

// FormatNumber renders a float with at most 3 decimals and no trailing zeros.
func FormatNumber(f float64) string {
	s := fmt.Sprintf("%.3f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// Digest is a one-line description used in conversation memory.
func (s Summary) Digest() string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	d := fmt.Sprintf("%d rows [%s]", s.RowCount, strings.Join(names, ", "))
	if s.Truncated {
		d += fmt.Sprintf(" truncated at %d", s.RowCap)
	}
	for _, st := range s.Stats {
		if st.Min != nil && st.Max != nil {
			d += fmt.Sprintf("; %s %s..%s", st.Column, FormatNumber(*st.Min), FormatNumber(*st.Max))
		}
	}
	return d
}

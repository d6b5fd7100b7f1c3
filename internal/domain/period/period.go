// Package period resolves named time periods into half-open UTC intervals.
package period

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownPeriod signals a label that is not one of the supported period forms.
var ErrUnknownPeriod = errors.New("unknown period")

// Interval is a half-open time interval [Start, End) in UTC.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate checks that both bounds are set and ordered.
func (iv Interval) Validate() error {
	if iv.Start.IsZero() || iv.End.IsZero() {
		return errors.New("interval must have both start and end")
	}
	if iv.End.Before(iv.Start) {
		return fmt.Errorf("interval end %s before start %s", iv.End.Format(time.RFC3339), iv.Start.Format(time.RFC3339))
	}
	return nil
}

// Span returns End - Start.
func (iv Interval) Span() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Contains reports whether t falls inside [Start, End).
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Last returns the last representable instant of the interval.
func (iv Interval) Last() time.Time {
	return iv.End.Add(-time.Nanosecond)
}

func (iv Interval) String() string {
	return iv.Start.Format(time.RFC3339) + ".." + iv.End.Format(time.RFC3339)
}

var (
	quarterPattern  = regexp.MustCompile(`^(\d{4})-?q([1-4])$`)
	relativePattern = regexp.MustCompile(`^(?:last|past) (\d+) (day|week|month|year)s?$`)
)

// Resolve converts a period label into an interval. Relative labels are anchored at now.
//
// Supported: "2023", "2023-03", "2023-03-15", "2023-Q1", "March 2023", "last 6 months",
// "past 2 years", "last week", "last month", "last year", "this month", "this year".
func Resolve(label string, now time.Time) (Interval, error) {
	now = now.UTC()
	l := strings.ToLower(strings.Join(strings.Fields(label), " "))

	if iv, ok := resolveAbsolute(l); ok {
		return iv, nil
	}

	switch l {
	case "last week", "past week":
		return Interval{Start: now.AddDate(0, 0, -7), End: now}, nil
	case "last month", "past month":
		return Interval{Start: now.AddDate(0, -1, 0), End: now}, nil
	case "last year", "past year":
		return Interval{Start: now.AddDate(-1, 0, 0), End: now}, nil
	case "this month":
		return Interval{Start: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), End: now}, nil
	case "this year":
		return Interval{Start: time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC), End: now}, nil
	}

	if m := relativePattern.FindStringSubmatch(l); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n <= 0 {
			return Interval{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, label)
		}
		var start time.Time
		switch m[2] {
		case "day":
			start = now.AddDate(0, 0, -n)
		case "week":
			start = now.AddDate(0, 0, -7*n)
		case "month":
			start = now.AddDate(0, -n, 0)
		case "year":
			start = now.AddDate(-n, 0, 0)
		}
		return Interval{Start: start, End: now}, nil
	}

	return Interval{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, label)
}

func resolveAbsolute(l string) (Interval, bool) {
	if t, err := time.Parse("2006-01-02", l); err == nil {
		return Interval{Start: t, End: t.AddDate(0, 0, 1)}, true
	}
	if t, err := time.Parse("2006-01", l); err == nil {
		return Interval{Start: t, End: t.AddDate(0, 1, 0)}, true
	}
	for _, layout := range []string{"January 2006", "Jan 2006"} {
		if t, err := time.Parse(layout, l); err == nil {
			return Interval{Start: t, End: t.AddDate(0, 1, 0)}, true
		}
	}
	if len(l) == 4 {
		if t, err := time.Parse("2006", l); err == nil {
			return Interval{Start: t, End: t.AddDate(1, 0, 0)}, true
		}
	}
	if m := quarterPattern.FindStringSubmatch(l); m != nil {
		year, _ := strconv.Atoi(m[1])
		q, _ := strconv.Atoi(m[2])
		start := time.Date(year, time.Month(3*(q-1)+1), 1, 0, 0, 0, 0, time.UTC)
		return Interval{Start: start, End: start.AddDate(0, 3, 0)}, true
	}
	return Interval{}, false
}

// ParseDate accepts "2006-01-02" or RFC 3339 and returns UTC.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t.UTC(), nil
}

// FromDates builds an interval from two dates. A date-only end covers the whole day;
// an RFC 3339 end is exclusive.
func FromDates(start, end string) (Interval, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return Interval{}, err
	}
	if _, perr := time.Parse("2006-01-02", end); perr == nil {
		e = e.AddDate(0, 0, 1)
	}
	iv := Interval{Start: s, End: e}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

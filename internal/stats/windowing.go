package stats

import (
	"strings"
	"time"
)

// Period selects a time window relative to a reference instant.
type Period string

const (
	PeriodThisMonth   Period = "this_month"
	PeriodLast3Months Period = "last_3_months"
	PeriodThisYear    Period = "this_year"
	PeriodRolling12M  Period = "rolling_12m"
	PeriodLast30Days  Period = "last_30_days"
	PeriodLast60Days  Period = "last_60_days"
	PeriodLast90Days  Period = "last_90_days"
	PeriodLast365Days Period = "last_365_days"
	PeriodCustom      Period = "custom"
)

// Fallbacks used by callers that prefer a plausible window over an error.
const (
	DefaultAreaPeriod   = PeriodThisMonth
	DefaultPeoplePeriod = PeriodLast30Days
)

// Periods lists every supported period key.
var Periods = []Period{
	PeriodThisMonth, PeriodLast3Months, PeriodThisYear, PeriodRolling12M,
	PeriodLast30Days, PeriodLast60Days, PeriodLast90Days, PeriodLast365Days, PeriodCustom,
}

var fixedDayPeriods = map[Period]int{
	PeriodLast30Days:  30,
	PeriodLast60Days:  60,
	PeriodLast90Days:  90,
	PeriodLast365Days: 365,
}

// ParsePeriod validates a period key. Short aliases ("30d", "12m", "ytd") are accepted.
func ParsePeriod(key string) (Period, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	switch k {
	case "30d", "30":
		return PeriodLast30Days, nil
	case "60d", "60":
		return PeriodLast60Days, nil
	case "90d", "90":
		return PeriodLast90Days, nil
	case "365d", "365":
		return PeriodLast365Days, nil
	case "12m":
		return PeriodRolling12M, nil
	case "3m":
		return PeriodLast3Months, nil
	case "ytd":
		return PeriodThisYear, nil
	case "month":
		return PeriodThisMonth, nil
	}
	for _, p := range Periods {
		if string(p) == k {
			return p, nil
		}
	}
	return "", invalidArgf("unknown period %q", key)
}

// ParsePeriodOr resolves a period key, substituting fallback for anything unrecognized.
func ParsePeriodOr(key string, fallback Period) Period {
	p, err := ParsePeriod(key)
	if err != nil {
		return fallback
	}
	return p
}

// Window is a concrete instant range. End is exclusive unless EndInclusive is set.
type Window struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	EndInclusive bool      `json:"end_inclusive,omitempty"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	if w.EndInclusive {
		return !t.After(w.End)
	}
	return t.Before(w.End)
}

// Resolve turns a period into a concrete window relative to ref (zero ref means now).
// from/to are only consulted for PeriodCustom.
func Resolve(period Period, ref time.Time, from, to *time.Time) (Window, error) {
	if ref.IsZero() {
		ref = time.Now()
	}

	if days, ok := fixedDayPeriods[period]; ok {
		return Window{Start: ref.AddDate(0, 0, -days), End: ref}, nil
	}

	monthStart := SnapToStart(ref, "month")
	switch period {
	case PeriodThisMonth:
		return Window{Start: monthStart, End: ref}, nil
	case PeriodLast3Months:
		return Window{Start: monthStart.AddDate(0, -2, 0), End: ref}, nil
	case PeriodThisYear:
		return Window{Start: time.Date(ref.Year(), time.January, 1, 0, 0, 0, 0, ref.Location()), End: ref}, nil
	case PeriodRolling12M:
		return Window{Start: monthStart.AddDate(0, -11, 0), End: ref}, nil
	case PeriodCustom:
		start := ref.AddDate(0, 0, -30)
		if from != nil && !from.IsZero() {
			start = *from
		}
		start = SnapToStart(start, "day")

		end := ref
		if to != nil && !to.IsZero() {
			end = SnapToEnd(*to, "day")
		}
		if start.After(end) {
			return Window{}, invalidArgf("custom range starts %s after it ends %s", start.Format(time.DateOnly), end.Format(time.DateOnly))
		}
		return Window{Start: start, End: end, EndInclusive: true}, nil
	}

	return Window{}, invalidArgf("unknown period %q", period)
}

// MonthRange returns [first instant of the month, first instant of the next month).
// monthIndex is 0-based.
func MonthRange(year, monthIndex int, loc *time.Location) (Window, error) {
	if monthIndex < 0 || monthIndex > 11 {
		return Window{}, invalidArgf("month index %d out of range 0..11", monthIndex)
	}
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, time.Month(monthIndex+1), 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}, nil
}

// RollingMonths returns n calendar months ending with the month containing ref, oldest first.
// Each window has inclusive boundaries (first instant through last nanosecond of the month).
func RollingMonths(ref time.Time, n int) []Window {
	if ref.IsZero() {
		ref = time.Now()
	}
	current := SnapToStart(ref, "month")
	out := make([]Window, 0, max(n, 0))
	for i := n - 1; i >= 0; i-- {
		start := current.AddDate(0, -i, 0)
		out = append(out, Window{Start: start, End: SnapToEnd(start, "month"), EndInclusive: true})
	}
	return out
}

// CalendarMonths returns the 12 months of year, January first.
func CalendarMonths(year int, loc *time.Location) []Window {
	out := make([]Window, 0, 12)
	for m := 0; m < 12; m++ {
		w, _ := MonthRange(year, m, loc)
		out = append(out, w)
	}
	return out
}

// QuarterOf maps a 0-based month index to its quarter (1..4).
func QuarterOf(monthIndex int) int {
	return monthIndex/3 + 1
}

// QuarterMonths returns the first and last 0-based month index of quarter q.
func QuarterMonths(q int) (first, last int) {
	return q*3 - 3, q*3 - 1
}

// SnapToStart normalizes a timestamp to the beginning of its bucket (0:00:00).
// bucket is "month" or "day".
func SnapToStart(t time.Time, bucket string) time.Time {
	if t.IsZero() {
		return t
	}
	if bucket == "month" {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SnapToEnd normalizes a timestamp to the very end of its bucket (23:59:59.999...).
func SnapToEnd(t time.Time, bucket string) time.Time {
	if t.IsZero() {
		return t
	}
	if bucket == "month" {
		nextMonth := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
		return nextMonth.Add(-time.Nanosecond)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// IsPartial returns true if the bucket starting at bucketStart still contains now.
func IsPartial(bucketStart time.Time, bucket string, now time.Time) bool {
	bucketEnd := SnapToEnd(bucketStart, bucket)
	return !now.Before(bucketStart) && !now.After(bucketEnd)
}

// GenerateLabel returns a human-readable label for a bucket ("Jan 2024" or "2024-01-15").
func GenerateLabel(t time.Time, bucket string) string {
	if bucket == "month" {
		return t.Format("Jan 2006")
	}
	return t.Format("2006-01-02")
}

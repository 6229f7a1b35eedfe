package stats

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"audit-analytics/internal/audit"
)

// Avg is an average score with the number of runs behind it.
// Value is nil when Count is zero so "no data" never reads as 0%.
type Avg struct {
	Value *float64 `json:"avg"`
	Count int      `json:"count"`
}

// Average averages the valid scores (finite, within [0,100]) of runs, discarding the rest.
func Average(runs []audit.Run) Avg {
	sum := 0.0
	count := 0
	for _, r := range runs {
		if !ValidScore(r.Score) {
			continue
		}
		sum += *r.Score
		count++
	}
	if count == 0 {
		return Avg{}
	}
	return Avg{Value: floatPtr(Round2(sum / float64(count))), Count: count}
}

// BucketAndAverage averages the runs matching pred. Time-bucketed groupings go through here.
func BucketAndAverage(runs []audit.Run, pred func(audit.Run) bool) Avg {
	var matched []audit.Run
	for _, r := range runs {
		if pred(r) {
			matched = append(matched, r)
		}
	}
	return Average(matched)
}

// FilterEligible keeps submitted runs executed inside w.
func FilterEligible(runs []audit.Run, w Window) []audit.Run {
	var out []audit.Run
	for _, r := range runs {
		if r.Eligible() && w.Contains(r.ExecutedAt) {
			out = append(out, r)
		}
	}
	return out
}

// SubmittedOnly keeps submitted runs regardless of time.
func SubmittedOnly(runs []audit.Run) []audit.Run {
	var out []audit.Run
	for _, r := range runs {
		if r.Eligible() {
			out = append(out, r)
		}
	}
	return out
}

// InWindow is a predicate matching runs executed inside w.
func InWindow(w Window) func(audit.Run) bool {
	return func(r audit.Run) bool { return w.Contains(r.ExecutedAt) }
}

// ByArea averages runs per area id.
func ByArea(runs []audit.Run) map[string]Avg {
	return byField(runs, func(r audit.Run) string { return r.AreaID })
}

// ByTemplate averages runs per template id.
func ByTemplate(runs []audit.Run) map[string]Avg {
	return byField(runs, func(r audit.Run) string { return r.TemplateID })
}

func byField(runs []audit.Run, field func(audit.Run) string) map[string]Avg {
	buckets := make(map[string][]audit.Run)
	for _, r := range runs {
		buckets[field(r)] = append(buckets[field(r)], r)
	}
	out := make(map[string]Avg, len(buckets))
	for id, members := range buckets {
		out[id] = Average(members)
	}
	return out
}

// ByMonth averages runs for each calendar month of year (index 0 = January).
func ByMonth(runs []audit.Run, year int, loc *time.Location) [12]Avg {
	var out [12]Avg
	for m, w := range CalendarMonths(year, loc) {
		out[m] = BucketAndAverage(runs, InWindow(w))
	}
	return out
}

// ByQuarter averages runs for each quarter of year (index 0 = Q1).
func ByQuarter(runs []audit.Run, year int, loc *time.Location) [4]Avg {
	var out [4]Avg
	for q := 1; q <= 4; q++ {
		first, last := QuarterMonths(q)
		start, _ := MonthRange(year, first, loc)
		end, _ := MonthRange(year, last, loc)
		out[q-1] = BucketAndAverage(runs, InWindow(Window{Start: start.Start, End: end.End}))
	}
	return out
}

// ByYear averages all runs executed in year.
func ByYear(runs []audit.Run, year int, loc *time.Location) Avg {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	return BucketAndAverage(runs, InWindow(Window{Start: start, End: start.AddDate(1, 0, 0)}))
}

// ByRollingMonth averages runs for the n months ending at ref's month, oldest first.
func ByRollingMonth(runs []audit.Run, ref time.Time, n int) []Avg {
	windows := RollingMonths(ref, n)
	out := make([]Avg, len(windows))
	for i, w := range windows {
		out[i] = BucketAndAverage(runs, InWindow(w))
	}
	return out
}

// KeyFunc derives one grouping key from a run. Returning false drops the run from the grouping.
type KeyFunc func(audit.Run) (string, bool)

// KeyArea groups by area id.
func KeyArea(r audit.Run) (string, bool) { return r.AreaID, r.AreaID != "" }

// KeyTemplate groups by template id.
func KeyTemplate(r audit.Run) (string, bool) { return r.TemplateID, r.TemplateID != "" }

// KeyMember groups by executing member. Runs without a member are dropped.
func KeyMember(r audit.Run) (string, bool) { return r.MemberID, r.MemberID != "" }

// KeyMonth groups by calendar month ("2024-03") in loc.
func KeyMonth(loc *time.Location) KeyFunc {
	return func(r audit.Run) (string, bool) {
		return inLoc(r.ExecutedAt, loc).Format("2006-01"), !r.ExecutedAt.IsZero()
	}
}

// KeyQuarter groups by quarter ("2024-Q1") in loc.
func KeyQuarter(loc *time.Location) KeyFunc {
	return func(r audit.Run) (string, bool) {
		t := inLoc(r.ExecutedAt, loc)
		return fmt.Sprintf("%d-Q%d", t.Year(), QuarterOf(int(t.Month())-1)), !r.ExecutedAt.IsZero()
	}
}

// KeyYear groups by calendar year in loc.
func KeyYear(loc *time.Location) KeyFunc {
	return func(r audit.Run) (string, bool) {
		return inLoc(r.ExecutedAt, loc).Format("2006"), !r.ExecutedAt.IsZero()
	}
}

func inLoc(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	return t.In(loc)
}

// GroupStat is one cell of a composed grouping.
type GroupStat struct {
	Keys []string `json:"keys"`
	Avg
}

// Aggregate groups runs by the composed keys (e.g. area x month) and averages each group.
// Groups come back sorted by their keys.
func Aggregate(runs []audit.Run, keys ...KeyFunc) []GroupStat {
	const sep = "\x1f"
	type group struct {
		keys []string
		runs []audit.Run
	}
	groups := make(map[string]*group)
	for _, r := range runs {
		parts := make([]string, 0, len(keys))
		ok := true
		for _, kf := range keys {
			k, keep := kf(r)
			if !keep {
				ok = false
				break
			}
			parts = append(parts, k)
		}
		if !ok {
			continue
		}
		id := strings.Join(parts, sep)
		g, exists := groups[id]
		if !exists {
			g = &group{keys: parts}
			groups[id] = g
		}
		g.runs = append(g.runs, r)
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]GroupStat, 0, len(ids))
	for _, id := range ids {
		g := groups[id]
		out = append(out, GroupStat{Keys: g.keys, Avg: Average(g.runs)})
	}
	return out
}

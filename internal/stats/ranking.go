package stats

import (
	"cmp"
	"slices"
	"time"

	"audit-analytics/internal/audit"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey names the metric a ranking orders by.
type SortKey string

const (
	SortByName     SortKey = "name"
	SortByScore    SortKey = "score"
	SortByCount    SortKey = "count"
	SortByFailRate SortKey = "fail_rate"
	SortByDate     SortKey = "date"
	SortByAffected SortKey = "affected"
	SortByFails    SortKey = "fails"
)

// Direction is the sort order of a ranking.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// DefaultDirection is the direction a key starts with when first selected:
// newest first for dates, worst first for fail rate, alphabetical for names.
func DefaultDirection(key SortKey) Direction {
	switch key {
	case SortByName:
		return Asc
	default:
		return Desc
	}
}

// SortState is the UI-facing sort selection.
type SortState struct {
	Key SortKey   `json:"key"`
	Dir Direction `json:"dir"`
}

// Toggle reverses the direction when key is already selected, otherwise
// switches to key with its default direction.
func (s SortState) Toggle(key SortKey) SortState {
	if s.Key == key {
		if s.Dir == Asc {
			return SortState{Key: key, Dir: Desc}
		}
		return SortState{Key: key, Dir: Asc}
	}
	return SortState{Key: key, Dir: DefaultDirection(key)}
}

func (s SortState) validate() error {
	switch s.Key {
	case SortByName, SortByScore, SortByCount, SortByFailRate, SortByDate, SortByAffected, SortByFails:
	default:
		return invalidArgf("unknown sort key %q", s.Key)
	}
	if s.Dir != Asc && s.Dir != Desc {
		return invalidArgf("unknown sort direction %q", s.Dir)
	}
	return nil
}

// Accessor exposes the sortable attributes of T. Unused accessors may be nil.
type Accessor[T any] struct {
	ID     func(T) string
	Name   func(T) string
	Number func(T, SortKey) *float64
	Date   func(T) time.Time
}

// Rank returns a sorted copy of items. Nil metrics always sort last, whatever the
// direction. Names use case-insensitive collation; missing dates sort as the epoch.
// Ties fall back to the item id so repeated calls give the same order.
func Rank[T any](items []T, state SortState, acc Accessor[T]) ([]T, error) {
	if err := state.validate(); err != nil {
		return nil, err
	}

	// Collators keep internal buffers, so each call gets its own.
	col := collate.New(language.Und, collate.IgnoreCase)
	compareNames := func(a, b T) int {
		if acc.Name == nil {
			return 0
		}
		return col.CompareString(acc.Name(a), acc.Name(b))
	}
	compareIDs := func(a, b T) int {
		if acc.ID == nil {
			return 0
		}
		return cmp.Compare(acc.ID(a), acc.ID(b))
	}

	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		var c int
		switch state.Key {
		case SortByName:
			c = directed(compareNames(a, b), state.Dir)
		case SortByDate:
			c = directed(epochIfZero(acc.Date, a).Compare(epochIfZero(acc.Date, b)), state.Dir)
		default:
			var va, vb *float64
			if acc.Number != nil {
				va, vb = acc.Number(a, state.Key), acc.Number(b, state.Key)
			}
			c = compareNullable(va, vb, state.Dir)
		}
		if c != 0 {
			return c
		}
		if state.Key != SortByName {
			if c = compareNames(a, b); c != 0 {
				return c
			}
		}
		return compareIDs(a, b)
	})
	return sorted, nil
}

// compareNullable orders numbers in dir and places nil after every non-nil value.
func compareNullable(a, b *float64, dir Direction) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return directed(cmp.Compare(*a, *b), dir)
}

func directed(c int, dir Direction) int {
	if dir == Desc {
		return -c
	}
	return c
}

var epoch = time.Unix(0, 0).UTC()

func epochIfZero[T any](date func(T) time.Time, item T) time.Time {
	if date == nil {
		return epoch
	}
	if t := date(item); !t.IsZero() {
		return t
	}
	return epoch
}

// TopN returns the first n items of an already-ranked slice.
func TopN[T any](items []T, n int) ([]T, error) {
	if n < 0 {
		return nil, invalidArgf("top-N must not be negative, got %d", n)
	}
	return slices.Clone(items[:min(n, len(items))]), nil
}

// BottomN returns the last n items of an already-ranked slice, last item first.
func BottomN[T any](items []T, n int) ([]T, error) {
	if n < 0 {
		return nil, invalidArgf("bottom-N must not be negative, got %d", n)
	}
	tail := slices.Clone(items[len(items)-min(n, len(items)):])
	slices.Reverse(tail)
	return tail, nil
}

// AreaStat is an area with its average over the eligible runs.
type AreaStat struct {
	AreaID string `json:"area_id"`
	Name   string `json:"name"`
	Type   string `json:"type,omitempty"`
	Avg
}

// AreaRanking holds the best and worst areas of a window.
type AreaRanking struct {
	Top    []AreaStat `json:"top"`
	Bottom []AreaStat `json:"bottom"`
}

var areaAccessor = Accessor[AreaStat]{
	ID:   func(a AreaStat) string { return a.AreaID },
	Name: func(a AreaStat) string { return a.Name },
	Number: func(a AreaStat, key SortKey) *float64 {
		if key == SortByCount {
			return floatPtr(float64(a.Count))
		}
		return a.Value
	},
}

// AreaStats averages the given runs per area. Areas without any scored run are left out:
// no data is absent from rankings rather than ranked as 0.
func AreaStats(areas []audit.Area, runs []audit.Run) []AreaStat {
	byArea := ByArea(runs)
	var out []AreaStat
	for _, a := range areas {
		avg := byArea[a.ID]
		if avg.Count == 0 {
			continue
		}
		out = append(out, AreaStat{AreaID: a.ID, Name: a.Name, Type: a.Type, Avg: avg})
	}
	return out
}

// RankAreas returns the n best and n worst areas over runs. Bottom is worst first.
func RankAreas(areas []audit.Area, runs []audit.Run, n int) (AreaRanking, error) {
	ranked, err := Rank(AreaStats(areas, runs), SortState{Key: SortByScore, Dir: Desc}, areaAccessor)
	if err != nil {
		return AreaRanking{}, err
	}
	top, err := TopN(ranked, n)
	if err != nil {
		return AreaRanking{}, err
	}
	bottom, err := BottomN(ranked, n)
	if err != nil {
		return AreaRanking{}, err
	}
	return AreaRanking{Top: top, Bottom: bottom}, nil
}

// TemplateStat is a template's average with its owning area resolved.
type TemplateStat struct {
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
	AreaID     string `json:"area_id"`
	AreaName   string `json:"area_name"`
	Active     bool   `json:"active"`
	Avg
}

// WorstTemplates ranks templates worst first. Templates with no scored runs or
// without a resolvable owning area are dropped.
func WorstTemplates(templates []audit.Template, areas []audit.Area, runs []audit.Run, n int) ([]TemplateStat, error) {
	areaByID := make(map[string]audit.Area, len(areas))
	for _, a := range areas {
		areaByID[a.ID] = a
	}
	byTemplate := ByTemplate(runs)

	var stats []TemplateStat
	for _, t := range templates {
		avg := byTemplate[t.ID]
		area, ok := areaByID[t.AreaID]
		if avg.Count == 0 || !ok {
			continue
		}
		stats = append(stats, TemplateStat{
			TemplateID: t.ID, Name: t.Name, AreaID: area.ID, AreaName: area.Name, Active: t.Active, Avg: avg,
		})
	}

	ranked, err := Rank(stats, SortState{Key: SortByScore, Dir: Asc}, Accessor[TemplateStat]{
		ID:     func(t TemplateStat) string { return t.TemplateID },
		Name:   func(t TemplateStat) string { return t.Name },
		Number: func(t TemplateStat, _ SortKey) *float64 { return t.Value },
	})
	if err != nil {
		return nil, err
	}
	return TopN(ranked, n)
}

// RankSections orders cross-template section rollups worst first; unscored sections go last.
func RankSections(sections []SectionAggregate, n int) ([]SectionAggregate, error) {
	ranked, err := Rank(sections, SortState{Key: SortByScore, Dir: Asc}, Accessor[SectionAggregate]{
		ID:     func(s SectionAggregate) string { return s.Name },
		Name:   func(s SectionAggregate) string { return s.Name },
		Number: func(s SectionAggregate, _ SortKey) *float64 { return s.Value },
	})
	if err != nil {
		return nil, err
	}
	return TopN(ranked, n)
}

// MemberAccessor exposes MemberStat to Rank.
var MemberAccessor = Accessor[MemberStat]{
	ID:   func(m MemberStat) string { return m.MemberID },
	Name: func(m MemberStat) string { return m.Name },
	Number: func(m MemberStat, key SortKey) *float64 {
		switch key {
		case SortByFailRate:
			return m.FailRate
		case SortByCount:
			return floatPtr(float64(m.Runs))
		case SortByFails:
			return floatPtr(float64(m.Fails))
		default:
			return m.AvgScore.Value
		}
	},
	Date: func(m MemberStat) time.Time { return m.LastRunAt },
}

// RankMembers sorts member statistics by the selected key.
func RankMembers(members []MemberStat, state SortState) ([]MemberStat, error) {
	return Rank(members, state, MemberAccessor)
}

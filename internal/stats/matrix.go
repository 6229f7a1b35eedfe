package stats

import (
	"cmp"
	"slices"
	"time"

	"audit-analytics/internal/audit"
)

// BucketMode selects the 12-month span of a matrix.
type BucketMode string

const (
	BucketRolling  BucketMode = "rolling"  // 12 months ending at Ref's month
	BucketCalendar BucketMode = "calendar" // January..December of Year
)

// BucketSpec describes the time buckets of a heat matrix.
type BucketSpec struct {
	Mode BucketMode
	Year int
	Ref  time.Time
	Loc  *time.Location
	// Nest adds one level of children per template found in the entity's runs.
	Nest bool
	// EntityKey matches runs to entities; defaults to the area id.
	EntityKey KeyFunc
	// ChildLabels resolves template ids to display names for nested rows.
	ChildLabels map[string]string
}

// Entity is one row of the matrix.
type Entity struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Cell is one bucket of a matrix row. Value is nil (and Count 0) when the bucket has no data.
type Cell struct {
	Label   string    `json:"label"`
	Start   time.Time `json:"start"`
	Value   *float64  `json:"value"`
	Count   int       `json:"count"`
	Partial bool      `json:"partial,omitempty"`
	Summary bool      `json:"summary,omitempty"`
}

// MatrixRow is an entity with its monthly cells plus a trailing summary cell.
type MatrixRow struct {
	EntityID string      `json:"entity_id"`
	Label    string      `json:"label"`
	Buckets  []Cell      `json:"buckets"`
	Children []MatrixRow `json:"children,omitempty"`
}

// SummaryValue returns the trailing summary average of the row.
func (r MatrixRow) SummaryValue() *float64 {
	if len(r.Buckets) == 0 {
		return nil
	}
	return r.Buckets[len(r.Buckets)-1].Value
}

func (s BucketSpec) windows() ([]Window, Window, string, error) {
	ref := s.Ref
	if ref.IsZero() {
		ref = time.Now()
	}
	loc := s.Loc
	if loc == nil {
		loc = ref.Location()
	}

	switch s.Mode {
	case BucketRolling, "":
		months := RollingMonths(ref.In(loc), 12)
		span := Window{Start: months[0].Start, End: months[len(months)-1].End, EndInclusive: true}
		return months, span, "12M", nil
	case BucketCalendar:
		if s.Year <= 0 {
			return nil, Window{}, "", invalidArgf("calendar matrix needs a year, got %d", s.Year)
		}
		months := CalendarMonths(s.Year, loc)
		span := Window{Start: months[0].Start, End: months[len(months)-1].End}
		return months, span, "YTD", nil
	}
	return nil, Window{}, "", invalidArgf("unknown bucket mode %q", s.Mode)
}

// BuildMatrix computes, for every entity, the average of each month in the span
// followed by one summary cell holding the average over the whole span.
func BuildMatrix(entities []Entity, runs []audit.Run, spec BucketSpec) ([]MatrixRow, error) {
	months, span, summaryLabel, err := spec.windows()
	if err != nil {
		return nil, err
	}
	key := spec.EntityKey
	if key == nil {
		key = KeyArea
	}
	now := spec.Ref
	if now.IsZero() {
		now = time.Now()
	}

	byEntity := make(map[string][]audit.Run)
	for _, r := range runs {
		if id, ok := key(r); ok {
			byEntity[id] = append(byEntity[id], r)
		}
	}

	rows := make([]MatrixRow, 0, len(entities))
	for _, e := range entities {
		entityRuns := byEntity[e.ID]
		row := MatrixRow{
			EntityID: e.ID,
			Label:    e.Label,
			Buckets:  buildCells(entityRuns, months, span, summaryLabel, now),
		}
		if spec.Nest {
			row.Children = buildChildren(entityRuns, months, span, summaryLabel, now, spec.ChildLabels)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func buildCells(runs []audit.Run, months []Window, span Window, summaryLabel string, now time.Time) []Cell {
	cells := make([]Cell, 0, len(months)+1)
	for _, w := range months {
		avg := BucketAndAverage(runs, InWindow(w))
		cells = append(cells, Cell{
			Label:   GenerateLabel(w.Start, "month"),
			Start:   w.Start,
			Value:   avg.Value,
			Count:   avg.Count,
			Partial: IsPartial(w.Start, "month", now),
		})
	}
	total := BucketAndAverage(runs, InWindow(span))
	return append(cells, Cell{Label: summaryLabel, Start: span.Start, Value: total.Value, Count: total.Count, Summary: true})
}

// buildChildren splits runs by template, worst summary first; templates without data go last.
func buildChildren(runs []audit.Run, months []Window, span Window, summaryLabel string, now time.Time, labels map[string]string) []MatrixRow {
	byTemplate := make(map[string][]audit.Run)
	var order []string
	for _, r := range runs {
		if _, ok := byTemplate[r.TemplateID]; !ok {
			order = append(order, r.TemplateID)
		}
		byTemplate[r.TemplateID] = append(byTemplate[r.TemplateID], r)
	}

	children := make([]MatrixRow, 0, len(order))
	for _, id := range order {
		label := labels[id]
		if label == "" {
			label = id
		}
		children = append(children, MatrixRow{
			EntityID: id,
			Label:    label,
			Buckets:  buildCells(byTemplate[id], months, span, summaryLabel, now),
		})
	}

	slices.SortStableFunc(children, func(a, b MatrixRow) int {
		if c := compareNullable(a.SummaryValue(), b.SummaryValue(), Asc); c != 0 {
			return c
		}
		return cmp.Compare(a.EntityID, b.EntityID)
	})
	return children
}

// ShortTrend returns the last three calendar months ending at ref, newest last.
func ShortTrend(runs []audit.Run, ref time.Time) []Cell {
	if ref.IsZero() {
		ref = time.Now()
	}
	months := RollingMonths(ref, 3)
	cells := make([]Cell, 0, len(months))
	for _, w := range months {
		avg := BucketAndAverage(runs, InWindow(w))
		cells = append(cells, Cell{
			Label:   GenerateLabel(w.Start, "month"),
			Start:   w.Start,
			Value:   avg.Value,
			Count:   avg.Count,
			Partial: IsPartial(w.Start, "month", ref),
		})
	}
	return cells
}

// EntitiesFromAreas orders areas by sort order, then name, and turns them into matrix entities.
func EntitiesFromAreas(areas []audit.Area) []Entity {
	sorted := slices.Clone(areas)
	slices.SortStableFunc(sorted, func(a, b audit.Area) int {
		switch {
		case a.SortOrder != nil && b.SortOrder != nil:
			if c := cmp.Compare(*a.SortOrder, *b.SortOrder); c != 0 {
				return c
			}
		case a.SortOrder != nil:
			return -1
		case b.SortOrder != nil:
			return 1
		}
		return cmp.Compare(a.Name, b.Name)
	})
	out := make([]Entity, 0, len(sorted))
	for _, a := range sorted {
		out = append(out, Entity{ID: a.ID, Label: a.Name})
	}
	return out
}

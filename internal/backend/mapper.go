package backend

import (
	"strings"
	"time"

	"audit-analytics/internal/audit"

	"github.com/rs/zerolog/log"
)

// Rows is the raw result of fetching one hotel.
type Rows struct {
	Areas     []AreaRow
	Templates []TemplateRow
	Sections  []SectionRow
	Questions []QuestionRow
	Members   []MemberRow
	Runs      []RunRow
	Answers   []AnswerRow
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// activeOr treats a missing flag as active.
func activeOr(p *bool) bool {
	return p == nil || *p
}

// MapSnapshot turns backend rows into the engine's data model. Runs with an
// unreadable timestamp are kept with a zero time and fall outside every window.
func MapSnapshot(hotelID string, rows Rows, fetchedAt time.Time) *audit.Snapshot {
	snap := &audit.Snapshot{
		HotelID:   hotelID,
		FetchedAt: fetchedAt,
		Areas:     make([]audit.Area, 0, len(rows.Areas)),
		Templates: make([]audit.Template, 0, len(rows.Templates)),
		Sections:  make([]audit.Section, 0, len(rows.Sections)),
		Questions: make([]audit.Question, 0, len(rows.Questions)),
		Members:   make([]audit.Member, 0, len(rows.Members)),
		Runs:      make([]audit.Run, 0, len(rows.Runs)),
		Answers:   make([]audit.Answer, 0, len(rows.Answers)),
	}

	for _, a := range rows.Areas {
		snap.Areas = append(snap.Areas, audit.Area{ID: a.ID, Name: a.Name, Type: deref(a.Type), SortOrder: a.SortOrder})
	}
	for _, t := range rows.Templates {
		snap.Templates = append(snap.Templates, audit.Template{ID: t.ID, Name: t.Name, AreaID: deref(t.AreaID), Active: activeOr(t.IsActive)})
	}
	for _, s := range rows.Sections {
		snap.Sections = append(snap.Sections, audit.Section{ID: s.ID, Name: strings.TrimSpace(deref(s.Title)), TemplateID: s.TemplateID, SortOrder: deref(s.SortOrder)})
	}
	for _, q := range rows.Questions {
		snap.Questions = append(snap.Questions, audit.Question{
			ID:             q.ID,
			Text:           q.Text,
			Tag:            strings.TrimSpace(deref(q.Tag)),
			Classification: strings.TrimSpace(deref(q.Classification)),
			SectionID:      q.SectionID,
			Active:         activeOr(q.IsActive),
		})
	}
	for _, m := range rows.Members {
		snap.Members = append(snap.Members, audit.Member{ID: m.ID, Name: m.FullName, Position: deref(m.Position), EmployeeNumber: deref(m.EmployeeNumber)})
	}
	for _, r := range rows.Runs {
		run := audit.Run{
			ID:         r.ID,
			HotelID:    hotelID,
			AreaID:     r.AreaID,
			TemplateID: r.TemplateID,
			MemberID:   deref(r.ExecutedBy),
			Status:     r.Status,
			Score:      r.Score,
		}
		if t, err := ParseTime(r.ExecutedAt); err == nil {
			run.ExecutedAt = t
		} else {
			log.Warn().Err(err).Str("run_id", r.ID).Msg("Run has no usable execution time")
		}
		snap.Runs = append(snap.Runs, run)
	}
	for _, a := range rows.Answers {
		snap.Answers = append(snap.Answers, audit.Answer{RunID: a.RunID, QuestionID: a.QuestionID, Result: a.Result, Answer: a.Answer})
	}
	return snap
}

func ids[T any](rows []T, id func(T) string) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, id(r))
	}
	return out
}

// chunk splits ids into slices of at most size elements.
func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

package stats

import (
	"cmp"
	"slices"
	"strings"

	"audit-analytics/internal/audit"
)

// SectionScore is the score of one section within one run.
type SectionScore struct {
	SectionID string `json:"section_id"`
	Name      string `json:"name"`
	ScoreTally
}

// SectionBreakdown scores each section of a run's template, using only the
// questions owned by that section as the denominator base.
func SectionBreakdown(questions []audit.Question, answers []audit.Answer, sections map[string]audit.Section) []SectionScore {
	values := resolveAnswers(answers)

	bySection := make(map[string]*ScoreTally)
	var order []string
	for _, q := range questions {
		t, ok := bySection[q.SectionID]
		if !ok {
			t = &ScoreTally{}
			bySection[q.SectionID] = t
			order = append(order, q.SectionID)
		}
		t.Total++
		switch valueFor(values, q.ID) {
		case audit.Fail:
			t.FailCount++
		case audit.NA:
			t.NACount++
		}
	}

	out := make([]SectionScore, 0, len(order))
	for _, id := range order {
		out = append(out, SectionScore{
			SectionID:  id,
			Name:       sections[id].Name,
			ScoreTally: finishTally(*bySection[id]),
		})
	}

	slices.SortStableFunc(out, func(a, b SectionScore) int {
		if c := cmp.Compare(sections[a.SectionID].SortOrder, sections[b.SectionID].SortOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// SectionAggregate is the cross-run average of sections sharing a name.
type SectionAggregate struct {
	Name        string   `json:"name"`
	SectionIDs  []string `json:"section_ids"`
	TemplateIDs []string `json:"template_ids"`
	Runs        int      `json:"runs"`
	Fails       int      `json:"fails"`
	Avg
}

// SectionInputs bundles the lookups a section rollup needs.
type SectionInputs struct {
	AnswersByRun        map[string][]audit.Answer
	QuestionsByTemplate map[string][]audit.Question
	Sections            map[string]audit.Section
}

// SectionRollup averages per-run section scores grouped by section name, so that
// "Safety" compares across templates that each define their own Safety section.
// Null section scores are excluded from the average.
func SectionRollup(runs []audit.Run, in SectionInputs) []SectionAggregate {
	type acc struct {
		agg       SectionAggregate
		sum       float64
		sections  map[string]struct{}
		templates map[string]struct{}
	}
	groups := make(map[string]*acc)
	var order []string

	for _, r := range runs {
		questions := in.QuestionsByTemplate[r.TemplateID]
		if len(questions) == 0 {
			continue
		}
		for _, s := range SectionBreakdown(questions, in.AnswersByRun[r.ID], in.Sections) {
			key := sectionKey(s.Name, s.SectionID)
			a, ok := groups[key]
			if !ok {
				name := s.Name
				if name == "" {
					name = s.SectionID
				}
				a = &acc{
					agg:       SectionAggregate{Name: name},
					sections:  make(map[string]struct{}),
					templates: make(map[string]struct{}),
				}
				groups[key] = a
				order = append(order, key)
			}
			a.agg.Runs++
			a.agg.Fails += s.FailCount
			a.sections[s.SectionID] = struct{}{}
			a.templates[r.TemplateID] = struct{}{}
			if s.Score != nil {
				a.sum += *s.Score
				a.agg.Count++
			}
		}
	}

	out := make([]SectionAggregate, 0, len(order))
	for _, key := range order {
		a := groups[key]
		if a.agg.Count > 0 {
			a.agg.Value = floatPtr(Round2(a.sum / float64(a.agg.Count)))
		}
		a.agg.SectionIDs = sortedKeys(a.sections)
		a.agg.TemplateIDs = sortedKeys(a.templates)
		out = append(out, a.agg)
	}
	slices.SortFunc(out, func(a, b SectionAggregate) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// sectionKey normalizes a section name for cross-template grouping; unnamed sections stay distinct by id.
func sectionKey(name, id string) string {
	k := strings.ToLower(strings.TrimSpace(name))
	if k == "" {
		return "id:" + id
	}
	return k
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

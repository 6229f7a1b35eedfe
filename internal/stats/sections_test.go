package stats

import (
	"testing"
	"time"

	"audit-analytics/internal/audit"
)

func TestSectionBreakdown(t *testing.T) {
	sections := map[string]audit.Section{
		"safety": {ID: "safety", Name: "Safety", SortOrder: 1},
		"clean":  {ID: "clean", Name: "Cleanliness", SortOrder: 2},
	}
	qs := append(questions(4, "safety"), questions(2, "clean")...)
	answers := []audit.Answer{
		answer("r1", "safety-q1", "FAIL"),
		answer("r1", "safety-q2", "NA"),
		answer("r1", "clean-q1", "NA"),
		answer("r1", "clean-q2", "NA"),
	}

	got := SectionBreakdown(qs, answers, sections)
	if len(got) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(got))
	}
	if got[0].Name != "Safety" || got[0].Denom != 3 || valueOf(got[0].Score) != "66.67" {
		t.Errorf("unexpected safety breakdown: %+v score=%s", got[0], valueOf(got[0].Score))
	}
	if got[1].Name != "Cleanliness" || got[1].Score != nil {
		t.Errorf("all-NA section should have nil score, got %s", valueOf(got[1].Score))
	}
}

func TestSectionRollup_GroupsByName(t *testing.T) {
	sections := map[string]audit.Section{
		"s-a": {ID: "s-a", Name: "Safety", TemplateID: "t1"},
		"s-b": {ID: "s-b", Name: " safety ", TemplateID: "t2"},
		"s-c": {ID: "s-c", Name: "Linen", TemplateID: "t2"},
	}
	in := SectionInputs{
		QuestionsByTemplate: map[string][]audit.Question{
			"t1": questions(2, "s-a"),
			"t2": append(questions(2, "s-b"), questions(1, "s-c")...),
		},
		Sections: sections,
		AnswersByRun: map[string][]audit.Answer{
			"r1": {answer("r1", "s-a-q1", "FAIL")},
			"r2": {answer("r2", "s-c-q1", "NA")},
		},
	}
	runs := []audit.Run{
		submitted("r1", "a1", "t1", "m1", day(2024, time.May, 1), score(50)),
		submitted("r2", "a2", "t2", "m2", day(2024, time.May, 2), score(100)),
		submitted("r3", "a3", "t-unknown", "m2", day(2024, time.May, 2), score(100)),
	}

	rollup := SectionRollup(runs, in)
	if len(rollup) != 2 {
		t.Fatalf("expected 2 named sections, got %d: %+v", len(rollup), rollup)
	}

	linen, safety := rollup[0], rollup[1]
	if safety.Name != "Safety" || safety.Runs != 2 || safety.Count != 2 {
		t.Errorf("unexpected safety rollup %+v", safety)
	}
	if valueOf(safety.Value) != "75.00" {
		t.Errorf("safety avg = %s, want 75.00", valueOf(safety.Value))
	}
	if len(safety.SectionIDs) != 2 || len(safety.TemplateIDs) != 2 {
		t.Errorf("expected safety to span two sections and templates, got %v %v", safety.SectionIDs, safety.TemplateIDs)
	}
	if linen.Value != nil || linen.Count != 0 || linen.Runs != 1 {
		t.Errorf("all-NA linen should be counted as a run with no score, got %+v", linen)
	}
}

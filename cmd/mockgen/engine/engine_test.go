package engine

import (
	"testing"
	"time"

	"audit-analytics/internal/audit"
)

func TestGenerate_Deterministic(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cfg := GeneratorConfig{HotelID: "h1", Scenario: "drift", Count: 50, Seed: 7, Now: now}

	a, err := Generate(cfg)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, _ := Generate(cfg)

	if len(a.Runs) != 50 {
		t.Fatalf("expected 50 runs, got %d", len(a.Runs))
	}
	if a.Runs[0].ID != b.Runs[0].ID || a.Areas[0].ID != b.Areas[0].ID {
		t.Error("expected the same seed to produce the same ids")
	}
	for _, r := range a.Runs {
		if r.HotelID != "h1" {
			t.Fatalf("run %s has hotel %q", r.ID, r.HotelID)
		}
		if r.ExecutedAt.After(now) || r.ExecutedAt.Before(now.AddDate(-1, 0, -1)) {
			t.Errorf("run %s executed at %v outside the last year", r.ID, r.ExecutedAt)
		}
		if r.Score != nil && (*r.Score < 0 || *r.Score > 100) {
			t.Errorf("run %s score %v out of range", r.ID, *r.Score)
		}
	}
}

func TestGenerate_AnswersCoverTemplateQuestions(t *testing.T) {
	snap, err := Generate(GeneratorConfig{HotelID: "h1", Count: 10, Seed: 3, Now: time.Now()})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	byTemplate := snap.QuestionsByTemplate()
	byRun := snap.AnswersByRun()
	for _, r := range snap.Runs {
		if got, want := len(byRun[r.ID]), len(byTemplate[r.TemplateID]); got != want {
			t.Errorf("run %s: %d answers for %d questions", r.ID, got, want)
		}
		for _, a := range byRun[r.ID] {
			if a.Value() == "" {
				t.Errorf("run %s has an absent answer", r.ID)
			}
		}
	}
	if snap.Runs[0].Status != audit.StatusSubmitted && snap.Runs[0].Status != "draft" {
		t.Errorf("unexpected status %q", snap.Runs[0].Status)
	}
}

func TestGenerate_RequiresHotel(t *testing.T) {
	if _, err := Generate(GeneratorConfig{Count: 1}); err == nil {
		t.Error("expected an error without a hotel id")
	}
}

package stats

import (
	"testing"
	"time"

	"audit-analytics/internal/audit"
)

func TestCalculateMemberStats(t *testing.T) {
	runs := []audit.Run{
		submitted("r1", "a1", "t1", "m1", day(2024, time.March, 1), score(50)),
		submitted("r2", "a1", "t1", "m1", day(2024, time.March, 9), score(100)),
		submitted("r3", "a1", "t1", "", day(2024, time.March, 10), score(0)),
		submitted("r4", "a2", "t2", "m2", day(2024, time.March, 2), nil),
	}
	answers := map[string][]audit.Answer{
		"r1": {answer("r1", "q1", "FAIL"), answer("r1", "q2", "PASS")},
		"r2": {answer("r2", "q1", "PASS"), answer("r2", "q2", "NA")},
		"r3": {answer("r3", "q1", "FAIL")},
		"r4": {answer("r4", "q1", "NA")},
	}
	members := map[string]audit.Member{
		"m1": {ID: "m1", Name: "Ana", Position: "Supervisor"},
		"m2": {ID: "m2", Name: "Bo"},
	}

	got := CalculateMemberStats(runs, answers, members)
	if len(got) != 2 {
		t.Fatalf("expected 2 members (unassigned run skipped), got %d", len(got))
	}

	ana := got[0]
	if ana.MemberID != "m1" || ana.Name != "Ana" || ana.Runs != 2 {
		t.Fatalf("unexpected first member: %+v", ana)
	}
	if ana.Answered != 3 || ana.Fails != 1 || ana.NA != 1 {
		t.Errorf("expected 3 answered, 1 fail, 1 NA; got %d/%d/%d", ana.Answered, ana.Fails, ana.NA)
	}
	if valueOf(ana.FailRate) != "33.33" {
		t.Errorf("expected fail rate 33.33, got %s", valueOf(ana.FailRate))
	}
	if valueOf(ana.AvgScore.Value) != "75.00" {
		t.Errorf("expected average 75, got %s", valueOf(ana.AvgScore.Value))
	}
	if !ana.LastRunAt.Equal(day(2024, time.March, 9)) {
		t.Errorf("expected last run on March 9, got %v", ana.LastRunAt)
	}

	bo := got[1]
	if bo.FailRate != nil {
		t.Errorf("expected nil fail rate with only NA answers, got %s", valueOf(bo.FailRate))
	}
	if bo.AvgScore.Value != nil {
		t.Errorf("expected nil average for a null score, got %s", valueOf(bo.AvgScore.Value))
	}
}

package stats

import (
	"time"

	"audit-analytics/internal/audit"
)

// MemberStat summarises the runs executed by one staff member.
type MemberStat struct {
	MemberID  string    `json:"member_id"`
	Name      string    `json:"name"`
	Position  string    `json:"position,omitempty"`
	Runs      int       `json:"runs"`
	AvgScore  Avg       `json:"avg_score"`
	Answered  int       `json:"answered"` // explicit PASS or FAIL answers
	Fails     int       `json:"fails"`
	NA        int       `json:"na"`
	FailRate  *float64  `json:"fail_rate"` // nil when nothing was answered
	LastRunAt time.Time `json:"last_run_at"`
}

// CalculateMemberStats builds per-member statistics from submitted runs and their recorded answers.
// Fail rate is computed from recorded answers only and excludes NA. Runs without a member are skipped.
func CalculateMemberStats(runs []audit.Run, answersByRun map[string][]audit.Answer, members map[string]audit.Member) []MemberStat {
	byMember := make(map[string][]audit.Run)
	var order []string
	for _, r := range runs {
		if r.MemberID == "" {
			continue
		}
		if _, ok := byMember[r.MemberID]; !ok {
			order = append(order, r.MemberID)
		}
		byMember[r.MemberID] = append(byMember[r.MemberID], r)
	}

	out := make([]MemberStat, 0, len(order))
	for _, id := range order {
		memberRuns := byMember[id]
		m := members[id]
		st := MemberStat{
			MemberID: id,
			Name:     m.Name,
			Position: m.Position,
			Runs:     len(memberRuns),
			AvgScore: Average(memberRuns),
		}
		for _, r := range memberRuns {
			if r.ExecutedAt.After(st.LastRunAt) {
				st.LastRunAt = r.ExecutedAt
			}
			for _, a := range answersByRun[r.ID] {
				switch a.Value() {
				case audit.Pass:
					st.Answered++
				case audit.Fail:
					st.Answered++
					st.Fails++
				case audit.NA:
					st.NA++
				}
			}
		}
		st.FailRate = ratePct(st.Fails, st.Answered)
		out = append(out, st)
	}
	return out
}

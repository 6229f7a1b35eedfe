package stats

import (
	"fmt"
	"time"

	"audit-analytics/internal/audit"
)

func score(v float64) *float64 { return &v }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func submitted(id, area, template, member string, at time.Time, s *float64) audit.Run {
	return audit.Run{ID: id, AreaID: area, TemplateID: template, MemberID: member, ExecutedAt: at, Status: "submitted", Score: s}
}

func questions(n int, section string) []audit.Question {
	out := make([]audit.Question, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, audit.Question{ID: fmt.Sprintf("%s-q%d", section, i+1), SectionID: section, Active: true})
	}
	return out
}

func answer(run, question string, v string) audit.Answer {
	return audit.Answer{RunID: run, QuestionID: question, Result: audit.StrPtr(v)}
}

func valueOf(p *float64) string {
	if p == nil {
		return "nil"
	}
	return fmt.Sprintf("%.2f", *p)
}

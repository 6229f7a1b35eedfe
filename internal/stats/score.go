package stats

import "audit-analytics/internal/audit"

// ScoreTally is the PASS/FAIL/NA reduction of one run.
type ScoreTally struct {
	Total     int      `json:"total"`
	FailCount int      `json:"fail_count"`
	NACount   int      `json:"na_count"`
	Denom     int      `json:"denom"`
	PassCount int      `json:"pass_count"`
	Score     *float64 `json:"score"` // nil when every question is NA
}

// CalculateScore reduces a run's answers against the active questions of its template.
// Questions without an answer, or with a null answer, count as PASS. Answers for
// questions outside the set are ignored; a repeated answer for a question overrides the earlier one.
func CalculateScore(questions []audit.Question, answers []audit.Answer) ScoreTally {
	values := resolveAnswers(answers)

	tally := ScoreTally{Total: len(questions)}
	for _, q := range questions {
		switch valueFor(values, q.ID) {
		case audit.Fail:
			tally.FailCount++
		case audit.NA:
			tally.NACount++
		}
	}

	return finishTally(tally)
}

func finishTally(t ScoreTally) ScoreTally {
	t.Denom = max(0, t.Total-t.NACount)
	t.PassCount = max(0, t.Denom-t.FailCount)
	if t.Denom == 0 {
		t.Score = nil
		return t
	}
	t.Score = ClampScore(floatPtr(Round2(float64(t.PassCount) / float64(t.Denom) * 100)))
	return t
}

// resolveAnswers maps question id to resolved value, last answer winning.
func resolveAnswers(answers []audit.Answer) map[string]audit.Value {
	values := make(map[string]audit.Value, len(answers))
	for _, a := range answers {
		values[a.QuestionID] = a.Value()
	}
	return values
}

// valueFor applies the missing-answer policy: absent or null means PASS.
func valueFor(values map[string]audit.Value, questionID string) audit.Value {
	v, ok := values[questionID]
	if !ok || v.IsAbsent() {
		return audit.MissingAnswerValue()
	}
	return v
}

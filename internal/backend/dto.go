package backend

import (
	"fmt"
	"time"
)

// Row shapes as the backend tables expose them. Nullable columns are pointers.

// AreaRow is a row of the areas table.
type AreaRow struct {
	ID        string  `json:"id"`
	HotelID   string  `json:"hotel_id"`
	Name      string  `json:"name"`
	Type      *string `json:"type"`
	SortOrder *int    `json:"sort_order"`
}

// TemplateRow is a row of audit_templates. A null is_active means active.
type TemplateRow struct {
	ID       string  `json:"id"`
	HotelID  string  `json:"hotel_id"`
	Name     string  `json:"name"`
	AreaID   *string `json:"area_id"`
	IsActive *bool   `json:"is_active"`
}

// SectionRow is a row of audit_sections.
type SectionRow struct {
	ID         string  `json:"id"`
	TemplateID string  `json:"template_id"`
	Title      *string `json:"title"`
	SortOrder  *int    `json:"sort_order"`
}

// QuestionRow is a row of audit_questions.
type QuestionRow struct {
	ID             string  `json:"id"`
	SectionID      string  `json:"section_id"`
	Text           string  `json:"text"`
	Tag            *string `json:"tag"`
	Classification *string `json:"classification"`
	IsActive       *bool   `json:"is_active"`
}

// MemberRow is a row of team_members.
type MemberRow struct {
	ID             string  `json:"id"`
	HotelID        string  `json:"hotel_id"`
	FullName       string  `json:"full_name"`
	Position       *string `json:"position"`
	EmployeeNumber *string `json:"employee_number"`
}

// RunRow is a row of audit_runs. ExecutedAt stays a string until ParseTime.
type RunRow struct {
	ID         string   `json:"id"`
	HotelID    string   `json:"hotel_id"`
	AreaID     string   `json:"area_id"`
	TemplateID string   `json:"template_id"`
	ExecutedBy *string  `json:"executed_by"`
	ExecutedAt string   `json:"executed_at"`
	Status     string   `json:"status"`
	Score      *float64 `json:"score"`
}

// AnswerRow is a row of audit_answers.
type AnswerRow struct {
	RunID      string  `json:"run_id"`
	QuestionID string  `json:"question_id"`
	Result     *string `json:"result"`
	Answer     *string `json:"answer"`
}

// Timestamp layouts seen from PostgREST and from drivers formatting timestamptz.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999",
	time.DateOnly,
}

// ParseTime accepts timestamps with or without zone; zone-less values are UTC.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

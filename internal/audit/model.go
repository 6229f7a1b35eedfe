package audit

import (
	"strings"
	"time"
)

// Value is the resolved outcome of a single checklist answer.
// The zero value means "absent" (null).
type Value string

const (
	Pass Value = "PASS"
	Fail Value = "FAIL"
	NA   Value = "NA"
)

// StatusSubmitted is the only run status that is analytics-eligible.
const StatusSubmitted = "submitted"

// ParseValue normalizes a raw stored value. Anything outside PASS/FAIL/NA is treated as absent.
func ParseValue(raw string) Value {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PASS":
		return Pass
	case "FAIL":
		return Fail
	case "NA", "N/A":
		return NA
	default:
		return ""
	}
}

// ResolveValue applies the "result over answer" rule: an explicit result wins whenever present.
func ResolveValue(result, answer *string) Value {
	if result != nil {
		return ParseValue(*result)
	}
	if answer != nil {
		return ParseValue(*answer)
	}
	return ""
}

// MissingAnswerValue is the value assumed for a question with no recorded answer.
// It mirrors the data-entry policy of seeding every question as PASS.
func MissingAnswerValue() Value {
	return Pass
}

// IsAbsent reports whether the value is null.
func (v Value) IsAbsent() bool {
	return v == ""
}

// Question identifies one checklist item.
type Question struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	Tag            string `json:"tag,omitempty"`
	Classification string `json:"classification,omitempty"`
	SectionID      string `json:"section_id"`
	Active         bool   `json:"active"`
}

// Answer is one response to a Question within one Run.
// Both raw columns are kept; use Value to resolve them.
type Answer struct {
	RunID      string  `json:"run_id"`
	QuestionID string  `json:"question_id"`
	Result     *string `json:"result,omitempty"`
	Answer     *string `json:"answer,omitempty"`
}

// Value returns the resolved outcome of the answer.
func (a Answer) Value() Value {
	return ResolveValue(a.Result, a.Answer)
}

// Run is one audit execution.
type Run struct {
	ID         string    `json:"id"`
	HotelID    string    `json:"hotel_id,omitempty"`
	AreaID     string    `json:"area_id"`
	TemplateID string    `json:"template_id"`
	MemberID   string    `json:"member_id,omitempty"`
	ExecutedAt time.Time `json:"executed_at"`
	Status     string    `json:"status"`
	Score      *float64  `json:"score"` // 0-100 or null, persisted upstream
}

// Eligible reports whether the run participates in analytics.
func (r Run) Eligible() bool {
	return strings.EqualFold(r.Status, StatusSubmitted)
}

// Section is a named grouping of questions within a template.
type Section struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TemplateID string `json:"template_id"`
	SortOrder  int    `json:"sort_order,omitempty"`
}

// Area is an operational department (e.g. Housekeeping).
type Area struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	SortOrder *int   `json:"sort_order,omitempty"`
}

// Template is a checklist definition tied to one area.
type Template struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	AreaID string `json:"area_id"`
	Active bool   `json:"active"`
}

// Member is a staff person who can execute runs.
type Member struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Position       string `json:"position,omitempty"`
	EmployeeNumber string `json:"employee_number,omitempty"`
}

// StrPtr is a small helper for building optional string fields.
func StrPtr(s string) *string {
	return &s
}

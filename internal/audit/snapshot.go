package audit

import "time"

// Snapshot is a read-only, already-fetched set of records for one hotel.
// HotelID is the explicit tenant scope every analytics call operates on.
type Snapshot struct {
	HotelID   string     `json:"hotel_id"`
	FetchedAt time.Time  `json:"fetched_at"`
	Areas     []Area     `json:"areas"`
	Templates []Template `json:"templates"`
	Sections  []Section  `json:"sections"`
	Questions []Question `json:"questions"`
	Members   []Member   `json:"members"`
	Runs      []Run      `json:"runs"`
	Answers   []Answer   `json:"answers"`
}

// AnswersByRun indexes answers by run id, preserving input order.
func (s *Snapshot) AnswersByRun() map[string][]Answer {
	out := make(map[string][]Answer)
	for _, a := range s.Answers {
		out[a.RunID] = append(out[a.RunID], a)
	}
	return out
}

// QuestionsByID indexes every question, active or not, by id.
func (s *Snapshot) QuestionsByID() map[string]Question {
	out := make(map[string]Question, len(s.Questions))
	for _, q := range s.Questions {
		out[q.ID] = q
	}
	return out
}

// SectionsByID indexes sections by id.
func (s *Snapshot) SectionsByID() map[string]Section {
	out := make(map[string]Section, len(s.Sections))
	for _, sec := range s.Sections {
		out[sec.ID] = sec
	}
	return out
}

// AreasByID indexes areas by id.
func (s *Snapshot) AreasByID() map[string]Area {
	out := make(map[string]Area, len(s.Areas))
	for _, a := range s.Areas {
		out[a.ID] = a
	}
	return out
}

// TemplatesByID indexes templates by id, inactive ones included.
func (s *Snapshot) TemplatesByID() map[string]Template {
	out := make(map[string]Template, len(s.Templates))
	for _, t := range s.Templates {
		out[t.ID] = t
	}
	return out
}

// MembersByID indexes members by id.
func (s *Snapshot) MembersByID() map[string]Member {
	out := make(map[string]Member, len(s.Members))
	for _, m := range s.Members {
		out[m.ID] = m
	}
	return out
}

// RunsByID indexes runs by id regardless of status.
func (s *Snapshot) RunsByID() map[string]Run {
	out := make(map[string]Run, len(s.Runs))
	for _, r := range s.Runs {
		out[r.ID] = r
	}
	return out
}

// QuestionsByTemplate returns the active questions of each template, resolved through section ownership.
func (s *Snapshot) QuestionsByTemplate() map[string][]Question {
	sections := s.SectionsByID()
	out := make(map[string][]Question)
	for _, q := range s.Questions {
		if !q.Active {
			continue
		}
		sec, ok := sections[q.SectionID]
		if !ok {
			continue
		}
		out[sec.TemplateID] = append(out[sec.TemplateID], q)
	}
	return out
}

// SubmittedRuns returns only the analytics-eligible runs.
func (s *Snapshot) SubmittedRuns() []Run {
	var out []Run
	for _, r := range s.Runs {
		if r.Eligible() {
			out = append(out, r)
		}
	}
	return out
}

// AvailableTemplates lists active templates. Historical runs against inactive
// templates stay eligible; this only drives "available" listings.
func (s *Snapshot) AvailableTemplates() []Template {
	var out []Template
	for _, t := range s.Templates {
		if t.Active {
			out = append(out, t)
		}
	}
	return out
}

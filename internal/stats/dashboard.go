package stats

import (
	"time"

	"audit-analytics/internal/audit"
)

// DashboardRequest selects what a dashboard covers. Zero values take defaults.
type DashboardRequest struct {
	Period       Period
	From, To     *time.Time
	Ref          time.Time
	Loc          *time.Location
	AreaTopN     int // default 3
	TemplateTopN int // default 5
	FailureTopN  int // default DefaultFailureTopN
	PairTopN     int // default DefaultPairTopN
	Mode         GroupingMode
	Members      SortState
}

// Dashboard bundles every analytics view of one hotel and window.
type Dashboard struct {
	HotelID        string             `json:"hotel_id"`
	Period         Period             `json:"period"`
	Window         Window             `json:"window"`
	Overall        Avg                `json:"overall"`
	Monthly        [12]Avg            `json:"monthly"`
	Quarterly      [4]Avg             `json:"quarterly"`
	Yearly         Avg                `json:"yearly"`
	Areas          AreaRanking        `json:"areas"`
	WorstTemplates []TemplateStat     `json:"worst_templates"`
	Sections       []SectionAggregate `json:"sections"`
	Failures       FailureReport      `json:"failures"`
	Pairs          []PairOverlap      `json:"pairs"`
	Members        []MemberStat       `json:"members"`
	Matrix         []MatrixRow        `json:"matrix"`
	ShortTrends    map[string][]Cell  `json:"short_trends"`
}

// DashboardPlan holds the shared read-only inputs of a dashboard and the parts
// that fill it. Each part writes its own fields only, so parts may run concurrently.
type DashboardPlan struct {
	snap      *audit.Snapshot
	req       DashboardRequest
	submitted []audit.Run
	windowed  []audit.Run
	answers   map[string][]audit.Answer
	result    Dashboard
}

// PlanDashboard validates the request and prepares the shared inputs.
func PlanDashboard(snap *audit.Snapshot, req DashboardRequest) (*DashboardPlan, error) {
	if req.Ref.IsZero() {
		req.Ref = time.Now()
	}
	if req.Loc != nil {
		req.Ref = req.Ref.In(req.Loc)
	}
	if req.Period == "" {
		req.Period = DefaultAreaPeriod
	}
	for _, n := range []int{req.AreaTopN, req.TemplateTopN, req.FailureTopN, req.PairTopN} {
		if n < 0 {
			return nil, invalidArgf("top-N must not be negative, got %d", n)
		}
	}
	if req.AreaTopN == 0 {
		req.AreaTopN = 3
	}
	if req.TemplateTopN == 0 {
		req.TemplateTopN = 5
	}
	if req.Members.Key == "" {
		req.Members = SortState{Key: SortByFailRate, Dir: DefaultDirection(SortByFailRate)}
	}

	window, err := Resolve(req.Period, req.Ref, req.From, req.To)
	if err != nil {
		return nil, err
	}

	submitted := snap.SubmittedRuns()
	p := &DashboardPlan{
		snap:      snap,
		req:       req,
		submitted: submitted,
		windowed:  FilterEligible(submitted, window),
		answers:   snap.AnswersByRun(),
	}
	p.result = Dashboard{HotelID: snap.HotelID, Period: req.Period, Window: window}
	return p, nil
}

// Parts returns the independent computations of the dashboard.
func (p *DashboardPlan) Parts() []func() error {
	return []func() error{
		p.calendarAverages,
		p.rankings,
		p.sections,
		p.failures,
		p.members,
		p.matrix,
	}
}

// Result returns the dashboard once every part has run.
func (p *DashboardPlan) Result() Dashboard {
	return p.result
}

// BuildDashboard runs every part in sequence.
func BuildDashboard(snap *audit.Snapshot, req DashboardRequest) (Dashboard, error) {
	plan, err := PlanDashboard(snap, req)
	if err != nil {
		return Dashboard{}, err
	}
	for _, part := range plan.Parts() {
		if err := part(); err != nil {
			return Dashboard{}, err
		}
	}
	return plan.Result(), nil
}

func (p *DashboardPlan) calendarAverages() error {
	year := p.req.Ref.Year()
	loc := p.req.Ref.Location()
	p.result.Overall = Average(p.windowed)
	p.result.Monthly = ByMonth(p.submitted, year, loc)
	p.result.Quarterly = ByQuarter(p.submitted, year, loc)
	p.result.Yearly = ByYear(p.submitted, year, loc)
	return nil
}

func (p *DashboardPlan) rankings() error {
	areas, err := RankAreas(p.snap.Areas, p.windowed, p.req.AreaTopN)
	if err != nil {
		return err
	}
	templates, err := WorstTemplates(p.snap.Templates, p.snap.Areas, p.windowed, p.req.TemplateTopN)
	if err != nil {
		return err
	}
	p.result.Areas = areas
	p.result.WorstTemplates = templates
	return nil
}

func (p *DashboardPlan) sections() error {
	rollup := SectionRollup(p.windowed, SectionInputs{
		AnswersByRun:        p.answers,
		QuestionsByTemplate: p.snap.QuestionsByTemplate(),
		Sections:            p.snap.SectionsByID(),
	})
	ranked, err := RankSections(rollup, len(rollup))
	if err != nil {
		return err
	}
	p.result.Sections = ranked
	return nil
}

func (p *DashboardPlan) failureInputs() FailureInputs {
	runs := make(map[string]audit.Run, len(p.windowed))
	var answers []audit.Answer
	for _, r := range p.windowed {
		runs[r.ID] = r
		answers = append(answers, p.answers[r.ID]...)
	}
	return FailureInputs{Answers: answers, Runs: runs, Questions: p.snap.QuestionsByID()}
}

func (p *DashboardPlan) failures() error {
	in := p.failureInputs()
	report, err := AnalyzeFailures(in, FailureOptions{Mode: p.req.Mode, TopN: p.req.FailureTopN})
	if err != nil {
		return err
	}
	pairs, err := SharedTopicPairs(in, FailureOptions{Mode: p.req.Mode, TopN: p.req.PairTopN})
	if err != nil {
		return err
	}
	p.result.Failures = report
	p.result.Pairs = pairs
	return nil
}

func (p *DashboardPlan) members() error {
	ranked, err := RankMembers(CalculateMemberStats(p.windowed, p.answers, p.snap.MembersByID()), p.req.Members)
	if err != nil {
		return err
	}
	p.result.Members = ranked
	return nil
}

func (p *DashboardPlan) matrix() error {
	labels := make(map[string]string, len(p.snap.Templates))
	for _, t := range p.snap.Templates {
		labels[t.ID] = t.Name
	}
	entities := EntitiesFromAreas(p.snap.Areas)
	rows, err := BuildMatrix(entities, p.submitted, BucketSpec{
		Mode:        BucketRolling,
		Ref:         p.req.Ref,
		Nest:        true,
		ChildLabels: labels,
	})
	if err != nil {
		return err
	}

	byArea := make(map[string][]audit.Run)
	for _, r := range p.submitted {
		byArea[r.AreaID] = append(byArea[r.AreaID], r)
	}
	trends := make(map[string][]Cell, len(entities))
	for _, e := range entities {
		trends[e.ID] = ShortTrend(byArea[e.ID], p.req.Ref)
	}

	p.result.Matrix = rows
	p.result.ShortTrends = trends
	return nil
}

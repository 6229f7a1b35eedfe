package mcp

import (
	"fmt"
	"time"

	"audit-analytics/internal/stats"
)

// WindowArgs selects the analysis window shared by most tools.
type WindowArgs struct {
	HotelID string `json:"hotel_id,omitempty" jsonschema:"Hotel to analyze. Defaults to the configured hotel." validate:"omitempty,max=64,excludesall=/\\."`
	Period  string `json:"period,omitempty" jsonschema:"One of this_month, last_3_months, this_year, rolling_12m, last_30_days, last_60_days, last_90_days, last_365_days, custom." validate:"omitempty,max=32"`
	From    string `json:"from,omitempty" jsonschema:"Start date (YYYY-MM-DD) for the custom period." validate:"omitempty,datetime=2006-01-02"`
	To      string `json:"to,omitempty" jsonschema:"End date (YYYY-MM-DD, inclusive) for the custom period." validate:"omitempty,datetime=2006-01-02"`
}

// resolve turns the window arguments into a period and optional custom bounds.
func (w WindowArgs) resolve(fallback stats.Period, loc *time.Location) (stats.Period, *time.Time, *time.Time, error) {
	period := fallback
	if w.Period != "" {
		p, err := stats.ParsePeriod(w.Period)
		if err != nil {
			return "", nil, nil, err
		}
		period = p
	}
	from, err := parseDate(w.From, loc)
	if err != nil {
		return "", nil, nil, err
	}
	to, err := parseDate(w.To, loc)
	if err != nil {
		return "", nil, nil, err
	}
	if (from != nil || to != nil) && w.Period == "" {
		period = stats.PeriodCustom
	}
	return period, from, to, nil
}

func parseDate(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: date %q is not YYYY-MM-DD", stats.ErrInvalidArgument, s)
	}
	return &t, nil
}

// DashboardArgs are the get_dashboard arguments.
type DashboardArgs struct {
	WindowArgs
	AreaTopN      int    `json:"area_top_n,omitempty" jsonschema:"Best/worst areas to list (default 3)." validate:"gte=0,lte=50"`
	TemplateTopN  int    `json:"template_top_n,omitempty" jsonschema:"Worst templates to list (default 5)." validate:"gte=0,lte=50"`
	Mode          string `json:"mode,omitempty" jsonschema:"Failure grouping: auto, question, tag or classification." validate:"omitempty,oneof=auto question tag classification"`
	IncludeMatrix bool   `json:"include_matrix,omitempty" jsonschema:"Include the 12-month heat matrix (large)."`
}

// RankAreasArgs are the rank_areas arguments.
type RankAreasArgs struct {
	WindowArgs
	N int `json:"n,omitempty" jsonschema:"How many best and worst areas to return (default 3)." validate:"gte=0,lte=100"`
}

// FailureArgs are the analyze_failures arguments.
type FailureArgs struct {
	WindowArgs
	Mode     string `json:"mode,omitempty" jsonschema:"Failure grouping: auto (tag, then classification, then question), question, tag or classification." validate:"omitempty,oneof=auto question tag classification"`
	TopN     int    `json:"top_n,omitempty" jsonschema:"Topics per view (default 30)." validate:"gte=0,lte=500"`
	PairTopN int    `json:"pair_top_n,omitempty" jsonschema:"People pairs sharing failed topics (default 25)." validate:"gte=0,lte=500"`
}

// MatrixArgs are the build_matrix arguments. Year is required in calendar mode.
type MatrixArgs struct {
	HotelID string `json:"hotel_id,omitempty" jsonschema:"Hotel to analyze. Defaults to the configured hotel." validate:"omitempty,max=64,excludesall=/\\."`
	Mode    string `json:"mode,omitempty" jsonschema:"rolling (12 months ending this month) or calendar (January to December of year)." validate:"omitempty,oneof=rolling calendar"`
	Year    int    `json:"year,omitempty" jsonschema:"Calendar year, required for calendar mode." validate:"omitempty,gte=2000,lte=2100"`
	Nest    bool   `json:"nest,omitempty" jsonschema:"Add one row per template under each area."`
	Format  string `json:"format,omitempty" jsonschema:"json (default) or markdown." validate:"omitempty,oneof=json markdown"`
}

// ScoreRunArgs are the score_run arguments.
type ScoreRunArgs struct {
	HotelID string `json:"hotel_id,omitempty" jsonschema:"Hotel the run belongs to. Defaults to the configured hotel." validate:"omitempty,max=64,excludesall=/\\."`
	RunID   string `json:"run_id" jsonschema:"Audit run to score from its answers." validate:"required,max=64"`
}

// ResolvePeriodArgs are the resolve_period arguments.
type ResolvePeriodArgs struct {
	Period string `json:"period" jsonschema:"Period key to resolve." validate:"required,max=32"`
	From   string `json:"from,omitempty" jsonschema:"Start date (YYYY-MM-DD) for custom." validate:"omitempty,datetime=2006-01-02"`
	To     string `json:"to,omitempty" jsonschema:"End date (YYYY-MM-DD) for custom." validate:"omitempty,datetime=2006-01-02"`
	Ref    string `json:"ref,omitempty" jsonschema:"Reference date (YYYY-MM-DD). Defaults to now." validate:"omitempty,datetime=2006-01-02"`
}

// RankMembersArgs are the rank_members arguments.
type RankMembersArgs struct {
	WindowArgs
	SortBy string `json:"sort_by,omitempty" jsonschema:"name, score, count, fail_rate (default), date or fails." validate:"omitempty,oneof=name score count fail_rate date fails"`
	Dir    string `json:"dir,omitempty" jsonschema:"asc or desc. Defaults to the key's natural direction." validate:"omitempty,oneof=asc desc"`
}

// ListHotelsArgs are the list_hotels arguments. The tool takes none.
type ListHotelsArgs struct{}

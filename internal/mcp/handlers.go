package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"audit-analytics/internal/audit"
	"audit-analytics/internal/stats"
	"audit-analytics/internal/visuals"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

func (s *Server) registerTools(server *mcpsdk.Server) {
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "get_dashboard",
		Description: "Hotel dashboard for a period: overall average, monthly/quarterly/yearly averages, best and worst areas, worst templates, section rollups, common failures and staff statistics. Scores are percentages; null means no data, never 0.",
	}, handle(s, s.handleDashboard))
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "rank_areas",
		Description: "Best and worst areas by average run score over a period. Areas without submitted runs are left out rather than ranked as 0.",
	}, handle(s, s.handleRankAreas))
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "analyze_failures",
		Description: "Group FAIL answers into topics (tag, classification or question) and report systemic topics (failed by more than one person), the most frequent topics, and pairs of people sharing failed topics.",
	}, handle(s, s.handleFailures))
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "build_matrix",
		Description: "12-month heat matrix of average scores per area (optionally per template), with a trailing 12M/YTD summary column. Empty months are null.",
	}, handle(s, s.handleMatrix))
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "score_run",
		Description: "Recompute one audit run's score from its answers (missing answers count as PASS, NA is excluded) with a per-section breakdown, next to the stored score.",
	}, handle(s, s.handleScoreRun))
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "resolve_period",
		Description: "Show the concrete date window a period key resolves to.",
	}, handle(s, s.handleResolvePeriod))
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "rank_members",
		Description: "Staff statistics over a period (runs, average score, fail rate on answered questions) sorted by the chosen key. Members with no answered questions have a null fail rate and sort last.",
	}, handle(s, s.handleRankMembers))
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "list_hotels",
		Description: "Hotels with cached audit data: run count, latest run, when the data was fetched, and the active (available) templates.",
	}, handle(s, s.handleListHotels))
}

// toolOutput is what a handler produces: a JSON-able payload plus optional Markdown extras.
type toolOutput struct {
	Data   any
	Extras []string
}

// handle adapts a handler to the SDK: arguments are validated first and the payload is returned as JSON text.
func handle[In any](s *Server, fn func(context.Context, In) (toolOutput, error)) mcpsdk.ToolHandlerFor[In, any] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, args In) (*mcpsdk.CallToolResult, any, error) {
		start := time.Now()
		name := req.Params.Name

		if err := s.check(args); err != nil {
			log.Warn().Err(err).Str("tool", name).Msg("Rejected tool arguments")
			return nil, nil, err
		}
		out, err := fn(ctx, args)
		if err != nil {
			log.Error().Err(err).Str("tool", name).Msg("Tool failed")
			return nil, nil, err
		}

		payload, err := json.MarshalIndent(out.Data, "", "  ")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode %s result: %w", name, err)
		}
		content := []mcpsdk.Content{&mcpsdk.TextContent{Text: string(payload)}}
		for _, extra := range out.Extras {
			if extra != "" {
				content = append(content, &mcpsdk.TextContent{Text: extra})
			}
		}

		log.Debug().Str("tool", name).Dur("elapsed", time.Since(start)).Msg("Tool completed")
		return &mcpsdk.CallToolResult{Content: content}, nil, nil
	}
}

func (s *Server) handleDashboard(ctx context.Context, args DashboardArgs) (toolOutput, error) {
	snap, err := s.snapshot(ctx, args.HotelID)
	if err != nil {
		return toolOutput{}, err
	}
	period, from, to, err := args.resolve(s.opts.DefaultPeriod, s.opts.Location)
	if err != nil {
		return toolOutput{}, err
	}

	d, err := stats.BuildDashboard(snap, stats.DashboardRequest{
		Period:       period,
		From:         from,
		To:           to,
		Ref:          s.now(),
		AreaTopN:     args.AreaTopN,
		TemplateTopN: args.TemplateTopN,
		FailureTopN:  s.opts.FailureTopN,
		PairTopN:     s.opts.PairTopN,
		Mode:         stats.GroupingMode(args.Mode),
	})
	if err != nil {
		return toolOutput{}, err
	}
	if !args.IncludeMatrix {
		d.Matrix = nil
	}

	out := toolOutput{Data: d}
	if s.opts.MermaidCharts {
		out.Extras = append(out.Extras, visuals.AreaChart(append(d.Areas.Top, d.Areas.Bottom...)))
	}
	return out, nil
}

func (s *Server) handleRankAreas(ctx context.Context, args RankAreasArgs) (toolOutput, error) {
	snap, err := s.snapshot(ctx, args.HotelID)
	if err != nil {
		return toolOutput{}, err
	}
	window, err := s.window(args.WindowArgs, s.opts.DefaultPeriod)
	if err != nil {
		return toolOutput{}, err
	}
	n := args.N
	if n == 0 {
		n = 3
	}

	ranking, err := stats.RankAreas(snap.Areas, s.windowRuns(snap.HotelID, window), n)
	if err != nil {
		return toolOutput{}, err
	}
	out := toolOutput{Data: map[string]any{"window": window, "areas": ranking}}
	if s.opts.MermaidCharts {
		out.Extras = append(out.Extras, visuals.AreaChart(ranking.Top))
	}
	return out, nil
}

func (s *Server) handleFailures(ctx context.Context, args FailureArgs) (toolOutput, error) {
	snap, err := s.snapshot(ctx, args.HotelID)
	if err != nil {
		return toolOutput{}, err
	}
	window, err := s.window(args.WindowArgs, stats.DefaultPeoplePeriod)
	if err != nil {
		return toolOutput{}, err
	}

	runs := s.windowRuns(snap.HotelID, window)
	answersByRun := snap.AnswersByRun()
	in := stats.FailureInputs{Runs: make(map[string]audit.Run, len(runs)), Questions: snap.QuestionsByID()}
	for _, r := range runs {
		in.Runs[r.ID] = r
		in.Answers = append(in.Answers, answersByRun[r.ID]...)
	}

	topN := args.TopN
	if topN == 0 {
		topN = s.opts.FailureTopN
	}
	pairN := args.PairTopN
	if pairN == 0 {
		pairN = s.opts.PairTopN
	}
	report, err := stats.AnalyzeFailures(in, stats.FailureOptions{Mode: stats.GroupingMode(args.Mode), TopN: topN})
	if err != nil {
		return toolOutput{}, err
	}
	pairs, err := stats.SharedTopicPairs(in, stats.FailureOptions{Mode: stats.GroupingMode(args.Mode), TopN: pairN})
	if err != nil {
		return toolOutput{}, err
	}

	out := toolOutput{Data: map[string]any{"window": window, "failures": report, "pairs": pairs}}
	if s.opts.MermaidCharts {
		out.Extras = append(out.Extras, visuals.FailureChart(report.ByFrequency))
	}
	return out, nil
}

func (s *Server) handleMatrix(ctx context.Context, args MatrixArgs) (toolOutput, error) {
	snap, err := s.snapshot(ctx, args.HotelID)
	if err != nil {
		return toolOutput{}, err
	}

	labels := make(map[string]string, len(snap.Templates))
	for _, t := range snap.Templates {
		labels[t.ID] = t.Name
	}
	rows, err := stats.BuildMatrix(stats.EntitiesFromAreas(snap.Areas), snap.SubmittedRuns(), stats.BucketSpec{
		Mode:        stats.BucketMode(args.Mode),
		Year:        args.Year,
		Ref:         s.now(),
		Loc:         s.opts.Location,
		Nest:        args.Nest,
		ChildLabels: labels,
	})
	if err != nil {
		return toolOutput{}, err
	}

	if args.Format == "markdown" {
		return toolOutput{Data: map[string]any{"rows": len(rows)}, Extras: []string{visuals.MatrixTable(rows)}}, nil
	}
	out := toolOutput{Data: rows}
	if s.opts.MermaidCharts {
		for _, r := range rows {
			out.Extras = append(out.Extras, visuals.TrendChart(r))
		}
	}
	return out, nil
}

// RunScore compares a run's stored score with the one recomputed from its answers.
type RunScore struct {
	RunID       string               `json:"run_id"`
	Status      string               `json:"status"`
	StoredScore *float64             `json:"stored_score"`
	Computed    stats.ScoreTally     `json:"computed"`
	Sections    []stats.SectionScore `json:"sections"`
}

func (s *Server) handleScoreRun(ctx context.Context, args ScoreRunArgs) (toolOutput, error) {
	snap, err := s.snapshot(ctx, args.HotelID)
	if err != nil {
		return toolOutput{}, err
	}
	run, ok := snap.RunsByID()[args.RunID]
	if !ok {
		return toolOutput{}, fmt.Errorf("%w: run %s not found in hotel %s", stats.ErrInvalidArgument, args.RunID, snap.HotelID)
	}

	questions := snap.QuestionsByTemplate()[run.TemplateID]
	answers := snap.AnswersByRun()[run.ID]
	return toolOutput{Data: RunScore{
		RunID:       run.ID,
		Status:      run.Status,
		StoredScore: stats.ClampScore(run.Score),
		Computed:    stats.CalculateScore(questions, answers),
		Sections:    stats.SectionBreakdown(questions, answers, snap.SectionsByID()),
	}}, nil
}

func (s *Server) handleResolvePeriod(_ context.Context, args ResolvePeriodArgs) (toolOutput, error) {
	period, err := stats.ParsePeriod(args.Period)
	if err != nil {
		return toolOutput{}, err
	}
	ref := s.now()
	if args.Ref != "" {
		t, err := parseDate(args.Ref, s.opts.Location)
		if err != nil {
			return toolOutput{}, err
		}
		ref = t.Add(12 * time.Hour)
	}
	window, err := s.windowAt(WindowArgs{Period: string(period), From: args.From, To: args.To}, period, ref)
	if err != nil {
		return toolOutput{}, err
	}
	return toolOutput{Data: map[string]any{"period": period, "ref": ref, "window": window}}, nil
}

func (s *Server) handleRankMembers(ctx context.Context, args RankMembersArgs) (toolOutput, error) {
	snap, err := s.snapshot(ctx, args.HotelID)
	if err != nil {
		return toolOutput{}, err
	}
	window, err := s.window(args.WindowArgs, stats.DefaultPeoplePeriod)
	if err != nil {
		return toolOutput{}, err
	}

	key := stats.SortKey(args.SortBy)
	if key == "" {
		key = stats.SortByFailRate
	}
	dir := stats.Direction(args.Dir)
	if dir == "" {
		dir = stats.DefaultDirection(key)
	}

	members := stats.CalculateMemberStats(s.windowRuns(snap.HotelID, window), snap.AnswersByRun(), snap.MembersByID())
	ranked, err := stats.RankMembers(members, stats.SortState{Key: key, Dir: dir})
	if err != nil {
		return toolOutput{}, err
	}
	return toolOutput{Data: map[string]any{"window": window, "members": ranked}}, nil
}

// HotelSummary describes one hotel held in the store.
type HotelSummary struct {
	HotelID            string            `json:"hotel_id"`
	Default            bool              `json:"default,omitempty"`
	FetchedAt          time.Time         `json:"fetched_at"`
	Runs               int               `json:"runs"`
	LatestRun          *time.Time        `json:"latest_run"`
	AvailableTemplates []TemplateSummary `json:"available_templates"`
}

// TemplateSummary names an active template and its area.
type TemplateSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Area string `json:"area"`
}

func (s *Server) handleListHotels(_ context.Context, _ ListHotelsArgs) (toolOutput, error) {
	s.loadCachedHotels()

	hotels := s.opts.Store.Hotels()
	out := make([]HotelSummary, 0, len(hotels))
	for _, id := range hotels {
		snap := s.opts.Store.Snapshot(id)
		if snap == nil {
			continue
		}
		sum := HotelSummary{
			HotelID:            id,
			Default:            id == s.opts.DefaultHotelID,
			FetchedAt:          snap.FetchedAt,
			Runs:               s.opts.Store.Count(id),
			AvailableTemplates: []TemplateSummary{},
		}
		if latest := s.opts.Store.LatestRun(id); !latest.IsZero() {
			sum.LatestRun = &latest
		}
		areas := snap.AreasByID()
		for _, t := range snap.AvailableTemplates() {
			sum.AvailableTemplates = append(sum.AvailableTemplates, TemplateSummary{ID: t.ID, Name: t.Name, Area: areas[t.AreaID].Name})
		}
		out = append(out, sum)
	}
	return toolOutput{Data: map[string]any{"hotels": out}}, nil
}

// window resolves window arguments against the server clock.
func (s *Server) window(args WindowArgs, fallback stats.Period) (stats.Window, error) {
	return s.windowAt(args, fallback, s.now())
}

func (s *Server) windowAt(args WindowArgs, fallback stats.Period, ref time.Time) (stats.Window, error) {
	period, from, to, err := args.resolve(fallback, s.opts.Location)
	if err != nil {
		return stats.Window{}, err
	}
	return stats.Resolve(period, ref, from, to)
}

package backend

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"audit-analytics/internal/audit"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	restPageSize = 1000
	// idChunkSize bounds in.(...) filters so request URLs stay short.
	idChunkSize = 100
	// maxParallelChunks caps concurrent requests per table.
	maxParallelChunks = 4
)

// RESTSource reads the audit tables through a PostgREST-style API
// (/rest/v1/<table>?column=eq.value).
type RESTSource struct {
	client *resty.Client
}

// NewRESTSource creates a client for the hosted backend.
func NewRESTSource(cfg Config) *RESTSource {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("apikey", cfg.APIKey).SetAuthToken(cfg.APIKey)
	}
	return &RESTSource{client: client}
}

// Fetch loads one hotel in three dependent rounds; the tables of each round are
// requested in parallel.
func (s *RESTSource) Fetch(ctx context.Context, hotelID string) (*audit.Snapshot, error) {
	if hotelID == "" {
		return nil, fmt.Errorf("hotel id is required")
	}
	start := time.Now()
	var rows Rows
	byHotel := map[string]string{"hotel_id": "eq." + hotelID}

	// 1. Tables scoped by hotel.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rows.Areas, err = fetchAll[AreaRow](gctx, s.client, "areas", byHotel)
		return err
	})
	g.Go(func() (err error) {
		rows.Templates, err = fetchAll[TemplateRow](gctx, s.client, "audit_templates", byHotel)
		return err
	})
	g.Go(func() (err error) {
		rows.Members, err = fetchAll[MemberRow](gctx, s.client, "team_members", byHotel)
		return err
	})
	g.Go(func() (err error) {
		rows.Runs, err = fetchAll[RunRow](gctx, s.client, "audit_runs", byHotel)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 2. Children of templates and runs.
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rows.Sections, err = fetchByIDs[SectionRow](gctx, s.client, "audit_sections", "template_id", ids(rows.Templates, func(t TemplateRow) string { return t.ID }))
		return err
	})
	g.Go(func() (err error) {
		rows.Answers, err = fetchByIDs[AnswerRow](gctx, s.client, "audit_answers", "run_id", ids(rows.Runs, func(r RunRow) string { return r.ID }))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 3. Questions hang off sections.
	var err error
	rows.Questions, err = fetchByIDs[QuestionRow](ctx, s.client, "audit_questions", "section_id", ids(rows.Sections, func(s SectionRow) string { return s.ID }))
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("hotel_id", hotelID).
		Int("runs", len(rows.Runs)).
		Int("answers", len(rows.Answers)).
		Dur("elapsed", time.Since(start)).
		Msg("Fetched hotel from REST backend")
	return MapSnapshot(hotelID, rows, time.Now()), nil
}

// fetchAll pages through a table until a short page is returned.
func fetchAll[T any](ctx context.Context, client *resty.Client, table string, filter map[string]string) ([]T, error) {
	var all []T
	for offset := 0; ; offset += restPageSize {
		var page []T
		params := map[string]string{
			"select": "*",
			"order":  "id.asc",
			"limit":  strconv.Itoa(restPageSize),
			"offset": strconv.Itoa(offset),
		}
		for k, v := range filter {
			params[k] = v
		}

		resp, err := client.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetResult(&page).
			Get("/rest/v1/" + table)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", table, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("failed to fetch %s: %s: %s", table, resp.Status(), strings.TrimSpace(resp.String()))
		}

		log.Debug().Str("table", table).Int("offset", offset).Int("rows", len(page)).Msg("Fetched page")
		all = append(all, page...)
		if len(page) < restPageSize {
			return all, nil
		}
	}
}

// fetchByIDs fetches rows whose column is in ids, in bounded parallel chunks.
// Results keep the order of the chunks.
func fetchByIDs[T any](ctx context.Context, client *resty.Client, table, column string, ids []string) ([]T, error) {
	chunks := chunk(ids, idChunkSize)
	results := make([][]T, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelChunks)
	for i, c := range chunks {
		g.Go(func() error {
			rows, err := fetchAll[T](gctx, client, table, map[string]string{column: "in.(" + strings.Join(c, ",") + ")"})
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []T
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"audit-analytics/internal/audit"
	"audit-analytics/internal/dataset"
	"audit-analytics/internal/stats"

	"github.com/google/jsonschema-go/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)

func score(v float64) *float64 { return &v }

func day(d int) time.Time { return time.Date(2024, time.March, d, 9, 0, 0, 0, time.UTC) }

func hotelSnapshot() *audit.Snapshot {
	return &audit.Snapshot{
		HotelID: "h1",
		Areas: []audit.Area{
			{ID: "a1", Name: "Kitchen"},
			{ID: "a2", Name: "Housekeeping"},
			{ID: "a3", Name: "Spa"},
		},
		Templates: []audit.Template{
			{ID: "t1", Name: "Cold chain", AreaID: "a1", Active: true},
			{ID: "t2", Name: "Room check", AreaID: "a2", Active: true},
		},
		Sections: []audit.Section{
			{ID: "s1", Name: "Fridges", TemplateID: "t1"},
			{ID: "s2", Name: "Bathroom", TemplateID: "t2"},
		},
		Questions: []audit.Question{
			{ID: "q1", Text: "Fridge below 5C?", SectionID: "s1", Active: true, Tag: "temperature"},
			{ID: "q2", Text: "Labels dated?", SectionID: "s1", Active: true},
			{ID: "q3", Text: "Towels replaced?", SectionID: "s2", Active: true, Tag: "temperature"},
		},
		Members: []audit.Member{{ID: "m1", Name: "Ana"}, {ID: "m2", Name: "Bo"}},
		Runs: []audit.Run{
			{ID: "r1", AreaID: "a1", TemplateID: "t1", MemberID: "m1", ExecutedAt: day(2), Status: audit.StatusSubmitted, Score: score(50)},
			{ID: "r2", AreaID: "a2", TemplateID: "t2", MemberID: "m2", ExecutedAt: day(3), Status: audit.StatusSubmitted, Score: score(0)},
			{ID: "r3", AreaID: "a3", TemplateID: "t1", ExecutedAt: day(4), Status: "draft"},
		},
		Answers: []audit.Answer{
			{RunID: "r1", QuestionID: "q1", Result: audit.StrPtr("FAIL")},
			{RunID: "r2", QuestionID: "q3", Answer: audit.StrPtr("fail")},
		},
	}
}

type fakeSource struct {
	calls int
	snap  *audit.Snapshot
	err   error
}

func (f *fakeSource) Fetch(_ context.Context, hotelID string) (*audit.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	snap := *f.snap
	snap.HotelID = hotelID
	return &snap, nil
}

func newTestServer(t *testing.T) *Server {
	store := dataset.NewStore()
	store.Put(hotelSnapshot())
	return NewServer(Options{Store: store, DefaultHotelID: "h1", Now: func() time.Time { return fixedNow }})
}

func TestHandleRankAreas(t *testing.T) {
	s := newTestServer(t)
	out, err := s.handleRankAreas(context.Background(), RankAreasArgs{})
	require.NoError(t, err)

	data := out.Data.(map[string]any)
	ranking := data["areas"].(stats.AreaRanking)
	require.Len(t, ranking.Top, 2, "the spa has only a draft run")
	assert.Equal(t, "a1", ranking.Top[0].AreaID)
	assert.Equal(t, "a2", ranking.Bottom[0].AreaID)
}

func TestHandleFailures(t *testing.T) {
	s := newTestServer(t)
	out, err := s.handleFailures(context.Background(), FailureArgs{WindowArgs: WindowArgs{Period: "this_month"}})
	require.NoError(t, err)

	data := out.Data.(map[string]any)
	report := data["failures"].(stats.FailureReport)
	require.Len(t, report.ByAffected, 1)
	assert.Equal(t, "TAG:temperature", report.ByAffected[0].Topic)
	assert.Equal(t, 2, report.ByAffected[0].AffectedCount)
	assert.Len(t, data["pairs"].([]stats.PairOverlap), 1)
}

func TestHandleScoreRun(t *testing.T) {
	s := newTestServer(t)
	out, err := s.handleScoreRun(context.Background(), ScoreRunArgs{RunID: "r1"})
	require.NoError(t, err)

	rs := out.Data.(RunScore)
	assert.Equal(t, 50.0, *rs.StoredScore)
	assert.Equal(t, 50.0, *rs.Computed.Score, "q2 has no answer and counts as PASS")
	require.Len(t, rs.Sections, 1)
	assert.Equal(t, "Fridges", rs.Sections[0].Name)

	_, err = s.handleScoreRun(context.Background(), ScoreRunArgs{RunID: "nope"})
	assert.ErrorIs(t, err, stats.ErrInvalidArgument)
}

func TestHandleMatrix_Markdown(t *testing.T) {
	s := newTestServer(t)
	out, err := s.handleMatrix(context.Background(), MatrixArgs{Format: "markdown", Nest: true})
	require.NoError(t, err)
	require.Len(t, out.Extras, 1)
	assert.Contains(t, out.Extras[0], "| Kitchen |")
	assert.Contains(t, out.Extras[0], "↳ Cold chain")

	_, err = s.handleMatrix(context.Background(), MatrixArgs{Mode: "calendar"})
	assert.ErrorIs(t, err, stats.ErrInvalidArgument, "calendar needs a year")
}

func TestHandleResolvePeriod(t *testing.T) {
	s := newTestServer(t)
	out, err := s.handleResolvePeriod(context.Background(), ResolvePeriodArgs{Period: "custom", From: "2024-01-10", To: "2024-01-20"})
	require.NoError(t, err)

	w := out.Data.(map[string]any)["window"].(stats.Window)
	assert.Equal(t, time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC), w.Start)
	assert.True(t, w.EndInclusive)

	_, err = s.handleResolvePeriod(context.Background(), ResolvePeriodArgs{Period: "fortnight"})
	assert.ErrorIs(t, err, stats.ErrInvalidArgument)
}

func TestHandleRankMembers(t *testing.T) {
	s := newTestServer(t)
	out, err := s.handleRankMembers(context.Background(), RankMembersArgs{SortBy: "name"})
	require.NoError(t, err)

	members := out.Data.(map[string]any)["members"].([]stats.MemberStat)
	require.Len(t, members, 2)
	assert.Equal(t, "Ana", members[0].Name)
}

func TestCheck(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		args any
		ok   bool
	}{
		{"valid failure args", FailureArgs{Mode: "tag", TopN: 5}, true},
		{"unknown mode", FailureArgs{Mode: "topic"}, false},
		{"negative top-N", RankAreasArgs{N: -1}, false},
		{"bad date", RankAreasArgs{WindowArgs: WindowArgs{From: "10/01/2024"}}, false},
		{"missing run id", ScoreRunArgs{}, false},
		{"bad matrix format", MatrixArgs{Format: "csv"}, false},
		{"uuid hotel", RankAreasArgs{WindowArgs: WindowArgs{HotelID: "3f2b7c1e-9a4d-4c1b-8f3e-2a1b0c9d8e7f"}}, true},
		{"hotel with path", RankAreasArgs{WindowArgs: WindowArgs{HotelID: "../escaped"}}, false},
		{"hotel with dot segment", MatrixArgs{HotelID: "a/../b"}, false},
		{"hotel with backslash", ScoreRunArgs{HotelID: `..\h1`, RunID: "r1"}, false},
	}
	for _, tt := range tests {
		err := s.check(tt.args)
		if tt.ok {
			assert.NoError(t, err, tt.name)
		} else {
			assert.ErrorIs(t, err, stats.ErrInvalidArgument, tt.name)
		}
	}
}

func TestWindowArgs_CustomWithoutPeriod(t *testing.T) {
	period, from, to, err := WindowArgs{From: "2024-02-01"}.resolve(stats.DefaultAreaPeriod, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, stats.PeriodCustom, period)
	assert.NotNil(t, from)
	assert.Nil(t, to)
}

func TestSnapshot_FetchesAndCaches(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{snap: hotelSnapshot()}
	s := NewServer(Options{Source: src, CacheDir: dir, Now: func() time.Time { return fixedNow }})

	_, err := s.snapshot(context.Background(), "")
	assert.ErrorIs(t, err, stats.ErrInvalidArgument, "no hotel and no default")

	snap, err := s.snapshot(context.Background(), "h7")
	require.NoError(t, err)
	assert.Equal(t, "h7", snap.HotelID)
	_, err = os.Stat(filepath.Join(dir, "h7.jsonl"))
	assert.NoError(t, err, "fetched hotel is cached on disk")

	_, err = s.snapshot(context.Background(), "h7")
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls, "second call is served from the store")

	// A fresh server over the same cache does not hit the backend.
	src2 := &fakeSource{err: errors.New("offline")}
	s2 := NewServer(Options{Source: src2, CacheDir: dir})
	_, err = s2.snapshot(context.Background(), "h7")
	require.NoError(t, err)
	assert.Equal(t, 0, src2.calls)

	_, err = s2.snapshot(context.Background(), "h8")
	assert.ErrorContains(t, err, "offline")
}

func TestSnapshot_RejectsHotelIDsOutsideCache(t *testing.T) {
	root := t.TempDir()
	cacheDir := filepath.Join(root, "cache")
	src := &fakeSource{snap: hotelSnapshot()}
	s := NewServer(Options{Source: src, CacheDir: cacheDir})

	for _, id := range []string{"../escaped", "a/../b", ".."} {
		_, err := s.snapshot(context.Background(), id)
		assert.ErrorIs(t, err, stats.ErrInvalidArgument, id)
	}
	assert.Equal(t, 0, src.calls, "nothing is fetched for a rejected id")
	_, err := os.Stat(filepath.Join(root, "escaped.jsonl"))
	assert.True(t, os.IsNotExist(err))
}

func TestHandleListHotels(t *testing.T) {
	dir := t.TempDir()
	cached := dataset.NewStore()
	other := hotelSnapshot()
	other.HotelID = "h2"
	other.Templates[1].Active = false
	cached.Put(other)
	require.NoError(t, cached.Save(dir, "h2"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	store := dataset.NewStore()
	store.Put(hotelSnapshot())
	s := NewServer(Options{Store: store, CacheDir: dir, DefaultHotelID: "h1"})

	out, err := s.handleListHotels(context.Background(), ListHotelsArgs{})
	require.NoError(t, err)
	hotels := out.Data.(map[string]any)["hotels"].([]HotelSummary)
	require.Len(t, hotels, 2)

	assert.Equal(t, "h1", hotels[0].HotelID)
	assert.True(t, hotels[0].Default)
	assert.Equal(t, 3, hotels[0].Runs)
	require.NotNil(t, hotels[0].LatestRun)
	assert.Equal(t, day(4), *hotels[0].LatestRun)
	assert.Len(t, hotels[0].AvailableTemplates, 2)

	assert.Equal(t, "h2", hotels[1].HotelID)
	require.Len(t, hotels[1].AvailableTemplates, 1, "inactive templates are not listed")
	assert.Equal(t, TemplateSummary{ID: "t1", Name: "Cold chain", Area: "Kitchen"}, hotels[1].AvailableTemplates[0])
}

func connect(t *testing.T, s *Server) *mcpsdk.ClientSession {
	ctx := context.Background()
	serverTransport, clientTransport := mcpsdk.NewInMemoryTransports()
	_, err := s.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestMCP_ListAndCallTools(t *testing.T) {
	session := connect(t, newTestServer(t))
	ctx := context.Background()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"get_dashboard", "rank_areas", "analyze_failures", "build_matrix", "score_run", "resolve_period", "rank_members", "list_hotels"}, names)

	res, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: "get_dashboard", Arguments: map[string]any{"period": "this_month"}})
	require.NoError(t, err)
	require.False(t, res.IsError)
	text := res.Content[0].(*mcpsdk.TextContent).Text

	var d stats.Dashboard
	require.NoError(t, json.Unmarshal([]byte(text), &d))
	assert.Equal(t, "h1", d.HotelID)
	assert.Equal(t, 2, d.Overall.Count)
	assert.Nil(t, d.Matrix, "matrix is opt-in")
}

func TestMCP_ToolErrors(t *testing.T) {
	session := connect(t, newTestServer(t))

	res, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{Name: "rank_areas", Arguments: map[string]any{"period": "fortnight"}})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.True(t, strings.Contains(res.Content[0].(*mcpsdk.TextContent).Text, "invalid argument"))
}

func TestArgSchemas(t *testing.T) {
	schema, err := jsonschema.For[ScoreRunArgs](nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"run_id"}, schema.Required)
	assert.NotEmpty(t, schema.Properties["run_id"].Description)

	schema, err = jsonschema.For[FailureArgs](nil)
	require.NoError(t, err)
	assert.Contains(t, schema.Properties, "period", "window fields are flattened")
	assert.Contains(t, schema.Properties, "pair_top_n")
}

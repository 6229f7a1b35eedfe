package visuals

import (
	"bytes"
	"strings"
	"testing"

	"audit-analytics/internal/stats"
)

func val(v float64) *float64 { return &v }

func sampleRows() []stats.MatrixRow {
	return []stats.MatrixRow{
		{
			EntityID: "a1",
			Label:    "Kitchen",
			Buckets: []stats.Cell{
				{Label: "Jan 2024", Value: val(82.5), Count: 2},
				{Label: "Feb 2024"},
				{Label: "Mar 2024", Value: val(55), Count: 1, Partial: true},
				{Label: "12M", Value: val(73.33), Count: 3, Summary: true},
			},
			Children: []stats.MatrixRow{{
				EntityID: "t1",
				Label:    "Cold chain",
				Buckets: []stats.Cell{
					{Label: "Jan 2024", Value: val(95), Count: 1},
					{Label: "Feb 2024"},
					{Label: "Mar 2024"},
					{Label: "12M", Value: val(95), Count: 1, Summary: true},
				},
			}},
		},
		{
			EntityID: "a2",
			Label:    "Spa <VIP>",
			Buckets: []stats.Cell{
				{Label: "Jan 2024"}, {Label: "Feb 2024"}, {Label: "Mar 2024"},
				{Label: "12M", Summary: true},
			},
		},
	}
}

func TestTrendChart(t *testing.T) {
	rows := sampleRows()
	chart := TrendChart(rows[0])
	if !strings.Contains(chart, `x-axis ["Jan 2024", "Mar 2024"]`) {
		t.Errorf("Expected months without data to be skipped, got:\n%s", chart)
	}
	if !strings.Contains(chart, "line [82.5, 55.0]") {
		t.Errorf("Expected monthly values only, got:\n%s", chart)
	}
	if strings.Contains(chart, "73.3") {
		t.Errorf("Summary cell must not be plotted")
	}
	if TrendChart(rows[1]) != "" {
		t.Errorf("Expected no chart for a row without data")
	}
}

func TestAreaAndFailureCharts(t *testing.T) {
	areas := []stats.AreaStat{
		{AreaID: "a1", Name: `The "Grill"`, Avg: stats.Avg{Value: val(91), Count: 4}},
		{AreaID: "a2", Name: "Spa", Avg: stats.Avg{Value: val(64.25), Count: 2}},
	}
	chart := AreaChart(areas)
	if !strings.Contains(chart, `"The 'Grill'"`) || !strings.Contains(chart, "bar [91.0, 64.2]") {
		t.Errorf("unexpected area chart:\n%s", chart)
	}

	topics := []stats.TopicStat{{Label: "fire-safety", FailCount: 5}, {Label: "labels", FailCount: 2}}
	chart = FailureChart(topics)
	if !strings.Contains(chart, "bar [5, 2]") || !strings.Contains(chart, "0 --> 6") {
		t.Errorf("unexpected failure chart:\n%s", chart)
	}
	if FailureChart(nil) != "" || AreaChart(nil) != "" {
		t.Errorf("Expected empty charts for empty input")
	}
}

func TestMatrixTable(t *testing.T) {
	table := MatrixTable(sampleRows())
	lines := strings.Split(strings.TrimSpace(table), "\n")
	if len(lines) != 5 {
		t.Fatalf("Expected header, rule and 3 rows, got %d:\n%s", len(lines), table)
	}
	if lines[0] != "| Area | Jan 2024 | Feb 2024 | Mar 2024 | 12M |" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[2] != "| Kitchen | 82.5 | — | 55.0 | **73.3** |" {
		t.Errorf("unexpected row %q", lines[2])
	}
	if !strings.Contains(lines[3], "↳ Cold chain") {
		t.Errorf("Expected indented child row, got %q", lines[3])
	}
	if strings.Contains(lines[4], "0.0") {
		t.Errorf("Null cells must not render as zero: %q", lines[4])
	}
}

func TestBand(t *testing.T) {
	tests := []struct {
		in   *float64
		want string
	}{
		{nil, "none"},
		{val(0), "poor"},
		{val(59.99), "poor"},
		{val(60), "fair"},
		{val(75), "good"},
		{val(90), "excellent"},
		{val(100), "excellent"},
	}
	for _, tt := range tests {
		if got := Band(tt.in); got != tt.want {
			t.Errorf("Band(%s) = %s, want %s", FormatValue(tt.in), got, tt.want)
		}
	}
}

func TestHeatReport(t *testing.T) {
	var buf bytes.Buffer
	if err := HeatReport(&buf, sampleRows(), "Heat matrix"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"<title>Heat matrix</title>",
		`<th class="summary">12M</th>`,
		`class="good" title="2 runs">82.5</td>`,
		`class="none" title="0 runs">—</td>`,
		`class="poor partial"`,
		`class="child">Cold chain`,
		"Spa &lt;VIP&gt;",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("Expected report to contain %q", want)
		}
	}

	buf.Reset()
	if err := HeatReport(&buf, nil, "Empty"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No audit runs in range.") {
		t.Errorf("Expected empty-state message")
	}
}

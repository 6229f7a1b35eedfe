package visuals

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"

	"audit-analytics/internal/stats"
)

//go:embed report.html.tmpl
var reportSource string

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"band":   Band,
	"format": FormatValue,
}).Parse(reportSource))

// Band maps a score to its colour class. Missing data gets its own band so an
// empty month never reads as a failing one.
func Band(v *float64) string {
	switch {
	case v == nil:
		return "none"
	case *v >= 90:
		return "excellent"
	case *v >= 75:
		return "good"
	case *v >= 60:
		return "fair"
	default:
		return "poor"
	}
}

type reportRow struct {
	Label string
	Depth int
	Cells []stats.Cell
}

type reportData struct {
	Title   string
	Headers []stats.Cell
	Rows    []reportRow
}

func flatten(rows []stats.MatrixRow, depth int, out []reportRow) []reportRow {
	for _, r := range rows {
		out = append(out, reportRow{Label: r.Label, Depth: depth, Cells: r.Buckets})
		out = flatten(r.Children, depth+1, out)
	}
	return out
}

// HeatReport writes a self-contained HTML page showing the matrix as a heat map.
func HeatReport(w io.Writer, rows []stats.MatrixRow, title string) error {
	data := reportData{Title: title, Rows: flatten(rows, 0, nil)}
	if len(rows) > 0 {
		data.Headers = rows[0].Buckets
	}
	if err := reportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

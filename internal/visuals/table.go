package visuals

import (
	"fmt"
	"strings"

	"audit-analytics/internal/stats"
)

// NoData marks a bucket without runs. It is never rendered as 0.
const NoData = "—"

// FormatValue renders a score with one decimal, or NoData.
func FormatValue(v *float64) string {
	if v == nil {
		return NoData
	}
	return fmt.Sprintf("%.1f", *v)
}

// MatrixTable renders matrix rows as a Markdown table. Child rows are indented under their parent.
func MatrixTable(rows []stats.MatrixRow) string {
	if len(rows) == 0 || len(rows[0].Buckets) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("| Area |")
	for _, c := range rows[0].Buckets {
		sb.WriteString(" " + c.Label + " |")
	}
	sb.WriteString("\n|---|")
	sb.WriteString(strings.Repeat("---:|", len(rows[0].Buckets)))
	sb.WriteString("\n")

	var write func(r stats.MatrixRow, depth int)
	write = func(r stats.MatrixRow, depth int) {
		label := strings.ReplaceAll(r.Label, "|", "/")
		if depth > 0 {
			label = strings.Repeat("&nbsp;&nbsp;", depth) + "↳ " + label
		}
		sb.WriteString("| " + label + " |")
		for _, c := range r.Buckets {
			cell := FormatValue(c.Value)
			if c.Summary && c.Value != nil {
				cell = "**" + cell + "**"
			}
			sb.WriteString(" " + cell + " |")
		}
		sb.WriteString("\n")
		for _, child := range r.Children {
			write(child, depth+1)
		}
	}
	for _, r := range rows {
		write(r, 0)
	}
	return sb.String()
}

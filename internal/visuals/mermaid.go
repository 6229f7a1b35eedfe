package visuals

import (
	"fmt"
	"math"
	"strings"

	"audit-analytics/internal/stats"
)

// maxBars keeps text charts readable in chat clients.
const maxBars = 20

// TrendChart creates a Mermaid xychart-beta line for the monthly cells of a matrix row.
// xychart cannot draw gaps, so months without data are left off the axis rather than plotted as 0.
func TrendChart(row stats.MatrixRow) string {
	var labels []string
	var values []string
	for _, c := range row.Buckets {
		if c.Summary || c.Value == nil {
			continue
		}
		labels = append(labels, fmt.Sprintf("\"%s\"", c.Label))
		values = append(values, fmt.Sprintf("%.1f", *c.Value))
	}
	if len(values) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"%s\"\n", escape(row.Label)))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString("    y-axis \"Score (%)\" 0 --> 100\n")
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// AreaChart creates a Mermaid bar chart of area averages, best first.
func AreaChart(areas []stats.AreaStat) string {
	var labels []string
	var values []string
	for _, a := range areas {
		if a.Value == nil {
			continue
		}
		labels = append(labels, fmt.Sprintf("\"%s\"", escape(a.Name)))
		values = append(values, fmt.Sprintf("%.1f", *a.Value))
		if len(values) == maxBars {
			break
		}
	}
	if len(values) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Average Score by Area\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString("    y-axis \"Score (%)\" 0 --> 100\n")
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// FailureChart creates a Mermaid bar chart of FAIL counts per topic.
func FailureChart(topics []stats.TopicStat) string {
	if len(topics) == 0 {
		return ""
	}

	var labels []string
	var values []string
	maxVal := 0
	for i, t := range topics {
		if i == maxBars {
			break
		}
		labels = append(labels, fmt.Sprintf("\"%s\"", escape(t.Label)))
		values = append(values, fmt.Sprintf("%d", t.FailCount))
		maxVal = max(maxVal, t.FailCount)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Most Frequent Failures\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Fails\" 0 --> %d\n", maxVal+int(math.Max(1, float64(maxVal)*0.2))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// escape keeps labels from breaking out of Mermaid's quoted strings.
func escape(s string) string {
	return strings.NewReplacer(`"`, "'", "\n", " ").Replace(s)
}

package export

import (
	"bytes"
	"fmt"

	"audit-analytics/internal/stats"

	"github.com/xuri/excelize/v2"
)

const (
	SheetAreas     = "Areas"
	SheetTemplates = "Templates"
	SheetSections  = "Sections"
	SheetFailures  = "Failures"
	SheetMembers   = "Members"
	SheetMatrix    = "Matrix"
)

type sheet struct {
	name   string
	header []string
	widths []float64
	rows   [][]any
}

// nullable keeps missing values as empty cells rather than 0.
func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// Workbook renders a dashboard as an XLSX file, one sheet per view.
func Workbook(d stats.Dashboard) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	scoreStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00
	if err != nil {
		return nil, fmt.Errorf("failed to create score style: %w", err)
	}

	sheets := []sheet{
		areaSheet(d),
		templateSheet(d),
		sectionSheet(d),
		failureSheet(d),
		memberSheet(d),
		matrixSheet(d),
	}
	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.name); err != nil {
				return nil, fmt.Errorf("failed to rename default sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s, headerStyle, scoreStyle); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, s sheet, headerStyle, scoreStyle int) error {
	header := make([]any, len(s.header))
	for i, h := range s.header {
		header[i] = h
	}
	if err := f.SetSheetRow(s.name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", s.name, err)
	}
	last, err := excelize.CoordinatesToCellName(len(s.header), 1)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", s.name, err)
	}

	for i, w := range s.widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(s.name, col, col, w); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", s.name, i+2, err)
		}
		for col, v := range row {
			if _, ok := v.(float64); !ok {
				continue
			}
			name, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellStyle(s.name, name, name, scoreStyle); err != nil {
				return fmt.Errorf("failed to style %s: %w", name, err)
			}
		}
	}
	return f.SetPanes(s.name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func areaSheet(d stats.Dashboard) sheet {
	s := sheet{name: SheetAreas, header: []string{"Rank", "Area", "Type", "Average", "Runs"}, widths: []float64{12, 28, 16, 12, 10}}
	for i, a := range d.Areas.Top {
		s.rows = append(s.rows, []any{fmt.Sprintf("Top %d", i+1), a.Name, a.Type, nullable(a.Value), a.Count})
	}
	for i, a := range d.Areas.Bottom {
		s.rows = append(s.rows, []any{fmt.Sprintf("Bottom %d", i+1), a.Name, a.Type, nullable(a.Value), a.Count})
	}
	return s
}

func templateSheet(d stats.Dashboard) sheet {
	s := sheet{name: SheetTemplates, header: []string{"Template", "Area", "Active", "Average", "Runs"}, widths: []float64{32, 24, 10, 12, 10}}
	for _, t := range d.WorstTemplates {
		s.rows = append(s.rows, []any{t.Name, t.AreaName, t.Active, nullable(t.Value), t.Count})
	}
	return s
}

func sectionSheet(d stats.Dashboard) sheet {
	s := sheet{name: SheetSections, header: []string{"Section", "Templates", "Runs", "Fails", "Average"}, widths: []float64{28, 12, 10, 10, 12}}
	for _, sec := range d.Sections {
		s.rows = append(s.rows, []any{sec.Name, len(sec.TemplateIDs), sec.Runs, sec.Fails, nullable(sec.Value)})
	}
	return s
}

func failureSheet(d stats.Dashboard) sheet {
	s := sheet{name: SheetFailures, header: []string{"View", "Topic", "Label", "Fails", "People affected", "Example"}, widths: []float64{12, 28, 28, 10, 16, 48}}
	for _, t := range d.Failures.ByAffected {
		s.rows = append(s.rows, []any{"Systemic", t.Topic, t.Label, t.FailCount, t.AffectedCount, t.ExampleText})
	}
	for _, t := range d.Failures.ByFrequency {
		s.rows = append(s.rows, []any{"Frequent", t.Topic, t.Label, t.FailCount, t.AffectedCount, t.ExampleText})
	}
	return s
}

func memberSheet(d stats.Dashboard) sheet {
	s := sheet{name: SheetMembers, header: []string{"Member", "Position", "Runs", "Average", "Answered", "Fails", "NA", "Fail rate %"}, widths: []float64{24, 18, 8, 10, 10, 8, 8, 12}}
	for _, m := range d.Members {
		s.rows = append(s.rows, []any{m.Name, m.Position, m.Runs, nullable(m.AvgScore.Value), m.Answered, m.Fails, m.NA, nullable(m.FailRate)})
	}
	return s
}

func matrixSheet(d stats.Dashboard) sheet {
	s := sheet{name: SheetMatrix, header: []string{"Area", "Template"}, widths: []float64{24, 28}}
	if len(d.Matrix) > 0 {
		for _, c := range d.Matrix[0].Buckets {
			s.header = append(s.header, c.Label)
		}
	}
	for _, r := range d.Matrix {
		s.rows = append(s.rows, matrixRow(r.Label, "", r.Buckets))
		for _, child := range r.Children {
			s.rows = append(s.rows, matrixRow(r.Label, child.Label, child.Buckets))
		}
	}
	return s
}

func matrixRow(area, template string, cells []stats.Cell) []any {
	row := []any{area, template}
	for _, c := range cells {
		row = append(row, nullable(c.Value))
	}
	return row
}

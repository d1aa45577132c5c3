package excel

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ordercheck/ordercheck/internal/compare"
	"github.com/ordercheck/ordercheck/internal/schema"
	"github.com/ordercheck/ordercheck/internal/table"
)

// resultColumn is the extra column check reports append to each sheet.
const resultColumn = "CHECK RESULT"

const (
	minColWidth = 10
	maxColWidth = 50
)

// WriteWorkbook saves tables as an xlsx file, one sheet per table. Used
// for converted PDF orders, where the output mirrors the input pages.
func WriteWorkbook(path string, sheets []compare.Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := newHeaderStyle(f)
	if err != nil {
		return err
	}

	for i, sheet := range sheets {
		name := sheetName(sheet.Name, i)
		if err := ensureSheet(f, name, i); err != nil {
			return err
		}
		writeHeader(f, name, sheet.Table.Columns, headerStyle)
		for r, row := range sheet.Table.Rows {
			for c, cell := range row {
				ref, _ := excelize.CoordinatesToCellName(c+1, r+2)
				f.SetCellValue(name, ref, cell)
			}
		}
		sizeColumns(f, name, sheet.Table, 0)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// WriteReport saves the checked order with findings. Every row that has
// findings is highlighted and the appended result column carries the
// messages; clean rows read OK.
func WriteReport(path string, sheets []compare.Sheet, rep *compare.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := newHeaderStyle(f)
	if err != nil {
		return err
	}
	problemRowStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFE6E6"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create highlight style: %w", err)
	}
	problemTextStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "CC0000"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFE6E6"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create status style: %w", err)
	}

	for i, sheet := range sheets {
		name := sheetName(sheet.Name, i)
		if err := ensureSheet(f, name, i); err != nil {
			return err
		}

		columns := append(append([]string(nil), sheet.Table.Columns...), resultColumn)
		writeHeader(f, name, columns, headerStyle)
		resultCol := len(columns)

		for r, row := range sheet.Table.Rows {
			excelRow := r + 2
			findings := rep.FindingsForRow(sheet.Name, excelRow)

			for c, cell := range row {
				ref, _ := excelize.CoordinatesToCellName(c+1, excelRow)
				f.SetCellValue(name, ref, cell)
			}

			statusRef, _ := excelize.CoordinatesToCellName(resultCol, excelRow)
			if len(findings) == 0 {
				f.SetCellValue(name, statusRef, "OK")
				continue
			}
			f.SetCellValue(name, statusRef, findingText(findings))

			firstRef, _ := excelize.CoordinatesToCellName(1, excelRow)
			lastRef, _ := excelize.CoordinatesToCellName(resultCol-1, excelRow)
			f.SetCellStyle(name, firstRef, lastRef, problemRowStyle)
			f.SetCellStyle(name, statusRef, statusRef, problemTextStyle)
		}
		sizeColumns(f, name, sheet.Table, 1)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// WriteSpecTemplate saves an empty spec workbook with the registry's
// canonical columns and one example row.
func WriteSpecTemplate(path string, reg *schema.Registry) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := newHeaderStyle(f)
	if err != nil {
		return err
	}

	const name = "Spec"
	if err := ensureSheet(f, name, 0); err != nil {
		return err
	}

	fields := reg.FieldNames()
	writeHeader(f, name, fields, headerStyle)
	for i, field := range fields {
		ref, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue(name, ref, exampleValue(field))
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(name, col, col, 20)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

func exampleValue(field string) string {
	switch field {
	case schema.FieldItemID:
		return "A-1001"
	case schema.FieldProductName:
		return "Example Product"
	case schema.FieldSize:
		return "L"
	case schema.FieldColor:
		return "Red"
	case schema.FieldUnitPrice:
		return "99.00"
	default:
		return ""
	}
}

func newHeaderStyle(f *excelize.File) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return 0, fmt.Errorf("create header style: %w", err)
	}
	return style, nil
}

// ensureSheet makes name the i-th sheet. The first table reuses the
// default sheet excelize creates.
func ensureSheet(f *excelize.File, name string, i int) error {
	if i == 0 {
		if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
			return fmt.Errorf("rename sheet: %w", err)
		}
		return nil
	}
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %q: %w", name, err)
	}
	return nil
}

func sheetName(name string, i int) string {
	if strings.TrimSpace(name) == "" {
		return fmt.Sprintf("Sheet%d", i+1)
	}
	return name
}

func writeHeader(f *excelize.File, sheet string, columns []string, style int) {
	for i, col := range columns {
		ref, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, ref, col)
		f.SetCellStyle(sheet, ref, ref, style)
	}
}

// sizeColumns sets widths from the longest cell per column, clamped so
// merged descriptions cannot blow the layout up. extra counts appended
// columns beyond the table's own.
func sizeColumns(f *excelize.File, sheet string, t *table.Table, extra int) {
	for i, col := range t.Columns {
		width := len(col)
		for _, row := range t.Rows {
			if l := len(row[i]); l > width {
				width = l
			}
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, name, name, clampWidth(width))
	}
	for j := 0; j < extra; j++ {
		name, _ := excelize.ColumnNumberToName(len(t.Columns) + 1 + j)
		f.SetColWidth(sheet, name, name, maxColWidth)
	}
}

func clampWidth(chars int) float64 {
	w := float64(chars) + 2
	if w < minColWidth {
		return minColWidth
	}
	if w > maxColWidth {
		return maxColWidth
	}
	return w
}

func findingText(findings []compare.Finding) string {
	parts := make([]string, len(findings))
	for i, f := range findings {
		parts[i] = fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return strings.Join(parts, "; ")
}

// Package excel reads and writes the xlsx workbooks the service
// exchanges with users: uploaded spec and order files on the way in,
// converted orders, check reports and spec templates on the way out.
package excel

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ordercheck/ordercheck/internal/compare"
	"github.com/ordercheck/ordercheck/internal/table"
)

// ReadWorkbook parses every sheet of an xlsx stream into tables. The
// first row of each sheet is the header; sheets with no rows at all are
// skipped.
func ReadWorkbook(r io.Reader) ([]compare.Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var sheets []compare.Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		if len(rows) == 0 {
			continue
		}
		t := table.FromRows(rows[0], rows[1:])
		sheets = append(sheets, compare.Sheet{Name: name, Table: t})
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets with data")
	}
	return sheets, nil
}

// ReadFirstSheet parses only the first data-bearing sheet, for inputs
// that are a single table by convention (spec uploads).
func ReadFirstSheet(r io.Reader) (*table.Table, error) {
	sheets, err := ReadWorkbook(r)
	if err != nil {
		return nil, err
	}
	return sheets[0].Table, nil
}

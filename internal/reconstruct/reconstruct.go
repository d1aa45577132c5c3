// Package reconstruct repairs tables extracted from PDF order
// documents. Extraction splits logical rows across several physical
// rows (long descriptions wrap) and smears headers over multiple rows;
// this package reassembles both before mapping and validation run.
package reconstruct

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ordercheck/ordercheck/internal/table"
)

// headerKeywords mark a cell as header-like regardless of shape.
var headerKeywords = []string{
	"ITEM", "EXTERNAL", "NUMBER", "DESCRIPTION", "DELIVERY",
	"DATE", "UNIT", "QUANTITY", "QTY", "PRICE", "AMOUNT",
}

// promotionKeywords decide whether a first data row under numeric
// column names is actually the real header.
var promotionKeywords = []string{"DESCRIPTION", "ITEM", "QTY", "PRICE", "AMOUNT"}

// positionalColumns is the standard order-table layout assumed when a
// table arrives with numeric column names and no recognizable header
// row at all.
var positionalColumns = []string{
	"ITEM", "EXTERNAL ITEM NUMBER", "DESCRIPTION", "DELIVERY DATE",
	"UNIT", "QUANTITY", "PRICE", "AMOUNT",
}

const (
	maxHeaderRows   = 3
	headerCellShare = 0.6
)

// Result carries the rebuilt table plus what was done to it, for
// logging and the diagnose endpoint.
type Result struct {
	Table              *table.Table
	HeaderRowsMerged   int
	RowsMerged         int
	PromotedHeader     bool
	PositionalFallback bool
}

// Rebuild normalizes headers, absorbs multi-row headers, promotes or
// synthesizes a header for tables with numeric column names, merges
// wrapped continuation rows into their anchor rows and cleans the
// result. Running Rebuild on its own output changes nothing.
func Rebuild(src *table.Table) Result {
	t := src.Clone()
	res := Result{Table: t}

	if t.Len() <= 1 {
		normalizeColumns(t)
		return res
	}

	if numericColumnNames(t.Columns) {
		if rowContainsAny(t.Rows[0], promotionKeywords) {
			promoteFirstRow(t)
			res.PromotedHeader = true
		} else {
			applyPositionalColumns(t)
			res.PositionalFallback = true
		}
	}
	normalizeColumns(t)
	res.HeaderRowsMerged = absorbHeaderRows(t)

	res.RowsMerged = mergeContinuations(t)
	cleanNumericColumns(t)
	t.DropEmptyRows()
	return res
}

func normalizeColumns(t *table.Table) {
	for i, c := range t.Columns {
		t.Columns[i] = table.NormalizeHeader(c)
	}
}

// numericColumnNames reports whether every column name is a bare
// number, the signature of an extractor that found no header at all.
func numericColumnNames(cols []string) bool {
	if len(cols) == 0 {
		return false
	}
	for _, c := range cols {
		if !table.IsNumeric(strings.TrimSpace(c)) {
			return false
		}
	}
	return true
}

func rowContainsAny(row []string, keywords []string) bool {
	for _, cell := range row {
		up := table.NormalizeHeader(cell)
		for _, kw := range keywords {
			if strings.Contains(up, kw) {
				return true
			}
		}
	}
	return false
}

// promoteFirstRow turns the first data row into the header. Blank
// cells get positional placeholder names.
func promoteFirstRow(t *table.Table) {
	for i := range t.Columns {
		cell := table.NormalizeHeader(t.Rows[0][i])
		if cell == "" {
			cell = fmt.Sprintf("COLUMN_%d", i)
		}
		t.Columns[i] = cell
	}
	t.Rows = t.Rows[1:]
}

// applyPositionalColumns renames numeric column names to the standard
// order-table layout by position.
func applyPositionalColumns(t *table.Table) {
	for i := range t.Columns {
		if i < len(positionalColumns) {
			t.Columns[i] = positionalColumns[i]
		} else {
			t.Columns[i] = fmt.Sprintf("COLUMN_%d", i)
		}
	}
}

// absorbHeaderRows folds leading data rows that are actually header
// continuations into the column names. At most maxHeaderRows rows are
// examined and scanning stops at the first row that does not look like
// a header.
func absorbHeaderRows(t *table.Table) int {
	absorbed := 0
	for absorbed < maxHeaderRows && absorbed < len(t.Rows) {
		if !isHeaderRow(t.Rows[absorbed]) {
			break
		}
		absorbed++
	}
	if absorbed == 0 {
		return 0
	}

	for i := range t.Columns {
		parts := []string{t.Columns[i]}
		for r := 0; r < absorbed; r++ {
			if cell := table.CleanCell(t.Rows[r][i]); cell != "" {
				parts = append(parts, cell)
			}
		}
		t.Columns[i] = table.NormalizeHeader(strings.Join(parts, " "))
	}
	t.Rows = t.Rows[absorbed:]
	return absorbed
}

// isHeaderRow reports whether at least 60% of a row's non-empty cells
// look like header text: a known keyword, or a short alphabetic label.
func isHeaderRow(row []string) bool {
	nonEmpty, headerish := 0, 0
	for _, cell := range row {
		if table.IsBlank(cell) {
			continue
		}
		nonEmpty++
		if isHeaderCell(cell) {
			headerish++
		}
	}
	if nonEmpty == 0 {
		return false
	}
	return float64(headerish)/float64(nonEmpty) >= headerCellShare
}

func isHeaderCell(cell string) bool {
	up := table.NormalizeHeader(cell)
	for _, kw := range headerKeywords {
		if strings.Contains(up, kw) {
			return true
		}
	}
	return alphabeticLabel(up)
}

// alphabeticLabel matches short all-letter labels like "COLOR" that
// are not in the keyword list but clearly are not data.
func alphabeticLabel(up string) bool {
	if len([]rune(up)) <= 2 {
		return false
	}
	for _, r := range up {
		if (r < 'A' || r > 'Z') && r != ' ' {
			return false
		}
	}
	return true
}

// descriptionColumn returns the index of the column continuation
// fragments live in, or -1 when the table has none.
func descriptionColumn(t *table.Table) int {
	for i, c := range t.Columns {
		up := table.NormalizeHeader(c)
		if strings.Contains(up, "DESCRIPTION") || strings.Contains(up, "DESC") {
			return i
		}
	}
	return -1
}

// mergeContinuations collapses physical rows that are fragments of the
// row above them. A row continues its anchor when its description cell
// is non-blank and every other non-blank cell either repeats the
// anchor's value or is a number filling a blank anchor cell. Any other
// differing value starts a new logical row.
func mergeContinuations(t *table.Table) int {
	descIdx := descriptionColumn(t)
	if descIdx < 0 || t.Len() == 0 {
		return 0
	}

	merged := 0
	var out [][]string
	anchor := append([]string(nil), t.Rows[0]...)
	fragments := descFragments(anchor[descIdx])

	flush := func() {
		anchor[descIdx] = cleanDescription(strings.Join(fragments, " "))
		out = append(out, anchor)
	}

	for _, row := range t.Rows[1:] {
		fills, ok := continuationFills(anchor, row, descIdx)
		if !ok {
			flush()
			anchor = append([]string(nil), row...)
			fragments = descFragments(anchor[descIdx])
			continue
		}
		merged++
		for idx, v := range fills {
			anchor[idx] = v
		}
		fragments = append(fragments, descFragments(row[descIdx])...)
	}
	flush()

	t.Rows = out
	return merged
}

// continuationFills decides whether row continues anchor. On success it
// returns the blank anchor cells the row fills in.
func continuationFills(anchor, row []string, descIdx int) (map[int]string, bool) {
	if table.IsBlank(row[descIdx]) {
		return nil, false
	}
	fills := make(map[int]string)
	for i := range row {
		if i == descIdx {
			continue
		}
		v := table.CleanCell(row[i])
		if table.IsBlank(v) {
			continue
		}
		base := table.CleanCell(anchor[i])
		if v == base {
			continue
		}
		if table.IsNumeric(v) && table.IsBlank(base) {
			fills[i] = v
			continue
		}
		return nil, false
	}
	return fills, true
}

func descFragments(cell string) []string {
	if table.IsBlank(cell) {
		return nil
	}
	return []string{table.CleanCell(cell)}
}

var pipeRun = regexp.MustCompile(`(\s*\|\s*)+`)

// cleanDescription normalizes the separator runs that merging wrapped
// fragments produces.
func cleanDescription(s string) string {
	s = pipeRun.ReplaceAllString(s, " | ")
	s = table.CleanCell(s)
	s = strings.TrimPrefix(s, "| ")
	s = strings.TrimSuffix(s, " |")
	return strings.TrimSpace(s)
}

// cleanNumericColumns strips currency noise from quantity, price and
// amount columns, leaving unparseable cells alone for validation to
// flag.
func cleanNumericColumns(t *table.Table) {
	for i, c := range t.Columns {
		up := table.NormalizeHeader(c)
		if !strings.Contains(up, "QUANTITY") && !strings.Contains(up, "QTY") &&
			!strings.Contains(up, "PRICE") && !strings.Contains(up, "AMOUNT") {
			continue
		}
		for r := range t.Rows {
			cell := table.CleanCell(t.Rows[r][i])
			if cell == "" {
				t.Rows[r][i] = cell
				continue
			}
			if f, ok := table.ParseOptionalNumber(cell); ok {
				t.Rows[r][i] = formatNumeric(f)
			} else {
				t.Rows[r][i] = cell
			}
		}
	}
}

// formatNumeric renders a cleaned numeric cell without trailing zeros
// beyond what the value needs.
func formatNumeric(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", f), "0"), ".")
}

// Package compare checks extracted order tables against the canonical
// product spec and reports every discrepancy row by row.
package compare

import (
	"fmt"

	"github.com/ordercheck/ordercheck/internal/table"
)

// Discrepancy kinds, from most to least severe for a given row.
const (
	KindInvalidItemID   = "INVALID_ITEM_ID"
	KindInvalidPrice    = "INVALID_PRICE"
	KindProductNotFound = "PRODUCT_NOT_FOUND"
	KindSizeMismatch    = "SIZE_MISMATCH"
	KindColorMismatch   = "COLOR_MISMATCH"
	KindPriceMismatch   = "PRICE_MISMATCH"
	KindTotalCalcError  = "TOTAL_CALC_ERROR"
)

// priceTolerance absorbs rounding noise between extracted prices and
// spec prices.
const priceTolerance = 0.01

// Options tune one comparison run.
type Options struct {
	// CheckTotals also verifies quantity * unit price against the
	// row's total column when all three are present and positive.
	CheckTotals bool
}

// Finding is one discrepancy on one order row. Row numbers are
// spreadsheet rows (header is row 1).
type Finding struct {
	Sheet   string `json:"sheet,omitempty"`
	Row     int    `json:"row"`
	ItemID  string `json:"item_id,omitempty"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Report aggregates one comparison run.
type Report struct {
	TotalRows int            `json:"total_rows"`
	ErrorRows int            `json:"error_rows"`
	Findings  []Finding      `json:"findings"`
	Counts    map[string]int `json:"counts"`
}

// FindingsForRow returns the findings on one sheet row.
func (r *Report) FindingsForRow(sheet string, row int) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Sheet == sheet && f.Row == row {
			out = append(out, f)
		}
	}
	return out
}

// SheetNames returns the distinct sheets findings were recorded
// against, in first-seen order.
func (r *Report) SheetNames() []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range r.Findings {
		if !seen[f.Sheet] {
			seen[f.Sheet] = true
			out = append(out, f.Sheet)
		}
	}
	return out
}

// Sheet is one order table tagged with where it came from.
type Sheet struct {
	Name  string
	Table *table.Table
}

// Compare checks a single order table against the spec.
func Compare(order *table.Table, idx *SpecIndex, opts Options) *Report {
	return CompareSheets([]Sheet{{Table: order}}, idx, opts)
}

// CompareSheets checks several order tables in one run, tagging every
// finding with its sheet name.
func CompareSheets(sheets []Sheet, idx *SpecIndex, opts Options) *Report {
	rep := &Report{Counts: make(map[string]int)}
	for _, sheet := range sheets {
		compareSheet(rep, sheet, idx, opts)
	}
	return rep
}

func compareSheet(rep *Report, sheet Sheet, idx *SpecIndex, opts Options) {
	t := standardizeOrder(sheet.Table)

	for i := 0; i < t.Len(); i++ {
		row := i + 2
		before := len(rep.Findings)
		rep.TotalRows++

		add := func(kind, item, msg string) {
			rep.Findings = append(rep.Findings, Finding{
				Sheet:   sheet.Name,
				Row:     row,
				ItemID:  item,
				Kind:    kind,
				Message: msg,
			})
			rep.Counts[kind]++
		}

		item := table.CleanCell(t.Cell(i, colItemID))
		if table.IsBlank(item) {
			add(KindInvalidItemID, "", "row has no item ID")
			rep.ErrorRows++
			continue
		}

		price, ok := rowPrice(t, i)
		if !ok {
			add(KindInvalidPrice, item, "row has no usable unit price")
			rep.ErrorRows++
			continue
		}

		size := t.Cell(i, colSize)
		color := t.Cell(i, colColor)

		if spec, hit := idx.Lookup(item, size, color); hit {
			if spec.HasPrice && abs(price-spec.Price) > priceTolerance {
				add(KindPriceMismatch, item, fmt.Sprintf(
					"unit price %s does not match spec price %s",
					table.FormatNumber(price), table.FormatNumber(spec.Price)))
			}
			// Totals are only checked on rows the spec actually knows.
			if opts.CheckTotals {
				checkTotal(add, t, i, item, price)
			}
		} else if !idx.HasItem(item) {
			add(KindProductNotFound, item, fmt.Sprintf("item %s is not in the spec", item))
		} else {
			checkVariant(add, idx, item, size, color)
		}

		if len(rep.Findings) > before {
			rep.ErrorRows++
		}
	}
}

// checkVariant fires size and color mismatches independently. An empty
// order value is a wildcard: it matches every spec variant.
func checkVariant(add func(kind, item, msg string), idx *SpecIndex, item, size, color string) {
	variants := idx.Variants(item)

	if s := normalizeValue(size); s != "" {
		found := false
		for _, v := range variants {
			if v.Size == s {
				found = true
				break
			}
		}
		if !found {
			add(KindSizeMismatch, item, fmt.Sprintf("size %q is not a spec variant of %s", table.CleanCell(size), item))
		}
	}

	if c := normalizeValue(color); c != "" {
		found := false
		for _, v := range variants {
			if v.Color == c {
				found = true
				break
			}
		}
		if !found {
			add(KindColorMismatch, item, fmt.Sprintf("color %q is not a spec variant of %s", table.CleanCell(color), item))
		}
	}
}

// checkTotal verifies quantity * unit price against the total column.
// Rows missing any of the three positive values are skipped.
func checkTotal(add func(kind, item, msg string), t *table.Table, i int, item string, price float64) {
	qty, qok := table.ParseOptionalNumber(t.Cell(i, colQuantity))
	total, tok := table.ParseOptionalNumber(t.Cell(i, colTotal))
	if !qok || !tok || qty <= 0 || price <= 0 || total <= 0 {
		return
	}
	expected := price * qty
	if abs(total-expected) > priceTolerance {
		add(KindTotalCalcError, item, fmt.Sprintf(
			"total %s does not equal quantity x unit price (expected %s)",
			table.FormatNumber(total), table.FormatNumber(expected)))
	}
}

// rowPrice finds a usable unit price on the row: the standardized
// unit_price column first, then any other column a price alias claims.
// Only positive values count.
func rowPrice(t *table.Table, i int) (float64, bool) {
	if p, ok := table.ParseOptionalNumber(t.Cell(i, colUnitPrice)); ok && p > 0 {
		return p, true
	}
	for j, col := range t.Columns {
		if col == colUnitPrice || col == colTotal || col == colQuantity {
			continue
		}
		up := table.NormalizeHeader(col)
		if !containsAny(up, []string{"PRICE", "单价", "价格", "COST"}) {
			continue
		}
		if p, ok := table.ParseOptionalNumber(t.Rows[i][j]); ok && p > 0 {
			return p, true
		}
	}
	return 0, false
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

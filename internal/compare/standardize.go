package compare

import (
	"strings"

	"github.com/ordercheck/ordercheck/internal/table"
)

// Standard column names comparison works over. Order tables come from
// many extractors with many header vocabularies; standardizeOrder
// funnels them all onto these.
const (
	colItemID    = "item_id"
	colName      = "product_name"
	colSize      = "size"
	colColor     = "color"
	colQuantity  = "quantity"
	colUnitPrice = "unit_price"
	colTotal     = "total_price"
)

// headerHints maps a standard column to the substrings that identify it
// in a source header. Scanned in this order; the total hints run before
// the price hints so "TOTAL PRICE" is not claimed as a unit price.
var headerHints = []struct {
	target string
	hints  []string
}{
	{colTotal, []string{"AMOUNT", "TOTAL", "金额", "总价"}},
	{colQuantity, []string{"QTY", "QUANTITY", "数量"}},
	{colUnitPrice, []string{"PRICE", "单价", "价格", "COST"}},
	{colSize, []string{"SIZE", "尺寸", "规格"}},
	{colColor, []string{"COLOR", "COLOUR", "颜色"}},
	{colItemID, []string{"ITEM", "货号", "编号", "ID"}},
	{colName, []string{"DESCRIPTION", "DESC", "NAME", "品名", "名称", "产品"}},
}

// standardizeOrder renames the order table's columns onto the standard
// set. Headers are matched by keyword first; columns no keyword claims
// are classified by sampling their content, and if nothing at all
// identifies an item column the first column is taken as item_id.
func standardizeOrder(src *table.Table) *table.Table {
	t := src.Clone()

	assigned := make(map[string]bool)
	rename := make(map[string]string)

	for _, col := range t.Columns {
		up := table.NormalizeHeader(col)
		for _, h := range headerHints {
			if assigned[h.target] {
				continue
			}
			if containsAny(up, h.hints) {
				rename[col] = h.target
				assigned[h.target] = true
				break
			}
		}
	}

	for i, col := range t.Columns {
		if _, done := rename[col]; done {
			continue
		}
		if target := inferColumn(t, i, assigned); target != "" {
			rename[col] = target
			assigned[target] = true
		}
	}

	if !assigned[colItemID] && len(t.Columns) > 0 {
		first := t.Columns[0]
		if _, taken := rename[first]; !taken {
			rename[first] = colItemID
			assigned[colItemID] = true
		}
	}

	t.RenameColumns(rename)
	return t
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// inferColumn classifies an unclaimed column by what its cells look
// like: codes mixing letters and digits are item IDs, decimal numbers
// are unit prices, whole numbers are quantities, longer free text is a
// product name.
func inferColumn(t *table.Table, col int, assigned map[string]bool) string {
	var sampled, mixed, decimals, integers, longText int
	for i := 0; i < t.Len() && sampled < 20; i++ {
		cell := table.CleanCell(t.Rows[i][col])
		if table.IsBlank(cell) {
			continue
		}
		sampled++
		switch {
		case mixesLettersAndDigits(cell):
			mixed++
		case table.IsNumeric(cell):
			if strings.Contains(cell, ".") {
				decimals++
			} else {
				integers++
			}
		case len([]rune(cell)) > 10:
			longText++
		}
	}
	if sampled == 0 {
		return ""
	}

	half := sampled / 2
	switch {
	case !assigned[colItemID] && mixed > half:
		return colItemID
	case !assigned[colUnitPrice] && decimals > half:
		return colUnitPrice
	case !assigned[colQuantity] && integers > half:
		return colQuantity
	case !assigned[colName] && longText > half:
		return colName
	}
	return ""
}

func mixesLettersAndDigits(s string) bool {
	var hasLetter, hasDigit bool
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			hasLetter = true
		}
	}
	return hasLetter && hasDigit
}

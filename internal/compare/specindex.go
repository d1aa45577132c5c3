package compare

import (
	"strings"

	"github.com/ordercheck/ordercheck/internal/schema"
	"github.com/ordercheck/ordercheck/internal/table"
)

// specRow is one spec line as indexed for lookup.
type specRow struct {
	Size     string
	Color    string
	Price    float64
	HasPrice bool
}

// SpecIndex answers the two lookups comparison needs: exact
// item/size/color hits and all variants of an item. Keys are
// case-insensitive; when the spec lists the same item/size/color twice
// the later row wins.
type SpecIndex struct {
	byKey  map[string]specRow
	byItem map[string][]specRow
	dupes  int
}

// BuildSpecIndex indexes a canonical spec table (item_id, size, color,
// standard_unit_price columns; size and color optional).
func BuildSpecIndex(t *table.Table) *SpecIndex {
	idx := &SpecIndex{
		byKey:  make(map[string]specRow),
		byItem: make(map[string][]specRow),
	}
	for i := 0; i < t.Len(); i++ {
		item := normalizeValue(t.Cell(i, schema.FieldItemID))
		if item == "" {
			continue
		}
		row := specRow{
			Size:  normalizeValue(t.Cell(i, schema.FieldSize)),
			Color: normalizeValue(t.Cell(i, schema.FieldColor)),
		}
		if p, ok := table.ParseOptionalNumber(t.Cell(i, schema.FieldUnitPrice)); ok {
			row.Price = p
			row.HasPrice = true
		}

		key := specKey(item, row.Size, row.Color)
		if _, exists := idx.byKey[key]; exists {
			idx.dupes++
		}
		idx.byKey[key] = row
		idx.byItem[item] = append(idx.byItem[item], row)
	}
	return idx
}

// Len returns the number of distinct item/size/color keys.
func (idx *SpecIndex) Len() int { return len(idx.byKey) }

// DuplicateKeys returns how many spec rows were shadowed by a later row
// with the same key.
func (idx *SpecIndex) DuplicateKeys() int { return idx.dupes }

// Lookup returns the spec row for the exact item/size/color key.
func (idx *SpecIndex) Lookup(item, size, color string) (specRow, bool) {
	row, ok := idx.byKey[specKey(normalizeValue(item), normalizeValue(size), normalizeValue(color))]
	return row, ok
}

// Variants returns every spec row for the item, or nil when the item is
// unknown.
func (idx *SpecIndex) Variants(item string) []specRow {
	return idx.byItem[normalizeValue(item)]
}

// HasItem reports whether any spec row exists for the item.
func (idx *SpecIndex) HasItem(item string) bool {
	return len(idx.Variants(item)) > 0
}

func specKey(item, size, color string) string {
	return item + "|" + size + "|" + color
}

// normalizeValue folds a key component: cleaned, lower-cased, with the
// extractor's "nan" placeholder treated as empty.
func normalizeValue(s string) string {
	if table.IsBlank(s) {
		return ""
	}
	return strings.ToLower(table.CleanCell(s))
}

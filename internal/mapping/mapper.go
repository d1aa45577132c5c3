// Package mapping resolves the arbitrary column headers of an uploaded
// order table onto the canonical schema. Exact alias hits are
// authoritative; everything else goes through fuzzy matching with
// graded confidence so the caller can surface suggestions instead of
// silently guessing.
package mapping

import (
	"fmt"
	"strings"

	"github.com/ordercheck/ordercheck/internal/schema"
	"github.com/ordercheck/ordercheck/internal/table"
)

// Fuzzy matching thresholds. The alias cutoff gates automatic
// acceptance; the suggestion cutoff only gates what gets shown to the
// user for unmapped columns.
const (
	aliasCutoff      = 0.6
	suggestionCutoff = 0.4
	maxCandidates    = 3
)

// Confidence grades for non-exact mappings.
const (
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Suggestion describes how a non-exact source column was (or was not)
// resolved. MappedTo is nil when the column stayed unmapped.
type Suggestion struct {
	MappedTo   *string  `json:"mapped_to"`
	Confidence string   `json:"confidence"`
	Candidates []string `json:"candidates"`
}

// Result is the outcome of mapping one header row.
type Result struct {
	Success         bool                  `json:"success"`
	Mapped          map[string]string     `json:"mapped"`
	MissingRequired []string              `json:"missing_required"`
	Unmapped        []string              `json:"unmapped"`
	Suggestions     map[string]Suggestion `json:"suggestions,omitempty"`
}

// MapColumns resolves every source column against the registry.
// Success means all required fields found a source column; unmapped
// optional columns never block.
func MapColumns(columns []string, reg *schema.Registry) Result {
	idx := reg.ReverseIndex()
	vocab := reg.Vocabulary()

	res := Result{
		Mapped:      make(map[string]string),
		Suggestions: make(map[string]Suggestion),
	}

	for _, col := range columns {
		key := table.NormalizeKey(col)
		if key == "" {
			continue
		}

		if field, ok := idx[key]; ok {
			res.Mapped[col] = field
			continue
		}

		if matches := ClosestMatches(key, vocab, maxCandidates, aliasCutoff); len(matches) > 0 {
			field := idx[matches[0].Value]
			res.Mapped[col] = field
			res.Suggestions[col] = Suggestion{
				MappedTo:   &field,
				Confidence: ConfidenceMedium,
				Candidates: candidateFields(matches, idx),
			}
			continue
		}

		res.Unmapped = append(res.Unmapped, col)
		if candidates := suggestFields(key, reg); len(candidates) > 0 {
			res.Suggestions[col] = Suggestion{
				Confidence: ConfidenceLow,
				Candidates: candidates,
			}
		}
	}

	mappedFields := make(map[string]bool, len(res.Mapped))
	for _, field := range res.Mapped {
		mappedFields[field] = true
	}
	for _, field := range reg.RequiredFields() {
		if !mappedFields[field] {
			res.MissingRequired = append(res.MissingRequired, field)
		}
	}
	res.Success = len(res.MissingRequired) == 0
	return res
}

// candidateFields converts vocabulary matches to their canonical field
// names, deduplicated in score order.
func candidateFields(matches []Match, idx map[string]string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range matches {
		field := idx[m.Value]
		if !seen[field] {
			seen[field] = true
			out = append(out, field)
		}
	}
	return out
}

// suffixes stripped when hunting for a candidate field for an unmapped
// column ("product_code" should still suggest item_id's neighbors).
var nameSuffixes = []string{"_id", "id", "_name", "name", "_code", "code", "_price", "price"}

// suggestFields proposes canonical fields for a column nothing matched:
// fuzzy against field names first, then mutual substring containment,
// then containment after stripping common suffixes.
func suggestFields(key string, reg *schema.Registry) []string {
	names := reg.FieldNames()
	lower := make([]string, len(names))
	for i, n := range names {
		lower[i] = strings.ToLower(n)
	}

	var out []string
	seen := make(map[string]bool)
	add := func(field string) {
		if !seen[field] && len(out) < maxCandidates {
			seen[field] = true
			out = append(out, field)
		}
	}

	for _, m := range ClosestMatches(key, lower, maxCandidates, suggestionCutoff) {
		for i, n := range lower {
			if n == m.Value {
				add(names[i])
				break
			}
		}
	}

	for i, n := range lower {
		if strings.Contains(n, key) || strings.Contains(key, n) {
			add(names[i])
		}
	}

	stripped := stripSuffix(key)
	for i, n := range lower {
		sn := stripSuffix(n)
		if stripped == "" || sn == "" {
			continue
		}
		if strings.Contains(sn, stripped) || strings.Contains(stripped, sn) {
			add(names[i])
		}
	}
	return out
}

func stripSuffix(s string) string {
	for _, suf := range nameSuffixes {
		if strings.HasSuffix(s, suf) && len(s) > len(suf) {
			return strings.TrimSuffix(s, suf)
		}
	}
	return s
}

// Project builds the canonical table from a mapped source table.
// Columns come out in registry order, holding only the fields that
// found a source column. When two source columns map to the same field
// the later one wins and a note records the override.
func Project(t *table.Table, res Result, reg *schema.Registry) (*table.Table, []string) {
	var notes []string

	// field -> winning source column, later mappings overriding earlier.
	source := make(map[string]string)
	for _, col := range t.Columns {
		field, ok := res.Mapped[col]
		if !ok {
			continue
		}
		if prev, dup := source[field]; dup {
			notes = append(notes, fmt.Sprintf("column %q overrides %q for field %s", col, prev, field))
		}
		source[field] = col
	}

	var fields []string
	for _, f := range reg.FieldNames() {
		if _, ok := source[f]; ok {
			fields = append(fields, f)
		}
	}

	out := table.New(fields...)
	for i := range t.Rows {
		row := make([]string, len(fields))
		for j, f := range fields {
			row[j] = table.CleanCell(t.Cell(i, source[f]))
		}
		out.AppendRow(row)
	}
	return out, notes
}

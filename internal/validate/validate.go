// Package validate checks a canonical order table for structural
// problems before it is stored or compared. Errors block the table;
// warnings are surfaced with correction suggestions but let it through.
package validate

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ordercheck/ordercheck/internal/schema"
	"github.com/ordercheck/ordercheck/internal/table"
)

// Severity of a single finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding on one cell. Row numbers are spreadsheet rows:
// the header is row 1, so the first data row reports as 2.
type Issue struct {
	Row        int      `json:"row"`
	Field      string   `json:"field"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Report is the outcome of validating one table. Valid is false when
// any error-severity issue exists or required columns are missing
// outright.
type Report struct {
	Valid          bool     `json:"valid"`
	RowCount       int      `json:"row_count"`
	Errors         []Issue  `json:"errors"`
	Warnings       []Issue  `json:"warnings"`
	MissingColumns []string `json:"missing_columns,omitempty"`
}

// Check validates the table against the registry's canonical schema.
// Missing required columns fail fast; cell-level checks never run on a
// structurally broken table.
func Check(t *table.Table, reg *schema.Registry) Report {
	rep := Report{RowCount: t.Len()}

	for _, field := range reg.RequiredFields() {
		if !t.HasColumn(field) {
			rep.MissingColumns = append(rep.MissingColumns, field)
		}
	}
	if len(rep.MissingColumns) > 0 {
		rep.Valid = false
		return rep
	}

	seen := make(map[string]int)
	hasPrice := t.HasColumn(schema.FieldUnitPrice)

	for i := 0; i < t.Len(); i++ {
		row := i + 2

		id := table.CleanCell(t.Cell(i, schema.FieldItemID))
		name := table.CleanCell(t.Cell(i, schema.FieldProductName))

		switch {
		case table.IsBlank(id):
			rep.Errors = append(rep.Errors, Issue{
				Row:        row,
				Field:      schema.FieldItemID,
				Severity:   SeverityError,
				Message:    "item ID is empty",
				Suggestion: generatedID(name, row),
			})
		case seen[id] > 0:
			seen[id]++
			rep.Warnings = append(rep.Warnings, Issue{
				Row:        row,
				Field:      schema.FieldItemID,
				Severity:   SeverityWarning,
				Message:    fmt.Sprintf("duplicate item ID %q", id),
				Suggestion: fmt.Sprintf("%s_V%d", id, seen[id]),
			})
		default:
			seen[id] = 1
		}

		if table.IsBlank(name) {
			rep.Warnings = append(rep.Warnings, Issue{
				Row:      row,
				Field:    schema.FieldProductName,
				Severity: SeverityWarning,
				Message:  "product name is empty",
			})
		}

		if hasPrice {
			rep.checkPrice(i, row, t)
		}
	}

	rep.Valid = len(rep.Errors) == 0
	return rep
}

func (rep *Report) checkPrice(i, row int, t *table.Table) {
	raw := table.CleanCell(t.Cell(i, schema.FieldUnitPrice))
	if table.IsBlank(raw) {
		return
	}

	price, ok := table.ParseOptionalNumber(raw)
	if !ok {
		issue := Issue{
			Row:      row,
			Field:    schema.FieldUnitPrice,
			Severity: SeverityError,
			Message:  fmt.Sprintf("price %q is not a number", raw),
		}
		if f, found := table.ExtractNumber(raw); found {
			issue.Suggestion = table.FormatNumber(f)
		}
		rep.Errors = append(rep.Errors, issue)
		return
	}
	if price < 0 {
		rep.Warnings = append(rep.Warnings, Issue{
			Row:        row,
			Field:      schema.FieldUnitPrice,
			Severity:   SeverityWarning,
			Message:    fmt.Sprintf("price %s is negative", table.FormatNumber(price)),
			Suggestion: table.FormatNumber(-price),
		})
	}
}

// generatedID proposes a replacement for an empty item ID from the
// product name and row number, e.g. "CHA_2" for "Chair" on row 2.
func generatedID(name string, row int) string {
	prefix := namePrefix(name)
	if prefix == "" {
		prefix = "ITEM"
	}
	return fmt.Sprintf("%s_%d", prefix, row)
}

func namePrefix(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
			if b.Len() >= 3 {
				break
			}
		}
	}
	return b.String()
}

package validate

import (
	"testing"

	"github.com/ordercheck/ordercheck/internal/schema"
	"github.com/ordercheck/ordercheck/internal/table"
)

func canonical(rows [][]string) *table.Table {
	return table.FromRows(
		[]string{schema.FieldItemID, schema.FieldProductName, schema.FieldUnitPrice},
		rows,
	)
}

func TestCheckMissingRequiredColumnsFailsFast(t *testing.T) {
	tbl := table.FromRows([]string{schema.FieldSize}, [][]string{{"L"}})

	rep := Check(tbl, schema.Defaults())

	if rep.Valid {
		t.Fatal("valid = true with required columns missing")
	}
	want := []string{schema.FieldItemID, schema.FieldProductName, schema.FieldUnitPrice}
	if len(rep.MissingColumns) != len(want) {
		t.Fatalf("missing = %v, want %v", rep.MissingColumns, want)
	}
	for i := range want {
		if rep.MissingColumns[i] != want[i] {
			t.Fatalf("missing = %v, want %v", rep.MissingColumns, want)
		}
	}
	if len(rep.Errors) != 0 || len(rep.Warnings) != 0 {
		t.Fatal("cell checks must not run on structurally broken tables")
	}
}

func TestCheckEmptyItemIDIsError(t *testing.T) {
	rep := Check(canonical([][]string{
		{"", "Chair", "10.00"},
	}), schema.Defaults())

	if rep.Valid {
		t.Fatal("valid = true with empty item ID")
	}
	if len(rep.Errors) != 1 {
		t.Fatalf("errors = %v", rep.Errors)
	}
	e := rep.Errors[0]
	if e.Row != 2 || e.Field != schema.FieldItemID {
		t.Errorf("issue = %+v, want row 2 on item_id", e)
	}
	if e.Suggestion != "CHA_2" {
		t.Errorf("suggestion = %q, want CHA_2", e.Suggestion)
	}
}

func TestCheckDuplicateItemIDIsWarningOnly(t *testing.T) {
	rep := Check(canonical([][]string{
		{"A-1", "Chair", "10.00"},
		{"A-1", "Chair", "10.00"},
		{"A-1", "Chair", "10.00"},
	}), schema.Defaults())

	if !rep.Valid {
		t.Fatalf("duplicates alone must stay valid: %+v", rep.Errors)
	}
	if len(rep.Warnings) != 2 {
		t.Fatalf("warnings = %v, want 2", rep.Warnings)
	}
	if rep.Warnings[0].Suggestion != "A-1_V2" || rep.Warnings[1].Suggestion != "A-1_V3" {
		t.Errorf("suggestions = %q, %q", rep.Warnings[0].Suggestion, rep.Warnings[1].Suggestion)
	}
}

func TestCheckEmptyProductNameIsWarning(t *testing.T) {
	rep := Check(canonical([][]string{
		{"A-1", "nan", "10.00"},
	}), schema.Defaults())

	if !rep.Valid {
		t.Fatal("empty product name must not invalidate")
	}
	if len(rep.Warnings) != 1 || rep.Warnings[0].Field != schema.FieldProductName {
		t.Fatalf("warnings = %v", rep.Warnings)
	}
}

func TestCheckPriceRules(t *testing.T) {
	cases := []struct {
		name       string
		price      string
		valid      bool
		warnings   int
		suggestion string
	}{
		{"numeric", "12.50", true, 0, ""},
		{"zero is valid", "0", true, 0, ""},
		{"blank skipped", "", true, 0, ""},
		{"negative warns", "-5", true, 1, "5.00"},
		{"garbage errors", "abc", false, 0, ""},
		{"noisy suggests extraction", "USD 12.50", false, 0, "12.50"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rep := Check(canonical([][]string{
				{"A-1", "Chair", tc.price},
			}), schema.Defaults())

			if rep.Valid != tc.valid {
				t.Fatalf("valid = %v, want %v (errors %v)", rep.Valid, tc.valid, rep.Errors)
			}
			if len(rep.Warnings) != tc.warnings {
				t.Fatalf("warnings = %v", rep.Warnings)
			}
			if tc.suggestion != "" {
				var got string
				if tc.valid {
					got = rep.Warnings[0].Suggestion
				} else {
					got = rep.Errors[0].Suggestion
				}
				if got != tc.suggestion {
					t.Errorf("suggestion = %q, want %q", got, tc.suggestion)
				}
			}
		})
	}
}

func TestCheckOptionalPriceColumnMayBeAbsent(t *testing.T) {
	reg := schema.NewRegistry([]schema.CanonicalField{
		{Name: schema.FieldItemID, Required: true},
		{Name: schema.FieldProductName, Required: true},
		{Name: schema.FieldUnitPrice},
	})
	tbl := table.FromRows(
		[]string{schema.FieldItemID, schema.FieldProductName},
		[][]string{{"A-1", "Chair"}},
	)

	rep := Check(tbl, reg)

	if !rep.Valid || len(rep.Warnings) != 0 {
		t.Fatalf("table without the optional price column must validate clean: %+v", rep)
	}
}

func TestCheckRowNumbersAccountForHeader(t *testing.T) {
	rep := Check(canonical([][]string{
		{"A-1", "Chair", "1"},
		{"", "Desk", "1"},
	}), schema.Defaults())

	if len(rep.Errors) != 1 || rep.Errors[0].Row != 3 {
		t.Fatalf("errors = %v, want single error on row 3", rep.Errors)
	}
}

package schema

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestDefaultsShape(t *testing.T) {
	reg := Defaults()

	required := reg.RequiredFields()
	if len(required) != 3 || required[0] != FieldItemID ||
		required[1] != FieldProductName || required[2] != FieldUnitPrice {
		t.Fatalf("required fields = %v, want [item_id product_name standard_unit_price]", required)
	}

	optional := reg.OptionalFields()
	want := []string{FieldSize, FieldColor}
	if len(optional) != len(want) {
		t.Fatalf("optional fields = %v, want %v", optional, want)
	}
	for i := range want {
		if optional[i] != want[i] {
			t.Fatalf("optional fields = %v, want %v", optional, want)
		}
	}
}

func TestReverseIndexIncludesFieldNames(t *testing.T) {
	idx := Defaults().ReverseIndex()

	cases := map[string]string{
		"产品id":     FieldItemID,
		"货号":       FieldItemID,
		"item_id":  FieldItemID,
		"品名":       FieldProductName,
		"unit price": FieldUnitPrice,
		"colour":   FieldColor,
	}
	for alias, want := range cases {
		if got := idx[alias]; got != want {
			t.Errorf("idx[%q] = %q, want %q", alias, got, want)
		}
	}
}

func TestReverseIndexFirstDefinitionWins(t *testing.T) {
	reg := NewRegistry([]CanonicalField{
		{Name: "a", Aliases: []string{"shared"}},
		{Name: "b", Aliases: []string{"shared"}},
	})
	if got := reg.ReverseIndex()["shared"]; got != "a" {
		t.Fatalf("idx[shared] = %q, want a", got)
	}
}

func TestWithFieldRejectsDuplicates(t *testing.T) {
	reg := Defaults()
	if _, err := reg.WithField(CanonicalField{Name: FieldItemID}); err == nil {
		t.Fatal("expected error adding existing field")
	}
	if _, err := reg.WithField(CanonicalField{Name: "  "}); err == nil {
		t.Fatal("expected error adding blank field name")
	}

	next, err := reg.WithField(CanonicalField{Name: "material", Aliases: []string{"材质"}})
	if err != nil {
		t.Fatalf("WithField: %v", err)
	}
	if _, ok := next.Field("material"); !ok {
		t.Fatal("new field missing from copy")
	}
	if _, ok := reg.Field("material"); ok {
		t.Fatal("original registry mutated")
	}
}

func TestWithAliasAndWithoutAlias(t *testing.T) {
	reg := Defaults()

	next, err := reg.WithAlias(FieldColor, "colorway")
	if err != nil {
		t.Fatalf("WithAlias: %v", err)
	}
	if next.ReverseIndex()["colorway"] != FieldColor {
		t.Fatal("added alias not resolvable")
	}

	if _, err := next.WithAlias(FieldColor, "COLORWAY"); err == nil {
		t.Fatal("expected case-insensitive duplicate rejection")
	}

	back, err := next.WithoutAlias(FieldColor, "colorway")
	if err != nil {
		t.Fatalf("WithoutAlias: %v", err)
	}
	if _, ok := back.ReverseIndex()["colorway"]; ok {
		t.Fatal("removed alias still resolvable")
	}

	if _, err := reg.WithoutAlias("nope", "x"); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestStoreFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name string
		body string
	}{
		{"absent", ""},
		{"empty", "   "},
		{"malformed", "{not json"},
		{"no mappings", `{"column_mappings":{},"required_columns":[],"optional_columns":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".json")
			if tc.name != "absent" {
				if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			s := NewStore(path, testLogger())
			if got := s.Registry().RequiredFields(); len(got) != 3 {
				t.Fatalf("required = %v, want defaults", got)
			}
		})
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	s := NewStore(path, testLogger())

	err := s.Update(func(r *Registry) (*Registry, error) {
		return r.WithAlias(FieldSize, "dimensions")
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	reloaded := NewStore(path, testLogger())
	if reloaded.Registry().ReverseIndex()["dimensions"] != FieldSize {
		t.Fatal("persisted alias lost on reload")
	}

	fields := reloaded.Registry().FieldNames()
	want := Defaults().FieldNames()
	if len(fields) != len(want) {
		t.Fatalf("fields = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Fatalf("field order changed on round trip: %v, want %v", fields, want)
		}
	}
}

func TestStoreUpdateFailureKeepsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	s := NewStore(path, testLogger())

	err := s.Update(func(r *Registry) (*Registry, error) {
		return r.WithoutField("does_not_exist")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatal("failed update should not persist anything")
	}
	if got := len(s.Registry().FieldNames()); got != 5 {
		t.Fatalf("snapshot changed after failed update: %d fields", got)
	}
}

func TestStoreReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	s := NewStore(path, testLogger())

	if err := s.Update(func(r *Registry) (*Registry, error) {
		return r.WithoutField(FieldColor)
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, ok := s.Registry().Field(FieldColor); ok {
		t.Fatal("field not removed")
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if _, ok := s.Registry().Field(FieldColor); !ok {
		t.Fatal("reset did not restore defaults")
	}
}

package table

import (
	"testing"
)

func TestAppendRowPadsAndTruncates(t *testing.T) {
	tbl := New("a", "b", "c")
	tbl.AppendRow([]string{"1"})
	tbl.AppendRow([]string{"1", "2", "3", "4"})

	if got := tbl.Rows[0]; len(got) != 3 || got[1] != "" {
		t.Fatalf("short row not padded: %v", got)
	}
	if got := tbl.Rows[1]; len(got) != 3 || got[2] != "3" {
		t.Fatalf("long row not truncated: %v", got)
	}
}

func TestCellOutOfRange(t *testing.T) {
	tbl := FromRows([]string{"a"}, [][]string{{"x"}})
	if got := tbl.Cell(5, "a"); got != "" {
		t.Errorf("out-of-range row = %q, want empty", got)
	}
	if got := tbl.Cell(0, "missing"); got != "" {
		t.Errorf("unknown column = %q, want empty", got)
	}
	tbl.SetCell(5, "a", "y") // must not panic
}

func TestCloneIsDeep(t *testing.T) {
	tbl := FromRows([]string{"a"}, [][]string{{"x"}})
	cp := tbl.Clone()
	cp.SetCell(0, "a", "changed")
	cp.Columns[0] = "renamed"

	if tbl.Cell(0, "a") != "x" || tbl.Columns[0] != "a" {
		t.Fatal("clone shares storage with original")
	}
}

func TestDropEmptyRows(t *testing.T) {
	tbl := FromRows([]string{"a", "b"}, [][]string{
		{"x", ""},
		{"", "  "},
		{"nan", "NaN"},
		{"", "y"},
	})
	tbl.DropEmptyRows()
	if tbl.Len() != 2 {
		t.Fatalf("rows = %d, want 2 (blank and nan rows dropped)", tbl.Len())
	}
}

func TestEnsureAndDropColumn(t *testing.T) {
	tbl := FromRows([]string{"a"}, [][]string{{"x"}})
	tbl.EnsureColumn("b", "-")
	if tbl.Cell(0, "b") != "-" {
		t.Fatal("EnsureColumn did not fill default")
	}
	tbl.EnsureColumn("b", "other") // no-op on existing column
	if tbl.Cell(0, "b") != "-" {
		t.Fatal("EnsureColumn overwrote existing column")
	}
	tbl.DropColumn("a")
	if tbl.HasColumn("a") || len(tbl.Rows[0]) != 1 {
		t.Fatal("DropColumn left stale cells")
	}
}

func TestNormalizeHeaderFoldsWidthAndCase(t *testing.T) {
	cases := map[string]string{
		"　Ｉｔｅｍ　Ｎｏ　": "ITEM NO",
		"unit\nprice":       "UNIT PRICE",
		"  Description  ":   "DESCRIPTION",
	}
	for in, want := range cases {
		if got := NormalizeHeader(in); got != want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseOptionalNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.5", 12.5, true},
		{" 1,234.50 ", 1234.5, true},
		{"$99", 99, true},
		{"¥1,000", 1000, true},
		{"(42.5)", -42.5, true},
		{"-3", -3, true},
		{"1e3", 1000, true},
		{"", 0, false},
		{"nan", 0, false},
		{"abc", 0, false},
		{"12.5.6", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseOptionalNumber(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("ParseOptionalNumber(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestExtractNumber(t *testing.T) {
	if got, ok := ExtractNumber("USD 12.50"); !ok || got != 12.5 {
		t.Errorf("ExtractNumber = %v, %v", got, ok)
	}
	if _, ok := ExtractNumber("no digits"); ok {
		t.Error("expected failure on letters only")
	}
}

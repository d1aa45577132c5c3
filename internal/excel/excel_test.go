package excel

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ordercheck/ordercheck/internal/compare"
	"github.com/ordercheck/ordercheck/internal/schema"
	"github.com/ordercheck/ordercheck/internal/table"
)

func readBack(t *testing.T, path string) []compare.Sheet {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	sheets, err := ReadWorkbook(file)
	if err != nil {
		t.Fatal(err)
	}
	return sheets
}

func TestWriteWorkbookRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.xlsx")
	in := []compare.Sheet{
		{Name: "page-1", Table: table.FromRows(
			[]string{"ITEM", "DESCRIPTION", "PRICE"},
			[][]string{{"A-1", "Chair", "10.5"}},
		)},
		{Name: "page-2", Table: table.FromRows(
			[]string{"ITEM", "DESCRIPTION", "PRICE"},
			[][]string{{"B-2", "Desk", "99"}},
		)},
	}

	if err := WriteWorkbook(path, in); err != nil {
		t.Fatalf("WriteWorkbook: %v", err)
	}

	out := readBack(t, path)
	if len(out) != 2 {
		t.Fatalf("sheets = %d, want 2", len(out))
	}
	if out[0].Name != "page-1" || out[1].Name != "page-2" {
		t.Fatalf("sheet names = %q, %q", out[0].Name, out[1].Name)
	}
	if got := out[1].Table.Cell(0, "DESCRIPTION"); got != "Desk" {
		t.Errorf("cell = %q, want Desk", got)
	}
}

func TestWriteReportAppendsResultColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	sheets := []compare.Sheet{
		{Name: "orders", Table: table.FromRows(
			[]string{"ITEM", "PRICE"},
			[][]string{
				{"A-1", "10.00"},
				{"Z-9", "5.00"},
			},
		)},
	}
	rep := &compare.Report{
		Findings: []compare.Finding{
			{Sheet: "orders", Row: 3, ItemID: "Z-9", Kind: compare.KindProductNotFound, Message: "item Z-9 is not in the spec"},
		},
	}

	if err := WriteReport(path, sheets, rep); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}

	out := readBack(t, path)
	tbl := out[0].Table
	if !tbl.HasColumn(resultColumn) {
		t.Fatalf("columns = %v, want %s appended", tbl.Columns, resultColumn)
	}
	if got := tbl.Cell(0, resultColumn); got != "OK" {
		t.Errorf("clean row status = %q, want OK", got)
	}
	status := tbl.Cell(1, resultColumn)
	if !strings.Contains(status, compare.KindProductNotFound) {
		t.Errorf("problem row status = %q, want kind named", status)
	}
}

func TestWriteSpecTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.xlsx")
	if err := WriteSpecTemplate(path, schema.Defaults()); err != nil {
		t.Fatalf("WriteSpecTemplate: %v", err)
	}

	out := readBack(t, path)
	tbl := out[0].Table
	for _, field := range schema.Defaults().FieldNames() {
		if !tbl.HasColumn(field) {
			t.Errorf("template missing column %s", field)
		}
	}
	if tbl.Len() != 1 {
		t.Fatalf("rows = %d, want single example row", tbl.Len())
	}
	if got := tbl.Cell(0, schema.FieldItemID); got != "A-1001" {
		t.Errorf("example item = %q", got)
	}
}

func TestReadWorkbookRejectsGarbage(t *testing.T) {
	if _, err := ReadWorkbook(strings.NewReader("not an xlsx")); err == nil {
		t.Fatal("expected error on non-xlsx input")
	}
}

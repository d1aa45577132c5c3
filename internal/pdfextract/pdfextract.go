// Package pdfextract pulls order tables out of PDF documents. Text
// runs are grouped into visual rows by their Y coordinate, the header
// row anchors the column grid by X coordinate, and everything between
// the header and the totals line becomes table rows. Text outside the
// table is scanned for order metadata.
package pdfextract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ordercheck/ordercheck/internal/compare"
	"github.com/ordercheck/ordercheck/internal/table"
)

// yTolerance is how far apart two text runs may sit vertically and
// still belong to the same visual row.
const yTolerance = 2.0

// xTolerance is the slack allowed when snapping a text run to the
// column grid the header row defines.
const xTolerance = 5.0

// tableKeywords identify the header row of an order table. A row needs
// at least two of them to anchor a table.
var tableKeywords = []string{
	"ITEM", "DESCRIPTION", "QTY", "QUANTITY", "PRICE",
	"AMOUNT", "UNIT", "DELIVERY", "DATE", "数量", "单价", "金额",
}

// totalMarkers end a table region.
var totalMarkers = []string{"TOTAL", "SUBTOTAL", "合计", "总计"}

// PageTable is one extracted table with where it came from and how
// cleanly the text snapped to the column grid.
type PageTable struct {
	Page     int
	Table    *table.Table
	Accuracy float64
}

// Document is everything extracted from one PDF.
type Document struct {
	Pages    int
	Tables   []PageTable
	Customer map[string]string
	Summary  map[string]string
}

// Sheets converts the extracted tables to named sheets, one per page.
func (d *Document) Sheets() []compare.Sheet {
	out := make([]compare.Sheet, 0, len(d.Tables))
	for _, pt := range d.Tables {
		out = append(out, compare.Sheet{
			Name:  fmt.Sprintf("page-%d", pt.Page),
			Table: pt.Table,
		})
	}
	return out
}

// Extract parses the PDF at path.
func Extract(path string) (*Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	doc := &Document{
		Pages:    r.NumPage(),
		Customer: make(map[string]string),
		Summary:  make(map[string]string),
	}

	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		p := r.Page(pageNum)
		if p.V.IsNull() {
			continue
		}
		extractPage(doc, pageNum, p.Content().Text)
	}

	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("no order table found in %d page(s)", doc.Pages)
	}
	return doc, nil
}

// textRow is one visual row of the page, items ordered left to right.
type textRow struct {
	y     float64
	items []pdf.Text
}

func (tr *textRow) joined() string {
	parts := make([]string, len(tr.items))
	for i, it := range tr.items {
		parts[i] = strings.TrimSpace(it.S)
	}
	return strings.Join(parts, " ")
}

// groupRows buckets text runs into visual rows by Y coordinate and
// sorts each row left to right. Rows come back top of page first.
func groupRows(texts []pdf.Text) []textRow {
	var rows []textRow
	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		placed := false
		for i := range rows {
			if abs(rows[i].y-t.Y) < yTolerance {
				rows[i].items = append(rows[i].items, t)
				placed = true
				break
			}
		}
		if !placed {
			rows = append(rows, textRow{y: t.Y, items: []pdf.Text{t}})
		}
	}
	// PDF Y grows upward.
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].y > rows[j].y })
	for i := range rows {
		items := rows[i].items
		sort.SliceStable(items, func(a, b int) bool { return items[a].X < items[b].X })
	}
	return rows
}

func extractPage(doc *Document, pageNum int, texts []pdf.Text) {
	rows := groupRows(texts)

	headerIdx := findHeaderRow(rows)
	if headerIdx < 0 {
		// Pages without a table still contribute metadata.
		for _, row := range rows {
			scanMetadata(doc, row.joined())
		}
		return
	}

	for _, row := range rows[:headerIdx] {
		scanMetadata(doc, row.joined())
	}

	header := rows[headerIdx]
	bounds := make([]float64, len(header.items))
	columns := make([]string, len(header.items))
	for i, it := range header.items {
		bounds[i] = it.X
		columns[i] = table.CleanCell(it.S)
	}

	t := table.New(columns...)
	assigned, total := 0, 0

	endIdx := len(rows)
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		up := strings.ToUpper(row.joined())
		if containsAny(up, totalMarkers) {
			endIdx = i
			break
		}

		cells := make([]string, len(columns))
		for _, it := range row.items {
			total++
			col := columnFor(bounds, it.X)
			if col < 0 {
				continue
			}
			assigned++
			if cells[col] == "" {
				cells[col] = table.CleanCell(it.S)
			} else {
				cells[col] += " " + table.CleanCell(it.S)
			}
		}
		t.AppendRow(cells)
	}

	for i := endIdx; i < len(rows); i++ {
		scanMetadata(doc, rows[i].joined())
	}

	t.DropEmptyRows()
	if t.IsEmpty() {
		return
	}

	accuracy := 1.0
	if total > 0 {
		accuracy = float64(assigned) / float64(total)
	}
	doc.Tables = append(doc.Tables, PageTable{Page: pageNum, Table: t, Accuracy: accuracy})
}

// findHeaderRow returns the first row carrying at least two table
// keywords, or -1.
func findHeaderRow(rows []textRow) int {
	for i, row := range rows {
		up := strings.ToUpper(row.joined())
		hits := 0
		for _, kw := range tableKeywords {
			if strings.Contains(up, kw) {
				hits++
			}
		}
		if hits >= 2 {
			return i
		}
	}
	return -1
}

// columnFor snaps an X coordinate to the header grid: the rightmost
// column starting at or left of x, within tolerance.
func columnFor(bounds []float64, x float64) int {
	col := -1
	for i, b := range bounds {
		if x >= b-xTolerance {
			col = i
		}
	}
	return col
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Metadata patterns for the text around the table. The first capture
// group that matches wins; existing values are never overwritten, so
// the top-most occurrence sticks.
var (
	orderNoPattern   = regexp.MustCompile(`(?i)order\s*(?:no|number|#)[.::]?\s*([A-Za-z0-9-]+)`)
	orderDatePattern = regexp.MustCompile(`(?i)(?:order\s*)?date[.::]?\s*(\d{4}[-/]\d{1,2}[-/]\d{1,2})`)
	customerPattern  = regexp.MustCompile(`(?i)customer[.::]?\s*(.+)`)
	totalPattern     = regexp.MustCompile(`(?i)(?:grand\s*)?total[.::]?\s*[$€£¥]?\s*([\d,]+(?:\.\d+)?)`)
)

func scanMetadata(doc *Document, line string) {
	line = table.CleanCell(line)
	if line == "" {
		return
	}
	setIfAbsent(doc.Customer, "order_no", firstGroup(orderNoPattern, line))
	setIfAbsent(doc.Customer, "order_date", firstGroup(orderDatePattern, line))
	setIfAbsent(doc.Customer, "customer", firstGroup(customerPattern, line))
	setIfAbsent(doc.Summary, "total_amount", firstGroup(totalPattern, line))
}

func firstGroup(re *regexp.Regexp, line string) string {
	m := re.FindStringSubmatch(line)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func setIfAbsent(m map[string]string, key, value string) {
	if value == "" {
		return
	}
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

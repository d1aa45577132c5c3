// Package core wires the extraction, mapping, validation and
// comparison pipeline together behind one service the HTTP layer
// calls. Handlers stay thin; everything that touches more than one
// package happens here.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ordercheck/ordercheck/internal/compare"
	"github.com/ordercheck/ordercheck/internal/config"
	"github.com/ordercheck/ordercheck/internal/excel"
	"github.com/ordercheck/ordercheck/internal/logging"
	"github.com/ordercheck/ordercheck/internal/mapping"
	"github.com/ordercheck/ordercheck/internal/pdfextract"
	"github.com/ordercheck/ordercheck/internal/reconstruct"
	"github.com/ordercheck/ordercheck/internal/schema"
	"github.com/ordercheck/ordercheck/internal/store"
	"github.com/ordercheck/ordercheck/internal/table"
	"github.com/ordercheck/ordercheck/internal/validate"
)

// ErrUnsupportedFile is returned for uploads that are neither PDF nor
// xlsx workbooks.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Metadata sheet names used in converted workbooks. These carry order
// header and footer details, not item rows, and are skipped when a
// converted workbook comes back in for checking.
const (
	customerSheet = "Customer_Info"
	summarySheet  = "Summary"
)

// ErrSpecInvalid is returned when an uploaded spec cannot be accepted.
// The accompanying result carries the details.
var ErrSpecInvalid = errors.New("spec rejected")

// Service runs the order checking pipeline.
type Service struct {
	cfg     *config.Config
	store   *store.Store
	schemas *schema.Store
}

// NewService creates the pipeline service.
func NewService(cfg *config.Config, st *store.Store, schemas *schema.Store) *Service {
	return &Service{cfg: cfg, store: st, schemas: schemas}
}

// Store exposes the artifact store for file download handlers.
func (s *Service) Store() *store.Store { return s.store }

// Schemas exposes the schema store for configuration handlers.
func (s *Service) Schemas() *schema.Store { return s.schemas }

// ConvertResult describes one PDF converted to a workbook.
type ConvertResult struct {
	Upload   store.Artifact    `json:"upload"`
	Output   store.Artifact    `json:"output"`
	Pages    int               `json:"pages"`
	Tables   []TableInfo       `json:"tables"`
	Customer map[string]string `json:"customer,omitempty"`
	Summary  map[string]string `json:"summary,omitempty"`
}

// TableInfo summarizes one extracted and rebuilt table.
type TableInfo struct {
	Sheet      string   `json:"sheet"`
	Rows       int      `json:"rows"`
	Columns    []string `json:"columns"`
	Accuracy   float64  `json:"accuracy"`
	MergedRows int      `json:"merged_rows"`
}

// ConvertPDF stores the uploaded PDF, extracts its order tables,
// repairs split rows and saves the result as an xlsx workbook.
func (s *Service) ConvertPDF(ctx context.Context, name string, r io.Reader) (ConvertResult, error) {
	log := logging.FromContext(ctx)

	upload, err := s.store.Save(ctx, store.KindUpload, name, r)
	if err != nil {
		return ConvertResult{}, err
	}

	doc, err := pdfextract.Extract(upload.Path)
	if err != nil {
		return ConvertResult{}, fmt.Errorf("extract %s: %w", upload.Name, err)
	}

	sheets, infos := rebuildSheets(doc.Sheets())
	applyAccuracy(infos, doc)
	if len(doc.Customer) > 0 {
		sheets = append([]compare.Sheet{kvSheet(customerSheet, doc.Customer)}, sheets...)
	}
	if len(doc.Summary) > 0 {
		sheets = append(sheets, kvSheet(summarySheet, doc.Summary))
	}

	output := s.store.Allocate(store.KindOutput, replaceExt(upload.Name, ".xlsx"))
	if err := excel.WriteWorkbook(output.Path, sheets); err != nil {
		return ConvertResult{}, err
	}
	output, err = s.store.Commit(ctx, output)
	if err != nil {
		return ConvertResult{}, err
	}

	log.Info("pdf converted",
		"upload_id", upload.ID,
		"output_id", output.ID,
		"pages", doc.Pages,
		"tables", len(sheets),
	)
	return ConvertResult{
		Upload:   upload,
		Output:   output,
		Pages:    doc.Pages,
		Tables:   infos,
		Customer: doc.Customer,
		Summary:  doc.Summary,
	}, nil
}

// SpecResult describes an accepted (or rejected) spec upload.
type SpecResult struct {
	Artifact   store.Artifact  `json:"artifact,omitempty"`
	Mapping    mapping.Result  `json:"mapping"`
	Validation validate.Report `json:"validation"`
	Notes      []string        `json:"notes,omitempty"`
	Rows       int             `json:"rows"`
}

// ImportSpec reads a spec workbook, maps its columns onto the
// canonical schema, validates it and stores the normalized version.
// Specs with missing required columns or validation errors are
// rejected with ErrSpecInvalid; the result still carries the reports
// so the caller can show what went wrong.
func (s *Service) ImportSpec(ctx context.Context, name string, r io.Reader) (SpecResult, error) {
	log := logging.FromContext(ctx)
	reg := s.schemas.Registry()

	src, err := excel.ReadFirstSheet(r)
	if err != nil {
		return SpecResult{}, err
	}

	res := mapping.MapColumns(src.Columns, reg)
	if !res.Success {
		return SpecResult{Mapping: res}, fmt.Errorf("%w: missing required columns %v",
			ErrSpecInvalid, res.MissingRequired)
	}

	canonical, notes := mapping.Project(src, res, reg)
	canonical.DropEmptyRows()

	report := validate.Check(canonical, reg)
	out := SpecResult{Mapping: res, Validation: report, Notes: notes, Rows: canonical.Len()}
	if !report.Valid {
		return out, fmt.Errorf("%w: %d validation error(s)", ErrSpecInvalid, len(report.Errors))
	}

	art := s.store.Allocate(store.KindSpec, replaceExt(name, ".xlsx"))
	if err := excel.WriteWorkbook(art.Path, []compare.Sheet{{Name: "Spec", Table: canonical}}); err != nil {
		return out, err
	}
	art, err = s.store.Commit(ctx, art)
	if err != nil {
		return out, err
	}
	out.Artifact = art

	log.Info("spec imported",
		"spec_id", art.ID,
		"rows", canonical.Len(),
		"warnings", len(report.Warnings),
	)
	return out, nil
}

// CheckResult is the outcome of checking an order against a spec.
type CheckResult struct {
	Report   *compare.Report   `json:"report"`
	Summary  string            `json:"summary"`
	Output   store.Artifact    `json:"output"`
	Upload   store.Artifact    `json:"upload"`
	Tables   []TableInfo       `json:"tables"`
	Customer map[string]string `json:"customer,omitempty"`
}

// CheckOrder runs the full pipeline on an uploaded order document (PDF
// or xlsx) against the stored spec and saves a highlighted report
// workbook.
func (s *Service) CheckOrder(ctx context.Context, specID, name string, r io.Reader) (CheckResult, error) {
	log := logging.FromContext(ctx)

	idx, err := s.loadSpec(ctx, specID)
	if err != nil {
		return CheckResult{}, err
	}
	if n := idx.DuplicateKeys(); n > 0 {
		log.Debug("spec has duplicate item/size/color keys, later rows win",
			"spec_id", specID, "shadowed_rows", n)
	}

	upload, err := s.store.Save(ctx, store.KindUpload, name, r)
	if err != nil {
		return CheckResult{}, err
	}

	sheets, infos, customer, err := s.loadOrder(upload)
	if err != nil {
		return CheckResult{}, err
	}

	rep := compare.CompareSheets(sheets, idx, compare.Options{
		CheckTotals: s.cfg.Compare.CheckTotals,
	})

	output := s.store.Allocate(store.KindOutput, replaceExt(upload.Name, ".check.xlsx"))
	if err := excel.WriteReport(output.Path, sheets, rep); err != nil {
		return CheckResult{}, err
	}
	output, err = s.store.Commit(ctx, output)
	if err != nil {
		return CheckResult{}, err
	}

	log.Info("order checked",
		"spec_id", specID,
		"upload_id", upload.ID,
		"output_id", output.ID,
		"rows", rep.TotalRows,
		"error_rows", rep.ErrorRows,
	)
	return CheckResult{
		Report:   rep,
		Summary:  summarize(rep),
		Output:   output,
		Upload:   upload,
		Tables:   infos,
		Customer: customer,
	}, nil
}

// DiagnoseResult explains what the pipeline would do with a file
// without storing anything.
type DiagnoseResult struct {
	FileType string          `json:"file_type"`
	Tables   []TableInfo     `json:"tables"`
	Mapping  *mapping.Result `json:"mapping,omitempty"`
}

// Diagnose runs extraction and column mapping on an upload and reports
// the intermediate results. Nothing is persisted beyond the scratch
// file PDF parsing needs.
func (s *Service) Diagnose(ctx context.Context, name string, r io.Reader) (DiagnoseResult, error) {
	var (
		sheets []compare.Sheet
		doc    *pdfextract.Document
	)

	switch {
	case isPDF(name):
		tmp, err := os.CreateTemp("", "diagnose-*.pdf")
		if err != nil {
			return DiagnoseResult{}, fmt.Errorf("create scratch file: %w", err)
		}
		defer os.Remove(tmp.Name())
		if _, err := io.Copy(tmp, r); err != nil {
			tmp.Close()
			return DiagnoseResult{}, fmt.Errorf("write scratch file: %w", err)
		}
		tmp.Close()

		pdfDoc, err := pdfextract.Extract(tmp.Name())
		if err != nil {
			return DiagnoseResult{}, err
		}
		doc = pdfDoc
		sheets = doc.Sheets()
	case isWorkbook(name):
		var err error
		sheets, err = excel.ReadWorkbook(r)
		if err != nil {
			return DiagnoseResult{}, err
		}
	default:
		return DiagnoseResult{}, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(name))
	}

	rebuilt, infos := rebuildSheets(sheets)
	if doc != nil {
		applyAccuracy(infos, doc)
	}
	out := DiagnoseResult{FileType: strings.TrimPrefix(filepath.Ext(name), "."), Tables: infos}
	if len(rebuilt) > 0 {
		res := mapping.MapColumns(rebuilt[0].Table.Columns, s.schemas.Registry())
		out.Mapping = &res
	}
	return out, nil
}

// SpecTemplate generates a downloadable empty spec workbook with the
// current canonical columns.
func (s *Service) SpecTemplate(ctx context.Context) (store.Artifact, error) {
	art := s.store.Allocate(store.KindOutput, "spec_template.xlsx")
	if err := excel.WriteSpecTemplate(art.Path, s.schemas.Registry()); err != nil {
		return store.Artifact{}, err
	}
	return s.store.Commit(ctx, art)
}

// loadSpec reads a stored spec artifact back into a lookup index.
func (s *Service) loadSpec(ctx context.Context, specID string) (*compare.SpecIndex, error) {
	art, err := s.store.Get(ctx, specID)
	if err != nil {
		return nil, err
	}
	if art.Kind != store.KindSpec {
		return nil, fmt.Errorf("artifact %s is a %s, not a spec", specID, art.Kind)
	}

	f, err := os.Open(art.Path)
	if err != nil {
		return nil, fmt.Errorf("open spec file: %w", err)
	}
	defer f.Close()

	t, err := excel.ReadFirstSheet(f)
	if err != nil {
		return nil, fmt.Errorf("read spec %s: %w", specID, err)
	}
	return compare.BuildSpecIndex(t), nil
}

// loadOrder turns an uploaded order document into rebuilt sheets.
func (s *Service) loadOrder(upload store.Artifact) ([]compare.Sheet, []TableInfo, map[string]string, error) {
	switch {
	case isPDF(upload.Name):
		doc, err := pdfextract.Extract(upload.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		sheets, infos := rebuildSheets(doc.Sheets())
		applyAccuracy(infos, doc)
		return sheets, infos, doc.Customer, nil
	case isWorkbook(upload.Name):
		f, err := os.Open(upload.Path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open order file: %w", err)
		}
		defer f.Close()
		raw, err := excel.ReadWorkbook(f)
		if err != nil {
			return nil, nil, nil, err
		}
		raw = dropMetadataSheets(raw)
		sheets, infos := rebuildSheets(raw)
		return sheets, infos, nil, nil
	default:
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filepath.Ext(upload.Name))
	}
}

// rebuildSheets repairs every sheet and collects per-table info. The
// extraction accuracy is only known for PDF tables; workbook sheets
// report 1.0.
func rebuildSheets(raw []compare.Sheet) ([]compare.Sheet, []TableInfo) {
	sheets := make([]compare.Sheet, 0, len(raw))
	infos := make([]TableInfo, 0, len(raw))
	for _, sheet := range raw {
		res := reconstruct.Rebuild(sheet.Table)
		sheets = append(sheets, compare.Sheet{Name: sheet.Name, Table: res.Table})
		infos = append(infos, TableInfo{
			Sheet:      sheet.Name,
			Rows:       res.Table.Len(),
			Columns:    res.Table.Columns,
			Accuracy:   1.0,
			MergedRows: res.RowsMerged,
		})
	}
	return sheets, infos
}

// applyAccuracy copies the extractor's per-table accuracy onto the
// matching infos. Document.Sheets and Document.Tables share order.
func applyAccuracy(infos []TableInfo, doc *pdfextract.Document) {
	for i := range infos {
		if i < len(doc.Tables) {
			infos[i].Accuracy = doc.Tables[i].Accuracy
		}
	}
}

// kvSheet renders a metadata section as a two-column sheet with stable
// key order.
func kvSheet(name string, values map[string]string) compare.Sheet {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := table.New("FIELD", "VALUE")
	for _, k := range keys {
		t.AppendRow([]string{k, values[k]})
	}
	return compare.Sheet{Name: name, Table: t}
}

// dropMetadataSheets filters out the Customer_Info/Summary sheets a
// converted workbook carries alongside its item tables.
func dropMetadataSheets(sheets []compare.Sheet) []compare.Sheet {
	out := sheets[:0]
	for _, sheet := range sheets {
		if sheet.Name == customerSheet || sheet.Name == summarySheet {
			continue
		}
		out = append(out, sheet)
	}
	return out
}

// SheetPreview is a bounded JSON view of one workbook sheet.
type SheetPreview struct {
	Name      string     `json:"name"`
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	TotalRows int        `json:"total_rows"`
}

// PreviewArtifact returns up to limit rows per sheet of a stored
// workbook. PDF uploads cannot be previewed.
func (s *Service) PreviewArtifact(ctx context.Context, id string, limit int) ([]SheetPreview, error) {
	art, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isWorkbook(art.Name) {
		return nil, fmt.Errorf("%w: only workbooks can be previewed", ErrUnsupportedFile)
	}

	f, err := os.Open(art.Path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	sheets, err := excel.ReadWorkbook(f)
	if err != nil {
		return nil, err
	}

	out := make([]SheetPreview, 0, len(sheets))
	for _, sheet := range sheets {
		p := SheetPreview{
			Name:      sheet.Name,
			Columns:   sheet.Table.Columns,
			TotalRows: sheet.Table.Len(),
		}
		for i := 0; i < sheet.Table.Len() && i < limit; i++ {
			p.Rows = append(p.Rows, sheet.Table.RecordAt(i).Cells())
		}
		out = append(out, p)
	}
	return out, nil
}

// summarize renders the comparison outcome as a short human-readable
// text block.
func summarize(rep *compare.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Checked %d row(s): %d with issues, %d clean.\n",
		rep.TotalRows, rep.ErrorRows, rep.TotalRows-rep.ErrorRows)
	if len(rep.Findings) == 0 {
		b.WriteString("No discrepancies found.")
		return b.String()
	}
	for _, kind := range []string{
		compare.KindInvalidItemID,
		compare.KindInvalidPrice,
		compare.KindProductNotFound,
		compare.KindSizeMismatch,
		compare.KindColorMismatch,
		compare.KindPriceMismatch,
		compare.KindTotalCalcError,
	} {
		if n := rep.Counts[kind]; n > 0 {
			fmt.Fprintf(&b, "%s: %d\n", kind, n)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

func isWorkbook(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".xlsx" || ext == ".xlsm"
}

// replaceExt swaps a filename's extension.
func replaceExt(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}

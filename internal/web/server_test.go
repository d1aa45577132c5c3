package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ordercheck/ordercheck/internal/config"
	"github.com/ordercheck/ordercheck/internal/core"
	"github.com/ordercheck/ordercheck/internal/schema"
	"github.com/ordercheck/ordercheck/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			RequestTimeout:  time.Minute,
			ShutdownTimeout: time.Second,
		},
		Upload: config.UploadConfig{
			MaxFileSize: 10 << 20,
			Timeout:     time.Minute,
		},
		Rate:    config.RateLimitConfig{Enabled: false},
		Compare: config.CompareConfig{CheckTotals: true},
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	artifacts, err := store.Open(t.TempDir(), log)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { artifacts.Close() })

	schemas := schema.NewStore(filepath.Join(t.TempDir(), "column_config.json"), log)
	return NewServer(core.NewService(cfg, artifacts, schemas), cfg)
}

// workbook builds an xlsx file in memory from a header and rows.
func workbook(t *testing.T, header []string, rows [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := f.SetSheetRow("Sheet1", "A1", &cells); err != nil {
		t.Fatal(err)
	}
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow("Sheet1", cell, &cells); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// uploadRequest builds a multipart POST with one file plus form fields.
func uploadRequest(t *testing.T, url, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func doJSON(t *testing.T, s *Server, req *http.Request, wantStatus int, out any) {
	t.Helper()

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != wantStatus {
		t.Fatalf("%s %s = %d, want %d; body: %s",
			req.Method, req.URL.Path, rec.Code, wantStatus, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode response: %v; body: %s", err, rec.Body.String())
		}
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	var body map[string]string
	doJSON(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil), http.StatusOK, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestMappingPreview(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/mapping/preview",
		strings.NewReader(`{"columns":["货号","品名","单价"]}`))
	req.Header.Set("Content-Type", "application/json")

	var res struct {
		Success bool              `json:"success"`
		Mapped  map[string]string `json:"mapped"`
	}
	doJSON(t, s, req, http.StatusOK, &res)
	if !res.Success {
		t.Fatalf("mapping failed: %+v", res)
	}
	if res.Mapped["货号"] != "item_id" || res.Mapped["单价"] != "standard_unit_price" {
		t.Errorf("mapped = %v", res.Mapped)
	}
}

func TestMappingPreviewEmptyColumns(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/mapping/preview",
		strings.NewReader(`{"columns":[]}`))
	req.Header.Set("Content-Type", "application/json")
	doJSON(t, s, req, http.StatusBadRequest, nil)
}

func TestSchemaConfigLifecycle(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/config/fields",
		strings.NewReader(`{"name":"material","aliases":["材质"],"required":false}`))
	req.Header.Set("Content-Type", "application/json")

	var cfg struct {
		Optional []string `json:"optional"`
	}
	doJSON(t, s, req, http.StatusOK, &cfg)
	if !containsString(cfg.Optional, "material") {
		t.Fatalf("optional = %v, want material added", cfg.Optional)
	}

	doJSON(t, s, httptest.NewRequest(http.MethodDelete, "/api/config/fields/material", nil),
		http.StatusOK, &cfg)
	if containsString(cfg.Optional, "material") {
		t.Fatalf("optional = %v, want material removed", cfg.Optional)
	}

	// Unknown fields are rejected.
	doJSON(t, s, httptest.NewRequest(http.MethodDelete, "/api/config/fields/material", nil),
		http.StatusBadRequest, nil)

	var reset struct {
		Required []string `json:"required"`
	}
	doJSON(t, s, httptest.NewRequest(http.MethodPost, "/api/config/reset", nil), http.StatusOK, &reset)
	if !containsString(reset.Required, "item_id") {
		t.Fatalf("required after reset = %v", reset.Required)
	}
}

func TestSpecImportAndCheck(t *testing.T) {
	s := newTestServer(t)

	spec := workbook(t,
		[]string{"产品ID", "产品名称", "尺寸", "颜色", "标准单价"},
		[][]string{
			{"A-1", "Widget", "L", "Red", "10.00"},
			{"B-2", "Gadget", "", "", "20.00"},
		})

	var imported struct {
		Artifact store.Artifact `json:"artifact"`
		Rows     int            `json:"rows"`
	}
	doJSON(t, s, uploadRequest(t, "/api/spec", "spec.xlsx", spec, nil), http.StatusCreated, &imported)
	if imported.Artifact.ID == "" || imported.Rows != 2 {
		t.Fatalf("imported = %+v", imported)
	}

	order := workbook(t,
		[]string{"ITEM", "DESCRIPTION", "QTY", "UNIT PRICE", "AMOUNT"},
		[][]string{
			{"A-1", "Widget", "2", "10.00", "20.00"},
			{"B-2", "Gadget", "1", "21.00", "21.00"},
			{"C-9", "Unknown", "1", "5.00", "5.00"},
		})

	var checked struct {
		Report struct {
			TotalRows int            `json:"total_rows"`
			ErrorRows int            `json:"error_rows"`
			Counts    map[string]int `json:"counts"`
		} `json:"report"`
		Summary string         `json:"summary"`
		Output  store.Artifact `json:"output"`
	}
	req := uploadRequest(t, "/api/check", "order.xlsx", order,
		map[string]string{"spec_id": imported.Artifact.ID})
	doJSON(t, s, req, http.StatusOK, &checked)

	if checked.Report.TotalRows != 3 || checked.Report.ErrorRows != 2 {
		t.Fatalf("report = %+v", checked.Report)
	}
	if checked.Report.Counts["PRICE_MISMATCH"] != 1 || checked.Report.Counts["PRODUCT_NOT_FOUND"] != 1 {
		t.Errorf("counts = %v", checked.Report.Counts)
	}
	if checked.Summary == "" {
		t.Error("summary is empty")
	}

	// The report workbook must be downloadable.
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/files/%s/download", checked.Output.ID), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("download = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if rec.Body.Len() == 0 {
		t.Error("downloaded report is empty")
	}

	// And previewable, with the result column appended.
	var preview struct {
		Sheets []struct {
			Columns   []string   `json:"columns"`
			Rows      [][]string `json:"rows"`
			TotalRows int        `json:"total_rows"`
		} `json:"sheets"`
	}
	doJSON(t, s, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/api/files/%s/preview?rows=2", checked.Output.ID), nil),
		http.StatusOK, &preview)
	if len(preview.Sheets) != 1 {
		t.Fatalf("preview sheets = %d", len(preview.Sheets))
	}
	sheet := preview.Sheets[0]
	if !containsString(sheet.Columns, "CHECK RESULT") {
		t.Errorf("columns = %v", sheet.Columns)
	}
	if len(sheet.Rows) != 2 || sheet.TotalRows != 3 {
		t.Errorf("rows = %d, total = %d", len(sheet.Rows), sheet.TotalRows)
	}
}

func TestSpecImportMissingRequiredColumns(t *testing.T) {
	s := newTestServer(t)

	spec := workbook(t,
		[]string{"尺寸", "颜色"},
		[][]string{{"L", "Red"}})

	var body struct {
		Error  string `json:"error"`
		Detail struct {
			Mapping struct {
				MissingRequired []string `json:"missing_required"`
			} `json:"mapping"`
		} `json:"detail"`
	}
	doJSON(t, s, uploadRequest(t, "/api/spec", "spec.xlsx", spec, nil),
		http.StatusUnprocessableEntity, &body)
	if len(body.Detail.Mapping.MissingRequired) == 0 {
		t.Fatalf("body = %+v, want missing required columns in detail", body)
	}
}

func TestCheckRequiresSpecID(t *testing.T) {
	s := newTestServer(t)

	order := workbook(t, []string{"ITEM"}, [][]string{{"A-1"}})
	doJSON(t, s, uploadRequest(t, "/api/check", "order.xlsx", order, nil),
		http.StatusBadRequest, nil)
}

func TestCheckUnknownSpec(t *testing.T) {
	s := newTestServer(t)

	order := workbook(t, []string{"ITEM"}, [][]string{{"A-1"}})
	req := uploadRequest(t, "/api/check", "order.xlsx", order,
		map[string]string{"spec_id": "does-not-exist"})
	doJSON(t, s, req, http.StatusNotFound, nil)
}

func TestUnsupportedFileType(t *testing.T) {
	s := newTestServer(t)

	req := uploadRequest(t, "/api/diagnose", "notes.txt", []byte("plain text"), nil)
	doJSON(t, s, req, http.StatusUnsupportedMediaType, nil)
}

func TestGetFileNotFound(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, httptest.NewRequest(http.MethodGet, "/api/files/nope", nil),
		http.StatusNotFound, nil)
}

func TestListFilesRejectsUnknownKind(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, httptest.NewRequest(http.MethodGet, "/api/files?kind=bogus", nil),
		http.StatusBadRequest, nil)
}

func TestSpecTemplateDownload(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/spec/template", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("template = %d; body: %s", rec.Code, rec.Body.String())
	}

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("template is not a workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Spec")
	if err != nil || len(rows) == 0 {
		t.Fatalf("template rows = %v, %v", rows, err)
	}
	if !containsString(rows[0], "item_id") {
		t.Errorf("header = %v, want item_id column", rows[0])
	}
}

func containsString(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

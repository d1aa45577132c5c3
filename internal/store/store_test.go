package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := Open(t.TempDir(), log)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	art, err := s.Save(ctx, KindUpload, "order.pdf", strings.NewReader("pdf bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if art.ID == "" || art.Size != int64(len("pdf bytes")) {
		t.Fatalf("artifact = %+v", art)
	}
	if filepath.Ext(art.Path) != ".pdf" {
		t.Errorf("path = %q, want .pdf extension kept", art.Path)
	}

	got, err := s.Get(ctx, art.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "order.pdf" || got.Kind != KindUpload {
		t.Fatalf("got = %+v", got)
	}
	data, err := os.ReadFile(got.Path)
	if err != nil || string(data) != "pdf bytes" {
		t.Fatalf("file content = %q, %v", data, err)
	}
}

func TestSaveStripsDirectoryFromName(t *testing.T) {
	s := newTestStore(t)

	art, err := s.Save(context.Background(), KindUpload, "../../etc/passwd", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if art.Name != "passwd" {
		t.Fatalf("name = %q, want base name only", art.Name)
	}
}

func TestListNewestFirstPerKind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Save(ctx, KindOutput, "a.xlsx", strings.NewReader("a"))
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	second, err := s.Save(ctx, KindOutput, "b.xlsx", strings.NewReader("b"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Save(ctx, KindSpec, "spec.xlsx", strings.NewReader("s")); err != nil {
		t.Fatal(err)
	}

	got, err := s.List(ctx, KindOutput)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("list = %d entries, want 2 (spec kind excluded)", len(got))
	}
	if got[0].ID != second.ID || got[1].ID != first.ID {
		t.Fatalf("order = %s, %s; want newest first", got[0].Name, got[1].Name)
	}
}

func TestDeleteRemovesFileAndRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	art, err := s.Save(ctx, KindSpec, "spec.xlsx", strings.NewReader("s"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, art.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(art.Path); !os.IsNotExist(err) {
		t.Error("file still exists after delete")
	}
	if _, err := s.Get(ctx, art.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, art.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}

func TestAllocateCommitForGeneratedFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	art := s.Allocate(KindOutput, "report.xlsx")
	if err := os.WriteFile(art.Path, []byte("workbook"), 0o644); err != nil {
		t.Fatal(err)
	}
	committed, err := s.Commit(ctx, art)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if committed.Size != int64(len("workbook")) {
		t.Fatalf("size = %d", committed.Size)
	}

	if _, err := s.Commit(ctx, s.Allocate(KindOutput, "never-written.xlsx")); err == nil {
		t.Fatal("commit without a file must fail")
	}
}

func TestGetUnknownID(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

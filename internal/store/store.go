// Package store keeps the files the service works with on disk and
// indexes them in SQLite so they can be listed, fetched and deleted by
// ID after the request that created them is gone.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Kind partitions artifacts by role, one subdirectory each.
type Kind string

const (
	KindUpload Kind = "upload"
	KindOutput Kind = "output"
	KindSpec   Kind = "spec"
)

// ErrNotFound is returned when no artifact has the requested ID.
var ErrNotFound = errors.New("artifact not found")

// Artifact is one stored file.
type Artifact struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Name      string    `json:"name"`
	Path      string    `json:"-"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the on-disk artifact store plus its SQLite index.
type Store struct {
	root string
	db   *sql.DB
	log  *slog.Logger
}

const indexSchema = `
CREATE TABLE IF NOT EXISTS artifacts (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL,
	path       TEXT NOT NULL,
	size       INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifacts_kind ON artifacts (kind, created_at);
`

// Open prepares the storage root and its index database.
func Open(root string, log *slog.Logger) (*Store, error) {
	for _, kind := range []Kind{KindUpload, KindOutput, KindSpec} {
		if err := os.MkdirAll(dirFor(root, kind), 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", filepath.Join(root, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("open artifact index: %w", err)
	}
	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate artifact index: %w", err)
	}
	return &Store{root: root, db: db, log: log}, nil
}

// Close releases the index database.
func (s *Store) Close() error { return s.db.Close() }

func dirFor(root string, kind Kind) string {
	switch kind {
	case KindUpload:
		return filepath.Join(root, "uploads")
	case KindOutput:
		return filepath.Join(root, "outputs")
	case KindSpec:
		return filepath.Join(root, "specs")
	default:
		return filepath.Join(root, string(kind))
	}
}

// Allocate reserves an artifact: a fresh ID and the path the caller
// should write the file to. Nothing is indexed until Commit.
func (s *Store) Allocate(kind Kind, name string) Artifact {
	id := uuid.NewString()
	return Artifact{
		ID:   id,
		Kind: kind,
		Name: filepath.Base(name),
		Path: filepath.Join(dirFor(s.root, kind), id+filepath.Ext(name)),
	}
}

// Commit records an allocated artifact after its file has been written.
func (s *Store) Commit(ctx context.Context, art Artifact) (Artifact, error) {
	info, err := os.Stat(art.Path)
	if err != nil {
		return Artifact{}, fmt.Errorf("stat artifact file: %w", err)
	}
	art.Size = info.Size()
	art.CreatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO artifacts (id, kind, name, path, size, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		art.ID, string(art.Kind), art.Name, art.Path, art.Size, art.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Artifact{}, fmt.Errorf("index artifact: %w", err)
	}
	s.log.Info("artifact stored", "id", art.ID, "kind", art.Kind, "name", art.Name, "size", art.Size)
	return art, nil
}

// Save streams an uploaded file into the store and indexes it.
func (s *Store) Save(ctx context.Context, kind Kind, name string, r io.Reader) (Artifact, error) {
	art := s.Allocate(kind, name)

	f, err := os.Create(art.Path)
	if err != nil {
		return Artifact{}, fmt.Errorf("create artifact file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(art.Path)
		return Artifact{}, fmt.Errorf("write artifact file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(art.Path)
		return Artifact{}, fmt.Errorf("close artifact file: %w", err)
	}

	committed, err := s.Commit(ctx, art)
	if err != nil {
		os.Remove(art.Path)
		return Artifact{}, err
	}
	return committed, nil
}

// Get returns the artifact with the given ID.
func (s *Store) Get(ctx context.Context, id string) (Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, name, path, size, created_at FROM artifacts WHERE id = ?`, id)
	art, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, ErrNotFound
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("load artifact: %w", err)
	}
	return art, nil
}

// List returns artifacts of one kind, newest first. An empty kind
// lists every artifact.
func (s *Store) List(ctx context.Context, kind Kind) ([]Artifact, error) {
	query := `SELECT id, kind, name, path, size, created_at FROM artifacts WHERE kind = ? ORDER BY created_at DESC`
	args := []any{string(kind)}
	if kind == "" {
		query = `SELECT id, kind, name, path, size, created_at FROM artifacts ORDER BY created_at DESC`
		args = nil
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		art, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		out = append(out, art)
	}
	return out, rows.Err()
}

// Delete removes the artifact's file and index row. Deleting an
// unknown ID returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	art, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := os.Remove(art.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove artifact file: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deindex artifact: %w", err)
	}
	s.log.Info("artifact deleted", "id", id, "kind", art.Kind)
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanArtifact(row scannable) (Artifact, error) {
	var art Artifact
	var kind, created string
	if err := row.Scan(&art.ID, &kind, &art.Name, &art.Path, &art.Size, &created); err != nil {
		return Artifact{}, err
	}
	art.Kind = Kind(kind)
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		art.CreatedAt = ts
	}
	return art, nil
}

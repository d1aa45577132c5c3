package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// configFile is the on-disk shape of a persisted schema. Exactly these
// three keys are read and written; unknown keys are dropped on the next
// save.
type configFile struct {
	ColumnMappings  map[string][]string `json:"column_mappings"`
	RequiredColumns []string            `json:"required_columns"`
	OptionalColumns []string            `json:"optional_columns"`
}

// Store owns the live schema registry and its JSON persistence. Reads
// return the current immutable snapshot; mutations build a new snapshot,
// persist it, then swap it in under the lock.
type Store struct {
	path string
	log  *slog.Logger

	mu  sync.RWMutex
	reg *Registry
}

// NewStore loads the schema from path, falling back to the built-in
// defaults when the file is absent, empty or malformed. A fallback is
// logged but never an error: the system must stay usable with a broken
// config on disk.
func NewStore(path string, log *slog.Logger) *Store {
	s := &Store{path: path, log: log}
	reg, err := loadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("schema config unreadable, using defaults", "path", path, "error", err)
		}
		reg = Defaults()
	}
	s.reg = reg
	return s
}

// Registry returns the current schema snapshot.
func (s *Store) Registry() *Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reg
}

// Update applies fn to the current snapshot and, when fn succeeds,
// persists and installs the returned registry. The swap only happens
// after a successful write so that the in-memory schema never diverges
// from disk.
func (s *Store) Update(fn func(*Registry) (*Registry, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.reg)
	if err != nil {
		return err
	}
	if err := saveFile(s.path, next); err != nil {
		return fmt.Errorf("persist schema config: %w", err)
	}
	s.reg = next
	return nil
}

// Reset discards the persisted configuration and reinstalls the
// built-in defaults.
func (s *Store) Reset() error {
	return s.Update(func(*Registry) (*Registry, error) {
		return Defaults(), nil
	})
}

func loadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("config file is empty")
	}

	var cfg configFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.ColumnMappings) == 0 {
		return nil, fmt.Errorf("config has no column_mappings")
	}

	required := make(map[string]bool, len(cfg.RequiredColumns))
	for _, name := range cfg.RequiredColumns {
		required[name] = true
	}

	// Definition order follows required_columns then optional_columns so
	// round-tripping a saved file preserves field order. Mapped fields
	// missing from both lists are appended as optional.
	var fields []CanonicalField
	seen := make(map[string]bool)
	appendField := func(name string, req bool) {
		if seen[name] {
			return
		}
		seen[name] = true
		fields = append(fields, CanonicalField{
			Name:     name,
			Aliases:  cfg.ColumnMappings[name],
			Required: req,
		})
	}
	for _, name := range cfg.RequiredColumns {
		appendField(name, true)
	}
	for _, name := range cfg.OptionalColumns {
		appendField(name, required[name])
	}
	for name := range cfg.ColumnMappings {
		if !seen[name] {
			return nil, fmt.Errorf("mapped field %q missing from required_columns and optional_columns", name)
		}
	}
	return NewRegistry(fields), nil
}

func saveFile(path string, reg *Registry) error {
	cfg := configFile{
		ColumnMappings:  make(map[string][]string),
		RequiredColumns: reg.RequiredFields(),
		OptionalColumns: reg.OptionalFields(),
	}
	if cfg.RequiredColumns == nil {
		cfg.RequiredColumns = []string{}
	}
	if cfg.OptionalColumns == nil {
		cfg.OptionalColumns = []string{}
	}
	for _, f := range reg.Fields() {
		aliases := f.Aliases
		if aliases == nil {
			aliases = []string{}
		}
		cfg.ColumnMappings[f.Name] = aliases
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

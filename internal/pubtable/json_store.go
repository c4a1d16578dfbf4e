package pubtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// JSONStore keeps one pretty-printed JSON file per theory, keyed by index
type JSONStore struct {
	dir string
}

// NewJSONStore uses dir, creating it if needed
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create table directory: %w", err)
	}
	return &JSONStore{dir: dir}, nil
}

// Path returns the file holding the table of theory
func (s *JSONStore) Path(theory string) string {
	return filepath.Join(s.dir, theory+".json")
}

// Load reads the table of theory; a missing file is an empty table
func (s *JSONStore) Load(_ context.Context, theory string) (Table, error) {
	return ReadJSON(s.Path(theory))
}

// Save writes the table through a temporary file so a crash never leaves a
// truncated table behind
func (s *JSONStore) Save(_ context.Context, theory string, t Table) error {
	return writeJSON(s.Path(theory), t)
}

// RecordBuild appends the run to builds.jsonl
func (s *JSONStore) RecordBuild(_ context.Context, run BuildRun) error {
	f, err := os.OpenFile(filepath.Join(s.dir, "builds.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open build log: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(run); err != nil {
		return fmt.Errorf("failed to write build log: %w", err)
	}
	return nil
}

func (s *JSONStore) Close() error { return nil }

// ReadJSON reads a table file in the {"<index>": {"next": n, "t": s}} format.
// A missing file is an empty table.
func ReadJSON(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	t := Table{}
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// WriteCompressed writes the next-index-only form of t to path
func WriteCompressed(path string, t Table) error {
	return writeJSON(path, Compress(t))
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp.Name(), path)
}

// Package catalog provides the question/answer catalog that grounds
// retrieval. Entries are owned by an external admin workflow; this
// package only loads and lists them.
package catalog

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/faq-assistant-kernel/internal/jsonx"
)

// Entry is a single question/answer pair.
type Entry struct {
	ID       string `json:"id,omitempty"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category,omitempty"`
}

// Store lists the current catalog snapshot, in stable order.
type Store interface {
	ListEntries() ([]Entry, error)
}

// FileStore reads the catalog from a JSON file (an array of entries).
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a catalog store backed by a JSON file.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, logger: logger}
}

// ListEntries loads and returns all catalog entries. Entries without an
// ID get a generated one so downstream match results can always carry a
// source identifier.
func (s *FileStore) ListEntries() ([]Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var entries []Entry
	if err := jsonx.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", s.path, err)
	}

	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
	}

	s.logger.Debug("Catalog loaded",
		zap.String("path", s.path),
		zap.Int("entries", len(entries)))

	return entries, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// StaticStore serves a fixed in-memory entry list. Used in tests and
// for embedded catalogs.
type StaticStore struct {
	entries []Entry
}

// NewStaticStore creates a store over a fixed entry slice.
func NewStaticStore(entries []Entry) *StaticStore {
	return &StaticStore{entries: entries}
}

// ListEntries returns a copy of the configured entries.
func (s *StaticStore) ListEntries() ([]Entry, error) {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Package store persists the full registry state as a single JSON document
// on disk. Every tool invocation reads the document fresh and, on mutation,
// rewrites it whole; nothing is cached between invocations.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// SchemaVersion is the current document schema tag. It is recreated when
// absent but does not drive migrations.
const SchemaVersion = 2

// Document is the persisted registry state: repositories and collections,
// each keyed by normalized name.
type Document struct {
	Version     int                        `json:"version"`
	Repos       map[string]RepoEntry       `json:"repos"`
	Collections map[string]CollectionEntry `json:"collections"`
}

// RepoEntry is a registered repository: a resolved absolute path and the
// time it was added.
type RepoEntry struct {
	Path    string `json:"path"`
	AddedAt string `json:"addedAt,omitempty"`
}

// CollectionEntry is a named, ordered group of repository-name references.
// Repos holds normalized repository keys, stored verbatim as supplied at
// creation (duplicates included).
type CollectionEntry struct {
	Name      string   `json:"name"`
	Repos     []string `json:"repos"`
	CreatedAt string   `json:"createdAt,omitempty"`
}

// UnmarshalJSON accepts both the current object form and the legacy form
// where an entry is a bare path string.
func (e *RepoEntry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var path string
		if err := json.Unmarshal(trimmed, &path); err != nil {
			return err
		}
		*e = RepoEntry{Path: path}
		return nil
	}

	type plain RepoEntry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = RepoEntry(p)
	return nil
}

// UnmarshalJSON accepts both the current object form and the legacy form
// where an entry is a bare array of repository names.
func (e *CollectionEntry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var repos []string
		if err := json.Unmarshal(trimmed, &repos); err != nil {
			return err
		}
		*e = CollectionEntry{Repos: repos}
		return nil
	}

	type plain CollectionEntry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = CollectionEntry(p)
	return nil
}

// NewDocument returns an empty document with the current schema version.
func NewDocument() *Document {
	return &Document{
		Version:     SchemaVersion,
		Repos:       map[string]RepoEntry{},
		Collections: map[string]CollectionEntry{},
	}
}

// Store is a handle to the document file. It holds no in-memory state; Load
// and Save are its only mutation surface.
type Store struct {
	path   string
	logger *slog.Logger
}

// New creates a Store backed by the file at path.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// DefaultPath returns the per-user location of the store file.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "repodock", "store.json")
}

// Path returns the location of the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document from disk, creating the file (and its parent
// directory) with an empty document if absent. An unparseable file is
// replaced with a fresh empty document: availability is preferred over
// preserving corrupt data.
func (s *Store) Load() (*Document, error) {
	if err := s.ensureFile(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("store file is corrupt, resetting to empty", "path", s.path, "err", err)
		fresh := NewDocument()
		if err := s.Save(fresh); err != nil {
			return nil, fmt.Errorf("reset corrupt store: %w", err)
		}
		return fresh, nil
	}

	if doc.Version == 0 {
		doc.Version = SchemaVersion
	}
	if doc.Repos == nil {
		doc.Repos = map[string]RepoEntry{}
	}
	if doc.Collections == nil {
		doc.Collections = map[string]CollectionEntry{}
	}
	return &doc, nil
}

// Save serializes the full document (pretty-printed) and replaces the file.
func (s *Store) Save(doc *Document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

func (s *Store) ensureFile() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat store: %w", err)
	}
	return s.Save(NewDocument())
}

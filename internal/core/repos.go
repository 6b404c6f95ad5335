// Package core implements the registry logic for repodock: name
// normalization, the repository and collection registries, and the domain
// error taxonomy. Services hold a store handle and a clock; every operation
// loads the document fresh, acts, and persists mutations.
package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/repodock/repodock/internal/store"
)

// RepoInfo is a registry entry as returned to callers.
type RepoInfo struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	AddedAt string `json:"added_at,omitempty"`
}

// RepoService manages the repository registry.
type RepoService struct {
	store *store.Store
	now   func() time.Time
}

// NewRepoService creates a RepoService backed by the given store. A nil
// clock defaults to time.Now.
func NewRepoService(st *store.Store, now func() time.Time) *RepoService {
	if now == nil {
		now = time.Now
	}
	return &RepoService{store: st, now: now}
}

// List returns all registered repositories sorted by name.
func (s *RepoService) List() ([]RepoInfo, error) {
	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	out := make([]RepoInfo, 0, len(doc.Repos))
	for name, entry := range doc.Repos {
		out = append(out, RepoInfo{Name: name, Path: entry.Path, AddedAt: entry.AddedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Add registers a repository under the normalized form of name. The path may
// start with a `~` segment, which is expanded to the user's home directory;
// the expanded path must resolve to an existing directory.
func (s *RepoService) Add(name, rawPath string) (*RepoInfo, error) {
	key := Normalize(name)
	if key == "" {
		return nil, fmt.Errorf("name is required")
	}

	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if _, ok := doc.Repos[key]; ok {
		return nil, &AlreadyExistsError{Name: key}
	}

	resolved, err := resolveDir(rawPath)
	if err != nil {
		return nil, err
	}

	entry := store.RepoEntry{Path: resolved, AddedAt: s.now().UTC().Format(time.RFC3339)}
	doc.Repos[key] = entry
	if err := s.store.Save(doc); err != nil {
		return nil, err
	}
	return &RepoInfo{Name: key, Path: entry.Path, AddedAt: entry.AddedAt}, nil
}

// Get returns the stored path for the normalized form of name.
func (s *RepoService) Get(name string) (string, error) {
	doc, err := s.store.Load()
	if err != nil {
		return "", err
	}
	entry, ok := doc.Repos[Normalize(name)]
	if !ok {
		return "", ErrRepoNotFound
	}
	return entry.Path, nil
}

// Remove deletes the repository registered under the normalized form of
// name. Collections referencing it keep their dangling reference.
func (s *RepoService) Remove(name string) error {
	key := Normalize(name)

	doc, err := s.store.Load()
	if err != nil {
		return err
	}
	if _, ok := doc.Repos[key]; !ok {
		return ErrRepoNotFound
	}
	delete(doc.Repos, key)
	return s.store.Save(doc)
}

// Init registers dir, the caller's working directory, under the normalized
// form of name. The directory is trusted and not re-validated.
func (s *RepoService) Init(name, dir string) (*RepoInfo, error) {
	key := Normalize(name)
	if key == "" {
		return nil, fmt.Errorf("name is required")
	}

	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if _, ok := doc.Repos[key]; ok {
		return nil, &AlreadyExistsError{Name: key}
	}

	entry := store.RepoEntry{Path: dir, AddedAt: s.now().UTC().Format(time.RFC3339)}
	doc.Repos[key] = entry
	if err := s.store.Save(doc); err != nil {
		return nil, err
	}
	return &RepoInfo{Name: key, Path: entry.Path, AddedAt: entry.AddedAt}, nil
}

// resolveDir expands a leading `~` segment, resolves the path to absolute
// form and verifies it is an existing directory.
func resolveDir(rawPath string) (string, error) {
	expanded, err := homedir.Expand(rawPath)
	if err != nil {
		return "", &InvalidPathError{Path: rawPath, Reason: err.Error()}
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", &InvalidPathError{Path: rawPath, Reason: err.Error()}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &InvalidPathError{Path: abs, Reason: "does not exist"}
	}
	if !info.IsDir() {
		return "", &InvalidPathError{Path: abs, Reason: "not a directory"}
	}
	return abs, nil
}

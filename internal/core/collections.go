package core

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/repodock/repodock/internal/store"
)

// CollectionInfo is a collection as returned to callers: the original
// display name and the normalized member keys.
type CollectionInfo struct {
	Name      string   `json:"name"`
	Repos     []string `json:"repos"`
	CreatedAt string   `json:"created_at,omitempty"`
}

// CollectionService manages the collection registry.
type CollectionService struct {
	store *store.Store
	now   func() time.Time
}

// NewCollectionService creates a CollectionService backed by the given
// store. A nil clock defaults to time.Now.
func NewCollectionService(st *store.Store, now func() time.Time) *CollectionService {
	if now == nil {
		now = time.Now
	}
	return &CollectionService{store: st, now: now}
}

// Add creates a collection from a comma-separated list of repository names.
// Every member must be a registered repository; otherwise the exact set of
// unknown names is reported and nothing is written. The member list is
// stored verbatim, duplicates included. The display name is kept as
// supplied; the lookup key is its normalized form.
func (s *CollectionService) Add(name, reposCSV string) (*CollectionInfo, error) {
	key := Normalize(name)
	if key == "" {
		return nil, fmt.Errorf("name is required")
	}

	members := splitNames(reposCSV)
	if len(members) == 0 {
		return nil, fmt.Errorf("repos is required")
	}

	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	var missing []string
	seen := map[string]bool{}
	for _, m := range members {
		if _, ok := doc.Repos[m]; !ok && !seen[m] {
			missing = append(missing, m)
			seen[m] = true
		}
	}
	if len(missing) > 0 {
		return nil, &MissingReposError{Missing: missing}
	}

	entry := store.CollectionEntry{
		Name:      name,
		Repos:     members,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	doc.Collections[key] = entry
	if err := s.store.Save(doc); err != nil {
		return nil, err
	}
	return &CollectionInfo{Name: entry.Name, Repos: entry.Repos, CreatedAt: entry.CreatedAt}, nil
}

// Delete removes the collection registered under the normalized form of name.
func (s *CollectionService) Delete(name string) error {
	key := Normalize(name)

	doc, err := s.store.Load()
	if err != nil {
		return err
	}
	if _, ok := doc.Collections[key]; !ok {
		return ErrCollectionNotFound
	}
	delete(doc.Collections, key)
	return s.store.Save(doc)
}

// ListNames returns all collection keys sorted.
func (s *CollectionService) ListNames() ([]string, error) {
	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(doc.Collections))
	for name := range doc.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Get returns the collection registered under the normalized form of name.
// Legacy entries without a stored display name fall back to the lookup key.
func (s *CollectionService) Get(name string) (*CollectionInfo, error) {
	key := Normalize(name)

	doc, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	entry, ok := doc.Collections[key]
	if !ok {
		return nil, ErrCollectionNotFound
	}

	display := entry.Name
	if display == "" {
		display = key
	}
	return &CollectionInfo{Name: display, Repos: entry.Repos, CreatedAt: entry.CreatedAt}, nil
}

// splitNames splits a comma-separated list into normalized, non-empty names.
func splitNames(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if n := Normalize(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

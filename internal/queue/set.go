// Package queue keeps the persisted sets of book ids that still need a cover
// or a clean genre.
package queue

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/lepinkainen/shelfkeeper/internal/fileutil"
)

// Set is a string set saved as a sorted JSON array.
type Set struct {
	path string
	ids  map[string]struct{}
}

// NewSet returns an empty set that saves to path.
func NewSet(path string) *Set {
	return &Set{path: path, ids: make(map[string]struct{})}
}

// LoadSet reads the set stored at path. A missing or malformed file yields
// an empty set.
func LoadSet(path string) *Set {
	s := NewSet(path)
	var ids []string
	if _, err := fileutil.ReadJSONFile(path, &ids); err != nil {
		slog.Warn("Ignoring unreadable queue file", "path", path, "error", err)
		return s
	}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Save writes the set as a sorted JSON array.
func (s *Set) Save() error {
	if err := fileutil.WriteJSONFile(s.IDs(), s.path); err != nil {
		return fmt.Errorf("saving queue %s: %w", s.path, err)
	}
	return nil
}

// Add inserts id. Blank ids are ignored.
func (s *Set) Add(id string) {
	if strings.TrimSpace(id) == "" {
		return
	}
	s.ids[id] = struct{}{}
}

// Remove deletes id and reports whether it was present.
func (s *Set) Remove(id string) bool {
	if _, ok := s.ids[id]; !ok {
		return false
	}
	delete(s.ids, id)
	return true
}

// Has reports whether id is in the set.
func (s *Set) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of ids.
func (s *Set) Len() int { return len(s.ids) }

// IDs returns the ids in sorted order.
func (s *Set) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Retain keeps only the ids for which keep returns true and returns how many
// were dropped.
func (s *Set) Retain(keep func(id string) bool) int {
	dropped := 0
	for id := range s.ids {
		if !keep(id) {
			delete(s.ids, id)
			dropped++
		}
	}
	return dropped
}

// Replace sets the contents to ids.
func (s *Set) Replace(ids []string) {
	s.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
}

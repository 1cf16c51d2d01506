package genre

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lepinkainen/shelfkeeper/internal/fileutil"
)

// File names used by Registry under its directory.
const (
	UserGenresFile     = "user_genres.json"
	GenreOverridesFile = "genre_overrides.json"
	DeletedGenresFile  = "deleted_genres.json"
)

var (
	// ErrEmptyGenre is returned when a genre name is blank.
	ErrEmptyGenre = errors.New("genre name is empty")
	// ErrSameGenre is returned when renaming a genre to itself.
	ErrSameGenre = errors.New("new genre name equals the old one")
)

// Registry tracks the allowed genre set: starter genres, minus deleted ones,
// with renames applied, plus user-defined genres. It is not safe for
// concurrent use.
type Registry struct {
	dir       string
	user      map[string]struct{}
	overrides map[string]string // starter name -> current name
	deleted   map[string]struct{}
}

// NewRegistry returns an in-memory registry holding only the starter genres.
func NewRegistry() *Registry {
	return &Registry{
		user:      make(map[string]struct{}),
		overrides: make(map[string]string),
		deleted:   make(map[string]struct{}),
	}
}

// LoadRegistry reads the registry files in dir. Missing or malformed files
// are treated as empty.
func LoadRegistry(dir string) *Registry {
	r := NewRegistry()
	r.dir = dir

	var user []string
	loadJSON(filepath.Join(dir, UserGenresFile), &user)
	for _, g := range user {
		if g = TitleCase(g); g != "" {
			r.user[g] = struct{}{}
		}
	}

	var overrides map[string]string
	loadJSON(filepath.Join(dir, GenreOverridesFile), &overrides)
	for from, to := range overrides {
		from, to = StarterOnly(from), TitleCase(to)
		if from != "" && to != "" {
			r.overrides[from] = to
		}
	}

	var deleted []string
	loadJSON(filepath.Join(dir, DeletedGenresFile), &deleted)
	for _, g := range deleted {
		if g = StarterOnly(g); g != "" {
			r.deleted[g] = struct{}{}
		}
	}
	return r
}

func loadJSON(path string, target any) {
	if _, err := fileutil.ReadJSONFile(path, target); err != nil {
		slog.Warn("Ignoring unreadable genre file", "path", path, "error", err)
	}
}

// Save persists the registry. In-memory registries are not written.
func (r *Registry) Save() error {
	if r.dir == "" {
		return nil
	}
	if err := fileutil.WriteJSONFile(sortedKeys(r.user), filepath.Join(r.dir, UserGenresFile)); err != nil {
		return fmt.Errorf("saving user genres: %w", err)
	}
	if err := fileutil.WriteJSONFile(r.overrides, filepath.Join(r.dir, GenreOverridesFile)); err != nil {
		return fmt.Errorf("saving genre overrides: %w", err)
	}
	if err := fileutil.WriteJSONFile(sortedKeys(r.deleted), filepath.Join(r.dir, DeletedGenresFile)); err != nil {
		return fmt.Errorf("saving deleted genres: %w", err)
	}
	return nil
}

// Reset drops all user genres, renames and deletions.
func (r *Registry) Reset() {
	r.user = make(map[string]struct{})
	r.overrides = make(map[string]string)
	r.deleted = make(map[string]struct{})
}

// Active returns the allowed genres sorted case-insensitively.
func (r *Registry) Active() []string {
	seen := make(map[string]struct{})
	for _, g := range r.allowed() {
		seen[g] = struct{}{}
	}
	return sortFold(seen)
}

// allowed maps the lower-cased name of every allowed genre to its spelling.
func (r *Registry) allowed() map[string]string {
	m := make(map[string]string, len(starters)+len(r.user))
	for _, list := range [][]string{FictionGenres, NonfictionGenres} {
		for _, g := range list {
			if _, gone := r.deleted[g]; gone {
				continue
			}
			eff := r.Effective(g)
			m[strings.ToLower(eff)] = eff
		}
	}
	for g := range r.user {
		m[strings.ToLower(g)] = g
	}
	return m
}

// All returns every starter genre plus the user genres, ignoring renames
// and deletions, sorted case-insensitively.
func (r *Registry) All() []string {
	seen := make(map[string]struct{})
	for _, g := range FictionGenres {
		seen[g] = struct{}{}
	}
	for _, g := range NonfictionGenres {
		seen[g] = struct{}{}
	}
	for g := range r.user {
		seen[g] = struct{}{}
	}
	return sortFold(seen)
}

// UserGenres returns the user-defined genres, sorted.
func (r *Registry) UserGenres() []string {
	return sortedKeys(r.user)
}

// Normalize returns the allowed spelling of g, or "" when g is not allowed.
func (r *Registry) Normalize(g string) string {
	key := strings.ToLower(strings.TrimSpace(g))
	if key == "" {
		return ""
	}
	return r.allowed()[key]
}

// IsClean reports whether g is a member of the allowed genre set.
func (r *Registry) IsClean(g string) bool {
	return r.Normalize(g) != ""
}

// IsStandard reports whether g is a starter genre.
func (r *Registry) IsStandard(g string) bool {
	return IsStarter(g)
}

// IsUser reports whether g is a user genre that does not shadow a starter.
func (r *Registry) IsUser(g string) bool {
	g = TitleCase(g)
	if g == "" || IsStarter(g) {
		return false
	}
	_, ok := r.user[g]
	return ok
}

// IsDeleted reports whether the starter genre g was deleted.
func (r *Registry) IsDeleted(g string) bool {
	_, ok := r.deleted[StarterOnly(g)]
	return ok
}

// Effective returns the current name for g, following a rename of a starter genre.
func (r *Registry) Effective(g string) string {
	if s := StarterOnly(g); s != "" {
		if renamed, ok := r.overrides[s]; ok {
			return renamed
		}
		return s
	}
	return TitleCase(g)
}

// Original returns the starter genre that was renamed to g, if any.
func (r *Registry) Original(g string) string {
	key := strings.ToLower(strings.TrimSpace(g))
	for from, to := range r.overrides {
		if strings.ToLower(to) == key {
			return from
		}
	}
	return ""
}

// FromSync maps a bucketed genre onto the registry: deleted genres become
// "" and renamed genres take their new name.
func (r *Registry) FromSync(g string) string {
	if strings.TrimSpace(g) == "" || r.IsDeleted(g) {
		return ""
	}
	return r.Effective(g)
}

// Add registers a user genre and returns its stored spelling.
func (r *Registry) Add(g string) (string, error) {
	if allowed := r.Normalize(g); allowed != "" {
		return allowed, nil
	}
	g = TitleCase(g)
	if g == "" {
		return "", ErrEmptyGenre
	}
	r.user[g] = struct{}{}
	return g, nil
}

// Rename renames oldName to newName and returns both in their stored
// spelling. Renaming a starter genre is recorded as an override; renaming
// anything else replaces it in the user genre set.
func (r *Registry) Rename(oldName, newName string) (from, to string, err error) {
	from = r.spelling(oldName)
	to = r.spelling(newName)
	if from == "" || to == "" {
		return "", "", ErrEmptyGenre
	}
	if from == to {
		return "", "", ErrSameGenre
	}

	original := r.Original(from)
	if original == "" {
		original = StarterOnly(from)
	}

	switch {
	case original != "":
		if StarterOnly(to) == original {
			delete(r.overrides, original)
		} else {
			r.overrides[original] = to
		}
	default:
		delete(r.user, from)
		r.user[to] = struct{}{}
	}
	return from, to, nil
}

// Delete removes g from the allowed set. It returns the genre names whose
// books should be cleared: g itself and, for a renamed starter, its
// original name.
func (r *Registry) Delete(g string) ([]string, error) {
	g = r.spelling(g)
	if g == "" {
		return nil, ErrEmptyGenre
	}

	names := []string{g}
	original := r.Original(g)
	if original != "" {
		names = append(names, original)
	}

	switch {
	case r.IsUser(g):
		delete(r.user, g)
	case original != "":
		r.deleted[original] = struct{}{}
		delete(r.overrides, original)
	case IsStarter(g):
		r.deleted[StarterOnly(g)] = struct{}{}
	}
	return names, nil
}

// spelling prefers the known spelling of g and falls back to title case.
func (r *Registry) spelling(g string) string {
	if s := StarterOnly(g); s != "" {
		return s
	}
	if allowed := r.Normalize(g); allowed != "" {
		return allowed
	}
	return TitleCase(g)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortFold(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i]), strings.ToLower(out[j])
		if li != lj {
			return li < lj
		}
		return out[i] < out[j]
	})
	return out
}

// Package library is the host-facing entry point to a catalog on disk. It
// ties records, covers, queues, genres and search together behind one lock.
package library

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lepinkainen/shelfkeeper/internal/catalog"
	"github.com/lepinkainen/shelfkeeper/internal/genre"
	"github.com/lepinkainen/shelfkeeper/internal/isbn"
	"github.com/lepinkainen/shelfkeeper/internal/queue"
	"github.com/lepinkainen/shelfkeeper/internal/search"
)

// Files and directories inside the data directory.
const (
	CatalogFile    = "catalog.json"
	CoverIndexFile = "cover_index.json"
	CoversDir      = "covers"
	RecentTagsFile = "recent_tags.json"
)

var (
	// ErrBookNotFound is returned for operations on an unknown book id.
	ErrBookNotFound = errors.New("book not found")
	// ErrUnknownGenre is returned when assigning a genre outside the allowed set.
	ErrUnknownGenre = errors.New("genre is not in the allowed set")
)

// Helpers re-exported for hosts that only import this package.
var (
	CanonicalISBN = isbn.Canonical
	DeriveTags    = genre.DeriveTags
	MergeTags     = genre.MergeTags
)

// Library is safe for concurrent use.
type Library struct {
	mu      sync.Mutex
	dir     string
	catalog *catalog.Catalog
	covers  *catalog.Covers
	queues  *queue.Manager
	genres  *genre.Registry
	recent  []string
	index   *search.Index
}

// store answers queue questions from the library state. Callers hold l.mu.
type store struct{ l *Library }

func (s store) NeedsCover(id string) bool { return !s.l.covers.HasCover(id) }

func (s store) NeedsGenre(b catalog.Book) bool { return !s.l.genres.IsClean(b.Genre) }

func (s store) Lookup(id string) (catalog.Book, bool) { return s.l.catalog.Get(id) }

func (s store) IDs() []string { return s.l.catalog.IDs() }

// Open loads the library stored in dir, creating the directory if needed.
// Records written by older versions are migrated; if that changes anything
// the queues are rebuilt from scratch and the catalog is saved. Empty queues
// are rebuilt with one full scan.
func Open(dir string) (*Library, error) {
	if err := os.MkdirAll(filepath.Join(dir, CoversDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	l := &Library{dir: dir}
	l.load()

	l.mu.Lock()
	defer l.mu.Unlock()

	changed := l.catalog.ConsolidateLegacy() + l.catalog.Recanonize(l.genres)
	switch {
	case changed > 0:
		slog.Info("Migrated catalog records", "changed", changed)
		if err := l.queues.Rebuild(true); err != nil {
			return nil, err
		}
		if err := l.saveLocked(); err != nil {
			return nil, err
		}
	case l.queues.Empty():
		if err := l.queues.Rebuild(false); err != nil {
			return nil, err
		}
	}

	slog.Debug("Library opened", "dir", dir, "books", l.catalog.Len(),
		"cover_queue", l.queues.Cover.Len(), "genre_queue", l.queues.Genre.Len())
	return l, nil
}

func (l *Library) load() {
	l.catalog = catalog.Load(filepath.Join(l.dir, CatalogFile))
	l.covers = catalog.LoadCovers(filepath.Join(l.dir, CoverIndexFile), filepath.Join(l.dir, CoversDir))
	l.genres = genre.LoadRegistry(l.dir)
	l.queues = queue.Load(l.dir, store{l})
	l.recent = loadRecentTags(filepath.Join(l.dir, RecentTagsFile))
	l.index = nil
}

// Dir returns the data directory.
func (l *Library) Dir() string { return l.dir }

// Save writes the catalog and the cover index.
func (l *Library) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.saveLocked()
}

func (l *Library) saveLocked() error {
	l.index = nil
	if err := l.catalog.Save(); err != nil {
		return err
	}
	if l.covers.InRun() {
		return nil
	}
	return l.covers.Save()
}

// FactoryReset deletes everything under the data directory and starts over
// with an empty library and the starter genres.
func (l *Library) FactoryReset() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := os.ReadDir(l.dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading data directory: %w", err)
	}
	var errs []error
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(l.dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	if err := os.MkdirAll(filepath.Join(l.dir, CoversDir), 0o755); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("factory reset: %w", errors.Join(errs...))
	}

	l.catalog.Reset()
	l.covers.Reset()
	l.queues.Reset()
	l.genres.Reset()
	l.recent = nil
	l.index = nil

	return errors.Join(
		l.saveLocked(),
		l.queues.Save(),
		l.genres.Save(),
		l.saveRecentTags(),
	)
}

// Get returns a copy of the book with id.
func (l *Library) Get(id string) (catalog.Book, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.catalog.Get(strings.TrimSpace(id))
}

// Snapshot is Get for callers that only need a point-in-time copy.
func (l *Library) Snapshot(id string) (catalog.Book, bool) {
	return l.Get(id)
}

// GetMany resolves ids in order, skipping unknown ones.
func (l *Library) GetMany(ids []string) []catalog.Book {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]catalog.Book, 0, len(ids))
	for _, id := range ids {
		if b, ok := l.catalog.Get(strings.TrimSpace(id)); ok {
			out = append(out, b)
		}
	}
	return out
}

// Books returns a copy of every book ordered by id.
func (l *Library) Books() []catalog.Book {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.catalog.Books()
}

// Len returns the number of books.
func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.catalog.Len()
}

// CoverPath returns the cover file of id, or "" when it has none.
func (l *Library) CoverPath(id string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.covers.Path(strings.TrimSpace(id))
}

package catalog

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/lepinkainen/shelfkeeper/internal/fileutil"
	"github.com/lepinkainen/shelfkeeper/internal/genre"
)

// Catalog is the in-memory book store persisted as one JSON object keyed by
// book id. It is not safe for concurrent use.
type Catalog struct {
	path  string
	books map[string]Book
}

// New returns an empty catalog that saves to path.
func New(path string) *Catalog {
	return &Catalog{path: path, books: make(map[string]Book)}
}

// Load reads the catalog at path. A missing or malformed file yields an
// empty catalog.
func Load(path string) *Catalog {
	c := New(path)

	var books map[string]Book
	found, err := fileutil.ReadJSONFile(path, &books)
	if err != nil {
		slog.Warn("Ignoring unreadable catalog", "path", path, "error", err)
		return c
	}
	if !found {
		return c
	}

	for id, b := range books {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if b.ID == "" {
			b.ID = id
		}
		c.books[id] = b
	}
	slog.Debug("Catalog loaded", "path", path, "books", len(c.books))
	return c
}

// Path returns the file the catalog saves to.
func (c *Catalog) Path() string { return c.path }

// Save writes the catalog as indented JSON.
func (c *Catalog) Save() error {
	out := make(map[string]Book, len(c.books))
	for id, b := range c.books {
		if b.Tags == nil {
			b.Tags = []string{}
		}
		out[id] = b
	}
	if err := fileutil.WriteJSONFile(out, c.path); err != nil {
		return fmt.Errorf("saving catalog: %w", err)
	}
	return nil
}

// Get returns a copy of the book stored under id.
func (c *Catalog) Get(id string) (Book, bool) {
	b, ok := c.books[strings.TrimSpace(id)]
	if !ok {
		return Book{}, false
	}
	return b.Clone(), true
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.books[id]
	return ok
}

// Put stores b under its id.
func (c *Catalog) Put(b Book) {
	c.books[b.ID] = b.Clone()
}

// Delete removes id from the catalog.
func (c *Catalog) Delete(id string) {
	delete(c.books, id)
}

// Len returns the number of books.
func (c *Catalog) Len() int { return len(c.books) }

// IDs returns every book id, sorted.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.books))
	for id := range c.books {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Books returns copies of all books ordered by id.
func (c *Catalog) Books() []Book {
	out := make([]Book, 0, len(c.books))
	for _, id := range c.IDs() {
		out = append(out, c.books[id].Clone())
	}
	return out
}

// Reset drops every book.
func (c *Catalog) Reset() {
	c.books = make(map[string]Book)
}

// ConsolidateLegacy moves values from pre-canonical keys into the canonical
// fields without overwriting them, and makes sure every book carries a
// normalized tag list. It returns the number of books changed.
func (c *Catalog) ConsolidateLegacy() int {
	changed := 0
	for id, b := range c.books {
		updated := false

		if b.legacySubject != "" {
			if strings.TrimSpace(b.Subject) == "" {
				b.Subject = strings.TrimSpace(b.legacySubject)
				updated = true
			}
			b.legacySubject = ""
		}
		if b.legacyTags {
			b.legacyTags = false
			updated = true
		}

		tags := normTags(b.Tags)
		if b.Tags == nil || !equalStrings(tags, b.Tags) {
			updated = true
		}
		b.Tags = tags

		if updated {
			c.books[id] = b
			changed++
		}
	}
	return changed
}

// Recanonize re-derives genre and tags of every book from its stored
// subjects without touching the network. A genre that is already clean is
// kept; anything else is re-bucketed through reg. It returns the number of
// books changed.
func (c *Catalog) Recanonize(reg *genre.Registry) int {
	changed := 0
	for id, b := range c.books {
		subjects := b.Subjects()
		if subjects == "" {
			continue
		}
		updated := false

		var g string
		if clean := reg.Normalize(b.Genre); clean != "" {
			g = clean
		} else {
			g = reg.FromSync(genre.Bucket(subjects))
		}
		if b.Genre != g {
			b.Genre = g
			updated = true
		}

		merged := genre.MergeTags(b.Tags, genre.DeriveTags(subjects, g))
		if !equalStrings(merged, b.Tags) {
			b.Tags = merged
			updated = true
		}

		if updated {
			c.books[id] = b
			changed++
		}
	}
	return changed
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

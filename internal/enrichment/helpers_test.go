package enrichment

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lepinkainen/shelfkeeper/internal/catalog"
	"github.com/lepinkainen/shelfkeeper/internal/genre"
	"github.com/lepinkainen/shelfkeeper/internal/openlibrary"
	"github.com/lepinkainen/shelfkeeper/internal/testutil"
)

// fakeLookup serves covers keyed by "<isbn>-<size>" or "id:<n>" and docs
// keyed by isbn or title.
type fakeLookup struct {
	mu       sync.Mutex
	covers   map[string][]byte
	docs     map[string]*openlibrary.Doc
	calls    atomic.Int32
	docCalls atomic.Int32
	// onCover runs on every cover request before answering.
	onCover func(key string)
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{covers: map[string][]byte{}, docs: map[string]*openlibrary.Doc{}}
}

func (f *fakeLookup) Best(ctx context.Context, title, author, isbn string) (*openlibrary.Doc, error) {
	f.calls.Add(1)
	f.docCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if isbn != "" {
		if d, ok := f.docs[isbn]; ok {
			return d, nil
		}
	}
	return f.docs[title], nil
}

func (f *fakeLookup) cover(key string) ([]byte, error) {
	f.calls.Add(1)
	if f.onCover != nil {
		f.onCover(key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.covers[key], nil
}

func (f *fakeLookup) CoverByISBN(ctx context.Context, isbn, size string) ([]byte, error) {
	return f.cover(isbn + "-" + size)
}

func (f *fakeLookup) CoverByID(ctx context.Context, id int64, size string) ([]byte, error) {
	return f.cover("id:" + strconv.FormatInt(id, 10))
}

// memTarget keeps records in memory and covers on disk.
type memTarget struct {
	mu     sync.Mutex
	books  map[string]catalog.Book
	covers *catalog.Covers
	reg    *genre.Registry
	coverQ map[string]bool
	genreQ map[string]bool
	saves  int
}

func newMemTarget(t *testing.T, env *testutil.TestEnv, books ...catalog.Book) *memTarget {
	t.Helper()
	m := &memTarget{
		books:  map[string]catalog.Book{},
		covers: catalog.LoadCovers(env.Path("cover_index.json"), env.Path("covers")),
		reg:    genre.NewRegistry(),
		coverQ: map[string]bool{},
		genreQ: map[string]bool{},
	}
	for _, b := range books {
		m.books[b.ID] = b
		m.coverQ[b.ID] = true
		if !m.reg.IsClean(b.Genre) {
			m.genreQ[b.ID] = true
		}
	}
	return m
}

func (m *memTarget) NeedsCover(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.covers.HasCover(id)
}

func (m *memTarget) NeedsGenre(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.reg.IsClean(m.books[id].Genre)
}

func (m *memTarget) StoreCover(id, filename string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.covers.Put(id, filename, data); err != nil {
		return err
	}
	delete(m.coverQ, id)
	return nil
}

func (m *memTarget) ApplyDocument(id string, doc *openlibrary.Doc) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.books[id]
	changed := ApplyDocument(&b, doc, m.reg)
	m.books[id] = b
	if m.reg.IsClean(b.Genre) {
		delete(m.genreQ, id)
	}
	return changed, nil
}

func (m *memTarget) BeginCoverRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.covers.Begin()
}

func (m *memTarget) EndCoverRun(rollback bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rollback {
		ids, err := m.covers.Rollback()
		for _, id := range ids {
			m.coverQ[id] = true
		}
		return err
	}
	m.covers.Commit()
	return m.covers.Save()
}

func (m *memTarget) SaveQueues() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	return nil
}

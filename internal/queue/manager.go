package queue

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/lepinkainen/shelfkeeper/internal/catalog"
)

// File names of the two queues inside the data directory.
const (
	CoverQueueFile = "sync_queue.json"
	GenreQueueFile = "genre_queue.json"
)

// Checker answers the completeness questions the queues are built from.
type Checker interface {
	NeedsCover(id string) bool
	NeedsGenre(b catalog.Book) bool
	Lookup(id string) (catalog.Book, bool)
	IDs() []string
}

// Manager owns the needs-cover and needs-genre queues. Membership is kept up
// to date one book at a time; a full scan only happens through Rebuild.
// Manager is not safe for concurrent use.
type Manager struct {
	Cover *Set
	Genre *Set
	store Checker
}

// NewManager wires existing sets to store.
func NewManager(cover, genre *Set, store Checker) *Manager {
	return &Manager{Cover: cover, Genre: genre, store: store}
}

// Load reads both queue files from dir.
func Load(dir string, store Checker) *Manager {
	return NewManager(
		LoadSet(filepath.Join(dir, CoverQueueFile)),
		LoadSet(filepath.Join(dir, GenreQueueFile)),
		store,
	)
}

// Empty reports whether both queues are empty.
func (m *Manager) Empty() bool {
	return m.Cover.Len() == 0 && m.Genre.Len() == 0
}

// QueueForSync adds id to each queue b currently qualifies for. Nothing is
// removed; entries leave a queue through the Dequeue methods or Rebuild.
func (m *Manager) QueueForSync(id string, b catalog.Book) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	if m.store.NeedsCover(id) {
		m.Cover.Add(id)
	}
	if m.store.NeedsGenre(b) {
		m.Genre.Add(id)
	}
}

// QueueID looks id up in the store and queues it as QueueForSync does.
// Unknown ids are ignored.
func (m *Manager) QueueID(id string) {
	id = strings.TrimSpace(id)
	b, ok := m.store.Lookup(id)
	if !ok {
		return
	}
	m.QueueForSync(id, b)
}

// QueueMany queues each known id and optionally saves both queues.
func (m *Manager) QueueMany(ids []string, save bool) error {
	for _, id := range ids {
		m.QueueID(id)
	}
	if !save {
		return nil
	}
	return m.Save()
}

// Rebuild refreshes both queues and saves them. Unless force is set, queues
// that already hold entries are only pruned of ids missing from the store;
// otherwise both are recomputed with one scan of the store.
func (m *Manager) Rebuild(force bool) error {
	if !force && !m.Empty() {
		known := func(id string) bool {
			_, ok := m.store.Lookup(id)
			return ok
		}
		dropped := m.Cover.Retain(known) + m.Genre.Retain(known)
		slog.Debug("Queues pruned", "dropped", dropped, "cover", m.Cover.Len(), "genre", m.Genre.Len())
		return m.Save()
	}

	var cover, genre []string
	for _, id := range m.store.IDs() {
		b, ok := m.store.Lookup(id)
		if !ok {
			continue
		}
		if m.store.NeedsCover(id) {
			cover = append(cover, id)
		}
		if m.store.NeedsGenre(b) {
			genre = append(genre, id)
		}
	}
	m.Cover.Replace(cover)
	m.Genre.Replace(genre)
	slog.Debug("Queues rebuilt", "cover", m.Cover.Len(), "genre", m.Genre.Len())
	return m.Save()
}

// Pending returns the books in either queue, each once. The order is
// unspecified.
func (m *Manager) Pending() []catalog.Book {
	seen := make(map[string]struct{}, m.Cover.Len()+m.Genre.Len())
	var out []catalog.Book
	for _, set := range []*Set{m.Cover, m.Genre} {
		for id := range set.ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if b, ok := m.store.Lookup(id); ok {
				out = append(out, b)
			}
		}
	}
	return out
}

// DequeueCover removes id from the needs-cover queue.
func (m *Manager) DequeueCover(id string) bool { return m.Cover.Remove(id) }

// DequeueGenre removes id from the needs-genre queue.
func (m *Manager) DequeueGenre(id string) bool { return m.Genre.Remove(id) }

// Remove drops id from both queues.
func (m *Manager) Remove(id string) {
	m.Cover.Remove(id)
	m.Genre.Remove(id)
}

// Reset empties both queues.
func (m *Manager) Reset() {
	m.Cover.Replace(nil)
	m.Genre.Replace(nil)
}

// Save writes both queue files.
func (m *Manager) Save() error {
	return errors.Join(m.Cover.Save(), m.Genre.Save())
}

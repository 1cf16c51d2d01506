package library

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lepinkainen/shelfkeeper/internal/catalog"
)

// Add normalizes b, derives its id and merges it into any existing record
// with the same id. The stored record is queued for sync when incomplete and
// the catalog and queues are saved.
func (l *Library) Add(b catalog.Book) (catalog.Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored := l.upsertLocked(b)
	if err := errors.Join(l.saveLocked(), l.queues.Save()); err != nil {
		return stored, fmt.Errorf("saving %s: %w", stored.ID, err)
	}
	return stored, nil
}

// AddMany adds every book and saves once. It returns the stored ids in input
// order; books merging into the same record repeat its id.
func (l *Library) AddMany(books []catalog.Book) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, 0, len(books))
	for _, b := range books {
		ids = append(ids, l.upsertLocked(b).ID)
	}
	if err := errors.Join(l.saveLocked(), l.queues.Save()); err != nil {
		return ids, fmt.Errorf("saving %d books: %w", len(books), err)
	}
	return ids, nil
}

func (l *Library) upsertLocked(b catalog.Book) catalog.Book {
	draft := catalog.Normalize(b, "")
	id := catalog.BuildBookID(draft)
	stored := catalog.Normalize(b, id)
	if existing, ok := l.catalog.Get(id); ok {
		stored = catalog.Merge(existing, stored)
	}
	l.catalog.Put(stored)
	l.queues.QueueForSync(id, stored)
	l.index = nil
	return stored
}

// Delete removes the book with id along with its queue entries. The cover
// file is left on disk; only the index entry goes.
func (l *Library) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	id = strings.TrimSpace(id)
	if !l.catalog.Has(id) {
		return fmt.Errorf("%w: %s", ErrBookNotFound, id)
	}
	l.catalog.Delete(id)
	l.covers.Remove(id)
	l.queues.Remove(id)
	return errors.Join(l.saveLocked(), l.queues.Save())
}

// Enqueue queues id for sync according to what it is missing and saves the
// queues. Unknown ids are ignored.
func (l *Library) Enqueue(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queues.QueueID(id)
	return l.queues.Save()
}

// EnqueueMany is Enqueue for several ids with a single save.
func (l *Library) EnqueueMany(ids []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queues.QueueMany(ids, true)
}

// Pending returns the books that are in either queue.
func (l *Library) Pending() []catalog.Book {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queues.Pending()
}

// QueueLens returns the sizes of the needs-cover and needs-genre queues.
func (l *Library) QueueLens() (cover, genre int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queues.Cover.Len(), l.queues.Genre.Len()
}

// RebuildQueues prunes the queues, or recomputes them with a full scan when
// force is set or both are empty.
func (l *Library) RebuildQueues(force bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queues.Rebuild(force)
}

// SetGenre assigns a genre chosen by the user. The value must be in the
// allowed set; an empty value clears the genre and queues the book for
// genre lookup.
func (l *Library) SetGenre(id, g string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bookLocked(id)
	if err != nil {
		return "", err
	}
	allowed := l.genres.Normalize(g)
	if strings.TrimSpace(g) != "" && allowed == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownGenre, g)
	}

	b.Genre = allowed
	l.catalog.Put(b)
	if allowed == "" {
		l.queues.Genre.Add(b.ID)
	} else {
		l.queues.DequeueGenre(b.ID)
	}
	return allowed, errors.Join(l.saveLocked(), l.queues.Save())
}

// SetCoverFromFile copies the image at path into the covers directory as the
// cover of id and takes the book off the cover queue.
func (l *Library) SetCoverFromFile(id, path string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bookLocked(id)
	if err != nil {
		return "", err
	}
	filename, err := l.covers.SetFromFile(b.ID, path)
	if err != nil {
		return "", err
	}
	l.queues.DequeueCover(b.ID)
	return filename, errors.Join(l.saveLocked(), l.queues.Save())
}

// SetRead sets the read flag of id.
func (l *Library) SetRead(id string, read bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bookLocked(id)
	if err != nil {
		return err
	}
	b.Read = read
	l.catalog.Put(b)
	return l.saveLocked()
}

// ToggleRead flips the read flag of id and returns the new value.
func (l *Library) ToggleRead(id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bookLocked(id)
	if err != nil {
		return false, err
	}
	b.Read = !b.Read
	l.catalog.Put(b)
	return b.Read, l.saveLocked()
}

func (l *Library) bookLocked(id string) (catalog.Book, error) {
	id = strings.TrimSpace(id)
	b, ok := l.catalog.Get(id)
	if !ok {
		return catalog.Book{}, fmt.Errorf("%w: %s", ErrBookNotFound, id)
	}
	return b, nil
}

package library

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/lepinkainen/shelfkeeper/internal/enrichment"
	"github.com/lepinkainen/shelfkeeper/internal/openlibrary"
)

// NeedsCover reports whether id has no resolvable cover file.
func (l *Library) NeedsCover(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.covers.HasCover(strings.TrimSpace(id))
}

// NeedsGenre reports whether the genre of id is outside the allowed set.
// Unknown ids need nothing.
func (l *Library) NeedsGenre(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.catalog.Get(id)
	return ok && !l.genres.IsClean(b.Genre)
}

// StoreCover writes a downloaded cover for id and takes it off the cover
// queue. Outside a cover run the index is saved right away.
func (l *Library) StoreCover(id, filename string, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.covers.Put(id, filename, data); err != nil {
		return err
	}
	l.queues.DequeueCover(id)
	if l.covers.InRun() {
		return nil
	}
	return l.covers.Save()
}

// ApplyDocument merges a looked-up document into id. A book whose genre ends
// up clean leaves the genre queue. The catalog is saved by the caller.
func (l *Library) ApplyDocument(id string, doc *openlibrary.Doc) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, err := l.bookLocked(id)
	if err != nil {
		return false, err
	}
	changed := enrichment.ApplyDocument(&b, doc, l.genres)
	if changed {
		l.catalog.Put(b)
		l.index = nil
	}
	if l.genres.IsClean(b.Genre) {
		l.queues.DequeueGenre(b.ID)
	}
	return changed, nil
}

// BeginCoverRun starts recording cover writes so a cancelled run can be
// undone.
func (l *Library) BeginCoverRun() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.covers.Begin()
}

// EndCoverRun closes the cover run. With rollback every cover written during
// the run is undone and the affected books are queued again; otherwise the
// index is saved.
func (l *Library) EndCoverRun(rollback bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !rollback {
		l.covers.Commit()
		return l.covers.Save()
	}
	touched, err := l.covers.Rollback()
	for _, id := range touched {
		l.queues.QueueID(id)
	}
	return errors.Join(err, l.covers.Save())
}

// SaveQueues writes both queue files.
func (l *Library) SaveQueues() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queues.Save()
}

// Sync runs the enrichment engine over every pending book and saves the
// catalog afterwards, whatever the outcome.
func (l *Library) Sync(ctx context.Context, lookup enrichment.Lookup, opts enrichment.Options) (enrichment.Summary, error) {
	summary, runErr := enrichment.NewEngine(lookup, l).Run(ctx, l.Pending(), opts)
	if err := l.Save(); err != nil {
		slog.Error("Failed to save catalog after sync", "error", err)
		runErr = errors.Join(runErr, err)
	}
	return summary, runErr
}

var _ enrichment.Target = (*Library)(nil)


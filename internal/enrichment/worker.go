package enrichment

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lepinkainen/shelfkeeper/internal/catalog"
	"github.com/lepinkainen/shelfkeeper/internal/fileutil"
	"github.com/lepinkainen/shelfkeeper/internal/isbn"
	"github.com/lepinkainen/shelfkeeper/internal/openlibrary"
)

type worker struct {
	lookup  Lookup
	target  Target
	stopper *Stopper
	docs    *docCache
	opts    Options
}

func (w *worker) halted(ctx context.Context) bool {
	return w.stopper.Stopped() || ctx.Err() != nil
}

func (w *worker) process(ctx context.Context, b catalog.Book) result {
	if w.halted(ctx) {
		return stoppedResult()
	}

	id := strings.TrimSpace(b.ID)
	title := b.DisplayTitle()
	if id == "" {
		return result{msg: skippedNoID + title, skipped: true}
	}

	needsCover := w.target.NeedsCover(id)
	needsGenre := w.target.NeedsGenre(id)
	if !needsCover && !needsGenre {
		return result{msg: skippedComplete + title, skipped: true}
	}

	bookISBN := b.CanonicalISBN()
	author := lookupAuthor(b)

	var (
		doc        *openlibrary.Doc
		coverOK    bool
		enriched   bool
		stillGenre = needsGenre
	)

	if needsCover && bookISBN != "" {
		if w.halted(ctx) {
			return stoppedResult()
		}
		if data := w.coverByISBN(ctx, bookISBN); data != nil {
			if w.halted(ctx) {
				return stoppedResult()
			}
			coverOK = w.store(id, isbnCoverName(id, bookISBN), data)
		}
	}

	if needsCover && !coverOK {
		if w.halted(ctx) {
			return stoppedResult()
		}
		doc = w.docs.get(ctx, title, author, "")
		if doc != nil {
			if doc.CoverID > 0 {
				if data := w.coverByID(ctx, doc.CoverID); data != nil {
					if w.halted(ctx) {
						return stoppedResult()
					}
					coverOK = w.store(id, "olid_"+strconv.FormatInt(doc.CoverID, 10)+".jpg", data)
				}
			}
			if !coverOK {
				for _, alt := range doc.AlternateISBNs(alternateISBNLimit) {
					if w.halted(ctx) {
						return stoppedResult()
					}
					if data := w.coverByISBN(ctx, alt); data != nil {
						coverOK = w.store(id, isbnCoverName(id, alt), data)
						break
					}
				}
			}
		}
	}

	if needsGenre {
		if w.halted(ctx) {
			return stoppedResult()
		}
		if doc == nil {
			doc = w.docs.get(ctx, title, author, bookISBN)
		}
		if doc != nil {
			changed, err := w.target.ApplyDocument(id, doc)
			if err != nil {
				slog.Warn("Failed to apply lookup document", "id", id, "error", err)
			}
			enriched = changed
		}
		stillGenre = w.target.NeedsGenre(id)
	}

	if w.opts.Delay > 0 {
		pause(ctx, w.opts.Delay)
	}

	var parts []string
	if needsCover {
		parts = append(parts, pick(coverOK, partCoverStored, partCoverMissing))
	}
	if needsGenre {
		parts = append(parts, pick(!stillGenre, partGenreEnriched, partGenreMissing))
	}

	return result{
		msg:        strings.Join(parts, " + ") + ": " + title,
		downloaded: coverOK,
		enriched:   enriched,
		failed:     (needsCover && !coverOK) || (needsGenre && doc == nil),
	}
}

func (w *worker) store(id, filename string, data []byte) bool {
	if err := w.target.StoreCover(id, filename, data); err != nil {
		slog.Warn("Failed to store cover", "id", id, "file", filename, "error", err)
		return false
	}
	return true
}

// coverByISBN tries the large then the medium cover and returns the first
// payload that passes validation.
func (w *worker) coverByISBN(ctx context.Context, raw string) []byte {
	for _, size := range []string{openlibrary.SizeLarge, openlibrary.SizeMedium} {
		data, err := w.lookup.CoverByISBN(ctx, raw, size)
		if err != nil {
			slog.Debug("Cover download failed", "isbn", raw, "size", size, "error", err)
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		if prepared := w.prepare(data, raw); prepared != nil {
			return prepared
		}
	}
	return nil
}

func (w *worker) coverByID(ctx context.Context, coverID int64) []byte {
	data, err := w.lookup.CoverByID(ctx, coverID, openlibrary.SizeLarge)
	if err != nil {
		slog.Debug("Cover download failed", "cover_id", coverID, "error", err)
		return nil
	}
	return w.prepare(data, strconv.FormatInt(coverID, 10))
}

func (w *worker) prepare(data []byte, source string) []byte {
	if data == nil {
		return nil
	}
	prepared, err := fileutil.PrepareCover(data, w.opts.Cover)
	if err != nil {
		if !errors.Is(err, fileutil.ErrCoverTooSmall) {
			slog.Debug("Rejected cover payload", "source", source, "error", err)
		}
		return nil
	}
	return prepared
}

// isbnCoverName names a cover after the ISBN digits, falling back to the id.
func isbnCoverName(id, raw string) string {
	if d := isbn.Digits(raw); d != "" {
		return d + ".jpg"
	}
	return id + ".jpg"
}

func lookupAuthor(b catalog.Book) string {
	author := b.AuthorDisplay()
	if author == catalog.UnknownAuthor {
		return ""
	}
	return author
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

func pause(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

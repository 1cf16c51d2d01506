package enrichment

import (
	"strings"

	"github.com/lepinkainen/shelfkeeper/internal/catalog"
	"github.com/lepinkainen/shelfkeeper/internal/genre"
	"github.com/lepinkainen/shelfkeeper/internal/isbn"
	"github.com/lepinkainen/shelfkeeper/internal/openlibrary"
)

// subjectLimit caps how many document subjects are kept on a record.
const subjectLimit = 12

// Genres is the part of the genre registry ApplyDocument needs.
type Genres interface {
	// Normalize returns the allowed spelling of g, or "" if g is not allowed.
	Normalize(g string) string
	// FromSync maps a bucketed genre through deletions and renames.
	FromSync(g string) string
}

// ApplyDocument fills the empty fields of b from doc and reports whether b
// changed. A genre that is already allowed is kept; otherwise it is replaced
// by the bucket of the document's subjects. Tags derived from the subjects
// are merged into the existing ones.
func ApplyDocument(b *catalog.Book, doc *openlibrary.Doc, genres Genres) bool {
	if b == nil || doc == nil {
		return false
	}
	changed := false
	setIfEmpty := func(field *string, value string) {
		value = strings.TrimSpace(value)
		if value != "" && strings.TrimSpace(*field) == "" {
			*field = value
			changed = true
		}
	}

	setIfEmpty(&b.OpenLibraryWorkKey, doc.Key)
	setIfEmpty(&b.OpenLibraryEditionKey, doc.EditionKey())

	if subjects := doc.SubjectString(subjectLimit); subjects != "" {
		setIfEmpty(&b.SubjectsRaw, subjects)

		final := genres.Normalize(b.Genre)
		if final == "" {
			final = genres.FromSync(genre.StarterOnly(genre.Bucket(subjects)))
			if strings.TrimSpace(b.Genre) != final {
				b.Genre = final
				changed = true
			}
		}

		merged := genre.MergeTags(b.Tags, genre.DeriveTags(subjects, final))
		if !equalTags(merged, b.Tags) {
			b.Tags = merged
			changed = true
		}
	}

	setIfEmpty(&b.Publisher, doc.Publisher())
	setIfEmpty(&b.Year, doc.Year())

	if strings.TrimSpace(b.ISBN) == "" {
		if best := doc.BestISBN(); best != "" {
			b.ISBN = best
			i13, i10 := isbn.Split(b.ISBN13, b.ISBN10, best)
			b.ISBN13, b.ISBN10 = i13, i10
			changed = true
		}
	}
	return changed
}

func equalTags(a, b []string) bool {
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

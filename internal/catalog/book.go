// Package catalog holds book records, their identity rules and the cover index.
package catalog

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"slices"
	"strings"

	"github.com/lepinkainen/shelfkeeper/internal/genre"
	"github.com/lepinkainen/shelfkeeper/internal/isbn"
)

// UnknownAuthor is displayed when a book carries no author information.
const UnknownAuthor = "Unknown author"

// Book is one catalog entry. Cover images are tracked by Covers, not here.
type Book struct {
	ID                    string   `json:"book_id"`
	Title                 string   `json:"title"`
	FirstName             string   `json:"first_name,omitempty"`
	LastName              string   `json:"last_name,omitempty"`
	Creators              string   `json:"creators"`
	Publisher             string   `json:"publisher"`
	Year                  string   `json:"date_published"`
	ISBN                  string   `json:"isbn"`
	ISBN13                string   `json:"isbn13"`
	ISBN10                string   `json:"isbn10"`
	Genre                 string   `json:"genre"`
	Tags                  []string `json:"tags"`
	SubjectsRaw           string   `json:"subjects_raw,omitempty"`
	Subject               string   `json:"subject,omitempty"`
	OpenLibraryWorkKey    string   `json:"openlibrary_work_key,omitempty"`
	OpenLibraryEditionKey string   `json:"openlibrary_edition_key,omitempty"`
	Read                  bool     `json:"read"`

	// legacySubject holds the first non-empty value of the pre-canonical
	// subject/genre keys found while decoding.
	legacySubject string
	// legacyTags is set when tags were stored as a delimited string.
	legacyTags bool
}

// CanonicalISBN returns the preferred ISBN of the book: isbn13, then isbn,
// then isbn10.
func (b Book) CanonicalISBN() string {
	return isbn.FromFields(b.ISBN13, b.ISBN, b.ISBN10)
}

// AuthorDisplay returns "First Last" when either name part is set, else the
// creators field, else UnknownAuthor.
func (b Book) AuthorDisplay() string {
	first := strings.TrimSpace(b.FirstName)
	last := strings.TrimSpace(b.LastName)
	if first != "" || last != "" {
		return strings.TrimSpace(first + " " + last)
	}
	if c := strings.TrimSpace(b.Creators); c != "" {
		return c
	}
	return UnknownAuthor
}

// PublishYear returns the part of the publish date before the first '-'.
func (b Book) PublishYear() string {
	y := strings.TrimSpace(b.Year)
	if i := strings.Index(y, "-"); i >= 0 {
		y = y[:i]
	}
	return y
}

// DisplayTitle returns the title, or "Untitled" when it is blank.
func (b Book) DisplayTitle() string {
	if t := strings.TrimSpace(b.Title); t != "" {
		return t
	}
	return "Untitled"
}

// Subjects returns the subject text genre derivation works from.
func (b Book) Subjects() string {
	if s := strings.TrimSpace(b.SubjectsRaw); s != "" {
		return s
	}
	return strings.TrimSpace(b.Subject)
}

// Clone returns a copy of b that shares no slices with it.
func (b Book) Clone() Book {
	b.Tags = slices.Clone(b.Tags)
	return b
}

func norm(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// BuildBookID derives the identifier of b: "isbn:<canonical>" when an ISBN is
// known, otherwise "fallback:" plus the first 16 hex characters of the SHA-1
// of the normalized title, author and year.
func BuildBookID(b Book) string {
	if canonical := b.CanonicalISBN(); canonical != "" {
		return "isbn:" + canonical
	}
	base := norm(b.Title) + "|" + norm(b.AuthorDisplay()) + "|" + norm(b.PublishYear())
	sum := sha1.Sum([]byte(base))
	return "fallback:" + hex.EncodeToString(sum[:])[:16]
}

// Normalize trims b, reduces its publish date to a year, keeps the genre only
// when it is a starter genre, recomputes the ISBN fields and normalizes tags.
// The returned book carries id.
func Normalize(b Book, id string) Book {
	b = b.Clone()
	b.ID = id
	b.Title = strings.TrimSpace(b.Title)
	b.FirstName = strings.TrimSpace(b.FirstName)
	b.LastName = strings.TrimSpace(b.LastName)
	b.Creators = strings.TrimSpace(b.Creators)
	b.Publisher = strings.TrimSpace(b.Publisher)
	b.Year = b.PublishYear()
	b.Genre = genre.StarterOnly(b.Genre)

	canonical := b.CanonicalISBN()
	switch len(canonical) {
	case 13:
		b.ISBN13 = canonical
		b.ISBN10 = isbn.Clean(b.ISBN10)
	case 10:
		b.ISBN10 = canonical
		b.ISBN13 = isbn.Clean(b.ISBN13)
	default:
		b.ISBN13 = isbn.Clean(b.ISBN13)
		b.ISBN10 = isbn.Clean(b.ISBN10)
	}
	b.ISBN = canonical

	b.Tags = normTags(b.Tags)
	return b
}

func normTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = genre.NormTag(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Merge folds incoming into existing. Non-empty incoming strings overwrite,
// tags are unioned and Read is only ever switched on. The id of existing
// wins when it is set.
func Merge(existing, incoming Book) Book {
	m := existing.Clone()
	over := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	over(&m.Title, incoming.Title)
	over(&m.FirstName, incoming.FirstName)
	over(&m.LastName, incoming.LastName)
	over(&m.Creators, incoming.Creators)
	over(&m.Publisher, incoming.Publisher)
	over(&m.Year, incoming.Year)
	over(&m.ISBN, incoming.ISBN)
	over(&m.ISBN13, incoming.ISBN13)
	over(&m.ISBN10, incoming.ISBN10)
	over(&m.Genre, incoming.Genre)
	over(&m.SubjectsRaw, incoming.SubjectsRaw)
	over(&m.Subject, incoming.Subject)
	over(&m.OpenLibraryWorkKey, incoming.OpenLibraryWorkKey)
	over(&m.OpenLibraryEditionKey, incoming.OpenLibraryEditionKey)
	if incoming.Read {
		m.Read = true
	}
	m.Tags = genre.MergeTags(existing.Tags, incoming.Tags)

	m.ID = existing.ID
	if m.ID == "" {
		m.ID = incoming.ID
	}
	return m
}

// UnmarshalJSON decodes a book and accepts the older key spellings found in
// imported catalogs: capitalized field names, ean/upc ISBN keys, delimited
// tag strings and textual read flags.
func (b *Book) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	str := func(keys ...string) string {
		for _, k := range keys {
			v, ok := raw[k]
			if !ok {
				continue
			}
			var s string
			if err := json.Unmarshal(v, &s); err == nil {
				if strings.TrimSpace(s) != "" {
					return s
				}
				continue
			}
			var n json.Number
			if err := json.Unmarshal(v, &n); err == nil && n != "" {
				return n.String()
			}
		}
		return ""
	}

	*b = Book{
		ID:                    str("book_id"),
		Title:                 str("title", "Title", "book_title"),
		FirstName:             str("first_name"),
		LastName:              str("last_name"),
		Creators:              str("creators", "Creators", "author", "Author"),
		Publisher:             str("publisher", "Publisher"),
		Year:                  str("date_published", "publish_date", "Year", "Year Published"),
		ISBN:                  str("isbn", "ISBN"),
		ISBN13:                str("isbn13", "ean_isbn13", "ISBN13"),
		ISBN10:                str("isbn10", "upc_isbn10", "ISBN10"),
		Genre:                 str("genre"),
		SubjectsRaw:           str("subjects_raw"),
		Subject:               str("subject"),
		OpenLibraryWorkKey:    str("openlibrary_work_key"),
		OpenLibraryEditionKey: str("openlibrary_edition_key"),
		legacySubject:         str("Subjects", "Subject", "Genre", "group"),
	}

	if v, ok := raw["tags"]; ok {
		var list []string
		var s string
		switch {
		case json.Unmarshal(v, &list) == nil:
			b.Tags = list
		case json.Unmarshal(v, &s) == nil:
			b.Tags = genre.SplitSubjects(s)
			b.legacyTags = strings.TrimSpace(s) != ""
		}
	}

	if v, ok := raw["read"]; ok {
		var flag bool
		var s string
		switch {
		case json.Unmarshal(v, &flag) == nil:
			b.Read = flag
		case json.Unmarshal(v, &s) == nil:
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "1", "true", "t", "yes", "y", "read":
				b.Read = true
			}
		default:
			var n float64
			if json.Unmarshal(v, &n) == nil {
				b.Read = n != 0
			}
		}
	}
	return nil
}

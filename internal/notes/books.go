package notes

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/lepinkainen/shelfkeeper/internal/catalog"
	"github.com/lepinkainen/shelfkeeper/internal/fileutil"
)

// Frontmatter keys owned by the exporter. Any other key in an existing note
// is left alone.
var bookKeys = []string{
	"book_id", "title", "author", "publisher", "year", "isbn", "genre",
	"subjects", "openlibrary", "read", "cover", "tags",
}

var (
	unsafeName = strings.NewReplacer(
		"/", "-", "\\", "-", ":", " -", "*", "", "?", "", "\"", "'", "<", "", ">", "", "|", "-",
	)
	tagSpace  = regexp.MustCompile(`\s+`)
	tagHyphen = regexp.MustCompile(`-+`)
)

// VaultTag turns a catalog tag into a vault tag: no leading '#', '&'
// spelled out, whitespace runs as single hyphens. '/' is kept for nesting.
func VaultTag(tag string) string {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	tag = strings.ReplaceAll(tag, "&", "and")
	tag = strings.ReplaceAll(tag, "#", "")
	tag = tagSpace.ReplaceAllString(strings.TrimSpace(tag), "-")
	tag = tagHyphen.ReplaceAllString(tag, "-")
	return strings.Trim(tag, "-")
}

// BookTags returns the vault tags of b: "book", the genre under "genre/"
// and every catalog tag, without duplicates.
func BookTags(b catalog.Book) []string {
	out := []string{"book"}
	seen := map[string]struct{}{"book": {}}
	add := func(t string) {
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if g := VaultTag(strings.ToLower(b.Genre)); g != "" {
		add("genre/" + g)
	}
	for _, t := range b.Tags {
		add(VaultTag(t))
	}
	return out
}

// FileName returns the note file name of b: "Title (Year).md", or the
// title alone when the year is unknown. Books without a title use their id.
func FileName(b catalog.Book) string {
	title := strings.TrimSpace(b.Title)
	if title == "" {
		return fileutil.SanitizeFilename(b.ID) + ".md"
	}
	name := strings.Join(strings.Fields(unsafeName.Replace(title)), " ")
	if year := b.PublishYear(); year != "" {
		name += " (" + year + ")"
	}
	return name + ".md"
}

// Apply writes the exporter-owned fields of b into fm. Empty values remove
// the key so a re-export never leaves stale data behind.
func Apply(fm *Frontmatter, b catalog.Book, cover string) {
	for _, k := range bookKeys {
		fm.Delete(k)
	}
	fm.Set("book_id", b.ID)
	fm.Set("title", b.DisplayTitle())
	fm.SetNonEmpty("author", b.AuthorDisplay())
	fm.SetNonEmpty("publisher", b.Publisher)
	fm.SetNonEmpty("year", b.PublishYear())
	fm.SetNonEmpty("isbn", b.CanonicalISBN())
	fm.SetNonEmpty("genre", b.Genre)
	fm.SetNonEmpty("subjects", b.Subjects())
	if key := b.OpenLibraryWorkKey; key != "" {
		fm.Set("openlibrary", "https://openlibrary.org"+key)
	}
	fm.Set("read", b.Read)
	fm.SetNonEmpty("cover", cover)
	fm.Set("tags", BookTags(b))
}

// Write creates or refreshes one note per book in dir and returns the number
// of notes written. An existing note keeps its body and any frontmatter keys
// the exporter does not own. cover maps a book id to its cover file name and
// may be nil.
func Write(dir string, books []catalog.Book, cover func(id string) string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating notes directory: %w", err)
	}

	used := make(map[string]string, len(books))
	written := 0
	for _, b := range books {
		name := FileName(b)
		if owner, taken := used[strings.ToLower(name)]; taken && owner != b.ID {
			name = strings.TrimSuffix(name, ".md") + " " + fileutil.SanitizeFilename(b.ID) + ".md"
		}
		used[strings.ToLower(name)] = b.ID

		c := ""
		if cover != nil {
			c = cover(b.ID)
		}
		if err := writeNote(filepath.Join(dir, name), b, c); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func writeNote(path string, b catalog.Book, cover string) error {
	note := &Note{Frontmatter: NewFrontmatter()}
	if existing, err := os.ReadFile(path); err == nil {
		parsed, perr := Parse(existing)
		if perr != nil {
			slog.Warn("Replacing note with unreadable frontmatter", "path", path, "error", perr)
		} else {
			note = parsed
		}
	}
	if strings.TrimSpace(note.Body) == "" && cover != "" {
		note.Body = "![[" + cover + "]]\n"
	}

	Apply(note.Frontmatter, b, cover)
	content, err := note.Build()
	if err != nil {
		return fmt.Errorf("building note for %s: %w", b.ID, err)
	}
	if err := fileutil.WriteFileAtomic(path, content, 0o644); err != nil {
		return fmt.Errorf("writing note for %s: %w", b.ID, err)
	}
	return nil
}

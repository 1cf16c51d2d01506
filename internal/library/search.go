package library

import (
	"strings"

	"github.com/lepinkainen/shelfkeeper/internal/catalog"
	"github.com/lepinkainen/shelfkeeper/internal/search"
)

// Search returns up to limit titles, authors or publishers matching query,
// best match first. The index is built on first use and dropped whenever
// the catalog changes.
func (l *Library) Search(query string, limit int) []string {
	l.mu.Lock()
	idx := l.index
	if idx == nil {
		idx = search.Build(l.searchValues())
		l.index = idx
	}
	l.mu.Unlock()

	return idx.Search(query, limit)
}

// Find resolves the Search results for query back to books, in result
// order. A value shared by several books, such as an author, yields all of
// them ordered by id.
func (l *Library) Find(query string, limit int) []catalog.Book {
	values := l.Search(query, limit)

	l.mu.Lock()
	defer l.mu.Unlock()

	books := l.catalog.Books()
	seen := make(map[string]struct{})
	var out []catalog.Book
	for _, v := range values {
		key := search.Normalize(v)
		for _, b := range books {
			if _, dup := seen[b.ID]; dup {
				continue
			}
			for _, field := range searchFields(b) {
				if field != "" && search.Normalize(field) == key {
					seen[b.ID] = struct{}{}
					out = append(out, b)
					break
				}
			}
		}
	}
	return out
}

func (l *Library) searchValues() []string {
	var values []string
	for _, b := range l.catalog.Books() {
		values = append(values, searchFields(b)...)
	}
	return values
}

func searchFields(b catalog.Book) []string {
	name := strings.TrimSpace(strings.TrimSpace(b.FirstName) + " " + strings.TrimSpace(b.LastName))
	return []string{b.Title, b.Creators, b.Publisher, name}
}

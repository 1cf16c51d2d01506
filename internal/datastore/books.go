package datastore

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lepinkainen/shelfkeeper/internal/catalog"
)

const (
	// BooksTable is the table catalog exports are written to.
	BooksTable = "books"
	// DefaultDatabase is the Datasette database name used for exports.
	DefaultDatabase = "shelfkeeper"

	exportBatchSize = 500
)

// BooksSchema creates the export table.
const BooksSchema = `CREATE TABLE IF NOT EXISTS books (
	book_id TEXT PRIMARY KEY,
	title TEXT,
	author TEXT,
	publisher TEXT,
	year TEXT,
	isbn TEXT,
	isbn13 TEXT,
	isbn10 TEXT,
	genre TEXT,
	tags TEXT,
	subjects TEXT,
	openlibrary_work_key TEXT,
	openlibrary_edition_key TEXT,
	read INTEGER,
	cover TEXT
)`

// BookRecord flattens b into an export row. Tags are joined with ", ".
func BookRecord(b catalog.Book, cover string) map[string]any {
	read := 0
	if b.Read {
		read = 1
	}
	return map[string]any{
		"book_id":                 b.ID,
		"title":                   b.Title,
		"author":                  b.AuthorDisplay(),
		"publisher":               b.Publisher,
		"year":                    b.PublishYear(),
		"isbn":                    b.CanonicalISBN(),
		"isbn13":                  b.ISBN13,
		"isbn10":                  b.ISBN10,
		"genre":                   b.Genre,
		"tags":                    strings.Join(b.Tags, ", "),
		"subjects":                b.Subjects(),
		"openlibrary_work_key":    b.OpenLibraryWorkKey,
		"openlibrary_edition_key": b.OpenLibraryEditionKey,
		"read":                    read,
		"cover":                   cover,
	}
}

// ExportBooks writes books to a connected store in batches. cover maps a
// book id to its cover file name and may be nil. It returns the number of
// rows written.
func ExportBooks(store Store, database string, books []catalog.Book, cover func(id string) string) (int, error) {
	if err := store.CreateTable(BooksSchema); err != nil {
		return 0, err
	}

	written := 0
	for start := 0; start < len(books); start += exportBatchSize {
		end := min(start+exportBatchSize, len(books))
		records := make([]map[string]any, 0, end-start)
		for _, b := range books[start:end] {
			c := ""
			if cover != nil {
				c = cover(b.ID)
			}
			records = append(records, BookRecord(b, c))
		}
		if err := store.BatchInsert(database, BooksTable, records); err != nil {
			return written, fmt.Errorf("exporting books %d-%d: %w", start, end, err)
		}
		written += len(records)
		slog.Debug("Exported batch", "rows", len(records), "total", written)
	}
	return written, nil
}

package enrichment

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/lepinkainen/shelfkeeper/internal/isbn"
	"github.com/lepinkainen/shelfkeeper/internal/openlibrary"
)

// docCache remembers lookup documents for the length of one run, misses
// included. Concurrent requests for the same key share one lookup.
type docCache struct {
	lookup Lookup
	mu     sync.Mutex
	docs   map[string]*openlibrary.Doc
	flight singleflight.Group
}

func newDocCache(lookup Lookup) *docCache {
	return &docCache{lookup: lookup, docs: make(map[string]*openlibrary.Doc)}
}

// docKey is ISBN:<digits> when an ISBN is given, else TA:<title>|<author>.
func docKey(title, author, rawISBN string) string {
	if strings.TrimSpace(rawISBN) != "" {
		clean := isbn.Digits(rawISBN)
		if clean == "" {
			clean = strings.NewReplacer("-", "", " ", "").Replace(rawISBN)
		}
		return "ISBN:" + clean
	}
	return "TA:" + normKey(title) + "|" + normKey(author)
}

func normKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func (c *docCache) get(ctx context.Context, title, author, rawISBN string) *openlibrary.Doc {
	key := docKey(title, author, rawISBN)

	c.mu.Lock()
	doc, ok := c.docs[key]
	c.mu.Unlock()
	if ok {
		return doc
	}

	v, _, _ := c.flight.Do(key, func() (any, error) {
		doc, err := c.lookup.Best(ctx, title, author, rawISBN)
		if err != nil {
			slog.Debug("Lookup failed", "key", key, "error", err)
			if ctx.Err() != nil {
				// Aborted lookups say nothing about the book.
				return (*openlibrary.Doc)(nil), nil
			}
		}
		c.mu.Lock()
		c.docs[key] = doc
		c.mu.Unlock()
		return doc, nil
	})
	return v.(*openlibrary.Doc)
}

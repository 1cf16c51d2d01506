package openlibrary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/lepinkainen/shelfkeeper/internal/isbn"
)

// ByISBN looks a book up by ISBN: first the books API, then an isbn search.
// A nil document with a nil error means the service has no such book.
func (c *Client) ByISBN(ctx context.Context, raw string) (*Doc, error) {
	clean := isbnKey(raw)
	if clean == "" {
		return nil, nil
	}
	if c.useCache {
		return c.cachedDoc(ctx, "isbn:"+clean, func() (*Doc, error) { return c.fetchByISBN(ctx, clean) })
	}
	return c.fetchByISBN(ctx, clean)
}

func (c *Client) fetchByISBN(ctx context.Context, clean string) (*Doc, error) {
	doc, booksErr := c.booksAPI(ctx, clean)
	if doc != nil {
		return doc, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	q := url.Values{}
	q.Set("q", "isbn:"+clean)
	doc, searchErr := c.searchOne(ctx, q)
	if doc != nil {
		return doc, nil
	}
	if searchErr != nil {
		return nil, searchErr
	}
	return nil, booksErr
}

func (c *Client) booksAPI(ctx context.Context, clean string) (*Doc, error) {
	key := "ISBN:" + clean
	q := url.Values{}
	q.Set("bibkeys", key)
	q.Set("format", "json")
	q.Set("jscmd", "data")

	var resp map[string]json.RawMessage
	if err := c.getJSON(ctx, c.baseURL+"/api/books?"+q.Encode(), &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	raw, ok := resp[key]
	if !ok {
		return nil, nil
	}
	var rec map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rec); err != nil || len(rec) == 0 {
		return nil, nil
	}
	var br bookRecord
	if err := json.Unmarshal(raw, &br); err != nil {
		return nil, fmt.Errorf("openlibrary: decoding books record %s: %w", key, err)
	}
	return br.doc(), nil
}

// Search returns the best match for a title and optional author.
func (c *Client) Search(ctx context.Context, title, author string) (*Doc, error) {
	title, author = strings.TrimSpace(title), strings.TrimSpace(author)
	if title == "" {
		return nil, nil
	}

	query := "title:" + title
	if author != "" {
		query += " AND author:" + author
	}
	q := url.Values{}
	q.Set("q", query)

	if c.useCache {
		key := "search:" + normKey(title) + "|" + normKey(author)
		return c.cachedDoc(ctx, key, func() (*Doc, error) { return c.searchOne(ctx, q) })
	}
	return c.searchOne(ctx, q)
}

func (c *Client) searchOne(ctx context.Context, q url.Values) (*Doc, error) {
	q.Set("limit", "1")
	q.Set("fields", SearchFields)

	var resp searchResponse
	if err := c.getJSON(ctx, c.baseURL+"/search.json?"+q.Encode(), &resp); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if len(resp.Docs) == 0 {
		return nil, nil
	}
	return &resp.Docs[0], nil
}

// Best tries the ISBN lookups first and falls back to a title/author search.
// Failures of one step fall through to the next; the last error is returned
// only when no step produced a document.
func (c *Client) Best(ctx context.Context, title, author, rawISBN string) (*Doc, error) {
	var lastErr error
	if isbnKey(rawISBN) != "" {
		doc, err := c.ByISBN(ctx, rawISBN)
		if doc != nil {
			return doc, nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Debug("ISBN lookup failed, trying title search", "isbn", rawISBN, "error", err)
			lastErr = err
		}
	}

	doc, err := c.Search(ctx, title, author)
	if doc != nil {
		return doc, nil
	}
	if err != nil {
		return nil, err
	}
	return nil, lastErr
}

// isbnKey reduces raw to the digits used in lookup URLs, keeping a
// trailing X when there are no plain digits to go on.
func isbnKey(raw string) string {
	if d := isbn.Digits(raw); d != "" {
		return d
	}
	return strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(raw))
}

func normKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

package openlibrary

import (
	"context"

	"github.com/lepinkainen/shelfkeeper/internal/cache"
)

// CachedDoc wraps a lookup result for the persistent cache. Found is false
// for a lookup that returned no document.
type CachedDoc struct {
	Doc   *Doc `json:"doc,omitempty"`
	Found bool `json:"found"`
}

func (c *Client) cachedDoc(ctx context.Context, key string, fetch func() (*Doc, error)) (*Doc, error) {
	result, _, err := cache.GetOrFetchWithTTL(cache.OpenLibraryTable, key, func() (*CachedDoc, error) {
		doc, err := fetch()
		if err != nil {
			return nil, err
		}
		return &CachedDoc{Doc: doc, Found: doc != nil}, nil
	}, cache.SelectNegativeCacheTTL(func(r *CachedDoc) bool {
		return r == nil || !r.Found
	}))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result.Doc, nil
}

package openlibrary

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/lepinkainen/shelfkeeper/internal/isbn"
)

// Cover sizes served by the covers host.
const (
	SizeSmall  = "S"
	SizeMedium = "M"
	SizeLarge  = "L"
)

// CoverURLByISBN returns the covers-host URL for an ISBN.
func (c *Client) CoverURLByISBN(rawISBN, size string) string {
	return fmt.Sprintf("%s/b/isbn/%s-%s.jpg", c.coversURL, isbn.Digits(rawISBN), size)
}

// CoverURLByID returns the covers-host URL for a cover id.
func (c *Client) CoverURLByID(id int64, size string) string {
	return fmt.Sprintf("%s/b/id/%s-%s.jpg", c.coversURL, strconv.FormatInt(id, 10), size)
}

// CoverByISBN downloads the cover for an ISBN. A missing cover yields nil
// bytes and a nil error; the service may also answer with a tiny
// placeholder, which callers filter by size.
func (c *Client) CoverByISBN(ctx context.Context, rawISBN, size string) ([]byte, error) {
	if isbn.Digits(rawISBN) == "" {
		return nil, nil
	}
	return c.cover(ctx, c.CoverURLByISBN(rawISBN, size))
}

// CoverByID downloads the cover with the given cover id.
func (c *Client) CoverByID(ctx context.Context, id int64, size string) ([]byte, error) {
	if id <= 0 {
		return nil, nil
	}
	return c.cover(ctx, c.CoverURLByID(id, size))
}

func (c *Client) cover(ctx context.Context, endpoint string) ([]byte, error) {
	data, err := c.get(ctx, endpoint)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	return data, err
}

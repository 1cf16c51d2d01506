package fileutil

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrCoverTooSmall is returned for payloads at or below the minimum size,
// which are usually blank placeholder images.
var ErrCoverTooSmall = errors.New("cover payload below minimum size")

// CoverOptions controls cover payload validation.
type CoverOptions struct {
	// MinBytes rejects payloads whose length is not strictly greater.
	MinBytes int
	// MaxWidth downscales wider images; zero keeps the original bytes.
	MaxWidth int
}

// PrepareCover checks that data is a decodable image larger than
// opts.MinBytes and, when MaxWidth is set and exceeded, re-encodes a
// downscaled JPEG. The returned bytes are what should be written to disk.
func PrepareCover(data []byte, opts CoverOptions) ([]byte, error) {
	if len(data) <= opts.MinBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrCoverTooSmall, len(data))
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("cover is not a decodable image: %w", err)
	}

	if opts.MaxWidth <= 0 || img.Bounds().Dx() <= opts.MaxWidth {
		return data, nil
	}

	resized := imaging.Resize(img, opts.MaxWidth, 0, imaging.Lanczos)
	return encodeJPEG(resized)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode cover: %w", err)
	}
	return buf.Bytes(), nil
}

// CoverExtension returns a supported image extension for path, defaulting to .png.
func CoverExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif":
		return ext
	}
	return ".png"
}

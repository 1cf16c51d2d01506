package fileutil

import (
	"bytes"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/lepinkainen/shelfkeeper/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareCoverRejectsSmallPayloads(t *testing.T) {
	_, err := PrepareCover([]byte("tiny"), CoverOptions{MinBytes: 1500})
	require.ErrorIs(t, err, ErrCoverTooSmall)
}

func TestPrepareCoverRejectsNonImages(t *testing.T) {
	junk := bytes.Repeat([]byte("not an image "), 200)
	_, err := PrepareCover(junk, CoverOptions{MinBytes: 1500})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a decodable image")
}

func TestPrepareCoverKeepsOriginalBytes(t *testing.T) {
	img := testutil.CoverImage(t, 64, 96)

	out, err := PrepareCover(img, CoverOptions{MinBytes: 1500})
	require.NoError(t, err)
	assert.Equal(t, img, out)
}

func TestPrepareCoverDownscales(t *testing.T) {
	img := testutil.CoverImage(t, 200, 300)

	out, err := PrepareCover(img, CoverOptions{MinBytes: 1500, MaxWidth: 100})
	require.NoError(t, err)

	decoded, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 150, decoded.Bounds().Dy())
}

func TestCoverExtension(t *testing.T) {
	assert.Equal(t, ".jpg", CoverExtension("/tmp/a.JPG"))
	assert.Equal(t, ".webp", CoverExtension("b.webp"))
	assert.Equal(t, ".png", CoverExtension("c.bmp"))
	assert.Equal(t, ".png", CoverExtension("noext"))
}

package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"
)

// CoverImage returns a PNG of the given size filled with seeded noise so
// that it comfortably exceeds placeholder size thresholds.
func CoverImage(t *testing.T, width, height int) []byte {
	t.Helper()
	return CoverImageSeed(t, width, height, 1)
}

// CoverImageSeed is CoverImage with an explicit noise seed, for tests that
// need distinguishable payloads.
func CoverImageSeed(t *testing.T, width, height int, seed int64) []byte {
	t.Helper()

	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

package imageutil

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"strings"
	"testing"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 0, 255})
		}
	}
	b, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return b
}

func TestDecodeBase64Variants(t *testing.T) {
	raw := testPNG(t, 4, 3)
	enc := EncodeBase64(raw)
	for name, in := range map[string]string{
		"std":      enc,
		"unpadded": strings.TrimRight(enc, "="),
		"dataurl":  DataURL(raw, "png"),
	} {
		got, err := DecodeBase64(in)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(got) != len(raw) {
			t.Fatalf("%s: got %d bytes, want %d", name, len(got), len(raw))
		}
	}
	if _, err := DecodeBase64(""); err != ErrEmpty {
		t.Fatalf("empty input: got %v", err)
	}
	if _, err := DecodeBase64("not base64 !!"); err == nil {
		t.Fatalf("expected error for invalid base64")
	}
}

func TestSize(t *testing.T) {
	w, h, format, err := Size(testPNG(t, 7, 5))
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if w != 7 || h != 5 || format != "png" {
		t.Fatalf("got %dx%d %s", w, h, format)
	}
	if _, _, _, err := Size([]byte("garbage")); err == nil {
		t.Fatalf("expected error for non-image")
	}
}

// withHeaderSize rewrites a PNG's IHDR to claim w x h pixels.
func withHeaderSize(b []byte, w, h uint32) []byte {
	out := append([]byte(nil), b...)
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestPixelLimit(t *testing.T) {
	small := testPNG(t, 1, 1)
	huge := withHeaderSize(small, 60000, 60000)
	if _, _, _, err := Size(huge); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Size: got %v, want ErrTooLarge", err)
	}
	if _, _, err := Decode(huge); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Decode: got %v, want ErrTooLarge", err)
	}
	// at the limit the header is still accepted
	w, h, _, err := Size(withHeaderSize(small, MaxPixels, 1))
	if err != nil || w != MaxPixels || h != 1 {
		t.Fatalf("at limit: %dx%d err=%v", w, h, err)
	}
}

func TestCrop(t *testing.T) {
	img, _, err := Decode(testPNG(t, 10, 10))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out, origin, err := Crop(img, []float64{2, 3, 6, 20})
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	if origin != image.Pt(2, 3) {
		t.Fatalf("origin = %v", origin)
	}
	if b := out.Bounds(); b.Dx() != 4 || b.Dy() != 7 || b.Min != image.Pt(0, 0) {
		t.Fatalf("bounds = %v", b)
	}
	r, g, _, _ := out.At(0, 0).RGBA()
	if r>>8 != 2 || g>>8 != 3 {
		t.Fatalf("pixel at origin = %d,%d", r>>8, g>>8)
	}
	if _, _, err := Crop(img, []float64{20, 20, 30, 30}); err == nil {
		t.Fatalf("expected error for bbox outside image")
	}
	if _, _, err := Crop(img, []float64{1, 2}); err == nil {
		t.Fatalf("expected error for short bbox")
	}
}

func TestIsRegion(t *testing.T) {
	if IsRegion(nil) || IsRegion([]float64{0, 0, 0, 0}) || IsRegion([]float64{5, 5, 1, 9}) {
		t.Fatalf("degenerate boxes reported as regions")
	}
	if !IsRegion([]float64{0, 0, 1, 1}) {
		t.Fatalf("unit box not a region")
	}
}

func TestIsImageFile(t *testing.T) {
	if !IsImageFile("scan.TIFF") || !IsImageFile("a.webp") || IsImageFile("doc.pdf") {
		t.Fatalf("unexpected extension classification")
	}
}

// Package imageutil decodes, crops and re-encodes page images for OCR.
package imageutil

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"strings"

	"github.com/vincent-petithory/dataurl"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrEmpty is returned when an image payload has no bytes.
var ErrEmpty = errors.New("empty image")

// MaxPixels caps width*height before anything decodes pixel data. A small
// compressed payload can otherwise expand to gigabytes.
const MaxPixels = 89_478_485

// ErrTooLarge is returned for images over MaxPixels.
var ErrTooLarge = errors.New("image too large")

// DecodeBase64 accepts raw base64 (standard or URL alphabet, padded or not) or a
// data URL and returns the image bytes.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		du, err := dataurl.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("decode data url: %w", err)
		}
		if len(du.Data) == 0 {
			return nil, ErrEmpty
		}
		return du.Data, nil
	}
	if s == "" {
		return nil, ErrEmpty
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			if len(b) == 0 {
				return nil, ErrEmpty
			}
			return b, nil
		}
	}
	return nil, fmt.Errorf("invalid base64 image data")
}

// EncodeBase64 is the inverse of DecodeBase64 for raw payloads.
func EncodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Size reads only the header and returns the image dimensions and format name.
// Images over MaxPixels fail with ErrTooLarge.
func Size(data []byte) (w, h int, format string, err error) {
	if len(data) == 0 {
		return 0, 0, "", ErrEmpty
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("decode image header: %w", err)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > MaxPixels {
		return 0, 0, "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, MaxPixels)
	}
	return cfg.Width, cfg.Height, format, nil
}

// Decode decodes any registered format (png, jpeg, gif, bmp, tiff, webp)
// after checking the header against MaxPixels.
func Decode(data []byte) (image.Image, string, error) {
	if _, _, _, err := Size(data); err != nil {
		return nil, "", err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return img, format, nil
}

// Rect converts an [x0, y0, x1, y1] box to a rectangle in img coordinates,
// clamped to bounds. It fails on malformed boxes or boxes outside the image.
func Rect(bounds image.Rectangle, bbox []float64) (image.Rectangle, error) {
	if len(bbox) != 4 {
		return image.Rectangle{}, fmt.Errorf("bbox must have 4 values, got %d", len(bbox))
	}
	for _, v := range bbox {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return image.Rectangle{}, fmt.Errorf("bbox contains a non-finite value")
		}
	}
	r := image.Rect(
		bounds.Min.X+int(math.Round(bbox[0])),
		bounds.Min.Y+int(math.Round(bbox[1])),
		bounds.Min.X+int(math.Round(bbox[2])),
		bounds.Min.Y+int(math.Round(bbox[3])),
	).Intersect(bounds)
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("bbox %v outside image bounds %dx%d", bbox, bounds.Dx(), bounds.Dy())
	}
	return r, nil
}

// IsRegion reports whether bbox names a non-degenerate region.
func IsRegion(bbox []float64) bool {
	return len(bbox) == 4 && bbox[2] > bbox[0] && bbox[3] > bbox[1]
}

// Crop copies the bbox region of img into a new RGBA image whose origin is 0,0.
func Crop(img image.Image, bbox []float64) (image.Image, image.Point, error) {
	r, err := Rect(img.Bounds(), bbox)
	if err != nil {
		return nil, image.Point{}, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst, r.Min.Sub(img.Bounds().Min), nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// MIMEType maps a format name from image.Decode to its media type.
func MIMEType(format string) string {
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	case "webp":
		return "image/webp"
	}
	return "image/png"
}

// DataURL renders data as a base64 data URL of the given format.
func DataURL(data []byte, format string) string {
	return dataurl.New(data, MIMEType(format)).String()
}

// Extensions lists the file extensions accepted as page images.
var Extensions = []string{".png", ".jpg", ".jpeg", ".webp", ".bmp", ".tif", ".tiff", ".gif"}

// IsImageFile reports whether name carries one of Extensions.
func IsImageFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

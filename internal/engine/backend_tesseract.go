//go:build tesseract

package engine

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"ocrd/pkg/types"
)

// TesseractBackend runs local CPU OCR through libtesseract.
type TesseractBackend struct {
	clientFactory func() *gosseract.Client
	languages     []string
}

// NewTesseractBackend constructs a Tesseract-backed OCR backend.
func NewTesseractBackend() (Backend, error) {
	return &TesseractBackend{clientFactory: gosseract.NewClient, languages: []string{"eng"}}, nil
}

func (b *TesseractBackend) Name() string { return BackendTesseract }

// Recognize returns one paragraph block per text line.
func (b *TesseractBackend) Recognize(ctx context.Context, in Input) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	c := b.clientFactory()
	defer c.Close()
	if err := c.SetImageFromBytes(in.Image); err != nil {
		return Output{}, fmt.Errorf("set image: %w", err)
	}
	if len(b.languages) > 0 {
		if err := c.SetLanguage(b.languages...); err != nil {
			return Output{}, fmt.Errorf("set languages: %w", err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return Output{}, fmt.Errorf("recognize text: %w", err)
	}
	plain := strings.TrimSpace(text)
	blocks := lineBlocks(c)
	if len(blocks) == 0 && plain != "" {
		blocks = MarkdownBlocks(plain)
	}
	if blocks == nil {
		blocks = []types.OCRBlock{}
	}
	return Output{
		Markdown:   plain,
		TextTokens: len(strings.Fields(plain)),
		Blocks:     blocks,
	}, nil
}

func lineBlocks(c *gosseract.Client) []types.OCRBlock {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil
	}
	out := make([]types.OCRBlock, 0, len(boxes))
	for _, bx := range boxes {
		word := strings.TrimSpace(bx.Word)
		if word == "" {
			continue
		}
		out = append(out, types.OCRBlock{
			ID:      newBlockID(len(out) + 1),
			Type:    types.BlockParagraph,
			Content: word,
			BBox: []float64{
				float64(bx.Box.Min.X), float64(bx.Box.Min.Y),
				float64(bx.Box.Max.X), float64(bx.Box.Max.Y),
			},
			Confidence: math.Round(bx.Confidence) / 100.0,
			Metadata:   map[string]any{"engine": "tesseract"},
		})
	}
	return out
}

func (b *TesseractBackend) Probe(context.Context) BackendHealth {
	return BackendHealth{Reachable: true, ModelLoaded: true, Detail: "tesseract " + gosseract.Version()}
}

func (b *TesseractBackend) Close() error { return nil }

package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"ocrd/pkg/types"
)

// StubBackend answers without a model. Output is deterministic apart from ids.
type StubBackend struct{}

func NewStubBackend() *StubBackend { return &StubBackend{} }

func (*StubBackend) Name() string { return BackendStub }

func (*StubBackend) Recognize(ctx context.Context, in Input) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	md := fmt.Sprintf(`# Stub OCR Result

This is a stub response (vLLM not available).

Image size: %dx%d
Mode: %s

**Note:** This is placeholder text. Deploy vLLM with DeepSeek-OCR for actual OCR.
`, in.Width, in.Height, in.Mode)
	block := types.OCRBlock{
		ID:         "stub_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		Type:       types.BlockParagraph,
		Content:    "Stub OCR content",
		BBox:       []float64{0, 0, float64(in.Width), float64(in.Height)},
		Confidence: 1.0,
		Metadata:   map[string]any{"stub": true},
	}
	return Output{
		Markdown:   md,
		TextTokens: len(strings.Fields(md)),
		Blocks:     []types.OCRBlock{block},
	}, nil
}

func (*StubBackend) Probe(context.Context) BackendHealth {
	return BackendHealth{Reachable: true, Detail: "stub backend"}
}

func (*StubBackend) Close() error { return nil }

package engine

import (
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"sync"
	"testing"

	"ocrd/internal/config"
	"ocrd/internal/imageutil"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	b, err := imageutil.EncodePNG(image.NewGray(image.Rect(0, 0, w, h)))
	if err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return b
}

func pngBase64(t *testing.T, w, h int) string {
	t.Helper()
	return imageutil.EncodeBase64(pngBytes(t, w, h))
}

// headerPNG is a 1x1 PNG whose header claims w x h pixels.
func headerPNG(t *testing.T, w, h uint32) string {
	t.Helper()
	b := pngBytes(t, 1, 1)
	binary.BigEndian.PutUint32(b[16:20], w)
	binary.BigEndian.PutUint32(b[20:24], h)
	binary.BigEndian.PutUint32(b[29:33], crc32.ChecksumIEEE(b[12:29]))
	return imageutil.EncodeBase64(b)
}

// fakeBackend records inputs and answers with a canned markdown.
type fakeBackend struct {
	mu       sync.Mutex
	inputs   []Input
	markdown string
	tokens   int
	err      error
	block    chan struct{}
	health   BackendHealth
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Recognize(ctx context.Context, in Input) (Output, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return Output{}, ctx.Err()
		}
	}
	if f.err != nil {
		return Output{}, f.err
	}
	return Output{Markdown: f.markdown, TextTokens: f.tokens}, nil
}

func (f *fakeBackend) Probe(context.Context) BackendHealth { return f.health }

func (f *fakeBackend) Close() error { return nil }

func (f *fakeBackend) lastInput(t *testing.T) Input {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 {
		t.Fatalf("backend not called")
	}
	return f.inputs[len(f.inputs)-1]
}

func newTestEngine(b Backend) *Engine {
	return NewWithConfig(Config{Backend: b, Runner: config.DefaultRunner(), MaxConcurrency: 2})
}

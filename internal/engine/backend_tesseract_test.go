//go:build !tesseract

package engine

import "testing"

func TestTesseractBackendNotCompiled(t *testing.T) {
	if _, err := NewTesseractBackend(); !IsDependencyUnavailable(err) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
}

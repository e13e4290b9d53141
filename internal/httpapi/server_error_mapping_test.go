package httpapi

import (
	"net/http"
	"testing"

	"ocrd/internal/engine"
)

func TestOCR_InvalidInputMaps400(t *testing.T) {
	svc := &mockService{ocrErr: engine.ErrInvalidInput("invalid base64 image data")}
	w := postOCR(t, NewMux(svc), "/ocr/page", `{"image":"@@"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestOCR_DependencyUnavailableMaps503(t *testing.T) {
	svc := &mockService{ocrErr: engine.ErrDependencyUnavailable("OCR engine not initialized")}
	w := postOCR(t, NewMux(svc), "/ocr/figure", `{"image":"aGk="}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestOCR_TooBusyMaps429(t *testing.T) {
	// Saturate a real engine: one in-flight slot held, queue depth 1, short wait.
	e := engine.NewWithConfig(engine.Config{Backend: engine.NewStubBackend(), MaxConcurrency: 1, MaxQueueDepth: 1, MaxWait: 1})
	e.Drain()
	w := postOCR(t, NewMux(e), "/ocr/page", `{"image":"`+tinyPNG+`"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d body=%s", w.Code, w.Body.String())
	}
}

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ocrd/internal/config"
)

// Backend names.
const (
	BackendVLLM      = config.BackendVLLM
	BackendStub      = config.BackendStub
	BackendTesseract = config.BackendTesseract
)

// Backend is an OCR model runtime.
type Backend interface {
	Name() string
	// Recognize returns the model output for one prepared image.
	Recognize(ctx context.Context, in Input) (Output, error)
	// Probe reports reachability without failing.
	Probe(ctx context.Context) BackendHealth
	// Close releases resources associated with the backend.
	Close() error
}

// OpenBackend builds the backend cfg selects. With backend auto, an
// unreachable vLLM server falls back to the stub backend.
func OpenBackend(ctx context.Context, cfg config.Config, log zerolog.Logger) (Backend, error) {
	switch cfg.Backend {
	case config.BackendStub:
		return NewStubBackend(), nil
	case config.BackendTesseract:
		return NewTesseractBackend()
	case config.BackendVLLM:
		return NewVLLMBackend(VLLMOptions{
			BaseURL: cfg.VLLMURL,
			APIKey:  cfg.VLLMAPIKey,
			Model:   cfg.ServedModel(),
			Timeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
		}), nil
	case config.BackendAuto, "":
		v := NewVLLMBackend(VLLMOptions{
			BaseURL: cfg.VLLMURL,
			APIKey:  cfg.VLLMAPIKey,
			Model:   cfg.ServedModel(),
			Timeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
		})
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		h := v.Probe(pctx)
		if h.Reachable {
			if !h.ModelLoaded {
				log.Warn().Str("event", "backend_select").Str("url", cfg.VLLMURL).Str("model", cfg.ServedModel()).
					Msg(h.Detail)
			}
			log.Info().Str("event", "backend_select").Str("backend", BackendVLLM).Str("url", cfg.VLLMURL).Msg("using vLLM backend")
			return v, nil
		}
		_ = v.Close()
		log.Warn().Str("event", "backend_fallback").Str("url", cfg.VLLMURL).Str("reason", h.Detail).
			Msg("vLLM not reachable; serving stub results")
		return NewStubBackend(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// Open builds an Engine for cfg.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Engine, error) {
	b, err := OpenBackend(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(Config{
		Backend:        b,
		MaxConcurrency: cfg.Runner.MaxConcurrency,
		MaxQueueDepth:  cfg.MaxQueueDepth,
		MaxWait:        time.Duration(cfg.QueueWaitSec) * time.Second,
		Runner:         cfg.Runner,
		Logger:         &log,
	}), nil
}

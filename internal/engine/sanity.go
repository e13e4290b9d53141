package engine

import (
	"context"
	"time"
)

// SanityReport describes runtime checks for the backend.
type SanityReport struct {
	Backend     string `json:"backend"`
	Reachable   bool   `json:"reachable"`
	ModelLoaded bool   `json:"model_loaded"`
	Error       string `json:"error,omitempty"`
}

// SanityCheck probes the backend with a short deadline.
// It does not mutate state and is safe to call at any time.
func (e *Engine) SanityCheck(ctx context.Context) SanityReport {
	e.mu.RLock()
	b := e.backend
	e.mu.RUnlock()
	if b == nil {
		return SanityReport{Error: "no backend installed"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	h := b.Probe(ctx)
	r := SanityReport{Backend: b.Name(), Reachable: h.Reachable, ModelLoaded: h.ModelLoaded}
	if !h.Reachable || !h.ModelLoaded {
		r.Error = h.Detail
	}
	return r
}

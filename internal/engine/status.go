package engine

import (
	"context"
	"time"

	"ocrd/pkg/types"
)

// servedModeler is implemented by backends that request a model by name.
type servedModeler interface {
	ServedModel() string
}

// modelName is the model the backend asks for, falling back to MODEL_PATH.
// Callers hold e.mu.
func (e *Engine) modelName() string {
	if sm, ok := e.backend.(servedModeler); ok && sm.ServedModel() != "" {
		return sm.ServedModel()
	}
	return e.runner.ModelPath
}

// Health probes the backend and reports the /health view.
func (e *Engine) Health(ctx context.Context) types.HealthResponse {
	e.mu.RLock()
	b := e.backend
	model := e.modelName()
	e.mu.RUnlock()
	if b == nil {
		return types.HealthResponse{Status: "unavailable"}
	}
	h := b.Probe(ctx)
	return types.HealthResponse{
		Status:        "healthy",
		VLLMAvailable: b.Name() == BackendVLLM && h.Reachable,
		CUDAAvailable: h.CUDA,
		ModelLoaded:   h.ModelLoaded,
		Backend:       b.Name(),
		Model:         model,
	}
}

// Status builds a detailed status response for /status.
func (e *Engine) Status() types.StatusResponse {
	e.mu.RLock()
	defer e.mu.RUnlock()
	resp := types.StatusResponse{
		State:          string(e.state),
		Model:          e.modelName(),
		MaxConcurrency: cap(e.genCh),
		Inflight:       len(e.genCh),
		QueueLen:       len(e.queueCh),
		MaxQueueDepth:  cap(e.queueCh),
		RequestsTotal:  e.requestsTotal.Load(),
		FailuresTotal:  e.failuresTotal.Load(),
		LastError:      e.lastErr,
		UptimeSeconds:  int64(time.Since(e.startTime) / time.Second),
		ServerTimeUnix: time.Now().Unix(),
	}
	if e.backend != nil {
		resp.Backend = e.backend.Name()
	}
	return resp
}

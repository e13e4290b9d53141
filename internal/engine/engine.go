package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"ocrd/internal/config"
)

// Engine owns one backend and admits requests to it.
type Engine struct {
	mu      sync.RWMutex
	state   State
	backend Backend
	runner  config.RunnerConfig
	lastErr string
	log     zerolog.Logger

	// Admission
	maxQueueDepth  int
	maxConcurrency int
	maxWait        time.Duration
	queueCh        chan struct{}
	genCh          chan struct{}

	requestsTotal atomic.Uint64
	failuresTotal atomic.Uint64
	startTime     time.Time
}

// New constructs an Engine around backend using package defaults.
func New(backend Backend, runner config.RunnerConfig) *Engine {
	return NewWithConfig(Config{
		Backend:        backend,
		Runner:         runner,
		MaxConcurrency: runner.MaxConcurrency,
	})
}

// Ready reports whether the engine accepts work.
func (e *Engine) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state == StateReady && e.backend != nil
}

// BackendName returns the active backend name or "" when none is installed.
func (e *Engine) BackendName() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.backend == nil {
		return ""
	}
	return e.backend.Name()
}

// Runner returns the runner record the engine was built with.
func (e *Engine) Runner() config.RunnerConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.runner
}

func (e *Engine) recordFailure(err error) {
	e.failuresTotal.Add(1)
	e.mu.Lock()
	e.lastErr = err.Error()
	e.mu.Unlock()
}

// Drain stops admitting new requests; in-flight ones complete.
func (e *Engine) Drain() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateReady || e.state == StateLoading {
		e.state = StateDraining
	}
	e.log.Info().Str("event", "drain").Msg("engine draining")
}

// Close drains and releases the backend.
func (e *Engine) Close() error {
	e.Drain()
	e.mu.Lock()
	b := e.backend
	e.backend = nil
	e.mu.Unlock()
	if b == nil {
		return nil
	}
	return b.Close()
}

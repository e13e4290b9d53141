package engine

import (
	"time"

	"github.com/rs/zerolog"

	"ocrd/internal/config"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxQueueDepth  = 32
	defaultMaxConcurrency = 1
	defaultMaxWait        = 30 * time.Second
)

// Config encapsulates all tunables for Engine construction.
type Config struct {
	Backend Backend
	// MaxConcurrency bounds requests handed to the backend at once.
	MaxConcurrency int
	// MaxQueueDepth bounds requests waiting for (or holding) an in-flight slot.
	MaxQueueDepth int
	MaxWait       time.Duration
	Runner        config.RunnerConfig
	Logger        *zerolog.Logger
}

// NewWithConfig constructs an Engine from Config.
func NewWithConfig(cfg Config) *Engine {
	e := &Engine{
		backend: cfg.Backend,
		runner:  cfg.Runner,
		log:     zerolog.Nop(),
	}
	if cfg.Logger != nil {
		e.log = *cfg.Logger
	}
	if cfg.MaxQueueDepth <= 0 {
		e.maxQueueDepth = defaultMaxQueueDepth
	} else {
		e.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.MaxConcurrency <= 0 {
		e.maxConcurrency = defaultMaxConcurrency
	} else {
		e.maxConcurrency = cfg.MaxConcurrency
	}
	// A request holds its queue slot while in flight, so the queue must be at
	// least as deep as the in-flight limit.
	if e.maxQueueDepth < e.maxConcurrency {
		e.maxQueueDepth = e.maxConcurrency
	}
	if cfg.MaxWait <= 0 {
		e.maxWait = defaultMaxWait
	} else {
		e.maxWait = cfg.MaxWait
	}
	if e.runner.ModelPath == "" {
		e.runner = config.DefaultRunner()
	}
	e.queueCh = make(chan struct{}, e.maxQueueDepth)
	e.genCh = make(chan struct{}, e.maxConcurrency)
	if e.backend != nil {
		e.state = StateReady
	} else {
		e.state = StateLoading
	}
	e.startTime = time.Now()
	return e
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type envReader struct {
	lookup LookupFunc
	err    error
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok && v != "" {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok || strings.TrimSpace(v) == "" || e.err != nil {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.err = fmt.Errorf("%s=%q: not an integer", key, v)
		return
	}
	*dst = n
}

func (e *envReader) integer64(key string, dst *int64) {
	v, ok := e.lookup(key)
	if !ok || strings.TrimSpace(v) == "" || e.err != nil {
		return
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		e.err = fmt.Errorf("%s=%q: not an integer", key, v)
		return
	}
	*dst = n
}

func (e *envReader) boolean(key string, dst *bool) {
	v, ok := e.lookup(key)
	if !ok || strings.TrimSpace(v) == "" || e.err != nil {
		return
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	default:
		e.err = fmt.Errorf("%s=%q: not a boolean", key, v)
	}
}

func (e *envReader) list(key string, dst *[]string) {
	if v, ok := e.lookup(key); ok && v != "" {
		*dst = SplitCSV(v)
	}
}

// ApplyEnv overlays OCRD_* service variables and the runner's upper-case keys.
// A nil lookup reads the process environment.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	e := &envReader{lookup: lookup}
	e.str("OCRD_ADDR", &cfg.Addr)
	e.str("OCRD_BACKEND", &cfg.Backend)
	e.str("OCRD_VLLM_URL", &cfg.VLLMURL)
	e.str("OCRD_VLLM_API_KEY", &cfg.VLLMAPIKey)
	e.str("OCRD_MODEL", &cfg.Model)
	e.str("OCRD_LOG_LEVEL", &cfg.LogLevel)
	e.integer("OCRD_REQUEST_TIMEOUT_SEC", &cfg.RequestTimeoutSec)
	e.integer64("OCRD_MAX_BODY_BYTES", &cfg.MaxBodyBytes)
	e.integer("OCRD_MAX_QUEUE_DEPTH", &cfg.MaxQueueDepth)
	e.integer("OCRD_QUEUE_WAIT_SEC", &cfg.QueueWaitSec)
	e.list("OCRD_CORS_ORIGINS", &cfg.CORSOrigins)

	r := &cfg.Runner
	e.integer("BASE_SIZE", &r.BaseSize)
	e.integer("IMAGE_SIZE", &r.ImageSize)
	e.boolean("CROP_MODE", &r.CropMode)
	e.integer("MIN_CROPS", &r.MinCrops)
	e.integer("MAX_CROPS", &r.MaxCrops)
	e.integer("MAX_CONCURRENCY", &r.MaxConcurrency)
	e.integer("NUM_WORKERS", &r.NumWorkers)
	e.str("MODEL_PATH", &r.ModelPath)
	e.str("INPUT_PATH", &r.InputPath)
	e.str("OUTPUT_PATH", &r.OutputPath)
	e.str("PROMPT", &r.Prompt)
	return e.err
}

// SplitCSV splits a comma-separated list, trimming blanks and dropping empty items.
func SplitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

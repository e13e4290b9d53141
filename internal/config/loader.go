package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"ocrd/internal/common/fsutil"
)

// Backend names accepted by Config.Backend.
const (
	BackendAuto      = "auto"
	BackendVLLM      = "vllm"
	BackendStub      = "stub"
	BackendTesseract = "tesseract"
)

// Config holds runtime parameters for the OCR service and the batch runner.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
	// Backend is one of auto, vllm, stub, tesseract.
	Backend    string `json:"backend" yaml:"backend" toml:"backend"`
	VLLMURL    string `json:"vllm_url" yaml:"vllm_url" toml:"vllm_url"`
	VLLMAPIKey string `json:"vllm_api_key" yaml:"vllm_api_key" toml:"vllm_api_key"`
	// Model is the name vLLM serves the model under. Empty means Runner.ModelPath.
	Model             string   `json:"model" yaml:"model" toml:"model"`
	RequestTimeoutSec int      `json:"request_timeout_sec" yaml:"request_timeout_sec" toml:"request_timeout_sec"`
	MaxBodyBytes      int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	MaxQueueDepth     int      `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	QueueWaitSec      int      `json:"queue_wait_sec" yaml:"queue_wait_sec" toml:"queue_wait_sec"`
	CORSOrigins       []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	LogLevel          string   `json:"log_level" yaml:"log_level" toml:"log_level"`

	Runner RunnerConfig `json:"runner" yaml:"runner" toml:"runner"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		Addr:              ":8000",
		Backend:           BackendAuto,
		VLLMURL:           "http://localhost:8001/v1",
		RequestTimeoutSec: 300,
		MaxBodyBytes:      32 << 20,
		MaxQueueDepth:     32,
		QueueWaitSec:      30,
		LogLevel:          "info",
		Runner:            DefaultRunner(),
	}
}

// ServedModel returns the model name to request from the inference server.
func (c Config) ServedModel() string {
	if strings.TrimSpace(c.Model) != "" {
		return c.Model
	}
	return c.Runner.ModelPath
}

// Load reads a configuration file on top of Default based on its extension.
// Keys missing from the file keep their default values.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(p)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Validate checks the service settings and the runner record.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendVLLM, BackendStub, BackendTesseract:
	default:
		return fmt.Errorf("backend: unknown value %q (want auto, vllm, stub or tesseract)", c.Backend)
	}
	if (c.Backend == BackendVLLM || c.Backend == BackendAuto) && strings.TrimSpace(c.VLLMURL) == "" {
		return fmt.Errorf("vllm_url is required for backend %s", c.Backend)
	}
	if c.MaxQueueDepth < 0 {
		return fmt.Errorf("max_queue_depth must be >= 0")
	}
	if c.QueueWaitSec < 0 || c.RequestTimeoutSec < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}
	return c.Runner.Validate()
}

// Encode renders cfg in the given format: yaml, json or toml.
func Encode(cfg any, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml", "":
		return yaml.Marshal(cfg)
	case "json":
		b, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case "toml":
		return toml.Marshal(cfg)
	}
	return nil, fmt.Errorf("unsupported format: %s", format)
}

package config

import (
	"fmt"
	"strings"
)

// DefaultPrompt is the upstream DeepSeek-OCR document prompt.
const DefaultPrompt = "<image>\n<|grounding|>Convert the document to markdown."

// MaxCropsLimit is the largest tile count the DeepSeek-OCR image processor accepts.
const MaxCropsLimit = 9

// RunnerConfig is the flat record read by the OCR runner. Field names mirror the
// upper-case keys of the upstream config file so an edited copy can be pasted
// into the environment unchanged.
type RunnerConfig struct {
	BaseSize       int    `json:"base_size" yaml:"base_size" toml:"base_size"`
	ImageSize      int    `json:"image_size" yaml:"image_size" toml:"image_size"`
	CropMode       bool   `json:"crop_mode" yaml:"crop_mode" toml:"crop_mode"`
	MinCrops       int    `json:"min_crops" yaml:"min_crops" toml:"min_crops"`
	MaxCrops       int    `json:"max_crops" yaml:"max_crops" toml:"max_crops"`
	MaxConcurrency int    `json:"max_concurrency" yaml:"max_concurrency" toml:"max_concurrency"`
	NumWorkers     int    `json:"num_workers" yaml:"num_workers" toml:"num_workers"`
	ModelPath      string `json:"model_path" yaml:"model_path" toml:"model_path"`
	InputPath      string `json:"input_path" yaml:"input_path" toml:"input_path"`
	OutputPath     string `json:"output_path" yaml:"output_path" toml:"output_path"`
	Prompt         string `json:"prompt" yaml:"prompt" toml:"prompt"`
}

// DefaultRunner mirrors the stock DeepSeek-OCR config (Gundam sizes, crop on).
func DefaultRunner() RunnerConfig {
	return RunnerConfig{
		BaseSize:       1024,
		ImageSize:      640,
		CropMode:       true,
		MinCrops:       2,
		MaxCrops:       6,
		MaxConcurrency: 100,
		NumWorkers:     64,
		ModelPath:      "deepseek-ai/DeepSeek-OCR",
		Prompt:         DefaultPrompt,
	}
}

var allowedSizes = []int{512, 640, 1024, 1280}

func sizeAllowed(n int) bool {
	for _, s := range allowedSizes {
		if s == n {
			return true
		}
	}
	return false
}

// Validate reports the first invalid field using its upper-case name.
func (r RunnerConfig) Validate() error {
	if !sizeAllowed(r.BaseSize) {
		return fmt.Errorf("BASE_SIZE=%d: must be one of 512, 640, 1024, 1280", r.BaseSize)
	}
	if !sizeAllowed(r.ImageSize) {
		return fmt.Errorf("IMAGE_SIZE=%d: must be one of 512, 640, 1024, 1280", r.ImageSize)
	}
	if r.ImageSize > r.BaseSize {
		return fmt.Errorf("IMAGE_SIZE=%d must not exceed BASE_SIZE=%d", r.ImageSize, r.BaseSize)
	}
	if r.MinCrops < 1 {
		return fmt.Errorf("MIN_CROPS=%d: must be >= 1", r.MinCrops)
	}
	if r.MaxCrops < r.MinCrops {
		return fmt.Errorf("MAX_CROPS=%d must be >= MIN_CROPS=%d", r.MaxCrops, r.MinCrops)
	}
	if r.MaxCrops > MaxCropsLimit {
		return fmt.Errorf("MAX_CROPS=%d: must be <= %d", r.MaxCrops, MaxCropsLimit)
	}
	if r.MaxConcurrency < 1 {
		return fmt.Errorf("MAX_CONCURRENCY=%d: must be >= 1", r.MaxConcurrency)
	}
	if r.NumWorkers < 1 {
		return fmt.Errorf("NUM_WORKERS=%d: must be >= 1", r.NumWorkers)
	}
	if strings.TrimSpace(r.ModelPath) == "" {
		return fmt.Errorf("MODEL_PATH is required")
	}
	return nil
}

// EnvLines renders the record as KEY=value lines in declaration order.
func (r RunnerConfig) EnvLines() []string {
	return []string{
		fmt.Sprintf("BASE_SIZE=%d", r.BaseSize),
		fmt.Sprintf("IMAGE_SIZE=%d", r.ImageSize),
		fmt.Sprintf("CROP_MODE=%t", r.CropMode),
		fmt.Sprintf("MIN_CROPS=%d", r.MinCrops),
		fmt.Sprintf("MAX_CROPS=%d", r.MaxCrops),
		fmt.Sprintf("MAX_CONCURRENCY=%d", r.MaxConcurrency),
		fmt.Sprintf("NUM_WORKERS=%d", r.NumWorkers),
		fmt.Sprintf("MODEL_PATH=%s", r.ModelPath),
		fmt.Sprintf("INPUT_PATH=%s", r.InputPath),
		fmt.Sprintf("OUTPUT_PATH=%s", r.OutputPath),
		fmt.Sprintf("PROMPT=%q", r.Prompt),
	}
}

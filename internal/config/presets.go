package config

import (
	"fmt"

	"ocrd/pkg/types"
)

// ModePreset is the size triple a mode implies.
type ModePreset struct {
	Mode      types.Mode `json:"mode" yaml:"mode" toml:"mode"`
	BaseSize  int        `json:"base_size" yaml:"base_size" toml:"base_size"`
	ImageSize int        `json:"image_size" yaml:"image_size" toml:"image_size"`
	CropMode  bool       `json:"crop_mode" yaml:"crop_mode" toml:"crop_mode"`
}

var modePresets = map[types.Mode]ModePreset{
	types.ModeTiny:   {Mode: types.ModeTiny, BaseSize: 512, ImageSize: 512},
	types.ModeSmall:  {Mode: types.ModeSmall, BaseSize: 640, ImageSize: 640},
	types.ModeBase:   {Mode: types.ModeBase, BaseSize: 1024, ImageSize: 1024},
	types.ModeLarge:  {Mode: types.ModeLarge, BaseSize: 1280, ImageSize: 1280},
	types.ModeGundam: {Mode: types.ModeGundam, BaseSize: 1024, ImageSize: 640, CropMode: true},
}

// Preset returns the sizes for mode.
func Preset(mode types.Mode) (ModePreset, error) {
	p, ok := modePresets[mode]
	if !ok {
		return ModePreset{}, fmt.Errorf("no preset for mode %q", mode)
	}
	return p, nil
}

// WithMode returns r with the size triple of mode applied.
func (r RunnerConfig) WithMode(mode types.Mode) (RunnerConfig, error) {
	p, err := Preset(mode)
	if err != nil {
		return r, err
	}
	r.BaseSize, r.ImageSize, r.CropMode = p.BaseSize, p.ImageSize, p.CropMode
	return r, nil
}

// Mode infers the mode matching the record's sizes. Crop mode always means
// Gundam; unmatched sizes fall back to Base.
func (r RunnerConfig) Mode() types.Mode {
	if r.CropMode {
		return types.ModeGundam
	}
	for _, m := range types.Modes {
		p := modePresets[m]
		if !p.CropMode && p.BaseSize == r.BaseSize && p.ImageSize == r.ImageSize {
			return m
		}
	}
	return types.ModeBase
}

// VRAMTier bounds concurrency and tiling for a GPU memory class.
type VRAMTier struct {
	Name           string `json:"name" yaml:"name" toml:"name"`
	BelowMiB       int    `json:"below_mib" yaml:"below_mib" toml:"below_mib"`
	MaxCrops       int    `json:"max_crops" yaml:"max_crops" toml:"max_crops"`
	MaxConcurrency int    `json:"max_concurrency" yaml:"max_concurrency" toml:"max_concurrency"`
	NumWorkers     int    `json:"num_workers" yaml:"num_workers" toml:"num_workers"`
}

// VRAMTiers is ordered from smallest to largest; the last tier is unbounded.
var VRAMTiers = []VRAMTier{
	{Name: "low", BelowMiB: 8 * 1024, MaxCrops: 4, MaxConcurrency: 4, NumWorkers: 4},
	{Name: "mid", BelowMiB: 16 * 1024, MaxCrops: 6, MaxConcurrency: 16, NumWorkers: 16},
	{Name: "high", BelowMiB: 0, MaxCrops: MaxCropsLimit, MaxConcurrency: 100, NumWorkers: 64},
}

// TierFor picks the tier for a GPU with vramMiB of memory.
func TierFor(vramMiB int) VRAMTier {
	for _, t := range VRAMTiers {
		if t.BelowMiB == 0 || vramMiB < t.BelowMiB {
			return t
		}
	}
	return VRAMTiers[len(VRAMTiers)-1]
}

// ForVRAM caps the record's tiling and parallelism to what vramMiB can hold.
func (r RunnerConfig) ForVRAM(vramMiB int) RunnerConfig {
	t := TierFor(vramMiB)
	r.MaxCrops = t.MaxCrops
	if r.MinCrops > r.MaxCrops {
		r.MinCrops = r.MaxCrops
	}
	r.MaxConcurrency = t.MaxConcurrency
	r.NumWorkers = t.NumWorkers
	return r
}

// SPDX-License-Identifier: MIT

// Package config loads the framework's compile-time-ish configuration
// (the options table in §6) from YAML with environment-variable
// overrides, the same LoadConfig/applyEnvOverrides/Validate shape the
// original application config used for PortAudio device settings.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"audiofw/internal/spectrum/window"
	"audiofw/pkg/bitint"
)

// Config holds every compile-time-ish option the framework recognizes.
type Config struct {
	LogLevel string `yaml:"log_level"` // debug/info/warn/error/fatal, case-insensitive.

	BlockSamples          int `yaml:"block_samples"`          // int16 samples per block.
	SampleRate            int `yaml:"sample_rate"`            // nominal sample rate in Hz.
	PoolCapacity          int `yaml:"pool_capacity"`          // descriptor and buffer pool capacity.
	StripMaxNodes         int `yaml:"strip_max_nodes"`        // maximum nodes per channel strip.
	MixerMaxChannels      int `yaml:"mixer_max_channels"`     // maximum channels per mixer.
	SplitterMaxOuts       int `yaml:"splitter_max_outs"`      // maximum fan-out per splitter.
	MaxSpectrumInstances  int `yaml:"max_spectrum_instances"` // analyzer static instance cap.
	WorkerStackSize       int `yaml:"worker_stack_size"`      // advisory; goroutines grow their own stacks.
	WorkerPriorityDefault int `yaml:"worker_priority_default"`

	Spectrum SpectrumConfig `yaml:"spectrum"` // default spectrum analyzer settings.
	Capture  CaptureConfig  `yaml:"capture"`  // hardware capture settings (external collaborator).
}

// SpectrumConfig holds the default construction parameters for analyzer
// instances built by an integrator from this configuration.
type SpectrumConfig struct {
	FFTSize          int     `yaml:"fft_size"`
	HopSize          int     `yaml:"hop_size"`
	Window           string  `yaml:"window"` // "rectangular" | "hann" | "hamming" | "blackman" | "flattop"
	ComputePhase     bool    `yaml:"compute_phase"`
	MagnitudeFloorDB float64 `yaml:"magnitude_floor_db"`
}

// CaptureConfig holds settings for the portaudio-backed external capture
// collaborator — never THE CORE, but still fail-fast at startup like
// everything else here.
type CaptureConfig struct {
	DeviceIndex     int  `yaml:"device_index"` // -1 for the platform default.
	LowLatency      bool `yaml:"low_latency"`
	InputChannels   int  `yaml:"input_channels"`
	FramesPerBuffer int  `yaml:"frames_per_buffer"`
}

func windowKind(name string) (window.Kind, bool) {
	switch name {
	case "rectangular":
		return window.Rectangular, true
	case "hann":
		return window.Hann, true
	case "hamming":
		return window.Hamming, true
	case "blackman":
		return window.Blackman, true
	case "flattop":
		return window.FlatTop, true
	default:
		return window.Rectangular, false
	}
}

func defaults() Config {
	return Config{
		LogLevel:              "info",
		BlockSamples:          128,
		SampleRate:            48000,
		PoolCapacity:          32,
		StripMaxNodes:         16,
		MixerMaxChannels:      8,
		SplitterMaxOuts:       4,
		MaxSpectrumInstances:  4,
		WorkerStackSize:       4096,
		WorkerPriorityDefault: 5,
		Spectrum: SpectrumConfig{
			FFTSize:          256,
			HopSize:          0,
			Window:           "hann",
			ComputePhase:     false,
			MagnitudeFloorDB: -120.0,
		},
		Capture: CaptureConfig{
			DeviceIndex:     -1,
			LowLatency:      false,
			InputChannels:   1,
			FramesPerBuffer: 128,
		},
	}
}

// LoadConfig loads configuration from a YAML file at path. If path is
// empty, it searches default locations ("config.yaml", then
// "audiofw.yaml") in the working directory; if none is
// found, built-in defaults are used. Environment variable overrides are
// applied after the file (or defaults), and the result is validated
// before being returned.
func LoadConfig(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		candidates := []string{"config.yaml", "audiofw.yaml"}
		found := false
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				found = true
				break
			}
		}
		if !found {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return &cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate fails fast on any configuration that would leave a
// downstream constructor unable to proceed: non-power-of-two FFT size,
// non-positive capacities, an unrecognized window name, or non-positive
// capture channel or frames-per-buffer counts.
func (c *Config) Validate() error {
	if c.BlockSamples <= 0 {
		return fmt.Errorf("block_samples must be positive, got %d", c.BlockSamples)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.PoolCapacity <= 0 {
		return fmt.Errorf("pool_capacity must be positive, got %d", c.PoolCapacity)
	}
	if c.StripMaxNodes <= 0 {
		return fmt.Errorf("strip_max_nodes must be positive, got %d", c.StripMaxNodes)
	}
	if c.MixerMaxChannels <= 0 {
		return fmt.Errorf("mixer_max_channels must be positive, got %d", c.MixerMaxChannels)
	}
	if c.SplitterMaxOuts <= 0 {
		return fmt.Errorf("splitter_max_outs must be positive, got %d", c.SplitterMaxOuts)
	}
	if c.MaxSpectrumInstances <= 0 {
		return fmt.Errorf("max_spectrum_instances must be positive, got %d", c.MaxSpectrumInstances)
	}
	if !bitint.IsPowerOfTwo(c.Spectrum.FFTSize) || c.Spectrum.FFTSize < 32 || c.Spectrum.FFTSize > 2048 {
		return fmt.Errorf("spectrum.fft_size %d must be a power of two in [32, 2048]", c.Spectrum.FFTSize)
	}
	if c.Spectrum.HopSize < 0 || c.Spectrum.HopSize > c.Spectrum.FFTSize {
		return fmt.Errorf("spectrum.hop_size %d must be in [0, fft_size]", c.Spectrum.HopSize)
	}
	if _, ok := windowKind(c.Spectrum.Window); !ok {
		return fmt.Errorf("spectrum.window %q not recognized", c.Spectrum.Window)
	}
	if c.Capture.InputChannels <= 0 {
		return fmt.Errorf("capture.input_channels must be positive, got %d", c.Capture.InputChannels)
	}
	if c.Capture.FramesPerBuffer <= 0 {
		return fmt.Errorf("capture.frames_per_buffer must be positive, got %d", c.Capture.FramesPerBuffer)
	}
	return nil
}

// WindowKind resolves the configured window name, defaulting to
// Rectangular if it somehow slipped past Validate.
func (c *Config) WindowKind() window.Kind {
	k, _ := windowKind(c.Spectrum.Window)
	return k
}

// applyEnvOverrides lets a handful of frequently-tweaked options be set
// without editing the YAML file, applied after the file so they always
// win.
func (cfg *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("AUDIOFW_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	if val, ok := os.LookupEnv("AUDIOFW_SAMPLE_RATE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.SampleRate = n
		}
	}
	if val, ok := os.LookupEnv("AUDIOFW_POOL_CAPACITY"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.PoolCapacity = n
		}
	}
	if val, ok := os.LookupEnv("AUDIOFW_SPECTRUM_FFT_SIZE"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Spectrum.FFTSize = n
		}
	}
	if val, ok := os.LookupEnv("AUDIOFW_CAPTURE_DEVICE_INDEX"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Capture.DeviceIndex = n
		}
	}
	if val, ok := os.LookupEnv("AUDIOFW_CAPTURE_LOW_LATENCY"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Capture.LowLatency = b
		}
	}
}

package moodsense

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full tuning surface of the pipeline. Every field has a
// working default; Validate rejects values outside the documented ranges
// before any resource is acquired.
type Config struct {
	// SampleRate is the capture rate in Hz. Valid: 8000–48000.
	SampleRate int `yaml:"sample_rate"`

	// FrameSize is the number of samples per capture frame. Must divide the
	// analysis window evenly. Default 320 (20ms at 16kHz).
	FrameSize int `yaml:"frame_size"`

	// WindowSeconds is the analysis window duration fed to the classifier.
	// Valid: 0.5–10. The window is non-overlapping: the assembler resets
	// after each emission.
	WindowSeconds float64 `yaml:"window_seconds"`

	// OpenThreshold is the normalized RMS level at which the gate starts
	// counting toward Voiced. Valid: (0,1), must be >= CloseThreshold.
	OpenThreshold float64 `yaml:"open_threshold"`

	// CloseThreshold is the (lower) RMS level below which the gate counts
	// toward Silent. Valid: (0,1].
	CloseThreshold float64 `yaml:"close_threshold"`

	// AttackFrames is how many consecutive frames must exceed OpenThreshold
	// before the gate opens. Valid: >= 1.
	AttackFrames int `yaml:"attack_frames"`

	// ReleaseFrames is how many consecutive frames must fall below
	// CloseThreshold before the gate closes. Valid: >= 1.
	ReleaseFrames int `yaml:"release_frames"`

	// MaxGapFrames is how many consecutive Silent frames an in-progress
	// window tolerates before the partial accumulator is discarded.
	// Valid: >= 0.
	MaxGapFrames int `yaml:"max_gap_frames"`

	// NoiseClamp zeroes normalized samples with absolute value below this
	// fraction of peak during tensor preparation. Valid: [0,1).
	NoiseClamp float64 `yaml:"noise_clamp"`

	// HistoryLength is the smoother's ring buffer size K. Valid: 1–32.
	HistoryLength int `yaml:"history_length"`

	// MinSwitchMargin is the minimum lead of the smoothed argmax over the
	// runner-up before the dominant label may change. Valid: [0,1).
	MinSwitchMargin float64 `yaml:"min_switch_margin"`

	// ConfidenceStep is the minimum confidence movement (absent a label
	// change) that triggers a republish. Valid: [0,1).
	ConfidenceStep float64 `yaml:"confidence_step"`

	// BacklogFrames bounds the capture-to-processing queue. When inference
	// lags, the oldest queued frame is dropped and counted as an overrun.
	// Valid: >= 1.
	BacklogFrames int `yaml:"backlog_frames"`

	// DegradeRatio is the sustained dropped/captured frame ratio above which
	// the pipeline reports degraded mode. Valid: (0,1].
	DegradeRatio float64 `yaml:"degrade_ratio"`

	// ListenAddr is the state server's bind address.
	ListenAddr string `yaml:"listen_addr"`

	// JournalDir is where session records are written. Empty disables the
	// journal.
	JournalDir string `yaml:"journal_dir"`
}

// DefaultConfig returns the defaults matching the shipped model: 16kHz mono,
// 20ms frames, 3 second windows.
func DefaultConfig() *Config {
	return &Config{
		SampleRate:      16000,
		FrameSize:       320,
		WindowSeconds:   3,
		OpenThreshold:   0.015,
		CloseThreshold:  0.008,
		AttackFrames:    3,
		ReleaseFrames:   10,
		MaxGapFrames:    5,
		NoiseClamp:      0.2,
		HistoryLength:   4,
		MinSwitchMargin: 0.10,
		ConfidenceStep:  0.05,
		BacklogFrames:   16,
		DegradeRatio:    0.25,
		ListenAddr:      ":8089",
		JournalDir:      "journal",
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged. The result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field against its documented range. The first
// violation is returned wrapped in ErrInvalidConfiguration.
func (c *Config) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
	}
	if c.SampleRate < 8000 || c.SampleRate > 48000 {
		return fail("sample_rate %d outside 8000-48000", c.SampleRate)
	}
	if c.FrameSize <= 0 {
		return fail("frame_size must be positive, got %d", c.FrameSize)
	}
	if c.WindowSeconds < 0.5 || c.WindowSeconds > 10 {
		return fail("window_seconds %v outside 0.5-10", c.WindowSeconds)
	}
	if c.WindowSamples()%c.FrameSize != 0 {
		return fail("frame_size %d does not divide window of %d samples", c.FrameSize, c.WindowSamples())
	}
	if c.OpenThreshold <= 0 || c.OpenThreshold >= 1 {
		return fail("open_threshold %v outside (0,1)", c.OpenThreshold)
	}
	if c.CloseThreshold <= 0 || c.CloseThreshold > c.OpenThreshold {
		return fail("close_threshold %v must be in (0, open_threshold]", c.CloseThreshold)
	}
	if c.AttackFrames < 1 {
		return fail("attack_frames must be >= 1, got %d", c.AttackFrames)
	}
	if c.ReleaseFrames < 1 {
		return fail("release_frames must be >= 1, got %d", c.ReleaseFrames)
	}
	if c.MaxGapFrames < 0 {
		return fail("max_gap_frames must be >= 0, got %d", c.MaxGapFrames)
	}
	if c.NoiseClamp < 0 || c.NoiseClamp >= 1 {
		return fail("noise_clamp %v outside [0,1)", c.NoiseClamp)
	}
	if c.HistoryLength < 1 || c.HistoryLength > 32 {
		return fail("history_length %d outside 1-32", c.HistoryLength)
	}
	if c.MinSwitchMargin < 0 || c.MinSwitchMargin >= 1 {
		return fail("min_switch_margin %v outside [0,1)", c.MinSwitchMargin)
	}
	if c.ConfidenceStep < 0 || c.ConfidenceStep >= 1 {
		return fail("confidence_step %v outside [0,1)", c.ConfidenceStep)
	}
	if c.BacklogFrames < 1 {
		return fail("backlog_frames must be >= 1, got %d", c.BacklogFrames)
	}
	if c.DegradeRatio <= 0 || c.DegradeRatio > 1 {
		return fail("degrade_ratio %v outside (0,1]", c.DegradeRatio)
	}
	return nil
}

// WindowSamples is the number of samples in one analysis window.
func (c *Config) WindowSamples() int {
	return int(float64(c.SampleRate) * c.WindowSeconds)
}

// FramesPerWindow is the number of full frames in one analysis window.
func (c *Config) FramesPerWindow() int {
	return c.WindowSamples() / c.FrameSize
}

// FramePeriod is the wall-clock duration of one frame.
func (c *Config) FramePeriod() time.Duration {
	return time.Duration(float64(c.FrameSize) / float64(c.SampleRate) * float64(time.Second))
}

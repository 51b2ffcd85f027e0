// Package config provides the configuration for the voicelock CLI.
//
// The configuration file is read from os.UserConfigDir()/voicelock/:
//
//	~/Library/Application Support/voicelock/config.yaml   (macOS)
//	~/.config/voicelock/config.yaml                       (Linux)
//	%AppData%/voicelock/config.yaml                       (Windows)
//
// VOICELOCK_CONFIG_DIR replaces the directory. VOICELOCK_* variables override
// individual fields after the file is applied.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	// appDir is the directory name under os.UserConfigDir().
	appDir = "voicelock"

	// configFile is the file name inside the config directory.
	configFile = "config.yaml"
)

// Defaults.
const (
	DefaultLogLevel     = "info"
	DefaultListenAddr   = "127.0.0.1:8710"
	DefaultSampleRate   = 16000
	DefaultEnrollTarget = 3
	DefaultThreshold    = 0.75
	DefaultInputWidth   = 128
	DefaultDimension    = 64
	DefaultDebounce     = "50ms"
)

// Model kinds.
const (
	ModelIdentity   = "identity"
	ModelProjection = "projection"
	ModelONNX       = "onnx"
)

// Journal backends.
const (
	JournalMemory = "memory"
	JournalBadger = "badger"
)

// Archive backends.
const (
	ArchiveNone  = "none"
	ArchiveLocal = "local"
	ArchiveS3    = "s3"
)

// Config is the effective voicelock configuration.
type Config struct {
	// Path is the file the configuration was read from, empty when no file
	// was found.
	Path string `yaml:"-" json:"-"`

	LogLevel     string  `yaml:"log_level" json:"log_level"`
	ListenAddr   string  `yaml:"listen_addr" json:"listen_addr"`
	SampleRate   int     `yaml:"sample_rate" json:"sample_rate"`
	EnrollTarget int     `yaml:"enroll_target" json:"enroll_target"`
	Threshold    float64 `yaml:"threshold" json:"threshold"`

	Model   ModelConfig   `yaml:"model" json:"model"`
	Journal JournalConfig `yaml:"journal" json:"journal"`
	Archive ArchiveConfig `yaml:"archive" json:"archive"`
	Relay   RelayConfig   `yaml:"relay" json:"relay"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// ModelConfig selects the embedding model.
type ModelConfig struct {
	// Kind is identity, projection or onnx. Default: projection.
	Kind string `yaml:"kind" json:"kind"`

	// Path is the ONNX model file.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	InputWidth int    `yaml:"input_width" json:"input_width"`
	Dimension  int    `yaml:"dimension" json:"dimension"`
	Seed       uint64 `yaml:"seed" json:"seed"`
}

// JournalConfig selects where attempts are recorded.
type JournalConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	Dir     string `yaml:"dir,omitempty" json:"dir,omitempty"`
}

// ArchiveConfig selects where raw captures are kept.
type ArchiveConfig struct {
	Backend  string `yaml:"backend" json:"backend"`
	Dir      string `yaml:"dir,omitempty" json:"dir,omitempty"`
	Bucket   string `yaml:"bucket,omitempty" json:"bucket,omitempty"`
	Prefix   string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Region   string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
}

// RelayConfig configures actuator command forwarding. An empty URL logs
// commands instead of sending them.
type RelayConfig struct {
	URL      string `yaml:"url,omitempty" json:"url,omitempty"`
	Debounce string `yaml:"debounce" json:"debounce"`
}

// DebounceDuration parses Debounce. Validate guarantees it succeeds.
func (r RelayConfig) DebounceDuration() time.Duration {
	d, _ := time.ParseDuration(r.Debounce)
	return d
}

// MetricsConfig toggles the metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel:     DefaultLogLevel,
		ListenAddr:   DefaultListenAddr,
		SampleRate:   DefaultSampleRate,
		EnrollTarget: DefaultEnrollTarget,
		Threshold:    DefaultThreshold,
		Model: ModelConfig{
			Kind:       ModelProjection,
			InputWidth: DefaultInputWidth,
			Dimension:  DefaultDimension,
			Seed:       1,
		},
		Journal: JournalConfig{Backend: JournalMemory},
		Archive: ArchiveConfig{Backend: ArchiveNone},
		Relay:   RelayConfig{Debounce: DefaultDebounce},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Validate checks the configuration for contradictions.
func (c Config) Validate() error {
	var errs []error
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate))
	}
	if c.EnrollTarget <= 0 {
		errs = append(errs, fmt.Errorf("enroll_target must be positive, got %d", c.EnrollTarget))
	}
	if c.Threshold < -1 || c.Threshold > 1 {
		errs = append(errs, fmt.Errorf("threshold %v outside [-1, 1]", c.Threshold))
	}

	switch c.Model.Kind {
	case ModelIdentity:
	case ModelProjection:
		if c.Model.InputWidth <= 0 || c.Model.Dimension <= 0 {
			errs = append(errs, errors.New("model: projection needs positive input_width and dimension"))
		}
	case ModelONNX:
		if c.Model.Path == "" {
			errs = append(errs, errors.New("model: onnx needs path"))
		}
	default:
		errs = append(errs, fmt.Errorf("model: unknown kind %q", c.Model.Kind))
	}

	switch c.Journal.Backend {
	case JournalMemory:
	case JournalBadger:
		if c.Journal.Dir == "" {
			errs = append(errs, errors.New("journal: badger needs dir"))
		}
	default:
		errs = append(errs, fmt.Errorf("journal: unknown backend %q", c.Journal.Backend))
	}

	switch c.Archive.Backend {
	case ArchiveNone, "":
	case ArchiveLocal:
		if c.Archive.Dir == "" {
			errs = append(errs, errors.New("archive: local needs dir"))
		}
	case ArchiveS3:
		if c.Archive.Bucket == "" {
			errs = append(errs, errors.New("archive: s3 needs bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("archive: unknown backend %q", c.Archive.Backend))
	}

	if d, err := time.ParseDuration(c.Relay.Debounce); err != nil {
		errs = append(errs, fmt.Errorf("relay: debounce: %w", err))
	} else if d < 0 {
		errs = append(errs, fmt.Errorf("relay: negative debounce %v", d))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ParseLevel maps a log level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log_level %q", s)
	}
}

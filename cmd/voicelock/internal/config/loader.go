package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// Loader reads the config file and applies environment overrides. Tests can
// replace Lookup and ReadFile to inject deterministic inputs.
type Loader struct {
	Lookup   func(string) (string, bool)
	ReadFile func(string) ([]byte, error)
}

// Load builds the configuration. An empty path means the default location,
// where a missing file is not an error.
func (l Loader) Load(path string) (Config, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}
	if l.ReadFile == nil {
		l.ReadFile = os.ReadFile
	}

	cfg := Default()

	optional := path == ""
	if optional {
		dir, err := l.Dir()
		if err != nil {
			return Config{}, err
		}
		path = filepath.Join(dir, configFile)
	}

	data, err := l.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		cfg.Path = path
	case optional && errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if err := l.applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Dir returns the configuration directory.
func (l Loader) Dir() (string, error) {
	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if dir, ok := lookup("VOICELOCK_CONFIG_DIR"); ok && strings.TrimSpace(dir) != "" {
		return strings.TrimSpace(dir), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(base, appDir), nil
}

func (l Loader) applyEnv(cfg *Config) error {
	overrideString(l.Lookup, "VOICELOCK_LOG_LEVEL", &cfg.LogLevel)
	overrideString(l.Lookup, "VOICELOCK_LISTEN_ADDR", &cfg.ListenAddr)
	overrideString(l.Lookup, "VOICELOCK_MODEL_KIND", &cfg.Model.Kind)
	overrideString(l.Lookup, "VOICELOCK_MODEL_PATH", &cfg.Model.Path)
	overrideString(l.Lookup, "VOICELOCK_JOURNAL_BACKEND", &cfg.Journal.Backend)
	overrideString(l.Lookup, "VOICELOCK_JOURNAL_DIR", &cfg.Journal.Dir)
	overrideString(l.Lookup, "VOICELOCK_ARCHIVE_BACKEND", &cfg.Archive.Backend)
	overrideString(l.Lookup, "VOICELOCK_ARCHIVE_DIR", &cfg.Archive.Dir)
	overrideString(l.Lookup, "VOICELOCK_ARCHIVE_BUCKET", &cfg.Archive.Bucket)
	overrideString(l.Lookup, "VOICELOCK_ARCHIVE_ENDPOINT", &cfg.Archive.Endpoint)
	overrideString(l.Lookup, "VOICELOCK_RELAY_URL", &cfg.Relay.URL)
	overrideString(l.Lookup, "VOICELOCK_RELAY_DEBOUNCE", &cfg.Relay.Debounce)
	if err := overrideFloat(l.Lookup, "VOICELOCK_THRESHOLD", &cfg.Threshold); err != nil {
		return err
	}
	if err := overrideInt(l.Lookup, "VOICELOCK_SAMPLE_RATE", &cfg.SampleRate); err != nil {
		return err
	}
	if err := overrideInt(l.Lookup, "VOICELOCK_ENROLL_TARGET", &cfg.EnrollTarget); err != nil {
		return err
	}
	return overrideBool(l.Lookup, "VOICELOCK_METRICS_ENABLED", &cfg.Metrics.Enabled)
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideFloat(lookup func(string) (string, bool), key string, target *float64) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

func overrideInt(lookup func(string) (string, bool), key string, target *int) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

func overrideBool(lookup func(string) (string, bool), key string, target *bool) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}

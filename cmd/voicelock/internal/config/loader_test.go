package config

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoaderDefaults(t *testing.T) {
	loader := Loader{
		Lookup: envLookup(map[string]string{"VOICELOCK_CONFIG_DIR": t.TempDir()}),
	}
	cfg, err := loader.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != "" {
		t.Errorf("Path = %q, want empty", cfg.Path)
	}
	if cfg.Threshold != DefaultThreshold {
		t.Errorf("Threshold = %v, want %v", cfg.Threshold, DefaultThreshold)
	}
	if cfg.EnrollTarget != DefaultEnrollTarget {
		t.Errorf("EnrollTarget = %d, want %d", cfg.EnrollTarget, DefaultEnrollTarget)
	}
	if cfg.Model.Kind != ModelProjection {
		t.Errorf("Model.Kind = %q, want %q", cfg.Model.Kind, ModelProjection)
	}
	if cfg.Relay.DebounceDuration() != 50*time.Millisecond {
		t.Errorf("Debounce = %v, want 50ms", cfg.Relay.DebounceDuration())
	}
}

func TestLoaderFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, configFile)
	data := `
threshold: 0.8
enroll_target: 5
model:
  kind: projection
  dimension: 32
journal:
  backend: badger
  dir: /var/lib/voicelock
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Loader{Lookup: envLookup(map[string]string{"VOICELOCK_CONFIG_DIR": dir})}.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q, want %q", cfg.Path, path)
	}
	if cfg.Threshold != 0.8 {
		t.Errorf("Threshold = %v, want 0.8", cfg.Threshold)
	}
	if cfg.EnrollTarget != 5 {
		t.Errorf("EnrollTarget = %d, want 5", cfg.EnrollTarget)
	}
	if cfg.Model.Kind != ModelProjection || cfg.Model.Dimension != 32 {
		t.Errorf("Model = %+v", cfg.Model)
	}
	// Unset fields keep defaults.
	if cfg.Model.InputWidth != DefaultInputWidth {
		t.Errorf("Model.InputWidth = %d, want default %d", cfg.Model.InputWidth, DefaultInputWidth)
	}
	if cfg.SampleRate != DefaultSampleRate {
		t.Errorf("SampleRate = %d, want default %d", cfg.SampleRate, DefaultSampleRate)
	}
}

func TestLoaderEnvOverride(t *testing.T) {
	files := map[string]string{"/etc/voicelock.yaml": "threshold: 0.3\nlisten_addr: 0.0.0.0:1\n"}
	loader := Loader{
		Lookup: envLookup(map[string]string{
			"VOICELOCK_THRESHOLD":       "0.9",
			"VOICELOCK_LOG_LEVEL":       "debug",
			"VOICELOCK_ARCHIVE_BACKEND": "local",
			"VOICELOCK_ARCHIVE_DIR":     "/tmp/clips",
			"VOICELOCK_METRICS_ENABLED": "false",
		}),
		ReadFile: func(name string) ([]byte, error) {
			if s, ok := files[name]; ok {
				return []byte(s), nil
			}
			return nil, fs.ErrNotExist
		},
	}
	cfg, err := loader.Load("/etc/voicelock.yaml")
	if err != nil {
		t.Fatal(err)
	}
	// Env var overrides the file.
	if cfg.Threshold != 0.9 {
		t.Errorf("Threshold = %v, want 0.9", cfg.Threshold)
	}
	if cfg.ListenAddr != "0.0.0.0:1" {
		t.Errorf("ListenAddr = %q, want file value", cfg.ListenAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Archive.Backend != ArchiveLocal || cfg.Archive.Dir != "/tmp/clips" {
		t.Errorf("Archive = %+v", cfg.Archive)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want false")
	}
}

func TestLoaderExplicitPathMissing(t *testing.T) {
	loader := Loader{Lookup: envLookup(nil)}
	if _, err := loader.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoaderInvalidEnv(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"VOICELOCK_THRESHOLD", "high"},
		{"VOICELOCK_SAMPLE_RATE", "16k"},
		{"VOICELOCK_METRICS_ENABLED", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			loader := Loader{Lookup: envLookup(map[string]string{
				"VOICELOCK_CONFIG_DIR": t.TempDir(),
				tt.key:                 tt.value,
			})}
			_, err := loader.Load("")
			if err == nil || !strings.Contains(err.Error(), tt.key) {
				t.Fatalf("err = %v, want mention of %s", err, tt.key)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"threshold", func(c *Config) { c.Threshold = 1.5 }, "threshold"},
		{"target", func(c *Config) { c.EnrollTarget = 0 }, "enroll_target"},
		{"rate", func(c *Config) { c.SampleRate = -1 }, "sample_rate"},
		{"level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"model kind", func(c *Config) { c.Model.Kind = "magic" }, "unknown kind"},
		{"onnx path", func(c *Config) { c.Model.Kind = ModelONNX }, "onnx needs path"},
		{"badger dir", func(c *Config) { c.Journal.Backend = JournalBadger }, "badger needs dir"},
		{"s3 bucket", func(c *Config) { c.Archive.Backend = ArchiveS3 }, "s3 needs bucket"},
		{"debounce", func(c *Config) { c.Relay.Debounce = "soon" }, "debounce"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

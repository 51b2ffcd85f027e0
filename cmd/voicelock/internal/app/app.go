// Package app assembles the voicelock components described by a
// config.Config: the embedding generator, journal, archive and metrics.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/haivivi/voicelock/cmd/voicelock/internal/config"
	"github.com/haivivi/voicelock/pkg/archive"
	"github.com/haivivi/voicelock/pkg/journal"
	"github.com/haivivi/voicelock/pkg/voicelock"
	"github.com/haivivi/voicelock/pkg/voiceprint"
)

// App owns the shared, long-lived components. Sessions created through
// NewManager or NewSession share them.
type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Generator *voiceprint.Generator
	Journal   journal.Store
	Archive   archive.Store

	// Metrics and Registry are nil when metrics are disabled.
	Metrics  *voicelock.Metrics
	Registry *prometheus.Registry

	meterProvider *sdkmetric.MeterProvider
}

// New builds an App. On error everything opened so far is closed.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			a.Close(context.WithoutCancel(ctx))
		}
	}()

	if a.Generator, err = newGenerator(cfg.Model, logger); err != nil {
		return nil, err
	}
	if a.Journal, err = newJournal(cfg.Journal, logger); err != nil {
		return nil, err
	}
	if a.Archive, err = newArchive(ctx, cfg.Archive); err != nil {
		return nil, err
	}
	if cfg.Metrics.Enabled {
		if err = a.initMetrics(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func newGenerator(cfg config.ModelConfig, logger *slog.Logger) (*voiceprint.Generator, error) {
	logger = logger.With("component", "voiceprint")
	var model voiceprint.Model
	switch cfg.Kind {
	case config.ModelProjection:
		model = voiceprint.NewProjectionModel(cfg.InputWidth, cfg.Dimension, cfg.Seed)
	case config.ModelONNX:
		m, err := voiceprint.NewONNXModel(voiceprint.ONNXConfig{
			Path:       cfg.Path,
			InputWidth: cfg.InputWidth,
			Dimension:  cfg.Dimension,
		})
		switch {
		case errors.Is(err, voiceprint.ErrModelUnavailable):
			logger.Warn("onnx model unavailable", "path", cfg.Path, "error", err)
		case err != nil:
			return nil, err
		default:
			model = m
		}
	}
	return voiceprint.NewGenerator(model,
		voiceprint.WithInputWidth(cfg.InputWidth),
		voiceprint.WithLogger(logger),
	), nil
}

func newJournal(cfg config.JournalConfig, logger *slog.Logger) (journal.Store, error) {
	switch cfg.Backend {
	case config.JournalBadger:
		j, err := journal.NewBadger(journal.BadgerOptions{
			Dir:    cfg.Dir,
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		return j, nil
	default:
		return journal.NewMemory(), nil
	}
}

func newArchive(ctx context.Context, cfg config.ArchiveConfig) (archive.Store, error) {
	switch cfg.Backend {
	case config.ArchiveLocal:
		d, err := archive.NewDir(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		return d, nil
	case config.ArchiveS3:
		s, err := archive.DialS3(ctx, archive.S3Options{
			Bucket:   cfg.Bucket,
			Prefix:   cfg.Prefix,
			Region:   cfg.Region,
			Endpoint: cfg.Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("open archive: %w", err)
		}
		return s, nil
	default:
		return nil, nil
	}
}

// initMetrics wires the voicelock instruments to a Prometheus registry
// through the OpenTelemetry exporter bridge.
func (a *App) initMetrics() error {
	reg := prometheus.NewRegistry()
	exp, err := promexporter.New(promexporter.WithRegisterer(reg))
	if err != nil {
		return fmt.Errorf("prometheus exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	m, err := voicelock.NewMetrics(mp)
	if err != nil {
		_ = mp.Shutdown(context.Background())
		return fmt.Errorf("metrics: %w", err)
	}
	a.Registry = reg
	a.Metrics = m
	a.meterProvider = mp
	return nil
}

// SessionConfig returns the session settings from the configuration.
func (a *App) SessionConfig() voicelock.Config {
	return voicelock.Config{
		SampleRate:   a.Config.SampleRate,
		EnrollTarget: a.Config.EnrollTarget,
		Threshold:    float32(a.Config.Threshold),
	}
}

// SessionOptions returns the options that attach the shared components.
func (a *App) SessionOptions() []voicelock.Option {
	opts := []voicelock.Option{
		voicelock.WithThreshold(float32(a.Config.Threshold)),
		voicelock.WithGenerator(a.Generator),
		voicelock.WithLogger(a.Logger.With("component", "voicelock")),
	}
	if a.Journal != nil {
		opts = append(opts, voicelock.WithJournal(a.Journal))
	}
	if a.Archive != nil {
		opts = append(opts, voicelock.WithArchive(a.Archive))
	}
	if a.Metrics != nil {
		opts = append(opts, voicelock.WithMetrics(a.Metrics))
	}
	return opts
}

// NewManager returns a Manager whose sessions share this App.
func (a *App) NewManager() *voicelock.Manager {
	return voicelock.NewManager(a.SessionConfig(), a.SessionOptions()...)
}

// NewSession creates a single session sharing this App.
func (a *App) NewSession(opts ...voicelock.Option) (*voicelock.Session, error) {
	return voicelock.New(a.SessionConfig(), append(a.SessionOptions(), opts...)...)
}

// Close releases the model, the journal and the meter provider.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Generator != nil {
		errs = append(errs, a.Generator.Close())
	}
	if a.Journal != nil {
		errs = append(errs, a.Journal.Close())
	}
	if a.meterProvider != nil {
		errs = append(errs, a.meterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

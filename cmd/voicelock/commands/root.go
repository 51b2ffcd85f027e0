package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/haivivi/voicelock/cmd/voicelock/internal/config"
	"github.com/haivivi/voicelock/pkg/cli"
)

var (
	// Global flags
	verbose      bool
	configPath   string
	formatOutput string
	outputFile   string

	// Global configuration (loaded at init time)
	globalConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "voicelock",
	Short: "Speaker-verification gate for a remote actuator",
	Long: `voicelock - enroll a voice, then unlock an actuator by speaking.

A session collects a fixed number of enrollment captures, then compares
each further capture against them. A match above the threshold unlocks the
session; reset locks it again and forgets the voice.

Configuration is read from the OS config directory:
  macOS:   ~/Library/Application Support/voicelock/config.yaml
  Linux:   ~/.config/voicelock/config.yaml
  Windows: %AppData%/voicelock/config.yaml

VOICELOCK_* environment variables override file values.

Examples:
  # Inspect the features of a recording
  voicelock features hello.wav

  # Enroll three recordings and verify a fourth
  voicelock run --enroll a.wav --enroll b.wav --enroll c.wav --verify d.wav

  # Serve the HTTP API
  voicelock serve --listen 127.0.0.1:8710`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: OS config dir)")
	rootCmd.PersistentFlags().StringVar(&formatOutput, "format", "table", "output format: table, yaml, json")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "write output to file")
}

// configLoadErr stores the error from config loading for deferred reporting.
var configLoadErr error

func initConfig() {
	globalConfig, configLoadErr = nil, nil
	cfg, err := config.Loader{}.Load(configPath)
	if err != nil {
		// Commands that need config get a clear error via GetConfig().
		// This keeps 'voicelock version' working with a broken file.
		configLoadErr = err
		return
	}
	globalConfig = &cfg
}

// GetConfig returns the global configuration.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Loader{}.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = &cfg
	}
	return globalConfig, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// newLogger builds the stderr logger. --verbose forces debug level.
func newLogger(cfg *config.Config) *slog.Logger {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// output writes result with the global --format and --output flags.
func output(result any) error {
	format, err := cli.ParseFormat(formatOutput)
	if err != nil {
		return err
	}
	if err := cli.Output(result, cli.OutputOptions{
		Format: format,
		File:   outputFile,
	}); err != nil {
		return err
	}
	if outputFile != "" {
		cli.PrintSuccess("Result written to %s", outputFile)
	}
	return nil
}

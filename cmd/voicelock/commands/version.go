package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/voicelock/cmd/voicelock/internal/build"
	"github.com/haivivi/voicelock/pkg/voiceprint"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if formatOutput == "json" || formatOutput == "yaml" {
			return output(build.Get())
		}
		fmt.Println(build.String())
		if IsVerbose() {
			info := build.Get()
			fmt.Printf("  go:     %s\n", info.Go)
			fmt.Printf("  onnx:   %t\n", voiceprint.ONNXAvailable())
			if cfg, err := GetConfig(); err == nil {
				path := cfg.Path
				if path == "" {
					path = "(defaults)"
				}
				fmt.Printf("  config: %s\n", path)
			} else {
				fmt.Printf("  config: (unavailable: %v)\n", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

package commands

import (
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after the config file and VOICELOCK_*
environment overrides have been applied.

Examples:
  voicelock config
  voicelock config --format json
  VOICELOCK_THRESHOLD=0.8 voicelock config`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		return output(cfg)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

// Package main is the entry point for the voicelock CLI.
//
// Usage:
//
//	voicelock [flags] <command> [args]
//
// Commands:
//
//	features   - Print the MFCC feature vector of a WAV file
//	run        - Enroll and verify WAV files in one volatile session
//	serve      - Serve the session HTTP API
//	config     - Print the effective configuration
//	version    - Show version information
package main

import (
	"os"

	"github.com/haivivi/voicelock/cmd/voicelock/commands"
	"github.com/haivivi/voicelock/pkg/cli"
)

func main() {
	if err := commands.Execute(); err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
}

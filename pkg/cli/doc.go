// Package cli provides output helpers shared by the voicelock commands.
//
// Results are written as YAML, JSON, a styled table or raw bytes:
//
//	cli.Output(result, cli.OutputOptions{
//	    Format: cli.FormatJSON,
//	    File:   outputPath,
//	})
//
// Values implementing [Tabular] render as aligned columns in table format.
// Everything else falls back to YAML.
package cli

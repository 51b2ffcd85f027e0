package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/haivivi/voicelock/pkg/audio/capture"
	"github.com/haivivi/voicelock/pkg/audio/mfcc"
)

var (
	featuresRate   int
	featuresFrames bool
)

var featuresCmd = &cobra.Command{
	Use:   "features <file>",
	Short: "Print the MFCC feature vector of a recording",
	Long: `Decode a recording, resample it to the pipeline rate and print the
13 mean cepstral coefficients the embedding is computed from.

WAV files are decoded from their header. Files ending in .pcm or .raw are
read as 16-bit little-endian mono at --rate.

Examples:
  voicelock features hello.wav
  voicelock features hello.wav --format json
  voicelock features hello.wav --frames`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		sig, err := readCapture(args[0], featuresRate)
		if err != nil {
			return err
		}
		if sig.SampleRate != cfg.SampleRate {
			if sig, err = capture.Resample(sig, cfg.SampleRate); err != nil {
				return err
			}
		}

		ext, err := mfcc.New(mfcc.DefaultConfig(cfg.SampleRate))
		if err != nil {
			return err
		}
		res := featuresResult{
			File:       args[0],
			SampleRate: sig.SampleRate,
			Duration:   sig.Duration().String(),
		}
		if res.Coefficients, err = ext.Extract(sig.Samples); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		frames, err := ext.Frames(sig.Samples)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		res.NumFrames = len(frames)
		if featuresFrames {
			res.Frames = frames
		}
		return output(res)
	},
}

func init() {
	featuresCmd.Flags().IntVar(&featuresRate, "rate", 16000, "sample rate of raw PCM input")
	featuresCmd.Flags().BoolVar(&featuresFrames, "frames", false, "include per-frame coefficients")
	rootCmd.AddCommand(featuresCmd)
}

// readCapture loads a WAV file, or raw PCM16 for .pcm and .raw files.
func readCapture(path string, rawRate int) (capture.Signal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return capture.Signal{}, err
	}
	contentType := "audio/wav"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pcm", ".raw":
		contentType = "audio/L16; rate=" + strconv.Itoa(rawRate)
	}
	sig, err := capture.Decode(data, contentType)
	if err != nil {
		return capture.Signal{}, fmt.Errorf("%s: %w", path, err)
	}
	return sig, nil
}

type featuresResult struct {
	File         string      `json:"file" yaml:"file"`
	SampleRate   int         `json:"sample_rate" yaml:"sample_rate"`
	Duration     string      `json:"duration" yaml:"duration"`
	NumFrames    int         `json:"num_frames" yaml:"num_frames"`
	Coefficients []float32   `json:"coefficients" yaml:"coefficients"`
	Frames       [][]float32 `json:"frames,omitempty" yaml:"frames,omitempty"`
}

func (featuresResult) Header() []string { return []string{"COEF", "VALUE"} }

func (r featuresResult) Rows() [][]string {
	rows := make([][]string, len(r.Coefficients))
	for i, c := range r.Coefficients {
		rows[i] = []string{"c" + strconv.Itoa(i), strconv.FormatFloat(float64(c), 'f', 4, 32)}
	}
	return rows
}

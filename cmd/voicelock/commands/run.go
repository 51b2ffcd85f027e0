package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/haivivi/voicelock/cmd/voicelock/internal/app"
	"github.com/haivivi/voicelock/pkg/cli"
	"github.com/haivivi/voicelock/pkg/voicelock"
)

var (
	runEnroll []string
	runVerify []string
	runRate   int
)

var runSessionCmd = &cobra.Command{
	Use:   "run --enroll <file>... --verify <file>...",
	Short: "Enroll and verify recordings in one session",
	Long: `Create a volatile session, submit every --enroll recording and then
every --verify recording, and print each outcome with the final lock state.

Captures are submitted exactly as the capture button would: once the
profile is complete, further captures are verifications.

Examples:
  voicelock run --enroll a.wav --enroll b.wav --enroll c.wav --verify d.wav
  voicelock run --enroll a.wav,b.wav,c.wav --verify d.wav --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(runEnroll) == 0 {
			return fmt.Errorf("flag --enroll is required")
		}
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a, err := app.New(ctx, *cfg, newLogger(cfg))
		if err != nil {
			return err
		}
		defer a.Close(context.WithoutCancel(ctx))

		sess, err := a.NewSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		res := runResult{Session: sess.ID()}
		files := append(append([]string(nil), runEnroll...), runVerify...)
		for _, f := range files {
			sig, err := readCapture(f, runRate)
			if err != nil {
				return err
			}
			out := sess.Submit(ctx, sig)
			res.Steps = append(res.Steps, newRunStep(f, out))
			printVerboseOutcome(f, out)
		}
		st := sess.Status()
		res.State = st.String()
		res.Locked = st.Locked()
		return output(res)
	},
}

func init() {
	runSessionCmd.Flags().StringSliceVar(&runEnroll, "enroll", nil, "enrollment recording (repeatable)")
	runSessionCmd.Flags().StringSliceVar(&runVerify, "verify", nil, "verification recording (repeatable)")
	runSessionCmd.Flags().IntVar(&runRate, "rate", 16000, "sample rate of raw PCM input")
	rootCmd.AddCommand(runSessionCmd)
}

// printVerboseOutcome logs one outcome to stderr in verbose mode.
func printVerboseOutcome(file string, out voicelock.Outcome) {
	cli.PrintVerbose(IsVerbose(), "%s: %s %s -> %s", file, out.Action, out.Verdict, out.State)
}

type runStep struct {
	File     string    `json:"file" yaml:"file"`
	Action   string    `json:"action" yaml:"action"`
	Verdict  string    `json:"verdict" yaml:"verdict"`
	State    string    `json:"state" yaml:"state"`
	Score    *float32  `json:"score,omitempty" yaml:"score,omitempty"`
	Scores   []float32 `json:"scores,omitempty" yaml:"scores,omitempty"`
	Label    string    `json:"label,omitempty" yaml:"label,omitempty"`
	Error    string    `json:"error,omitempty" yaml:"error,omitempty"`
	Duration string    `json:"duration" yaml:"duration"`
}

func newRunStep(file string, out voicelock.Outcome) runStep {
	s := runStep{
		File:     file,
		Action:   out.Action.String(),
		Verdict:  out.Verdict.String(),
		State:    out.State.String(),
		Label:    out.Label,
		Duration: out.Duration.String(),
	}
	if out.Match != nil {
		s.Score = &out.Match.Score
		s.Scores = out.Match.Scores
	}
	if out.Err != nil {
		s.Error = out.Err.Error()
	}
	return s
}

type runResult struct {
	Session string    `json:"session" yaml:"session"`
	Steps   []runStep `json:"steps" yaml:"steps"`
	State   string    `json:"state" yaml:"state"`
	Locked  bool      `json:"locked" yaml:"locked"`
}

func (runResult) Header() []string {
	return []string{"FILE", "ACTION", "VERDICT", "SCORE", "STATE", "LABEL"}
}

func (r runResult) Rows() [][]string {
	st := cli.DefaultStyles
	rows := make([][]string, 0, len(r.Steps)+1)
	for _, s := range r.Steps {
		score := "-"
		if s.Score != nil {
			score = strconv.FormatFloat(float64(*s.Score), 'f', 3, 32)
		}
		verdict := st.Verdict(s.Verdict)
		if s.Error != "" {
			verdict += " " + st.Help.Render("("+s.Error+")")
		}
		rows = append(rows, []string{s.File, s.Action, verdict, score, s.State, s.Label})
	}
	final := "locked"
	if !r.Locked {
		final = "unlocked"
	}
	rows = append(rows, []string{"", "", st.Verdict(final), "", r.State, ""})
	return rows
}

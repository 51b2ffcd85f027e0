package commands

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/haivivi/voicelock/pkg/audio/capture"
)

// setupTestEnv points the config loader at an empty temporary directory.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("VOICELOCK_CONFIG_DIR", dir)
	t.Setenv("VOICELOCK_LOG_LEVEL", "error")
	return dir
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	oldStdout := os.Stdout
	oldStderr := os.Stderr

	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	verbose = false
	configPath = ""
	formatOutput = "table"
	outputFile = ""
	featuresRate = 16000
	featuresFrames = false
	runEnroll, runVerify = nil, nil

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	wOut.Close()
	wErr.Close()
	os.Stdout = oldStdout
	os.Stderr = oldStderr

	var outBuf, errBuf bytes.Buffer
	outBuf.ReadFrom(rOut)
	errBuf.ReadFrom(rErr)

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		stderr += "Error: " + err.Error() + "\n"
	}
	return
}

func writeTone(t *testing.T, dir, name string, freq float64) string {
	t.Helper()
	sig := capture.Signal{Samples: make([]float64, 8000), SampleRate: 16000}
	for i := range sig.Samples {
		sig.Samples[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/16000)
	}
	data, err := capture.EncodeWAV(sig)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersion(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := runCmd(t, "version")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "voicelock") {
		t.Fatalf("expected 'voicelock', got: %s", stdout)
	}
}

func TestVersionJSON(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := runCmd(t, "version", "--format", "json")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, `"version"`) {
		t.Fatalf("expected JSON, got: %s", stdout)
	}
}

func TestOutputFile(t *testing.T) {
	dir := setupTestEnv(t)
	path := filepath.Join(dir, "version.json")

	stdout, stderr, code := runCmd(t, "version", "--format", "json", "-o", path)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Result written to "+path) {
		t.Fatalf("stdout = %q", stdout)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"version"`) {
		t.Fatalf("file = %s", data)
	}
}

func TestConfigEnvOverride(t *testing.T) {
	setupTestEnv(t)
	t.Setenv("VOICELOCK_THRESHOLD", "0.8")

	stdout, stderr, code := runCmd(t, "config", "--format", "json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	var cfg map[string]any
	if err := json.Unmarshal([]byte(stdout), &cfg); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if cfg["threshold"] != 0.8 {
		t.Fatalf("threshold = %v, want 0.8", cfg["threshold"])
	}
}

func TestConfigFile(t *testing.T) {
	dir := setupTestEnv(t)
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("enroll_target: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, code := runCmd(t, "config", "--config", path)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "enroll_target: 4") {
		t.Fatalf("expected enroll_target from file, got:\n%s", stdout)
	}
}

func TestConfigInvalid(t *testing.T) {
	setupTestEnv(t)
	t.Setenv("VOICELOCK_THRESHOLD", "2")

	_, stderr, code := runCmd(t, "config")
	if code == 0 {
		t.Fatal("expected failure for threshold 2")
	}
	if !strings.Contains(stderr, "threshold") {
		t.Fatalf("stderr = %s", stderr)
	}

	// version still works with a broken config.
	if _, _, code := runCmd(t, "version"); code != 0 {
		t.Fatalf("version exit %d", code)
	}
}

func TestFeatures(t *testing.T) {
	dir := setupTestEnv(t)
	wav := writeTone(t, dir, "tone.wav", 440)

	stdout, stderr, code := runCmd(t, "features", wav, "--format", "json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	var res featuresResult
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if len(res.Coefficients) != 13 {
		t.Fatalf("got %d coefficients, want 13", len(res.Coefficients))
	}
	if res.NumFrames != 48 {
		t.Errorf("NumFrames = %d, want 48", res.NumFrames)
	}
	if res.Frames != nil {
		t.Error("frames included without --frames")
	}

	stdout, _, code = runCmd(t, "features", wav)
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "c12") {
		t.Fatalf("table output missing c12:\n%s", stdout)
	}
}

func TestFeaturesErrors(t *testing.T) {
	dir := setupTestEnv(t)

	if _, _, code := runCmd(t, "features", filepath.Join(dir, "missing.wav")); code == 0 {
		t.Fatal("expected failure for missing file")
	}

	short := filepath.Join(dir, "short.pcm")
	if err := os.WriteFile(short, make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}
	_, stderr, code := runCmd(t, "features", short)
	if code == 0 {
		t.Fatal("expected failure for short capture")
	}
	if !strings.Contains(stderr, "shorter than one frame") {
		t.Fatalf("stderr = %s", stderr)
	}
}

func TestRun(t *testing.T) {
	dir := setupTestEnv(t)
	a := writeTone(t, dir, "a.wav", 440)

	stdout, stderr, code := runCmd(t, "run",
		"--enroll", a, "--enroll", a, "--enroll", a,
		"--verify", a,
		"--format", "json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	var res runResult
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, stdout)
	}
	if len(res.Steps) != 4 {
		t.Fatalf("got %d steps, want 4", len(res.Steps))
	}
	for i := 0; i < 3; i++ {
		if res.Steps[i].Verdict != "enrolled" {
			t.Errorf("step %d verdict = %q, want enrolled", i, res.Steps[i].Verdict)
		}
	}
	last := res.Steps[3]
	if last.Verdict != "accepted" || last.Score == nil || *last.Score <= 0.75 {
		t.Fatalf("verify step = %+v", last)
	}
	if res.Locked || res.State != "unlocked" {
		t.Fatalf("final state = %q locked=%v", res.State, res.Locked)
	}
}

func TestRunRequiresEnroll(t *testing.T) {
	setupTestEnv(t)

	_, stderr, code := runCmd(t, "run")
	if code == 0 {
		t.Fatal("expected failure without --enroll")
	}
	if !strings.Contains(stderr, "--enroll") {
		t.Fatalf("stderr = %s", stderr)
	}
}

func TestUnknownFormat(t *testing.T) {
	setupTestEnv(t)

	if _, _, code := runCmd(t, "config", "--format", "xml"); code == 0 {
		t.Fatal("expected failure for --format xml")
	}
}

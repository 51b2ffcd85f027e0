//go:build onnx

package voiceprint

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// resolveORTLibPath returns the path to the ONNX Runtime shared library.
// Search order:
//  1. VOICELOCK_ORT_LIB_PATH environment variable
//  2. lib/<goos>-<goarch>/ relative to the executable
//  3. ../lib/<goos>-<goarch>/ relative to the executable
//  4. the same two paths relative to CWD, only if VOICELOCK_DEV_MODE=1
func resolveORTLibPath() (string, error) {
	if envPath := os.Getenv("VOICELOCK_ORT_LIB_PATH"); envPath != "" {
		info, err := os.Stat(envPath)
		if err != nil {
			return "", fmt.Errorf("ort: VOICELOCK_ORT_LIB_PATH=%q does not exist", envPath)
		}
		if info.IsDir() {
			return "", fmt.Errorf("ort: VOICELOCK_ORT_LIB_PATH=%q is a directory, expected a file", envPath)
		}
		return envPath, nil
	}

	filename := ortLibFilename()
	rels := []string{
		filepath.Join("lib", runtime.GOOS+"-"+runtime.GOARCH, filename),
		filepath.Join("..", "lib", runtime.GOOS+"-"+runtime.GOARCH, filename),
	}

	var dirs []string
	if exePath, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exePath))
	}
	if os.Getenv("VOICELOCK_DEV_MODE") == "1" {
		if wd, err := os.Getwd(); err == nil {
			dirs = append(dirs, wd)
		}
	}
	for _, dir := range dirs {
		for _, rel := range rels {
			path := filepath.Join(dir, rel)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", fmt.Errorf("ort: shared library not found; searched lib/<os>-<arch>/%s relative to executable (set VOICELOCK_ORT_LIB_PATH to override, or VOICELOCK_DEV_MODE=1 to enable CWD lookup)", filename)
}

func ortLibFilename() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}

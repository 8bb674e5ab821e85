package mirror

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ErrBinaryNotFound is returned when a required executable is neither in the
// local bin directory nor on PATH.
var ErrBinaryNotFound = errors.New("binary not found")

var (
	execLookPath = exec.LookPath
	statFile     = os.Stat
)

// FindBinary resolves name, preferring binDir over PATH. An explicit path
// (anything containing a separator) is returned as-is if it exists.
func FindBinary(name, binDir string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrBinaryNotFound)
	}

	if filepath.Base(name) != name {
		if _, err := statFile(name); err == nil {
			return name, nil
		}
		return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, name)
	}

	if binDir != "" {
		for _, candidate := range localCandidates(name, binDir) {
			if info, err := statFile(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}

	if path, err := execLookPath(name); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("%w: %s (looked in %q and PATH)", ErrBinaryNotFound, name, binDir)
}

func localCandidates(name, binDir string) []string {
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		return []string{filepath.Join(binDir, name+".exe"), filepath.Join(binDir, name)}
	}
	return []string{filepath.Join(binDir, name)}
}

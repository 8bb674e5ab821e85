package runtimepath

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "mirrordock"

// Dir returns the runtime directory used for the IPC socket. Priority:
// 1) XDG_RUNTIME_DIR (if set)
// 2) /run/user/<uid> (if present)
// 3) <tmp>/mirrordock-runtime-<uid> (created)
func Dir() (string, error) {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return runtimeDir, nil
	}

	uid := os.Getuid()
	if runtime.GOOS != "windows" {
		runUserDir := fmt.Sprintf("/run/user/%d", uid)
		if info, err := os.Stat(runUserDir); err == nil && info.IsDir() {
			return runUserDir, nil
		}
	}

	// Getuid is -1 on Windows; the temp dir is already per-user there.
	name := appName + "-runtime"
	if uid >= 0 {
		name = fmt.Sprintf("%s-%d", name, uid)
	}
	tmpDir := filepath.Join(os.TempDir(), name)
	if err := os.MkdirAll(tmpDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime dir: %w", err)
	}
	return tmpDir, nil
}

// SocketPath returns the IPC socket path of the running instance.
func SocketPath() (string, error) {
	runtimeDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(runtimeDir, appName+".sock"), nil
}

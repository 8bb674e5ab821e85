package mirror

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// ErrNoDevice is returned when adb lists no authorized device.
var ErrNoDevice = errors.New("no authorized adb device connected")

const (
	adbServerTimeout  = 10 * time.Second
	adbCleanupTimeout = 3 * time.Second
)

// commandOutput runs a command and returns its combined output.
type commandOutput func(ctx context.Context, name string, args ...string) ([]byte, error)

func execCombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// ADB wraps the adb executable.
type ADB struct {
	bin    string
	run    commandOutput
	logger *slog.Logger
}

// NewADB returns an adb wrapper for the executable at bin.
func NewADB(bin string, logger *slog.Logger) *ADB {
	return &ADB{bin: bin, run: execCombinedOutput, logger: logger}
}

// DetectDevice starts the adb server and returns the serial of the first
// authorized device. Unauthorized and offline devices are skipped.
func (a *ADB) DetectDevice(ctx context.Context) (string, error) {
	startCtx, cancel := context.WithTimeout(ctx, adbServerTimeout)
	if out, err := a.run(startCtx, a.bin, "start-server"); err != nil {
		// A running server is enough for "devices" to work.
		a.logger.Warn("adb start-server failed", "error", err, "output", strings.TrimSpace(string(out)))
	}
	cancel()

	listCtx, cancel := context.WithTimeout(ctx, adbServerTimeout)
	defer cancel()
	out, err := a.run(listCtx, a.bin, "devices")
	if err != nil {
		return "", fmt.Errorf("adb devices: %w", err)
	}

	devices := parseDevices(string(out))
	if len(devices) == 0 {
		return "", ErrNoDevice
	}
	if len(devices) > 1 {
		a.logger.Info("multiple devices found, using first", "count", len(devices), "serial", devices[0])
	}
	return devices[0], nil
}

// parseDevices extracts the serials in state "device" from `adb devices`
// output.
func parseDevices(out string) []string {
	var serials []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[1] != "device" {
			continue
		}
		serials = append(serials, fields[0])
	}
	return serials
}

// Cleanup kills leftover mirroring server processes on the device and drops
// port forwards. Failures are logged; the device may already be gone.
func (a *ADB) Cleanup(ctx context.Context, serial string) {
	if serial == "" {
		return
	}
	steps := [][]string{
		{"shell", "pkill", "-f", "scrcpy-server"},
		{"shell", "pkill", "-f", "app_process"},
		{"forward", "--remove-all"},
		{"reverse", "--remove-all"},
	}
	for _, step := range steps {
		stepCtx, cancel := context.WithTimeout(ctx, adbCleanupTimeout)
		args := append([]string{"-s", serial}, step...)
		if _, err := a.run(stepCtx, a.bin, args...); err != nil {
			a.logger.Debug("adb cleanup step failed", "step", strings.Join(step, " "), "error", err)
		}
		cancel()
	}
	a.logger.Info("device-side cleanup complete", "serial", serial)
}

package session

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

const screenshotTimeFormat = "20060102-150405.000"

// Screenshot captures the docked container, saves it as a PNG under the
// screenshot directory and copies the file path to the clipboard. It fails
// with dock.ErrNotDocked while the surfaces are undocked.
func (s *Session) Screenshot() (string, error) {
	img, err := s.dock.Capture()
	if err != nil {
		s.logger.Warn("screenshot skipped", "error", err)
		return "", err
	}
	if s.screenshotDir == "" {
		return "", fmt.Errorf("no screenshot directory configured")
	}
	if err := os.MkdirAll(s.screenshotDir, 0o755); err != nil {
		return "", fmt.Errorf("create screenshot dir: %w", err)
	}

	name := "mirrordock-" + time.Now().Format(screenshotTimeFormat) + ".png"
	path := filepath.Join(s.screenshotDir, name)

	tmp, err := os.CreateTemp(s.screenshotDir, ".screenshot-*.png")
	if err != nil {
		return "", fmt.Errorf("create screenshot: %w", err)
	}
	tmpName := tmp.Name()
	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("encode screenshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("save screenshot: %w", err)
	}

	b := img.Bounds()
	s.logger.Info("screenshot saved", "path", path, "width", b.Dx(), "height", b.Dy())
	if err := s.clipboard(path); err != nil {
		s.logger.Warn("copy screenshot path to clipboard failed", "error", err)
	}
	return path, nil
}

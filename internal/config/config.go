package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "mirrordock"

// Scale and position bounds accepted from config and presets.
const (
	MinScale    = 0.3
	MaxScale    = 1.0
	MinPosition = -500
	MaxPosition = 1500
)

// Layout is the placement of both surfaces relative to the container's
// client area. The zero value means "use the default layout".
type Layout struct {
	PrimaryX   int `yaml:"primary_x"`
	PrimaryY   int `yaml:"primary_y"`
	SecondaryX int `yaml:"secondary_x"`
	SecondaryY int `yaml:"secondary_y"`
}

// IsZero reports whether no layout was configured.
func (l Layout) IsZero() bool {
	return l == Layout{}
}

type Surface struct {
	Title     string `yaml:"title"`
	DisplayID int    `yaml:"display_id"`
}

type Surfaces struct {
	Primary   Surface `yaml:"primary"`
	Secondary Surface `yaml:"secondary"`
}

// Container configures the window hosting both surfaces while docked.
type Container struct {
	Title string `yaml:"title"`
	X     int    `yaml:"x"`
	Y     int    `yaml:"y"`
}

// Dock tunes the docking engine.
type Dock struct {
	// PollIntervalMs is how often the docking monitor looks for new windows.
	PollIntervalMs int `yaml:"poll_interval_ms"`
	// SyncIntervalMs is the minimum gap between two position syncs.
	SyncIntervalMs int  `yaml:"sync_interval_ms"`
	SkipUnchanged  bool `yaml:"skip_unchanged"`
	FocusOnToggle  bool `yaml:"focus_on_toggle"`
}

// Mirror configures the scrcpy/adb processes.
type Mirror struct {
	// BinDir is searched before PATH (default: <config dir>/bin).
	BinDir       string `yaml:"bin_dir,omitempty"`
	Scrcpy       string `yaml:"scrcpy,omitempty"`
	ADB          string `yaml:"adb,omitempty"`
	MaxFPS       int    `yaml:"max_fps"`
	RenderDriver string `yaml:"render_driver"`
	Audio        bool   `yaml:"audio"`
	Retries      int    `yaml:"retries"`
	// LogDir receives per-process output (default: next to the log file).
	LogDir string `yaml:"log_dir,omitempty"`
}

type Hotkeys struct {
	Toggle string `yaml:"toggle"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	// File is the log file path (default: ~/.local/share/mirrordock/mirrordock.log)
	File string `yaml:"file,omitempty"`
	// MaxSizeMB is the maximum log file size before rotation (default: 10)
	MaxSizeMB int `yaml:"max_size_mb,omitempty"`
	// MaxFiles is the number of rotated files to keep (default: 3)
	MaxFiles int `yaml:"max_files,omitempty"`
}

// Config is the effective configuration.
type Config struct {
	Scale         float64       `yaml:"scale"`
	Layout        Layout        `yaml:"layout"`
	Surfaces      Surfaces      `yaml:"surfaces"`
	Container     Container     `yaml:"container"`
	Dock          Dock          `yaml:"dock"`
	Mirror        Mirror        `yaml:"mirror"`
	Hotkeys       Hotkeys       `yaml:"hotkeys"`
	LogLevel      string        `yaml:"log_level"`
	Logging       LoggingConfig `yaml:"logging,omitempty"`
	PresetsFile   string        `yaml:"presets_file,omitempty"`
	ScreenshotDir string        `yaml:"screenshot_dir,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Scale: 0.6,
		Surfaces: Surfaces{
			Primary:   Surface{Title: "ThorCPY Top Screen", DisplayID: 0},
			Secondary: Surface{Title: "ThorCPY Bottom Screen", DisplayID: 4},
		},
		Container: Container{
			Title: "ThorCPY Dual-Screen",
			X:     100,
			Y:     100,
		},
		Dock: Dock{
			PollIntervalMs: 500,
			SyncIntervalMs: 16,
			SkipUnchanged:  false,
			FocusOnToggle:  true,
		},
		Mirror: Mirror{
			MaxFPS:       120,
			RenderDriver: "opengl",
			Audio:        true,
			Retries:      2,
		},
		Hotkeys: Hotkeys{
			Toggle: "Mod4-Mod1-d",
		},
		LogLevel: "info",
	}
}

// DockPollInterval returns the docking monitor period.
func (c *Config) DockPollInterval() time.Duration {
	return time.Duration(c.Dock.PollIntervalMs) * time.Millisecond
}

// DockSyncInterval returns the sync throttle interval.
func (c *Config) DockSyncInterval() time.Duration {
	return time.Duration(c.Dock.SyncIntervalMs) * time.Millisecond
}

// GetLoggingConfig returns the logging configuration with defaults applied.
func (c *Config) GetLoggingConfig() LoggingConfig {
	if c == nil {
		return LoggingConfig{}
	}
	cfg := c.Logging
	if cfg.File == "" {
		cfg.File = filepath.Join(dataDir(), appName+".log")
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxFiles == 0 {
		cfg.MaxFiles = 3
	}
	return cfg
}

// ResolvedPresetsFile returns the presets file path, defaulting to
// presets.yaml next to the config file.
func (c *Config) ResolvedPresetsFile() string {
	if c.PresetsFile != "" {
		return expandHome(c.PresetsFile)
	}
	return filepath.Join(configDir(), "presets.yaml")
}

// ResolvedBinDir returns the directory searched for scrcpy and adb before PATH.
func (c *Config) ResolvedBinDir() string {
	if c.Mirror.BinDir != "" {
		return expandHome(c.Mirror.BinDir)
	}
	return filepath.Join(configDir(), "bin")
}

// ResolvedMirrorLogDir returns where per-process output is written.
func (c *Config) ResolvedMirrorLogDir() string {
	if c.Mirror.LogDir != "" {
		return expandHome(c.Mirror.LogDir)
	}
	return filepath.Dir(c.GetLoggingConfig().File)
}

// ResolvedScreenshotDir returns where container screenshots are saved.
func (c *Config) ResolvedScreenshotDir() string {
	if c.ScreenshotDir != "" {
		return expandHome(c.ScreenshotDir)
	}
	return filepath.Join(dataDir(), "screenshots")
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Scale < MinScale || c.Scale > MaxScale {
		return &ValidationError{Path: "scale", Err: fmt.Errorf("scale must be between %.1f and %.1f", MinScale, MaxScale)}
	}
	if err := ValidateLayout(c.Layout); err != nil {
		return err
	}
	if strings.TrimSpace(c.Surfaces.Primary.Title) == "" {
		return &ValidationError{Path: "surfaces.primary.title", Err: fmt.Errorf("title is required")}
	}
	if strings.TrimSpace(c.Surfaces.Secondary.Title) == "" {
		return &ValidationError{Path: "surfaces.secondary.title", Err: fmt.Errorf("title is required")}
	}
	if c.Surfaces.Primary.Title == c.Surfaces.Secondary.Title {
		return &ValidationError{Path: "surfaces.secondary.title", Err: fmt.Errorf("surface titles must differ")}
	}
	if c.Surfaces.Primary.DisplayID < 0 {
		return &ValidationError{Path: "surfaces.primary.display_id", Err: fmt.Errorf("display_id must be >= 0")}
	}
	if c.Surfaces.Secondary.DisplayID < 0 {
		return &ValidationError{Path: "surfaces.secondary.display_id", Err: fmt.Errorf("display_id must be >= 0")}
	}
	if strings.TrimSpace(c.Container.Title) == "" {
		return &ValidationError{Path: "container.title", Err: fmt.Errorf("title is required")}
	}
	if c.Dock.PollIntervalMs <= 0 {
		return &ValidationError{Path: "dock.poll_interval_ms", Err: fmt.Errorf("poll_interval_ms must be > 0")}
	}
	if c.Dock.SyncIntervalMs < 0 {
		return &ValidationError{Path: "dock.sync_interval_ms", Err: fmt.Errorf("sync_interval_ms must be >= 0")}
	}
	if c.Mirror.MaxFPS <= 0 {
		return &ValidationError{Path: "mirror.max_fps", Err: fmt.Errorf("max_fps must be > 0")}
	}
	switch c.Mirror.RenderDriver {
	case "direct3d", "opengl", "opengles2", "opengles", "metal", "software":
	default:
		return &ValidationError{Path: "mirror.render_driver", Err: fmt.Errorf("render_driver must be one of: direct3d, opengl, opengles2, opengles, metal, software")}
	}
	if c.Mirror.Retries < 1 {
		return &ValidationError{Path: "mirror.retries", Err: fmt.Errorf("retries must be >= 1")}
	}
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warning" && c.LogLevel != "error" {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.Logging.MaxSizeMB < 0 {
		return &ValidationError{Path: "logging.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 0")}
	}
	if c.Logging.MaxFiles < 0 {
		return &ValidationError{Path: "logging.max_files", Err: fmt.Errorf("max_files must be >= 0")}
	}

	if warnings := c.validationWarnings(); len(warnings) > 0 {
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, "warning:", w)
		}
	}

	return nil
}

// ValidateLayout checks that every coordinate is within the accepted range.
func ValidateLayout(l Layout) error {
	fields := []struct {
		path  string
		value int
	}{
		{"layout.primary_x", l.PrimaryX},
		{"layout.primary_y", l.PrimaryY},
		{"layout.secondary_x", l.SecondaryX},
		{"layout.secondary_y", l.SecondaryY},
	}
	for _, f := range fields {
		if f.value < MinPosition || f.value > MaxPosition {
			return &ValidationError{Path: f.path, Err: fmt.Errorf("must be between %d and %d", MinPosition, MaxPosition)}
		}
	}
	return nil
}

func (c *Config) validationWarnings() []string {
	var warnings []string
	if c.Dock.SyncIntervalMs > 100 {
		warnings = append(warnings, fmt.Sprintf("dock.sync_interval_ms=%d will make window drags visibly lag", c.Dock.SyncIntervalMs))
	}
	if c.Hotkeys.Toggle == "" {
		warnings = append(warnings, "hotkeys.toggle is empty; the global toggle hotkey is disabled")
	}
	return warnings
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.Getenv("HOME")
	}
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".config", appName)
}

func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.Getenv("HOME")
	}
	if home == "" {
		// Last resort fallback - use current directory
		home = "."
	}
	return filepath.Join(home, ".local", "share", appName)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

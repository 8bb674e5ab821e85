package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// BuildEffectiveConfig applies raw on top of DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.Scale != nil {
		cfg.Scale = *raw.Scale
	}
	if raw.Layout != nil {
		cfg.Layout.PrimaryX = derefInt(raw.Layout.PrimaryX, cfg.Layout.PrimaryX)
		cfg.Layout.PrimaryY = derefInt(raw.Layout.PrimaryY, cfg.Layout.PrimaryY)
		cfg.Layout.SecondaryX = derefInt(raw.Layout.SecondaryX, cfg.Layout.SecondaryX)
		cfg.Layout.SecondaryY = derefInt(raw.Layout.SecondaryY, cfg.Layout.SecondaryY)
	}
	if raw.Surfaces != nil {
		applySurface(&cfg.Surfaces.Primary, raw.Surfaces.Primary)
		applySurface(&cfg.Surfaces.Secondary, raw.Surfaces.Secondary)
	}
	if raw.Container != nil {
		if raw.Container.Title != nil {
			cfg.Container.Title = *raw.Container.Title
		}
		cfg.Container.X = derefInt(raw.Container.X, cfg.Container.X)
		cfg.Container.Y = derefInt(raw.Container.Y, cfg.Container.Y)
	}
	if raw.Dock != nil {
		cfg.Dock.PollIntervalMs = derefInt(raw.Dock.PollIntervalMs, cfg.Dock.PollIntervalMs)
		cfg.Dock.SyncIntervalMs = derefInt(raw.Dock.SyncIntervalMs, cfg.Dock.SyncIntervalMs)
		cfg.Dock.SkipUnchanged = derefBool(raw.Dock.SkipUnchanged, cfg.Dock.SkipUnchanged)
		cfg.Dock.FocusOnToggle = derefBool(raw.Dock.FocusOnToggle, cfg.Dock.FocusOnToggle)
	}
	if raw.Mirror != nil {
		m := raw.Mirror
		cfg.Mirror.BinDir = derefString(m.BinDir, cfg.Mirror.BinDir)
		cfg.Mirror.Scrcpy = derefString(m.Scrcpy, cfg.Mirror.Scrcpy)
		cfg.Mirror.ADB = derefString(m.ADB, cfg.Mirror.ADB)
		cfg.Mirror.MaxFPS = derefInt(m.MaxFPS, cfg.Mirror.MaxFPS)
		if m.RenderDriver != nil {
			cfg.Mirror.RenderDriver = strings.ToLower(strings.TrimSpace(*m.RenderDriver))
		}
		cfg.Mirror.Audio = derefBool(m.Audio, cfg.Mirror.Audio)
		cfg.Mirror.Retries = derefInt(m.Retries, cfg.Mirror.Retries)
		cfg.Mirror.LogDir = derefString(m.LogDir, cfg.Mirror.LogDir)
	}
	if raw.Hotkeys != nil && raw.Hotkeys.Toggle != nil {
		cfg.Hotkeys.Toggle = *raw.Hotkeys.Toggle
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*raw.LogLevel))
	}
	if raw.Logging != nil {
		cfg.Logging.File = derefString(raw.Logging.File, cfg.Logging.File)
		cfg.Logging.MaxSizeMB = derefInt(raw.Logging.MaxSizeMB, cfg.Logging.MaxSizeMB)
		cfg.Logging.MaxFiles = derefInt(raw.Logging.MaxFiles, cfg.Logging.MaxFiles)
	}
	if raw.PresetsFile != nil {
		cfg.PresetsFile = *raw.PresetsFile
	}
	cfg.ScreenshotDir = derefString(raw.ScreenshotDir, cfg.ScreenshotDir)

	return cfg, nil
}

func applySurface(dst *Surface, raw *RawSurface) {
	if raw == nil {
		return
	}
	if raw.Title != nil {
		dst.Title = *raw.Title
	}
	dst.DisplayID = derefInt(raw.DisplayID, dst.DisplayID)
}

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func derefBool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func derefString(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

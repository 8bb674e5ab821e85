package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawLayout struct {
	PrimaryX   *int `yaml:"primary_x"`
	PrimaryY   *int `yaml:"primary_y"`
	SecondaryX *int `yaml:"secondary_x"`
	SecondaryY *int `yaml:"secondary_y"`
}

type RawSurface struct {
	Title     *string `yaml:"title"`
	DisplayID *int    `yaml:"display_id"`
}

type RawSurfaces struct {
	Primary   *RawSurface `yaml:"primary"`
	Secondary *RawSurface `yaml:"secondary"`
}

type RawContainer struct {
	Title *string `yaml:"title"`
	X     *int    `yaml:"x"`
	Y     *int    `yaml:"y"`
}

type RawDock struct {
	PollIntervalMs *int  `yaml:"poll_interval_ms"`
	SyncIntervalMs *int  `yaml:"sync_interval_ms"`
	SkipUnchanged  *bool `yaml:"skip_unchanged"`
	FocusOnToggle  *bool `yaml:"focus_on_toggle"`
}

type RawMirror struct {
	BinDir       *string `yaml:"bin_dir"`
	Scrcpy       *string `yaml:"scrcpy"`
	ADB          *string `yaml:"adb"`
	MaxFPS       *int    `yaml:"max_fps"`
	RenderDriver *string `yaml:"render_driver"`
	Audio        *bool   `yaml:"audio"`
	Retries      *int    `yaml:"retries"`
	LogDir       *string `yaml:"log_dir"`
}

type RawHotkeys struct {
	Toggle *string `yaml:"toggle"`
}

type RawLoggingConfig struct {
	File      *string `yaml:"file"`
	MaxSizeMB *int    `yaml:"max_size_mb"`
	MaxFiles  *int    `yaml:"max_files"`
}

type RawConfig struct {
	Include       IncludeList       `yaml:"include"`
	Scale         *float64          `yaml:"scale"`
	Layout        *RawLayout        `yaml:"layout"`
	Surfaces      *RawSurfaces      `yaml:"surfaces"`
	Container     *RawContainer     `yaml:"container"`
	Dock          *RawDock          `yaml:"dock"`
	Mirror        *RawMirror        `yaml:"mirror"`
	Hotkeys       *RawHotkeys       `yaml:"hotkeys"`
	LogLevel      *string           `yaml:"log_level"`
	Logging       *RawLoggingConfig `yaml:"logging"`
	PresetsFile   *string           `yaml:"presets_file"`
	ScreenshotDir *string           `yaml:"screenshot_dir"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.Scale != nil {
		out.Scale = overlay.Scale
	}
	if overlay.Layout != nil {
		out.Layout = mergeRawLayout(out.Layout, overlay.Layout)
	}
	if overlay.Surfaces != nil {
		if out.Surfaces == nil {
			out.Surfaces = &RawSurfaces{}
		} else {
			cp := *out.Surfaces
			out.Surfaces = &cp
		}
		out.Surfaces.Primary = mergeRawSurface(out.Surfaces.Primary, overlay.Surfaces.Primary)
		out.Surfaces.Secondary = mergeRawSurface(out.Surfaces.Secondary, overlay.Surfaces.Secondary)
	}
	if overlay.Container != nil {
		out.Container = mergeRawContainer(out.Container, overlay.Container)
	}
	if overlay.Dock != nil {
		out.Dock = mergeRawDock(out.Dock, overlay.Dock)
	}
	if overlay.Mirror != nil {
		out.Mirror = mergeRawMirror(out.Mirror, overlay.Mirror)
	}
	if overlay.Hotkeys != nil {
		merged := RawHotkeys{}
		if out.Hotkeys != nil {
			merged = *out.Hotkeys
		}
		if overlay.Hotkeys.Toggle != nil {
			merged.Toggle = overlay.Hotkeys.Toggle
		}
		out.Hotkeys = &merged
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.Logging != nil {
		merged := RawLoggingConfig{}
		if out.Logging != nil {
			merged = *out.Logging
		}
		if overlay.Logging.File != nil {
			merged.File = overlay.Logging.File
		}
		if overlay.Logging.MaxSizeMB != nil {
			merged.MaxSizeMB = overlay.Logging.MaxSizeMB
		}
		if overlay.Logging.MaxFiles != nil {
			merged.MaxFiles = overlay.Logging.MaxFiles
		}
		out.Logging = &merged
	}
	if overlay.PresetsFile != nil {
		out.PresetsFile = overlay.PresetsFile
	}
	if overlay.ScreenshotDir != nil {
		out.ScreenshotDir = overlay.ScreenshotDir
	}

	return out
}

func mergeRawLayout(base, overlay *RawLayout) *RawLayout {
	merged := RawLayout{}
	if base != nil {
		merged = *base
	}
	if overlay.PrimaryX != nil {
		merged.PrimaryX = overlay.PrimaryX
	}
	if overlay.PrimaryY != nil {
		merged.PrimaryY = overlay.PrimaryY
	}
	if overlay.SecondaryX != nil {
		merged.SecondaryX = overlay.SecondaryX
	}
	if overlay.SecondaryY != nil {
		merged.SecondaryY = overlay.SecondaryY
	}
	return &merged
}

func mergeRawSurface(base, overlay *RawSurface) *RawSurface {
	if overlay == nil {
		return base
	}
	merged := RawSurface{}
	if base != nil {
		merged = *base
	}
	if overlay.Title != nil {
		merged.Title = overlay.Title
	}
	if overlay.DisplayID != nil {
		merged.DisplayID = overlay.DisplayID
	}
	return &merged
}

func mergeRawContainer(base, overlay *RawContainer) *RawContainer {
	merged := RawContainer{}
	if base != nil {
		merged = *base
	}
	if overlay.Title != nil {
		merged.Title = overlay.Title
	}
	if overlay.X != nil {
		merged.X = overlay.X
	}
	if overlay.Y != nil {
		merged.Y = overlay.Y
	}
	return &merged
}

func mergeRawDock(base, overlay *RawDock) *RawDock {
	merged := RawDock{}
	if base != nil {
		merged = *base
	}
	if overlay.PollIntervalMs != nil {
		merged.PollIntervalMs = overlay.PollIntervalMs
	}
	if overlay.SyncIntervalMs != nil {
		merged.SyncIntervalMs = overlay.SyncIntervalMs
	}
	if overlay.SkipUnchanged != nil {
		merged.SkipUnchanged = overlay.SkipUnchanged
	}
	if overlay.FocusOnToggle != nil {
		merged.FocusOnToggle = overlay.FocusOnToggle
	}
	return &merged
}

func mergeRawMirror(base, overlay *RawMirror) *RawMirror {
	merged := RawMirror{}
	if base != nil {
		merged = *base
	}
	if overlay.BinDir != nil {
		merged.BinDir = overlay.BinDir
	}
	if overlay.Scrcpy != nil {
		merged.Scrcpy = overlay.Scrcpy
	}
	if overlay.ADB != nil {
		merged.ADB = overlay.ADB
	}
	if overlay.MaxFPS != nil {
		merged.MaxFPS = overlay.MaxFPS
	}
	if overlay.RenderDriver != nil {
		merged.RenderDriver = overlay.RenderDriver
	}
	if overlay.Audio != nil {
		merged.Audio = overlay.Audio
	}
	if overlay.Retries != nil {
		merged.Retries = overlay.Retries
	}
	if overlay.LogDir != nil {
		merged.LogDir = overlay.LogDir
	}
	return &merged
}

package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	scale
//	layout.primary_x
//	surfaces.secondary.title
//	container.x
//	dock.sync_interval_ms
//	mirror.render_driver
//	hotkeys.toggle
//	log_level
//	logging.max_files
//	presets_file
//	screenshot_dir
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	// Exact-path file source wins.
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	unknown := fmt.Errorf("unknown path: %s", path)

	leaf := func(v any) (any, error) {
		if len(parts) != 1 {
			return nil, unknown
		}
		return v, nil
	}

	switch parts[0] {
	case "scale":
		return leaf(cfg.Scale)
	case "log_level":
		return leaf(cfg.LogLevel)
	case "presets_file":
		return leaf(cfg.ResolvedPresetsFile())
	case "screenshot_dir":
		return leaf(cfg.ResolvedScreenshotDir())
	case "layout":
		if len(parts) == 1 {
			return cfg.Layout, nil
		}
		if len(parts) != 2 {
			return nil, unknown
		}
		switch parts[1] {
		case "primary_x":
			return cfg.Layout.PrimaryX, nil
		case "primary_y":
			return cfg.Layout.PrimaryY, nil
		case "secondary_x":
			return cfg.Layout.SecondaryX, nil
		case "secondary_y":
			return cfg.Layout.SecondaryY, nil
		}
	case "surfaces":
		if len(parts) == 1 {
			return cfg.Surfaces, nil
		}
		var s Surface
		switch parts[1] {
		case "primary":
			s = cfg.Surfaces.Primary
		case "secondary":
			s = cfg.Surfaces.Secondary
		default:
			return nil, unknown
		}
		if len(parts) == 2 {
			return s, nil
		}
		if len(parts) != 3 {
			return nil, unknown
		}
		switch parts[2] {
		case "title":
			return s.Title, nil
		case "display_id":
			return s.DisplayID, nil
		}
	case "container":
		if len(parts) == 1 {
			return cfg.Container, nil
		}
		if len(parts) != 2 {
			return nil, unknown
		}
		switch parts[1] {
		case "title":
			return cfg.Container.Title, nil
		case "x":
			return cfg.Container.X, nil
		case "y":
			return cfg.Container.Y, nil
		}
	case "dock":
		if len(parts) == 1 {
			return cfg.Dock, nil
		}
		if len(parts) != 2 {
			return nil, unknown
		}
		switch parts[1] {
		case "poll_interval_ms":
			return cfg.Dock.PollIntervalMs, nil
		case "sync_interval_ms":
			return cfg.Dock.SyncIntervalMs, nil
		case "skip_unchanged":
			return cfg.Dock.SkipUnchanged, nil
		case "focus_on_toggle":
			return cfg.Dock.FocusOnToggle, nil
		}
	case "mirror":
		if len(parts) == 1 {
			return cfg.Mirror, nil
		}
		if len(parts) != 2 {
			return nil, unknown
		}
		switch parts[1] {
		case "bin_dir":
			return cfg.ResolvedBinDir(), nil
		case "scrcpy":
			return cfg.Mirror.Scrcpy, nil
		case "adb":
			return cfg.Mirror.ADB, nil
		case "max_fps":
			return cfg.Mirror.MaxFPS, nil
		case "render_driver":
			return cfg.Mirror.RenderDriver, nil
		case "audio":
			return cfg.Mirror.Audio, nil
		case "retries":
			return cfg.Mirror.Retries, nil
		case "log_dir":
			return cfg.ResolvedMirrorLogDir(), nil
		}
	case "hotkeys":
		if len(parts) == 1 {
			return cfg.Hotkeys, nil
		}
		if len(parts) == 2 && parts[1] == "toggle" {
			return cfg.Hotkeys.Toggle, nil
		}
	case "logging":
		logging := cfg.GetLoggingConfig()
		if len(parts) == 1 {
			return logging, nil
		}
		if len(parts) != 2 {
			return nil, unknown
		}
		switch parts[1] {
		case "file":
			return logging.File, nil
		case "max_size_mb":
			return logging.MaxSizeMB, nil
		case "max_files":
			return logging.MaxFiles, nil
		}
	}
	return nil, unknown
}

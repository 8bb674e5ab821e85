package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if !cfg.Layout.IsZero() {
		t.Fatalf("expected default layout to be unset, got %+v", cfg.Layout)
	}
	if cfg.Container.X != 100 || cfg.Container.Y != 100 {
		t.Fatalf("expected container at 100,100, got %d,%d", cfg.Container.X, cfg.Container.Y)
	}
	if !cfg.Dock.FocusOnToggle {
		t.Fatalf("expected focus_on_toggle to default to true")
	}
	if cfg.Dock.SkipUnchanged {
		t.Fatalf("expected skip_unchanged to default to false")
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Scale != 0.6 {
		t.Fatalf("expected default scale 0.6, got %v", res.Config.Scale)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no files, got %v", res.Files)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.Mirror.RenderDriver != "opengl" {
		t.Fatalf("expected render_driver opengl, got %q", res.Config.Mirror.RenderDriver)
	}
}

func TestLoadFromPath_NestedValuesOverrideDefaults(t *testing.T) {
	data := strings.Join([]string{
		"scale: 0.8",
		"layout:",
		"  secondary_x: 120",
		"  secondary_y: 864",
		"surfaces:",
		"  secondary:",
		"    display_id: 2",
		"dock:",
		"  sync_interval_ms: 8",
		"  skip_unchanged: true",
		"mirror:",
		"  render_driver: Direct3D",
		"  audio: false",
		"log_level: DEBUG",
		"",
	}, "\n")
	path := writeConfig(t, t.TempDir(), "config.yaml", data)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.Scale != 0.8 {
		t.Fatalf("expected scale 0.8, got %v", cfg.Scale)
	}
	if cfg.Layout.SecondaryX != 120 || cfg.Layout.SecondaryY != 864 || cfg.Layout.PrimaryX != 0 {
		t.Fatalf("unexpected layout %+v", cfg.Layout)
	}
	if cfg.Surfaces.Secondary.DisplayID != 2 {
		t.Fatalf("expected secondary display 2, got %d", cfg.Surfaces.Secondary.DisplayID)
	}
	if cfg.Surfaces.Secondary.Title != "ThorCPY Bottom Screen" {
		t.Fatalf("expected default secondary title to survive, got %q", cfg.Surfaces.Secondary.Title)
	}
	if cfg.DockSyncInterval().Milliseconds() != 8 || !cfg.Dock.SkipUnchanged {
		t.Fatalf("unexpected dock config %+v", cfg.Dock)
	}
	if !cfg.Dock.FocusOnToggle {
		t.Fatalf("expected focus_on_toggle default to survive a partial dock block")
	}
	if cfg.Mirror.RenderDriver != "direct3d" || cfg.Mirror.Audio {
		t.Fatalf("unexpected mirror config %+v", cfg.Mirror)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log_level debug, got %q", cfg.LogLevel)
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "dock:\n  unknown_key: 1\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "unknown_key") && !strings.Contains(err.Error(), "field") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error to include file path, got %v", err)
	}
}

func TestLoadFromPath_ValidationErrorHasSourceContext(t *testing.T) {
	tests := []struct {
		name string
		data string
		path string
		line int
	}{
		{name: "scale too large", data: "scale: 1.5\n", path: "scale", line: 1},
		{name: "layout out of range", data: "layout:\n  primary_x: 2000\n", path: "layout.primary_x", line: 2},
		{name: "bad render driver", data: "mirror:\n  render_driver: vulkan\n", path: "mirror.render_driver", line: 2},
		{name: "zero poll interval", data: "dock:\n  poll_interval_ms: 0\n", path: "dock.poll_interval_ms", line: 2},
		{name: "same titles", data: "surfaces:\n  secondary:\n    title: ThorCPY Top Screen\n", path: "surfaces.secondary.title", line: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), "config.yaml", tt.data)

			_, err := LoadFromPath(path)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
			}
			if verr.Path != tt.path {
				t.Fatalf("expected path %q, got %q", tt.path, verr.Path)
			}
			if verr.Source.Kind != SourceFile || verr.Source.Line != tt.line {
				t.Fatalf("expected source at line %d, got %+v", tt.line, verr.Source)
			}
			if !strings.HasPrefix(err.Error(), verr.Source.File+":") {
				t.Fatalf("expected error to include file:line:col prefix, got %v", err)
			}
		})
	}
}

func TestLoadFromPath_IncludeDirectoryOrderAndMainOverrides(t *testing.T) {
	dir := t.TempDir()

	// config.d loaded first, in sorted order.
	configD := filepath.Join(dir, "config.d")
	if err := os.MkdirAll(configD, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeConfig(t, configD, "10-base.yaml", "container:\n  x: 5\n  y: 6\n")
	writeConfig(t, configD, "20-override.yaml", "container:\n  x: 7\n")

	// Main file overrides includes.
	main := strings.Join([]string{
		"include:",
		"  - config.d",
		"container:",
		"  title: Docked",
		"",
	}, "\n")
	path := writeConfig(t, dir, "config.yaml", main)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := res.Config.Container
	if got.X != 7 || got.Y != 6 || got.Title != "Docked" {
		t.Fatalf("expected merged container {Docked 7 6}, got %+v", got)
	}
	if len(res.Files) != 3 {
		t.Fatalf("expected 3 loaded files, got %v", res.Files)
	}
}

func TestLoadFromPath_IncludeMissingPathHasContext(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "include:\n  - missing.yaml\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "include") || !strings.Contains(err.Error(), "missing.yaml") {
		t.Fatalf("expected include error, got %v", err)
	}
}

func TestLoadFromPath_IncludeCycleDetection(t *testing.T) {
	dir := t.TempDir()
	a := writeConfig(t, dir, "a.yaml", "include: b.yaml\n")
	writeConfig(t, dir, "b.yaml", "include: a.yaml\n")

	_, err := LoadFromPath(a)
	if err == nil {
		t.Fatalf("expected cycle error")
	}
	if !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestLoadFromPath_SharedIncludeLoadedOnce(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "shared.yaml", "container:\n  x: 11\n")
	writeConfig(t, dir, "b.yaml", "include: shared.yaml\ncontainer:\n  y: 22\n")
	writeConfig(t, dir, "c.yaml", "include: shared.yaml\n")
	path := writeConfig(t, dir, "config.yaml", "include: [b.yaml, c.yaml]\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(res.Files) != 4 {
		t.Fatalf("expected shared.yaml loaded once (4 files), got %v", res.Files)
	}
	if got := res.Config.Container; got.X != 11 || got.Y != 22 {
		t.Fatalf("expected container x=11 y=22, got %+v", got)
	}
	if src := res.Sources["container.y"]; filepath.Base(src.File) != "b.yaml" || src.Line != 3 {
		t.Fatalf("expected container.y from b.yaml:3, got %+v", src)
	}
}

func TestExplain_ReportsFileAndDefaultSources(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", "hotkeys:\n  toggle: Control-F12\n")
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	val, src, err := Explain(res, "hotkeys.toggle")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != "Control-F12" {
		t.Fatalf("expected Control-F12, got %v", val)
	}
	if src.Kind != SourceFile || src.Line != 2 {
		t.Fatalf("expected file source at line 2, got %+v", src)
	}

	val, src, err = Explain(res, "container.y")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != 100 || src.Kind != SourceDefault {
		t.Fatalf("expected default 100, got %v from %+v", val, src)
	}

	if _, _, err := Explain(res, "container.z"); err == nil {
		t.Fatalf("expected unknown path error")
	}
}

func TestResolvedPaths_UseHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := DefaultConfig()
	if got, want := cfg.ResolvedPresetsFile(), filepath.Join(home, ".config", "mirrordock", "presets.yaml"); got != want {
		t.Fatalf("expected presets file %q, got %q", want, got)
	}
	if got, want := cfg.GetLoggingConfig().File, filepath.Join(home, ".local", "share", "mirrordock", "mirrordock.log"); got != want {
		t.Fatalf("expected log file %q, got %q", want, got)
	}
	cfg.PresetsFile = "~/layouts.yaml"
	if got, want := cfg.ResolvedPresetsFile(), filepath.Join(home, "layouts.yaml"); got != want {
		t.Fatalf("expected presets file %q, got %q", want, got)
	}
	if got, want := cfg.ResolvedScreenshotDir(), filepath.Join(home, ".local", "share", "mirrordock", "screenshots"); got != want {
		t.Fatalf("expected screenshot dir %q, got %q", want, got)
	}
	cfg.ScreenshotDir = "~/Pictures"
	if got, want := cfg.ResolvedScreenshotDir(), filepath.Join(home, "Pictures"); got != want {
		t.Fatalf("expected screenshot dir %q, got %q", want, got)
	}
}

func TestSaveTo_RoundTripsThroughLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Scale = 0.75
	cfg.Layout = Layout{SecondaryX: 10, SecondaryY: 810}

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load saved config: %v", err)
	}
	if res.Config.Scale != 0.75 || res.Config.Layout != cfg.Layout {
		t.Fatalf("expected saved values, got scale=%v layout=%+v", res.Config.Scale, res.Config.Layout)
	}
}

func TestApplyState(t *testing.T) {
	saved := State{Scale: 0.9, Layout: Layout{SecondaryX: 50, SecondaryY: 900}}

	tests := []struct {
		name       string
		data       string
		state      State
		wantScale  float64
		wantLayout Layout
	}{
		{
			name:       "fills unset values",
			data:       "",
			state:      saved,
			wantScale:  0.9,
			wantLayout: saved.Layout,
		},
		{
			name:       "config file wins",
			data:       "scale: 0.5\nlayout:\n  secondary_y: 540\n",
			state:      saved,
			wantScale:  0.5,
			wantLayout: Layout{SecondaryY: 540},
		},
		{
			name:       "out of range state ignored",
			data:       "",
			state:      State{Scale: 3, Layout: Layout{PrimaryX: 9000}},
			wantScale:  0.6,
			wantLayout: Layout{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), "config.yaml", tt.data)
			res, err := LoadFromPath(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			ApplyState(res, tt.state, "state.yaml")
			if res.Config.Scale != tt.wantScale {
				t.Fatalf("expected scale %v, got %v", tt.wantScale, res.Config.Scale)
			}
			if res.Config.Layout != tt.wantLayout {
				t.Fatalf("expected layout %+v, got %+v", tt.wantLayout, res.Config.Layout)
			}
		})
	}
}

func TestSaveStateAndLoadState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "state.yaml")

	if _, ok, err := LoadState(path); err != nil || ok {
		t.Fatalf("expected missing state to be ok=false err=nil, got ok=%v err=%v", ok, err)
	}

	want := State{Scale: 0.7, Layout: Layout{PrimaryX: 1, PrimaryY: 2, SecondaryX: 3, SecondaryY: 4}}
	if err := SaveState(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := LoadState(path)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be gone, got %v", err)
	}
}

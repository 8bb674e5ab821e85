// Package session holds the live layout of both surfaces and exposes every
// user-facing operation (toggle, presets, nudging, focus) to the control
// panel, the IPC server, and the hotkey handler.
package session

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"github.com/1broseidon/mirrordock/internal/config"
	"github.com/1broseidon/mirrordock/internal/dock"
	"github.com/1broseidon/mirrordock/internal/ipc"
	"github.com/1broseidon/mirrordock/internal/platform"
	"github.com/1broseidon/mirrordock/internal/presets"
)

// Dock is the part of the docking controller a session drives.
type Dock interface {
	Toggle()
	CurrentState() dock.State
	Status() dock.Status
	Sync(layout dock.Layout)
	ForceBypassThrottle()
	Focus(which dock.SurfaceIndex)
	Capture() (image.Image, error)
	Shutdown()
}

// Surface is a mirrored window whose requested size is known up front.
type Surface interface {
	dock.Surface
	Size() (width, height int)
}

// ScaleStep is how much one scale key press changes the next launch scale.
const ScaleStep = 0.05

// Config wires a session to the dock, both surfaces and the preset store.
type Config struct {
	Dock      Dock
	Primary   Surface
	Secondary Surface
	Presets   *presets.Store
	// Scale is the scale the surfaces were started at.
	Scale float64
	// Layout is the initial layout; the zero value selects the default.
	Layout config.Layout
	// ScreenshotDir receives PNG captures of the docked container.
	ScreenshotDir string
	// Clipboard receives the path of each saved screenshot. Defaults to the
	// system clipboard.
	Clipboard func(text string) error
	Logger    *slog.Logger
}

// Session is the live layout of both surfaces plus everything the user can
// do to it. It is safe for concurrent use.
type Session struct {
	dock          Dock
	surfaces      [2]Surface
	store         *presets.Store
	scale         float64
	screenshotDir string
	clipboard     func(string) error
	logger        *slog.Logger
	started       time.Time

	mu          sync.RWMutex
	layout      config.Layout
	nextScale   float64
	presetNames []string
}

// New creates a session. A zero cfg.Layout starts from DefaultLayout.
func New(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clip := cfg.Clipboard
	if clip == nil {
		clip = clipboard.WriteAll
	}
	s := &Session{
		dock:          cfg.Dock,
		surfaces:      [2]Surface{cfg.Primary, cfg.Secondary},
		store:         cfg.Presets,
		scale:         cfg.Scale,
		screenshotDir: cfg.ScreenshotDir,
		clipboard:     clip,
		logger:        logger,
		started:       time.Now(),
		nextScale:     cfg.Scale,
	}
	s.layout = cfg.Layout
	if s.layout.IsZero() {
		s.layout = s.DefaultLayout()
	}
	s.ReloadPresets()
	return s
}

// Scale returns the scale the surfaces are running at.
func (s *Session) Scale() float64 { return s.scale }

// DefaultLayout places the primary surface at the origin and centres the
// secondary surface below it.
func (s *Session) DefaultLayout() config.Layout {
	w1, h1 := s.surfaces[dock.Primary].Size()
	w2, h2 := s.surfaces[dock.Secondary].Size()
	d := dock.DefaultLayout(w1, h1, w2, h2)
	return config.Layout{
		PrimaryX:   d.Primary.X,
		PrimaryY:   d.Primary.Y,
		SecondaryX: d.Secondary.X,
		SecondaryY: d.Secondary.Y,
	}
}

// Layout returns the current surface offsets.
func (s *Session) Layout() config.Layout {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.layout
}

// DockLayout returns the current layout with both surfaces' sizes.
func (s *Session) DockLayout() dock.Layout {
	l := s.Layout()
	w1, h1 := s.surfaces[dock.Primary].Size()
	w2, h2 := s.surfaces[dock.Secondary].Size()
	return dock.Layout{
		Primary:   platform.Rect{X: l.PrimaryX, Y: l.PrimaryY, Width: w1, Height: h1},
		Secondary: platform.Rect{X: l.SecondaryX, Y: l.SecondaryY, Width: w2, Height: h2},
	}
}

// Frame pushes the current layout to the surfaces. Called once per frame.
func (s *Session) Frame() {
	s.dock.Sync(s.DockLayout())
}

// SetLayoutConfig replaces the layout and forces the next frame through.
func (s *Session) SetLayoutConfig(l config.Layout) error {
	if err := config.ValidateLayout(l); err != nil {
		return err
	}
	s.mu.Lock()
	s.layout = l
	s.mu.Unlock()
	s.dock.ForceBypassThrottle()
	return nil
}

// ResetLayout restores the default layout.
func (s *Session) ResetLayout() {
	l := s.DefaultLayout()
	s.mu.Lock()
	s.layout = l
	s.mu.Unlock()
	s.dock.ForceBypassThrottle()
	s.logger.Info("layout reset", "layout", l)
}

// Nudge moves one surface by (dx, dy), clamped to the accepted range.
func (s *Session) Nudge(which dock.SurfaceIndex, dx, dy int) config.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	if which == dock.Primary {
		s.layout.PrimaryX = clamp(s.layout.PrimaryX + dx)
		s.layout.PrimaryY = clamp(s.layout.PrimaryY + dy)
	} else {
		s.layout.SecondaryX = clamp(s.layout.SecondaryX + dx)
		s.layout.SecondaryY = clamp(s.layout.SecondaryY + dy)
	}
	return s.layout
}

func clamp(v int) int {
	return min(max(v, config.MinPosition), config.MaxPosition)
}

// AdjustNextScale changes the scale used on the next launch. The running
// surfaces keep their size.
func (s *Session) AdjustNextScale(delta float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := math.Round((s.nextScale+delta)*100) / 100
	s.nextScale = min(max(next, config.MinScale), config.MaxScale)
	return s.nextScale
}

// NextScale returns the scale that will be used on the next launch.
func (s *Session) NextScale() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextScale
}

// RestartRequired reports whether the next launch scale differs from the
// running one.
func (s *Session) RestartRequired() bool {
	return math.Abs(s.NextScale()-s.scale) > 0.01
}

// PersistentState returns what to remember for the next launch. The layout
// is dropped when the scale changes, since it was measured at the old scale.
func (s *Session) PersistentState() config.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := config.State{Scale: s.nextScale, Layout: s.layout}
	if math.Abs(s.nextScale-s.scale) > 0.01 {
		st.Layout = config.Layout{}
	}
	return st
}

// ApplyPresetByName applies a saved layout, rescaled to the running scale.
func (s *Session) ApplyPresetByName(name string) (config.Layout, error) {
	if s.store == nil {
		return config.Layout{}, fmt.Errorf("%w: %q", presets.ErrNotFound, name)
	}
	p, err := s.store.Get(name)
	if err != nil {
		return config.Layout{}, err
	}
	l := p.ScaledTo(s.scale).Layout()
	if err := s.SetLayoutConfig(l); err != nil {
		return config.Layout{}, fmt.Errorf("preset %q: %w", name, err)
	}
	s.logger.Info("preset applied", "name", name, "layout", l)
	return l, nil
}

// ApplyPresetIndex applies the i-th preset in sorted order (0-based).
func (s *Session) ApplyPresetIndex(i int) (string, error) {
	names := s.PresetNames()
	if i < 0 || i >= len(names) {
		return "", fmt.Errorf("%w: no preset at position %d", presets.ErrNotFound, i+1)
	}
	_, err := s.ApplyPresetByName(names[i])
	return names[i], err
}

// ReloadPresets refreshes the cached preset names from disk.
func (s *Session) ReloadPresets() {
	var names []string
	if s.store != nil {
		names = s.store.Names()
	}
	s.mu.Lock()
	s.presetNames = names
	s.mu.Unlock()
}

// FocusSurface brings one surface (or the container while docked) forward.
func (s *Session) FocusSurface(which dock.SurfaceIndex) {
	s.dock.Focus(which)
}

// State returns the dock state.
func (s *Session) State() dock.State {
	return s.dock.CurrentState()
}

// ParseSurface maps "primary"/"secondary" (or "top"/"bottom") to an index.
func ParseSurface(name string) (dock.SurfaceIndex, error) {
	switch name {
	case "primary", "top":
		return dock.Primary, nil
	case "secondary", "bottom":
		return dock.Secondary, nil
	default:
		return 0, fmt.Errorf("unknown surface %q (want primary or secondary)", name)
	}
}

// The methods below serve IPC requests.

var _ ipc.Handler = (*Session)(nil)

func (s *Session) Status() ipc.StatusData {
	st := s.dock.Status()
	return ipc.StatusData{
		State:           st.State.String(),
		PrimaryFound:    st.PrimaryFound,
		SecondaryFound:  st.SecondaryFound,
		ContainerExists: st.ContainerExists,
		Running:         st.Running,
		Scale:           s.scale,
		Layout:          toLayoutData(s.Layout()),
		UptimeSeconds:   int64(time.Since(s.started).Seconds()),
	}
}

// Toggle docks or undocks and returns the resulting state.
func (s *Session) Toggle() string {
	s.dock.Toggle()
	return s.dock.CurrentState().String()
}

func (s *Session) ApplyPreset(name string) (ipc.LayoutData, error) {
	l, err := s.ApplyPresetByName(name)
	if err != nil {
		return ipc.LayoutData{}, err
	}
	return toLayoutData(l), nil
}

func (s *Session) PresetNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.presetNames...)
}

// SavePreset stores the current layout and running scale under name.
func (s *Session) SavePreset(name string) error {
	if s.store == nil {
		return fmt.Errorf("no preset store")
	}
	if err := s.store.Save(name, presets.FromLayout(s.Layout(), s.scale)); err != nil {
		return err
	}
	s.ReloadPresets()
	return nil
}

func (s *Session) DeletePreset(name string) error {
	if s.store == nil {
		return fmt.Errorf("%w: %q", presets.ErrNotFound, name)
	}
	if err := s.store.Delete(name); err != nil {
		return err
	}
	s.ReloadPresets()
	return nil
}

func (s *Session) SetLayout(l ipc.LayoutData) error {
	return s.SetLayoutConfig(config.Layout{
		PrimaryX:   l.PrimaryX,
		PrimaryY:   l.PrimaryY,
		SecondaryX: l.SecondaryX,
		SecondaryY: l.SecondaryY,
	})
}

func (s *Session) ForceSync() {
	s.dock.ForceBypassThrottle()
}

func (s *Session) Focus(surface string) error {
	which, err := ParseSurface(surface)
	if err != nil {
		return err
	}
	s.FocusSurface(which)
	return nil
}

// Quit shuts the whole application down.
func (s *Session) Quit() {
	s.dock.Shutdown()
}

func toLayoutData(l config.Layout) ipc.LayoutData {
	return ipc.LayoutData{
		PrimaryX:   l.PrimaryX,
		PrimaryY:   l.PrimaryY,
		SecondaryX: l.SecondaryX,
		SecondaryY: l.SecondaryY,
	}
}

package dock

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1broseidon/mirrordock/internal/platform"
)

var (
	// ErrNotDocked is returned by Capture while the surfaces are free windows.
	ErrNotDocked = errors.New("surfaces are not docked")
	// ErrNoContainer is returned by Capture before the container exists.
	ErrNoContainer = errors.New("container window does not exist")
)

// Config holds controller tuning.
type Config struct {
	PollInterval  time.Duration
	SyncInterval  time.Duration
	SkipUnchanged bool
	FocusOnToggle bool
	Logger        *slog.Logger
}

// Status is a point-in-time view of the controller.
type Status struct {
	State           State
	PrimaryFound    bool
	SecondaryFound  bool
	ContainerExists bool
	Running         bool
}

// Controller owns the dock state and the handles of both surfaces and of the
// container.
//
// The state flag and handles are atomics so Sync can read them without
// waiting on a monitor tick. mu serialises every multi-call sequence that
// changes parentage: Toggle and each monitor tick. Undocking writes the
// state first and docking writes it last, so a tick that observes Docked
// under mu always sees surfaces that may be reparented.
type Controller struct {
	native        platform.Native
	logger        *slog.Logger
	surfaces      [2]Surface
	throttle      *Throttler
	focus         *FocusGuard
	focusOnToggle bool
	pollInterval  time.Duration

	mu        sync.Mutex
	state     atomic.Int32
	handles   [2]atomic.Uintptr
	container atomic.Uintptr

	running      atomic.Bool
	shutdownOnce sync.Once
	hooksMu      sync.Mutex
	hooks        []func()
}

// New creates a controller in the Docked state with no surfaces discovered.
func New(native platform.Native, primary, secondary Surface, cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	c := &Controller{
		native:        native,
		logger:        logger,
		surfaces:      [2]Surface{primary, secondary},
		throttle:      NewThrottler(native, cfg.SyncInterval, cfg.SkipUnchanged, logger),
		focus:         NewFocusGuard(native, logger),
		focusOnToggle: cfg.FocusOnToggle,
		pollInterval:  poll,
	}
	c.state.Store(int32(Docked))
	c.running.Store(true)
	return c
}

// CurrentState returns the dock state.
func (c *Controller) CurrentState() State {
	return State(c.state.Load())
}

// Running reports whether Shutdown has not been called yet.
func (c *Controller) Running() bool {
	return c.running.Load()
}

// Status returns a snapshot for display.
func (c *Controller) Status() Status {
	h := c.snapshot()
	return Status{
		State:           c.CurrentState(),
		PrimaryFound:    h.Primary != 0,
		SecondaryFound:  h.Secondary != 0,
		ContainerExists: h.Container != 0,
		Running:         c.Running(),
	}
}

// Sync pushes layout to the surfaces, subject to the throttle. It never
// blocks on Toggle or the monitor.
func (c *Controller) Sync(layout Layout) {
	c.throttle.Sync(c.snapshot(), layout, c.CurrentState())
}

// ForceBypassThrottle lets the next Sync through immediately. Call it after
// applying a preset so the new placement shows without delay.
func (c *Controller) ForceBypassThrottle() {
	c.throttle.ForceBypass()
}

// Toggle switches between Docked and Undocked. It is a no-op with a warning
// until both surfaces have been discovered.
func (c *Controller) Toggle() {
	c.mu.Lock()
	next, ok := c.toggleLocked()
	c.mu.Unlock()
	if !ok {
		return
	}

	c.logger.Info("dock state changed", "state", next)
	c.throttle.ForceBypass()

	if c.focusOnToggle {
		if next == Docked {
			c.focus.BringToForeground(c.containerID())
		} else {
			c.focus.BringToForeground(c.handle(Primary))
		}
	}
}

func (c *Controller) toggleLocked() (State, bool) {
	primary, secondary := c.handle(Primary), c.handle(Secondary)
	if primary == 0 || secondary == 0 {
		c.logger.Warn("toggle ignored: surfaces not discovered yet",
			"primary", primary != 0, "secondary", secondary != 0)
		return c.CurrentState(), false
	}
	container := c.containerID()

	if c.CurrentState() == Docked {
		c.state.Store(int32(Undocked))
		c.release(Primary, primary)
		c.release(Secondary, secondary)
		if container != 0 {
			if err := c.native.Hide(container); err != nil {
				c.logger.Warn("hide container failed", "error", err)
			}
		}
		return Undocked, true
	}

	if container == 0 {
		c.logger.Warn("toggle ignored: container not created yet")
		return Undocked, false
	}
	if err := c.native.Show(container); err != nil {
		c.logger.Warn("show container failed", "error", err)
	}
	c.embed(Primary, primary, container)
	c.embed(Secondary, secondary, container)
	c.state.Store(int32(Docked))
	return Docked, true
}

// embed reparents id into the container and strips its frame.
func (c *Controller) embed(which SurfaceIndex, id, container platform.WindowID) bool {
	if err := c.native.SetParent(id, container); err != nil {
		c.logger.Warn("reparent into container failed", "surface", which, "window", id, "error", err)
		return false
	}
	c.restyle(which, id, platform.ToEmbeddedStyle)
	return true
}

// release turns id back into a decorated top-level window.
func (c *Controller) release(which SurfaceIndex, id platform.WindowID) {
	style, err := c.native.Style(id)
	if err != nil {
		c.logger.Warn("read style failed", "surface", which, "window", id, "error", err)
	} else if err := c.native.SetStyle(id, platform.ToFreeStyle(style)); err != nil {
		c.logger.Warn("write style failed", "surface", which, "window", id, "error", err)
	}
	if err := c.native.SetParent(id, 0); err != nil {
		c.logger.Warn("detach from container failed", "surface", which, "window", id, "error", err)
	}
	c.refreshFrame(which, id)
}

func (c *Controller) restyle(which SurfaceIndex, id platform.WindowID, transform func(platform.Style) platform.Style) {
	style, err := c.native.Style(id)
	if err != nil {
		c.logger.Warn("read style failed", "surface", which, "window", id, "error", err)
		return
	}
	if err := c.native.SetStyle(id, transform(style)); err != nil {
		c.logger.Warn("write style failed", "surface", which, "window", id, "error", err)
	}
	c.refreshFrame(which, id)
}

// refreshFrame makes the window manager recompute the frame after a style
// write. Without it the old frame outline stays on screen.
func (c *Controller) refreshFrame(which SurfaceIndex, id platform.WindowID) {
	if err := c.native.SetWindowPos(id, platform.Rect{}, platform.PosRefreshFrame); err != nil {
		c.logger.Warn("frame refresh failed", "surface", which, "window", id, "error", err)
	}
}

// Focus brings the selected surface to the foreground. Docked surfaces are
// children, so the container is focused instead.
func (c *Controller) Focus(which SurfaceIndex) {
	if c.CurrentState() == Docked {
		c.focus.BringToForeground(c.containerID())
		return
	}
	c.focus.BringToForeground(c.handle(which))
}

// Capture grabs the container's client area. It only works while docked,
// since the container is hidden otherwise.
func (c *Controller) Capture() (image.Image, error) {
	if c.CurrentState() != Docked {
		return nil, ErrNotDocked
	}
	id := c.containerID()
	if id == 0 || !c.native.IsWindow(id) {
		return nil, ErrNoContainer
	}
	img, err := c.native.Capture(id)
	if err != nil {
		return nil, fmt.Errorf("capture container: %w", err)
	}
	return img, nil
}

// OnShutdown registers fn to run once when the controller shuts down.
func (c *Controller) OnShutdown(fn func()) {
	c.hooksMu.Lock()
	defer c.hooksMu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// Shutdown stops the whole application: it clears the running flag, runs
// the shutdown hooks and asks the container to close. Safe to call more
// than once and from any goroutine.
func (c *Controller) Shutdown() {
	c.shutdown(true)
}

func (c *Controller) shutdown(closeContainer bool) {
	c.shutdownOnce.Do(func() {
		c.logger.Info("shutting down")
		c.running.Store(false)

		c.hooksMu.Lock()
		hooks := append([]func(){}, c.hooks...)
		c.hooksMu.Unlock()
		for _, fn := range hooks {
			fn()
		}

		if !closeContainer {
			return
		}
		if id := c.containerID(); id != 0 {
			if err := c.native.PostClose(id); err != nil {
				c.logger.Warn("post close to container failed", "error", err)
			}
		}
	})
}

func (c *Controller) snapshot() Handles {
	return Handles{
		Primary:   c.handle(Primary),
		Secondary: c.handle(Secondary),
		Container: c.containerID(),
	}
}

func (c *Controller) handle(which SurfaceIndex) platform.WindowID {
	return platform.WindowID(c.handles[which].Load())
}

func (c *Controller) setHandle(which SurfaceIndex, id platform.WindowID) {
	c.handles[which].Store(uintptr(id))
}

func (c *Controller) containerID() platform.WindowID {
	return platform.WindowID(c.container.Load())
}

package dock

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1broseidon/mirrordock/internal/platform"
)

// DefaultSyncInterval is roughly one frame at 60 fps.
const DefaultSyncInterval = 16 * time.Millisecond

// Handles is a snapshot of the windows a sync operates on.
type Handles struct {
	Primary   platform.WindowID
	Secondary platform.WindowID
	Container platform.WindowID
}

// Throttler pushes layouts to the surfaces at most once per interval.
type Throttler struct {
	backend       platform.Backend
	logger        *slog.Logger
	interval      time.Duration
	skipUnchanged bool
	now           func() time.Time

	bypass atomic.Bool

	mu           sync.Mutex
	last         time.Time
	absentLogged bool
	applied      [2]platform.Rect
	hasApplied   bool
}

// NewThrottler creates a throttler. With skipUnchanged set, a sync whose
// target rectangles equal the last applied ones issues no OS call.
func NewThrottler(backend platform.Backend, interval time.Duration, skipUnchanged bool, logger *slog.Logger) *Throttler {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Throttler{
		backend:       backend,
		logger:        logger,
		interval:      interval,
		skipUnchanged: skipUnchanged,
		now:           time.Now,
	}
}

// ForceBypass lets the next Sync through regardless of the throttle.
func (t *Throttler) ForceBypass() {
	t.bypass.Store(true)
}

// Sync positions both surfaces according to layout. Docked layouts are
// applied in container client coordinates. Undocked layouts are offset by
// the container's current screen position.
func (t *Throttler) Sync(h Handles, layout Layout, state State) {
	forced, ok := t.admit()
	if !ok {
		return
	}

	if h.Primary == 0 || h.Secondary == 0 {
		t.mu.Lock()
		if !t.absentLogged {
			t.absentLogged = true
			t.logger.Debug("sync skipped: surfaces not discovered yet")
		}
		t.mu.Unlock()
		t.keepBypass(forced)
		return
	}

	primary, secondary := layout.Primary, layout.Secondary
	if state == Undocked {
		if h.Container == 0 {
			t.logger.Warn("sync skipped: no container to anchor undocked surfaces")
			t.keepBypass(forced)
			return
		}
		anchor, err := t.backend.WindowRect(h.Container)
		if err != nil {
			t.logger.Warn("sync skipped: container rect unavailable", "error", err)
			t.keepBypass(forced)
			return
		}
		primary = primary.Offset(anchor.X, anchor.Y)
		secondary = secondary.Offset(anchor.X, anchor.Y)
	}

	if t.skipUnchanged && !forced && t.unchanged(primary, secondary) {
		return
	}

	t.move(Primary, h.Primary, primary)
	t.move(Secondary, h.Secondary, secondary)

	t.mu.Lock()
	t.applied = [2]platform.Rect{primary, secondary}
	t.hasApplied = true
	t.mu.Unlock()
}

// admit applies the throttle. It reports whether the call was forced
// through by a pending bypass.
func (t *Throttler) admit() (forced, ok bool) {
	now := t.now()
	forced = t.bypass.Swap(false)

	t.mu.Lock()
	defer t.mu.Unlock()
	if !forced && !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false, false
	}
	t.last = now
	return forced, true
}

// keepBypass re-arms a consumed bypass when the sync it admitted moved
// nothing, so the forced placement still lands on the next call.
func (t *Throttler) keepBypass(forced bool) {
	if forced {
		t.bypass.Store(true)
	}
}

func (t *Throttler) unchanged(primary, secondary platform.Rect) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasApplied && t.applied[0] == primary && t.applied[1] == secondary
}

func (t *Throttler) move(which SurfaceIndex, id platform.WindowID, r platform.Rect) {
	if err := t.backend.SetWindowPos(id, r, platform.PosSyncPlacement); err != nil {
		t.logger.Warn("sync: move failed", "surface", which, "window", id, "error", err)
	}
}

package dock

import (
	"log/slog"
	"time"

	"github.com/1broseidon/mirrordock/internal/platform"
)

const (
	attachTimeout   = 500 * time.Millisecond
	detachAttempts  = 3
	detachRetryWait = 10 * time.Millisecond
)

// FocusGuard moves input focus to windows owned by other threads. When it
// has to attach input queues it always detaches them again before
// returning.
type FocusGuard struct {
	backend platform.FocusBackend
	logger  *slog.Logger
	now     func() time.Time
	sleep   func(time.Duration)
}

// NewFocusGuard creates a focus guard.
func NewFocusGuard(backend platform.FocusBackend, logger *slog.Logger) *FocusGuard {
	return &FocusGuard{
		backend: backend,
		logger:  logger,
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// BringToForeground makes id the foreground window.
func (g *FocusGuard) BringToForeground(id platform.WindowID) {
	if id == 0 || !g.backend.IsWindow(id) {
		g.logger.Warn("focus: invalid window", "window", id)
		return
	}

	current := g.backend.CurrentThreadID()
	target, err := g.backend.WindowThreadID(id)
	if err != nil || target == 0 {
		g.logger.Warn("focus: cannot resolve window thread", "window", id, "error", err)
		return
	}

	if current == target {
		if !g.backend.SetForeground(id) {
			g.logger.Debug("focus: set foreground refused", "window", id)
		}
		return
	}

	// Most of the time this works without coupling the input queues.
	if g.backend.SetForeground(id) {
		g.logger.Debug("focus: foreground set without attach", "window", id)
		return
	}

	g.withAttachedInput(current, target, func(deadline time.Time) {
		if g.now().After(deadline) {
			g.logger.Warn("focus: attach took too long, skipping focus", "window", id)
			return
		}
		g.backend.SetForeground(id)
		if err := g.backend.SetActive(id); err != nil {
			g.logger.Debug("focus: set active failed", "window", id, "error", err)
		}
		if err := g.backend.SetFocus(id); err != nil {
			g.logger.Debug("focus: set focus failed", "window", id, "error", err)
		}
	})
}

func (g *FocusGuard) withAttachedInput(from, to uint32, fn func(deadline time.Time)) {
	deadline := g.now().Add(attachTimeout)
	if err := g.backend.AttachThreadInput(from, to, true); err != nil {
		g.logger.Warn("focus: attach thread input failed", "from", from, "to", to, "error", err)
		return
	}
	defer g.detach(from, to)

	fn(deadline)
}

func (g *FocusGuard) detach(from, to uint32) {
	var err error
	for attempt := 1; attempt <= detachAttempts; attempt++ {
		if err = g.backend.AttachThreadInput(from, to, false); err == nil {
			return
		}
		g.logger.Debug("focus: detach attempt failed", "attempt", attempt, "error", err)
		if attempt < detachAttempts {
			g.sleep(detachRetryWait)
		}
	}
	g.logger.Error("focus: failed to detach thread input", "from", from, "to", to, "error", err)
}

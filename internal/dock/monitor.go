package dock

import (
	"context"
	"errors"
	"time"

	"github.com/1broseidon/mirrordock/internal/platform"
)

// DefaultPollInterval is how often the monitor looks for surfaces.
const DefaultPollInterval = 500 * time.Millisecond

// RunMonitor discovers surface windows by title and docks them into the
// container while the controller is Docked. Blocks until ctx is cancelled.
func (c *Controller) RunMonitor(ctx context.Context) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	c.logger.Info("docking monitor started", "interval", c.pollInterval)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("docking monitor stopped")
			return
		case <-ticker.C:
			if !c.Running() {
				c.logger.Info("docking monitor stopped")
				return
			}
			c.MonitorTick()
		}
	}
}

// MonitorTick performs a single discovery pass.
func (c *Controller) MonitorTick() {
	// A misbehaving backend must not kill the monitor.
	defer func() {
		if err := recover(); err != nil {
			c.logger.Error("docking monitor panic recovered", "error", err)
		}
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Undocked surfaces were detached on purpose; leave them alone.
	if c.CurrentState() != Docked {
		return
	}
	container := c.containerID()
	if container == 0 {
		return
	}

	for _, which := range []SurfaceIndex{Primary, Secondary} {
		c.discoverLocked(which, container)
	}
}

func (c *Controller) discoverLocked(which SurfaceIndex, container platform.WindowID) {
	current := c.handle(which)
	if current != 0 {
		if !c.native.IsWindow(current) {
			c.logger.Info("surface window gone", "surface", which, "window", current)
			c.setHandle(which, 0)
			current = 0
		} else if parent, err := c.native.Parent(current); err == nil && parent == container {
			return
		}
	}

	surface := c.surfaces[which]
	if surface == nil {
		return
	}
	title := surface.Title()
	id, err := c.native.FindWindow(title)
	if err != nil {
		if errors.Is(err, platform.ErrWindowNotFound) {
			c.logger.Debug("surface not found yet", "surface", which, "title", title)
		} else {
			c.logger.Warn("surface lookup failed", "surface", which, "title", title, "error", err)
		}
		return
	}

	if parent, err := c.native.Parent(id); err == nil && parent == container {
		if current != id {
			c.setHandle(which, id)
			c.throttle.ForceBypass()
		}
		return
	}

	if !c.embed(which, id, container) {
		return
	}
	c.setHandle(which, id)
	c.throttle.ForceBypass()
	c.logger.Info("surface docked", "surface", which, "window", id, "title", title)
}

package dock

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/1broseidon/mirrordock/internal/platform"
)

const (
	containerClassName = "MirrorDockContainer"
	sizePollInterval   = 100 * time.Millisecond
)

// ContainerConfig places the container window on screen.
type ContainerConfig struct {
	Title string
	X     int
	Y     int
}

// containerProc turns closing the container into an application shutdown.
type containerProc struct {
	platform.DefaultWindowProc
	ctrl *Controller
}

func (p *containerProc) OnClose(id platform.WindowID) platform.Disposition {
	p.ctrl.logger.Info("container close requested", "window", id)
	p.ctrl.shutdown(false)
	return platform.PassThrough
}

func (p *containerProc) OnDestroy(id platform.WindowID) platform.Disposition {
	p.ctrl.shutdown(false)
	p.ctrl.container.CompareAndSwap(uintptr(id), 0)
	return platform.PassThrough
}

// RunContainer waits until both surfaces report a nominal size, creates the
// container sized to hold them, and pumps its messages until it is closed
// or the controller shuts down. It locks the calling goroutine to its OS
// thread for the whole lifetime of the window.
func (c *Controller) RunContainer(ctx context.Context, cfg ContainerConfig) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	width, height, ok := c.waitForSizes(ctx)
	if !ok {
		c.logger.Info("container creation aborted")
		return nil
	}

	spec := platform.ContainerSpec{
		ClassName: containerClassName,
		Title:     cfg.Title,
		X:         cfg.X,
		Y:         cfg.Y,
		Width:     width,
		Height:    height,
	}
	id, err := c.native.CreateContainer(spec, &containerProc{ctrl: c})
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	c.container.Store(uintptr(id))
	c.logger.Info("container created", "window", id, "width", width, "height", height)

	// Shutdown may have run before the handle was published.
	if !c.Running() {
		_ = c.native.PostClose(id)
	}

	if err := c.native.PumpMessages(c.Running); err != nil {
		return fmt.Errorf("container message loop: %w", err)
	}
	c.logger.Info("container message loop exited")
	return nil
}

// ContainerSize returns the client size the container will be created with,
// once both surfaces report their size.
func (c *Controller) ContainerSize() (width, height int, ok bool) {
	w1, h1, ok1 := c.surfaces[Primary].NominalSize()
	w2, h2, ok2 := c.surfaces[Secondary].NominalSize()
	if !ok1 || !ok2 || w1 <= 0 || h1 <= 0 || w2 <= 0 || h2 <= 0 {
		return 0, 0, false
	}
	width, height = ContainerSize(w1, h1, w2, h2)
	return width, height, true
}

func (c *Controller) waitForSizes(ctx context.Context) (width, height int, ok bool) {
	if width, height, ok = c.ContainerSize(); ok {
		return width, height, true
	}

	ticker := time.NewTicker(sizePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return 0, 0, false
		case <-ticker.C:
			if !c.Running() {
				return 0, 0, false
			}
			if width, height, ok = c.ContainerSize(); ok {
				return width, height, true
			}
		}
	}
}

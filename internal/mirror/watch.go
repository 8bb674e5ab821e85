package mirror

import (
	"context"
	"time"
)

// DefaultWatchInterval is how often Watch checks the processes.
const DefaultWatchInterval = time.Second

// ExitFunc is called once for every mirroring process that exits on its own.
type ExitFunc func(surface *Surface, err error)

// Watch periodically checks the running processes and reports those that
// died. Blocks until ctx is cancelled.
func (s *Supervisor) Watch(ctx context.Context, interval time.Duration, onExit ExitFunc) {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("process watchdog started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("process watchdog stopped")
			return
		case <-ticker.C:
			s.check(onExit)
		}
	}
}

// check performs a single pass.
func (s *Supervisor) check(onExit ExitFunc) {
	// Recover from panics in the callback to keep the watchdog alive.
	defer func() {
		if err := recover(); err != nil {
			s.logger.Error("process watchdog panic recovered", "error", err)
		}
	}()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	var exited []*child
	alive := s.children[:0]
	for _, c := range s.children {
		select {
		case <-c.proc.Done():
			exited = append(exited, c)
		default:
			alive = append(alive, c)
		}
	}
	s.children = alive
	s.mu.Unlock()

	for _, c := range exited {
		c.surface.markReady(false)
		c.log.Close()
		s.logger.Warn("mirroring process exited",
			"surface", c.surface.Label(), "pid", c.proc.Pid(), "error", c.proc.Err())
		if onExit != nil {
			onExit(c.surface, c.proc.Err())
		}
	}
}

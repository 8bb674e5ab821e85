package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Primary and secondary panel defaults of the target handheld.
const (
	DefaultPrimaryTitle     = "ThorCPY Top Screen"
	DefaultSecondaryTitle   = "ThorCPY Bottom Screen"
	DefaultPrimaryDisplay   = 0
	DefaultSecondaryDisplay = 4
)

const (
	primaryMinBitrate      = 8
	primaryBitrateFactor   = 32
	secondaryMinBitrate    = 6
	secondaryBitrateFactor = 24

	terminateTimeout = 2 * time.Second
)

// ErrStopped is returned by Start when Stop was called while starting.
var ErrStopped = errors.New("supervisor stopped")

// timing controls the start sequence.
type timing struct {
	survival   time.Duration // a process that lives this long counts as started
	retryDelay time.Duration
	between    time.Duration // wait after the primary before starting the secondary
}

var defaultTiming = timing{
	survival:   300 * time.Millisecond,
	retryDelay: 700 * time.Millisecond,
	between:    1200 * time.Millisecond,
}

// Config configures the supervisor.
type Config struct {
	Scrcpy       string
	ADB          *ADB
	Scale        float64
	MaxFPS       int
	RenderDriver string
	Audio        bool
	Retries      int
	// LogDir receives one output file per started process. Empty discards
	// process output.
	LogDir string

	PrimaryTitle     string
	SecondaryTitle   string
	PrimaryDisplay   int
	SecondaryDisplay int

	Logger *slog.Logger
}

type child struct {
	surface *Surface
	proc    process
	log     io.Closer
}

// Supervisor starts and stops the two mirroring processes.
type Supervisor struct {
	cfg       Config
	logger    *slog.Logger
	primary   *Surface
	secondary *Surface
	start     starter
	timing    timing
	now       func() time.Time

	mu       sync.Mutex
	serial   string
	children []*child
	stopped  bool
}

// NewSupervisor computes both surfaces' sizes from the scale. Nothing is
// started until Start.
func NewSupervisor(cfg Config) *Supervisor {
	if cfg.Retries <= 0 {
		cfg.Retries = 2
	}
	if cfg.MaxFPS <= 0 {
		cfg.MaxFPS = 120
	}
	if cfg.RenderDriver == "" {
		cfg.RenderDriver = "opengl"
	}
	if cfg.PrimaryTitle == "" {
		cfg.PrimaryTitle = DefaultPrimaryTitle
	}
	if cfg.SecondaryTitle == "" {
		cfg.SecondaryTitle = DefaultSecondaryTitle
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w1, h1, w2, h2 := NominalSizes(cfg.Scale)
	return &Supervisor{
		cfg:    cfg,
		logger: logger,
		primary: newSurface(SurfaceSpec{
			Label:         "top",
			Title:         cfg.PrimaryTitle,
			DisplayID:     cfg.PrimaryDisplay,
			MinBitrate:    primaryMinBitrate,
			BitrateFactor: primaryBitrateFactor,
			Audio:         cfg.Audio,
		}, w1, h1),
		secondary: newSurface(SurfaceSpec{
			Label:         "bottom",
			Title:         cfg.SecondaryTitle,
			DisplayID:     cfg.SecondaryDisplay,
			MinBitrate:    secondaryMinBitrate,
			BitrateFactor: secondaryBitrateFactor,
		}, w2, h2),
		start:  startExec,
		timing: defaultTiming,
		now:    time.Now,
	}
}

// Primary returns the top surface.
func (s *Supervisor) Primary() *Surface { return s.primary }

// Secondary returns the bottom surface.
func (s *Supervisor) Secondary() *Surface { return s.secondary }

// Start launches the primary surface, waits for it to initialise, then
// launches the secondary one. Each surface's nominal size is published as
// soon as its process survives startup.
func (s *Supervisor) Start(ctx context.Context, serial string) error {
	if serial == "" {
		return ErrNoDevice
	}
	if s.cfg.Scrcpy == "" {
		return fmt.Errorf("%w: scrcpy", ErrBinaryNotFound)
	}
	s.mu.Lock()
	s.serial = serial
	s.mu.Unlock()

	s.logger.Info("starting mirroring processes", "serial", serial, "scale", s.cfg.Scale)

	if err := s.startSurface(ctx, s.primary); err != nil {
		return err
	}
	if err := sleepCtx(ctx, s.timing.between); err != nil {
		return err
	}
	return s.startSurface(ctx, s.secondary)
}

func (s *Supervisor) startSurface(ctx context.Context, surface *Surface) error {
	args := s.args(surface)
	var lastErr error
	for attempt := 1; attempt <= s.cfg.Retries; attempt++ {
		if s.isStopped() {
			return ErrStopped
		}

		c, err := s.launch(ctx, surface, args)
		if err == nil {
			s.mu.Lock()
			if s.stopped {
				s.mu.Unlock()
				_ = c.proc.Kill()
				c.log.Close()
				return ErrStopped
			}
			s.children = append(s.children, c)
			s.mu.Unlock()
			surface.markReady(true)
			s.logger.Info("mirroring process started", "surface", surface.Label(), "pid", c.proc.Pid())
			return nil
		}
		lastErr = err
		s.logger.Warn("mirroring process start failed",
			"surface", surface.Label(), "attempt", attempt, "of", s.cfg.Retries, "error", err)

		if attempt < s.cfg.Retries {
			if err := sleepCtx(ctx, s.timing.retryDelay); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("start %s surface: %w", surface.Label(), lastErr)
}

func (s *Supervisor) launch(ctx context.Context, surface *Surface, args []string) (*child, error) {
	out, closer := s.openLog(surface.Label())
	proc, err := s.start(s.cfg.Scrcpy, args, out)
	if err != nil {
		closer.Close()
		return nil, err
	}

	// A process that dies right away (device busy, bad display id) is a
	// failed start.
	select {
	case <-proc.Done():
		closer.Close()
		return nil, fmt.Errorf("process exited immediately: %v", proc.Err())
	case <-ctx.Done():
		_ = proc.Kill()
		closer.Close()
		return nil, ctx.Err()
	case <-time.After(s.timing.survival):
	}
	return &child{surface: surface, proc: proc, log: closer}, nil
}

func (s *Supervisor) openLog(label string) (io.Writer, io.Closer) {
	if s.cfg.LogDir == "" {
		return io.Discard, nopCloser{}
	}
	if err := os.MkdirAll(s.cfg.LogDir, 0o755); err != nil {
		s.logger.Warn("cannot create process log dir", "dir", s.cfg.LogDir, "error", err)
		return io.Discard, nopCloser{}
	}
	name := fmt.Sprintf("scrcpy_%s_%s.log", label, s.now().Format("20060102_150405"))
	f, err := os.Create(filepath.Join(s.cfg.LogDir, name))
	if err != nil {
		s.logger.Warn("cannot create process log", "error", err)
		return io.Discard, nopCloser{}
	}
	return f, f
}

// args builds the scrcpy command line for surface.
func (s *Supervisor) args(surface *Surface) []string {
	s.mu.Lock()
	serial := s.serial
	s.mu.Unlock()

	width, _ := surface.Size()
	bitrate := Bitrate(s.cfg.Scale, surface.spec.MinBitrate, surface.spec.BitrateFactor)
	args := []string{
		"-s", serial,
		"--window-borderless",
		"--max-fps", strconv.Itoa(s.cfg.MaxFPS),
		"--render-driver", s.cfg.RenderDriver,
		"--mouse-bind=++++",
		"--display-id", strconv.Itoa(surface.spec.DisplayID),
		"--window-title", surface.Title(),
		"--window-width", strconv.Itoa(width),
		"--video-bit-rate", strconv.Itoa(bitrate) + "M",
	}
	if !surface.spec.Audio {
		args = append(args, "--no-audio")
	}
	return args
}

// Stop terminates every process, killing those that do not exit in time,
// then cleans up the device side. Safe to call more than once.
func (s *Supervisor) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	children := s.children
	s.children = nil
	serial := s.serial
	s.mu.Unlock()

	s.logger.Info("stopping mirroring processes", "count", len(children))
	for _, c := range children {
		c.surface.markReady(false)
		select {
		case <-c.proc.Done():
			continue
		default:
		}
		if err := c.proc.Terminate(); err != nil {
			s.logger.Debug("terminate failed", "surface", c.surface.Label(), "error", err)
		}
	}
	for _, c := range children {
		select {
		case <-c.proc.Done():
		case <-time.After(terminateTimeout):
			s.logger.Warn("process did not exit, killing", "surface", c.surface.Label(), "pid", c.proc.Pid())
			if err := c.proc.Kill(); err != nil {
				s.logger.Error("kill failed", "surface", c.surface.Label(), "error", err)
			}
		}
		c.log.Close()
	}

	if s.cfg.ADB != nil {
		s.cfg.ADB.Cleanup(ctx, serial)
	}
}

func (s *Supervisor) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

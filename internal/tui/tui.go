// Package tui is the control panel that drives the per-frame layout sync.
// Without a terminal it falls back to a plain frame loop.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/mirrordock/internal/config"
	"github.com/1broseidon/mirrordock/internal/dock"
	"github.com/1broseidon/mirrordock/internal/ipc"
)

// FrameInterval is the control panel's frame period (60 fps).
const FrameInterval = time.Second / 60

// Session is what the control panel drives.
type Session interface {
	Frame()
	Toggle() string
	State() dock.State
	Status() ipc.StatusData
	Layout() config.Layout
	Nudge(which dock.SurfaceIndex, dx, dy int) config.Layout
	ResetLayout()
	PresetNames() []string
	ApplyPresetIndex(i int) (string, error)
	SavePreset(name string) error
	DeletePreset(name string) error
	FocusSurface(which dock.SurfaceIndex)
	Screenshot() (string, error)
	Scale() float64
	NextScale() float64
	AdjustNextScale(delta float64) float64
	RestartRequired() bool
	Quit()
}

// Interactive reports whether stdin and stdout are both terminals.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Run shows the control panel until ctx is cancelled or the user quits.
// Without a terminal it runs the frame loop only.
func Run(ctx context.Context, s Session) error {
	if !Interactive() {
		RunHeadless(ctx, s, FrameInterval)
		return nil
	}

	p := tea.NewProgram(newModel(s), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return fmt.Errorf("control panel: %w", err)
	}
	return nil
}

// RunHeadless calls s.Frame every interval until ctx is done.
func RunHeadless(ctx context.Context, s Session, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Frame()
		}
	}
}

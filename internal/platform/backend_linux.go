//go:build linux

package platform

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/1broseidon/mirrordock/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// X11 has no per-thread input queues. Every window reports the same owner
// so focus changes take the direct path.
const x11InputOwner uint32 = 1

const pumpPollInterval = 50 * time.Millisecond

// LinuxBackend implements Native on top of an X11 connection. The window
// style bitmask is emulated: the child bit reflects whether a window sits
// inside our container and the decoration bits follow _MOTIF_WM_HINTS.
type LinuxBackend struct {
	conn *x11.Connection

	mu         sync.Mutex
	containers map[xproto.Window]WindowProc
}

var _ Native = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn, containers: make(map[xproto.Window]WindowProc)}
}

// NewNative opens a fresh X11 connection.
func NewNative() (Native, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewLinuxBackend(conn), nil
}

// Close disconnects from the X server.
func (b *LinuxBackend) Close() error {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
	return nil
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

func (b *LinuxBackend) FindWindow(title string) (WindowID, error) {
	win, err := b.conn.FindWindowByTitle(title, b.containerIDs()...)
	if err != nil {
		if errors.Is(err, x11.ErrNoMatch) {
			return 0, fmt.Errorf("%w: %q", ErrWindowNotFound, title)
		}
		return 0, err
	}
	return WindowID(win), nil
}

func (b *LinuxBackend) IsWindow(id WindowID) bool {
	return b.conn.Exists(xproto.Window(id))
}

func (b *LinuxBackend) IsVisible(id WindowID) bool {
	return b.conn.IsViewable(xproto.Window(id))
}

// Parent returns 0 for windows parented to the root window.
func (b *LinuxBackend) Parent(id WindowID) (WindowID, error) {
	parent, err := b.conn.Parent(xproto.Window(id))
	if err != nil {
		return 0, err
	}
	if parent == b.conn.Root {
		return 0, nil
	}
	return WindowID(parent), nil
}

func (b *LinuxBackend) SetParent(id, parent WindowID) error {
	win := xproto.Window(id)
	if parent == 0 {
		// Keep the window where it currently appears on screen.
		x, y, _, _, err := b.conn.ScreenRect(win)
		if err != nil {
			x, y = 0, 0
		}
		return b.conn.Reparent(win, b.conn.Root, x, y)
	}
	return b.conn.Reparent(win, xproto.Window(parent), 0, 0)
}

func (b *LinuxBackend) Style(id WindowID) (Style, error) {
	win := xproto.Window(id)
	if !b.conn.Exists(win) {
		return 0, fmt.Errorf("%w: 0x%x", ErrWindowNotFound, id)
	}

	var s Style
	if b.conn.IsViewable(win) {
		s |= StyleVisible
	}
	if parent, err := b.conn.Parent(win); err == nil && b.isContainer(parent) {
		s |= StyleChild | StyleClipChildren | StyleClipSiblings
	}
	if b.conn.Decorated(win) {
		s |= StyleOverlappedWindow
	}
	return s, nil
}

// SetStyle applies the decoration bits. The child bit is structural and
// follows SetParent.
func (b *LinuxBackend) SetStyle(id WindowID, style Style) error {
	return b.conn.SetDecorated(xproto.Window(id), style&StyleCaption != 0)
}

func (b *LinuxBackend) SetWindowPos(id WindowID, bounds Rect, flags PosFlag) error {
	win := xproto.Window(id)
	move := flags&PosNoMove == 0
	resize := flags&PosNoSize == 0
	if !move && !resize {
		b.conn.Flush()
		return nil
	}

	parent, err := b.conn.Parent(win)
	if err == nil && !b.isContainer(parent) && move && resize {
		return b.conn.MoveResizeWindow(win, bounds.X, bounds.Y, bounds.Width, bounds.Height)
	}
	return b.conn.ConfigureChild(win, bounds.X, bounds.Y, bounds.Width, bounds.Height, move, resize)
}

func (b *LinuxBackend) WindowRect(id WindowID) (Rect, error) {
	x, y, w, h, err := b.conn.ScreenRect(xproto.Window(id))
	if err != nil {
		return Rect{}, err
	}
	return Rect{X: x, Y: y, Width: w, Height: h}, nil
}

func (b *LinuxBackend) Show(id WindowID) error { return b.conn.Map(xproto.Window(id)) }
func (b *LinuxBackend) Hide(id WindowID) error { return b.conn.Unmap(xproto.Window(id)) }

func (b *LinuxBackend) CurrentThreadID() uint32 { return x11InputOwner }

func (b *LinuxBackend) WindowThreadID(id WindowID) (uint32, error) {
	if !b.conn.Exists(xproto.Window(id)) {
		return 0, fmt.Errorf("%w: 0x%x", ErrWindowNotFound, id)
	}
	return x11InputOwner, nil
}

func (b *LinuxBackend) SetForeground(id WindowID) bool {
	return b.conn.FocusWindow(xproto.Window(id)) == nil
}

func (b *LinuxBackend) SetActive(id WindowID) error {
	return b.conn.RaiseWindow(xproto.Window(id))
}

func (b *LinuxBackend) SetFocus(id WindowID) error {
	return b.conn.SetInputFocus(xproto.Window(id))
}

// AttachThreadInput is a no-op on X11.
func (b *LinuxBackend) AttachThreadInput(from, to uint32, attach bool) error {
	return nil
}

func (b *LinuxBackend) CreateContainer(spec ContainerSpec, proc WindowProc) (WindowID, error) {
	if proc == nil {
		proc = DefaultWindowProc{}
	}
	var id xproto.Window
	hooks := x11.ContainerHooks{
		// Either disposition ends in destruction, matching the default
		// close handling.
		OnDelete: func() bool {
			proc.OnClose(WindowID(id))
			return true
		},
		OnDestroy: func() {
			proc.OnDestroy(WindowID(id))
			b.mu.Lock()
			delete(b.containers, id)
			b.mu.Unlock()
			b.conn.Quit()
		},
	}

	win, err := b.conn.CreateContainer(spec.ClassName, spec.Title, spec.X, spec.Y, spec.Width, spec.Height, hooks)
	if err != nil {
		return 0, err
	}
	id = win

	b.mu.Lock()
	b.containers[win] = proc
	b.mu.Unlock()
	return WindowID(win), nil
}

// PumpMessages runs the X event loop. A watcher wakes the loop once running
// reports false, since xevent only checks for quit between events.
func (b *LinuxBackend) PumpMessages(running func() bool) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pumpPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if running() {
					continue
				}
				b.conn.Quit()
				for _, win := range b.containerIDs() {
					_ = b.conn.Wake(win)
				}
				return
			}
		}
	}()

	b.conn.EventLoop()
	return nil
}

func (b *LinuxBackend) PostClose(id WindowID) error {
	return b.conn.RequestClose(xproto.Window(id))
}

func (b *LinuxBackend) Capture(id WindowID) (image.Image, error) {
	img, err := b.conn.Capture(xproto.Window(id))
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (b *LinuxBackend) isContainer(win xproto.Window) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.containers[win]
	return ok
}

func (b *LinuxBackend) containerIDs() []xproto.Window {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]xproto.Window, 0, len(b.containers))
	for win := range b.containers {
		ids = append(ids, win)
	}
	return ids
}

package platform

import (
	"errors"
	"image"
)

// WindowID is a platform-neutral window handle (HWND on Windows, XID on X11).
// The zero value means "no window".
type WindowID uintptr

// Rect describes a rectangular region. Whether it is screen or parent-client
// relative depends on the caller.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Offset returns r translated by (dx, dy).
func (r Rect) Offset(dx, dy int) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// PosFlag mirrors the SetWindowPos SWP_* flags.
type PosFlag uint32

const (
	PosNoSize        PosFlag = 0x0001
	PosNoMove        PosFlag = 0x0002
	PosNoZOrder      PosFlag = 0x0004
	PosNoActivate    PosFlag = 0x0010
	PosFrameChanged  PosFlag = 0x0020
	PosNoCopyBits    PosFlag = 0x0100
	PosRefreshFrame          = PosNoZOrder | PosNoActivate | PosFrameChanged | PosNoMove | PosNoSize
	PosSyncPlacement         = PosNoZOrder | PosNoActivate | PosNoCopyBits
)

var (
	// ErrWindowNotFound is returned by FindWindow when no window carries the title.
	ErrWindowNotFound = errors.New("window not found")
	// ErrUnsupported is returned when no native backend exists for this OS.
	ErrUnsupported = errors.New("window docking is not supported on this platform")
)

// Backend abstracts the window operations the docking engine performs on
// windows it does not own.
type Backend interface {
	FindWindow(title string) (WindowID, error)
	IsWindow(id WindowID) bool
	Parent(id WindowID) (WindowID, error)
	// SetParent reparents id under parent; parent 0 detaches to the desktop.
	SetParent(id, parent WindowID) error
	Style(id WindowID) (Style, error)
	SetStyle(id WindowID, style Style) error
	SetWindowPos(id WindowID, bounds Rect, flags PosFlag) error
	// WindowRect returns the outer rectangle in screen coordinates.
	WindowRect(id WindowID) (Rect, error)
	Show(id WindowID) error
	Hide(id WindowID) error
	IsVisible(id WindowID) bool
}

// FocusBackend exposes the foreground and input-queue primitives.
type FocusBackend interface {
	IsWindow(id WindowID) bool
	CurrentThreadID() uint32
	WindowThreadID(id WindowID) (uint32, error)
	SetForeground(id WindowID) bool
	SetActive(id WindowID) error
	SetFocus(id WindowID) error
	AttachThreadInput(from, to uint32, attach bool) error
}

// Disposition tells the host whether a WindowProc consumed a message.
type Disposition int

const (
	PassThrough Disposition = iota
	Handled
)

// WindowProc receives the messages the container cares about. Embed
// DefaultWindowProc to pass unhandled kinds through to the system.
type WindowProc interface {
	OnClose(id WindowID) Disposition
	OnDestroy(id WindowID) Disposition
}

// DefaultWindowProc passes every message to the default handler.
type DefaultWindowProc struct{}

func (DefaultWindowProc) OnClose(WindowID) Disposition   { return PassThrough }
func (DefaultWindowProc) OnDestroy(WindowID) Disposition { return PassThrough }

// ContainerSpec describes the container window to create. Width and Height
// are client-area dimensions.
type ContainerSpec struct {
	ClassName string
	Title     string
	X         int
	Y         int
	Width     int
	Height    int
}

// ContainerHost owns the single locally created container window.
// CreateContainer and PumpMessages must run on the same locked OS thread.
type ContainerHost interface {
	CreateContainer(spec ContainerSpec, proc WindowProc) (WindowID, error)
	// PumpMessages dispatches messages until the container is destroyed or
	// running reports false.
	PumpMessages(running func() bool) error
	// PostClose asks the container to close from any goroutine.
	PostClose(id WindowID) error
	// Capture copies the client area of id, children included.
	Capture(id WindowID) (image.Image, error)
}

// Native is the full set of capabilities a platform implementation provides.
type Native interface {
	Backend
	FocusBackend
	ContainerHost
	Close() error
}

//go:build windows

package platform

import (
	"fmt"
	"image"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	gdi32    = windows.NewLazySystemDLL("gdi32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procFindWindowW         = user32.NewProc("FindWindowW")
	procIsWindow            = user32.NewProc("IsWindow")
	procIsWindowVisible     = user32.NewProc("IsWindowVisible")
	procGetParent           = user32.NewProc("GetParent")
	procSetParent           = user32.NewProc("SetParent")
	procGetWindowLongW      = user32.NewProc("GetWindowLongW")
	procSetWindowLongW      = user32.NewProc("SetWindowLongW")
	procSetWindowPos        = user32.NewProc("SetWindowPos")
	procGetWindowRect       = user32.NewProc("GetWindowRect")
	procShowWindow          = user32.NewProc("ShowWindow")
	procSetForegroundWindow = user32.NewProc("SetForegroundWindow")
	procSetActiveWindow     = user32.NewProc("SetActiveWindow")
	procSetFocus            = user32.NewProc("SetFocus")
	procAttachThreadInput   = user32.NewProc("AttachThreadInput")
	procRegisterClassExW    = user32.NewProc("RegisterClassExW")
	procCreateWindowExW     = user32.NewProc("CreateWindowExW")
	procDefWindowProcW      = user32.NewProc("DefWindowProcW")
	procDestroyWindow       = user32.NewProc("DestroyWindow")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procTranslateMessage    = user32.NewProc("TranslateMessage")
	procDispatchMessageW    = user32.NewProc("DispatchMessageW")
	procPostMessageW        = user32.NewProc("PostMessageW")
	procPostQuitMessage     = user32.NewProc("PostQuitMessage")
	procAdjustWindowRectEx  = user32.NewProc("AdjustWindowRectEx")
	procLoadCursorW         = user32.NewProc("LoadCursorW")
	procGetClientRect       = user32.NewProc("GetClientRect")
	procGetDC               = user32.NewProc("GetDC")
	procReleaseDC           = user32.NewProc("ReleaseDC")
	procGetStockObject      = gdi32.NewProc("GetStockObject")
	procCreateCompatibleDC  = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBmp = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject        = gdi32.NewProc("SelectObject")
	procBitBlt              = gdi32.NewProc("BitBlt")
	procGetDIBits           = gdi32.NewProc("GetDIBits")
	procDeleteObject        = gdi32.NewProc("DeleteObject")
	procDeleteDC            = gdi32.NewProc("DeleteDC")
	procGetModuleHandleW    = kernel32.NewProc("GetModuleHandleW")
)

// GWL_STYLE is negative; a variable keeps the uintptr conversion legal.
var gwlStyle int32 = -16

const (
	wmDestroy = 0x0002
	wmClose   = 0x0010

	swHide = 0
	swShow = 5

	wsExControlParent = 0x00010000
	blackBrush        = 4
	idcArrow          = 32512

	srcCopy      = 0x00CC0020
	biRGB        = 0
	dibRGBColors = 0
)

type winRect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

type winPoint struct {
	X int32
	Y int32
}

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	Colors [1]uint32
}

type winMsg struct {
	Hwnd     windows.HWND
	Message  uint32
	WParam   uintptr
	LParam   uintptr
	Time     uint32
	Pt       winPoint
	LPrivate uint32
}

type wndClassEx struct {
	Size       uint32
	Style      uint32
	WndProc    uintptr
	ClsExtra   int32
	WndExtra   int32
	Instance   windows.Handle
	Icon       windows.Handle
	Cursor     windows.Handle
	Background windows.Handle
	MenuName   *uint16
	ClassName  *uint16
	IconSm     windows.Handle
}

// WindowsBackend implements Native on top of user32.
type WindowsBackend struct {
	mu        sync.Mutex
	proc      WindowProc
	container WindowID

	registerOnce sync.Once
	registerErr  error
	wndProc      uintptr
}

var _ Native = (*WindowsBackend)(nil)

// NewNative returns the Win32 backend.
func NewNative() (Native, error) {
	return &WindowsBackend{}, nil
}

// Close releases nothing; handles belong to their owning processes.
func (b *WindowsBackend) Close() error { return nil }

func (b *WindowsBackend) FindWindow(title string) (WindowID, error) {
	p, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return 0, fmt.Errorf("encode title %q: %w", title, err)
	}
	r, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(p)))
	if r == 0 {
		return 0, ErrWindowNotFound
	}
	return WindowID(r), nil
}

func (b *WindowsBackend) IsWindow(id WindowID) bool {
	if id == 0 {
		return false
	}
	r, _, _ := procIsWindow.Call(uintptr(id))
	return r != 0
}

func (b *WindowsBackend) IsVisible(id WindowID) bool {
	r, _, _ := procIsWindowVisible.Call(uintptr(id))
	return r != 0
}

func (b *WindowsBackend) Parent(id WindowID) (WindowID, error) {
	r, _, err := procGetParent.Call(uintptr(id))
	if r == 0 && isErrno(err) {
		return 0, fmt.Errorf("GetParent(0x%x): %w", id, err)
	}
	return WindowID(r), nil
}

func (b *WindowsBackend) SetParent(id, parent WindowID) error {
	r, _, err := procSetParent.Call(uintptr(id), uintptr(parent))
	if r == 0 && isErrno(err) {
		return fmt.Errorf("SetParent(0x%x, 0x%x): %w", id, parent, err)
	}
	return nil
}

func (b *WindowsBackend) Style(id WindowID) (Style, error) {
	r, _, err := procGetWindowLongW.Call(uintptr(id), uintptr(gwlStyle))
	if r == 0 {
		return 0, fmt.Errorf("GetWindowLongW(0x%x): %w", id, errnoOrInvalid(err))
	}
	return Style(uint32(r)), nil
}

func (b *WindowsBackend) SetStyle(id WindowID, style Style) error {
	r, _, err := procSetWindowLongW.Call(uintptr(id), uintptr(gwlStyle), uintptr(style))
	if r == 0 && isErrno(err) {
		return fmt.Errorf("SetWindowLongW(0x%x): %w", id, err)
	}
	return nil
}

func (b *WindowsBackend) SetWindowPos(id WindowID, bounds Rect, flags PosFlag) error {
	x, y, w, h := int32(bounds.X), int32(bounds.Y), int32(bounds.Width), int32(bounds.Height)
	r, _, err := procSetWindowPos.Call(
		uintptr(id), 0,
		uintptr(x), uintptr(y), uintptr(w), uintptr(h),
		uintptr(flags),
	)
	if r == 0 {
		return fmt.Errorf("SetWindowPos(0x%x): %w", id, errnoOrInvalid(err))
	}
	return nil
}

func (b *WindowsBackend) WindowRect(id WindowID) (Rect, error) {
	var rc winRect
	r, _, err := procGetWindowRect.Call(uintptr(id), uintptr(unsafe.Pointer(&rc)))
	if r == 0 {
		return Rect{}, fmt.Errorf("GetWindowRect(0x%x): %w", id, errnoOrInvalid(err))
	}
	return Rect{
		X:      int(rc.Left),
		Y:      int(rc.Top),
		Width:  int(rc.Right - rc.Left),
		Height: int(rc.Bottom - rc.Top),
	}, nil
}

// Show and Hide return the previous visibility from ShowWindow, which is not
// an error indicator.
func (b *WindowsBackend) Show(id WindowID) error {
	if !b.IsWindow(id) {
		return fmt.Errorf("show 0x%x: %w", id, ErrWindowNotFound)
	}
	procShowWindow.Call(uintptr(id), swShow)
	return nil
}

func (b *WindowsBackend) Hide(id WindowID) error {
	if !b.IsWindow(id) {
		return fmt.Errorf("hide 0x%x: %w", id, ErrWindowNotFound)
	}
	procShowWindow.Call(uintptr(id), swHide)
	return nil
}

func (b *WindowsBackend) CurrentThreadID() uint32 {
	return windows.GetCurrentThreadId()
}

func (b *WindowsBackend) WindowThreadID(id WindowID) (uint32, error) {
	tid, err := windows.GetWindowThreadProcessId(windows.HWND(id), nil)
	if err != nil {
		return 0, fmt.Errorf("GetWindowThreadProcessId(0x%x): %w", id, err)
	}
	return tid, nil
}

func (b *WindowsBackend) SetForeground(id WindowID) bool {
	r, _, _ := procSetForegroundWindow.Call(uintptr(id))
	return r != 0
}

func (b *WindowsBackend) SetActive(id WindowID) error {
	r, _, err := procSetActiveWindow.Call(uintptr(id))
	if r == 0 && isErrno(err) {
		return fmt.Errorf("SetActiveWindow(0x%x): %w", id, err)
	}
	return nil
}

func (b *WindowsBackend) SetFocus(id WindowID) error {
	r, _, err := procSetFocus.Call(uintptr(id))
	if r == 0 && isErrno(err) {
		return fmt.Errorf("SetFocus(0x%x): %w", id, err)
	}
	return nil
}

func (b *WindowsBackend) AttachThreadInput(from, to uint32, attach bool) error {
	var flag uintptr
	if attach {
		flag = 1
	}
	r, _, err := procAttachThreadInput.Call(uintptr(from), uintptr(to), flag)
	if r == 0 {
		return fmt.Errorf("AttachThreadInput(%d, %d, %v): %w", from, to, attach, errnoOrInvalid(err))
	}
	return nil
}

func (b *WindowsBackend) register(className string) error {
	b.registerOnce.Do(func() {
		hinst, _, _ := procGetModuleHandleW.Call(0)
		name, err := windows.UTF16PtrFromString(className)
		if err != nil {
			b.registerErr = fmt.Errorf("encode class name: %w", err)
			return
		}
		cursor, _, _ := procLoadCursorW.Call(0, idcArrow)
		brush, _, _ := procGetStockObject.Call(blackBrush)

		b.wndProc = windows.NewCallback(b.dispatch)
		wc := wndClassEx{
			WndProc:    b.wndProc,
			Instance:   windows.Handle(hinst),
			Cursor:     windows.Handle(cursor),
			Background: windows.Handle(brush),
			ClassName:  name,
		}
		wc.Size = uint32(unsafe.Sizeof(wc))
		if r, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); r == 0 {
			b.registerErr = fmt.Errorf("RegisterClassExW(%s): %w", className, errnoOrInvalid(err))
		}
	})
	return b.registerErr
}

func (b *WindowsBackend) CreateContainer(spec ContainerSpec, proc WindowProc) (WindowID, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return 0, fmt.Errorf("container size %dx%d is not positive", spec.Width, spec.Height)
	}
	if err := b.register(spec.ClassName); err != nil {
		return 0, err
	}

	b.mu.Lock()
	b.proc = proc
	b.mu.Unlock()

	style := uint32(StyleOverlappedWindow | StyleVisible | StyleClipChildren | StyleClipSiblings)
	rc := winRect{Right: int32(spec.Width), Bottom: int32(spec.Height)}
	procAdjustWindowRectEx.Call(uintptr(unsafe.Pointer(&rc)), uintptr(style), 0, wsExControlParent)

	className, err := windows.UTF16PtrFromString(spec.ClassName)
	if err != nil {
		return 0, fmt.Errorf("encode class name: %w", err)
	}
	title, err := windows.UTF16PtrFromString(spec.Title)
	if err != nil {
		return 0, fmt.Errorf("encode title: %w", err)
	}
	hinst, _, _ := procGetModuleHandleW.Call(0)
	x, y := int32(spec.X), int32(spec.Y)

	hwnd, _, err := procCreateWindowExW.Call(
		wsExControlParent,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(title)),
		uintptr(style),
		uintptr(x), uintptr(y),
		uintptr(rc.Right-rc.Left), uintptr(rc.Bottom-rc.Top),
		0, 0, hinst, 0,
	)
	if hwnd == 0 {
		return 0, fmt.Errorf("CreateWindowExW: %w", errnoOrInvalid(err))
	}

	id := WindowID(hwnd)
	b.mu.Lock()
	b.container = id
	b.mu.Unlock()
	procShowWindow.Call(hwnd, swShow)
	return id, nil
}

func (b *WindowsBackend) dispatch(hwnd uintptr, msg uint32, wparam, lparam uintptr) uintptr {
	b.mu.Lock()
	proc := b.proc
	b.mu.Unlock()

	if proc != nil {
		switch msg {
		case wmClose:
			if proc.OnClose(WindowID(hwnd)) == Handled {
				procDestroyWindow.Call(hwnd)
				return 0
			}
		case wmDestroy:
			proc.OnDestroy(WindowID(hwnd))
			procPostQuitMessage.Call(0)
			return 0
		}
	}
	r, _, _ := procDefWindowProcW.Call(hwnd, uintptr(msg), wparam, lparam)
	return r
}

func (b *WindowsBackend) PumpMessages(running func() bool) error {
	var m winMsg
	for running() {
		r, _, err := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		switch int32(r) {
		case -1:
			return fmt.Errorf("GetMessageW: %w", errnoOrInvalid(err))
		case 0:
			return nil
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
	}
	return nil
}

func (b *WindowsBackend) PostClose(id WindowID) error {
	r, _, err := procPostMessageW.Call(uintptr(id), wmClose, 0, 0)
	if r == 0 {
		return fmt.Errorf("PostMessageW(0x%x, WM_CLOSE): %w", id, errnoOrInvalid(err))
	}
	return nil
}

// Capture blits the client area of id from the screen into a 32-bit
// top-down DIB and converts it to RGBA.
func (b *WindowsBackend) Capture(id WindowID) (image.Image, error) {
	var rc winRect
	if r, _, err := procGetClientRect.Call(uintptr(id), uintptr(unsafe.Pointer(&rc))); r == 0 {
		return nil, fmt.Errorf("GetClientRect(0x%x): %w", id, errnoOrInvalid(err))
	}
	width, height := int(rc.Right-rc.Left), int(rc.Bottom-rc.Top)
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("window 0x%x has empty client area %dx%d", id, width, height)
	}

	src, _, err := procGetDC.Call(uintptr(id))
	if src == 0 {
		return nil, fmt.Errorf("GetDC(0x%x): %w", id, errnoOrInvalid(err))
	}
	defer procReleaseDC.Call(uintptr(id), src)

	mem, _, err := procCreateCompatibleDC.Call(src)
	if mem == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC: %w", errnoOrInvalid(err))
	}
	defer procDeleteDC.Call(mem)

	bmp, _, err := procCreateCompatibleBmp.Call(src, uintptr(width), uintptr(height))
	if bmp == 0 {
		return nil, fmt.Errorf("CreateCompatibleBitmap: %w", errnoOrInvalid(err))
	}
	defer procDeleteObject.Call(bmp)

	old, _, _ := procSelectObject.Call(mem, bmp)
	r, _, err := procBitBlt.Call(mem, 0, 0, uintptr(width), uintptr(height), src, 0, 0, srcCopy)
	// GetDIBits needs the bitmap deselected.
	procSelectObject.Call(mem, old)
	if r == 0 {
		return nil, fmt.Errorf("BitBlt(0x%x): %w", id, errnoOrInvalid(err))
	}

	bi := bitmapInfo{Header: bitmapInfoHeader{
		Width:       int32(width),
		Height:      -int32(height),
		Planes:      1,
		BitCount:    32,
		Compression: biRGB,
	}}
	bi.Header.Size = uint32(unsafe.Sizeof(bi.Header))

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	r, _, err = procGetDIBits.Call(mem, bmp, 0, uintptr(height),
		uintptr(unsafe.Pointer(&img.Pix[0])), uintptr(unsafe.Pointer(&bi)), dibRGBColors)
	if r == 0 {
		return nil, fmt.Errorf("GetDIBits(0x%x): %w", id, errnoOrInvalid(err))
	}
	// DIB rows are BGRX; swap to RGBA in place.
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		img.Pix[i+3] = 0xff
	}
	return img, nil
}

func isErrno(err error) bool {
	errno, ok := err.(syscall.Errno)
	return ok && errno != 0
}

func errnoOrInvalid(err error) error {
	if isErrno(err) {
		return err
	}
	return syscall.EINVAL
}

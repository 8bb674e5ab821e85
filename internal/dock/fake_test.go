package dock

import (
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1broseidon/mirrordock/internal/platform"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeWindow struct {
	title   string
	parent  platform.WindowID
	style   platform.Style
	visible bool
	rect    platform.Rect
	thread  uint32
}

// fakeNative is an in-memory window system.
type fakeNative struct {
	mu      sync.Mutex
	windows map[platform.WindowID]*fakeWindow
	nextID  platform.WindowID

	setParentCalls int
	rectQueries    int
	moves          []platform.WindowID
	refreshes      int
	failMove       map[platform.WindowID]bool
	failRect       bool
	panicOnFind    bool

	currentThread  uint32
	foregroundOK   func(id platform.WindowID, attached bool) bool
	attached       bool
	attachCalls    int
	detachCalls    int
	detachFailures int
	foreground     platform.WindowID

	containerSpec platform.ContainerSpec
	proc          platform.WindowProc
	containerID   platform.WindowID
	closeCh       chan struct{}
	created       atomic.Bool
	closeOnce     sync.Once
	captures      []platform.WindowID
}

var _ platform.Native = (*fakeNative)(nil)

func newFakeNative() *fakeNative {
	return &fakeNative{
		windows:       make(map[platform.WindowID]*fakeWindow),
		nextID:        100,
		failMove:      make(map[platform.WindowID]bool),
		currentThread: 1,
		closeCh:       make(chan struct{}),
	}
}

// addWindow creates a decorated top-level window owned by another thread.
func (f *fakeNative) addWindow(title string) platform.WindowID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.windows[id] = &fakeWindow{
		title:   title,
		style:   platform.StyleOverlappedWindow | platform.StyleVisible,
		visible: true,
		thread:  2,
	}
	return id
}

func (f *fakeNative) destroy(id platform.WindowID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.windows, id)
}

func (f *fakeNative) window(id platform.WindowID) (fakeWindow, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[id]
	if !ok {
		return fakeWindow{}, false
	}
	return *w, true
}

func (f *fakeNative) parentCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setParentCalls
}

func (f *fakeNative) moveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.moves)
}

func (f *fakeNative) rectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rectQueries
}

func (f *fakeNative) FindWindow(title string) (platform.WindowID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panicOnFind {
		panic("find exploded")
	}
	for id, w := range f.windows {
		if w.title == title {
			return id, nil
		}
	}
	return 0, platform.ErrWindowNotFound
}

func (f *fakeNative) IsWindow(id platform.WindowID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.windows[id]
	return ok
}

func (f *fakeNative) IsVisible(id platform.WindowID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[id]
	return ok && w.visible
}

func (f *fakeNative) Parent(id platform.WindowID) (platform.WindowID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[id]
	if !ok {
		return 0, platform.ErrWindowNotFound
	}
	return w.parent, nil
}

func (f *fakeNative) SetParent(id, parent platform.WindowID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setParentCalls++
	w, ok := f.windows[id]
	if !ok {
		return platform.ErrWindowNotFound
	}
	w.parent = parent
	return nil
}

func (f *fakeNative) Style(id platform.WindowID) (platform.Style, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[id]
	if !ok {
		return 0, platform.ErrWindowNotFound
	}
	return w.style, nil
}

func (f *fakeNative) SetStyle(id platform.WindowID, style platform.Style) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[id]
	if !ok {
		return platform.ErrWindowNotFound
	}
	w.style = style
	return nil
}

func (f *fakeNative) SetWindowPos(id platform.WindowID, bounds platform.Rect, flags platform.PosFlag) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[id]
	if !ok {
		return platform.ErrWindowNotFound
	}
	if flags&platform.PosFrameChanged != 0 {
		f.refreshes++
		return nil
	}
	f.moves = append(f.moves, id)
	if f.failMove[id] {
		return errors.New("move refused")
	}
	w.rect = bounds
	return nil
}

func (f *fakeNative) WindowRect(id platform.WindowID) (platform.Rect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rectQueries++
	if f.failRect {
		return platform.Rect{}, errors.New("rect unavailable")
	}
	w, ok := f.windows[id]
	if !ok {
		return platform.Rect{}, platform.ErrWindowNotFound
	}
	return w.rect, nil
}

func (f *fakeNative) Show(id platform.WindowID) error { return f.setVisible(id, true) }
func (f *fakeNative) Hide(id platform.WindowID) error { return f.setVisible(id, false) }

func (f *fakeNative) setVisible(id platform.WindowID, visible bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[id]
	if !ok {
		return platform.ErrWindowNotFound
	}
	w.visible = visible
	return nil
}

func (f *fakeNative) CurrentThreadID() uint32 { return f.currentThread }

func (f *fakeNative) WindowThreadID(id platform.WindowID) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[id]
	if !ok {
		return 0, platform.ErrWindowNotFound
	}
	return w.thread, nil
}

func (f *fakeNative) SetForeground(id platform.WindowID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	ok := true
	if f.foregroundOK != nil {
		ok = f.foregroundOK(id, f.attached)
	}
	if ok {
		f.foreground = id
	}
	return ok
}

func (f *fakeNative) SetActive(platform.WindowID) error { return nil }
func (f *fakeNative) SetFocus(platform.WindowID) error  { return nil }

func (f *fakeNative) AttachThreadInput(from, to uint32, attach bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if attach {
		f.attachCalls++
		f.attached = true
		return nil
	}
	f.detachCalls++
	if f.detachFailures > 0 {
		f.detachFailures--
		return errors.New("detach refused")
	}
	f.attached = false
	return nil
}

func (f *fakeNative) CreateContainer(spec platform.ContainerSpec, proc platform.WindowProc) (platform.WindowID, error) {
	id := f.addWindow(spec.Title)
	f.mu.Lock()
	w := f.windows[id]
	w.thread = f.currentThread
	w.rect = platform.Rect{X: spec.X, Y: spec.Y, Width: spec.Width, Height: spec.Height}
	f.containerSpec = spec
	f.proc = proc
	f.containerID = id
	f.mu.Unlock()
	f.created.Store(true)
	return id, nil
}

// PumpMessages blocks until a close is posted, then dispatches close and
// destroy like the real message loop does.
func (f *fakeNative) PumpMessages(running func() bool) error {
	<-f.closeCh
	f.mu.Lock()
	proc, id := f.proc, f.containerID
	f.mu.Unlock()
	if proc.OnClose(id) == platform.PassThrough {
		f.destroy(id)
		proc.OnDestroy(id)
	}
	return nil
}

func (f *fakeNative) PostClose(platform.WindowID) error {
	f.closeOnce.Do(func() { close(f.closeCh) })
	return nil
}

func (f *fakeNative) Capture(id platform.WindowID) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[id]
	if !ok {
		return nil, platform.ErrWindowNotFound
	}
	f.captures = append(f.captures, id)
	return image.NewRGBA(image.Rect(0, 0, w.rect.Width, w.rect.Height)), nil
}

func (f *fakeNative) Close() error { return nil }

type fakeSurface struct {
	title string
	w, h  atomic.Int64
}

func newFakeSurface(title string, w, h int) *fakeSurface {
	s := &fakeSurface{title: title}
	s.w.Store(int64(w))
	s.h.Store(int64(h))
	return s
}

func (s *fakeSurface) Title() string { return s.title }

func (s *fakeSurface) NominalSize() (int, int, bool) {
	w, h := int(s.w.Load()), int(s.h.Load())
	return w, h, w > 0 && h > 0
}

// fakeClock is advanced manually.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

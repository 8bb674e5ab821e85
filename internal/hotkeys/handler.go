package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/mirrordock/internal/platform"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// ErrUnavailable is returned when the backend has no X11 connection to grab
// keys on.
var ErrUnavailable = errors.New("global hotkeys need an X11 backend")

// Toggler is driven by the toggle hotkey.
type Toggler interface {
	Toggle() string
}

// x11Accessor is an optional interface for backends that expose X11 internals.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Handler manages global keyboard shortcuts. Callbacks fire on the X event
// loop, which the container window runs.
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	logger *slog.Logger
}

var ignoreModsOnce sync.Once

// NewHandler creates a hotkey handler on backend's X11 connection.
func NewHandler(backend platform.Backend, logger *slog.Logger) (*Handler, error) {
	accessor, ok := backend.(x11Accessor)
	if !ok {
		return nil, ErrUnavailable
	}
	if logger == nil {
		logger = slog.Default()
	}
	xu := accessor.XUtil()

	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{
		xu:     xu,
		root:   accessor.RootWindow(),
		logger: logger,
	}, nil
}

// RegisterToggle binds keySequence (e.g. "Mod4-Mod1-d") to t.Toggle.
func (h *Handler) RegisterToggle(keySequence string, t Toggler) error {
	if keySequence == "" {
		return nil
	}
	if err := h.RegisterFunc(keySequence, func() {
		state := t.Toggle()
		h.logger.Info("toggle hotkey triggered", "state", state)
	}); err != nil {
		return fmt.Errorf("failed to register toggle hotkey %q: %w", keySequence, err)
	}
	h.logger.Info("toggle hotkey registered", "keys", keySequence)
	return nil
}

// RegisterFunc registers an arbitrary hotkey callback. The callback runs on
// its own goroutine so a slow action never stalls the event loop.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		go callback()
	}).Connect(h.xu, h.root, keySequence, true)
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}

package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

// ErrNoMatch is returned when no window carries the requested title.
var ErrNoMatch = errors.New("no window with matching title")

// FocusWindow activates and raises a window using _NET_ACTIVE_WINDOW.
// Sends a client message to the root window per EWMH spec.
// We build the message manually because the xgbutil ewmh helpers panic on
// this library version (uint vs int type assertion).
func (c *Connection) FocusWindow(windowID xproto.Window) error {
	atomReply, err := xproto.InternAtom(c.XUtil.Conn(), false,
		uint16(len("_NET_ACTIVE_WINDOW")), "_NET_ACTIVE_WINDOW").Reply()
	if err != nil {
		return fmt.Errorf("failed to intern _NET_ACTIVE_WINDOW: %w", err)
	}

	const sourceIndication = 2 // pager/direct action
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   atomReply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{sourceIndication, 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// RaiseWindow puts the window on top of its siblings.
func (c *Connection) RaiseWindow(windowID xproto.Window) error {
	return xproto.ConfigureWindowChecked(c.XUtil.Conn(), windowID,
		xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove}).Check()
}

// SetInputFocus gives keyboard focus to a window directly. Reparented
// children are invisible to the window manager, so _NET_ACTIVE_WINDOW does
// not reach them.
func (c *Connection) SetInputFocus(windowID xproto.Window) error {
	return xproto.SetInputFocusChecked(c.XUtil.Conn(), xproto.InputFocusParent,
		windowID, xproto.TimeCurrentTime).Check()
}

// WindowTitle returns the window title, trying EWMH first and then ICCCM.
func (c *Connection) WindowTitle(windowID xproto.Window) string {
	if name, err := ewmh.WmNameGet(c.XUtil, windowID); err == nil && name != "" {
		return name
	}
	if name, err := icccm.WmNameGet(c.XUtil, windowID); err == nil {
		return name
	}
	return ""
}

// FindWindowByTitle returns the first window whose title equals title
// exactly. The EWMH client list covers managed top-levels; extra parents are
// searched next so that windows already reparented into them (and thus
// dropped from the client list) are still found.
func (c *Connection) FindWindowByTitle(title string, extraParents ...xproto.Window) (xproto.Window, error) {
	if title == "" {
		return 0, ErrNoMatch
	}

	if clients, err := ewmh.ClientListGet(c.XUtil); err == nil {
		for _, win := range clients {
			if c.WindowTitle(win) == title {
				return win, nil
			}
		}
	}

	for _, parent := range extraParents {
		if parent == 0 {
			continue
		}
		children, err := c.Children(parent)
		if err != nil {
			continue
		}
		for _, win := range children {
			if c.WindowTitle(win) == title {
				return win, nil
			}
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrNoMatch, title)
}

package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// _MOTIF_WM_HINTS layout: flags, functions, decorations, input mode, status.
const (
	motifHintsDecorations = 1 << 1
	motifDecorAll         = 1
	motifDecorNone        = 0
)

// Exists reports whether the server still knows the window.
func (c *Connection) Exists(windowID xproto.Window) bool {
	if windowID == 0 {
		return false
	}
	_, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	return err == nil
}

// IsViewable reports whether the window and all its ancestors are mapped.
func (c *Connection) IsViewable(windowID xproto.Window) bool {
	attrs, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	if err != nil {
		return false
	}
	return attrs.MapState == xproto.MapStateViewable
}

// Parent returns the immediate parent of a window. For managed top-level
// windows this is usually the window manager's frame, not the root.
func (c *Connection) Parent(windowID xproto.Window) (xproto.Window, error) {
	tree, err := xproto.QueryTree(c.XUtil.Conn(), windowID).Reply()
	if err != nil {
		return 0, fmt.Errorf("query tree for 0x%x: %w", windowID, err)
	}
	return tree.Parent, nil
}

// Children returns the direct children of a window.
func (c *Connection) Children(windowID xproto.Window) ([]xproto.Window, error) {
	tree, err := xproto.QueryTree(c.XUtil.Conn(), windowID).Reply()
	if err != nil {
		return nil, fmt.Errorf("query tree for 0x%x: %w", windowID, err)
	}
	return tree.Children, nil
}

// Reparent moves a window under a new parent at (x, y) in the parent's
// coordinate space. The window is unmapped around the reparent so the window
// manager drops (or picks up) its frame cleanly.
func (c *Connection) Reparent(windowID, parent xproto.Window, x, y int) error {
	if parent == 0 {
		parent = c.Root
	}
	conn := c.XUtil.Conn()
	if err := xproto.UnmapWindowChecked(conn, windowID).Check(); err != nil {
		return fmt.Errorf("unmap 0x%x: %w", windowID, err)
	}
	if err := xproto.ReparentWindowChecked(conn, windowID, parent, int16(x), int16(y)).Check(); err != nil {
		return fmt.Errorf("reparent 0x%x under 0x%x: %w", windowID, parent, err)
	}
	if err := xproto.MapWindowChecked(conn, windowID).Check(); err != nil {
		return fmt.Errorf("map 0x%x: %w", windowID, err)
	}
	return nil
}

// Map shows a window.
func (c *Connection) Map(windowID xproto.Window) error {
	return xproto.MapWindowChecked(c.XUtil.Conn(), windowID).Check()
}

// Unmap hides a window without destroying it.
func (c *Connection) Unmap(windowID xproto.Window) error {
	return xproto.UnmapWindowChecked(c.XUtil.Conn(), windowID).Check()
}

// Decorated reports whether the window asks the window manager for
// decorations. Windows without _MOTIF_WM_HINTS are decorated.
func (c *Connection) Decorated(windowID xproto.Window) bool {
	reply, err := xprop.GetProperty(c.XUtil, windowID, "_MOTIF_WM_HINTS")
	if err != nil {
		return true
	}
	nums, err := xprop.PropValNums(reply, nil)
	if err != nil || len(nums) < 3 {
		return true
	}
	if nums[0]&motifHintsDecorations == 0 {
		return true
	}
	return nums[2] != motifDecorNone
}

// SetDecorated writes _MOTIF_WM_HINTS so the window manager adds or removes
// the title bar and borders. We write the property directly instead of going
// through a helper so the functions field stays untouched.
func (c *Connection) SetDecorated(windowID xproto.Window, decorated bool) error {
	decor := uint(motifDecorNone)
	if decorated {
		decor = motifDecorAll
	}
	return xprop.ChangeProp32(c.XUtil, windowID, "_MOTIF_WM_HINTS", "_MOTIF_WM_HINTS",
		motifHintsDecorations, 0, decor, 0, 0)
}

// MoveResizeWindow moves and resizes a top-level window through the window
// manager, falling back to a direct configure request.
func (c *Connection) MoveResizeWindow(windowID xproto.Window, x, y, width, height int) error {
	// Windows without _NET_WM_STATE are fine to move as-is.
	_ = c.unmaximizeWindow(windowID)

	if err := ewmh.MoveresizeWindow(c.XUtil, windowID, x, y, width, height); err != nil {
		xwindow.New(c.XUtil, windowID).MoveResize(x, y, width, height)
	}
	return nil
}

// ConfigureChild positions a window we parented ourselves. No window manager
// is involved, so the request goes straight to the server. A zero mask is a
// no-op.
func (c *Connection) ConfigureChild(windowID xproto.Window, x, y, width, height int, move, resize bool) error {
	var mask uint16
	var values []uint32
	if move {
		mask |= xproto.ConfigWindowX | xproto.ConfigWindowY
		values = append(values, uint32(int32(x)), uint32(int32(y)))
	}
	if resize {
		mask |= xproto.ConfigWindowWidth | xproto.ConfigWindowHeight
		values = append(values, uint32(width), uint32(height))
	}
	if mask == 0 {
		return nil
	}
	return xproto.ConfigureWindowChecked(c.XUtil.Conn(), windowID, mask, values).Check()
}

// ScreenRect returns the window's geometry translated to root coordinates.
func (c *Connection) ScreenRect(windowID xproto.Window) (x, y, width, height int, err error) {
	conn := c.XUtil.Conn()
	geom, err := xproto.GetGeometry(conn, xproto.Drawable(windowID)).Reply()
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("geometry of 0x%x: %w", windowID, err)
	}
	translate, err := xproto.TranslateCoordinates(conn, windowID, c.Root, 0, 0).Reply()
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("translate 0x%x: %w", windowID, err)
	}
	return int(translate.DstX), int(translate.DstY), int(geom.Width), int(geom.Height), nil
}

// unmaximizeWindow removes maximized state from a window
func (c *Connection) unmaximizeWindow(windowID xproto.Window) error {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return err
	}

	for _, state := range states {
		switch state {
		case "_NET_WM_STATE_MAXIMIZED_HORZ", "_NET_WM_STATE_MAXIMIZED_VERT":
			ewmh.WmStateReq(c.XUtil, windowID, ewmh.StateRemove, state)
		}
	}
	return nil
}

package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

const wakeAtom = "_MIRRORDOCK_WAKE"

// ContainerHooks are invoked from the event loop for the container window.
type ContainerHooks struct {
	// OnDelete runs when the window manager asks the container to close.
	// Returning true destroys the window.
	OnDelete func() bool
	// OnDestroy runs once the server has destroyed the container.
	OnDestroy func()
}

// CreateContainer creates and maps a top-level window that other clients'
// windows can be reparented into. It participates in WM_DELETE_WINDOW so the
// close button is routed through hooks.OnDelete.
func (c *Connection) CreateContainer(class, title string, x, y, width, height int, hooks ContainerHooks) (xproto.Window, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("invalid container size %dx%d", width, height)
	}

	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("generate window id: %w", err)
	}
	err = win.CreateChecked(c.Root, x, y, width, height,
		xproto.CwBackPixel|xproto.CwEventMask,
		0, xproto.EventMaskStructureNotify|xproto.EventMaskSubstructureNotify)
	if err != nil {
		return 0, fmt.Errorf("create container: %w", err)
	}

	id := win.Id
	if err := icccm.WmProtocolsSet(c.XUtil, id, []string{"WM_DELETE_WINDOW"}); err != nil {
		return 0, fmt.Errorf("set WM_PROTOCOLS: %w", err)
	}
	_ = ewmh.WmNameSet(c.XUtil, id, title)
	_ = icccm.WmNameSet(c.XUtil, id, title)
	_ = icccm.WmClassSet(c.XUtil, id, &icccm.WmClass{Instance: class, Class: class})

	xevent.ClientMessageFun(func(xu *xgbutil.XUtil, ev xevent.ClientMessageEvent) {
		if !isDeleteRequest(xu, ev) {
			return
		}
		if hooks.OnDelete == nil || hooks.OnDelete() {
			xproto.DestroyWindow(xu.Conn(), id)
		}
	}).Connect(c.XUtil, id)

	xevent.DestroyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
		if ev.Window != id {
			return
		}
		xevent.Detach(xu, id)
		if hooks.OnDestroy != nil {
			hooks.OnDestroy()
		}
	}).Connect(c.XUtil, id)

	win.Map()
	return id, nil
}

// RequestClose sends WM_DELETE_WINDOW to a window, the same message the
// window manager sends when its close button is pressed.
func (c *Connection) RequestClose(windowID xproto.Window) error {
	return c.sendProtocol(windowID, "WM_PROTOCOLS", "WM_DELETE_WINDOW")
}

// Wake delivers a no-op client message to windowID so a blocked EventLoop
// returns to check whether it should quit.
func (c *Connection) Wake(windowID xproto.Window) error {
	atom, err := xprop.Atm(c.XUtil, wakeAtom)
	if err != nil {
		return err
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{0, 0, 0, 0, 0}),
	}
	return xproto.SendEventChecked(c.XUtil.Conn(), false, windowID, 0, string(ev.Bytes())).Check()
}

func (c *Connection) sendProtocol(windowID xproto.Window, typ, protocol string) error {
	typAtom, err := xprop.Atm(c.XUtil, typ)
	if err != nil {
		return fmt.Errorf("intern %s: %w", typ, err)
	}
	protoAtom, err := xprop.Atm(c.XUtil, protocol)
	if err != nil {
		return fmt.Errorf("intern %s: %w", protocol, err)
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   typAtom,
		Data: xproto.ClientMessageDataUnionData32New([]uint32{
			uint32(protoAtom), uint32(xproto.TimeCurrentTime), 0, 0, 0,
		}),
	}
	return xproto.SendEventChecked(c.XUtil.Conn(), false, windowID, 0, string(ev.Bytes())).Check()
}

func isDeleteRequest(xu *xgbutil.XUtil, ev xevent.ClientMessageEvent) bool {
	if ev.Format != 32 {
		return false
	}
	name, err := xprop.AtomName(xu, ev.Type)
	if err != nil || name != "WM_PROTOCOLS" {
		return false
	}
	proto, err := xprop.AtomName(xu, xproto.Atom(ev.Data.Data32[0]))
	return err == nil && proto == "WM_DELETE_WINDOW"
}

package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window
}

// NewConnection establishes a connection to the X11 server. keybind is
// initialised eagerly so the toggle hotkey can be registered on the same
// connection that pumps the container's events.
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}

	keybind.Initialize(xu)

	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
	}, nil
}

// EventLoop runs the X11 event loop until Quit is called (blocking)
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Quit makes EventLoop return after the event currently being processed.
func (c *Connection) Quit() {
	xevent.Quit(c.XUtil)
}

// Flush waits until the server has processed every request sent so far.
func (c *Connection) Flush() {
	c.XUtil.Sync()
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}

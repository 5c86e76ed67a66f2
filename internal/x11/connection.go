// Package x11 implements the window-system backend over X11: display and
// window enumeration through EWMH and RandR, window geometry control, and
// global hotkeys via root-window key grabs.
package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
)

// Conn holds the X server connection and the core resources every
// component needs.
type Conn struct {
	xu   *xgbutil.XUtil
	root xproto.Window
}

// Connect establishes the X connection and initializes the keybind and
// RandR extensions.
func Connect() (*Conn, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("cannot connect to X server: %w", err)
	}

	// Needed for keysym resolution and modifier lookup.
	keybind.Initialize(xu)

	if err := randr.Init(xu.Conn()); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	return &Conn{
		xu:   xu,
		root: xu.RootWin(),
	}, nil
}

// Close disconnects from the X server.
func (c *Conn) Close() {
	c.xu.Conn().Close()
}

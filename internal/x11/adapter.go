package x11

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
	"github.com/rs/zerolog"

	"github.com/Dante983/mwm/internal/backend"
	"github.com/Dante983/mwm/internal/geom"
)

// Window types that place a window above the normal layer and outside
// management.
var overlayTypes = map[string]bool{
	"_NET_WM_WINDOW_TYPE_DESKTOP":      true,
	"_NET_WM_WINDOW_TYPE_DOCK":         true,
	"_NET_WM_WINDOW_TYPE_SPLASH":       true,
	"_NET_WM_WINDOW_TYPE_NOTIFICATION": true,
	"_NET_WM_WINDOW_TYPE_TOOLTIP":      true,
	"_NET_WM_WINDOW_TYPE_MENU":         true,
	"_NET_WM_WINDOW_TYPE_POPUP_MENU":   true,
	"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU": true,
}

// Adapter implements backend.Adapter over a shared X connection.
type Adapter struct {
	conn *Conn
	log  zerolog.Logger
}

// NewAdapter returns an adapter over conn.
func NewAdapter(conn *Conn, log zerolog.Logger) *Adapter {
	return &Adapter{conn: conn, log: log}
}

// Displays enumerates the active RandR CRTCs. The usable area of each
// display is its bounds minus any dock struts that overlap it.
func (a *Adapter) Displays() ([]backend.Display, error) {
	x := a.conn.xu.Conn()

	resources, err := randr.GetScreenResources(x, a.conn.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var primary randr.Output
	if rep, err := randr.GetOutputPrimary(x, a.conn.root).Reply(); err == nil {
		primary = rep.Output
	}

	var displays []backend.Display
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(x, crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		if info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		isPrimary := false
		for _, out := range info.Outputs {
			if out == primary {
				isPrimary = true
				break
			}
		}

		bounds := geom.Rect{
			X:      int(info.X),
			Y:      int(info.Y),
			Width:  int(info.Width),
			Height: int(info.Height),
		}
		displays = append(displays, backend.Display{
			ID:      i,
			Primary: isPrimary,
			Bounds:  bounds,
			Usable:  a.subtractStruts(bounds),
		})
	}
	if len(displays) == 0 {
		return nil, fmt.Errorf("no active displays")
	}
	return displays, nil
}

// subtractStruts shrinks a display's bounds by every dock strut that
// overlaps it, so panels never get tiled over.
func (a *Adapter) subtractStruts(bounds geom.Rect) geom.Rect {
	xu := a.conn.xu
	x := xu.Conn()

	rootGeom, err := xproto.GetGeometry(x, xproto.Drawable(a.conn.root)).Reply()
	if err != nil {
		return bounds
	}
	rootW := int(rootGeom.Width)
	rootH := int(rootGeom.Height)

	clients, err := ewmh.ClientListGet(xu)
	if err != nil {
		return bounds
	}

	usable := bounds
	for _, win := range clients {
		types, err := ewmh.WmWindowTypeGet(xu, win)
		if err != nil {
			continue
		}
		isDock := false
		for _, t := range types {
			if t == "_NET_WM_WINDOW_TYPE_DOCK" {
				isDock = true
				break
			}
		}
		if !isDock {
			continue
		}

		sp, err := ewmh.WmStrutPartialGet(xu, win)
		if err != nil {
			// Some docks only set the non-partial strut.
			s, err := ewmh.WmStrutGet(xu, win)
			if err != nil {
				continue
			}
			sp = &ewmh.WmStrutPartial{
				Left: s.Left, Right: s.Right, Top: s.Top, Bottom: s.Bottom,
				LeftStartY: 0, LeftEndY: uint(rootH - 1),
				RightStartY: 0, RightEndY: uint(rootH - 1),
				TopStartX: 0, TopEndX: uint(rootW - 1),
				BottomStartX: 0, BottomEndX: uint(rootW - 1),
			}
		}
		usable = applyStrut(usable, rootW, rootH, sp)
	}
	return usable
}

// applyStrut carves one dock's reserved edges out of the usable
// rectangle, but only where the strut's span actually overlaps it.
func applyStrut(usable geom.Rect, rootW, rootH int, sp *ewmh.WmStrutPartial) geom.Rect {
	if sp.Top > 0 {
		strut := geom.Rect{X: int(sp.TopStartX), Y: 0,
			Width: int(sp.TopEndX) - int(sp.TopStartX) + 1, Height: int(sp.Top)}
		if isect := usable.Intersect(strut); !isect.Empty() {
			usable.Y += isect.Height
			usable.Height -= isect.Height
		}
	}
	if sp.Bottom > 0 {
		strut := geom.Rect{X: int(sp.BottomStartX), Y: rootH - int(sp.Bottom),
			Width: int(sp.BottomEndX) - int(sp.BottomStartX) + 1, Height: int(sp.Bottom)}
		if isect := usable.Intersect(strut); !isect.Empty() {
			usable.Height -= isect.Height
		}
	}
	if sp.Left > 0 {
		strut := geom.Rect{X: 0, Y: int(sp.LeftStartY),
			Width: int(sp.Left), Height: int(sp.LeftEndY) - int(sp.LeftStartY) + 1}
		if isect := usable.Intersect(strut); !isect.Empty() {
			usable.X += isect.Width
			usable.Width -= isect.Width
		}
	}
	if sp.Right > 0 {
		strut := geom.Rect{X: rootW - int(sp.Right), Y: int(sp.RightStartY),
			Width: int(sp.Right), Height: int(sp.RightEndY) - int(sp.RightStartY) + 1}
		if isect := usable.Intersect(strut); !isect.Empty() {
			usable.Width -= isect.Width
		}
	}
	if usable.Width < 1 {
		usable.Width = 1
	}
	if usable.Height < 1 {
		usable.Height = 1
	}
	return usable
}

// ListWindows walks the EWMH client list. Docks, menus and other
// overlay-type windows are reported on a non-normal layer; hidden
// (minimized) windows are reported unmanageable.
func (a *Adapter) ListWindows() ([]backend.Window, error) {
	xu := a.conn.xu

	clients, err := ewmh.ClientListGet(xu)
	if err != nil {
		return nil, fmt.Errorf("failed to get client list: %w", err)
	}

	windows := make([]backend.Window, 0, len(clients))
	for _, win := range clients {
		frame, err := a.frameOf(win)
		if err != nil {
			// The window vanished mid-enumeration; skip it.
			continue
		}

		w := backend.Window{
			ID:         backend.WindowID(win),
			Layer:      backend.NormalLayer,
			Manageable: true,
			Frame:      frame,
		}

		if pid, err := ewmh.WmPidGet(xu, win); err == nil {
			w.PID = int(pid)
		}
		if name, err := ewmh.WmNameGet(xu, win); err == nil && name != "" {
			w.Title = name
		} else if name, err := icccm.WmNameGet(xu, win); err == nil {
			w.Title = name
		}

		if types, err := ewmh.WmWindowTypeGet(xu, win); err == nil {
			for _, t := range types {
				if overlayTypes[t] {
					w.Layer = backend.NormalLayer + 1
					break
				}
			}
		}
		if states, err := ewmh.WmStateGet(xu, win); err == nil {
			for _, s := range states {
				if s == "_NET_WM_STATE_HIDDEN" {
					w.Manageable = false
					break
				}
			}
		}

		windows = append(windows, w)
	}
	return windows, nil
}

// Frame returns the window's current root-relative frame.
func (a *Adapter) Frame(id backend.WindowID) (geom.Rect, error) {
	return a.frameOf(xproto.Window(id))
}

func (a *Adapter) frameOf(win xproto.Window) (geom.Rect, error) {
	x := a.conn.xu.Conn()

	g, err := xproto.GetGeometry(x, xproto.Drawable(win)).Reply()
	if err != nil {
		return geom.Rect{}, fmt.Errorf("geometry query failed: %w", err)
	}
	// Geometry is relative to the parent; translate to root coordinates.
	tr, err := xproto.TranslateCoordinates(x, win, a.conn.root, 0, 0).Reply()
	if err != nil {
		return geom.Rect{}, fmt.Errorf("coordinate translation failed: %w", err)
	}
	return geom.Rect{
		X:      int(tr.DstX),
		Y:      int(tr.DstY),
		Width:  int(g.Width),
		Height: int(g.Height),
	}, nil
}

// Move repositions a window, going through EWMH first for WM-aware
// compatibility and falling back to a direct configure.
func (a *Adapter) Move(id backend.WindowID, pos geom.Point) error {
	win := xproto.Window(id)
	if err := ewmh.MoveWindow(a.conn.xu, win, pos.X, pos.Y); err != nil {
		xwindow.New(a.conn.xu, win).Move(pos.X, pos.Y)
	}
	return nil
}

// Resize changes a window's size, unmaximizing it first so the request
// is not silently ignored.
func (a *Adapter) Resize(id backend.WindowID, size geom.Size) error {
	win := xproto.Window(id)
	a.unmaximize(win)
	if err := ewmh.ResizeWindow(a.conn.xu, win, size.Width, size.Height); err != nil {
		xwindow.New(a.conn.xu, win).Resize(size.Width, size.Height)
	}
	return nil
}

func (a *Adapter) unmaximize(win xproto.Window) {
	states, err := ewmh.WmStateGet(a.conn.xu, win)
	if err != nil {
		return
	}
	for _, s := range states {
		if s == "_NET_WM_STATE_MAXIMIZED_HORZ" || s == "_NET_WM_STATE_MAXIMIZED_VERT" {
			if err := ewmh.WmStateReq(a.conn.xu, win, 0, s); err != nil {
				a.log.Debug().Err(err).Uint32("win", uint32(win)).Msg("unmaximize failed")
			}
		}
	}
}

// RaiseAndFocus activates a window with a _NET_ACTIVE_WINDOW client
// message. The message is built manually: the ewmh helper trips a type
// assertion on this library version.
func (a *Adapter) RaiseAndFocus(id backend.WindowID) error {
	x := a.conn.xu.Conn()
	win := xproto.Window(id)

	atomReply, err := xproto.InternAtom(x, false,
		uint16(len("_NET_ACTIVE_WINDOW")), "_NET_ACTIVE_WINDOW").Reply()
	if err != nil {
		return fmt.Errorf("failed to intern _NET_ACTIVE_WINDOW: %w", err)
	}

	const sourceIndication = 2 // direct action
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   atomReply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{sourceIndication, 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		x,
		false,
		a.conn.root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// BringProcessFront raises every window owned by pid, so multi-window
// applications surface as a group.
func (a *Adapter) BringProcessFront(pid int) error {
	xu := a.conn.xu

	clients, err := ewmh.ClientListGet(xu)
	if err != nil {
		return fmt.Errorf("failed to get client list: %w", err)
	}
	for _, win := range clients {
		p, err := ewmh.WmPidGet(xu, win)
		if err != nil || int(p) != pid {
			continue
		}
		xwindow.New(xu, win).Stack(xproto.StackModeAbove)
	}
	return nil
}

// RequestClose asks the window to close via _NET_CLOSE_WINDOW. The
// window decides whether to comply.
func (a *Adapter) RequestClose(id backend.WindowID) error {
	return ewmh.CloseWindow(a.conn.xu, xproto.Window(id))
}

// ProcessName resolves a pid to its executable name through /proc.
func (a *Adapter) ProcessName(pid int) (string, error) {
	if pid <= 0 {
		return "", fmt.Errorf("invalid pid %d", pid)
	}
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/comm")
	if err != nil {
		return "", fmt.Errorf("cannot resolve pid %d: %w", pid, err)
	}
	return strings.TrimSpace(string(data)), nil
}

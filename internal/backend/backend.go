// Package backend declares the contracts for the window-system
// collaborators the manager depends on: window enumeration and geometry,
// and the global hotkey source. Implementations live in internal/x11;
// tests substitute in-memory fakes.
package backend

import (
	"context"

	"github.com/Dante983/mwm/internal/geom"
)

// WindowID is a platform-neutral, non-owning window handle. It is only
// valid for the lifetime of the underlying native window.
type WindowID uint32

// NormalLayer is the window layer of ordinary application windows.
// Windows on any other layer (docks, popups, overlays) are never managed.
const NormalLayer = 0

// Window contains the metadata and geometry reported for one on-screen
// window during enumeration.
type Window struct {
	ID         WindowID
	PID        int
	Layer      int
	Manageable bool
	Frame      geom.Rect
	Title      string
}

// Display describes a physical display and its usable work area (bounds
// minus panels/docks on the primary display).
type Display struct {
	ID      int
	Primary bool
	Bounds  geom.Rect
	Usable  geom.Rect
}

// Adapter abstracts the window-system operations the manager performs.
// All methods are synchronous; failures are reported, never fatal to the
// caller.
type Adapter interface {
	// Displays enumerates the active displays.
	Displays() ([]Display, error)

	// ListWindows enumerates the current on-screen windows. Callers
	// filter on Layer and Manageable; the adapter reports everything it
	// can see.
	ListWindows() ([]Window, error)

	// Frame returns the current frame of a window.
	Frame(id WindowID) (geom.Rect, error)

	// Move repositions a window's top-left corner.
	Move(id WindowID, pos geom.Point) error

	// Resize changes a window's size.
	Resize(id WindowID, size geom.Size) error

	// RaiseAndFocus raises the window and gives it input focus.
	RaiseAndFocus(id WindowID) error

	// BringProcessFront makes the owning process's windows frontmost.
	BringProcessFront(pid int) error

	// RequestClose asks the window to close gracefully. The window
	// disappears from a later enumeration; it is not removed here.
	RequestClose(id WindowID) error

	// ProcessName resolves a pid to its application name, used as the
	// persistence key and for rule matching.
	ProcessName(pid int) (string, error)
}

// Normalized modifier masks carried in KeyEvent.Mod. The key source maps
// whatever the platform reports onto these bits.
const (
	ModAlt     uint16 = 1 << 0
	ModSuper   uint16 = 1 << 1
	ModShift   uint16 = 1 << 2
	ModControl uint16 = 1 << 3
)

// KeyEvent is one key-down delivered by the interception mechanism.
type KeyEvent struct {
	Mod     uint16
	Keycode uint16
}

// KeySource delivers global key-down events. If the underlying
// interception mechanism reports it was disabled, Disabled fires and the
// consumer must call Rearm to keep receiving events.
type KeySource interface {
	Start(ctx context.Context) (<-chan KeyEvent, error)
	Disabled() <-chan struct{}
	Rearm() error
	Close() error
}

// KeycodeResolver maps a configured key name (for example "j", "return",
// "1") to the keycode delivered in KeyEvent. Provided by the same
// platform layer as the KeySource so the two always agree.
type KeycodeResolver interface {
	Keycode(name string) (uint16, bool)
}

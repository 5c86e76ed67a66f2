package wm

import (
	"github.com/Dante983/mwm/internal/backend"
	"github.com/Dante983/mwm/internal/geom"
)

// Client is one managed on-screen window. Clients are owned exclusively by
// the Manager's registry; Win is a non-owning handle into the geometry
// adapter.
//
// Identity is best-effort: a window is matched to its Client by owning pid
// plus frame equality, since no durable window id crosses enumerations.
// Two same-sized windows of one process can be conflated; the reconciler
// tolerates that by keeping the existing record.
type Client struct {
	Win      backend.WindowID
	PID      int
	Title    string
	Frame    geom.Rect
	Tags     uint
	Floating bool

	// parked is set while the client sits at the off-screen parking
	// position; saved then holds the frame to restore when it becomes
	// visible again.
	parked bool
	saved  geom.Rect

	// stale marks the client for reclamation during one reconciliation
	// pass; it has no meaning outside Reconcile.
	stale bool
}

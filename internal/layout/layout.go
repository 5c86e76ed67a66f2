// Package layout computes window geometry for the visible, non-floating
// clients of one monitor. All functions are pure: they take the usable
// monitor rectangle and the layout parameters and return slot rectangles
// in client order, without touching any window.
package layout

import (
	"github.com/Dante983/mwm/internal/geom"
)

// Kind selects one of the closed set of layout strategies.
type Kind int

const (
	// Tiled partitions clients into a master column and a stack column.
	Tiled Kind = iota
	// Monocle sizes every client to fill the monitor, fully overlapping.
	Monocle
	// Floating applies no automatic placement.
	Floating

	numKinds
)

// Symbol returns the status-display symbol for the layout.
func (k Kind) Symbol() string {
	switch k {
	case Tiled:
		return "[]="
	case Monocle:
		return "[M]"
	case Floating:
		return "><>"
	default:
		return "???"
	}
}

func (k Kind) String() string {
	switch k {
	case Tiled:
		return "tile"
	case Monocle:
		return "monocle"
	case Floating:
		return "float"
	default:
		return "unknown"
	}
}

// Valid reports whether k names a real layout.
func (k Kind) Valid() bool {
	return k >= 0 && k < numKinds
}

// Next returns the layout after k, wrapping around the closed set.
func (k Kind) Next() Kind {
	return (k + 1) % numKinds
}

// Params are the tunables shared by all strategies.
type Params struct {
	// MasterFraction is the share of the monitor width given to the
	// master column when a stack column exists.
	MasterFraction float64
	// MasterCount is how many clients the master column holds.
	MasterCount int
	// Gap is the pixel gap between and around windows.
	Gap int
}

// Arrange returns one rectangle per client for n clients on the given
// usable monitor rectangle, in client order. Floating returns nil: those
// clients keep their current geometry.
func Arrange(kind Kind, usable geom.Rect, n int, p Params) []geom.Rect {
	if n <= 0 {
		return nil
	}
	switch kind {
	case Tiled:
		return tile(usable, n, p)
	case Monocle:
		return monocle(usable, n, p.Gap)
	default:
		return nil
	}
}

// tile computes the master/stack split. With n <= MasterCount every client
// goes in a single full-width column; otherwise MasterCount clients share
// the master column of width (W-3g)*fraction and the rest stack in the
// remaining width. Slots are placed top to bottom with a gap between and
// around them.
func tile(m geom.Rect, n int, p Params) []geom.Rect {
	gap := p.Gap
	k := p.MasterCount

	mx := m.X + gap
	my := m.Y + gap

	rects := make([]geom.Rect, 0, n)

	if n <= k || k <= 0 {
		// All clients in the master column. A master count of zero
		// degenerates to a single column as well.
		mw := m.Width - 2*gap
		mh := (m.Height - (n+1)*gap) / n
		for i := 0; i < n; i++ {
			rects = append(rects, geom.Rect{
				X:      mx,
				Y:      my + i*(mh+gap),
				Width:  mw,
				Height: mh,
			})
		}
		return rects
	}

	mw := int(float64(m.Width-3*gap) * p.MasterFraction)
	mh := (m.Height - (k+1)*gap) / k

	sx := mx + mw + gap
	sy := my
	sw := m.Width - mw - 3*gap
	sh := (m.Height - (n-k+1)*gap) / (n - k)

	for i := 0; i < n; i++ {
		if i < k {
			rects = append(rects, geom.Rect{
				X:      mx,
				Y:      my + i*(mh+gap),
				Width:  mw,
				Height: mh,
			})
		} else {
			rects = append(rects, geom.Rect{
				X:      sx,
				Y:      sy + (i-k)*(sh+gap),
				Width:  sw,
				Height: sh,
			})
		}
	}
	return rects
}

// monocle gives every client the full usable rectangle inset by the gap.
// Clients overlap; stacking order is not managed.
func monocle(m geom.Rect, n int, gap int) []geom.Rect {
	full := geom.Rect{
		X:      m.X + gap,
		Y:      m.Y + gap,
		Width:  m.Width - 2*gap,
		Height: m.Height - 2*gap,
	}
	rects := make([]geom.Rect, n)
	for i := range rects {
		rects[i] = full
	}
	return rects
}

package wm

import (
	"github.com/Dante983/mwm/internal/geom"
)

// Monitor is one physical display. It owns a disjoint slice of the tag
// space and keeps a two-slot view history so switching back to the
// previous view is O(1). Only the view state mutates after setup.
type Monitor struct {
	ID      int
	Primary bool
	Usable  geom.Rect

	// OwnedTags is this monitor's share of the tag space. Owned tag
	// masks partition the full tag space across all monitors.
	OwnedTags uint

	tagset  [2]uint
	seltags int
}

// CurrentView returns the tag-set this monitor is showing.
func (m *Monitor) CurrentView() uint {
	return m.tagset[m.seltags]
}

// PushView swaps the history selector and records tags as the new current
// view, keeping the old view in the other slot.
func (m *Monitor) PushView(tags uint) {
	m.seltags ^= 1
	m.tagset[m.seltags] = tags
}

// ReplaceView overwrites the current view in place, without touching the
// history slot. Used by toggle-view, which amends rather than switches.
func (m *Monitor) ReplaceView(tags uint) {
	m.tagset[m.seltags] = tags
}

// partitionTags splits numTags tags into numMonitors contiguous disjoint
// masks whose union covers the whole tag space. Chunks are dealt largest
// first so the primary monitor (index 0) gets the bigger share: nine tags
// over two monitors split 5/4.
func partitionTags(numTags, numMonitors int) []uint {
	if numMonitors < 1 {
		return nil
	}
	if numMonitors > numTags {
		numMonitors = numTags
	}

	masks := make([]uint, numMonitors)
	base := numTags / numMonitors
	rem := numTags % numMonitors

	bit := 0
	for i := 0; i < numMonitors; i++ {
		size := base
		if i < rem {
			size++
		}
		var mask uint
		for j := 0; j < size; j++ {
			mask |= 1 << uint(bit)
			bit++
		}
		masks[i] = mask
	}
	return masks
}

// lowestTag returns the mask of the lowest set bit, the tag a monitor
// starts out viewing.
func lowestTag(mask uint) uint {
	return mask & (^mask + 1)
}

// Package wm holds the window management core: the client registry, the
// per-monitor tag views, the focus state machine and the arrangement
// logic that drives the geometry adapter. The Manager is single-threaded;
// the run loop serializes all calls onto one goroutine.
package wm

import (
	"errors"
	"math/bits"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Dante983/mwm/internal/backend"
	"github.com/Dante983/mwm/internal/config"
	"github.com/Dante983/mwm/internal/geom"
	"github.com/Dante983/mwm/internal/layout"
	"github.com/Dante983/mwm/internal/spawn"
	"github.com/Dante983/mwm/internal/state"
	"github.com/Dante983/mwm/internal/statusbar"
)

// Invisible clients are parked at this off-screen position instead of
// being unmapped or destroyed.
const (
	parkedX = -10000
	parkedY = -10000
)

// Runtime clamp for interactive master-fraction adjustments. Narrower
// than the configurable range so a held key can never pin a column at a
// sliver.
const (
	mfactMin = 0.1
	mfactMax = 0.9
)

// Manager owns every managed client and all view state. It talks to the
// window system exclusively through the backend.Adapter.
type Manager struct {
	log     zerolog.Logger
	adapter backend.Adapter
	status  statusbar.Display
	store   *state.Store
	cfg     *config.Config

	// clients is the registry in newest-first order; arrangement and
	// focus traversal follow this order.
	clients  []*Client
	monitors []*Monitor
	selMon   *Monitor

	sel     *Client
	lastSel *Client

	layoutKind layout.Kind
	mfact      float64
	nmaster    int
}

// NewManager enumerates the displays, partitions the tag space across
// them and returns a manager with an empty registry. The first
// reconciliation pass adopts the windows already on screen.
func NewManager(cfg *config.Config, adapter backend.Adapter, store *state.Store, status statusbar.Display, log zerolog.Logger) (*Manager, error) {
	displays, err := adapter.Displays()
	if err != nil {
		return nil, err
	}
	if len(displays) == 0 {
		return nil, errors.New("no displays to manage")
	}

	m := &Manager{
		log:        log,
		adapter:    adapter,
		status:     status,
		store:      store,
		cfg:        cfg,
		layoutKind: layout.Tiled,
		mfact:      cfg.MasterFraction,
		nmaster:    cfg.MasterCount,
	}
	m.setupMonitors(displays)
	m.updateStatus()
	return m, nil
}

// setupMonitors orders displays primary-first then left to right, and
// hands each a contiguous share of the tag space. Every monitor starts
// out viewing its lowest owned tag.
func (m *Manager) setupMonitors(displays []backend.Display) {
	sort.SliceStable(displays, func(i, j int) bool {
		if displays[i].Primary != displays[j].Primary {
			return displays[i].Primary
		}
		return displays[i].Usable.X < displays[j].Usable.X
	})

	masks := partitionTags(len(m.cfg.Tags), len(displays))

	m.monitors = make([]*Monitor, 0, len(displays))
	for i, d := range displays {
		if i >= len(masks) {
			break
		}
		mon := &Monitor{
			ID:        d.ID,
			Primary:   d.Primary,
			Usable:    d.Usable,
			OwnedTags: masks[i],
		}
		initial := lowestTag(mon.OwnedTags)
		mon.tagset[0] = initial
		mon.tagset[1] = initial
		m.monitors = append(m.monitors, mon)
		m.log.Info().
			Int("monitor", mon.ID).
			Bool("primary", mon.Primary).
			Str("tags", maskString(mon.OwnedTags)).
			Msg("monitor registered")
	}
	if len(m.monitors) > 0 {
		m.selMon = m.monitors[0]
	}
}

// isVisible reports whether c shows on any monitor's current view.
func (m *Manager) isVisible(c *Client) bool {
	for _, mon := range m.monitors {
		if c.Tags&mon.CurrentView() != 0 {
			return true
		}
	}
	return false
}

// monitorForTags returns the monitor owning any of the given tags, the
// first monitor when none does.
func (m *Manager) monitorForTags(tags uint) *Monitor {
	for _, mon := range m.monitors {
		if tags&mon.OwnedTags != 0 {
			return mon
		}
	}
	return m.monitors[0]
}

// monitorForFrame returns the monitor whose usable area overlaps the
// frame the most, falling back to the selected monitor.
func (m *Manager) monitorForFrame(frame geom.Rect) *Monitor {
	best := m.selMon
	bestArea := 0
	for _, mon := range m.monitors {
		if area := mon.Usable.Overlap(frame); area > bestArea {
			best, bestArea = mon, area
		}
	}
	if best == nil {
		best = m.monitors[0]
	}
	return best
}

// Arrange parks invisible clients off screen, applies the active layout
// to the visible tiled clients of every monitor, restores visible
// floating clients to their saved frames and refreshes the status
// display.
func (m *Manager) Arrange() {
	for _, c := range m.clients {
		if m.isVisible(c) {
			continue
		}
		if !c.parked {
			c.saved = c.Frame
			c.parked = true
		}
		target := geom.Point{X: parkedX, Y: parkedY}
		if c.Frame.Origin() != target {
			if err := m.adapter.Move(c.Win, target); err != nil {
				m.log.Debug().Err(err).Uint32("win", uint32(c.Win)).Msg("park failed")
				continue
			}
			c.Frame.X, c.Frame.Y = target.X, target.Y
		}
	}

	for _, mon := range m.monitors {
		m.arrangeMonitor(mon)
	}
	m.updateStatus()
}

func (m *Manager) arrangeMonitor(mon *Monitor) {
	var tiled []*Client
	for _, c := range m.clients {
		if c.Tags&mon.CurrentView() == 0 {
			continue
		}
		if c.Floating || m.layoutKind == layout.Floating {
			m.unpark(c)
			continue
		}
		tiled = append(tiled, c)
	}

	rects := layout.Arrange(m.layoutKind, mon.Usable, len(tiled), layout.Params{
		MasterFraction: m.mfact,
		MasterCount:    m.nmaster,
		Gap:            m.cfg.GapSize,
	})
	for i, c := range tiled {
		m.place(c, rects[i])
		c.parked = false
	}
}

// unpark restores a floating client to the frame it had before it was
// hidden. Tiled clients never take this path: the layout places them.
func (m *Manager) unpark(c *Client) {
	if !c.parked {
		return
	}
	if err := m.adapter.Move(c.Win, c.saved.Origin()); err != nil {
		m.log.Debug().Err(err).Uint32("win", uint32(c.Win)).Msg("restore failed")
		return
	}
	c.Frame.X, c.Frame.Y = c.saved.X, c.saved.Y
	c.parked = false
}

// place moves and resizes a client, recording the new frame so the next
// enumeration matches it.
func (m *Manager) place(c *Client, r geom.Rect) {
	if c.Frame == r {
		return
	}
	if err := m.adapter.Move(c.Win, r.Origin()); err != nil {
		m.log.Debug().Err(err).Uint32("win", uint32(c.Win)).Msg("move failed")
		return
	}
	if err := m.adapter.Resize(c.Win, r.Dim()); err != nil {
		m.log.Debug().Err(err).Uint32("win", uint32(c.Win)).Msg("resize failed")
		c.Frame.X, c.Frame.Y = r.X, r.Y
		return
	}
	c.Frame = r
}

// Focus makes c the selected client, remembering the previous selection
// for focus-last.
func (m *Manager) Focus(c *Client) {
	if c == nil || c == m.sel {
		return
	}
	if m.sel != nil {
		m.lastSel = m.sel
	}
	m.sel = c
	m.selMon = m.monitorForTags(c.Tags)

	if err := m.adapter.RaiseAndFocus(c.Win); err != nil {
		m.log.Debug().Err(err).Uint32("win", uint32(c.Win)).Msg("focus failed")
	}
	if err := m.adapter.BringProcessFront(c.PID); err != nil {
		m.log.Debug().Err(err).Int("pid", c.PID).Msg("activate failed")
	}
	m.updateStatus()
}

// focusVisibleOn focuses the first registry client showing on mon's
// current view. It reports whether one was found; when none is, the
// selection is left untouched.
func (m *Manager) focusVisibleOn(mon *Monitor) bool {
	if mon == nil {
		return false
	}
	for _, c := range m.clients {
		if c.Tags&mon.CurrentView() != 0 {
			m.Focus(c)
			return true
		}
	}
	return false
}

// focusAnyVisible focuses the first visible client in registry order, or
// clears the selection when nothing is visible. Used when the selected
// client itself went away.
func (m *Manager) focusAnyVisible() {
	for _, c := range m.clients {
		if m.isVisible(c) {
			m.Focus(c)
			return
		}
	}
	m.sel = nil
	m.updateStatus()
}

// visible returns the visible clients in registry order.
func (m *Manager) visible() []*Client {
	var out []*Client
	for _, c := range m.clients {
		if m.isVisible(c) {
			out = append(out, c)
		}
	}
	return out
}

// FocusNext focuses the next visible client after the selection,
// wrapping around the registry.
func (m *Manager) FocusNext() {
	m.focusStep(1)
}

// FocusPrev focuses the previous visible client, wrapping around.
func (m *Manager) FocusPrev() {
	m.focusStep(-1)
}

func (m *Manager) focusStep(dir int) {
	vis := m.visible()
	if len(vis) == 0 {
		return
	}
	idx := -1
	for i, c := range vis {
		if c == m.sel {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.Focus(vis[0])
		return
	}
	m.Focus(vis[(idx+dir+len(vis))%len(vis)])
}

// FocusLast focuses the previously selected client if it is still
// visible and managed.
func (m *Manager) FocusLast() {
	last := m.lastSel
	if last == nil || !m.managed(last) || !m.isVisible(last) {
		return
	}
	m.Focus(last)
}

// FocusLeftMonitor moves the selection to the nearest monitor to the
// left of the current one.
func (m *Manager) FocusLeftMonitor() {
	m.focusMonitor(-1)
}

// FocusRightMonitor moves the selection to the nearest monitor to the
// right of the current one.
func (m *Manager) FocusRightMonitor() {
	m.focusMonitor(1)
}

func (m *Manager) focusMonitor(dir int) {
	cur := m.selMon
	if cur == nil {
		return
	}
	var best *Monitor
	for _, mon := range m.monitors {
		if mon == cur {
			continue
		}
		if dir < 0 && mon.Usable.X < cur.Usable.X {
			if best == nil || mon.Usable.X > best.Usable.X {
				best = mon
			}
		}
		if dir > 0 && mon.Usable.X > cur.Usable.X {
			if best == nil || mon.Usable.X < best.Usable.X {
				best = mon
			}
		}
	}
	if best == nil {
		return
	}
	// Only clients belonging to the target monitor qualify; an empty
	// monitor makes the whole traversal a no-op, selection included.
	for _, c := range m.clients {
		if c.Tags&best.OwnedTags != 0 && m.isVisible(c) {
			m.Focus(c)
			return
		}
	}
}

// SwapNext exchanges the selected client with the next visible one in
// the registry and re-arranges.
func (m *Manager) SwapNext() {
	m.swapStep(1)
}

// SwapPrev exchanges the selected client with the previous visible one.
func (m *Manager) SwapPrev() {
	m.swapStep(-1)
}

func (m *Manager) swapStep(dir int) {
	if m.sel == nil {
		return
	}
	vis := m.visible()
	if len(vis) < 2 {
		return
	}
	idx := -1
	for i, c := range vis {
		if c == m.sel {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	other := vis[(idx+dir+len(vis))%len(vis)]

	i := m.indexOf(m.sel)
	j := m.indexOf(other)
	m.clients[i], m.clients[j] = m.clients[j], m.clients[i]
	m.Arrange()
}

func (m *Manager) indexOf(c *Client) int {
	for i, other := range m.clients {
		if other == c {
			return i
		}
	}
	return -1
}

func (m *Manager) managed(c *Client) bool {
	return m.indexOf(c) >= 0
}

// AdjustMasterFraction nudges the master column share by delta. Values
// that would leave the clamp range are dropped entirely rather than
// saturated, so repeated presses stop at the last valid value.
func (m *Manager) AdjustMasterFraction(delta float64) {
	f := m.mfact + delta
	if f < mfactMin || f > mfactMax {
		return
	}
	m.mfact = f
	m.Arrange()
}

// AdjustMasterCount changes how many clients the master column holds.
// The count never goes below zero.
func (m *Manager) AdjustMasterCount(delta int) {
	n := m.nmaster + delta
	if n < 0 {
		n = 0
	}
	if n == m.nmaster {
		return
	}
	m.nmaster = n
	m.Arrange()
}

// SetLayout switches to the layout at index; unknown indices are
// ignored.
func (m *Manager) SetLayout(index int) {
	k := layout.Kind(index)
	if !k.Valid() || k == m.layoutKind {
		return
	}
	m.layoutKind = k
	m.Arrange()
}

// CycleLayout advances to the next layout in the fixed cycle.
func (m *Manager) CycleLayout() {
	m.layoutKind = m.layoutKind.Next()
	m.Arrange()
}

// ToggleFloating flips the selected client between tiled and floating
// and persists the new preference.
func (m *Manager) ToggleFloating() {
	if m.sel == nil {
		return
	}
	m.sel.Floating = !m.sel.Floating
	m.Arrange()
	m.persist()
}

// KillClient asks the selected window to close. The client stays
// registered until a later reconciliation sees the window gone.
func (m *Manager) KillClient() {
	if m.sel == nil {
		return
	}
	if err := m.adapter.RequestClose(m.sel.Win); err != nil {
		m.log.Warn().Err(err).Uint32("win", uint32(m.sel.Win)).Msg("close request failed")
	}
}

// View switches the monitor owning tags to show exactly that tag-set,
// pushing the old view into the one-deep history. Viewing the already
// current set is a no-op so the history keeps pointing at the previous
// view.
func (m *Manager) View(tags uint) {
	tags &= m.cfg.TagMask()
	if tags == 0 {
		return
	}
	mon := m.monitorForTags(tags)
	if tags == mon.CurrentView() {
		return
	}
	mon.PushView(tags)
	m.selMon = mon
	m.Arrange()
	// A view with no clients keeps the current selection.
	m.focusVisibleOn(mon)
}

// ToggleView adds or removes tags from the owning monitor's current
// view in place. The result must stay non-empty and keep at least one
// tag the monitor owns; otherwise nothing changes.
func (m *Manager) ToggleView(tags uint) {
	tags &= m.cfg.TagMask()
	if tags == 0 {
		return
	}
	mon := m.monitorForTags(tags)
	next := mon.CurrentView() ^ tags
	if next == 0 || next&mon.OwnedTags == 0 {
		return
	}
	mon.ReplaceView(next)
	m.selMon = mon
	m.Arrange()
	m.focusVisibleOn(mon)
}

// Tag reassigns the selected client to the given tag-set and persists
// the placement. The client may disappear from every current view; focus
// then falls to the next visible client.
func (m *Manager) Tag(tags uint) {
	if m.sel == nil {
		return
	}
	tags &= m.cfg.TagMask()
	if tags == 0 {
		return
	}
	m.sel.Tags = tags
	m.persist()
	m.Arrange()

	// The client may have left every current view; focus then moves to
	// the next visible client on its old monitor.
	if !m.isVisible(m.sel) {
		if !m.focusVisibleOn(m.selMon) {
			m.sel = nil
			m.updateStatus()
		}
	}
}

// Spawn launches a command detached from the manager.
func (m *Manager) Spawn(cmd []string) {
	if err := spawn.Run(cmd); err != nil {
		m.log.Warn().Err(err).Strs("cmd", cmd).Msg("spawn failed")
	}
}

// persist writes every client's placement to the store, newest first so
// the per-application dedup keeps the most recent window's preference.
func (m *Manager) persist() {
	records := make([]state.Record, 0, len(m.clients))
	for _, c := range m.clients {
		app, err := m.adapter.ProcessName(c.PID)
		if err != nil || app == "" {
			continue
		}
		floating := 0
		if c.Floating {
			floating = 1
		}
		records = append(records, state.Record{App: app, Tags: c.Tags, Floating: floating})
	}
	m.store.SaveQuiet(records)
}

// updateStatus publishes the selected monitor's lowest viewed tag, the
// layout symbol and the focused window title.
func (m *Manager) updateStatus() {
	if m.status == nil || m.selMon == nil {
		return
	}
	tag := bits.TrailingZeros(m.selMon.CurrentView()) + 1
	title := ""
	if m.sel != nil {
		title = m.sel.Title
	}
	m.status.Update(tag, m.layoutKind.Symbol(), title)
}

func maskString(mask uint) string {
	var parts []string
	for t := 1; mask != 0; t++ {
		if mask&1 != 0 {
			parts = append(parts, strconv.Itoa(t))
		}
		mask >>= 1
	}
	return strings.Join(parts, ",")
}

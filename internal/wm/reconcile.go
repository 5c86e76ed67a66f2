package wm

import (
	"strings"

	"github.com/Dante983/mwm/internal/backend"
)

// Reconcile diffs the registry against one window enumeration: new
// windows are managed, windows that disappeared are dropped, surviving
// clients get their titles refreshed. It returns true when the registry
// changed. A failed enumeration skips the whole pass so a transient
// window-system hiccup never tears down managed clients.
func (m *Manager) Reconcile() bool {
	wins, err := m.adapter.ListWindows()
	if err != nil {
		m.log.Warn().Err(err).Msg("window enumeration failed, skipping pass")
		return false
	}

	for _, c := range m.clients {
		c.stale = true
	}

	changed := false
	var lastNew *Client
	for _, w := range wins {
		if w.Layer != backend.NormalLayer || !w.Manageable {
			continue
		}
		if c := m.findClient(w); c != nil {
			c.stale = false
			c.Title = w.Title
			continue
		}
		lastNew = m.manage(w)
		changed = true
	}

	for i := len(m.clients) - 1; i >= 0; i-- {
		if m.clients[i].stale {
			m.unmanage(m.clients[i])
			changed = true
		}
	}

	if changed {
		m.Arrange()
		// Focus follows the newest window of the pass; otherwise, if
		// the selected client went away, the first visible client in
		// registry order takes over.
		if lastNew != nil && m.isVisible(lastNew) {
			m.Focus(lastNew)
		} else if m.sel == nil {
			m.focusAnyVisible()
		}
	}
	return changed
}

// findClient matches an enumerated window to a registered client by
// owning pid and exact frame. No durable window id crosses enumerations,
// so the frame stands in for identity; a window that moved itself shows
// up as new and its old record ages out as stale.
func (m *Manager) findClient(w backend.Window) *Client {
	for _, c := range m.clients {
		if c.PID == w.PID && c.Frame == w.Frame {
			return c
		}
	}
	return nil
}

// manage registers a new client. Its initial tags are the current view
// of the monitor under it, overridden first by a matching configuration
// rule and then by the persisted per-application placement.
func (m *Manager) manage(w backend.Window) *Client {
	c := &Client{
		Win:   w.ID,
		PID:   w.PID,
		Title: w.Title,
		Frame: w.Frame,
		Tags:  m.monitorForFrame(w.Frame).CurrentView(),
	}

	app, err := m.adapter.ProcessName(w.PID)
	if err != nil {
		m.log.Debug().Err(err).Int("pid", w.PID).Msg("process name unresolved")
	}

	if app != "" {
		for _, rule := range m.cfg.Rules {
			if !strings.Contains(app, rule.App) {
				continue
			}
			if rule.Tags != 0 {
				c.Tags = rule.Tags & m.cfg.TagMask()
			}
			c.Floating = rule.Floating
			break
		}
		if rec, ok := m.store.Lookup(app); ok {
			if t := rec.Tags & m.cfg.TagMask(); t != 0 {
				c.Tags = t
			}
			c.Floating = rec.Floating != 0
		}
	}

	m.clients = append([]*Client{c}, m.clients...)
	m.log.Info().
		Uint32("win", uint32(c.Win)).
		Int("pid", c.PID).
		Str("app", app).
		Str("tags", maskString(c.Tags)).
		Bool("floating", c.Floating).
		Msg("managing window")
	return c
}

// unmanage drops a client from the registry without touching its
// window.
func (m *Manager) unmanage(c *Client) {
	i := m.indexOf(c)
	if i < 0 {
		return
	}
	m.clients = append(m.clients[:i], m.clients[i+1:]...)
	if m.lastSel == c {
		m.lastSel = nil
	}
	if m.sel == c {
		m.sel = nil
	}
	m.log.Info().Uint32("win", uint32(c.Win)).Int("pid", c.PID).Msg("window gone")
}

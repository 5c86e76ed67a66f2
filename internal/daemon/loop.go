// Package daemon runs the manager's event loop: a periodic
// reconciliation tick interleaved with global key events, all serialized
// onto one goroutine so the management core needs no locking.
package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Dante983/mwm/internal/backend"
	"github.com/Dante983/mwm/internal/dispatch"
)

// Reconciler is the periodic-scan side of the loop, implemented by
// wm.Manager.
type Reconciler interface {
	Reconcile() bool
}

// Loop owns the select over the tick and key channels. Everything it
// calls runs on the loop goroutine.
type Loop struct {
	interval   time.Duration
	reconciler Reconciler
	keys       backend.KeySource
	dispatcher *dispatch.Dispatcher
	log        zerolog.Logger
}

// NewLoop builds the loop. interval must be positive; it defaults to one
// second otherwise.
func NewLoop(interval time.Duration, r Reconciler, keys backend.KeySource, d *dispatch.Dispatcher, log zerolog.Logger) *Loop {
	if interval <= 0 {
		interval = time.Second
	}
	return &Loop{
		interval:   interval,
		reconciler: r,
		keys:       keys,
		dispatcher: d,
		log:        log,
	}
}

// Run starts the key source, performs an initial reconciliation pass to
// adopt windows already on screen, then blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	events, err := l.keys.Start(ctx)
	if err != nil {
		return err
	}
	defer l.keys.Close()

	l.tick()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.log.Info().Dur("interval", l.interval).Msg("event loop started")

	for {
		select {
		case <-ctx.Done():
			l.log.Info().Msg("event loop stopped")
			return nil

		case <-ticker.C:
			l.tick()

		case ev, ok := <-events:
			if !ok {
				l.log.Warn().Msg("key event channel closed")
				return nil
			}
			if l.dispatcher.Dispatch(ev) {
				l.log.Debug().
					Uint16("mod", ev.Mod).
					Uint16("keycode", ev.Keycode).
					Msg("key handled")
			}

		case <-l.keys.Disabled():
			// The interception mechanism was turned off under us;
			// re-arm so hotkeys keep working.
			l.log.Warn().Msg("key interception disabled, re-arming")
			if err := l.keys.Rearm(); err != nil {
				l.log.Error().Err(err).Msg("re-arm failed")
			}
		}
	}
}

// tick runs one reconciliation pass. A panic in the pass is contained to
// that tick; the loop keeps running.
func (l *Loop) tick() {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Interface("panic", r).Msg("reconcile panic recovered")
		}
	}()
	l.reconciler.Reconcile()
}

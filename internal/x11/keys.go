package x11

import (
	"context"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/rs/zerolog"

	"github.com/Dante983/mwm/internal/backend"
)

// Modifier bits the grabs and the event normalization both ignore:
// CapsLock and NumLock must not change what a chord means.
const ignoredMods = uint16(xproto.ModMaskLock | xproto.ModMask2)

// Keymap resolves configured key names to X keycodes. It shares the
// connection with the key source so the two always agree.
type Keymap struct {
	conn *Conn
}

// NewKeymap returns a resolver over conn.
func NewKeymap(conn *Conn) *Keymap {
	return &Keymap{conn: conn}
}

// Keycode maps a key name ("j", "return", "1") to the keycode the key
// source will deliver.
func (k *Keymap) Keycode(name string) (uint16, bool) {
	for _, sym := range keysymCandidates(name) {
		codes := keybind.StrToKeycodes(k.conn.xu, sym)
		if len(codes) > 0 && codes[0] != 0 {
			return uint16(codes[0]), true
		}
	}
	return 0, false
}

// keysymCandidates maps a lowercase config name onto the X keysym names
// to try, most specific first.
func keysymCandidates(name string) []string {
	switch name {
	case "return":
		return []string{"Return"}
	case "tab":
		return []string{"Tab"}
	case "escape":
		return []string{"Escape"}
	case "backspace":
		return []string{"BackSpace"}
	case "delete":
		return []string{"Delete"}
	case "left", "right", "up", "down":
		return []string{strings.ToUpper(name[:1]) + name[1:]}
	default:
		// Letters, digits and punctuation keysyms ("space", "comma",
		// "period") carry their lowercase name.
		return []string{name}
	}
}

// KeySource grabs a fixed set of chords on the root window and delivers
// the resulting key presses. A keyboard remap fires Disabled; Rearm
// re-establishes the grabs against the new mapping.
type KeySource struct {
	conn   *Conn
	chords []backend.KeyEvent
	log    zerolog.Logger

	events   chan backend.KeyEvent
	disabled chan struct{}
}

// NewKeySource returns a source for the given chords. Nothing is grabbed
// until Start.
func NewKeySource(conn *Conn, chords []backend.KeyEvent, log zerolog.Logger) *KeySource {
	return &KeySource{
		conn:     conn,
		chords:   chords,
		log:      log,
		events:   make(chan backend.KeyEvent, 16),
		disabled: make(chan struct{}, 1),
	}
}

// Start grabs every chord and begins delivering key presses. The event
// channel closes when the X connection dies or ctx is cancelled.
func (s *KeySource) Start(ctx context.Context) (<-chan backend.KeyEvent, error) {
	if err := s.grabAll(); err != nil {
		return nil, err
	}

	go s.readEvents(ctx)
	return s.events, nil
}

// Disabled fires when the keyboard mapping changed under the grabs.
func (s *KeySource) Disabled() <-chan struct{} {
	return s.disabled
}

// Rearm re-establishes every grab, after a mapping change.
func (s *KeySource) Rearm() error {
	s.ungrabAll()
	return s.grabAll()
}

// Close drops all grabs. The shared connection is left open for its
// owner to close.
func (s *KeySource) Close() error {
	s.ungrabAll()
	return nil
}

// grabAll grabs each chord with every ignored-modifier combination, so
// CapsLock and NumLock state never swallows a hotkey.
func (s *KeySource) grabAll() error {
	x := s.conn.xu.Conn()

	for _, chord := range s.chords {
		xmod := xModMask(chord.Mod)
		for _, extra := range ignoredVariants() {
			err := xproto.GrabKeyChecked(
				x,
				true,
				s.conn.root,
				xmod|extra,
				xproto.Keycode(chord.Keycode),
				xproto.GrabModeAsync,
				xproto.GrabModeAsync,
			).Check()
			if err != nil {
				// Another client holds this chord. Report it once and
				// keep the rest of the table working.
				s.log.Warn().
					Uint16("mod", chord.Mod).
					Uint16("keycode", chord.Keycode).
					Err(err).
					Msg("key grab failed")
				break
			}
		}
	}
	return nil
}

func (s *KeySource) ungrabAll() {
	x := s.conn.xu.Conn()
	for _, chord := range s.chords {
		xmod := xModMask(chord.Mod)
		for _, extra := range ignoredVariants() {
			xproto.UngrabKey(x, xproto.Keycode(chord.Keycode), s.conn.root, xmod|extra)
		}
	}
}

func ignoredVariants() []uint16 {
	return []uint16{
		0,
		uint16(xproto.ModMaskLock),
		uint16(xproto.ModMask2),
		uint16(xproto.ModMaskLock | xproto.ModMask2),
	}
}

// readEvents pulls raw X events off the shared connection and forwards
// the grabbed key presses, normalized.
func (s *KeySource) readEvents(ctx context.Context) {
	defer close(s.events)

	x := s.conn.xu.Conn()
	for {
		ev, xerr := x.WaitForEvent()
		if ev == nil && xerr == nil {
			s.log.Warn().Msg("X connection closed")
			return
		}
		if xerr != nil {
			s.log.Debug().Str("error", xerr.Error()).Msg("X error event")
			continue
		}

		switch e := ev.(type) {
		case xproto.KeyPressEvent:
			key := backend.KeyEvent{
				Mod:     normalizedMod(uint16(e.State)),
				Keycode: uint16(e.Detail),
			}
			select {
			case s.events <- key:
			case <-ctx.Done():
				return
			default:
				// Consumer stalled; dropping beats blocking the reader.
				s.log.Warn().Msg("key event dropped")
			}
		case xproto.MappingNotifyEvent:
			select {
			case s.disabled <- struct{}{}:
			default:
			}
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// xModMask converts the normalized modifier mask into the X one.
func xModMask(mod uint16) uint16 {
	var mask uint16
	if mod&backend.ModAlt != 0 {
		mask |= uint16(xproto.ModMask1)
	}
	if mod&backend.ModSuper != 0 {
		mask |= uint16(xproto.ModMask4)
	}
	if mod&backend.ModShift != 0 {
		mask |= uint16(xproto.ModMaskShift)
	}
	if mod&backend.ModControl != 0 {
		mask |= uint16(xproto.ModMaskControl)
	}
	return mask
}

// normalizedMod converts an X state mask into the normalized one,
// ignoring lock bits.
func normalizedMod(state uint16) uint16 {
	state &^= ignoredMods

	var mod uint16
	if state&uint16(xproto.ModMask1) != 0 {
		mod |= backend.ModAlt
	}
	if state&uint16(xproto.ModMask4) != 0 {
		mod |= backend.ModSuper
	}
	if state&uint16(xproto.ModMaskShift) != 0 {
		mod |= backend.ModShift
	}
	if state&uint16(xproto.ModMaskControl) != 0 {
		mod |= backend.ModControl
	}
	return mod
}

var _ backend.KeySource = (*KeySource)(nil)
var _ backend.KeycodeResolver = (*Keymap)(nil)

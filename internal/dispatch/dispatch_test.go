package dispatch

import (
	"testing"

	"github.com/Dante983/mwm/internal/backend"
	"github.com/Dante983/mwm/internal/config"
)

// fakeResolver maps key names to synthetic keycodes, stable per name.
type fakeResolver struct {
	codes map[string]uint16
	next  uint16
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{codes: map[string]uint16{}, next: 8}
}

func (r *fakeResolver) Keycode(name string) (uint16, bool) {
	if code, ok := r.codes[name]; ok {
		return code, true
	}
	r.next++
	r.codes[name] = r.next
	return r.next, true
}

// recorder captures which operation the dispatcher invoked.
type recorder struct {
	calls []string
	cmd   []string
	f     float64
	n     int
	mask  uint
}

func (r *recorder) Spawn(cmd []string)                 { r.calls = append(r.calls, "spawn"); r.cmd = cmd }
func (r *recorder) FocusNext()                         { r.calls = append(r.calls, "focus-next") }
func (r *recorder) FocusPrev()                         { r.calls = append(r.calls, "focus-prev") }
func (r *recorder) FocusLast()                         { r.calls = append(r.calls, "focus-last") }
func (r *recorder) FocusLeftMonitor()                  { r.calls = append(r.calls, "focus-left-mon") }
func (r *recorder) FocusRightMonitor()                 { r.calls = append(r.calls, "focus-right-mon") }
func (r *recorder) SwapNext()                          { r.calls = append(r.calls, "swap-next") }
func (r *recorder) SwapPrev()                          { r.calls = append(r.calls, "swap-prev") }
func (r *recorder) AdjustMasterFraction(delta float64) { r.calls = append(r.calls, "set-mfact"); r.f = delta }
func (r *recorder) AdjustMasterCount(delta int)        { r.calls = append(r.calls, "inc-master"); r.n = delta }
func (r *recorder) SetLayout(index int)                { r.calls = append(r.calls, "set-layout"); r.n = index }
func (r *recorder) CycleLayout()                       { r.calls = append(r.calls, "cycle-layout") }
func (r *recorder) ToggleFloating()                    { r.calls = append(r.calls, "toggle-float") }
func (r *recorder) KillClient()                        { r.calls = append(r.calls, "kill-client") }
func (r *recorder) View(tags uint)                     { r.calls = append(r.calls, "view"); r.mask = tags }
func (r *recorder) ToggleView(tags uint)               { r.calls = append(r.calls, "toggle-view"); r.mask = tags }
func (r *recorder) Tag(tags uint)                      { r.calls = append(r.calls, "tag"); r.mask = tags }

func (r *recorder) last() string {
	if len(r.calls) == 0 {
		return ""
	}
	return r.calls[len(r.calls)-1]
}

func TestBuildTableResolvesDefaults(t *testing.T) {
	cfg := config.DefaultConfig()

	table, err := BuildTable(cfg, newFakeResolver())
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}
	if len(table) != len(cfg.Bindings) {
		t.Fatalf("table has %d entries, want %d", len(table), len(cfg.Bindings))
	}
}

func TestBuildTableUnknownKey(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Bindings = []config.Binding{
		{Mods: []string{config.ModAlt}, Key: "return", Action: config.ActionSpawn},
	}

	rejectAll := keycodeFunc(func(string) (uint16, bool) { return 0, false })
	if _, err := BuildTable(cfg, rejectAll); err == nil {
		t.Fatal("expected an error for an unresolvable key")
	}
}

type keycodeFunc func(string) (uint16, bool)

func (f keycodeFunc) Keycode(name string) (uint16, bool) { return f(name) }

func TestSpawnFallsBackToTerminalCommand(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TerminalCommand = []string{"alacritty"}
	cfg.Bindings = []config.Binding{
		{Mods: []string{config.ModAlt}, Key: "return", Action: config.ActionSpawn},
		{Mods: []string{config.ModAlt}, Key: "p", Action: config.ActionSpawn, Command: []string{"dmenu_run"}},
	}

	table, err := BuildTable(cfg, newFakeResolver())
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}

	if got := table[0].Arg.(CmdArg); len(got) != 1 || got[0] != "alacritty" {
		t.Errorf("empty spawn command should default to the terminal, got %v", got)
	}
	if got := table[1].Arg.(CmdArg); len(got) != 1 || got[0] != "dmenu_run" {
		t.Errorf("explicit spawn command lost: %v", got)
	}
}

func TestTagBindingsCarryMasks(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Bindings = []config.Binding{
		{Mods: []string{config.ModAlt}, Key: "3", Action: config.ActionView, Tag: 3},
		{Mods: []string{config.ModAlt, config.ModShift}, Key: "9", Action: config.ActionTag, Tag: 9},
	}

	table, err := BuildTable(cfg, newFakeResolver())
	if err != nil {
		t.Fatalf("BuildTable failed: %v", err)
	}
	if mask := table[0].Arg.(MaskArg); uint(mask) != 1<<2 {
		t.Errorf("view tag 3 mask = %b, want %b", mask, 1<<2)
	}
	if mask := table[1].Arg.(MaskArg); uint(mask) != 1<<8 {
		t.Errorf("tag 9 mask = %b, want %b", mask, 1<<8)
	}
}

func TestLookupFirstMatchWins(t *testing.T) {
	table := Table{
		{Mod: backend.ModAlt, Keycode: 44, Action: ActionFocusNext, Arg: NoArg{}},
		{Mod: backend.ModAlt, Keycode: 44, Action: ActionFocusPrev, Arg: NoArg{}},
	}

	b, ok := table.Lookup(backend.KeyEvent{Mod: backend.ModAlt, Keycode: 44})
	if !ok {
		t.Fatal("expected a match")
	}
	if b.Action != ActionFocusNext {
		t.Error("first matching entry must win")
	}
}

func TestLookupRequiresExactModifiers(t *testing.T) {
	table := Table{
		{Mod: backend.ModAlt, Keycode: 44, Action: ActionFocusNext, Arg: NoArg{}},
	}

	if _, ok := table.Lookup(backend.KeyEvent{Mod: backend.ModAlt | backend.ModShift, Keycode: 44}); ok {
		t.Error("extra modifiers must not match")
	}
	if _, ok := table.Lookup(backend.KeyEvent{Mod: 0, Keycode: 44}); ok {
		t.Error("missing modifiers must not match")
	}
}

func TestDispatchInvokesBoundAction(t *testing.T) {
	rec := &recorder{}
	table := Table{
		{Mod: backend.ModAlt, Keycode: 44, Action: ActionFocusNext, Arg: NoArg{}},
		{Mod: backend.ModAlt, Keycode: 43, Action: ActionSetMfact, Arg: FloatArg(-0.05)},
		{Mod: backend.ModAlt | backend.ModShift, Keycode: 10, Action: ActionTag, Arg: MaskArg(1)},
		{Mod: backend.ModAlt, Keycode: 36, Action: ActionSpawn, Arg: CmdArg{"xterm"}},
	}
	d := NewDispatcher(table, rec, nil)

	if !d.Dispatch(backend.KeyEvent{Mod: backend.ModAlt, Keycode: 44}) {
		t.Fatal("bound event should be consumed")
	}
	if rec.last() != "focus-next" {
		t.Errorf("invoked %q, want focus-next", rec.last())
	}

	d.Dispatch(backend.KeyEvent{Mod: backend.ModAlt, Keycode: 43})
	if rec.last() != "set-mfact" || rec.f != -0.05 {
		t.Errorf("set-mfact arg = %v", rec.f)
	}

	d.Dispatch(backend.KeyEvent{Mod: backend.ModAlt | backend.ModShift, Keycode: 10})
	if rec.last() != "tag" || rec.mask != 1 {
		t.Errorf("tag arg = %b", rec.mask)
	}

	d.Dispatch(backend.KeyEvent{Mod: backend.ModAlt, Keycode: 36})
	if rec.last() != "spawn" || len(rec.cmd) != 1 || rec.cmd[0] != "xterm" {
		t.Errorf("spawn arg = %v", rec.cmd)
	}
}

func TestDispatchPassesUnboundEventsThrough(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(Table{}, rec, nil)

	if d.Dispatch(backend.KeyEvent{Mod: backend.ModAlt, Keycode: 44}) {
		t.Error("unbound event must not be consumed")
	}
	if len(rec.calls) != 0 {
		t.Errorf("unexpected calls: %v", rec.calls)
	}
}

func TestDispatchQuit(t *testing.T) {
	quit := false
	table := Table{
		{Mod: backend.ModAlt | backend.ModShift, Keycode: 24, Action: ActionQuit, Arg: NoArg{}},
	}
	d := NewDispatcher(table, &recorder{}, func() { quit = true })

	d.Dispatch(backend.KeyEvent{Mod: backend.ModAlt | backend.ModShift, Keycode: 24})
	if !quit {
		t.Error("quit binding did not invoke the quit callback")
	}
}

func TestModMask(t *testing.T) {
	mask, err := ModMask([]string{config.ModAlt, config.ModShift})
	if err != nil {
		t.Fatalf("ModMask failed: %v", err)
	}
	if mask != backend.ModAlt|backend.ModShift {
		t.Errorf("mask = %b", mask)
	}

	if _, err := ModMask([]string{"hyper"}); err == nil {
		t.Error("unknown modifier should error")
	}
}

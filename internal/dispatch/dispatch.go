// Package dispatch routes key events to manager actions through a static,
// ordered binding table. Lookup is an exact match on (modifier mask,
// keycode); the first matching entry wins, so table order encodes priority
// for accidental duplicates.
package dispatch

import (
	"fmt"

	"github.com/Dante983/mwm/internal/backend"
	"github.com/Dante983/mwm/internal/config"
)

// Action is the closed set of operations a binding can invoke.
type Action int

const (
	ActionSpawn Action = iota
	ActionFocusNext
	ActionFocusPrev
	ActionFocusLast
	ActionFocusLeftMon
	ActionFocusRightMon
	ActionSwapNext
	ActionSwapPrev
	ActionSetMfact
	ActionIncMaster
	ActionSetLayout
	ActionCycleLayout
	ActionToggleFloat
	ActionKillClient
	ActionView
	ActionToggleView
	ActionTag
	ActionQuit
)

// Arg is the typed argument attached to a binding. Exactly one concrete
// type is used per action shape.
type Arg interface {
	isArg()
}

// NoArg is used by actions that take no argument.
type NoArg struct{}

// IntArg is an integer delta (master count) or index (layout).
type IntArg int

// MaskArg is a tag-set bitmask.
type MaskArg uint

// FloatArg is a fractional delta (master fraction).
type FloatArg float64

// CmdArg is an argv-style command line for spawn.
type CmdArg []string

func (NoArg) isArg()    {}
func (IntArg) isArg()   {}
func (MaskArg) isArg()  {}
func (FloatArg) isArg() {}
func (CmdArg) isArg()   {}

// Binding is one resolved table entry.
type Binding struct {
	Mod     uint16
	Keycode uint16
	Action  Action
	Arg     Arg
}

// Table is the ordered binding table.
type Table []Binding

// Lookup returns the first binding matching the event exactly, if any.
func (t Table) Lookup(ev backend.KeyEvent) (Binding, bool) {
	for _, b := range t {
		if b.Keycode == ev.Keycode && b.Mod == ev.Mod {
			return b, true
		}
	}
	return Binding{}, false
}

// ModMask converts configured modifier names into the normalized mask.
func ModMask(mods []string) (uint16, error) {
	var mask uint16
	for _, mod := range mods {
		switch mod {
		case config.ModAlt:
			mask |= backend.ModAlt
		case config.ModSuper:
			mask |= backend.ModSuper
		case config.ModShift:
			mask |= backend.ModShift
		case config.ModControl:
			mask |= backend.ModControl
		default:
			return 0, fmt.Errorf("unknown modifier %q", mod)
		}
	}
	return mask, nil
}

// BuildTable resolves the configured bindings into a dispatch table,
// mapping key names to keycodes through the resolver and config arguments
// into typed Args. Binding order is preserved.
func BuildTable(cfg *config.Config, resolver backend.KeycodeResolver) (Table, error) {
	table := make(Table, 0, len(cfg.Bindings))

	for i, b := range cfg.Bindings {
		mask, err := ModMask(b.Mods)
		if err != nil {
			return nil, fmt.Errorf("bindings[%d]: %w", i, err)
		}
		keycode, ok := resolver.Keycode(b.Key)
		if !ok {
			return nil, fmt.Errorf("bindings[%d]: unknown key %q", i, b.Key)
		}
		action, arg, err := resolveAction(cfg, &b)
		if err != nil {
			return nil, fmt.Errorf("bindings[%d]: %w", i, err)
		}
		table = append(table, Binding{
			Mod:     mask,
			Keycode: keycode,
			Action:  action,
			Arg:     arg,
		})
	}
	return table, nil
}

func resolveAction(cfg *config.Config, b *config.Binding) (Action, Arg, error) {
	switch b.Action {
	case config.ActionSpawn:
		cmd := b.Command
		if len(cmd) == 0 {
			cmd = cfg.TerminalCommand
		}
		return ActionSpawn, CmdArg(cmd), nil
	case config.ActionFocusNext:
		return ActionFocusNext, NoArg{}, nil
	case config.ActionFocusPrev:
		return ActionFocusPrev, NoArg{}, nil
	case config.ActionFocusLast:
		return ActionFocusLast, NoArg{}, nil
	case config.ActionFocusLeftMon:
		return ActionFocusLeftMon, NoArg{}, nil
	case config.ActionFocusRightMon:
		return ActionFocusRightMon, NoArg{}, nil
	case config.ActionSwapNext:
		return ActionSwapNext, NoArg{}, nil
	case config.ActionSwapPrev:
		return ActionSwapPrev, NoArg{}, nil
	case config.ActionSetMfact:
		return ActionSetMfact, FloatArg(b.Delta), nil
	case config.ActionIncMaster:
		return ActionIncMaster, IntArg(int(b.Delta)), nil
	case config.ActionSetLayout:
		idx, err := layoutIndex(b.Layout)
		if err != nil {
			return 0, nil, err
		}
		return ActionSetLayout, IntArg(idx), nil
	case config.ActionCycleLayout:
		return ActionCycleLayout, NoArg{}, nil
	case config.ActionToggleFloat:
		return ActionToggleFloat, NoArg{}, nil
	case config.ActionKillClient:
		return ActionKillClient, NoArg{}, nil
	case config.ActionView:
		return ActionView, MaskArg(1 << uint(b.Tag-1)), nil
	case config.ActionToggleView:
		return ActionToggleView, MaskArg(1 << uint(b.Tag-1)), nil
	case config.ActionTag:
		return ActionTag, MaskArg(1 << uint(b.Tag-1)), nil
	case config.ActionQuit:
		return ActionQuit, NoArg{}, nil
	default:
		return 0, nil, fmt.Errorf("unknown action %q", b.Action)
	}
}

func layoutIndex(name string) (int, error) {
	switch name {
	case config.LayoutTiled:
		return 0, nil
	case config.LayoutMonocle:
		return 1, nil
	case config.LayoutFloating:
		return 2, nil
	default:
		return 0, fmt.Errorf("unknown layout %q", name)
	}
}

// Ops is the set of manager operations the dispatcher invokes. Implemented
// by wm.Manager; tests substitute a recorder.
type Ops interface {
	Spawn(cmd []string)
	FocusNext()
	FocusPrev()
	FocusLast()
	FocusLeftMonitor()
	FocusRightMonitor()
	SwapNext()
	SwapPrev()
	AdjustMasterFraction(delta float64)
	AdjustMasterCount(delta int)
	SetLayout(index int)
	CycleLayout()
	ToggleFloating()
	KillClient()
	View(tags uint)
	ToggleView(tags uint)
	Tag(tags uint)
}

// Dispatcher matches key events against the table and invokes the bound
// operation synchronously on the calling goroutine.
type Dispatcher struct {
	table Table
	ops   Ops
	quit  func()
}

// NewDispatcher builds a dispatcher over a resolved table. quit is called
// for ActionQuit bindings.
func NewDispatcher(table Table, ops Ops, quit func()) *Dispatcher {
	return &Dispatcher{table: table, ops: ops, quit: quit}
}

// Dispatch handles one key event. It returns true when the event matched a
// binding and was consumed; unmatched events pass through unmodified.
func (d *Dispatcher) Dispatch(ev backend.KeyEvent) bool {
	b, ok := d.table.Lookup(ev)
	if !ok {
		return false
	}
	d.invoke(b)
	return true
}

func (d *Dispatcher) invoke(b Binding) {
	switch b.Action {
	case ActionSpawn:
		if cmd, ok := b.Arg.(CmdArg); ok {
			d.ops.Spawn(cmd)
		}
	case ActionFocusNext:
		d.ops.FocusNext()
	case ActionFocusPrev:
		d.ops.FocusPrev()
	case ActionFocusLast:
		d.ops.FocusLast()
	case ActionFocusLeftMon:
		d.ops.FocusLeftMonitor()
	case ActionFocusRightMon:
		d.ops.FocusRightMonitor()
	case ActionSwapNext:
		d.ops.SwapNext()
	case ActionSwapPrev:
		d.ops.SwapPrev()
	case ActionSetMfact:
		if delta, ok := b.Arg.(FloatArg); ok {
			d.ops.AdjustMasterFraction(float64(delta))
		}
	case ActionIncMaster:
		if delta, ok := b.Arg.(IntArg); ok {
			d.ops.AdjustMasterCount(int(delta))
		}
	case ActionSetLayout:
		if idx, ok := b.Arg.(IntArg); ok {
			d.ops.SetLayout(int(idx))
		}
	case ActionCycleLayout:
		d.ops.CycleLayout()
	case ActionToggleFloat:
		d.ops.ToggleFloating()
	case ActionKillClient:
		d.ops.KillClient()
	case ActionView:
		if mask, ok := b.Arg.(MaskArg); ok {
			d.ops.View(uint(mask))
		}
	case ActionToggleView:
		if mask, ok := b.Arg.(MaskArg); ok {
			d.ops.ToggleView(uint(mask))
		}
	case ActionTag:
		if mask, ok := b.Arg.(MaskArg); ok {
			d.ops.Tag(uint(mask))
		}
	case ActionQuit:
		if d.quit != nil {
			d.quit()
		}
	}
}

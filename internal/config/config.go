package config

import (
	"fmt"
	"strings"
)

// Bounds for the master fraction. The configured default must stay inside
// the wide range; interactive adjustments are clamped to the narrow one at
// runtime.
const (
	MinMasterFraction = 0.05
	MaxMasterFraction = 0.95
)

// MaxTags is the widest tag space the bitmask representation supports.
const MaxTags = 32

// Rule maps an application to an initial tag-set and floating flag. App is
// matched as a substring of the application name; Tags == 0 means "keep the
// current view's tags".
type Rule struct {
	App      string `yaml:"app"`
	Tags     uint   `yaml:"tags"`
	Floating bool   `yaml:"floating"`
}

// Binding maps a modifier chord and key to an action. The argument fields
// are action-specific: Tag for view/toggle-view/tag (1-based tag number),
// Delta for set-mfact/inc-master, Layout for set-layout, Command for spawn.
type Binding struct {
	Mods    []string `yaml:"mods"`
	Key     string   `yaml:"key"`
	Action  string   `yaml:"action"`
	Tag     int      `yaml:"tag,omitempty"`
	Delta   float64  `yaml:"delta,omitempty"`
	Layout  string   `yaml:"layout,omitempty"`
	Command []string `yaml:"command,omitempty"`
}

// Actions a binding may name.
const (
	ActionSpawn         = "spawn"
	ActionFocusNext     = "focus-next"
	ActionFocusPrev     = "focus-prev"
	ActionFocusLast     = "focus-last"
	ActionFocusLeftMon  = "focus-left-mon"
	ActionFocusRightMon = "focus-right-mon"
	ActionSwapNext      = "swap-next"
	ActionSwapPrev      = "swap-prev"
	ActionSetMfact      = "set-mfact"
	ActionIncMaster     = "inc-master"
	ActionSetLayout     = "set-layout"
	ActionCycleLayout   = "cycle-layout"
	ActionToggleFloat   = "toggle-float"
	ActionKillClient    = "kill-client"
	ActionView          = "view"
	ActionToggleView    = "toggle-view"
	ActionTag           = "tag"
	ActionQuit          = "quit"
)

// Modifier names accepted in Binding.Mods.
const (
	ModAlt     = "mod1"
	ModSuper   = "mod4"
	ModShift   = "shift"
	ModControl = "control"
)

// Layout names accepted by set-layout bindings.
const (
	LayoutTiled    = "tile"
	LayoutMonocle  = "monocle"
	LayoutFloating = "float"
)

// Config holds the manager configuration. Every field has a built-in
// default; an absent config file yields a fully working setup.
type Config struct {
	GapSize             int       `yaml:"gap_size"`
	BorderSize          int       `yaml:"border_size"`
	MasterFraction      float64   `yaml:"master_fraction"`
	MasterCount         int       `yaml:"master_count"`
	ScanIntervalSeconds int       `yaml:"scan_interval_seconds"`
	LogLevel            string    `yaml:"log_level"`
	Tags                []string  `yaml:"tags"`
	TerminalCommand     []string  `yaml:"terminal_command"`
	Rules               []Rule    `yaml:"rules,omitempty"`
	Bindings            []Binding `yaml:"bindings,omitempty"`
}

// TagMask returns the bitmask covering the full configured tag space.
func (c *Config) TagMask() uint {
	return (1 << uint(len(c.Tags))) - 1
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		GapSize:             10,
		BorderSize:          2,
		MasterFraction:      0.55,
		MasterCount:         1,
		ScanIntervalSeconds: 1,
		LogLevel:            "info",
		Tags:                []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"},
		TerminalCommand:     []string{"x-terminal-emulator"},
		Rules: []Rule{
			{App: "Settings", Floating: true},
			{App: "Calculator", Floating: true},
			{App: "pavucontrol", Floating: true},
		},
		Bindings: defaultBindings(),
	}
}

// defaultBindings is the dwm-style table: one chord per action, plus the
// per-tag view/tag/toggle-view triple for every tag number.
func defaultBindings() []Binding {
	mod := ModAlt

	bindings := []Binding{
		{Mods: []string{mod}, Key: "return", Action: ActionSpawn},
		{Mods: []string{mod}, Key: "j", Action: ActionFocusNext},
		{Mods: []string{mod}, Key: "k", Action: ActionFocusPrev},
		{Mods: []string{mod, ModShift}, Key: "j", Action: ActionSwapNext},
		{Mods: []string{mod, ModShift}, Key: "k", Action: ActionSwapPrev},
		{Mods: []string{mod}, Key: "h", Action: ActionSetMfact, Delta: -0.05},
		{Mods: []string{mod}, Key: "l", Action: ActionSetMfact, Delta: 0.05},
		{Mods: []string{mod}, Key: "i", Action: ActionIncMaster, Delta: 1},
		{Mods: []string{mod}, Key: "d", Action: ActionIncMaster, Delta: -1},
		{Mods: []string{mod, ModShift}, Key: "c", Action: ActionKillClient},
		{Mods: []string{mod}, Key: "t", Action: ActionSetLayout, Layout: LayoutTiled},
		{Mods: []string{mod}, Key: "m", Action: ActionSetLayout, Layout: LayoutMonocle},
		{Mods: []string{mod}, Key: "f", Action: ActionSetLayout, Layout: LayoutFloating},
		{Mods: []string{mod}, Key: "space", Action: ActionCycleLayout},
		{Mods: []string{mod, ModShift}, Key: "space", Action: ActionToggleFloat},
		{Mods: []string{mod}, Key: "tab", Action: ActionFocusLast},
		{Mods: []string{mod}, Key: "comma", Action: ActionFocusLeftMon},
		{Mods: []string{mod}, Key: "period", Action: ActionFocusRightMon},
		{Mods: []string{mod, ModShift}, Key: "q", Action: ActionQuit},
	}

	for i := 1; i <= 9; i++ {
		key := fmt.Sprintf("%d", i)
		bindings = append(bindings,
			Binding{Mods: []string{mod}, Key: key, Action: ActionView, Tag: i},
			Binding{Mods: []string{mod, ModShift}, Key: key, Action: ActionTag, Tag: i},
			Binding{Mods: []string{mod, ModControl}, Key: key, Action: ActionToggleView, Tag: i},
		)
	}

	return bindings
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if c.GapSize < 0 {
		return &ValidationError{Path: "gap_size", Err: fmt.Errorf("gap_size must be >= 0")}
	}
	if c.BorderSize < 0 {
		return &ValidationError{Path: "border_size", Err: fmt.Errorf("border_size must be >= 0")}
	}
	if c.MasterFraction < MinMasterFraction || c.MasterFraction > MaxMasterFraction {
		return &ValidationError{Path: "master_fraction", Err: fmt.Errorf("master_fraction must be between %.2f and %.2f", MinMasterFraction, MaxMasterFraction)}
	}
	if c.MasterCount < 0 {
		return &ValidationError{Path: "master_count", Err: fmt.Errorf("master_count must be >= 0")}
	}
	if c.ScanIntervalSeconds <= 0 {
		return &ValidationError{Path: "scan_interval_seconds", Err: fmt.Errorf("scan_interval_seconds must be > 0")}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	if len(c.Tags) == 0 {
		return &ValidationError{Path: "tags", Err: fmt.Errorf("tags must not be empty")}
	}
	if len(c.Tags) > MaxTags {
		return &ValidationError{Path: "tags", Err: fmt.Errorf("at most %d tags are supported", MaxTags)}
	}
	for i, name := range c.Tags {
		if strings.TrimSpace(name) == "" {
			return &ValidationError{Path: fmt.Sprintf("tags[%d]", i), Err: fmt.Errorf("tag name must not be empty")}
		}
	}
	if len(c.TerminalCommand) == 0 {
		return &ValidationError{Path: "terminal_command", Err: fmt.Errorf("terminal_command must not be empty")}
	}
	for i, rule := range c.Rules {
		if strings.TrimSpace(rule.App) == "" {
			return &ValidationError{Path: fmt.Sprintf("rules[%d].app", i), Err: fmt.Errorf("rule app must not be empty")}
		}
		if rule.Tags > c.TagMask() {
			return &ValidationError{Path: fmt.Sprintf("rules[%d].tags", i), Err: fmt.Errorf("tags 0x%x outside the configured tag space", rule.Tags)}
		}
	}
	for i, b := range c.Bindings {
		if err := c.validateBinding(&b); err != nil {
			return &ValidationError{Path: fmt.Sprintf("bindings[%d]", i), Err: err}
		}
	}
	return nil
}

func (c *Config) validateBinding(b *Binding) error {
	if strings.TrimSpace(b.Key) == "" {
		return fmt.Errorf("key is required")
	}
	for _, mod := range b.Mods {
		switch mod {
		case ModAlt, ModSuper, ModShift, ModControl:
		default:
			return fmt.Errorf("unknown modifier %q", mod)
		}
	}

	switch b.Action {
	case ActionView, ActionToggleView, ActionTag:
		if b.Tag < 1 || b.Tag > len(c.Tags) {
			return fmt.Errorf("action %q needs tag between 1 and %d", b.Action, len(c.Tags))
		}
	case ActionSetMfact:
		if b.Delta == 0 {
			return fmt.Errorf("set-mfact needs a non-zero delta")
		}
	case ActionIncMaster:
		if b.Delta != float64(int(b.Delta)) || b.Delta == 0 {
			return fmt.Errorf("inc-master needs a non-zero integer delta")
		}
	case ActionSetLayout:
		switch b.Layout {
		case LayoutTiled, LayoutMonocle, LayoutFloating:
		default:
			return fmt.Errorf("unknown layout %q", b.Layout)
		}
	case ActionSpawn, ActionFocusNext, ActionFocusPrev, ActionFocusLast,
		ActionFocusLeftMon, ActionFocusRightMon, ActionSwapNext, ActionSwapPrev,
		ActionCycleLayout, ActionToggleFloat, ActionKillClient, ActionQuit:
	default:
		return fmt.Errorf("unknown action %q", b.Action)
	}
	return nil
}

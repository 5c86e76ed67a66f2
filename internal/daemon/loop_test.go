package daemon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Dante983/mwm/internal/backend"
	"github.com/Dante983/mwm/internal/dispatch"
)

type countingReconciler struct {
	passes atomic.Int64
	panics atomic.Int64
}

func (c *countingReconciler) Reconcile() bool {
	if c.panics.Load() > 0 {
		c.panics.Add(-1)
		panic("synthetic failure")
	}
	c.passes.Add(1)
	return false
}

type fakeKeySource struct {
	events   chan backend.KeyEvent
	disabled chan struct{}
	rearmed  atomic.Int64
	closed   atomic.Bool
}

func newFakeKeySource() *fakeKeySource {
	return &fakeKeySource{
		events:   make(chan backend.KeyEvent, 4),
		disabled: make(chan struct{}, 1),
	}
}

func (f *fakeKeySource) Start(ctx context.Context) (<-chan backend.KeyEvent, error) {
	return f.events, nil
}
func (f *fakeKeySource) Disabled() <-chan struct{} { return f.disabled }
func (f *fakeKeySource) Rearm() error              { f.rearmed.Add(1); return nil }
func (f *fakeKeySource) Close() error              { f.closed.Store(true); return nil }

type countingOps struct {
	focusNext atomic.Int64
}

func (c *countingOps) Spawn([]string)                {}
func (c *countingOps) FocusNext()                    { c.focusNext.Add(1) }
func (c *countingOps) FocusPrev()                    {}
func (c *countingOps) FocusLast()                    {}
func (c *countingOps) FocusLeftMonitor()             {}
func (c *countingOps) FocusRightMonitor()            {}
func (c *countingOps) SwapNext()                     {}
func (c *countingOps) SwapPrev()                     {}
func (c *countingOps) AdjustMasterFraction(float64)  {}
func (c *countingOps) AdjustMasterCount(int)         {}
func (c *countingOps) SetLayout(int)                 {}
func (c *countingOps) CycleLayout()                  {}
func (c *countingOps) ToggleFloating()               {}
func (c *countingOps) KillClient()                   {}
func (c *countingOps) View(uint)                     {}
func (c *countingOps) ToggleView(uint)               {}
func (c *countingOps) Tag(uint)                      {}

func newTestLoop(r Reconciler, keys backend.KeySource, ops dispatch.Ops, interval time.Duration) *Loop {
	table := dispatch.Table{
		{Mod: backend.ModAlt, Keycode: 44, Action: dispatch.ActionFocusNext, Arg: dispatch.NoArg{}},
	}
	d := dispatch.NewDispatcher(table, ops, nil)
	return NewLoop(interval, r, keys, d, zerolog.Nop())
}

func TestLoopRunsInitialPassAndStops(t *testing.T) {
	rec := &countingReconciler{}
	keys := newFakeKeySource()
	loop := newTestLoop(rec, keys, &countingOps{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	waitFor(t, func() bool { return rec.passes.Load() >= 1 })
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if !keys.closed.Load() {
		t.Error("key source not closed on shutdown")
	}
}

func TestLoopDispatchesKeyEvents(t *testing.T) {
	rec := &countingReconciler{}
	keys := newFakeKeySource()
	ops := &countingOps{}
	loop := newTestLoop(rec, keys, ops, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	keys.events <- backend.KeyEvent{Mod: backend.ModAlt, Keycode: 44}
	waitFor(t, func() bool { return ops.focusNext.Load() == 1 })

	// Unbound events pass through without effect.
	keys.events <- backend.KeyEvent{Mod: backend.ModAlt, Keycode: 99}
	time.Sleep(20 * time.Millisecond)
	if got := ops.focusNext.Load(); got != 1 {
		t.Errorf("focus-next invoked %d times, want 1", got)
	}
}

func TestLoopRearmsDisabledKeySource(t *testing.T) {
	rec := &countingReconciler{}
	keys := newFakeKeySource()
	loop := newTestLoop(rec, keys, &countingOps{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	keys.disabled <- struct{}{}
	waitFor(t, func() bool { return keys.rearmed.Load() == 1 })
}

func TestLoopSurvivesReconcilePanic(t *testing.T) {
	rec := &countingReconciler{}
	rec.panics.Store(1) // first pass panics
	keys := newFakeKeySource()
	loop := newTestLoop(rec, keys, &countingOps{}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	// Later ticks keep running after the panic was contained.
	waitFor(t, func() bool { return rec.passes.Load() >= 2 })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

package wm

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Dante983/mwm/internal/backend"
	"github.com/Dante983/mwm/internal/config"
	"github.com/Dante983/mwm/internal/geom"
	"github.com/Dante983/mwm/internal/state"
)

// fakeAdapter is an in-memory window system. Move and Resize mutate the
// enumerated windows, so a reconciliation after an arrangement sees the
// same frames the manager recorded.
type fakeAdapter struct {
	displays []backend.Display
	windows  []backend.Window
	names    map[int]string

	listErr error

	focused   []backend.WindowID
	activated []int
	closed    []backend.WindowID
}

func (f *fakeAdapter) Displays() ([]backend.Display, error) {
	return f.displays, nil
}

func (f *fakeAdapter) ListWindows() ([]backend.Window, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]backend.Window, len(f.windows))
	copy(out, f.windows)
	return out, nil
}

func (f *fakeAdapter) Frame(id backend.WindowID) (geom.Rect, error) {
	for _, w := range f.windows {
		if w.ID == id {
			return w.Frame, nil
		}
	}
	return geom.Rect{}, fmt.Errorf("no window %d", id)
}

func (f *fakeAdapter) Move(id backend.WindowID, pos geom.Point) error {
	for i := range f.windows {
		if f.windows[i].ID == id {
			f.windows[i].Frame.X = pos.X
			f.windows[i].Frame.Y = pos.Y
			return nil
		}
	}
	return fmt.Errorf("no window %d", id)
}

func (f *fakeAdapter) Resize(id backend.WindowID, size geom.Size) error {
	for i := range f.windows {
		if f.windows[i].ID == id {
			f.windows[i].Frame.Width = size.Width
			f.windows[i].Frame.Height = size.Height
			return nil
		}
	}
	return fmt.Errorf("no window %d", id)
}

func (f *fakeAdapter) RaiseAndFocus(id backend.WindowID) error {
	f.focused = append(f.focused, id)
	return nil
}

func (f *fakeAdapter) BringProcessFront(pid int) error {
	f.activated = append(f.activated, pid)
	return nil
}

func (f *fakeAdapter) RequestClose(id backend.WindowID) error {
	f.closed = append(f.closed, id)
	return nil
}

func (f *fakeAdapter) ProcessName(pid int) (string, error) {
	if name, ok := f.names[pid]; ok {
		return name, nil
	}
	return "", fmt.Errorf("no process %d", pid)
}

// addWindow registers an enumerable window for the given pid.
func (f *fakeAdapter) addWindow(id backend.WindowID, pid int, frame geom.Rect) {
	f.windows = append(f.windows, backend.Window{
		ID:         id,
		PID:        pid,
		Layer:      backend.NormalLayer,
		Manageable: true,
		Frame:      frame,
		Title:      fmt.Sprintf("win-%d", id),
	})
}

// removeWindow drops a window from enumeration, as if it closed.
func (f *fakeAdapter) removeWindow(id backend.WindowID) {
	for i := range f.windows {
		if f.windows[i].ID == id {
			f.windows = append(f.windows[:i], f.windows[i+1:]...)
			return
		}
	}
}

func singleDisplay() []backend.Display {
	r := geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	return []backend.Display{{ID: 0, Primary: true, Bounds: r, Usable: r}}
}

func dualDisplays() []backend.Display {
	left := geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	right := geom.Rect{X: 1920, Y: 0, Width: 1280, Height: 1024}
	return []backend.Display{
		{ID: 0, Primary: true, Bounds: left, Usable: left},
		{ID: 1, Primary: false, Bounds: right, Usable: right},
	}
}

func newTestManager(t *testing.T, adapter *fakeAdapter, cfg *config.Config) *Manager {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if adapter.names == nil {
		adapter.names = map[int]string{}
	}
	store := state.NewStore(filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())

	m, err := NewManager(cfg, adapter, store, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

// Package statusbar publishes the manager's current view for external
// consumption: the selected tag number, the active layout symbol and the
// focused window title.
package statusbar

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog"
)

// Display receives status updates. Updates are fire-and-forget; a display
// must never block or fail the caller.
type Display interface {
	// Update publishes the 1-based tag number, the layout symbol and the
	// focused window title (empty when nothing is focused).
	Update(tag int, layout string, window string)
}

// Multi fans an update out to several displays.
type Multi []Display

func (m Multi) Update(tag int, layout string, window string) {
	for _, d := range m {
		d.Update(tag, layout, window)
	}
}

// FileDisplay writes the status as a small JSON document for external
// bars to poll or watch.
type FileDisplay struct {
	path string
	log  zerolog.Logger
}

// NewFileDisplay returns a display writing to path.
func NewFileDisplay(path string, log zerolog.Logger) *FileDisplay {
	return &FileDisplay{path: path, log: log}
}

type statusDoc struct {
	Tag    int    `json:"tag"`
	Layout string `json:"layout"`
	Window string `json:"window,omitempty"`
}

func (d *FileDisplay) Update(tag int, layout string, window string) {
	data, err := json.Marshal(statusDoc{Tag: tag, Layout: layout, Window: window})
	if err != nil {
		return
	}
	if err := os.WriteFile(d.path, append(data, '\n'), 0644); err != nil {
		d.log.Debug().Err(err).Str("path", d.path).Msg("status write failed")
	}
}

// LogDisplay emits status changes as structured debug events. Useful when
// no external bar is configured.
type LogDisplay struct {
	log zerolog.Logger
}

// NewLogDisplay returns a display logging through log.
func NewLogDisplay(log zerolog.Logger) *LogDisplay {
	return &LogDisplay{log: log}
}

func (d *LogDisplay) Update(tag int, layout string, window string) {
	d.log.Debug().
		Int("tag", tag).
		Str("layout", layout).
		Str("window", window).
		Msg("status")
}

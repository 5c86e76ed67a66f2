// Package state persists per-application window placement: which tag-set a
// window of an application last lived on and whether it floated. The store
// is read when a window is first managed and rewritten on floating toggles
// and tag reassignments.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Record is one persisted (application, tag-set, floating) triple.
// Floating is 0 or 1 for compatibility with the on-disk schema.
type Record struct {
	App      string `json:"app"`
	Tags     uint   `json:"tags"`
	Floating int    `json:"floating"`
}

type document struct {
	Windows []Record `json:"windows"`
}

// Store reads and writes the state file. A missing or unparsable file
// behaves as an empty store; write failures are logged and swallowed.
// Store failures must never take the manager down.
type Store struct {
	path string
	log  zerolog.Logger
}

// NewStore returns a store over the given file path.
func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{path: path, log: log}
}

// Lookup returns the first record whose app name matches exactly.
func (s *Store) Lookup(app string) (Record, bool) {
	if app == "" {
		return Record{}, false
	}
	for _, rec := range s.load() {
		if rec.App == app {
			return rec, true
		}
	}
	return Record{}, false
}

// Save replaces the store contents with the given records. Records are
// deduplicated by app name, first occurrence wins, so callers pass them in
// newest-first order and each application keeps exactly one entry.
func (s *Store) Save(records []Record) error {
	seen := make(map[string]struct{}, len(records))
	doc := document{Windows: make([]Record, 0, len(records))}
	for _, rec := range records {
		if rec.App == "" {
			continue
		}
		if _, dup := seen[rec.App]; dup {
			continue
		}
		seen[rec.App] = struct{}{}
		doc.Windows = append(doc.Windows, rec)
	}

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// SaveQuiet is Save with the degraded-but-continues policy applied: the
// error is logged, not returned.
func (s *Store) SaveQuiet(records []Record) {
	if err := s.Save(records); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("state save skipped")
	}
}

func (s *Store) load() []Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", s.path).Msg("state read failed, treating as empty")
		}
		return nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("state file unparsable, treating as empty")
		return nil
	}
	return doc.Windows
}

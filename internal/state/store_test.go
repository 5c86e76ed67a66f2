package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())
}

func TestSaveAndLookup(t *testing.T) {
	s := newTestStore(t)

	err := s.Save([]Record{
		{App: "firefox", Tags: 1 << 1, Floating: 0},
		{App: "pavucontrol", Tags: 1, Floating: 1},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rec, ok := s.Lookup("firefox")
	if !ok {
		t.Fatal("firefox not found")
	}
	if rec.Tags != 1<<1 || rec.Floating != 0 {
		t.Errorf("record = %+v", rec)
	}

	if _, ok := s.Lookup("chromium"); ok {
		t.Error("unknown app should not be found")
	}
}

func TestSaveDeduplicatesByAppFirstWins(t *testing.T) {
	s := newTestStore(t)

	// Newest-first input: the first firefox entry is the most recent
	// window's placement and must win.
	err := s.Save([]Record{
		{App: "firefox", Tags: 1 << 3, Floating: 1},
		{App: "firefox", Tags: 1, Floating: 0},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rec, ok := s.Lookup("firefox")
	if !ok {
		t.Fatal("firefox not found")
	}
	if rec.Tags != 1<<3 || rec.Floating != 1 {
		t.Errorf("record = %+v, want the first occurrence", rec)
	}
}

func TestSaveSkipsEmptyAppNames(t *testing.T) {
	s := newTestStore(t)

	if err := s.Save([]Record{{App: "", Tags: 1}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, ok := s.Lookup(""); ok {
		t.Error("empty app name must never match")
	}
}

func TestMissingFileBehavesEmpty(t *testing.T) {
	s := newTestStore(t)

	if _, ok := s.Lookup("firefox"); ok {
		t.Error("lookup against a missing file should miss")
	}
}

func TestUnparsableFileBehavesEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path, zerolog.Nop())

	if _, ok := s.Lookup("firefox"); ok {
		t.Error("lookup against a corrupt file should miss")
	}

	// A save must recover the file.
	if err := s.Save([]Record{{App: "firefox", Tags: 1}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, ok := s.Lookup("firefox"); !ok {
		t.Error("save did not recover a corrupt file")
	}
}

func TestSaveCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
	s := NewStore(path, zerolog.Nop())

	if err := s.Save([]Record{{App: "firefox", Tags: 1}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("state file missing: %v", err)
	}
}

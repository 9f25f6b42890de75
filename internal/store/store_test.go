package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/overclock/internal/ir"
)

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("journal file missing: %v", err)
	}
}

func TestOpen_ReopenKeepsEvents(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s.WriteRun(ctx, "run-1", "reopen", nil); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	if err := s.WriteEvent(ctx, createTestEvent("run-1", "inscriber-1", 1, ir.EventArmed)); err != nil {
		t.Fatalf("WriteEvent() failed: %v", err)
	}
	s.Close()

	for i := 0; i < 2; i++ {
		s, err = Open(path)
		if err != nil {
			t.Fatalf("reopen %d failed: %v", i, err)
		}
		events, err := s.ReadRun(ctx, "run-1")
		if err != nil {
			t.Fatalf("ReadRun() after reopen %d: %v", i, err)
		}
		if len(events) != 1 {
			t.Errorf("reopen %d: got %d events, want 1", i, len(events))
		}
		s.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	want := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1",
		"busy_timeout": "5000",
		"foreign_keys": "1",
	}
	for name, expected := range want {
		got, err := s.pragma(name)
		if err != nil {
			t.Fatal(err)
		}
		if got != expected {
			t.Errorf("pragma %s = %q, want %q", name, got, expected)
		}
	}
}

func TestOpen_Migrations(t *testing.T) {
	s := createTestStore(t)

	version, err := s.pragma("user_version")
	if err != nil {
		t.Fatal(err)
	}
	if version != "2" || schemaVersion != 2 {
		t.Errorf("user_version = %s, schemaVersion = %d, want 2", version, schemaVersion)
	}

	for _, index := range []string{"idx_step_events_run", "idx_step_events_node", "idx_step_events_kind"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?", index).Scan(&name)
		if err != nil {
			t.Errorf("index %s missing: %v", index, err)
		}
	}
}

func TestOpen_MigratesOldJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := s.db.Exec("DROP INDEX idx_step_events_kind"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.Exec("PRAGMA user_version = 1"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	var name string
	if err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE name = 'idx_step_events_kind'").Scan(&name); err != nil {
		t.Errorf("migration 2 not reapplied: %v", err)
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer s.Close()

	if err := s.WriteRun(context.Background(), "run-m", "", nil); err != nil {
		t.Errorf("WriteRun() on in-memory journal: %v", err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "journal.db"))
	if err == nil {
		t.Error("expected error for unwritable path")
	}
}

func TestClose_Twice(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("first Close() failed: %v", err)
	}
	// database/sql tolerates closing a closed DB.
	if err := s.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}
}

package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("Unmarshal %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestLoggerWritesEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l, err := NewLogger(path)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer l.Close()

	ts := time.Date(2026, 2, 19, 10, 30, 0, 0, time.UTC)

	l.Log(Entry{
		Timestamp: ts,
		Action:    ActionCredentialRead,
		Store:     "/home/joe/.pwdy/passwd.gpg",
		Identity:  "gmail:joe",
		Actor:     "cli",
	})
	l.Log(Entry{
		Timestamp: ts.Add(time.Hour),
		Action:    ActionCredentialInsert,
		Identity:  "hotmail:joe",
		Result:    "duplicate",
	})

	entries := readEntries(t, path)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Action != ActionCredentialRead {
		t.Errorf("expected credential_read, got %v", entries[0].Action)
	}
	if entries[0].Identity != "gmail:joe" {
		t.Errorf("expected gmail:joe, got %q", entries[0].Identity)
	}
	if entries[1].Result != "duplicate" {
		t.Errorf("expected duplicate, got %q", entries[1].Result)
	}
}

func TestLoggerAssignsEventIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l, _ := NewLogger(path)
	defer l.Close()

	l.Log(Entry{Action: ActionCredentialList})
	l.Log(Entry{Action: ActionCredentialList})

	entries := readEntries(t, path)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if _, err := uuid.Parse(e.ID); err != nil {
			t.Errorf("entry id %q is not a uuid: %v", e.ID, err)
		}
	}
	if entries[0].ID == entries[1].ID {
		t.Error("expected distinct event ids")
	}
}

func TestLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")

	l1, _ := NewLogger(path)
	l1.Log(Entry{Action: ActionStoreCreate, Store: "first"})
	l1.Close()

	l2, _ := NewLogger(path)
	l2.Log(Entry{Action: ActionCredentialList, Store: "second"})
	l2.Close()

	if entries := readEntries(t, path); len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
}

func TestLoggerDefaultTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l, _ := NewLogger(path)
	defer l.Close()

	before := time.Now().UTC()
	l.Log(Entry{Action: ActionCredentialRead, Identity: "test:user"})
	after := time.Now().UTC()

	e := readEntries(t, path)[0]
	if e.Timestamp.Before(before) || e.Timestamp.After(after) {
		t.Errorf("timestamp %v not between %v and %v", e.Timestamp, before, after)
	}
}

func TestLoggerFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.log")
	l, err := NewLogger(path)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	l.Close()

	info, _ := os.Stat(path)
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600, got %o", perm)
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	var l *Logger
	if err := l.Log(Entry{Action: ActionCredentialList}); err != nil {
		t.Errorf("nil logger Log: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("nil logger Close: %v", err)
	}
}

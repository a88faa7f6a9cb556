package journal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/0xmhha/firewatch/pkg/logger"
)

// clock is a manually advanced time source.
type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func setupTestJournal(t *testing.T) (Journal, *clock) {
	t.Helper()

	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	j, err := New(Config{
		DBPath: filepath.Join(t.TempDir(), "journal.db"),
		Now:    c.now,
	}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	t.Cleanup(func() {
		if err := j.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return j, c
}

func TestNew(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "journal.db")

	j, err := New(Config{DBPath: dbPath}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := j.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("Database file not created: %v", err)
	}
}

func TestNewEmptyPath(t *testing.T) {
	if _, err := New(Config{}, logger.Noop()); !errors.Is(err, ErrEmptyDBPath) {
		t.Errorf("New() error = %v, want ErrEmptyDBPath", err)
	}
}

func TestNewLockedDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	first, err := New(Config{DBPath: dbPath}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer first.Close()

	if _, err := New(Config{DBPath: dbPath, Timeout: 50 * time.Millisecond}, logger.Noop()); err == nil {
		t.Error("New() on a locked database should fail")
	}
}

func TestRecord(t *testing.T) {
	j, c := setupTestJournal(t)
	start := c.now()

	if err := j.Record("shaders/main.frag", 100, nil); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	c.advance(time.Minute)
	if err := j.Record("shaders/main.frag", 250, nil); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	e, err := j.Get("shaders/main.frag")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if e.Reloads != 2 {
		t.Errorf("Reloads = %d, want 2", e.Reloads)
	}
	if e.Failures != 0 {
		t.Errorf("Failures = %d, want 0", e.Failures)
	}
	if e.LastSize != 250 {
		t.Errorf("LastSize = %d, want 250", e.LastSize)
	}
	if !e.FirstSeen.Equal(start) {
		t.Errorf("FirstSeen = %v, want %v", e.FirstSeen, start)
	}
	if !e.LastReload.Equal(start.Add(time.Minute)) {
		t.Errorf("LastReload = %v, want %v", e.LastReload, start.Add(time.Minute))
	}
}

func TestRecordFailure(t *testing.T) {
	j, _ := setupTestJournal(t)

	if err := j.Record("cfg/app.yaml", 64, nil); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := j.Record("cfg/app.yaml", 0, errors.New("permission denied")); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	e, err := j.Get("cfg/app.yaml")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if e.Failures != 1 || e.Reloads != 2 {
		t.Errorf("Failures/Reloads = %d/%d, want 1/2", e.Failures, e.Reloads)
	}
	if e.LastError != "permission denied" {
		t.Errorf("LastError = %q, want %q", e.LastError, "permission denied")
	}
	if e.LastSize != 64 {
		t.Errorf("LastSize = %d, want size from the last successful load", e.LastSize)
	}

	if err := j.Record("cfg/app.yaml", 80, nil); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	e, _ = j.Get("cfg/app.yaml")
	if e.LastError != "" {
		t.Errorf("LastError = %q, want empty after a successful load", e.LastError)
	}
}

func TestRecordEmptyPath(t *testing.T) {
	j, _ := setupTestJournal(t)

	if err := j.Record("", 0, nil); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("Record() error = %v, want ErrEmptyPath", err)
	}
	if _, err := j.Get(""); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("Get() error = %v, want ErrEmptyPath", err)
	}
}

func TestGetNotFound(t *testing.T) {
	j, _ := setupTestJournal(t)

	if _, err := j.Get("missing.cfg"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Get() error = %v, want ErrEntryNotFound", err)
	}
}

func TestList(t *testing.T) {
	j, c := setupTestJournal(t)

	for _, path := range []string{"a.frag", "b.frag", "c.frag"} {
		if err := j.Record(path, 1, nil); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		c.advance(time.Second)
	}
	// a.frag becomes the most recent.
	if err := j.Record("a.frag", 2, nil); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := j.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{"a.frag", "c.frag", "b.frag"}
	if len(entries) != len(want) {
		t.Fatalf("List() returned %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.Path != want[i] {
			t.Errorf("entries[%d].Path = %s, want %s", i, e.Path, want[i])
		}
	}
}

func TestClear(t *testing.T) {
	j, _ := setupTestJournal(t)

	if err := j.Record("a.frag", 1, nil); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := j.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	entries, err := j.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("List() after Clear() returned %d entries", len(entries))
	}

	// The journal stays usable.
	if err := j.Record("b.frag", 1, nil); err != nil {
		t.Errorf("Record() after Clear() error = %v", err)
	}
}

func TestPersistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	j, err := New(Config{DBPath: dbPath}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := j.Record("scene.so", 4096, nil); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	j, err = New(Config{DBPath: dbPath}, logger.Noop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer j.Close()

	e, err := j.Get("scene.so")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if e.LastSize != 4096 {
		t.Errorf("LastSize = %d, want 4096", e.LastSize)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if got := expandHome("~/x/journal.db"); got != filepath.Join(home, "x", "journal.db") {
		t.Errorf("expandHome() = %s", got)
	}
	if got := expandHome("/tmp/journal.db"); got != "/tmp/journal.db" {
		t.Errorf("expandHome() = %s", got)
	}
}

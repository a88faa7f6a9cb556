// Package notifier wraps the operating system's directory-change
// notification facilities behind a small interface.
//
// A Notifier watches whole directories, one at a time, and reports two kinds
// of change: a file in the directory was closed after being written, or a
// file was renamed/moved into the directory. Together these approximate
// "new content is available under this name", which is what hot-reload
// consumers care about.
//
// Two backends are provided:
//   - "inotify" (Linux only) talks to inotify directly through
//     golang.org/x/sys/unix and reports kernel watch descriptors as IDs.
//   - "fsnotify" uses github.com/fsnotify/fsnotify and runs on every
//     platform fsnotify supports.
//
// Example usage:
//
//	n, err := notifier.New(notifier.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer n.Close()
//
//	id, err := n.Add("shaders")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for batch := range n.Batches() {
//	    for _, ev := range batch {
//	        if ev.ID == id {
//	            fmt.Printf("%s: %s\n", ev.Name, ev.Op)
//	        }
//	    }
//	}
package notifier

import (
	"strings"
	"time"
)

// WatchID identifies one watched directory. Valid IDs are positive.
type WatchID int

// Op describes the kind of change a raw event reports.
type Op uint32

// Change kinds.
const (
	OpWritten Op = 1 << iota // File closed after being written
	OpMovedIn                // File renamed or moved into the directory
)

// String returns a human-readable operation name.
func (op Op) String() string {
	var parts []string
	if op&OpWritten != 0 {
		parts = append(parts, "WRITTEN")
	}
	if op&OpMovedIn != 0 {
		parts = append(parts, "MOVED_IN")
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// RawEvent is one undecoded change record as reported by a backend.
type RawEvent struct {
	// ID is the watch the event belongs to.
	ID WatchID

	// Op is the kind of change.
	Op Op

	// Name is the basename of the changed file inside the watched directory.
	Name string
}

// Valid reports whether the event carries a change kind, a file name and a
// usable watch ID.
func (e RawEvent) Valid() bool {
	return e.Op != 0 && e.Name != "" && e.ID > 0
}

// Notifier is a directory-change notification source.
type Notifier interface {
	// Add starts watching dir for OpWritten and OpMovedIn changes.
	//
	// Adding a directory that is already watched returns its existing ID.
	Add(dir string) (WatchID, error)

	// Batches returns the channel delivering raw events in the order the
	// operating system reported them.
	Batches() <-chan []RawEvent

	// Errors returns the channel for non-fatal backend errors.
	Errors() <-chan error

	// Close releases all OS resources. No batches are delivered after
	// Close returns.
	Close() error
}

// Backend names accepted by Config.Backend.
const (
	BackendInotify  = "inotify"
	BackendFsnotify = "fsnotify"
)

// Config selects and tunes a backend.
type Config struct {
	// Backend is "inotify", "fsnotify" or empty for the platform default
	// (inotify on Linux, fsnotify elsewhere).
	Backend string

	// BufferSize is the capacity of the batch channel.
	// Default: 16.
	BufferSize int

	// Settle is how long the fsnotify backend waits for a file to go quiet
	// before reporting it. fsnotify has no close-after-write event, so the
	// writes and the create of one save are merged into a single event.
	// The inotify backend reports close-after-write directly and ignores it.
	// Default: 50ms.
	Settle time.Duration
}

const (
	defaultBufferSize = 16
	defaultSettle     = 50 * time.Millisecond
)

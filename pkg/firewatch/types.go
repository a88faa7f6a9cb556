// Package firewatch dispatches hot-reload notifications for individual files.
//
// A component registers interest in a file together with a Handler and a
// dispatch Mode. Register always calls the handler once, synchronously,
// before it returns, so the caller gets its initial load for free. After
// that, every time the file is closed after writing or renamed into its
// directory, the handler runs again:
//
//   - Immediate: on the service's event loop goroutine, as soon as the
//     change is seen.
//   - Deferred: on whichever goroutine next calls Check. Pending changes
//     are dispatched most recent first.
//
// Files are watched through their parent directory. All files in one
// directory share a single OS watch and are told apart by basename.
// Registrations live until Shutdown; there is no way to remove one.
//
// Example usage:
//
//	svc := firewatch.New(firewatch.Options{Logger: logger.Default()})
//	defer svc.Shutdown()
//
//	err := svc.Register("shaders/main.frag", 0, firewatch.HandlerFunc(
//	    func(path string, cookie uint64) {
//	        reloadShader(path)
//	    }), firewatch.Deferred)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for !quit {
//	    svc.Check()
//	    drawFrame()
//	}
//
// Handlers run outside the service's internal lock and may call Register
// and Check. An Immediate handler must not call Shutdown: Shutdown waits for
// the event loop, and the event loop is waiting for the handler. Immediate
// handlers share one goroutine, so a slow handler delays every other
// Immediate file.
package firewatch

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/0xmhha/firewatch/pkg/logger"
	"github.com/0xmhha/firewatch/pkg/notifier"
	"github.com/prometheus/client_golang/prometheus"
)

// MaxPathLen is the longest path Register accepts, in bytes.
const MaxPathLen = 4096

// separators are the characters that end a directory component.
const separators = "/" + string(filepath.Separator)

// Mode selects where a file's change notifications are dispatched.
type Mode int

const (
	// Immediate dispatches from the event loop goroutine.
	Immediate Mode = iota

	// Deferred queues the change until Check is called.
	Deferred
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Immediate:
		return "immediate"
	case Deferred:
		return "deferred"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "immediate" or "deferred", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "immediate":
		return Immediate, nil
	case "deferred":
		return Deferred, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

func (m Mode) valid() bool {
	return m == Immediate || m == Deferred
}

// Handler is notified when a registered file changes.
type Handler interface {
	// OnChange receives the registered path and the caller's cookie
	// unchanged.
	OnChange(path string, cookie uint64)
}

// HandlerFunc adapts an ordinary function to Handler.
type HandlerFunc func(path string, cookie uint64)

// OnChange calls f(path, cookie).
func (f HandlerFunc) OnChange(path string, cookie uint64) {
	f(path, cookie)
}

// FileWatch is one registered interest in a single file. It is never
// modified after registration.
type FileWatch struct {
	// Path is the file path as given to Register.
	Path string

	// BasenameOffset is the index in Path where the file name starts,
	// 0 when Path has no directory part.
	BasenameOffset int

	// Cookie is passed back to the handler unchanged.
	Cookie uint64

	// Handler receives change notifications.
	Handler Handler

	// Mode selects immediate or deferred dispatch.
	Mode Mode
}

func newFileWatch(path string, cookie uint64, h Handler, mode Mode) FileWatch {
	return FileWatch{
		Path:           path,
		BasenameOffset: basenameOffset(path),
		Cookie:         cookie,
		Handler:        h,
		Mode:           mode,
	}
}

// Basename returns the file name part of Path.
func (fw FileWatch) Basename() string {
	return fw.Path[fw.BasenameOffset:]
}

// Dir returns the directory that is watched on behalf of this file,
// including its trailing separator, or "." for a bare file name.
func (fw FileWatch) Dir() string {
	if fw.BasenameOffset == 0 {
		return "."
	}
	return fw.Path[:fw.BasenameOffset]
}

// basenameOffset returns one past the last path separator, or 0.
func basenameOffset(path string) int {
	return strings.LastIndexAny(path, separators) + 1
}

// Stats is a point-in-time view of a service.
type Stats struct {
	// Running reports whether the event loop is active.
	Running bool

	// Files is the number of registered files with a live watch.
	Files int

	// Directories is the number of distinct watched directories.
	Directories int

	// Pending is the number of deferred changes waiting for Check.
	Pending int
}

// Options configures a Service.
type Options struct {
	// Logger receives diagnostics. Default: logger.Noop().
	Logger logger.Logger

	// NewNotifier creates the notification source when the event loop
	// starts. Default: notifier.New(Notifier).
	NewNotifier func() (notifier.Notifier, error)

	// Notifier configures the default notification source.
	Notifier notifier.Config

	// DisableReload turns Register into a plain initial load: the handler
	// runs once and nothing is watched.
	DisableReload bool

	// Registerer receives the service's Prometheus collectors. Collectors
	// are not registered anywhere when nil.
	Registerer prometheus.Registerer
}

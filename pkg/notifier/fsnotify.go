package notifier

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// fsnotifyNotifier implements Notifier using fsnotify.
//
// fsnotify identifies watches by path, so IDs are assigned here, one per
// cleaned directory path, starting at 1.
type fsnotifyNotifier struct {
	fsw    *fsnotify.Watcher
	settle time.Duration

	batches chan []RawEvent
	errors  chan error
	stop    chan struct{}
	exited  chan struct{}

	mu     sync.Mutex
	ids    map[string]WatchID
	nextID WatchID
	closed bool
}

func newFsnotify(cfg Config) (Notifier, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if cfg.Settle <= 0 {
		cfg.Settle = defaultSettle
	}

	n := &fsnotifyNotifier{
		fsw:     fsw,
		settle:  cfg.Settle,
		batches: make(chan []RawEvent, cfg.BufferSize),
		errors:  make(chan error, 4),
		stop:    make(chan struct{}),
		exited:  make(chan struct{}),
		ids:     make(map[string]WatchID),
	}

	go n.processEvents()
	return n, nil
}

func (n *fsnotifyNotifier) Add(dir string) (WatchID, error) {
	dir = filepath.Clean(dir)

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return 0, ErrClosed
	}
	if id, ok := n.ids[dir]; ok {
		return id, nil
	}

	if err := n.fsw.Add(dir); err != nil {
		return 0, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	n.nextID++
	n.ids[dir] = n.nextID
	return n.nextID, nil
}

func (n *fsnotifyNotifier) Batches() <-chan []RawEvent { return n.batches }

func (n *fsnotifyNotifier) Errors() <-chan error { return n.errors }

func (n *fsnotifyNotifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	close(n.stop)
	<-n.exited

	if err := n.fsw.Close(); err != nil {
		return fmt.Errorf("failed to close fsnotify watcher: %w", err)
	}
	return nil
}

// settling is an event waiting for its file to go quiet.
type settling struct {
	raw RawEvent
	due time.Time
}

// processEvents forwards fsnotify events until Close. Events for one file
// are merged until none has arrived for n.settle, so a create followed by
// several writes is reported once.
func (n *fsnotifyNotifier) processEvents() {
	defer close(n.exited)

	pending := make(map[string]*settling)
	timer := time.NewTimer(n.settle)
	timer.Stop()
	defer timer.Stop()

	// flush is nil while the timer is idle.
	var flush <-chan time.Time

	for {
		select {
		case <-n.stop:
			return

		case event, ok := <-n.fsw.Events:
			if !ok {
				return
			}

			raw, ok := n.translate(event)
			if !ok {
				continue
			}

			due := time.Now().Add(n.settle)
			if p, ok := pending[event.Name]; ok {
				p.raw.Op |= raw.Op
				p.due = due
			} else {
				pending[event.Name] = &settling{raw: raw, due: due}
			}
			if flush == nil {
				timer.Reset(n.settle)
				flush = timer.C
			}

		case <-flush:
			flush = nil
			batch, next := settled(pending, time.Now())
			if next > 0 {
				timer.Reset(next)
				flush = timer.C
			}
			if len(batch) == 0 {
				continue
			}

			select {
			case n.batches <- batch:
			case <-n.stop:
				return
			}

		case err, ok := <-n.fsw.Errors:
			if !ok {
				return
			}
			if err == fsnotify.ErrEventOverflow {
				err = ErrOverflow
			}

			select {
			case n.errors <- err:
			default:
			}
		}
	}
}

// settled removes the events that are due at now from pending and returns
// them in the order they went quiet, together with the time until the next
// remaining event is due (0 when none remain).
func settled(pending map[string]*settling, now time.Time) ([]RawEvent, time.Duration) {
	var due []*settling
	var next time.Duration

	for name, p := range pending {
		if wait := p.due.Sub(now); wait > 0 {
			if next == 0 || wait < next {
				next = wait
			}
			continue
		}
		due = append(due, p)
		delete(pending, name)
	}

	sort.Slice(due, func(i, j int) bool { return due[i].due.Before(due[j].due) })

	batch := make([]RawEvent, len(due))
	for i, p := range due {
		batch[i] = p.raw
	}
	return batch, next
}

// translate maps an fsnotify event onto a raw event. Events for directories
// that were never added, and operations other than Write and Create, are
// dropped. fsnotify reports a rename into a watched directory as Create; a
// Create from a plain open is merged with the writes that follow it.
func (n *fsnotifyNotifier) translate(event fsnotify.Event) (RawEvent, bool) {
	var op Op
	if event.Op&fsnotify.Write == fsnotify.Write {
		op |= OpWritten
	}
	if event.Op&fsnotify.Create == fsnotify.Create {
		op |= OpMovedIn
	}
	if op == 0 {
		return RawEvent{}, false
	}

	n.mu.Lock()
	id, ok := n.ids[filepath.Dir(event.Name)]
	n.mu.Unlock()
	if !ok {
		return RawEvent{}, false
	}

	return RawEvent{ID: id, Op: op, Name: filepath.Base(event.Name)}, true
}

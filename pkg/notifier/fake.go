package notifier

import (
	"path/filepath"
	"sync"
)

// Fake is an in-memory Notifier for tests. Events are injected with Emit
// or Touch instead of coming from the operating system.
type Fake struct {
	mu       sync.Mutex
	ids      map[string]WatchID
	failures map[string]error
	nextID   WatchID
	closed   bool

	batches chan []RawEvent
	errors  chan error
	stop    chan struct{}
}

// NewFake returns a Fake notifier with an unbuffered batch channel, so
// Emit returns only once the consumer has received the batch.
func NewFake() *Fake {
	return &Fake{
		ids:      make(map[string]WatchID),
		failures: make(map[string]error),
		batches:  make(chan []RawEvent),
		errors:   make(chan error, 4),
		stop:     make(chan struct{}),
	}
}

// FailAdd makes every later Add of dir fail with err.
func (f *Fake) FailAdd(dir string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[filepath.Clean(dir)] = err
}

// Add implements Notifier.Add.
func (f *Fake) Add(dir string) (WatchID, error) {
	dir = filepath.Clean(dir)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, ErrClosed
	}
	if err := f.failures[dir]; err != nil {
		return 0, err
	}
	if id, ok := f.ids[dir]; ok {
		return id, nil
	}

	f.nextID++
	f.ids[dir] = f.nextID
	return f.nextID, nil
}

// ID returns the watch ID assigned to dir, if any.
func (f *Fake) ID(dir string) (WatchID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.ids[filepath.Clean(dir)]
	return id, ok
}

// Emit delivers one batch. It reports false if the fake was closed before
// the batch was received.
func (f *Fake) Emit(batch ...RawEvent) bool {
	select {
	case f.batches <- batch:
		return true
	case <-f.stop:
		return false
	}
}

// Touch emits an OpWritten event for path if its directory is watched.
// It reports whether an event was delivered.
func (f *Fake) Touch(path string) bool {
	id, ok := f.ID(filepath.Dir(path))
	if !ok {
		return false
	}
	return f.Emit(RawEvent{ID: id, Op: OpWritten, Name: filepath.Base(path)})
}

// InjectError reports err on the Errors channel.
func (f *Fake) InjectError(err error) {
	select {
	case f.errors <- err:
	case <-f.stop:
	}
}

// Closed reports whether Close has been called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Batches implements Notifier.Batches.
func (f *Fake) Batches() <-chan []RawEvent { return f.batches }

// Errors implements Notifier.Errors.
func (f *Fake) Errors() <-chan error { return f.errors }

// Close implements Notifier.Close.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.closed {
		f.closed = true
		close(f.stop)
	}
	return nil
}

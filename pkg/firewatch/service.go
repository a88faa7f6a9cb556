package firewatch

import (
	"fmt"
	"sync"

	"github.com/0xmhha/firewatch/pkg/logger"
	"github.com/0xmhha/firewatch/pkg/notifier"
)

// Service watches registered files and dispatches their change
// notifications. The zero value is not usable; create one with New.
type Service struct {
	log         logger.Logger
	newNotifier func() (notifier.Notifier, error)
	noReload    bool
	metrics     *metrics

	// life serializes event loop startup, watch establishment and the
	// first half of Shutdown. It is always acquired before mu.
	life sync.Mutex

	// stopping is set while a Shutdown is in progress. Guarded by life.
	stopping bool

	// stop serializes Shutdown calls so that every caller returns only
	// after the event loop is gone.
	stop sync.Mutex

	// mu guards cur and the watch table and pending queue it owns.
	mu  sync.Mutex
	cur *instance
}

// instance is one run of the event loop together with the state it feeds.
// Shutdown detaches the instance from the Service, so a loop that is still
// finishing its last batch can never touch state created afterwards.
type instance struct {
	n       notifier.Notifier
	table   *watchTable
	pending *pendingQueue
	done    chan struct{}
	exited  chan struct{}

	// drains counts Check calls still invoking handlers for this instance.
	// Add is only called under mu while the instance is current.
	drains sync.WaitGroup
}

// New creates a service. Nothing is started until the first Register.
func New(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}

	newNotifier := opts.NewNotifier
	if newNotifier == nil {
		cfg := opts.Notifier
		newNotifier = func() (notifier.Notifier, error) {
			return notifier.New(cfg)
		}
	}

	return &Service{
		log:         log.With("component", "firewatch"),
		newNotifier: newNotifier,
		noReload:    opts.DisableReload,
		metrics:     newMetrics(opts.Registerer),
	}
}

// Register starts watching path and calls h.OnChange(path, cookie) once,
// synchronously, before returning.
//
// path names a file whose parent directory must exist; the file itself
// need not. If the directory cannot be watched the failure is logged, the
// file is never reloaded, and Register still returns nil after the initial
// callback. If the event loop cannot be started, the initial callback runs
// and an error wrapping ErrResourceInit is returned; while Shutdown is
// running the error is ErrShuttingDown instead.
//
// Invalid arguments are rejected before anything else happens, including
// the initial callback.
func (s *Service) Register(path string, cookie uint64, h Handler, mode Mode) error {
	if err := validate(path, h, mode); err != nil {
		return err
	}

	fw := newFileWatch(path, cookie, h, mode)
	s.metrics.registrations.WithLabelValues(mode.String()).Inc()

	var err error
	if !s.noReload {
		err = s.watch(fw)
	}

	s.invoke(fw, reasonInitial)
	return err
}

func validate(path string, h Handler, mode Mode) error {
	switch {
	case path == "":
		return ErrInvalidPath
	case len(path) > MaxPathLen:
		return fmt.Errorf("%w: %d bytes", ErrPathTooLong, len(path))
	case basenameOffset(path) == len(path):
		return fmt.Errorf("%w: %q has no file name", ErrInvalidPath, path)
	case h == nil:
		return ErrNilHandler
	case !mode.valid():
		return fmt.Errorf("%w: %v", ErrInvalidMode, mode)
	}
	return nil
}

// watch establishes the directory watch for fw and records it.
func (s *Service) watch(fw FileWatch) error {
	s.life.Lock()
	defer s.life.Unlock()

	inst, err := s.start()
	if err != nil {
		s.log.Error("could not start file watcher", "path", fw.Path, "error", err)
		return err
	}

	dir := fw.Dir()
	id, err := inst.n.Add(dir)
	if err != nil {
		s.metrics.watchFailures.Inc()
		s.log.Warn("could not begin watching file, maybe its parent directory does not exist",
			"path", fw.Path,
			"dir", dir,
			"error", err)
		return nil
	}

	s.mu.Lock()
	newDir := !inst.table.has(id)
	inst.table.add(id, fw)
	s.mu.Unlock()

	s.metrics.files.Inc()
	if newDir {
		s.metrics.directories.Inc()
	}

	s.log.Debug("file registered",
		"path", fw.Path,
		"dir", dir,
		"watch_id", id,
		"mode", fw.Mode,
		"cookie", fw.Cookie)
	return nil
}

// start returns the running instance, creating it if needed.
// Callers hold s.life.
func (s *Service) start() (*instance, error) {
	s.mu.Lock()
	inst := s.cur
	s.mu.Unlock()
	if inst != nil {
		return inst, nil
	}
	if s.stopping {
		return nil, ErrShuttingDown
	}

	n, err := s.newNotifier()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResourceInit, err)
	}

	inst = &instance{
		n:       n,
		table:   newWatchTable(),
		pending: &pendingQueue{},
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}

	s.mu.Lock()
	s.cur = inst
	s.mu.Unlock()

	go s.run(inst)

	s.log.Info("file watcher started")
	return inst, nil
}

// Shutdown stops the event loop, releases the notification source and
// forgets every registration and pending change. It is a no-op when the
// service is not running. No handler is invoked by the service after
// Shutdown returns, except by a later Register, which starts over.
//
// Shutdown waits for the event loop and for running Check calls to finish
// their current handler, so it must not be called from a handler. A
// Register that needs to start the event loop while Shutdown is running
// fails with ErrShuttingDown.
func (s *Service) Shutdown() error {
	s.stop.Lock()
	defer s.stop.Unlock()

	s.life.Lock()
	s.mu.Lock()
	inst := s.cur
	s.cur = nil
	s.mu.Unlock()
	if inst != nil {
		s.stopping = true
	}
	s.life.Unlock()

	if inst == nil {
		return nil
	}
	defer func() {
		s.life.Lock()
		s.stopping = false
		s.life.Unlock()
	}()

	close(inst.done)
	<-inst.exited
	inst.drains.Wait()

	s.mu.Lock()
	files, dirs, pending := inst.table.len(), inst.table.dirs(), inst.pending.len()
	s.mu.Unlock()

	s.metrics.files.Sub(float64(files))
	s.metrics.directories.Sub(float64(dirs))
	s.metrics.pending.Sub(float64(pending))

	if err := inst.n.Close(); err != nil {
		s.log.Error("failed to close notification source", "error", err)
		return fmt.Errorf("failed to close notification source: %w", err)
	}

	s.log.Info("file watcher stopped",
		"files", files,
		"directories", dirs,
		"dropped_pending", pending)
	return nil
}

// Stats returns a snapshot of the service state.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur == nil {
		return Stats{}
	}
	return Stats{
		Running:     true,
		Files:       s.cur.table.len(),
		Directories: s.cur.table.dirs(),
		Pending:     s.cur.pending.len(),
	}
}

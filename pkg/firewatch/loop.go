package firewatch

import "github.com/0xmhha/firewatch/pkg/notifier"

// run is the event loop. It waits for either a batch of raw events or the
// cancellation signal and exits on the latter, leaving anything still
// queued in the notification source unprocessed.
func (s *Service) run(inst *instance) {
	defer close(inst.exited)

	batches := inst.n.Batches()
	errs := inst.n.Errors()

	for {
		// Cancellation wins when both sources are ready.
		select {
		case <-inst.done:
			return
		default:
		}

		select {
		case <-inst.done:
			return

		case batch, ok := <-batches:
			if !ok {
				s.log.Warn("notification source closed, event loop exiting")
				return
			}
			s.dispatch(inst, batch)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.log.Warn("notification source error", "error", err)
		}
	}
}

// dispatch matches a batch against the watch table. Deferred files are
// queued; Immediate files are collected and their handlers invoked, in
// event order, after the lock is released.
func (s *Service) dispatch(inst *instance, batch []notifier.RawEvent) {
	var immediate, matches []FileWatch

	s.mu.Lock()
	for _, ev := range batch {
		if !ev.Valid() {
			s.metrics.events.WithLabelValues(resultMalformed).Inc()
			s.log.Debug("discarding malformed event",
				"watch_id", ev.ID,
				"op", ev.Op,
				"name", ev.Name)
			continue
		}

		matches = inst.table.match(matches[:0], ev.ID, ev.Name)
		if len(matches) == 0 {
			s.metrics.events.WithLabelValues(resultUnmatched).Inc()
			s.log.Debug("discarding unmatched event",
				"watch_id", ev.ID,
				"op", ev.Op,
				"name", ev.Name)
			continue
		}

		for _, fw := range matches {
			if fw.Mode == Deferred {
				inst.pending.push(fw)
				s.metrics.events.WithLabelValues(resultQueued).Inc()
				s.metrics.pending.Inc()
			} else {
				immediate = append(immediate, fw)
				s.metrics.events.WithLabelValues(resultDispatched).Inc()
			}
		}
	}
	s.mu.Unlock()

	for _, fw := range immediate {
		select {
		case <-inst.done:
			return
		default:
		}
		s.invoke(fw, reasonImmediate)
	}
}

// Check dispatches every deferred change queued so far on the calling
// goroutine, most recent change first. It never blocks on I/O. Changes
// that arrive while handlers run are left for the next Check, and changes
// not yet dispatched when Shutdown starts are dropped.
func (s *Service) Check() {
	s.mu.Lock()
	inst := s.cur
	if inst == nil {
		s.mu.Unlock()
		return
	}
	ready := inst.pending.drain()
	if len(ready) == 0 {
		s.mu.Unlock()
		return
	}
	inst.drains.Add(1)
	s.mu.Unlock()
	defer inst.drains.Done()

	s.metrics.pending.Sub(float64(len(ready)))

	for i, fw := range ready {
		if !s.current(inst) {
			s.log.Debug("service stopped during check, dropping changes",
				"dropped", len(ready)-i)
			return
		}
		s.invoke(fw, reasonDeferred)
	}
}

// current reports whether inst is still the running instance.
func (s *Service) current(inst *instance) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur == inst
}

// invoke runs fw's handler, containing any panic so that one broken
// handler cannot take down the event loop or the caller of Check.
func (s *Service) invoke(fw FileWatch, reason string) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.panics.Inc()
			s.log.Error("file change handler panicked",
				"path", fw.Path,
				"cookie", fw.Cookie,
				"reason", reason,
				"panic", r)
		}
	}()

	fw.Handler.OnChange(fw.Path, fw.Cookie)
	s.metrics.callbacks.WithLabelValues(reason).Inc()
}

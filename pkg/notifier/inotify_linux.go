//go:build linux

package notifier

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	inotifyMask = unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO

	// Room for 1024 records with short names per read.
	readBufferSize = 1024 * (unix.SizeofInotifyEvent + 16)
)

// inotify implements Notifier on top of the Linux inotify API.
//
// A reader goroutine blocks in poll(2) on the inotify descriptor and on the
// read end of a pipe. Close writes one byte into the pipe, which wakes the
// reader so it can exit before the descriptors are released.
type inotify struct {
	fd   int
	pipe [2]int

	batches chan []RawEvent
	errors  chan error
	stop    chan struct{}
	exited  chan struct{}

	mu     sync.Mutex
	closed bool
}

func newInotify(cfg Config) (Notifier, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize inotify: %w", err)
	}

	var pipe [2]int
	if err := unix.Pipe2(pipe[:], unix.O_CLOEXEC); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("failed to create cancellation pipe: %w", err)
	}

	n := &inotify{
		fd:      fd,
		pipe:    pipe,
		batches: make(chan []RawEvent, cfg.BufferSize),
		errors:  make(chan error, 4),
		stop:    make(chan struct{}),
		exited:  make(chan struct{}),
	}

	go n.readLoop()
	return n, nil
}

func (n *inotify) Add(dir string) (WatchID, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return 0, ErrClosed
	}

	wd, err := unix.InotifyAddWatch(n.fd, dir, inotifyMask)
	if err != nil {
		return 0, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return WatchID(wd), nil
}

func (n *inotify) Batches() <-chan []RawEvent { return n.batches }

func (n *inotify) Errors() <-chan error { return n.errors }

func (n *inotify) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	close(n.stop)

	var errs []error
	if _, err := unix.Write(n.pipe[1], []byte{0}); err != nil {
		errs = append(errs, fmt.Errorf("failed to signal reader: %w", err))
	} else {
		<-n.exited
	}

	for _, fd := range []int{n.fd, n.pipe[0], n.pipe[1]} {
		if err := unix.Close(fd); err != nil {
			errs = append(errs, fmt.Errorf("failed to close descriptor %d: %w", fd, err))
		}
	}
	return errors.Join(errs...)
}

func (n *inotify) readLoop() {
	defer close(n.exited)

	fds := []unix.PollFd{
		{Fd: int32(n.fd), Events: unix.POLLIN},
		{Fd: int32(n.pipe[0]), Events: unix.POLLIN},
	}
	buf := make([]byte, readBufferSize)

	for {
		if _, err := unix.Poll(fds, -1); err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			n.report(fmt.Errorf("poll failed: %w", err))
			return
		}

		// Cancellation wins over pending events.
		if fds[1].Revents != 0 {
			return
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			n.report(fmt.Errorf("inotify descriptor failed (revents %#x)", fds[0].Revents))
			return
		}
		if fds[0].Revents&unix.POLLIN == 0 {
			continue
		}

		size, err := unix.Read(n.fd, buf)
		if err != nil {
			if errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN) {
				continue
			}
			n.report(fmt.Errorf("read failed: %w", err))
			return
		}

		batch, overflow := decodeEvents(buf[:size])
		if overflow {
			n.report(ErrOverflow)
		}
		if len(batch) == 0 {
			continue
		}

		select {
		case n.batches <- batch:
		case <-n.stop:
			return
		}
	}
}

// report delivers err without blocking the reader.
func (n *inotify) report(err error) {
	select {
	case n.errors <- err:
	default:
	}
}

// decodeEvents splits a buffer read from an inotify descriptor into raw
// events. Records that carry neither IN_CLOSE_WRITE nor IN_MOVED_TO are
// returned with Op 0 so the consumer can discard them. A truncated trailing
// record ends decoding. The second result reports an IN_Q_OVERFLOW record.
func decodeEvents(buf []byte) ([]RawEvent, bool) {
	var (
		batch    []RawEvent
		overflow bool
	)

	for off := 0; off+unix.SizeofInotifyEvent <= len(buf); {
		wd := int32(binary.NativeEndian.Uint32(buf[off:]))
		mask := binary.NativeEndian.Uint32(buf[off+4:])
		nameLen := int(binary.NativeEndian.Uint32(buf[off+12:]))

		start := off + unix.SizeofInotifyEvent
		end := start + nameLen
		if nameLen < 0 || end > len(buf) {
			break
		}
		off = end

		if mask&unix.IN_Q_OVERFLOW != 0 {
			overflow = true
			continue
		}

		batch = append(batch, RawEvent{
			ID:   WatchID(wd),
			Op:   opFromMask(mask),
			Name: string(bytes.TrimRight(buf[start:end], "\x00")),
		})
	}

	return batch, overflow
}

func opFromMask(mask uint32) Op {
	var op Op
	if mask&unix.IN_CLOSE_WRITE != 0 {
		op |= OpWritten
	}
	if mask&unix.IN_MOVED_TO != 0 {
		op |= OpMovedIn
	}
	return op
}

package notifier

import "errors"

// Common errors returned by notification backends.
var (
	// ErrUnknownBackend is returned when Config.Backend names no known backend.
	ErrUnknownBackend = errors.New("unknown notification backend")

	// ErrUnsupportedBackend is returned when a backend is not available on this platform.
	ErrUnsupportedBackend = errors.New("notification backend not supported on this platform")

	// ErrClosed is returned when adding a watch to a closed notifier.
	ErrClosed = errors.New("notifier is closed")

	// ErrOverflow is reported on Errors() when the kernel event queue overflowed
	// and events were lost.
	ErrOverflow = errors.New("notification queue overflow")
)

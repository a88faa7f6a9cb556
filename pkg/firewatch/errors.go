package firewatch

import "errors"

// Common errors returned by the service.
var (
	// ErrResourceInit is returned by Register when the notification source
	// or event loop could not be started. The initial callback still runs.
	ErrResourceInit = errors.New("failed to start file watcher")

	// ErrShuttingDown is returned by Register when it would have to start
	// the event loop while Shutdown is running. The initial callback still
	// runs.
	ErrShuttingDown = errors.New("file watcher is shutting down")

	// ErrInvalidPath is returned for an empty path or one without a file name.
	ErrInvalidPath = errors.New("invalid watch path")

	// ErrPathTooLong is returned for paths longer than MaxPathLen.
	ErrPathTooLong = errors.New("watch path too long")

	// ErrNilHandler is returned when Register is called without a handler.
	ErrNilHandler = errors.New("nil change handler")

	// ErrInvalidMode is returned for a dispatch mode other than Immediate or Deferred.
	ErrInvalidMode = errors.New("invalid dispatch mode")
)

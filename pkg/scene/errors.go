package scene

import "errors"

// Common errors returned by the scene package.
var (
	// ErrNoSuchScene is returned by Select for an index that was never added.
	ErrNoSuchScene = errors.New("no such scene")

	// ErrInvalidInterval is returned by Run for a non-positive frame interval.
	ErrInvalidInterval = errors.New("frame interval must be positive")

	// ErrNotDirectory is returned by Discover when dir is not a directory.
	ErrNotDirectory = errors.New("not a directory")
)

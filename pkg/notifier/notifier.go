package notifier

import (
	"fmt"
	"runtime"
	"strings"
)

// New creates the notifier selected by cfg.
func New(cfg Config) (Notifier, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.Settle <= 0 {
		cfg.Settle = defaultSettle
	}

	switch backend := ResolveBackend(cfg.Backend); backend {
	case BackendInotify:
		return newInotify(cfg)
	case BackendFsnotify:
		return newFsnotify(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// ResolveBackend returns the backend New would use for name.
func ResolveBackend(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name != "" {
		return name
	}
	if runtime.GOOS == "linux" {
		return BackendInotify
	}
	return BackendFsnotify
}

//go:build !linux

package notifier

import "fmt"

func newInotify(Config) (Notifier, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, BackendInotify)
}

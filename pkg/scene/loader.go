package scene

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/0xmhha/firewatch/pkg/firewatch"
	"github.com/0xmhha/firewatch/pkg/logger"
)

// Loader owns a list of scene files and reloads them on change.
// All methods are safe for concurrent use.
type Loader struct {
	reg    Registrar
	log    logger.Logger
	onLoad func(Scene, error)
	now    func() time.Time

	// add serializes Add so a rejected registration can be rolled back.
	add sync.Mutex

	mu     sync.Mutex
	slots  []slot
	active int
}

type slot struct {
	scene Scene
	tried bool
}

// NewLoader creates a loader that registers its files with reg.
func NewLoader(reg Registrar, cfg Config, log logger.Logger) *Loader {
	if log == nil {
		log = logger.Noop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Loader{
		reg:    reg,
		log:    log.With("component", "scene"),
		onLoad: cfg.OnReload,
		now:    now,
	}
}

// Add loads the file at path and watches it for changes. It returns the
// scene index, which is also the firewatch cookie.
//
// A file that cannot be read yet is still added; its Err is set and it is
// loaded on the first change. When the file watcher could not be started
// the scene is loaded once, kept, and the error is returned with its
// index. Registrations rejected outright are not added and return -1.
func (l *Loader) Add(path string) (int, error) {
	l.add.Lock()
	defer l.add.Unlock()

	l.mu.Lock()
	idx := len(l.slots)
	l.slots = append(l.slots, slot{scene: Scene{Index: idx, Path: path}})
	l.mu.Unlock()

	err := l.reg.Register(path, uint64(idx), l, firewatch.Deferred)
	if err == nil {
		return idx, nil
	}

	l.mu.Lock()
	tried := l.slots[idx].tried
	if !tried {
		l.slots = l.slots[:idx]
	}
	l.mu.Unlock()

	if !tried {
		return -1, fmt.Errorf("failed to add scene %s: %w", path, err)
	}
	l.log.Warn("scene loaded without live reload", "path", path, "error", err)
	return idx, fmt.Errorf("scene %s will not reload: %w", path, err)
}

// OnChange implements firewatch.Handler. The cookie is the scene index.
func (l *Loader) OnChange(path string, cookie uint64) {
	idx := int(cookie)
	data, readErr := os.ReadFile(path)

	l.mu.Lock()
	if idx >= len(l.slots) {
		l.mu.Unlock()
		l.log.Warn("change for unknown scene", "path", path, "index", idx)
		return
	}
	s := &l.slots[idx]
	s.tried = true
	if readErr == nil {
		s.scene.Source = data
		s.scene.Version++
		s.scene.LoadedAt = l.now()
		s.scene.Err = nil
	} else {
		s.scene.Err = readErr
	}
	snapshot := s.scene
	l.mu.Unlock()

	if readErr != nil {
		l.log.Warn("failed to load scene, keeping previous source",
			"path", path,
			"version", snapshot.Version,
			"error", readErr)
	} else {
		l.log.Info("scene loaded",
			"path", path,
			"index", idx,
			"version", snapshot.Version,
			"bytes", len(data))
	}

	if l.onLoad != nil {
		l.onLoad(snapshot, readErr)
	}
}

// Select makes scene i the active scene.
func (l *Loader) Select(i int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i < 0 || i >= len(l.slots) {
		return fmt.Errorf("%w: %d", ErrNoSuchScene, i)
	}
	l.active = i
	return nil
}

// Active returns the active scene. It reports false when no scene has
// been added.
func (l *Loader) Active() (Scene, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active >= len(l.slots) {
		return Scene{}, false
	}
	return l.slots[l.active].scene, true
}

// Scenes returns a snapshot of every scene in load order.
func (l *Loader) Scenes() []Scene {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Scene, len(l.slots))
	for i, s := range l.slots {
		out[i] = s.scene
	}
	return out
}

// Frame applies pending reloads and then calls update with the active
// scene. update is not called when there are no scenes.
func (l *Loader) Frame(update func(Scene)) {
	l.reg.Check()

	if s, ok := l.Active(); ok && update != nil {
		update(s)
	}
}

// Run calls Frame every interval until ctx is done.
func (l *Loader) Run(ctx context.Context, interval time.Duration, update func(Scene)) error {
	if interval <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInterval, interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.log.Debug("frame loop started", "interval", interval)
	frames := 0
	for {
		select {
		case <-ctx.Done():
			l.log.Debug("frame loop stopped", "frames", frames)
			return nil
		case <-ticker.C:
			l.Frame(update)
			frames++
		}
	}
}

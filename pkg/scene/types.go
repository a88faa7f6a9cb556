// Package scene loads scene source files and keeps them current while a
// render loop is running.
//
// Each scene file is registered with a firewatch service in Deferred mode,
// so edits made on disk are picked up at the start of the next frame and
// never while a frame is being drawn.
//
// Example usage:
//
//	svc := firewatch.New(firewatch.Options{Logger: log})
//	defer svc.Shutdown()
//
//	l := scene.NewLoader(svc, scene.Config{}, log)
//	paths, _ := scene.Discover("./scenes", []string{".frag"})
//	for _, p := range paths {
//	    if _, err := l.Add(p); err != nil {
//	        log.Warn("scene not added", "path", p, "error", err)
//	    }
//	}
//	_ = l.Run(ctx, 16*time.Millisecond, func(s scene.Scene) {
//	    draw(s.Source)
//	})
package scene

import (
	"time"

	"github.com/0xmhha/firewatch/pkg/firewatch"
)

// Registrar is the part of firewatch.Service the loader depends on.
type Registrar interface {
	Register(path string, cookie uint64, h firewatch.Handler, mode firewatch.Mode) error
	Check()
}

// Scene is a snapshot of one loaded scene file.
type Scene struct {
	// Index is the position of the scene in load order.
	Index int

	// Path is the file path as passed to Add.
	Path string

	// Source is the most recently read file content.
	Source []byte

	// Version counts successful loads, starting at 1 for the initial load.
	Version int

	// LoadedAt is the time of the last successful load.
	LoadedAt time.Time

	// Err is the error from the last load attempt, nil after a successful one.
	Err error
}

// Loaded reports whether the scene has been read successfully at least once.
func (s Scene) Loaded() bool {
	return s.Version > 0
}

// Config configures a Loader.
type Config struct {
	// OnReload, when set, is called after every load attempt with the
	// updated scene and the read error, if any. It runs on the goroutine
	// that called Add or Frame and must not call Add.
	OnReload func(Scene, error)

	// Now returns the current time. Default: time.Now.
	Now func() time.Time
}

//go:build linux

package firewatch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/firewatch/pkg/notifier"
)

func newInotifyService(t *testing.T) *Service {
	t.Helper()
	svc := New(Options{Notifier: notifier.Config{Backend: notifier.BackendInotify}})
	t.Cleanup(func() { assert.NoError(t, svc.Shutdown()) })
	return svc
}

func TestInotifyDeferredReload(t *testing.T) {
	svc := newInotifyService(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	rec := &recorder{}

	require.NoError(t, svc.Register(path, 1, rec, Deferred))
	require.Equal(t, 1, rec.count())

	require.NoError(t, os.WriteFile(path, []byte("level: debug\n"), 0600))
	require.Eventually(t, func() bool {
		return svc.Stats().Pending == 1
	}, 2*time.Second, 10*time.Millisecond)

	svc.Check()
	assert.Equal(t, 2, rec.count(), "one write is one dispatch")

	// A neighbour in the same directory does not wake this file.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), nil, 0600))
	require.NoError(t, os.WriteFile(path, []byte("level: info\n"), 0600))
	require.Eventually(t, func() bool {
		return svc.Stats().Pending == 1
	}, 2*time.Second, 10*time.Millisecond)

	svc.Check()
	assert.Equal(t, 3, rec.count())
}

func TestInotifyImmediateAtomicReplace(t *testing.T) {
	svc := newInotifyService(t)
	dir := t.TempDir()
	staging := t.TempDir()
	path := filepath.Join(dir, "scene.so")
	rec := &recorder{}

	require.NoError(t, svc.Register(path, 2, rec, Immediate))

	tmp := filepath.Join(staging, "scene.so.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("elf"), 0600))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool {
		return rec.count() == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, call{path, 2}, rec.snapshot()[1])
}

func TestInotifyMissingDirectory(t *testing.T) {
	svc := newInotifyService(t)
	rec := &recorder{}
	path := filepath.Join(t.TempDir(), "missing", "app.yaml")

	require.NoError(t, svc.Register(path, 0, rec, Deferred))
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, Stats{Running: true}, svc.Stats())
}

func TestInotifyConcurrentRegisterThenModify(t *testing.T) {
	svc := newInotifyService(t)
	root := t.TempDir()

	const files, dirs, workers = 64, 5, 8
	paths := make([]string, files)
	recs := make([]*recorder, files)
	for d := 0; d < dirs; d++ {
		require.NoError(t, os.Mkdir(filepath.Join(root, fmt.Sprintf("d%d", d)), 0700))
	}
	for i := range paths {
		paths[i] = filepath.Join(root, fmt.Sprintf("d%d", i%dirs), fmt.Sprintf("f%02d.cfg", i))
		recs[i] = &recorder{}
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := w; i < files; i += workers {
				assert.NoError(t, svc.Register(paths[i], uint64(i), recs[i], Deferred))
			}
		}(w)
	}
	wg.Wait()
	require.Equal(t, Stats{Running: true, Files: files, Directories: dirs}, svc.Stats())

	for _, p := range paths {
		require.NoError(t, os.WriteFile(p, []byte("v: 2\n"), 0600))
	}
	require.Eventually(t, func() bool {
		return svc.Stats().Pending == files
	}, 5*time.Second, 10*time.Millisecond)

	svc.Check()
	for i, rec := range recs {
		assert.Equal(t, 2, rec.count(), "%s: one initial call and one per change", paths[i])
	}
}

package scene

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/firewatch/pkg/firewatch"
	"github.com/0xmhha/firewatch/pkg/notifier"
)

// stubRegistrar behaves like a firewatch service: Register runs the
// initial callback and Check dispatches whatever was touched.
type stubRegistrar struct {
	mu       sync.Mutex
	handlers map[uint64]firewatch.Handler
	paths    map[uint64]string
	modes    []firewatch.Mode
	touched  []uint64
	checks   int
	err      error
	reject   error
}

func newStub() *stubRegistrar {
	return &stubRegistrar{
		handlers: make(map[uint64]firewatch.Handler),
		paths:    make(map[uint64]string),
	}
}

func (r *stubRegistrar) Register(path string, cookie uint64, h firewatch.Handler, mode firewatch.Mode) error {
	if r.reject != nil {
		return r.reject
	}

	r.mu.Lock()
	r.handlers[cookie] = h
	r.paths[cookie] = path
	r.modes = append(r.modes, mode)
	r.mu.Unlock()

	h.OnChange(path, cookie)
	return r.err
}

func (r *stubRegistrar) touch(cookie uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = append(r.touched, cookie)
}

func (r *stubRegistrar) Check() {
	r.mu.Lock()
	r.checks++
	touched := r.touched
	r.touched = nil
	r.mu.Unlock()

	for i := len(touched) - 1; i >= 0; i-- {
		c := touched[i]
		r.handlers[c].OnChange(r.paths[c], c)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.frag"), "b")
	writeFile(t, filepath.Join(dir, "a.FRAG"), "a")
	writeFile(t, filepath.Join(dir, "c.glsl"), "c")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.frag"), 0700))
	writeFile(t, filepath.Join(dir, "nested.frag", "deep.frag"), "not visited")

	tests := []struct {
		name string
		exts []string
		want []string
	}{
		{"filtered", []string{".frag", "glsl"}, []string{"a.FRAG", "b.frag", "c.glsl"}},
		{"single", []string{".glsl"}, []string{"c.glsl"}},
		{"all", nil, []string{"a.FRAG", "b.frag", "c.glsl", "notes.txt"}},
		{"none", []string{".vert"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Discover(dir, tt.exts)
			require.NoError(t, err)

			want := make([]string, len(tt.want))
			for i, name := range tt.want {
				want[i] = filepath.Join(dir, name)
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestDiscoverErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Discover(filepath.Join(dir, "missing"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	file := filepath.Join(dir, "file.frag")
	writeFile(t, file, "x")
	_, err = Discover(file, nil)
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, filepath.Join(home, "scenes"), ExpandHome("~/scenes"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}

func TestLoaderAdd(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.frag")
	b := filepath.Join(dir, "b.frag")
	writeFile(t, a, "void a() {}")
	writeFile(t, b, "void b() {}")

	loaded := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	reg := newStub()
	l := NewLoader(reg, Config{Now: func() time.Time { return loaded }}, nil)

	ia, err := l.Add(a)
	require.NoError(t, err)
	ib, err := l.Add(b)
	require.NoError(t, err)
	assert.Equal(t, 0, ia)
	assert.Equal(t, 1, ib)
	assert.Equal(t, []firewatch.Mode{firewatch.Deferred, firewatch.Deferred}, reg.modes)

	scenes := l.Scenes()
	require.Len(t, scenes, 2)
	assert.Equal(t, Scene{Index: 0, Path: a, Source: []byte("void a() {}"), Version: 1, LoadedAt: loaded}, scenes[0])
	assert.Equal(t, "void b() {}", string(scenes[1].Source))
	assert.True(t, scenes[1].Loaded())
}

func TestLoaderReloadKeepsSourceOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.frag")
	writeFile(t, path, "v1")

	var hooks []error
	reg := newStub()
	l := NewLoader(reg, Config{OnReload: func(_ Scene, err error) { hooks = append(hooks, err) }}, nil)

	idx, err := l.Add(path)
	require.NoError(t, err)

	writeFile(t, path, "v2")
	reg.touch(uint64(idx))
	l.Frame(nil)

	s, ok := l.Active()
	require.True(t, ok)
	assert.Equal(t, "v2", string(s.Source))
	assert.Equal(t, 2, s.Version)

	require.NoError(t, os.Remove(path))
	reg.touch(uint64(idx))
	l.Frame(nil)

	s, _ = l.Active()
	assert.Equal(t, "v2", string(s.Source), "previous source survives a failed read")
	assert.Equal(t, 2, s.Version)
	assert.ErrorIs(t, s.Err, os.ErrNotExist)

	require.Len(t, hooks, 3)
	assert.NoError(t, hooks[0])
	assert.NoError(t, hooks[1])
	assert.ErrorIs(t, hooks[2], os.ErrNotExist)
}

func TestLoaderAddMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "later.frag")
	reg := newStub()
	l := NewLoader(reg, Config{}, nil)

	idx, err := l.Add(path)
	require.NoError(t, err, "a missing file is loaded on its first change")

	s := l.Scenes()[idx]
	assert.False(t, s.Loaded())
	assert.ErrorIs(t, s.Err, os.ErrNotExist)

	writeFile(t, path, "hello")
	reg.touch(uint64(idx))
	l.Frame(nil)
	assert.Equal(t, 1, l.Scenes()[idx].Version)
}

func TestLoaderAddRejected(t *testing.T) {
	reg := newStub()
	reg.reject = firewatch.ErrInvalidPath
	l := NewLoader(reg, Config{}, nil)

	idx, err := l.Add("")
	assert.ErrorIs(t, err, firewatch.ErrInvalidPath)
	assert.Equal(t, -1, idx)
	assert.Empty(t, l.Scenes())

	_, ok := l.Active()
	assert.False(t, ok)
}

func TestLoaderAddWithoutReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.frag")
	writeFile(t, path, "a")

	reg := newStub()
	reg.err = firewatch.ErrResourceInit
	l := NewLoader(reg, Config{}, nil)

	idx, err := l.Add(path)
	assert.ErrorIs(t, err, firewatch.ErrResourceInit)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 1, l.Scenes()[0].Version, "scene is still loaded once")
}

func TestLoaderSelectAndFrame(t *testing.T) {
	dir := t.TempDir()
	reg := newStub()
	l := NewLoader(reg, Config{}, nil)

	called := false
	l.Frame(func(Scene) { called = true })
	assert.False(t, called, "no scenes, no update")
	assert.Equal(t, 1, reg.checks, "Frame always checks for changes")

	for _, name := range []string{"a.frag", "b.frag"} {
		path := filepath.Join(dir, name)
		writeFile(t, path, name)
		_, err := l.Add(path)
		require.NoError(t, err)
	}

	assert.ErrorIs(t, l.Select(2), ErrNoSuchScene)
	assert.ErrorIs(t, l.Select(-1), ErrNoSuchScene)
	require.NoError(t, l.Select(1))

	var got Scene
	l.Frame(func(s Scene) { got = s })
	assert.Equal(t, "b.frag", string(got.Source))
	assert.Equal(t, 2, reg.checks)
}

func TestLoaderRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.frag")
	writeFile(t, path, "a")

	reg := newStub()
	l := NewLoader(reg, Config{}, nil)
	_, err := l.Add(path)
	require.NoError(t, err)

	assert.ErrorIs(t, l.Run(context.Background(), 0, nil), ErrInvalidInterval)

	ctx, cancel := context.WithCancel(context.Background())
	frames := 0
	err = l.Run(ctx, time.Millisecond, func(Scene) {
		frames++
		if frames == 3 {
			cancel()
		}
	})
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, frames, 3)
}

func TestLoaderWithService(t *testing.T) {
	var fake *notifier.Fake
	svc := firewatch.New(firewatch.Options{
		NewNotifier: func() (notifier.Notifier, error) {
			fake = notifier.NewFake()
			return fake, nil
		},
	})
	defer func() { assert.NoError(t, svc.Shutdown()) }()

	path := filepath.Join(t.TempDir(), "main.frag")
	writeFile(t, path, "v1")

	l := NewLoader(svc, Config{}, nil)
	_, err := l.Add(path)
	require.NoError(t, err)

	writeFile(t, path, "v2")
	require.True(t, fake.Touch(path))
	require.True(t, fake.Emit())

	var frame Scene
	l.Frame(func(s Scene) { frame = s })
	assert.Equal(t, "v2", string(frame.Source))
	assert.Equal(t, 2, frame.Version)
}

func TestLoaderUnknownCookie(t *testing.T) {
	l := NewLoader(newStub(), Config{OnReload: func(Scene, error) {
		t.Error("hook must not run for unknown scenes")
	}}, nil)
	l.OnChange("x.frag", 4)
	assert.Empty(t, l.Scenes())
}

func TestLoaderHookSeesError(t *testing.T) {
	reg := newStub()
	var got error
	l := NewLoader(reg, Config{OnReload: func(_ Scene, err error) { got = err }}, nil)

	_, err := l.Add(filepath.Join(t.TempDir(), "missing.frag"))
	require.NoError(t, err)
	assert.True(t, errors.Is(got, os.ErrNotExist))
}

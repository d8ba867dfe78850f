package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLoader struct {
	calls atomic.Int32
	cfg   func() (*Config, error)
}

func (l *stubLoader) Load(ctx context.Context, paths ...string) (*Config, error) {
	l.calls.Add(1)
	return l.cfg()
}

func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "adcanvas.hcl")
	require.NoError(t, os.WriteFile(file, []byte("# v1\n"), 0o644))

	loader := &stubLoader{cfg: func() (*Config, error) {
		cfg := Default()
		cfg.Pipeline.BranchCount = 5
		return cfg, nil
	}}
	var (
		mu  sync.Mutex
		got []*Config
	)
	startWatcher(t, &Watcher{
		Loader:   loader,
		Paths:    []string{file},
		Debounce: 20 * time.Millisecond,
		OnChange: func(_ context.Context, cfg *Config) {
			mu.Lock()
			got = append(got, cfg)
			mu.Unlock()
		},
	})

	// The watch is registered asynchronously; keep touching the file until
	// a reload is observed.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(file, []byte("# v2\n"), 0o644)
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0
	}, 5*time.Second, 50*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, got[0].Pipeline.BranchCount)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	loader := &stubLoader{cfg: func() (*Config, error) { return Default(), nil }}
	startWatcher(t, &Watcher{Loader: loader, Paths: []string{dir}, Debounce: 10 * time.Millisecond})

	for range 5 {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
		time.Sleep(20 * time.Millisecond)
	}
	assert.Zero(t, loader.calls.Load())
}

func TestWatcher_SkipsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.hcl")

	var invalid atomic.Bool
	invalid.Store(true)
	loader := &stubLoader{cfg: func() (*Config, error) {
		cfg := Default()
		if invalid.Load() {
			cfg.Feed.AdInterval = 0
		}
		return cfg, nil
	}}
	var changes atomic.Int32
	startWatcher(t, &Watcher{
		Loader:   loader,
		Paths:    []string{dir},
		Debounce: 10 * time.Millisecond,
		OnChange: func(context.Context, *Config) { changes.Add(1) },
	})

	require.Eventually(t, func() bool {
		_ = os.WriteFile(file, []byte("x = 1\n"), 0o644)
		return loader.calls.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)
	assert.Zero(t, changes.Load())
}

func TestWatcher_LoadErrorIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	loader := &stubLoader{cfg: func() (*Config, error) { return nil, errors.New("syntax error") }}
	startWatcher(t, &Watcher{Loader: loader, Paths: []string{dir}, Debounce: 10 * time.Millisecond})

	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "b.hcl"), []byte("{"), 0o644)
		return loader.calls.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatcher_MissingPath(t *testing.T) {
	w := &Watcher{Loader: &stubLoader{}, Paths: []string{filepath.Join(t.TempDir(), "missing")}}
	require.Error(t, w.Run(context.Background()))
}

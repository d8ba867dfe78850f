package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/specialistvlad/adcanvas/internal/ctxlog"
)

// DefaultDebounce groups the burst of events editors produce on save.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reloads the configuration whenever one of its files changes and
// hands every valid result to OnChange. Invalid configurations are logged
// and skipped.
type Watcher struct {
	Loader   Loader
	Paths    []string
	Debounce time.Duration
	OnChange func(ctx context.Context, cfg *Config)
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	for _, p := range w.Paths {
		dir := p
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			dir = filepath.Dir(p)
		}
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		logger.Debug("Watching configuration.", "path", dir)
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".hcl" {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) && !event.Op.Has(fsnotify.Remove) {
				continue
			}
			logger.Debug("Configuration file changed.", "file", event.Name, "op", event.Op.String())
			timer.Reset(debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error.", "error", err)
		case <-timer.C:
			w.reload(ctx)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	cfg, err := w.Loader.Load(ctx, w.Paths...)
	if err != nil {
		logger.Error("Failed to reload configuration.", "error", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Reloaded configuration is invalid, keeping the previous one.", "error", err)
		return
	}
	logger.Info("Configuration reloaded.")
	if w.OnChange != nil {
		w.OnChange(ctx, cfg)
	}
}

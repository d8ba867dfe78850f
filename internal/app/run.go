package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/adcanvas/internal/config"
	"github.com/specialistvlad/adcanvas/internal/ctxlog"
)

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	a.httpServer = a.newHTTPServer(ctx)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.serve(gctx) })

	if a.config.Watch {
		w := &config.Watcher{
			Loader:   a.loader,
			Paths:    a.config.ConfigPaths,
			OnChange: a.applySettings,
		}
		g.Go(func() error { return w.Run(gctx) })
		a.logger.Info("Watching configuration for changes.", "paths", a.config.ConfigPaths)
	}

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	err := g.Wait()
	a.logger.Debug("App.Run method finished.", "error", err)
	return err
}

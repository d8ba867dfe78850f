package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/adcanvas/internal/ctxlog"
)

const shutdownTimeout = 5 * time.Second

func (a *App) newHTTPServer(ctx context.Context) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", a.settings.Server.Port),
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

// serve runs the HTTP server until it is shut down.
func (a *App) serve(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Canvas server starting", "address", fmt.Sprintf("http://localhost%s/", a.httpServer.Addr))
	// ListenAndServe returns ErrServerClosed on graceful shutdown.
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// shutdown stops the HTTP server and tears down every session.
func (a *App) shutdown() error {
	logger := ctxlog.FromContext(a.ctx)
	ctx, cancel := context.WithTimeout(a.ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if a.httpServer != nil {
		logger.Info("Shutting down canvas server...")
		if err := a.httpServer.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}
	if err := a.registry.CloseAll(ctx); err != nil {
		errs = append(errs, err)
	}
	a.hub.Close()

	logger.Debug("Server shut down.")
	return errors.Join(errs...)
}

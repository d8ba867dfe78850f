package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/adcanvas/internal/config"
	"github.com/specialistvlad/adcanvas/internal/ctxlog"
	"github.com/specialistvlad/adcanvas/internal/generative"
	"github.com/specialistvlad/adcanvas/internal/httpapi"
	"github.com/specialistvlad/adcanvas/internal/localsession"
	"github.com/specialistvlad/adcanvas/internal/metrics"
	"github.com/specialistvlad/adcanvas/internal/realtime"
	"github.com/specialistvlad/adcanvas/internal/session"
	"github.com/specialistvlad/adcanvas/internal/topologystore"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	ctx      context.Context
	config   *Config
	loader   config.Loader
	settings *config.Config

	collector  *metrics.Collector
	factory    *localsession.Factory
	registry   *session.Registry
	hub        *realtime.Hub
	api        *httpapi.Server
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It returns a fully
// wired App with its own isolated logger and metrics registry. A
// configuration that cannot be loaded is a fatal startup error and panics.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:   outW,
		logger: logger,
		ctx:    ctx,
		config: appConfig,
		loader: loader,
	}

	settings, err := a.loadSettings(ctx)
	if err != nil {
		panic(err)
	}
	sessionCfg, err := sessionSettings(settings)
	if err != nil {
		panic(fmt.Errorf("invalid configuration: %w", err))
	}
	a.settings = settings

	a.collector = metrics.NewCollector("adcanvas")
	httpClient := generative.NewHTTPClient(settings.Generative.Timeout)
	assistant := generative.New(generativeConfig(settings.Generative), httpClient, a.collector)
	if settings.Generative.APIKey == "" {
		logger.Warn("No generative API key configured; generation calls will fail.")
	}

	snapshots := &registrySnapshots{}
	a.hub = realtime.NewHub(ctx, settings.Server.CORSOrigins, snapshots)
	a.factory = localsession.NewFactory(sessionCfg, assistant, feedSource(settings.Feed.Source, httpClient), a.hub, a.collector)
	a.registry = session.NewRegistry(a.factory, a.collector)
	snapshots.registry = a.registry
	logger.Debug("Session factory wired.", "branches", sessionCfg.Pipeline.BranchCount, "branch_kind", sessionCfg.Pipeline.BranchKind)

	a.api = httpapi.New(ctx, httpapi.Config{
		Registry:    a.registry,
		Assistant:   assistant,
		ImageClient: httpClient,
		Observer:    a.collector,
		Metrics:     a.collector.Handler(),
		Realtime:    a.hub.Handler(),
		StaticDir:   settings.Server.StaticDir,
		CORSOrigins: settings.Server.CORSOrigins,
		ImageHosts:  settings.Server.ImageHosts,
		Feed: func() httpapi.FeedDefaults {
			s := a.factory.Settings()
			return httpapi.FeedDefaults{TotalSlots: s.TotalSlots, AdInterval: s.AdInterval}
		},
	})
	return a
}

// Registry returns the live sessions. This is primarily for testing.
func (a *App) Registry() *session.Registry {
	return a.registry
}

// Handler returns the HTTP handler serving the API, the realtime endpoint
// and the host UI.
func (a *App) Handler() http.Handler {
	return a.api.Handler()
}

// applySettings pushes a reloaded configuration to future and live
// sessions. Server and generative settings need a restart.
func (a *App) applySettings(ctx context.Context, cfg *config.Config) {
	logger := ctxlog.FromContext(ctx)
	a.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Warn("Reloaded configuration is invalid; keeping the current one.", "error", err)
		return
	}
	s, err := sessionSettings(cfg)
	if err != nil {
		logger.Warn("Reloaded configuration is invalid; keeping the current one.", "error", err)
		return
	}

	a.factory.SetSettings(s)
	updated := 0
	a.registry.Each(func(sess session.Session) {
		if err := sess.Controller().UpdateSettings(s.Pipeline); err != nil {
			logger.Warn("Failed to update session settings.", "session", sess.ID(), "error", err)
			return
		}
		updated++
	})
	logger.Info("Configuration reloaded.", "sessions_updated", updated, "branches", s.Pipeline.BranchCount)
}

// registrySnapshots answers the realtime hub's join requests.
type registrySnapshots struct {
	registry *session.Registry
}

func (r *registrySnapshots) CurrentSnapshot(ctx context.Context, sessionID string) (topologystore.Snapshot, error) {
	s, err := r.registry.Get(sessionID)
	if err != nil {
		return topologystore.Snapshot{}, err
	}
	return s.Controller().Snapshot(ctx), nil
}

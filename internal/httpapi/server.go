// Package httpapi exposes canvas sessions over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/specialistvlad/adcanvas/internal/ctxlog"
	"github.com/specialistvlad/adcanvas/internal/generative"
	"github.com/specialistvlad/adcanvas/internal/node"
	"github.com/specialistvlad/adcanvas/internal/session"
)

// Assistant is the generative service behind the suggestion endpoints.
type Assistant interface {
	Demographics(ctx context.Context, productURL, prompt string) (node.Demographics, error)
	BrandStyle(ctx context.Context, productURL string) (node.BrandStyle, error)
	GenerateImage(ctx context.Context, p generative.ImagePrompt) (generative.Image, error)
}

// HTTPObserver records one served request.
type HTTPObserver interface {
	HTTP(method, route string, status int, elapsed time.Duration)
}

// FeedDefaults are used by the merge endpoint when a request leaves the
// slot count or the ad interval out.
type FeedDefaults struct {
	TotalSlots int
	AdInterval int
}

// Config holds the dependencies of the server. Only Registry is required.
type Config struct {
	Registry  *session.Registry
	Assistant Assistant
	// ImageClient fetches remote images for the proxy endpoint.
	ImageClient *http.Client
	// ImageHosts may be fetched by the image proxy. Entries match either
	// host or host:port. Creatives of live sessions are always allowed.
	ImageHosts []string
	Observer    HTTPObserver
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Realtime is mounted at /socket.io/ when set.
	Realtime    http.Handler
	StaticDir   string
	CORSOrigins []string
	Feed        func() FeedDefaults
}

// Server routes HTTP requests to sessions.
type Server struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a server. The logger carried by ctx is used for request logs.
func New(ctx context.Context, cfg Config) *Server {
	if cfg.ImageClient == nil {
		cfg.ImageClient = http.DefaultClient
	}
	if cfg.Feed == nil {
		cfg.Feed = func() FeedDefaults { return FeedDefaults{TotalSlots: 30, AdInterval: 4} }
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	return &Server{cfg: cfg, logger: ctxlog.FromContext(ctx)}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.health)
	if s.cfg.Metrics != nil {
		r.Handle("/metrics", s.cfg.Metrics)
	}
	if s.cfg.Realtime != nil {
		r.Handle("/socket.io/*", s.cfg.Realtime)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.createSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Delete("/", s.deleteSession)
				r.Post("/demographics", s.requestDemographics)
				r.Post("/demographics/confirm", s.confirmDemographics)
				r.Post("/brand-style", s.suggestBrandStyle)
				r.Post("/brand-style/confirm", s.confirmBrandStyle)
				r.Post("/branches/{nodeID}/preview", s.requestPreview)
				r.Post("/complete", s.completeWorkflow)
				r.Get("/previews/{nodeID}/feed", s.previewFeed)
				r.Post("/previews/{nodeID}/surface", s.reportSurface)
			})
		})
		r.Post("/feed/merge", s.mergeFeed)
		r.Get("/images", s.proxyImage)
	})

	// Endpoints of the standalone service, kept for existing hosts.
	r.Post("/generate-demographics", s.legacyDemographics)
	r.Post("/analyze-brand-style", s.legacyBrandStyle)
	r.Post("/generate-ad-image", s.legacyImage)

	r.Get("/", s.index)
	r.Handle("/*", s.static())
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.cfg.Registry.Len(),
	})
}

package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/specialistvlad/adcanvas/internal/ctxlog"
)

// requestLogger puts a request-scoped logger into the context and logs and
// counts every request once it is served.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		logger := s.logger.With("request_id", chimiddleware.GetReqID(r.Context()))
		r = r.WithContext(ctxlog.WithLogger(r.Context(), logger))

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		elapsed := time.Since(started)
		if s.cfg.Observer != nil {
			s.cfg.Observer.HTTP(r.Method, route, status, elapsed)
		}

		level := logger.Debug
		if status >= http.StatusInternalServerError {
			level = logger.Warn
		}
		level("HTTP request served.", "method", r.Method, "route", route, "status", status, "duration", elapsed)
	})
}

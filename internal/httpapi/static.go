package httpapi

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
)

const missingUI = "UI not found. Ensure static/index.html exists."

// index serves the host UI.
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(s.cfg.StaticDir, "index.html")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) || s.cfg.StaticDir == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(missingUI))
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) static() http.Handler {
	if s.cfg.StaticDir == "" {
		return http.NotFoundHandler()
	}
	return http.FileServer(http.Dir(s.cfg.StaticDir))
}

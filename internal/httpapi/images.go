package httpapi

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/specialistvlad/adcanvas/internal/node"
	"github.com/specialistvlad/adcanvas/internal/session"
)

const maxImageBytes = 32 << 20

var errForbiddenImage = errors.New("image reference not allowed")

// proxyImage resolves an image reference for hosts that cannot load it
// directly. data: references are decoded inline, http(s) references are
// streamed when their host is allowed or they are a creative of a live
// session. Only raster image types are served.
func (s *Server) proxyImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		writeError(ctx, w, fmt.Errorf("%w: ref is required", errBadRequest))
		return
	}

	if strings.HasPrefix(ref, "data:") {
		mediaType, data, err := decodeDataURL(ref)
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		if !servableImage(mediaType) {
			writeError(ctx, w, fmt.Errorf("%w: %q is not an image type", errBadRequest, mediaType))
			return
		}
		imageHeaders(w, mediaType)
		_, _ = w.Write(data)
		return
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeError(ctx, w, fmt.Errorf("%w: unsupported image reference", errBadRequest))
		return
	}
	if !s.imageAllowed(ctx, u, ref) {
		writeError(ctx, w, fmt.Errorf("%w: %s", errForbiddenImage, u.Host))
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	resp, err := s.cfg.ImageClient.Do(req)
	if err != nil {
		writeError(ctx, w, fmt.Errorf("failed to fetch image: %w", err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		writeJSON(w, http.StatusBadGateway, errorBody{Error: fmt.Sprintf("image origin answered %d", resp.StatusCode)})
		return
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !servableImage(mediaType) {
		writeJSON(w, http.StatusBadGateway, errorBody{Error: fmt.Sprintf("image origin answered with %q", mediaType)})
		return
	}

	imageHeaders(w, mediaType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, io.LimitReader(resp.Body, maxImageBytes))
}

// imageAllowed reports whether a remote reference may be fetched: its host
// is configured, or it is the creative of a node in a live session.
func (s *Server) imageAllowed(ctx context.Context, u *url.URL, ref string) bool {
	if slices.Contains(s.cfg.ImageHosts, u.Host) || slices.Contains(s.cfg.ImageHosts, u.Hostname()) {
		return true
	}
	found := false
	s.cfg.Registry.Each(func(sess session.Session) {
		if found {
			return
		}
		for _, n := range sess.Controller().Snapshot(ctx).Nodes {
			if c, ok := node.CreativeOf(n.Payload); ok && c.ImageRef == ref {
				found = true
				return
			}
		}
	})
	return found
}

// servableImage accepts image types a browser renders without running
// script. SVG is excluded.
func servableImage(mediaType string) bool {
	mediaType = strings.ToLower(mediaType)
	return strings.HasPrefix(mediaType, "image/") && mediaType != "image/svg+xml"
}

func imageHeaders(w http.ResponseWriter, mediaType string) {
	h := w.Header()
	h.Set("Content-Type", mediaType)
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Security-Policy", "default-src 'none'; sandbox")
	h.Set("Cache-Control", "private, max-age=3600")
}

// decodeDataURL handles the base64 form data:<mime>;base64,<payload>.
func decodeDataURL(ref string) (string, []byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: malformed data reference", errBadRequest)
	}
	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return "", nil, fmt.Errorf("%w: only base64 data references are supported", errBadRequest)
	}
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		mediaType = parsed
	} else {
		mediaType = "application/octet-stream"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: bad base64 payload: %w", errBadRequest, err)
	}
	return mediaType, data, nil
}

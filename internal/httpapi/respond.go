package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/specialistvlad/adcanvas/internal/ctxlog"
	"github.com/specialistvlad/adcanvas/internal/feed"
	"github.com/specialistvlad/adcanvas/internal/generative"
	"github.com/specialistvlad/adcanvas/internal/pipeline"
	"github.com/specialistvlad/adcanvas/internal/session"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err with the status it maps to.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	logger := ctxlog.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed.", "status", status, "error", err)
	} else {
		logger.Debug("Request rejected.", "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	var statusErr *generative.StatusError
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, pipeline.ErrInvalidPayload),
		errors.Is(err, feed.ErrInvalidAdInterval),
		errors.Is(err, feed.ErrInvalidSlots):
		return http.StatusBadRequest
	case errors.Is(err, errForbiddenImage):
		return http.StatusForbidden
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrPreviewNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrStageNotReady), errors.Is(err, pipeline.ErrStaleGeneration):
		return http.StatusConflict
	case errors.Is(err, generative.ErrMissingAPIKey):
		return http.StatusInternalServerError
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, pipeline.ErrGenerationFailed),
		errors.Is(err, generative.ErrMalformedResponse),
		errors.As(err, &statusErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// decode reads a JSON body into v. An empty body leaves v untouched when
// optional is set.
func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON body: %w", errBadRequest, err)
	}
	return nil
}

package httpapi

import (
	"net/http"

	"github.com/specialistvlad/adcanvas/internal/feed"
)

type mergeRequest struct {
	Content    []feed.ContentItem `json:"content"`
	Creative   *feed.CreativeRef  `json:"creative"`
	TotalSlots *int               `json:"totalSlots"`
	AdInterval *int               `json:"adInterval"`
}

type mergeResponse struct {
	Items   []feed.DisplayItem `json:"items"`
	Display []feed.DisplayItem `json:"display"`
}

// mergeFeed runs a stateless merge for hosts that bring their own content.
func (s *Server) mergeFeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req mergeRequest
	if err := decode(w, r, &req, false); err != nil {
		writeError(ctx, w, err)
		return
	}
	defaults := s.cfg.Feed()
	total, interval := defaults.TotalSlots, defaults.AdInterval
	if req.TotalSlots != nil {
		total = *req.TotalSlots
	}
	if req.AdInterval != nil {
		interval = *req.AdInterval
	}

	items, err := feed.Merge(req.Content, req.Creative, total, interval)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, mergeResponse{Items: items, Display: feed.Duplicate(items)})
}

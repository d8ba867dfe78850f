// Package session defines the interfaces for creating and managing canvas
// sessions, and the Registry that keeps the live ones addressable by id.
// It abstracts away how a session is hosted.
package session

import (
	"context"
	"errors"

	"github.com/specialistvlad/adcanvas/internal/feed"
	"github.com/specialistvlad/adcanvas/internal/pipeline"
	"github.com/specialistvlad/adcanvas/internal/topologystore"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrPreviewNotFound = errors.New("preview not found")
)

// Factory creates a Session. Implementations decide where the graph store
// lives and how previews are rendered.
type Factory interface {
	NewSession(ctx context.Context, id string) (Session, error)
}

// Session is one canvas: a graph store, the controller that writes it and
// the runtime of its previews.
type Session interface {
	ID() string
	Controller() *pipeline.Controller
	// PreviewFeed returns the merged feed of an active Preview node, fetching
	// the content on first use.
	PreviewFeed(ctx context.Context, previewID string) (PreviewFeed, error)
	// ReportSurface records the rendered height of one copy of a preview's
	// feed, which drives its autoscroll.
	ReportSurface(previewID string, singleCopyHeight float64) error
	// Close releases everything the session holds. It accepts a context
	// to allow for graceful cleanup operations.
	Close(ctx context.Context) error
}

// PreviewFeed is the display sequence of one preview. Display is Items
// followed by a second copy of itself.
type PreviewFeed struct {
	PreviewID string             `json:"previewId"`
	Items     []feed.DisplayItem `json:"items"`
	Display   []feed.DisplayItem `json:"display"`
}

// Broadcaster pushes session state to connected hosts.
type Broadcaster interface {
	PublishSnapshot(sessionID string, snap topologystore.Snapshot)
	PublishScroll(sessionID, previewID string, offset float64)
}

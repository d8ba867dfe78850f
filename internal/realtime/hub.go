// Package realtime pushes canvas state to connected hosts over socket.io.
//
// A host connects to the hub, emits "join" with a session id and from then
// on receives a "snapshot" event for every published store revision and a
// "scroll" event for every autoscroll frame of the session's previews.
package realtime

import (
	"context"
	"net/http"
	"strings"

	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"

	"github.com/specialistvlad/adcanvas/internal/ctxlog"
	"github.com/specialistvlad/adcanvas/internal/node"
	"github.com/specialistvlad/adcanvas/internal/session"
	"github.com/specialistvlad/adcanvas/internal/topologystore"
)

// Event names.
const (
	EventJoin     = "join"
	EventLeave    = "leave"
	EventSnapshot = "snapshot"
	EventScroll   = "scroll"
	EventError    = "canvas_error"
)

// SnapshotMessage is the payload of a snapshot event.
type SnapshotMessage struct {
	SessionID string       `json:"sessionId"`
	Revision  uint64       `json:"revision"`
	Nodes     []*node.Node `json:"nodes"`
	Edges     []node.Edge  `json:"edges"`
}

// ScrollMessage is the payload of a scroll event.
type ScrollMessage struct {
	SessionID string  `json:"sessionId"`
	PreviewID string  `json:"previewId"`
	Offset    float64 `json:"offset"`
}

// SnapshotSource answers the current snapshot of a session, sent to a host
// right after it joins.
type SnapshotSource interface {
	CurrentSnapshot(ctx context.Context, sessionID string) (topologystore.Snapshot, error)
}

// Hub is a socket.io server with one room per session.
type Hub struct {
	ctx    context.Context
	io     *socket.Server
	source SnapshotSource
}

var _ session.Broadcaster = (*Hub)(nil)

// NewHub creates the server. ctx carries the logger used for connection
// events. source may be nil, in which case joining sends nothing until the
// next revision.
func NewHub(ctx context.Context, origins []string, source SnapshotSource) *Hub {
	opts := socket.DefaultServerOptions()
	opts.SetCors(&types.Cors{
		Origin:      strings.Join(origins, ","),
		Credentials: true,
	})

	h := &Hub{
		ctx:    ctx,
		io:     socket.NewServer(nil, opts),
		source: source,
	}
	h.io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		h.onConnect(client)
	})
	return h
}

// Handler serves the socket.io endpoint. Mount it at /socket.io/.
func (h *Hub) Handler() http.Handler {
	return h.io.ServeHandler(nil)
}

func (h *Hub) onConnect(client *socket.Socket) {
	logger := ctxlog.FromContext(h.ctx).With("sid", client.Id())
	logger.Debug("Host connected.")

	client.On(EventJoin, func(args ...any) {
		id, ok := sessionArg(args)
		if !ok {
			client.Emit(EventError, map[string]string{"error": "join requires a session id"})
			return
		}
		client.Join(socket.Room(id))
		logger.Info("Host joined session.", "session", id)

		if h.source == nil {
			return
		}
		snap, err := h.source.CurrentSnapshot(h.ctx, id)
		if err != nil {
			client.Emit(EventError, map[string]string{"error": err.Error()})
			return
		}
		client.Emit(EventSnapshot, snapshotMessage(id, snap))
	})

	client.On(EventLeave, func(args ...any) {
		if id, ok := sessionArg(args); ok {
			client.Leave(socket.Room(id))
		}
	})

	client.On("disconnect", func(reason ...any) {
		logger.Debug("Host disconnected.", "reason", reason)
	})
}

// PublishSnapshot sends snap to every host in the session's room.
func (h *Hub) PublishSnapshot(sessionID string, snap topologystore.Snapshot) {
	if err := h.io.To(socket.Room(sessionID)).Emit(EventSnapshot, snapshotMessage(sessionID, snap)); err != nil {
		ctxlog.FromContext(h.ctx).Warn("Failed to publish snapshot.", "session", sessionID, "error", err)
	}
}

// PublishScroll sends one autoscroll offset to the session's room.
func (h *Hub) PublishScroll(sessionID, previewID string, offset float64) {
	msg := ScrollMessage{SessionID: sessionID, PreviewID: previewID, Offset: offset}
	if err := h.io.To(socket.Room(sessionID)).Emit(EventScroll, msg); err != nil {
		ctxlog.FromContext(h.ctx).Debug("Failed to publish scroll offset.", "session", sessionID, "error", err)
	}
}

// Close disconnects every host.
func (h *Hub) Close() {
	h.io.Close(nil)
}

func snapshotMessage(sessionID string, snap topologystore.Snapshot) SnapshotMessage {
	return SnapshotMessage{
		SessionID: sessionID,
		Revision:  snap.Revision,
		Nodes:     snap.Nodes,
		Edges:     snap.Edges,
	}
}

// sessionArg accepts either a bare id or {"sessionId": id}.
func sessionArg(args []any) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	switch v := args[0].(type) {
	case string:
		return v, v != ""
	case map[string]any:
		id, _ := v["sessionId"].(string)
		return id, id != ""
	}
	return "", false
}

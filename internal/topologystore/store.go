// Package topologystore defines the contract of the canvas graph store: the
// single source of truth for which nodes and edges exist and what status each
// node is in.
//
// # Mutation protocol
//
// All writes go through Update, which hands a transaction (Tx) to a callback.
// The callback mutates a private working copy; when it returns nil the copy
// replaces the current state in a single swap and exactly one Snapshot is
// published to subscribers. When it returns an error nothing is applied. A
// multi-node operation such as a fan-out is therefore never observable in a
// half-applied state.
//
// # Snapshots
//
// A Snapshot is an immutable view of the graph at one revision. Readers may
// take snapshots at any time, concurrently with writers. Nodes reachable
// from a snapshot must be treated as read-only.
package topologystore

import (
	"context"
	"errors"
	"strings"

	"github.com/specialistvlad/adcanvas/internal/node"
)

var (
	ErrNodeNotFound        = errors.New("node not found")
	ErrEdgeNotFound        = errors.New("edge not found")
	ErrEdgeEndpointMissing = errors.New("edge endpoint does not exist")
	ErrDuplicateEdge       = errors.New("edge already exists")
)

// Store is the interface of the canvas graph store.
type Store interface {
	// Snapshot returns the current consistent view of the graph.
	Snapshot(ctx context.Context) Snapshot

	// Update applies fn atomically. The returned snapshot is the state after
	// the update, or the unchanged current state when fn fails or makes no
	// change.
	Update(ctx context.Context, fn func(tx Tx) error) (Snapshot, error)

	// Subscribe registers fn to receive every snapshot published after the
	// call, in publish order. Subscribers run synchronously on the writer's
	// goroutine and must not call Update. The returned cancel func is
	// idempotent.
	Subscribe(fn Subscriber) (cancel func())
}

// Subscriber receives published snapshots.
type Subscriber func(Snapshot)

// Tx is the set of mutations available inside Update.
type Tx interface {
	// Node returns the working copy's node with the given id.
	Node(id string) (*node.Node, bool)
	// Nodes returns the working copy's nodes matching pred, sorted by id.
	// A nil pred matches everything.
	Nodes(pred NodePredicate) []*node.Node
	// Edges returns the working copy's edges matching pred, sorted by id.
	Edges(pred EdgePredicate) []node.Edge

	// UpsertNode inserts n or replaces the node with the same id.
	UpsertNode(n *node.Node) error
	// PatchNode applies fn to a private copy of the node and stores the result.
	PatchNode(id string, fn func(n *node.Node) error) error
	// RemoveNodes removes every node matching pred together with every edge
	// touching one of them, and returns the removed ids.
	RemoveNodes(pred NodePredicate) []string

	// InsertEdges adds edges. Both endpoints of each edge must exist.
	InsertEdges(edges ...node.Edge) error
	// PatchEdge applies fn to the edge with the given id.
	PatchEdge(id string, fn func(e *node.Edge)) error
	// RemoveEdges removes every edge matching pred and returns how many were removed.
	RemoveEdges(pred EdgePredicate) int
}

// NodePredicate selects nodes.
type NodePredicate func(n *node.Node) bool

// EdgePredicate selects edges.
type EdgePredicate func(e node.Edge) bool

// OfKind matches nodes of kind k.
func OfKind(k node.Kind) NodePredicate {
	return func(n *node.Node) bool { return n.Kind == k }
}

// WithPrefix matches nodes whose id starts with prefix.
func WithPrefix(prefix string) NodePredicate {
	return func(n *node.Node) bool { return strings.HasPrefix(n.ID, prefix) }
}

// From matches edges leaving source.
func From(source string) EdgePredicate {
	return func(e node.Edge) bool { return e.Source == source }
}

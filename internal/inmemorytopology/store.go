package inmemorytopology

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/specialistvlad/adcanvas/internal/ctxlog"
	"github.com/specialistvlad/adcanvas/internal/node"
	"github.com/specialistvlad/adcanvas/internal/topologystore"
)

// Store implements topologystore.Store using maps guarded by mutexes.
type Store struct {
	writeMu sync.Mutex

	mu       sync.RWMutex
	nodes    map[string]*node.Node
	edges    map[string]node.Edge
	revision uint64
	current  topologystore.Snapshot

	subsMu  sync.Mutex
	subs    map[uint64]topologystore.Subscriber
	nextSub uint64
}

// New creates a new, empty in-memory graph store.
func New() *Store {
	return &Store{
		nodes: make(map[string]*node.Node),
		edges: make(map[string]node.Edge),
		subs:  make(map[uint64]topologystore.Subscriber),
	}
}

var _ topologystore.Store = (*Store)(nil)

// Snapshot returns the latest published snapshot.
func (s *Store) Snapshot(ctx context.Context) topologystore.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update runs fn against a working copy and swaps it in when fn succeeds.
func (s *Store) Update(ctx context.Context, fn func(tx topologystore.Tx) error) (topologystore.Snapshot, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	t := &tx{
		nodes: maps.Clone(s.nodes),
		edges: maps.Clone(s.edges),
	}
	s.mu.RUnlock()

	if err := fn(t); err != nil {
		return s.Snapshot(ctx), err
	}
	if !t.dirty {
		return s.Snapshot(ctx), nil
	}

	s.mu.Lock()
	s.nodes = t.nodes
	s.edges = t.edges
	s.revision++
	snap := buildSnapshot(s.revision, s.nodes, s.edges)
	s.current = snap
	s.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("Graph store updated.", "revision", snap.Revision, "nodes", len(snap.Nodes), "edges", len(snap.Edges))
	s.publish(snap)
	return snap, nil
}

// Subscribe registers fn for future snapshots.
func (s *Store) Subscribe(fn topologystore.Subscriber) func() {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
		})
	}
}

func (s *Store) publish(snap topologystore.Snapshot) {
	s.subsMu.Lock()
	ids := slices.Sorted(maps.Keys(s.subs))
	subs := make([]topologystore.Subscriber, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.subsMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func buildSnapshot(rev uint64, nodes map[string]*node.Node, edges map[string]node.Edge) topologystore.Snapshot {
	snap := topologystore.Snapshot{
		Revision: rev,
		Nodes:    slices.Collect(maps.Values(nodes)),
		Edges:    slices.Collect(maps.Values(edges)),
	}
	slices.SortFunc(snap.Nodes, func(a, b *node.Node) int { return cmp.Compare(a.ID, b.ID) })
	slices.SortFunc(snap.Edges, func(a, b node.Edge) int { return cmp.Compare(a.ID, b.ID) })
	return snap
}

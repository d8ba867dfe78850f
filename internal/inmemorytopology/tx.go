package inmemorytopology

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/specialistvlad/adcanvas/internal/node"
	"github.com/specialistvlad/adcanvas/internal/topologystore"
)

// tx is the working copy handed to Update callbacks. The maps are private
// clones; node values are cloned before any in-place change.
type tx struct {
	nodes map[string]*node.Node
	edges map[string]node.Edge
	dirty bool
}

func (t *tx) Node(id string) (*node.Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

func (t *tx) Nodes(pred topologystore.NodePredicate) []*node.Node {
	var out []*node.Node
	for _, n := range t.nodes {
		if pred == nil || pred(n) {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b *node.Node) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (t *tx) Edges(pred topologystore.EdgePredicate) []node.Edge {
	var out []node.Edge
	for _, e := range t.edges {
		if pred == nil || pred(e) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b node.Edge) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (t *tx) UpsertNode(n *node.Node) error {
	if err := n.Validate(); err != nil {
		return err
	}
	t.nodes[n.ID] = n.Clone()
	t.dirty = true
	return nil
}

func (t *tx) PatchNode(id string, fn func(n *node.Node) error) error {
	current, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", topologystore.ErrNodeNotFound, id)
	}
	patched := current.Clone()
	if err := fn(patched); err != nil {
		return err
	}
	if patched.ID != id {
		return fmt.Errorf("node %s: patch must not change the id", id)
	}
	if err := patched.Validate(); err != nil {
		return err
	}
	t.nodes[id] = patched
	t.dirty = true
	return nil
}

func (t *tx) RemoveNodes(pred topologystore.NodePredicate) []string {
	var removed []string
	for id, n := range t.nodes {
		if pred(n) {
			removed = append(removed, id)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	slices.Sort(removed)
	for _, id := range removed {
		delete(t.nodes, id)
	}
	for id, e := range t.edges {
		_, sourceOK := t.nodes[e.Source]
		_, targetOK := t.nodes[e.Target]
		if !sourceOK || !targetOK {
			delete(t.edges, id)
		}
	}
	t.dirty = true
	return removed
}

func (t *tx) InsertEdges(edges ...node.Edge) error {
	for _, e := range edges {
		if _, ok := t.nodes[e.Source]; !ok {
			return fmt.Errorf("%w: edge %s source %s", topologystore.ErrEdgeEndpointMissing, e.ID, e.Source)
		}
		if _, ok := t.nodes[e.Target]; !ok {
			return fmt.Errorf("%w: edge %s target %s", topologystore.ErrEdgeEndpointMissing, e.ID, e.Target)
		}
		if _, exists := t.edges[e.ID]; exists {
			return fmt.Errorf("%w: %s", topologystore.ErrDuplicateEdge, e.ID)
		}
		t.edges[e.ID] = e
	}
	if len(edges) > 0 {
		t.dirty = true
	}
	return nil
}

func (t *tx) PatchEdge(id string, fn func(e *node.Edge)) error {
	e, ok := t.edges[id]
	if !ok {
		return fmt.Errorf("%w: %s", topologystore.ErrEdgeNotFound, id)
	}
	fn(&e)
	e.ID, e.Source, e.Target = id, t.edges[id].Source, t.edges[id].Target
	t.edges[id] = e
	t.dirty = true
	return nil
}

func (t *tx) RemoveEdges(pred topologystore.EdgePredicate) int {
	count := 0
	for id, e := range t.edges {
		if pred(e) {
			delete(t.edges, id)
			count++
		}
	}
	if count > 0 {
		t.dirty = true
	}
	return count
}

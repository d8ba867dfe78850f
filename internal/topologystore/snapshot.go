package topologystore

import (
	"slices"
	"strings"

	"github.com/specialistvlad/adcanvas/internal/node"
)

// Snapshot is an immutable view of the graph at one revision. Nodes and
// edges are sorted by id.
type Snapshot struct {
	Revision uint64      `json:"revision"`
	Nodes    []*node.Node `json:"nodes"`
	Edges    []node.Edge  `json:"edges"`
}

// Node looks a node up by id.
func (s Snapshot) Node(id string) (*node.Node, bool) {
	i, found := slices.BinarySearchFunc(s.Nodes, id, func(n *node.Node, id string) int {
		return strings.Compare(n.ID, id)
	})
	if !found {
		return nil, false
	}
	return s.Nodes[i], true
}

// Edge looks an edge up by id.
func (s Snapshot) Edge(id string) (node.Edge, bool) {
	i, found := slices.BinarySearchFunc(s.Edges, id, func(e node.Edge, id string) int {
		return strings.Compare(e.ID, id)
	})
	if !found {
		return node.Edge{}, false
	}
	return s.Edges[i], true
}

// NodesOf returns the nodes matching pred, in id order.
func (s Snapshot) NodesOf(pred NodePredicate) []*node.Node {
	var out []*node.Node
	for _, n := range s.Nodes {
		if pred == nil || pred(n) {
			out = append(out, n)
		}
	}
	return out
}

// EdgesOf returns the edges matching pred, in id order.
func (s Snapshot) EdgesOf(pred EdgePredicate) []node.Edge {
	var out []node.Edge
	for _, e := range s.Edges {
		if pred == nil || pred(e) {
			out = append(out, e)
		}
	}
	return out
}

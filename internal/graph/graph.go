package graph

import (
	"github.com/specialistvlad/adcanvas/internal/node"
	"github.com/specialistvlad/adcanvas/internal/nodeid"
	"github.com/specialistvlad/adcanvas/internal/topologystore"
)

// View answers relationship queries over one snapshot.
type View struct {
	snap     topologystore.Snapshot
	children map[string][]string
	parents  map[string][]string
}

// New builds a view of snap.
func New(snap topologystore.Snapshot) *View {
	v := &View{
		snap:     snap,
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
	for _, e := range snap.Edges {
		v.children[e.Source] = append(v.children[e.Source], e.Target)
		v.parents[e.Target] = append(v.parents[e.Target], e.Source)
	}
	return v
}

// Snapshot returns the snapshot the view was built from.
func (v *View) Snapshot() topologystore.Snapshot { return v.snap }

// Node returns the node with the given id.
func (v *View) Node(id string) (*node.Node, bool) { return v.snap.Node(id) }

// Children returns the direct successors of id, in edge id order.
func (v *View) Children(id string) []*node.Node {
	return v.resolve(v.children[id])
}

// Parents returns the direct predecessors of id, in edge id order.
func (v *View) Parents(id string) []*node.Node {
	return v.resolve(v.parents[id])
}

// ChildOfKind returns the first successor of id with kind k.
func (v *View) ChildOfKind(id string, k node.Kind) (*node.Node, bool) {
	for _, c := range v.Children(id) {
		if c.Kind == k {
			return c, true
		}
	}
	return nil, false
}

// OfKind returns all nodes of kind k, in id order.
func (v *View) OfKind(k node.Kind) []*node.Node {
	return v.snap.NodesOf(topologystore.OfKind(k))
}

// Generation groups nodes by their shared sibling prefix. Nodes that were not
// produced by a fan-out are left out.
func (v *View) Generation(k node.Kind) map[string][]*node.Node {
	out := make(map[string][]*node.Node)
	for _, n := range v.OfKind(k) {
		addr, err := nodeid.Parse(n.ID)
		if err != nil {
			continue
		}
		if _, indexed := addr.BranchIndex(); !indexed {
			continue
		}
		prefix := addr.Prefix()
		out[prefix] = append(out[prefix], n)
	}
	return out
}

// IncomingEdge returns the edge from source to target, if any.
func (v *View) IncomingEdge(source, target string) (node.Edge, bool) {
	return v.snap.Edge(node.EdgeID(source, target))
}

func (v *View) resolve(ids []string) []*node.Node {
	out := make([]*node.Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := v.snap.Node(id); ok {
			out = append(out, n)
		}
	}
	return out
}

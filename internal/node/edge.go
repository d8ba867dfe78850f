package node

// Handles used by every edge of the linear flow.
const (
	HandleOutput = "output"
	HandleInput  = "input"
)

// Edge is a directed link between two nodes. Active only drives visual
// emphasis; it never changes topology.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle"`
	TargetHandle string `json:"targetHandle"`
	Active       bool   `json:"active"`
}

// EdgeID is the canonical id of the edge from source to target.
func EdgeID(source, target string) string {
	return source + "->" + target
}

// Link builds an edge on the standard output/input handles.
func Link(source, target string, active bool) Edge {
	return Edge{
		ID:           EdgeID(source, target),
		Source:       source,
		Target:       target,
		SourceHandle: HandleOutput,
		TargetHandle: HandleInput,
		Active:       active,
	}
}

// Touches reports whether the edge has id as either endpoint.
func (e Edge) Touches(id string) bool {
	return e.Source == id || e.Target == id
}

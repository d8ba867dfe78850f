// Package node defines the records held by the canvas graph: nodes with a
// closed set of kinds and statuses, their kind-specific payloads, and the
// edges linking them.
package node

import (
	"fmt"

	"github.com/specialistvlad/adcanvas/internal/nodeid"
)

// Kind identifies which pipeline stage a node represents. The set is closed.
type Kind int

const (
	KindProductInput Kind = iota
	KindDemographics
	KindBrandStyle
	KindGenerate
	KindImageResult
	KindPreview
)

var kindNames = map[Kind]string{
	KindProductInput: "product_input",
	KindDemographics: "demographics",
	KindBrandStyle:   "brand_style",
	KindGenerate:     "generate",
	KindImageResult:  "image_result",
	KindPreview:      "preview",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown node kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Position is a 2-D canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Offset returns p translated by dx, dy.
func (p Position) Offset(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Node is a single vertex of the canvas graph.
type Node struct {
	ID       string   `json:"id"`
	Kind     Kind     `json:"kind"`
	Status   Status   `json:"status"`
	Position Position `json:"position"`
	// CenterOffset is the signed vertical offset from the fan-out source,
	// zero for nodes that were not produced by a fan-out.
	CenterOffset float64 `json:"centerOffset"`
	Payload      Payload `json:"payload,omitempty"`
}

// New creates a node whose kind is taken from its payload.
func New(id string, status Status, pos Position, payload Payload) *Node {
	return &Node{
		ID:       id,
		Kind:     payload.Kind(),
		Status:   status,
		Position: pos,
		Payload:  payload,
	}
}

// Address returns the parsed identifier of the node.
func (n *Node) Address() (*nodeid.Address, error) {
	return nodeid.Parse(n.ID)
}

// Validate checks that the node is internally consistent: a parseable id, a
// known status and a payload matching the kind.
func (n *Node) Validate() error {
	if _, err := nodeid.Parse(n.ID); err != nil {
		return fmt.Errorf("node id %q: %w", n.ID, err)
	}
	if !n.Status.Valid() {
		return fmt.Errorf("node %s: invalid status %d", n.ID, n.Status)
	}
	if n.Payload != nil && n.Payload.Kind() != n.Kind {
		return fmt.Errorf("node %s: %w: payload is %s", n.ID, ErrKindMismatch, n.Payload.Kind())
	}
	return nil
}

// Clone returns a deep copy. Payload slices are copied so that a clone can be
// handed to readers while the original keeps being mutated.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Payload != nil {
		c.Payload = n.Payload.clone()
	}
	return &c
}

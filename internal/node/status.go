package node

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of a node. Transitions only move forward:
// Pending → Active → Completed.
type Status int

const (
	StatusPending Status = iota
	StatusActive
	StatusCompleted
)

var (
	// ErrInvalidTransition is returned when a status change would move a node
	// backwards or skip the Active state.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrKindMismatch is returned when a payload does not belong to the node's kind.
	ErrKindMismatch = errors.New("payload kind mismatch")
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusCompleted:
		return "completed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Valid reports whether s is one of the declared statuses.
func (s Status) Valid() bool {
	return s >= StatusPending && s <= StatusCompleted
}

// CanAdvance reports whether moving from s to next respects the monotonic
// lifecycle. Staying in place is allowed so transitions stay idempotent.
func (s Status) CanAdvance(next Status) bool {
	switch {
	case !next.Valid():
		return false
	case s == next:
		return true
	default:
		return next == s+1
	}
}

// Advance moves the node to next, or reports ErrInvalidTransition.
func (n *Node) Advance(next Status) error {
	if !n.Status.CanAdvance(next) {
		return fmt.Errorf("node %s: %w: %s -> %s", n.ID, ErrInvalidTransition, n.Status, next)
	}
	n.Status = next
	return nil
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pending":
		*s = StatusPending
	case "active":
		*s = StatusActive
	case "completed":
		*s = StatusCompleted
	default:
		return fmt.Errorf("unknown status %q", b)
	}
	return nil
}

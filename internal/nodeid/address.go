package nodeid

import (
	"fmt"
	"slices"
	"strings"
)

// String serializes the Address into its canonical path string representation.
func (a *Address) String() string {
	if a == nil {
		return ""
	}

	var sb strings.Builder
	for i, segment := range a.Path {
		if i > 0 {
			sb.WriteRune('.')
		}
		sb.WriteString(segment.Name)
		if segment.Index != -1 {
			sb.WriteString(fmt.Sprintf("[%d]", segment.Index))
		}
	}

	return sb.String()
}

// Equal checks for deep equality between two Address pointers.
func (a *Address) Equal(other *Address) bool {
	if a == nil || other == nil {
		return a == other
	}
	return slices.Equal(a.Path, other.Path)
}

// Sibling builds the address of the index-th member of a fan-out. All members
// of one fan-out share the prefix `kind.g<token>` and differ only by index.
func Sibling(kind, token string, index int) *Address {
	return &Address{Path: []PathSegment{
		NewPathSegment(kind),
		NewPathSegmentWithIndex("g"+token, index),
	}}
}

// Derived builds the address of a node owned by parent, e.g. the preview of a
// branch. The parent's full path is kept so the relationship is recoverable.
func Derived(kind string, parent *Address) *Address {
	path := make([]PathSegment, 0, len(parent.Path)+1)
	path = append(path, NewPathSegment(kind))
	path = append(path, parent.Path...)
	return &Address{Path: path}
}

// Prefix returns the shared sibling prefix: the address string with the
// trailing branch index removed.
func (a *Address) Prefix() string {
	if a == nil || len(a.Path) == 0 {
		return ""
	}
	trimmed := &Address{Path: slices.Clone(a.Path)}
	trimmed.Path[len(trimmed.Path)-1].Index = -1
	return trimmed.String()
}

// BranchIndex returns the index carried by the last segment, if any.
func (a *Address) BranchIndex() (int, bool) {
	if a == nil || len(a.Path) == 0 {
		return 0, false
	}
	last := a.Path[len(a.Path)-1]
	return last.Index, last.HasIndex()
}

// Kind returns the name of the first segment, which by convention is the
// node kind for generated nodes and the full id for fixed stages.
func (a *Address) Kind() string {
	if a == nil || len(a.Path) == 0 {
		return ""
	}
	return a.Path[0].Name
}

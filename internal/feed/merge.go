package feed

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/adcanvas/internal/node"
)

var (
	// ErrInvalidAdInterval is returned when the ad interval is zero or negative.
	ErrInvalidAdInterval = errors.New("ad interval must be positive")
	// ErrInvalidSlots is returned when the slot count is negative.
	ErrInvalidSlots = errors.New("total slots must not be negative")
)

// SlotKind tags a display slot.
type SlotKind string

const (
	SlotAd      SlotKind = "ad"
	SlotContent SlotKind = "content"
)

// CreativeRef is the generated creative placed in ad slots.
type CreativeRef = node.Creative

// ContentItem is one sourced post.
type ContentItem struct {
	Text     string `json:"content"`
	Author   string `json:"author"`
	MediaRef string `json:"media,omitempty"`
}

// DisplayItem is one rendered slot of the merged feed. Position is the
// 1-based slot number the item was produced for. Creative may be nil on an
// ad slot, which the consumer renders as a placeholder.
type DisplayItem struct {
	Position int          `json:"position"`
	Kind     SlotKind     `json:"kind"`
	Content  *ContentItem `json:"content,omitempty"`
	Creative *CreativeRef `json:"creative,omitempty"`
}

// Merge interleaves content with the creative. Every adInterval-th slot is
// an ad; other slots take the next content item in order and are omitted
// once content runs out. Extra content beyond totalSlots is dropped.
func Merge(content []ContentItem, creative *CreativeRef, totalSlots, adInterval int) ([]DisplayItem, error) {
	if adInterval <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidAdInterval, adInterval)
	}
	if totalSlots < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSlots, totalSlots)
	}

	out := make([]DisplayItem, 0, totalSlots)
	next := 0
	for p := 1; p <= totalSlots; p++ {
		if p%adInterval == 0 {
			out = append(out, DisplayItem{Position: p, Kind: SlotAd, Creative: creative})
			continue
		}
		if next >= len(content) {
			continue
		}
		item := content[next]
		next++
		out = append(out, DisplayItem{Position: p, Kind: SlotContent, Content: &item})
	}
	return out, nil
}

// Duplicate returns items followed by a second copy of itself. Scrolling
// through the doubled sequence and wrapping at the halfway point hides the
// seam.
func Duplicate(items []DisplayItem) []DisplayItem {
	out := make([]DisplayItem, 0, 2*len(items))
	out = append(out, items...)
	return append(out, items...)
}

package pipeline

import (
	"fmt"

	"github.com/specialistvlad/adcanvas/internal/node"
)

// Settings control fan-out size and canvas layout.
type Settings struct {
	// BranchCount is the number of creatives requested per fan-out.
	BranchCount int
	// BranchSpacing is the vertical distance between fan-out siblings.
	BranchSpacing float64
	// ColumnSpacing is the horizontal distance between consecutive stages.
	ColumnSpacing float64
	// BranchKind is the kind of the fan-out siblings, KindImageResult or
	// KindGenerate.
	BranchKind node.Kind
}

func DefaultSettings() Settings {
	return Settings{
		BranchCount:   3,
		BranchSpacing: 220,
		ColumnSpacing: 360,
		BranchKind:    node.KindImageResult,
	}
}

func (s Settings) Validate() error {
	if s.BranchCount < 1 {
		return fmt.Errorf("branch count must be at least 1, got %d", s.BranchCount)
	}
	if s.BranchSpacing < 0 || s.ColumnSpacing < 0 {
		return fmt.Errorf("spacing must not be negative")
	}
	if s.BranchKind != node.KindImageResult && s.BranchKind != node.KindGenerate {
		return fmt.Errorf("branch kind must be %s or %s, got %s", node.KindImageResult, node.KindGenerate, s.BranchKind)
	}
	return nil
}

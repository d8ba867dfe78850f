package pipeline

import (
	"context"

	"github.com/specialistvlad/adcanvas/internal/node"
	"github.com/specialistvlad/adcanvas/internal/nodeid"
	"github.com/specialistvlad/adcanvas/internal/topologystore"
)

// Stage is the overall state of a session, derived from node statuses.
type Stage string

const (
	StageAwaitingInput         Stage = "awaiting_input"
	StageDemographicsPending   Stage = "demographics_pending"
	StageDemographicsActive    Stage = "demographics_active"
	StageDemographicsConfirmed Stage = "demographics_confirmed"
	StageBrandStyleActive      Stage = "brand_style_active"
	StageGenerating            Stage = "generating"
	StageImageActive           Stage = "image_active"
	StagePreviewActive         Stage = "preview_active"
	StagePreviewCompleted      Stage = "preview_completed"
)

// Stage reports where the session currently is.
func (c *Controller) Stage(ctx context.Context) Stage {
	c.mu.Lock()
	generating := c.pending != ""
	snap := c.store.Snapshot(ctx)
	c.mu.Unlock()
	return deriveStage(snap, generating)
}

func deriveStage(snap topologystore.Snapshot, generating bool) Stage {
	status := func(id string) (node.Status, bool) {
		n, ok := snap.Node(id)
		if !ok {
			return 0, false
		}
		return n.Status, true
	}

	if _, ok := status(nodeid.ProductInput); !ok {
		return StageAwaitingInput
	}
	switch dem, _ := status(nodeid.Demographics); dem {
	case node.StatusPending:
		return StageDemographicsPending
	case node.StatusActive:
		return StageDemographicsActive
	}
	bs, _ := status(nodeid.BrandStyle)
	switch {
	case generating:
		return StageGenerating
	case bs == node.StatusPending:
		return StageDemographicsConfirmed
	case bs == node.StatusActive:
		return StageBrandStyleActive
	}

	previews := snap.NodesOf(topologystore.OfKind(node.KindPreview))
	if len(previews) == 0 {
		return StageImageActive
	}
	for _, p := range previews {
		if p.Status != node.StatusCompleted {
			return StagePreviewActive
		}
	}
	return StagePreviewCompleted
}

// Inputs is the data accumulated so far, as threaded through the stages.
type Inputs struct {
	Product      *node.ProductInput          `json:"product,omitempty"`
	Demographics *node.Demographics          `json:"demographics,omitempty"`
	Confirmed    *node.ConfirmedDemographics `json:"confirmedDemographics,omitempty"`
	BrandStyle   *node.BrandStyle            `json:"brandStyle,omitempty"`
}

// Inputs collects the accumulated pipeline data from the stage nodes.
func (c *Controller) Inputs(ctx context.Context) Inputs {
	snap := c.store.Snapshot(ctx)
	var in Inputs
	if n, ok := snap.Node(nodeid.ProductInput); ok {
		if p, ok := n.Payload.(node.ProductInputPayload); ok {
			product := p.Input
			in.Product = &product
		}
	}
	if n, ok := snap.Node(nodeid.Demographics); ok {
		if p, ok := n.Payload.(node.DemographicsPayload); ok {
			if p.Raw != nil {
				raw := p.Raw.Clone()
				in.Demographics = &raw
			}
			if p.Confirmed != nil {
				confirmed := p.Confirmed.Clone()
				in.Confirmed = &confirmed
			}
		}
	}
	if n, ok := snap.Node(nodeid.BrandStyle); ok {
		if p, ok := n.Payload.(node.BrandStylePayload); ok && p.Style != nil {
			style := p.Style.Clone()
			in.BrandStyle = &style
		}
	}
	return in
}

package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/specialistvlad/adcanvas/internal/ctxlog"
	"github.com/specialistvlad/adcanvas/internal/node"
	"github.com/specialistvlad/adcanvas/internal/nodeid"
	"github.com/specialistvlad/adcanvas/internal/topologystore"
)

const (
	transitionStart                 = "start"
	transitionDemographicsReceived  = "demographics_received"
	transitionDemographicsConfirmed = "demographics_confirmed"
	transitionBrandStyleConfirmed   = "brand_style_confirmed"
	transitionPreviewRequested      = "preview_requested"
	transitionWorkflowCompleted     = "workflow_completed"
)

// Start seeds the three fixed stage nodes with ProductInput active. Calling
// it again while ProductInput is still active replaces the product input;
// once the product input has been consumed it is a no-op.
func (c *Controller) Start(ctx context.Context, in node.ProductInput) (topologystore.Snapshot, error) {
	if err := c.check(in); err != nil {
		c.finish(ctx, transitionStart, topologystore.Snapshot{}, false, err)
		return c.store.Snapshot(ctx), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	col := c.settings.ColumnSpacing
	noop := false
	snap, err := c.store.Update(ctx, func(tx topologystore.Tx) error {
		existing, ok := tx.Node(nodeid.ProductInput)
		if !ok {
			seed := []*node.Node{
				node.New(nodeid.ProductInput, node.StatusActive, node.Position{}, node.ProductInputPayload{Input: in}),
				node.New(nodeid.Demographics, node.StatusPending, node.Position{X: col}, node.DemographicsPayload{}),
				node.New(nodeid.BrandStyle, node.StatusPending, node.Position{X: 2 * col}, node.BrandStylePayload{}),
			}
			for _, n := range seed {
				if err := tx.UpsertNode(n); err != nil {
					return err
				}
			}
			return tx.InsertEdges(
				node.Link(nodeid.ProductInput, nodeid.Demographics, false),
				node.Link(nodeid.Demographics, nodeid.BrandStyle, false),
			)
		}
		if existing.Status != node.StatusActive {
			noop = true
			return nil
		}
		if current, ok := existing.Payload.(node.ProductInputPayload); ok && current.Input == in {
			noop = true
			return nil
		}
		return tx.PatchNode(nodeid.ProductInput, func(n *node.Node) error {
			n.Payload = node.ProductInputPayload{Input: in}
			return nil
		})
	})
	c.finish(ctx, transitionStart, snap, noop, err)
	return snap, err
}

// OnDemographicsReceived completes ProductInput, activates the Demographics
// stage with the inferred demographics and activates the edge between them.
// Re-delivery while the stage is active replaces the raw result.
func (c *Controller) OnDemographicsReceived(ctx context.Context, d node.Demographics) (topologystore.Snapshot, error) {
	if err := c.check(d); err != nil {
		c.finish(ctx, transitionDemographicsReceived, topologystore.Snapshot{}, false, err)
		return c.store.Snapshot(ctx), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	raw := d.Clone()
	snap, err := c.store.Update(ctx, func(tx topologystore.Tx) error {
		dem, ok := tx.Node(nodeid.Demographics)
		if !ok {
			return fmt.Errorf("%w: session has no product input", ErrStageNotReady)
		}
		if dem.Status == node.StatusCompleted {
			return fmt.Errorf("%w: demographics already confirmed", ErrStageNotReady)
		}
		if err := advance(tx, nodeid.ProductInput, node.StatusCompleted); err != nil {
			return err
		}
		if err := tx.PatchNode(nodeid.Demographics, func(n *node.Node) error {
			p, _ := n.Payload.(node.DemographicsPayload)
			p.Raw = &raw
			n.Payload = p
			return n.Advance(node.StatusActive)
		}); err != nil {
			return err
		}
		return activateEdge(tx, nodeid.ProductInput, nodeid.Demographics)
	})
	c.finish(ctx, transitionDemographicsReceived, snap, false, err)
	return snap, err
}

// OnDemographicsConfirmed completes the Demographics stage with the
// user-edited result and activates BrandStyle with that snapshot attached.
func (c *Controller) OnDemographicsConfirmed(ctx context.Context, d node.ConfirmedDemographics) (topologystore.Snapshot, error) {
	if err := c.check(d); err != nil {
		c.finish(ctx, transitionDemographicsConfirmed, topologystore.Snapshot{}, false, err)
		return c.store.Snapshot(ctx), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	confirmed := d.Clone()
	snap, err := c.store.Update(ctx, func(tx topologystore.Tx) error {
		dem, ok := tx.Node(nodeid.Demographics)
		if !ok || dem.Status == node.StatusPending {
			return fmt.Errorf("%w: demographics have not been received", ErrStageNotReady)
		}
		if err := tx.PatchNode(nodeid.Demographics, func(n *node.Node) error {
			p, _ := n.Payload.(node.DemographicsPayload)
			p.Confirmed = &confirmed
			n.Payload = p
			return n.Advance(node.StatusCompleted)
		}); err != nil {
			return err
		}
		if err := tx.PatchNode(nodeid.BrandStyle, func(n *node.Node) error {
			p, _ := n.Payload.(node.BrandStylePayload)
			attached := confirmed.Clone()
			p.Demographics = &attached
			n.Payload = p
			if n.Status == node.StatusPending {
				n.Status = node.StatusActive
			}
			return nil
		}); err != nil {
			return err
		}
		return activateEdge(tx, nodeid.Demographics, nodeid.BrandStyle)
	})
	c.finish(ctx, transitionDemographicsConfirmed, snap, false, err)
	return snap, err
}

// fanOutInputs is everything the generation call needs, captured under the
// writer lock.
type fanOutInputs struct {
	token    string
	settings Settings
	request  CreativeRequest
	demo     node.ConfirmedDemographics
	style    node.BrandStyle
	origin   node.Position
	// prior is BrandStyle's status and confirmed style before the attempt.
	priorStatus node.Status
	priorStyle  *node.BrandStyle
}

// OnBrandStyleConfirmed stores the confirmed style, keeps BrandStyle active
// and requests the creatives. When they arrive, the previous fan-out (if
// any) is replaced by one sibling per creative, each linked from BrandStyle,
// and BrandStyle is completed. A failed or superseded generation leaves the
// topology as it was; a failed one also restores BrandStyle's prior status
// and style when an earlier fan-out had completed it.
func (c *Controller) OnBrandStyleConfirmed(ctx context.Context, style node.BrandStyle) (topologystore.Snapshot, error) {
	if err := c.check(style); err != nil {
		c.finish(ctx, transitionBrandStyleConfirmed, topologystore.Snapshot{}, false, err)
		return c.store.Snapshot(ctx), err
	}

	started := time.Now()
	in, snap, err := c.beginFanOut(ctx, style.Clone())
	if err != nil {
		c.finish(ctx, transitionBrandStyleConfirmed, snap, false, err)
		return snap, err
	}

	creatives, genErr := c.generator.GenerateCreatives(ctx, in.request)

	snap, removedPreviews, err := c.applyFanOut(ctx, in, creatives, genErr)
	c.finish(ctx, transitionBrandStyleConfirmed, snap, false, err)
	if err != nil {
		return snap, err
	}
	c.recorder.FanOut(min(len(creatives), in.settings.BranchCount), time.Since(started))
	if len(removedPreviews) > 0 && c.hooks.PreviewsRemoved != nil {
		c.hooks.PreviewsRemoved(ctx, removedPreviews)
	}
	return snap, nil
}

func (c *Controller) beginFanOut(ctx context.Context, style node.BrandStyle) (fanOutInputs, topologystore.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	in := fanOutInputs{
		token:    c.newToken(),
		settings: c.settings,
		style:    style,
	}
	snap, err := c.store.Update(ctx, func(tx topologystore.Tx) error {
		bs, ok := tx.Node(nodeid.BrandStyle)
		if !ok || bs.Status == node.StatusPending {
			return fmt.Errorf("%w: demographics have not been confirmed", ErrStageNotReady)
		}
		bp, _ := bs.Payload.(node.BrandStylePayload)
		if bp.Demographics == nil {
			return fmt.Errorf("%w: brand style has no demographics attached", ErrStageNotReady)
		}
		in.demo = bp.Demographics.Clone()
		in.origin = bs.Position
		in.priorStatus = bs.Status
		if bp.Style != nil {
			prior := bp.Style.Clone()
			in.priorStyle = &prior
		}

		product := ""
		if pi, ok := tx.Node(nodeid.ProductInput); ok {
			if pp, ok := pi.Payload.(node.ProductInputPayload); ok {
				product = pp.Input.ProductURL
			}
		}
		in.request = CreativeRequest{
			ProductURL:         product,
			Gender:             in.demo.Gender,
			AgeRange:           FormatAgeRange(in.demo.AgeRange),
			Language:           slices.Clone(in.demo.Language),
			Location:           slices.Clone(in.demo.Location),
			Colors:             slices.Clone(style.Colors),
			Mood:               style.Mood,
			ProductDescription: style.ProductDescription,
			BranchCount:        in.settings.BranchCount,
		}

		// A confirmation after a completed fan-out reopens the stage until
		// the replacement fan-out lands.
		return tx.PatchNode(nodeid.BrandStyle, func(n *node.Node) error {
			p, _ := n.Payload.(node.BrandStylePayload)
			s := style.Clone()
			p.Style = &s
			n.Payload = p
			n.Status = node.StatusActive
			return nil
		})
	})
	if err != nil {
		return in, snap, err
	}
	c.pending = in.token
	return in, snap, nil
}

func (c *Controller) applyFanOut(ctx context.Context, in fanOutInputs, creatives []node.Creative, genErr error) (topologystore.Snapshot, []string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending != in.token {
		return c.store.Snapshot(ctx), nil, fmt.Errorf("%w: token %s", ErrStaleGeneration, in.token)
	}
	c.pending = ""

	if genErr != nil {
		return c.revertBrandStyle(ctx, in), nil, fmt.Errorf("%w: %w", ErrGenerationFailed, genErr)
	}
	if len(creatives) == 0 {
		return c.revertBrandStyle(ctx, in), nil, fmt.Errorf("%w: no creatives returned", ErrGenerationFailed)
	}
	if len(creatives) > in.settings.BranchCount {
		creatives = creatives[:in.settings.BranchCount]
	}

	var removedPreviews []string
	snap, err := c.store.Update(ctx, func(tx topologystore.Tx) error {
		for _, p := range tx.Nodes(topologystore.OfKind(node.KindPreview)) {
			removedPreviews = append(removedPreviews, p.ID)
		}
		tx.RemoveNodes(isFanOutNode)

		offsets := CenteredOffsets(len(creatives), in.settings.BranchSpacing)
		x := in.origin.X + in.settings.ColumnSpacing
		edges := make([]node.Edge, 0, len(creatives))
		for i, creative := range creatives {
			id := nodeid.Sibling(in.settings.BranchKind.String(), in.token, i).String()
			branch := node.New(id, node.StatusActive, node.Position{X: x, Y: in.origin.Y + offsets[i]}, branchPayload(in, i, creative))
			branch.CenterOffset = offsets[i]
			if err := tx.UpsertNode(branch); err != nil {
				return err
			}
			edges = append(edges, node.Link(nodeid.BrandStyle, id, true))
		}
		if err := tx.InsertEdges(edges...); err != nil {
			return err
		}
		return advance(tx, nodeid.BrandStyle, node.StatusCompleted)
	})
	if err != nil {
		return snap, nil, err
	}
	return snap, removedPreviews, nil
}

// revertBrandStyle puts BrandStyle back to where the failed attempt found
// it, so a completed stage keeps describing the branches still on the
// canvas. Must be called with c.mu held.
func (c *Controller) revertBrandStyle(ctx context.Context, in fanOutInputs) topologystore.Snapshot {
	if in.priorStatus != node.StatusCompleted {
		return c.store.Snapshot(ctx)
	}
	snap, err := c.store.Update(ctx, func(tx topologystore.Tx) error {
		return tx.PatchNode(nodeid.BrandStyle, func(n *node.Node) error {
			p, _ := n.Payload.(node.BrandStylePayload)
			p.Style = in.priorStyle
			n.Payload = p
			n.Status = in.priorStatus
			return nil
		})
	})
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to restore brand style after failed generation.", "error", err)
		return c.store.Snapshot(ctx)
	}
	return snap
}

func branchPayload(in fanOutInputs, index int, creative node.Creative) node.Payload {
	source := node.GeneratePayload{
		Index:        index,
		Demographics: in.demo.Clone(),
		Style:        in.style.Clone(),
	}
	if in.settings.BranchKind == node.KindGenerate {
		source.Creative = &creative
		return source
	}
	return node.ImageResultPayload{Index: index, Creative: creative, Source: source}
}

func isFanOutNode(n *node.Node) bool {
	switch n.Kind {
	case node.KindGenerate, node.KindImageResult, node.KindPreview:
		return true
	}
	return false
}

// OnBranchPreviewRequested attaches a Preview node to the branch and
// completes the branch. Unknown branches and branches that already have a
// preview are left alone.
func (c *Controller) OnBranchPreviewRequested(ctx context.Context, branchID string) (topologystore.Snapshot, error) {
	c.mu.Lock()

	col := c.settings.ColumnSpacing
	var created *node.Node
	snap, err := c.store.Update(ctx, func(tx topologystore.Tx) error {
		branch, ok := tx.Node(branchID)
		if !ok || (branch.Kind != node.KindImageResult && branch.Kind != node.KindGenerate) {
			return nil
		}
		addr, err := branch.Address()
		if err != nil {
			return err
		}
		previewID := nodeid.Derived(node.KindPreview.String(), addr).String()
		if _, exists := tx.Node(previewID); exists {
			return nil
		}
		creative, _ := node.CreativeOf(branch.Payload)
		preview := node.New(previewID, node.StatusActive, branch.Position.Offset(col, 0), node.PreviewPayload{
			BranchID: branchID,
			Creative: creative,
		})
		if err := tx.UpsertNode(preview); err != nil {
			return err
		}
		if err := advance(tx, branchID, node.StatusCompleted); err != nil {
			return err
		}
		if err := tx.InsertEdges(node.Link(branchID, previewID, true)); err != nil {
			return err
		}
		created = preview
		return nil
	})
	c.mu.Unlock()

	c.finish(ctx, transitionPreviewRequested, snap, created == nil, err)
	if err != nil {
		return snap, err
	}
	if created != nil && c.hooks.PreviewActivated != nil {
		c.hooks.PreviewActivated(ctx, created.Clone())
	}
	return snap, nil
}

// OnWorkflowCompleted completes every Preview node. Other stages are not
// touched.
func (c *Controller) OnWorkflowCompleted(ctx context.Context) (topologystore.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := false
	snap, err := c.store.Update(ctx, func(tx topologystore.Tx) error {
		for _, p := range tx.Nodes(topologystore.OfKind(node.KindPreview)) {
			if p.Status == node.StatusCompleted {
				continue
			}
			if err := advance(tx, p.ID, node.StatusCompleted); err != nil {
				return err
			}
			changed = true
		}
		return nil
	})
	c.finish(ctx, transitionWorkflowCompleted, snap, !changed, err)
	return snap, err
}

// advance moves a node to status, leaving it untouched when it is already
// there.
func advance(tx topologystore.Tx, id string, status node.Status) error {
	n, ok := tx.Node(id)
	if !ok {
		return fmt.Errorf("%w: %s", topologystore.ErrNodeNotFound, id)
	}
	if n.Status == status {
		return nil
	}
	return tx.PatchNode(id, func(n *node.Node) error { return n.Advance(status) })
}

func activateEdge(tx topologystore.Tx, source, target string) error {
	id := node.EdgeID(source, target)
	for _, e := range tx.Edges(topologystore.From(source)) {
		if e.ID != id {
			continue
		}
		if e.Active {
			return nil
		}
		return tx.PatchEdge(id, func(e *node.Edge) { e.Active = true })
	}
	return fmt.Errorf("%w: %s", topologystore.ErrEdgeNotFound, id)
}

package generative

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/adcanvas/internal/ctxlog"
	"github.com/specialistvlad/adcanvas/internal/node"
	"github.com/specialistvlad/adcanvas/internal/pipeline"
)

type imageRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
}

type imageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// Image is one generated picture together with the prompt that produced it.
type Image struct {
	ImageRef string `json:"image_url"`
	Prompt   string `json:"prompt_used"`
}

// GenerateImage produces a single image. A base64 answer is turned into a
// data URL so the reference can be used directly.
func (c *Client) GenerateImage(ctx context.Context, p ImagePrompt) (Image, error) {
	prompt := BuildImagePrompt(p)
	var resp imageResponse
	if err := c.post(ctx, c.image, c.cfg.ImageURL, imageRequest{Model: c.cfg.ImageModel, Prompt: prompt, N: 1}, &resp); err != nil {
		return Image{}, fmt.Errorf("image generation: %w", err)
	}
	if len(resp.Data) == 0 {
		return Image{}, fmt.Errorf("image generation: %w: missing image data", ErrMalformedResponse)
	}
	ref := resp.Data[0].URL
	if ref == "" && resp.Data[0].B64JSON != "" {
		ref = "data:image/png;base64," + resp.Data[0].B64JSON
	}
	if ref == "" {
		return Image{}, fmt.Errorf("image generation: %w: no image url", ErrMalformedResponse)
	}
	return Image{ImageRef: ref, Prompt: prompt}, nil
}

// GenerateCreatives requests one image per branch, at most
// MaxConcurrentImages at a time. Branches that fail are skipped; the call
// fails only when no image was produced.
func (c *Client) GenerateCreatives(ctx context.Context, req pipeline.CreativeRequest) ([]node.Creative, error) {
	if req.BranchCount < 1 {
		return nil, fmt.Errorf("image generation: no branches requested")
	}
	prompt := ImagePrompt{
		ProductURL:         req.ProductURL,
		ProductDescription: req.ProductDescription,
		Colors:             req.Colors,
		Mood:               req.Mood,
	}

	results := make([]*node.Creative, req.BranchCount)
	errs := make([]error, req.BranchCount)
	var g errgroup.Group
	g.SetLimit(c.cfg.MaxConcurrentImages)
	for i := range req.BranchCount {
		g.Go(func() error {
			img, err := c.GenerateImage(ctx, prompt)
			if err != nil {
				errs[i] = err
				return err
			}
			results[i] = &node.Creative{ImageRef: img.ImageRef}
			return nil
		})
	}
	firstErr := g.Wait()

	out := make([]node.Creative, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	if len(out) == 0 {
		return nil, errors.Join(errs...)
	}
	if firstErr != nil {
		ctxlog.FromContext(ctx).Warn("Some creatives failed.", "requested", req.BranchCount, "produced", len(out), "error", errors.Join(errs...))
	}
	return out, nil
}

var _ pipeline.CreativeGenerator = (*Client)(nil)

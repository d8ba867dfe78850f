package generative

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/specialistvlad/adcanvas/internal/node"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete runs one chat completion and decodes the JSON answer into out.
func (c *Client) complete(ctx context.Context, system, user string, out any) error {
	req := chatRequest{
		Model: c.cfg.ChatModel,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.7,
	}
	var resp chatResponse
	if err := c.post(ctx, c.chat, c.cfg.ChatURL, req, &resp); err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	content := stripFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

// Demographics infers the target audience of a product.
func (c *Client) Demographics(ctx context.Context, productURL, prompt string) (node.Demographics, error) {
	var d node.Demographics
	if err := c.complete(ctx, demographicsSystemPrompt, demographicsUserPrompt(productURL, prompt), &d); err != nil {
		return node.Demographics{}, fmt.Errorf("demographics inference: %w", err)
	}
	return d, nil
}

// BrandStyle extracts the visual identity of the website at productURL.
func (c *Client) BrandStyle(ctx context.Context, productURL string) (node.BrandStyle, error) {
	var s node.BrandStyle
	if err := c.complete(ctx, brandStyleSystemPrompt, brandStyleUserPrompt(productURL), &s); err != nil {
		return node.BrandStyle{}, fmt.Errorf("brand style inference: %w", err)
	}
	return s, nil
}

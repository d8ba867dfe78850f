// Package generative talks to the OpenAI-compatible Grok endpoints that infer
// demographics and brand style and generate the ad creatives.
package generative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/specialistvlad/adcanvas/internal/ctxlog"
)

const (
	DefaultChatURL    = "https://api.x.ai/v1/chat/completions"
	DefaultImageURL   = "https://api.x.ai/v1/images/generations"
	DefaultChatModel  = "grok-4-0709"
	DefaultImageModel = "grok-2-image"
)

var (
	// ErrMissingAPIKey is returned by every call when no API key is configured.
	ErrMissingAPIKey = errors.New("GROK_API_KEY is not set")
	// ErrMalformedResponse is returned when the upstream answer cannot be decoded.
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Code, e.Body)
}

// BreakerObserver is notified of circuit breaker state changes. State is 0
// for closed, 1 for half-open and 2 for open.
type BreakerObserver interface {
	BreakerState(endpoint string, state int)
}

// Config configures a Client. Empty fields take the package defaults.
type Config struct {
	ChatURL    string
	ImageURL   string
	ChatModel  string
	ImageModel string
	APIKey     string
	// Timeout bounds a single upstream request.
	Timeout time.Duration
	// BreakerThreshold is the number of consecutive failures that opens an
	// endpoint's breaker.
	BreakerThreshold uint32
	// BreakerCooldown is how long an open breaker rejects calls.
	BreakerCooldown time.Duration
	// MaxConcurrentImages bounds the image requests of one fan-out.
	MaxConcurrentImages int
}

// Client is safe for concurrent use.
type Client struct {
	cfg   Config
	http  *http.Client
	chat  *gobreaker.CircuitBreaker
	image *gobreaker.CircuitBreaker
}

// NewHTTPClient returns the pooled client shared by all upstream calls.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// New creates a client. httpClient may be nil, in which case one is built
// with NewHTTPClient. observer may be nil.
func New(cfg Config, httpClient *http.Client, observer BreakerObserver) *Client {
	if cfg.ChatURL == "" {
		cfg.ChatURL = DefaultChatURL
	}
	if cfg.ImageURL == "" {
		cfg.ImageURL = DefaultImageURL
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultImageModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}
	if cfg.MaxConcurrentImages <= 0 {
		cfg.MaxConcurrentImages = 4
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(cfg.Timeout)
	}
	return &Client{
		cfg:   cfg,
		http:  httpClient,
		chat:  newBreaker("chat", cfg, observer),
		image: newBreaker("image", cfg, observer),
	}
}

func newBreaker(name string, cfg Config, observer BreakerObserver) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !countsAgainstBreaker(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if observer != nil {
				observer.BreakerState(name, int(to))
			}
		},
	})
}

// countsAgainstBreaker reports whether err indicates an unhealthy upstream.
// Client-side problems and caller cancellation do not.
func countsAgainstBreaker(err error) bool {
	if errors.Is(err, ErrMissingAPIKey) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return true
}

// post sends body as JSON to url through breaker and decodes the reply into out.
func (c *Client) post(ctx context.Context, breaker *gobreaker.CircuitBreaker, url string, body, out any) error {
	if c.cfg.APIKey == "" {
		return ErrMissingAPIKey
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	logger := ctxlog.FromContext(ctx).With("endpoint", breaker.Name())
	started := time.Now()
	_, err = breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &StatusError{Code: resp.StatusCode, Body: string(raw)}
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		return nil, nil
	})
	if err != nil {
		logger.Warn("Upstream call failed.", "duration", time.Since(started), "error", err)
		return err
	}
	logger.Debug("Upstream call succeeded.", "duration", time.Since(started))
	return nil
}

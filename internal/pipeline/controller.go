package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/specialistvlad/adcanvas/internal/ctxlog"
	"github.com/specialistvlad/adcanvas/internal/metrics"
	"github.com/specialistvlad/adcanvas/internal/node"
	"github.com/specialistvlad/adcanvas/internal/topologystore"
)

// CreativeRequest is what the creative generator receives for one fan-out.
type CreativeRequest struct {
	ProductURL         string
	Gender             string
	AgeRange           string
	Language           []string
	Location           []string
	Colors             []string
	Mood               string
	ProductDescription string
	BranchCount        int
}

// CreativeGenerator produces up to BranchCount creatives.
type CreativeGenerator interface {
	GenerateCreatives(ctx context.Context, req CreativeRequest) ([]node.Creative, error)
}

// Hooks are called after a transition has been committed, outside of any
// lock. Nil hooks are skipped.
type Hooks struct {
	// PreviewActivated is called with a newly created Preview node.
	PreviewActivated func(ctx context.Context, preview *node.Node)
	// PreviewsRemoved is called with the ids of Preview nodes dropped by a
	// new fan-out.
	PreviewsRemoved func(ctx context.Context, ids []string)
}

// Option configures a Controller.
type Option func(*Controller)

func WithSettings(s Settings) Option {
	return func(c *Controller) { c.settings = s }
}

func WithHooks(h Hooks) Option {
	return func(c *Controller) { c.hooks = h }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithTokenSource replaces the generator of fan-out tokens. Tokens end up in
// node ids and must match [a-zA-Z0-9_-]+.
func WithTokenSource(fn func() string) Option {
	return func(c *Controller) { c.newToken = fn }
}

// Controller is the state machine of one canvas session.
type Controller struct {
	store     topologystore.Store
	generator CreativeGenerator
	hooks     Hooks
	recorder  metrics.Recorder
	validate  *validator.Validate
	newToken  func() string

	// mu serializes all writes to the store.
	mu       sync.Mutex
	settings Settings
	// pending is the token of the in-flight fan-out, empty when none.
	pending string
}

// New creates a controller writing to store.
func New(store topologystore.Store, generator CreativeGenerator, opts ...Option) (*Controller, error) {
	c := &Controller{
		store:     store,
		generator: generator,
		settings:  DefaultSettings(),
		recorder:  metrics.Nop{},
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		newToken:  defaultToken,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline settings: %w", err)
	}
	return c, nil
}

func defaultToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Settings returns the settings applied to the next fan-out.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// UpdateSettings replaces the settings. Existing branches keep their layout.
func (c *Controller) UpdateSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid pipeline settings: %w", err)
	}
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
	return nil
}

// Snapshot returns the current graph.
func (c *Controller) Snapshot(ctx context.Context) topologystore.Snapshot {
	return c.store.Snapshot(ctx)
}

func (c *Controller) check(v any) error {
	if err := c.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}

// finish records the outcome of a transition and logs it.
func (c *Controller) finish(ctx context.Context, name string, snap topologystore.Snapshot, noop bool, err error) {
	outcome := "applied"
	switch {
	case err == nil && noop:
		outcome = "noop"
	case err == nil:
	case errors.Is(err, ErrInvalidPayload):
		outcome = "invalid"
	case errors.Is(err, ErrStageNotReady):
		outcome = "not_ready"
	case errors.Is(err, ErrStaleGeneration):
		outcome = "stale"
	default:
		outcome = "failed"
	}
	c.recorder.Transition(name, outcome)

	logger := ctxlog.FromContext(ctx)
	if err != nil {
		logger.Warn("Transition rejected.", "transition", name, "outcome", outcome, "error", err)
		return
	}
	logger.Info("Transition applied.", "transition", name, "outcome", outcome, "revision", snap.Revision)
}

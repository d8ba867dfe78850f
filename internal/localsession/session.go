package localsession

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/adcanvas/internal/autoscroll"
	"github.com/specialistvlad/adcanvas/internal/ctxlog"
	"github.com/specialistvlad/adcanvas/internal/feed"
	"github.com/specialistvlad/adcanvas/internal/inmemorytopology"
	"github.com/specialistvlad/adcanvas/internal/node"
	"github.com/specialistvlad/adcanvas/internal/pipeline"
	"github.com/specialistvlad/adcanvas/internal/session"
)

// Session implements session.Session for local runs.
type Session struct {
	id          string
	ctx         context.Context
	cancel      context.CancelFunc
	store       *inmemorytopology.Store
	controller  *pipeline.Controller
	cache       *feed.Cache
	broadcaster session.Broadcaster
	settings    func() Settings
	unsubscribe func()

	mu       sync.Mutex
	previews map[string]*preview
	closed   bool
	wg       sync.WaitGroup
}

var _ session.Session = (*Session)(nil)

// preview is the runtime state of one active Preview node.
type preview struct {
	id       string
	creative node.Creative
	surface  *surface
	scroller *autoscroll.Scroller
	// items is the merged single copy, nil until the feed was loaded.
	items []feed.DisplayItem
}

func (s *Session) ID() string { return s.id }

func (s *Session) Controller() *pipeline.Controller { return s.controller }

// PreviewFeed returns the merged feed of a preview. The first call fetches
// the content; later calls return the same merge.
func (s *Session) PreviewFeed(ctx context.Context, previewID string) (session.PreviewFeed, error) {
	s.mu.Lock()
	p, ok := s.previews[previewID]
	if !ok {
		s.mu.Unlock()
		return session.PreviewFeed{}, fmt.Errorf("%w: %s", session.ErrPreviewNotFound, previewID)
	}
	items, creative := p.items, p.creative
	s.mu.Unlock()

	if items == nil {
		content, err := s.cache.Get(ctx, previewID)
		if err != nil {
			return session.PreviewFeed{}, fmt.Errorf("failed to fetch feed for %s: %w", previewID, err)
		}
		settings := s.settings()
		merged, err := feed.Merge(content, &creative, settings.TotalSlots, settings.AdInterval)
		if err != nil {
			return session.PreviewFeed{}, err
		}

		s.mu.Lock()
		// Another caller may have merged first; keep one answer per preview.
		if current, ok := s.previews[previewID]; ok {
			if current.items == nil {
				current.items = merged
				current.surface.empty.Store(len(merged) == 0)
			}
			merged = current.items
		}
		s.mu.Unlock()
		items = merged
	}

	return session.PreviewFeed{
		PreviewID: previewID,
		Items:     items,
		Display:   feed.Duplicate(items),
	}, nil
}

// ReportSurface sets the rendered height of one feed copy for a preview.
func (s *Session) ReportSurface(previewID string, singleCopyHeight float64) error {
	if singleCopyHeight < 0 || math.IsNaN(singleCopyHeight) || math.IsInf(singleCopyHeight, 0) {
		return fmt.Errorf("invalid surface height %v", singleCopyHeight)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.previews[previewID]
	if !ok {
		return fmt.Errorf("%w: %s", session.ErrPreviewNotFound, previewID)
	}
	p.surface.height.Store(math.Float64bits(singleCopyHeight))
	return nil
}

// Close stops every preview and detaches the session from its broadcaster.
func (s *Session) Close(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	previews := s.previews
	s.previews = make(map[string]*preview)
	s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.cancel()
	for id, p := range previews {
		p.scroller.Stop()
		s.cache.Forget(id)
	}
	s.wg.Wait()

	logger.Debug("Session closed.", "session", s.id, "previews", len(previews))
	return nil
}

func (s *Session) previewActivated(_ context.Context, n *node.Node) {
	payload, ok := n.Payload.(node.PreviewPayload)
	if !ok {
		return
	}
	settings := s.settings()
	p := &preview{
		id:       n.ID,
		creative: payload.Creative,
		surface: &surface{
			sessionID:   s.id,
			previewID:   n.ID,
			broadcaster: s.broadcaster,
		},
		scroller: autoscroll.New(settings.Scroll),
	}

	// The hook runs after the controller released its lock, so a later
	// fan-out may already have removed the node. Its PreviewsRemoved call
	// follows its commit, so checking the store under s.mu cannot miss it.
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if _, ok := s.store.Snapshot(s.ctx).Node(n.ID); !ok {
		s.mu.Unlock()
		ctxlog.FromContext(s.ctx).Debug("Preview removed before activation.", "preview", n.ID)
		return
	}
	s.previews[n.ID] = p
	s.wg.Add(1)
	s.mu.Unlock()

	go s.startPreview(p)
}

// startPreview loads the feed and starts scrolling it. Load failures leave
// the preview in place so a later PreviewFeed call can retry.
func (s *Session) startPreview(p *preview) {
	defer s.wg.Done()
	logger := ctxlog.FromContext(s.ctx).With("preview", p.id)

	f, err := s.PreviewFeed(s.ctx, p.id)
	if err != nil {
		logger.Warn("Failed to load preview feed.", "error", err)
		return
	}
	if len(f.Items) == 0 {
		logger.Info("Preview feed is empty, not scrolling.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, live := s.previews[p.id]; !live || s.closed {
		return
	}
	p.scroller.Start(s.ctx, p.surface)
	logger.Debug("Preview scrolling.", "items", len(f.Items))
}

func (s *Session) previewsRemoved(ctx context.Context, ids []string) {
	s.mu.Lock()
	var stop []*preview
	for _, id := range ids {
		if p, ok := s.previews[id]; ok {
			stop = append(stop, p)
			delete(s.previews, id)
		}
	}
	s.mu.Unlock()

	for _, p := range stop {
		p.scroller.Stop()
		s.cache.Forget(p.id)
	}
	if len(stop) > 0 {
		ctxlog.FromContext(ctx).Debug("Previews stopped.", "session", s.id, "count", len(stop))
	}
}

// surface is the server-side view of a host's scroll container. The host
// reports the height; offsets are pushed back through the broadcaster.
type surface struct {
	sessionID   string
	previewID   string
	broadcaster session.Broadcaster

	height atomic.Uint64
	empty  atomic.Bool
}

func (f *surface) SingleCopyHeight() float64 {
	return math.Float64frombits(f.height.Load())
}

func (f *surface) SetScrollOffset(offset float64) {
	if f.broadcaster != nil {
		f.broadcaster.PublishScroll(f.sessionID, f.previewID, offset)
	}
}

func (f *surface) Empty() bool { return f.empty.Load() }

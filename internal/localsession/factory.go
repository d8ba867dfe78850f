// Package localsession provides a concrete implementation of the session.Session
// and session.Factory interfaces for in-process canvases.
package localsession

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/specialistvlad/adcanvas/internal/autoscroll"
	"github.com/specialistvlad/adcanvas/internal/ctxlog"
	"github.com/specialistvlad/adcanvas/internal/feed"
	"github.com/specialistvlad/adcanvas/internal/inmemorytopology"
	"github.com/specialistvlad/adcanvas/internal/metrics"
	"github.com/specialistvlad/adcanvas/internal/pipeline"
	"github.com/specialistvlad/adcanvas/internal/session"
	"github.com/specialistvlad/adcanvas/internal/topologystore"
)

// Settings are the knobs applied to sessions. Pipeline settings are copied
// into each controller; the feed and scroll values are read whenever a
// preview is activated.
type Settings struct {
	Pipeline   pipeline.Settings
	TotalSlots int
	AdInterval int
	Scroll     autoscroll.Config
}

// Factory implements session.Factory for local runs.
type Factory struct {
	generator   pipeline.CreativeGenerator
	source      feed.Source
	broadcaster session.Broadcaster
	recorder    metrics.Recorder

	settings atomic.Pointer[Settings]
}

var _ session.Factory = (*Factory)(nil)

// NewFactory wires the shared dependencies of every session. broadcaster
// and recorder may be nil.
func NewFactory(settings Settings, generator pipeline.CreativeGenerator, source feed.Source, broadcaster session.Broadcaster, recorder metrics.Recorder) *Factory {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	f := &Factory{
		generator:   generator,
		source:      source,
		broadcaster: broadcaster,
		recorder:    recorder,
	}
	f.SetSettings(settings)
	return f
}

// Settings returns the settings new sessions and previews pick up.
func (f *Factory) Settings() Settings {
	return *f.settings.Load()
}

// SetSettings replaces the settings for sessions created from now on and
// for previews activated from now on.
func (f *Factory) SetSettings(s Settings) {
	f.settings.Store(&s)
}

// NewSession creates and configures a new local session.
func (f *Factory) NewSession(ctx context.Context, id string) (session.Session, error) {
	logger := ctxlog.FromContext(ctx).With("session", id)
	logger.Debug("localsession.Factory.NewSession called")

	// The session outlives the request that created it.
	base, cancel := context.WithCancel(ctxlog.WithLogger(context.WithoutCancel(ctx), logger))

	s := &Session{
		id:          id,
		ctx:         base,
		cancel:      cancel,
		store:       inmemorytopology.New(),
		cache:       feed.NewCache(f.source),
		broadcaster: f.broadcaster,
		settings:    f.Settings,
		previews:    make(map[string]*preview),
	}

	ctrl, err := pipeline.New(s.store, f.generator,
		pipeline.WithSettings(f.Settings().Pipeline),
		pipeline.WithRecorder(f.recorder),
		pipeline.WithHooks(pipeline.Hooks{
			PreviewActivated: s.previewActivated,
			PreviewsRemoved:  s.previewsRemoved,
		}),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	s.controller = ctrl

	if s.broadcaster != nil {
		s.unsubscribe = s.store.Subscribe(func(snap topologystore.Snapshot) {
			s.broadcaster.PublishSnapshot(id, snap)
		})
	}
	return s, nil
}

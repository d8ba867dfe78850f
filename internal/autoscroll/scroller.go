package autoscroll

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/adcanvas/internal/ctxlog"
)

const (
	DefaultStartDelay    = 500 * time.Millisecond
	DefaultFrameInterval = BaseFrame
)

// Surface is the viewport being scrolled.
type Surface interface {
	// SingleCopyHeight is the rendered height of one copy of the feed.
	SingleCopyHeight() float64
	SetScrollOffset(offset float64)
}

// EmptyReporter is implemented by surfaces that know when their feed has no
// items. The scroller stops once Empty returns true.
type EmptyReporter interface {
	Empty() bool
}

// Config configures a Scroller. Zero durations take the defaults and a nil
// Clock uses RealClock.
type Config struct {
	Speed         float64
	StartDelay    time.Duration
	FrameInterval time.Duration
	Clock         Clock
}

// Scroller owns one scroll loop goroutine at a time.
type Scroller struct {
	cfg Config

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(cfg Config) *Scroller {
	if cfg.StartDelay <= 0 {
		cfg.StartDelay = DefaultStartDelay
	}
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	return &Scroller{cfg: cfg}
}

// Start launches the loop against surface, restarting it from the top if it
// is already running. The loop ends when ctx is done, Stop is called, or the
// surface reports an empty feed.
func (s *Scroller) Start(ctx context.Context, surface Surface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go s.run(loopCtx, surface, done)
}

// Stop cancels the loop and waits for it to exit. No SetScrollOffset call
// happens after Stop returns. Stopping an idle scroller is a no-op.
func (s *Scroller) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Running reports whether a loop is active.
func (s *Scroller) Running() bool {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

func (s *Scroller) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *Scroller) run(ctx context.Context, surface Surface, done chan struct{}) {
	defer close(done)
	logger := ctxlog.FromContext(ctx)
	clock := s.cfg.Clock

	delay := clock.NewTimer(s.cfg.StartDelay)
	select {
	case <-ctx.Done():
		delay.Stop()
		return
	case <-delay.C():
	}

	acc := Accumulator{Speed: s.cfg.Speed}
	last := clock.Now()
	ticker := clock.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()
	logger.Debug("Autoscroll started.", "speed", s.cfg.Speed)

	for {
		var now time.Time
		select {
		case <-ctx.Done():
			logger.Debug("Autoscroll stopped.", "offset", acc.Position())
			return
		case now = <-ticker.C():
		}
		if ctx.Err() != nil {
			return
		}
		if r, ok := surface.(EmptyReporter); ok && r.Empty() {
			logger.Debug("Autoscroll stopped, feed is empty.")
			return
		}
		height := surface.SingleCopyHeight()
		elapsed := now.Sub(last)
		last = now
		// Nothing is laid out yet; there is no offset to publish.
		if height <= 0 {
			continue
		}
		surface.SetScrollOffset(acc.Advance(elapsed, height))
	}
}

package autoscroll

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock fires timers and tickers only when advanced.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	clock   *fakeClock
	c       chan time.Time
	at      time.Time
	period  time.Duration
	stopped bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) add(d, period time.Duration) *fakeWaiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakeWaiter{clock: f, c: make(chan time.Time, 1), at: f.now.Add(d), period: period}
	f.waiters = append(f.waiters, w)
	return w
}

func (f *fakeClock) NewTimer(d time.Duration) Timer   { return fakeTimer{f.add(d, 0)} }
func (f *fakeClock) NewTicker(d time.Duration) Ticker { return fakeTicker{f.add(d, d)} }

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	for _, w := range f.waiters {
		if w.stopped || w.at.After(f.now) {
			continue
		}
		select {
		case w.c <- f.now:
		default:
		}
		if w.period == 0 {
			w.stopped = true
			continue
		}
		for !w.at.After(f.now) {
			w.at = w.at.Add(w.period)
		}
	}
}

// Waiters returns the number of live timers and tickers.
func (f *fakeClock) Waiters() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.waiters {
		if !w.stopped {
			n++
		}
	}
	return n
}

func (w *fakeWaiter) stop() bool {
	w.clock.mu.Lock()
	defer w.clock.mu.Unlock()
	was := !w.stopped
	w.stopped = true
	return was
}

type fakeTimer struct{ w *fakeWaiter }

func (t fakeTimer) C() <-chan time.Time { return t.w.c }
func (t fakeTimer) Stop() bool          { return t.w.stop() }

type fakeTicker struct{ w *fakeWaiter }

func (t fakeTicker) C() <-chan time.Time { return t.w.c }
func (t fakeTicker) Stop()               { t.w.stop() }

type recordingSurface struct {
	height  atomic.Uint64
	empty   atomic.Bool
	offsets chan float64
}

func newRecordingSurface(height float64) *recordingSurface {
	s := &recordingSurface{offsets: make(chan float64, 64)}
	s.setHeight(height)
	return s
}

func (s *recordingSurface) setHeight(h float64)       { s.height.Store(math.Float64bits(h)) }
func (s *recordingSurface) SingleCopyHeight() float64 { return math.Float64frombits(s.height.Load()) }
func (s *recordingSurface) SetScrollOffset(v float64) { s.offsets <- v }
func (s *recordingSurface) Empty() bool               { return s.empty.Load() }

// nextOffset advances the clock one frame at a time until the loop
// publishes an offset.
func nextOffset(t *testing.T, clock *fakeClock, s *recordingSurface) float64 {
	t.Helper()
	var got float64
	require.Eventually(t, func() bool {
		select {
		case got = <-s.offsets:
			return true
		default:
			clock.Advance(BaseFrame)
			return false
		}
	}, 2*time.Second, time.Millisecond)
	return got
}

func TestScroller_WaitsForStartDelay(t *testing.T) {
	clock := newFakeClock()
	surface := newRecordingSurface(100)
	s := New(Config{Speed: 4, StartDelay: 500 * time.Millisecond, Clock: clock})

	s.Start(context.Background(), surface)
	defer s.Stop()

	require.Eventually(t, func() bool { return clock.Waiters() == 1 }, time.Second, time.Millisecond)
	clock.Advance(499 * time.Millisecond)
	assert.Equal(t, 1, clock.Waiters(), "only the start timer should exist before the delay elapses")
	assert.Empty(t, surface.offsets)

	clock.Advance(time.Millisecond)
	assert.InDelta(t, 4.0, nextOffset(t, clock, surface), 1e-9)
}

func TestScroller_WrapsSeamlessly(t *testing.T) {
	clock := newFakeClock()
	surface := newRecordingSurface(25)
	s := New(Config{Speed: 10, StartDelay: BaseFrame, Clock: clock})

	s.Start(context.Background(), surface)
	defer s.Stop()

	var got []float64
	for range 4 {
		got = append(got, nextOffset(t, clock, surface))
	}
	assert.InDeltaSlice(t, []float64{10, 20, 5, 15}, got, 1e-9)
}

func TestScroller_NoTickAfterStop(t *testing.T) {
	clock := newFakeClock()
	surface := newRecordingSurface(100)
	s := New(Config{Speed: 1, StartDelay: BaseFrame, Clock: clock})

	s.Start(context.Background(), surface)
	nextOffset(t, clock, surface)

	s.Stop()
	assert.False(t, s.Running())
	for len(surface.offsets) > 0 {
		<-surface.offsets
	}
	for range 10 {
		clock.Advance(BaseFrame)
	}
	assert.Empty(t, surface.offsets)

	s.Stop()
}

func TestScroller_StopsOnEmptyFeed(t *testing.T) {
	clock := newFakeClock()
	surface := newRecordingSurface(100)
	s := New(Config{Speed: 1, StartDelay: BaseFrame, Clock: clock})

	s.Start(context.Background(), surface)
	nextOffset(t, clock, surface)

	surface.empty.Store(true)
	require.Eventually(t, func() bool {
		clock.Advance(BaseFrame)
		return !s.Running()
	}, 2*time.Second, time.Millisecond)
	s.Stop()
}

func TestScroller_StopsWithContext(t *testing.T) {
	clock := newFakeClock()
	s := New(Config{Speed: 1, Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx, newRecordingSurface(100))
	assert.True(t, s.Running())

	cancel()
	require.Eventually(t, func() bool { return !s.Running() }, time.Second, time.Millisecond)
}

func TestScroller_RestartBeginsFromTop(t *testing.T) {
	clock := newFakeClock()
	surface := newRecordingSurface(100)
	s := New(Config{Speed: 7, StartDelay: BaseFrame, Clock: clock})

	s.Start(context.Background(), surface)
	nextOffset(t, clock, surface)
	nextOffset(t, clock, surface)

	s.Start(context.Background(), surface)
	defer s.Stop()
	for len(surface.offsets) > 0 {
		<-surface.offsets
	}
	assert.InDelta(t, 7.0, nextOffset(t, clock, surface), 1e-9)
}

func TestScroller_SilentUntilSurfaceHasHeight(t *testing.T) {
	clock := newFakeClock()
	surface := newRecordingSurface(0)
	s := New(Config{Speed: 3, StartDelay: BaseFrame, Clock: clock})

	s.Start(context.Background(), surface)
	defer s.Stop()

	require.Eventually(t, func() bool {
		clock.Advance(BaseFrame)
		return clock.Waiters() == 1 && s.Running()
	}, time.Second, time.Millisecond)
	for range 20 {
		clock.Advance(BaseFrame)
		time.Sleep(time.Millisecond)
	}
	assert.Empty(t, surface.offsets)

	surface.setHeight(100)
	assert.InDelta(t, 3.0, nextOffset(t, clock, surface), 1e-9)
}

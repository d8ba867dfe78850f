// Package autoscroll drives the continuous scrolling of a duplicated feed.
//
// The scroll position is a float accumulator advanced once per frame and
// wrapped at the height of one copy of the feed. Since the rendered feed is
// the sequence followed by itself, the wrap lands on identical content.
package autoscroll

import "time"

// BaseFrame is the frame duration the speed is expressed against (60 Hz).
// It also caps the elapsed time applied in a single step.
const BaseFrame = 16 * time.Millisecond

// Accumulator holds the scroll position. The zero value starts at 0 with
// zero speed.
type Accumulator struct {
	Speed float64
	pos   float64
}

// Advance moves the position by Speed scaled to elapsed, clamped to one
// BaseFrame, and wraps it into [0, singleHeight). A non-positive height
// means nothing is laid out yet and leaves the position untouched.
func (a *Accumulator) Advance(elapsed time.Duration, singleHeight float64) float64 {
	if singleHeight <= 0 {
		return a.pos
	}
	delta := min(max(elapsed, 0), BaseFrame)
	a.pos += a.Speed * float64(delta) / float64(BaseFrame)
	for a.pos >= singleHeight {
		a.pos -= singleHeight
	}
	return a.pos
}

// Position returns the current offset.
func (a *Accumulator) Position() float64 { return a.pos }

// Reset rewinds to the top.
func (a *Accumulator) Reset() { a.pos = 0 }

// File: internal/watch/debounce.go
package watch

import "time"

// Debouncer collapses a burst of Touch calls into one tick on C, delivered
// after the configured quiet period. It is not safe for concurrent Touch
// calls; both loops in this package drive it from a single goroutine.
type Debouncer struct {
	quiet time.Duration
	timer *time.Timer
	c     chan time.Time
}

// NewDebouncer returns a debouncer with the given quiet period. A
// non-positive period falls back to 500ms.
func NewDebouncer(quiet time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = 500 * time.Millisecond
	}
	return &Debouncer{quiet: quiet, c: make(chan time.Time, 1)}
}

// Touch marks activity, (re)starting the quiet period.
func (b *Debouncer) Touch() {
	if b.timer == nil {
		b.timer = time.AfterFunc(b.quiet, func() {
			select {
			case b.c <- time.Now():
			default:
			}
		})
		return
	}
	b.timer.Reset(b.quiet)
}

// C delivers one tick after each settled burst.
func (b *Debouncer) C() <-chan time.Time {
	return b.c
}

// Stop cancels any pending tick.
func (b *Debouncer) Stop() {
	if b.timer != nil {
		b.timer.Stop()
	}
}

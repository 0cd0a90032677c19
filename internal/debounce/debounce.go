// Package debounce filters repeated edges from mechanical buttons.
package debounce

import (
	"sync"
	"time"
)

// DefaultWindow is the minimum spacing between accepted edges
const DefaultWindow = 100 * time.Millisecond

// Clock returns the current time. Tests inject a fake.
type Clock func() time.Time

// Debouncer accepts an edge only if the previous accepted edge is at least
// one window old. Rejected edges do not extend the window.
type Debouncer struct {
	window time.Duration
	clock  Clock

	mu       sync.Mutex
	last     time.Time
	accepted bool
}

// New creates a debouncer. A nil clock uses time.Now; a non-positive window uses DefaultWindow.
func New(window time.Duration, clock Clock) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	if clock == nil {
		clock = time.Now
	}
	return &Debouncer{window: window, clock: clock}
}

// Accept reports whether an edge arriving now should be acted on
func (d *Debouncer) Accept() bool {
	return d.AcceptAt(d.clock())
}

// AcceptAt is Accept for an edge with a known timestamp
func (d *Debouncer) AcceptAt(at time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.accepted && at.Sub(d.last) < d.window {
		return false
	}
	d.last = at
	d.accepted = true
	return true
}

// Window returns the configured window
func (d *Debouncer) Window() time.Duration {
	return d.window
}

package library

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a search term is committed.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer holds the latest keystroke and commits it once no newer input
// arrived for the quiet period. It owns no timer: callers schedule a check at the
// deadline returned by [Debouncer.Input] and call [Debouncer.Commit].
type Debouncer struct {
	quiet time.Duration

	mu        sync.Mutex
	pending   string
	committed string
	lastInput time.Time
	dirty     bool
}

// NewDebouncer returns a debouncer with the given quiet period.
func NewDebouncer(quiet time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultDebounce
	}
	return &Debouncer{quiet: quiet}
}

// Quiet returns the quiet period.
func (d *Debouncer) Quiet() time.Duration {
	return d.quiet
}

// Input records a keystroke at and returns when it may be committed.
func (d *Debouncer) Input(value string, at time.Time) time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = value
	d.lastInput = at
	d.dirty = true
	return at.Add(d.quiet)
}

// Commit promotes the pending value if the quiet period has elapsed at now.
// It reports the committed value and whether it differs from the previous one.
func (d *Debouncer) Commit(now time.Time) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.dirty || now.Sub(d.lastInput) < d.quiet {
		return d.committed, false
	}
	d.dirty = false
	if d.pending == d.committed {
		return d.committed, false
	}
	d.committed = d.pending
	return d.committed, true
}

// Value returns the committed value.
func (d *Debouncer) Value() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.committed
}

// Pending returns the latest input, committed or not.
func (d *Debouncer) Pending() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

package logic

import "time"

// DefaultDebounceWindow is how long a raw presence level must hold
// unchanged before it is accepted as the true state.
const DefaultDebounceWindow = 10 * time.Millisecond

// Debouncer rejects contact bounce on the presence input. Every raw
// change restarts the hold timer; the stable state only follows the
// raw level once it has held for the full window. This is a two-stage
// filter, not a delay line: a genuinely stable signal passes through
// without added reporting latency.
type Debouncer struct {
	window     time.Duration
	stable     bool
	lastRaw    bool
	lastChange time.Time
	seeded     bool
}

// NewDebouncer creates a debouncer with the given hold window.
// Non-positive windows fall back to DefaultDebounceWindow.
func NewDebouncer(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Debouncer{window: window}
}

// Seed initializes both stages from the first raw level seen, so the
// boot-time level is not reported as a transition.
func (d *Debouncer) Seed(raw bool, now time.Time) {
	d.stable = raw
	d.lastRaw = raw
	d.lastChange = now
	d.seeded = true
}

// Update feeds one raw sample and returns the stable presence state.
func (d *Debouncer) Update(raw bool, now time.Time) bool {
	if !d.seeded {
		d.Seed(raw, now)
		return d.stable
	}

	if raw != d.lastRaw {
		d.lastRaw = raw
		d.lastChange = now
	}

	if raw != d.stable && now.Sub(d.lastChange) >= d.window {
		d.stable = raw
	}

	return d.stable
}

// Stable returns the current debounced state.
func (d *Debouncer) Stable() bool {
	return d.stable
}

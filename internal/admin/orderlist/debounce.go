package orderlist

import (
	"sync"
	"time"
)

// Debouncer delays a callback until no newer trigger arrived for the configured quiet window.
// Each trigger gets a channel that receives exactly one value: the callback result, or
// ErrSuperseded when a newer trigger replaced it.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	gen     uint64
	timer   *time.Timer
	pending chan error
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay < 0 {
		delay = 0
	}
	return &Debouncer{delay: delay}
}

// Trigger schedules fn, superseding any trigger that has not fired yet.
func (d *Debouncer) Trigger(fn func() error) <-chan error {
	done := make(chan error, 1)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	gen := d.gen
	d.supersedeLocked()
	d.pending = done
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if gen != d.gen {
			d.mu.Unlock()
			done <- ErrSuperseded
			return
		}
		d.pending = nil
		d.mu.Unlock()
		done <- fn()
	})
	return done
}

// Stop drops the pending trigger, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.supersedeLocked()
}

// supersedeLocked resolves the pending channel when its timer was stopped before firing.
// A timer that already fired resolves its own channel after seeing the generation moved.
func (d *Debouncer) supersedeLocked() {
	if d.timer != nil && d.timer.Stop() && d.pending != nil {
		d.pending <- ErrSuperseded
	}
	d.timer = nil
	d.pending = nil
}

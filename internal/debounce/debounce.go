// Package debounce holds back a rapidly changing value until it has been
// quiet for a settle interval.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the settle interval used when Feed is given a non-positive delay.
const DefaultDelay = 500 * time.Millisecond

// Debouncer publishes the last fed value once no new value has arrived for
// the requested delay. A superseded timer never publishes.
type Debouncer[T any] struct {
	publish func(T)

	// pubMu serializes publishes so a late timer cannot overtake a newer one.
	pubMu sync.Mutex

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	pending bool
	raw     T
	stable  T
}

// New returns a Debouncer that calls publish (may be nil) with each stabilized value.
func New[T any](publish func(T)) *Debouncer[T] {
	return &Debouncer[T]{publish: publish}
}

// Feed records v and restarts the settle timer.
func (d *Debouncer[T]) Feed(v T, delay time.Duration) {
	if delay <= 0 {
		delay = DefaultDelay
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.raw = v
	d.pending = true
	d.timer = time.AfterFunc(delay, func() { d.fire(gen) })
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.pubMu.Lock()
	defer d.pubMu.Unlock()

	d.mu.Lock()
	if gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	v := d.raw
	d.stable = v
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	if d.publish != nil {
		d.publish(v)
	}
}

// Raw returns the last value passed to Feed.
func (d *Debouncer[T]) Raw() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.raw
}

// Stable returns the last published value.
func (d *Debouncer[T]) Stable() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stable
}

// Pending reports whether a fed value is still waiting to settle.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop drops any pending value without publishing it.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = false
}

package batch

import (
	"sync"
	"time"
)

// Coalescer accumulates the latest value per key and delivers the whole
// batch at most once per interval. The window is trailing-edge: the first
// Put after an idle period arms the timer, and the flush at the window's
// end carries the newest value recorded for each key during the window.
type Coalescer[K comparable, V any] struct {
	interval time.Duration
	flush    func(batch map[K]V)

	mu      sync.Mutex
	pending map[K]V
	timer   *time.Timer
	stopped bool
}

// NewCoalescer creates a coalescer delivering batches through flush.
// flush is invoked from a timer goroutine; it must not call back into Put.
func NewCoalescer[K comparable, V any](interval time.Duration, flush func(batch map[K]V)) *Coalescer[K, V] {
	return &Coalescer[K, V]{
		interval: interval,
		flush:    flush,
		pending:  make(map[K]V),
	}
}

// Put records the latest value for key. Values recorded for the same key
// within one window overwrite each other; only the newest survives.
func (c *Coalescer[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.pending[key] = value
	if c.timer == nil {
		c.timer = time.AfterFunc(c.interval, c.fire)
	}
}

func (c *Coalescer[K, V]) fire() {
	c.mu.Lock()
	c.timer = nil
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.pending
	c.pending = make(map[K]V)
	c.mu.Unlock()

	c.flush(batch)
}

// Flush synchronously delivers anything pending and disarms the window.
func (c *Coalescer[K, V]) Flush() {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.pending
	c.pending = make(map[K]V)
	c.mu.Unlock()

	c.flush(batch)
}

// Stop flushes any pending batch and refuses further Puts.
func (c *Coalescer[K, V]) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()
	c.Flush()
}

// PendingCount returns the number of keys waiting for the next flush.
func (c *Coalescer[K, V]) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

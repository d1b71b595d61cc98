// Package progress drives a step indicator on a timer, independent of when
// the real work finishes.
package progress

import (
	"sync"
	"time"
)

const (
	// DefaultInterval is the time between simulated steps.
	DefaultInterval = 2 * time.Second
	// SimulatedLimit is the highest step the simulator reaches on its own.
	// Anything beyond it is reserved for real completion.
	SimulatedLimit = 3
)

// Counter is a step value shared between a Simulator and its owner.
type Counter struct {
	mu sync.Mutex
	v  int
}

// Value returns the current step.
func (c *Counter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

// Set overwrites the step.
func (c *Counter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

// advance increments the value if it is below limit.
func (c *Counter) advance(limit int) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.v >= limit {
		return c.v, false
	}
	c.v++
	return c.v, true
}

// Simulator periodically advances a Counter up to SimulatedLimit.
type Simulator struct {
	mu      sync.Mutex
	counter *Counter
	ticker  *time.Ticker
	done    chan struct{}
	stopped bool
	onTick  func(step int)
}

// Start begins advancing counter every interval. onTick, if non-nil, is
// called after each increment, outside the simulator's lock; it may run
// shortly after Stop returns but never reflects an increment made after it.
func Start(counter *Counter, interval time.Duration, onTick func(step int)) *Simulator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Simulator{
		counter: counter,
		ticker:  time.NewTicker(interval),
		done:    make(chan struct{}),
		onTick:  onTick,
	}
	go s.run()
	return s
}

// Stop halts the simulator. Once Stop returns the counter is never
// incremented again. Calling Stop more than once, or on a nil Simulator,
// is a no-op.
func (s *Simulator) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.ticker.Stop()
	close(s.done)
}

// Stopped reports whether Stop has been called.
func (s *Simulator) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Simulator) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C:
			s.tick()
		}
	}
}

func (s *Simulator) tick() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	step, changed := s.counter.advance(SimulatedLimit)
	s.mu.Unlock()

	if changed && s.onTick != nil {
		s.onTick(step)
	}
}

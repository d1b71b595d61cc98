package progress

import (
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSimulator_ClampsAtLimit(t *testing.T) {
	c := &Counter{}
	c.Set(1)
	s := Start(c, time.Millisecond, nil)
	defer s.Stop()

	waitFor(t, time.Second, func() bool { return c.Value() == SimulatedLimit })
	time.Sleep(20 * time.Millisecond)
	if got := c.Value(); got != SimulatedLimit {
		t.Errorf("value = %d, want %d", got, SimulatedLimit)
	}
}

func TestSimulator_NeverLowersHigherValue(t *testing.T) {
	c := &Counter{}
	c.Set(4)
	s := Start(c, time.Millisecond, nil)
	time.Sleep(10 * time.Millisecond)
	s.Stop()
	if c.Value() != 4 {
		t.Errorf("value = %d, want 4", c.Value())
	}
}

func TestSimulator_OnTickReportsEachIncrement(t *testing.T) {
	var mu sync.Mutex
	var steps []int
	c := &Counter{}
	c.Set(1)
	s := Start(c, time.Millisecond, func(step int) {
		mu.Lock()
		steps = append(steps, step)
		mu.Unlock()
	})
	defer s.Stop()

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(steps) == 2
	})
	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(steps) != 2 || steps[0] != 2 || steps[1] != 3 {
		t.Errorf("steps = %v, want [2 3]", steps)
	}
}

func TestSimulator_StopIsIdempotent(t *testing.T) {
	c := &Counter{}
	s := Start(c, time.Hour, nil)
	s.Stop()
	first := c.Value()
	s.Stop()
	if !s.Stopped() {
		t.Error("expected stopped")
	}
	if c.Value() != first {
		t.Errorf("second Stop changed value: %d -> %d", first, c.Value())
	}

	var nilSim *Simulator
	nilSim.Stop()
}

func TestSimulator_NoIncrementAfterStop(t *testing.T) {
	c := &Counter{}
	s := Start(c, time.Millisecond, nil)
	waitFor(t, time.Second, func() bool { return c.Value() >= 1 })
	s.Stop()
	after := c.Value()
	time.Sleep(20 * time.Millisecond)
	if c.Value() != after {
		t.Errorf("value changed after Stop: %d -> %d", after, c.Value())
	}
}

func TestStart_DefaultInterval(t *testing.T) {
	c := &Counter{}
	s := Start(c, 0, nil)
	defer s.Stop()
	time.Sleep(5 * time.Millisecond)
	if c.Value() != 0 {
		t.Errorf("value = %d, expected no tick within 5ms of a %s interval", c.Value(), DefaultInterval)
	}
}

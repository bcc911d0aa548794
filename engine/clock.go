package engine

import (
	"sync"
	"time"
)

// TimeSource supplies wall-clock readings
type TimeSource interface {
	Now() time.Time
}

// SystemTime reads the monotonic system clock
type SystemTime struct{}

// Now returns time.Now
func (SystemTime) Now() time.Time { return time.Now() }

// ManualTime is a controllable TimeSource for tests and replays
type ManualTime struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManualTime starts a manual clock at start
func NewManualTime(start time.Time) *ManualTime {
	return &ManualTime{now: start}
}

// Now returns the current manual time
func (m *ManualTime) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.now
}

// Advance moves the manual time forward
func (m *ManualTime) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

// FrameClock turns wall-clock readings into per-frame deltas
// Paused time is swallowed; long stalls are clamped to MaxDelta
type FrameClock struct {
	src      TimeSource
	last     time.Time
	paused   bool
	MaxDelta time.Duration
}

// NewFrameClock starts a clock at src's current time
func NewFrameClock(src TimeSource) *FrameClock {
	if src == nil {
		src = SystemTime{}
	}
	return &FrameClock{src: src, last: src.Now(), MaxDelta: 250 * time.Millisecond}
}

// Tick returns the simulation time elapsed since the previous Tick
func (c *FrameClock) Tick() time.Duration {
	now := c.src.Now()
	dt := now.Sub(c.last)
	c.last = now
	if c.paused || dt < 0 {
		return 0
	}
	if c.MaxDelta > 0 && dt > c.MaxDelta {
		dt = c.MaxDelta
	}
	return dt
}

// Pause stops simulation time
func (c *FrameClock) Pause() { c.paused = true }

// Resume continues simulation time without counting the pause
func (c *FrameClock) Resume() {
	if c.paused {
		c.paused = false
		c.last = c.src.Now()
	}
}

// Paused reports the pause state
func (c *FrameClock) Paused() bool { return c.paused }

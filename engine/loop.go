package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Loop drives World.Step at a fixed cadence on one goroutine
// Other goroutines hand work to the simulation through Post
type Loop struct {
	world    *World
	clock    *FrameClock
	interval time.Duration
	posted   chan func()

	// AfterFrame runs on the loop goroutine after each Step, e.g. to flush a screen
	AfterFrame func()
}

// NewLoop creates a loop stepping w every interval
func NewLoop(w *World, clock *FrameClock, interval time.Duration) *Loop {
	if clock == nil {
		clock = NewFrameClock(nil)
	}
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &Loop{
		world:    w,
		clock:    clock,
		interval: interval,
		posted:   make(chan func(), 256),
	}
}

// Clock returns the loop's frame clock
func (l *Loop) Clock() *FrameClock { return l.clock }

// Post queues fn to run on the loop goroutine before the next Step
// Returns false when the queue is full
func (l *Loop) Post(fn func()) bool {
	select {
	case l.posted <- fn:
		return true
	default:
		l.world.Log.Warn("loop queue full, dropping posted work")
		return false
	}
}

// Frame drains posted work, then steps the world once
func (l *Loop) Frame() {
drain:
	for {
		select {
		case fn := <-l.posted:
			l.world.safe("posted", fn)
		default:
			break drain
		}
	}
	l.world.Step(l.clock.Tick())
	if l.AfterFrame != nil {
		l.world.safe("after-frame", l.AfterFrame)
	}
}

// Run steps frames until ctx is done
// Deadlines are advanced by interval so a slow frame does not shift the cadence
func (l *Loop) Run(ctx context.Context) error {
	l.world.Log.Info("frame loop started", zap.Duration("interval", l.interval))
	defer l.world.Log.Info("frame loop stopped", zap.Uint64("frames", l.world.Frame()))

	next := time.Now().Add(l.interval)
	timer := time.NewTimer(l.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		l.Frame()

		next = next.Add(l.interval)
		wait := time.Until(next)
		if wait < 0 {
			// fell behind; resynchronize rather than bursting
			next = time.Now().Add(l.interval)
			wait = l.interval
		}
		timer.Reset(wait)
	}
}

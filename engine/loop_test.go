package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dtRecorder struct {
	dts []time.Duration
}

func (r *dtRecorder) Stage() Stage  { return StageInput }
func (r *dtRecorder) Priority() int { return 0 }
func (r *dtRecorder) Update(_ *World, dt time.Duration) {
	r.dts = append(r.dts, dt)
}

func TestFrameClock(t *testing.T) {
	src := NewManualTime(time.Unix(0, 0))
	c := NewFrameClock(src)

	src.Advance(16 * time.Millisecond)
	assert.Equal(t, 16*time.Millisecond, c.Tick())

	src.Advance(time.Second)
	assert.Equal(t, c.MaxDelta, c.Tick())

	c.Pause()
	src.Advance(40 * time.Millisecond)
	assert.Zero(t, c.Tick())
	src.Advance(time.Minute)
	c.Resume()
	src.Advance(10 * time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, c.Tick())
}

func TestLoopFrameRunsPostedWorkFirst(t *testing.T) {
	w := NewWorld()
	rec := &dtRecorder{}
	w.AddSystem(rec)
	src := NewManualTime(time.Unix(0, 0))
	l := NewLoop(w, NewFrameClock(src), 0)

	var order []string
	require.True(t, l.Post(func() { order = append(order, "posted") }))
	l.AfterFrame = func() { order = append(order, "after") }

	src.Advance(20 * time.Millisecond)
	l.Frame()
	assert.Equal(t, []string{"posted", "after"}, order)
	assert.Equal(t, []time.Duration{20 * time.Millisecond}, rec.dts)
	assert.EqualValues(t, 1, w.Frame())
}

func TestLoopRunStopsOnCancel(t *testing.T) {
	w := NewWorld()
	l := NewLoop(w, nil, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	require.Eventually(t, func() bool {
		ok := make(chan uint64, 1)
		if !l.Post(func() { ok <- w.Frame() }) {
			return false
		}
		select {
		case f := <-ok:
			return f >= 3
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

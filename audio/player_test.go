package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/toymaker/resource"
	"github.com/lixenwraith/toymaker/status"
)

func drain(p *Player, n int) (peak float64) {
	buf := make([][2]float64, 512)
	for range n {
		p.Mixer().Stream(buf)
		for _, s := range buf {
			peak = max(peak, s[0], -s[0])
		}
	}
	return peak
}

// TestPlayerGracefulDegradation verifies playback is a counted no-op without a device
func TestPlayerGracefulDegradation(t *testing.T) {
	stats := status.NewRegistry()
	db := resource.NewDB()
	p := NewPlayer(db, WithStatus(stats))

	require.NoError(t, p.Play("click"))
	require.NoError(t, p.Loop("hum"))
	p.Stop("hum")
	p.SetMuted(true)
	assert.EqualValues(t, 2, stats.Count(MetricSkipped))
	assert.Zero(t, p.Mixer().Len())

	p.Cleanup()
	assert.Zero(t, db.Count())
}

// TestPlayerInitialization may fail in environments without audio devices
func TestPlayerInitialization(t *testing.T) {
	p := NewPlayer(resource.NewDB())
	if err := p.Initialize(); err != nil {
		t.Logf("Sound initialization failed (expected in test environment): %v", err)
		return
	}
	assert.NoError(t, p.Initialize(), "second initialization is a no-op")
	p.Cleanup()
}

func TestPlayerMixesOneShots(t *testing.T) {
	db := resource.NewDB()
	require.NoError(t, db.Describe(resource.Descriptor{
		Name:   "roll",
		Type:   resource.TypeSound,
		Params: map[string]any{"frequency": 220.0, "duration_ms": 50},
	}))
	p := NewPlayer(db)
	p.InitializeOffline()

	require.NoError(t, p.Play("roll"))
	require.NoError(t, p.Play("roll"))
	assert.Equal(t, 2, p.Mixer().Len())
	assert.Equal(t, 1, db.RefCount("roll"), "one handle per sound")

	assert.Greater(t, drain(p, 16), 0.0)
	assert.Zero(t, p.Mixer().Len(), "finished clips leave the mixer")

	p.Cleanup()
	assert.Zero(t, db.Count())
}

func TestPlayerMuteAndVolume(t *testing.T) {
	p := NewPlayer(resource.NewDB(), WithVolume(0))
	p.InitializeOffline()
	require.NoError(t, p.Play("beep"))
	assert.Zero(t, drain(p, 4), "zero volume is silent")

	p.SetMuted(true)
	assert.True(t, p.Muted())
	before := p.Mixer().Len()
	require.NoError(t, p.Play("beep"))
	assert.Equal(t, before, p.Mixer().Len())
	p.Cleanup()
}

func TestPlayerLoopStop(t *testing.T) {
	p := NewPlayer(resource.NewDB())
	p.InitializeOffline()

	require.NoError(t, p.Loop("hum"))
	require.NoError(t, p.Loop("hum"))
	assert.Equal(t, 1, p.Mixer().Len())
	assert.Greater(t, drain(p, 32), 0.0, "loop outlives its clip")

	p.Stop("hum")
	drain(p, 1)
	assert.Zero(t, p.Mixer().Len())
	p.Cleanup()
	assert.False(t, p.Initialized())
}

func TestPlayerResourceErrors(t *testing.T) {
	db := resource.NewDB()
	h, err := db.Load("wood", resource.TypeMaterial)
	require.NoError(t, err)
	defer h.Release()

	stats := status.NewRegistry()
	p := NewPlayer(db, WithStatus(stats))
	var mismatch *resource.TypeMismatchError
	assert.ErrorAs(t, p.Play("wood"), &mismatch)

	var notFound *resource.NotFoundError
	assert.ErrorAs(t, NewPlayer(nil).Play("x"), &notFound)
	assert.EqualValues(t, 1, stats.Count(MetricFailed))
}

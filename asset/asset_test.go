package asset

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/toymaker/aspects"
	"github.com/lixenwraith/toymaker/config"
	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/input"
	"github.com/lixenwraith/toymaker/query"
	"github.com/lixenwraith/toymaker/resource"
	"github.com/lixenwraith/toymaker/scene"
)

func TestDefaultConfigMatchesDefaults(t *testing.T) {
	cfg, err := config.Parse(DefaultConfig)
	require.NoError(t, err)
	assert.Equal(t, config.Defaults().Audio, cfg.Audio)
	assert.Equal(t, 33*time.Millisecond, cfg.Engine.FrameInterval)
	assert.Equal(t, config.Defaults().Engine.SimStep, cfg.Engine.SimStep)
}

func TestDefaultKeymapApplies(t *testing.T) {
	km, err := input.LoadKeymap(DefaultKeymap)
	require.NoError(t, err)
	m := input.NewManager(nil, nil)
	require.NoError(t, km.Apply(m))
	assert.Equal(t, []string{"board"}, m.Stack())

	action, ok := m.Binding("board", "rune:q")
	require.True(t, ok)
	assert.Equal(t, "quit", action)
}

func TestDefaultSceneLoads(t *testing.T) {
	w := engine.NewWorld()
	_, err := query.NewSystem(w)
	require.NoError(t, err)
	db := resource.NewDB()
	reg := scene.NewRegistry()
	aspects.Register(reg)

	sc, err := scene.NewLoader(w, db, reg).LoadFile(context.Background(), Scenes(), DefaultScene)
	require.NoError(t, err)
	w.Step(0)

	for _, p := range []string{"/board", "/board/marker", "/board/p1-2", "/die", "/hud", "/hud/roll"} {
		_, ok := w.Lookup(p)
		assert.True(t, ok, p)
	}
	assert.Len(t, sc.Connections, 3)
	qs := engine.MustGetService[*query.System](w)
	assert.ElementsMatch(t, []string{"/board", "/hud/roll"}, qs.Volumes())

	require.NoError(t, sc.Unload())
	assert.Zero(t, db.Count())
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lixenwraith/toymaker/config"
)

func newTestApp(t *testing.T, cfg *config.Config) (*app, *bool) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)
	screen.SetSize(80, 24)

	quit := new(bool)
	a, err := newApp(context.Background(), cfg, zaptest.NewLogger(t), screen, func() { *quit = true })
	require.NoError(t, err)
	return a, quit
}

func silentConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Audio.Enabled = false
	return cfg
}

func key(a *app, k tcell.Key, r rune) {
	ev := tcell.NewEventKey(k, r, tcell.ModNone)
	a.loop.Post(func() { a.handle(ev) })
	a.loop.Frame()
}

func TestAppRendersDefaultScene(t *testing.T) {
	a, _ := newTestApp(t, silentConfig())
	a.loop.Frame()

	_, ok := a.world.Lookup("/hud/roll")
	assert.True(t, ok)
	assert.Equal(t, a.cfg.Engine.SimStep, a.world.SimStep())
	st := a.pipeline.Last()
	assert.Equal(t, 2, st.Passes, "root and hud viewports")
	assert.Positive(t, st.Instances)

	// overlay text is refreshed after a frame and drawn by the next
	a.loop.Frame()
	r, _ := a.backend.Cell(0, 0)
	assert.Equal(t, 'f', r, "overlay header")

	a.close()
	assert.Zero(t, a.db.Count())
}

func TestAppActions(t *testing.T) {
	a, quit := newTestApp(t, silentConfig())
	a.loop.Frame()

	key(a, tcell.KeyEscape, 0)
	top, _ := a.input.Active()
	assert.Equal(t, contextMenu, top)
	assert.True(t, a.loop.Clock().Paused())

	key(a, tcell.KeyEscape, 0)
	top, _ = a.input.Active()
	assert.Equal(t, "board", top)
	assert.False(t, a.loop.Clock().Paused())

	key(a, tcell.KeyF1, 0)
	assert.False(t, a.overlay)

	key(a, tcell.KeyRune, 'm')
	assert.True(t, a.player.Muted())

	assert.False(t, *quit)
	key(a, tcell.KeyRune, 'q')
	assert.True(t, *quit)
}

func TestAppCustomSceneAndKeymap(t *testing.T) {
	dir := t.TempDir()
	scenePath := filepath.Join(dir, "tiny.yaml")
	require.NoError(t, os.WriteFile(scenePath, []byte(`
nodes:
  - name: cube
    transform:
      position: [0, 0, -4]
    aspects:
      - type: MeshRenderer
`), 0o644))
	keymapPath := filepath.Join(dir, "keys.toml")
	require.NoError(t, os.WriteFile(keymapPath, []byte(`
initial = ["play"]

[contexts.play]
actions = ["quit"]
bindings = { x = "quit" }
`), 0o644))

	cfg := silentConfig()
	cfg.Scene.Path = scenePath
	cfg.Scene.Keymap = keymapPath
	a, quit := newTestApp(t, cfg)
	a.loop.Frame()

	assert.Equal(t, "tiny", a.scene.Name)
	_, ok := a.world.Lookup("/cube")
	assert.True(t, ok)

	key(a, tcell.KeyRune, 'x')
	assert.True(t, *quit)
}

func TestAppRejectsBadScene(t *testing.T) {
	cfg := silentConfig()
	cfg.Scene.Path = filepath.Join(t.TempDir(), "missing.yaml")

	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	defer screen.Fini()
	_, err := newApp(context.Background(), cfg, zaptest.NewLogger(t), screen, func() {})
	assert.Error(t, err)
}

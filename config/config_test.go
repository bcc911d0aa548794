package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 32, cfg.Engine.SignalDepth)
	assert.Equal(t, 20*time.Millisecond, cfg.Engine.SimStep)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[engine]
frame_interval = "50ms"
sim_step = "10ms"

[audio]
muted = true
volume = 0.25

[scene]
path = "scenes/board.yaml"
`))
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.Engine.FrameInterval)
	assert.Equal(t, 10*time.Millisecond, cfg.Engine.SimStep)
	assert.True(t, cfg.Audio.Muted)
	assert.InDelta(t, 0.25, cfg.Audio.Volume, 1e-9)
	assert.Equal(t, "scenes/board.yaml", cfg.Scene.Path)
	assert.True(t, cfg.Audio.Enabled, "untouched keys keep their defaults")
	assert.Equal(t, 4, cfg.Resources.Concurrency)
}

func TestParseRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown key":  "[engine]\nframe_rate = 60\n",
		"bad volume":   "[audio]\nvolume = 2.0\n",
		"bad format":   "[logging]\nformat = \"xml\"\n",
		"zero depth":   "[engine]\nsignal_depth = 0\n",
		"syntax":       "[engine\n",
		"bad interval": "[engine]\nframe_interval = \"-1s\"\n",
		"tiny step":    "[engine]\nsim_step = \"1ms\"\n",
		"huge step":    "[engine]\nsim_step = \"6s\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toymaker.toml")
	require.NoError(t, os.WriteFile(path, []byte("[display]\noverlay = false\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Display.Overlay)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	nop, err := NewLogger(LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.False(t, nop.Core().Enabled(-1), "no file discards everything")

	path := filepath.Join(t.TempDir(), "engine.log")
	for _, format := range []string{"console", "json"} {
		log, err := NewLogger(LoggingConfig{Level: "warn", Format: format, File: path})
		require.NoError(t, err)
		log.Info("hidden")
		log.Warn("shown")
		_ = log.Sync()
	}
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "shown")
	assert.NotContains(t, string(data), "hidden")
}

package aspects

import (
	"go.uber.org/zap"

	"github.com/lixenwraith/toymaker/audio"
	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/scene"
)

const TypeSoundCue = "SoundCue"

// SoundCue observers; both accept any payload
const (
	ObserverPlay = "Play"
	ObserverStop = "Stop"
)

// SoundCue plays a sound resource through the world's audio player
// Without a player it does nothing
type SoundCue struct {
	engine.AspectBase

	Sound      string
	Loop       bool
	OnActivate bool
}

func (*SoundCue) TypeName() string { return TypeSoundCue }

func (c *SoundCue) Clone() engine.Aspect {
	return &SoundCue{Sound: c.Sound, Loop: c.Loop, OnActivate: c.OnActivate}
}

func (c *SoundCue) OnAttached() error {
	bus := c.Bus()
	if err := bus.DeclareObserver(c.SignalKey(TypeSoundCue, ObserverPlay), nil, func(any) error { return c.Play() }); err != nil {
		return err
	}
	return bus.DeclareObserver(c.SignalKey(TypeSoundCue, ObserverStop), nil, func(any) error { c.Stop(); return nil })
}

func (c *SoundCue) OnActivated() {
	if !c.OnActivate && !c.Loop {
		return
	}
	if err := c.Play(); err != nil {
		c.World().Log.Warn("sound cue", zap.String("sound", c.Sound), zap.Error(err))
	}
}

func (c *SoundCue) OnDeactivated() {
	if c.Loop {
		c.Stop()
	}
}

// Play starts the sound, looping when Loop is set
func (c *SoundCue) Play() error {
	p, ok := c.player()
	if !ok {
		return nil
	}
	if c.Loop {
		return p.Loop(c.Sound)
	}
	return p.Play(c.Sound)
}

// Stop ends a looping sound
func (c *SoundCue) Stop() {
	if p, ok := c.player(); ok {
		p.Stop(c.Sound)
	}
}

func (c *SoundCue) player() (*audio.Player, bool) {
	if c.World() == nil {
		return nil, false
	}
	return engine.GetService[*audio.Player](c.World())
}

func newSoundCue(p scene.Params) (engine.Aspect, error) {
	return &SoundCue{
		Sound:      p.String("sound", "click"),
		Loop:       p.Bool("loop", false),
		OnActivate: p.Bool("on_activate", false),
	}, nil
}

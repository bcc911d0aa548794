// Package audio plays sound resources through a beep mixer
// All operations degrade to no-ops when no output device is available
package audio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
	"go.uber.org/zap"

	"github.com/lixenwraith/toymaker/resource"
	"github.com/lixenwraith/toymaker/status"
)

// Metric keys
const (
	MetricPlayed  = "audio.played"
	MetricSkipped = "audio.skipped"
	MetricFailed  = "audio.failed"
)

// Player mixes sound resources to the speaker
// Sound handles are acquired on first play and held until Cleanup
type Player struct {
	mu     sync.Mutex
	mixer  *beep.Mixer
	db     *resource.DB
	log    *zap.Logger
	stats  *status.Registry
	volume float64
	muted  bool

	initialized bool
	device      bool

	handles map[string]*resource.Handle
	loops   map[string]*beep.Ctrl
}

// Option configures a Player
type Option func(*Player)

// WithLogger sets the player logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Player) { p.log = l }
}

// WithStatus sets the metrics registry
func WithStatus(r *status.Registry) Option {
	return func(p *Player) { p.stats = r }
}

// WithVolume sets the master volume, 1 is unity gain
func WithVolume(v float64) Option {
	return func(p *Player) { p.volume = v }
}

// NewPlayer creates a player resolving sounds through db
func NewPlayer(db *resource.DB, opts ...Option) *Player {
	p := &Player{
		mixer:   &beep.Mixer{},
		db:      db,
		log:     zap.NewNop(),
		volume:  1,
		handles: make(map[string]*resource.Handle),
		loops:   make(map[string]*beep.Ctrl),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.Named("audio")
	return p
}

// Initialize opens the output device at the engine sample rate
func (p *Player) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := speaker.Init(resource.SampleRate, resource.SampleRate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("audio init: %w", err)
	}
	speaker.Play(p.mixer)
	p.initialized = true
	p.device = true
	return nil
}

// InitializeOffline enables playback into the mixer without a device
// The caller drains Mixer()
func (p *Player) InitializeOffline() {
	p.mu.Lock()
	p.initialized = true
	p.mu.Unlock()
}

// Mixer exposes the output mixer
func (p *Player) Mixer() *beep.Mixer { return p.mixer }

// Initialized reports whether playback is enabled
func (p *Player) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

// SetMuted silences new and looping sounds
func (p *Player) SetMuted(m bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = m
	p.lock()
	for _, c := range p.loops {
		c.Paused = m
	}
	p.unlock()
}

// Muted reports the mute state
func (p *Player) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

// Play starts a one-shot playback of a sound resource
// Must be called from the goroutine owning the resource database
func (p *Player) Play(name string) error {
	s, err := p.sound(name)
	if err != nil {
		p.stats.Inc(MetricFailed)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized || p.muted {
		p.stats.Inc(MetricSkipped)
		return nil
	}
	p.lock()
	p.mixer.Add(p.prepare(s))
	p.unlock()
	p.stats.Inc(MetricPlayed)
	return nil
}

// Loop plays a sound repeatedly until Stop; looping an already looping sound is a no-op
func (p *Player) Loop(name string) error {
	s, err := p.sound(name)
	if err != nil {
		p.stats.Inc(MetricFailed)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		p.stats.Inc(MetricSkipped)
		return nil
	}
	if c, ok := p.loops[name]; ok && !c.Paused {
		return nil
	}
	var st beep.Streamer = beep.Loop(-1, s.Streamer())
	if s.Format.SampleRate != resource.SampleRate {
		st = beep.Resample(4, s.Format.SampleRate, resource.SampleRate, st)
	}
	ctrl := &beep.Ctrl{Streamer: st, Paused: p.muted}
	p.loops[name] = ctrl
	p.lock()
	p.mixer.Add(p.volumeOf(ctrl))
	p.unlock()
	p.stats.Inc(MetricPlayed)
	return nil
}

// Stop ends a loop started with Loop
func (p *Player) Stop(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.loops[name]
	if !ok {
		return
	}
	p.lock()
	c.Paused = true
	c.Streamer = nil
	p.unlock()
	delete(p.loops, name)
}

// Cleanup stops all sounds and releases held resources
func (p *Player) Cleanup() {
	p.mu.Lock()
	p.lock()
	for name, c := range p.loops {
		c.Paused = true
		delete(p.loops, name)
	}
	p.mixer.Clear()
	p.unlock()
	p.initialized = false
	p.device = false
	p.mu.Unlock()

	for name, h := range p.handles {
		if err := h.Release(); err != nil {
			p.log.Warn("sound release failed", zap.String("sound", name), zap.Error(err))
		}
		delete(p.handles, name)
	}
}

func (p *Player) sound(name string) (*resource.Sound, error) {
	if h, ok := p.handles[name]; ok {
		s, _ := resource.As[*resource.Sound](h)
		return s, nil
	}
	if p.db == nil {
		return nil, &resource.NotFoundError{Name: name, Type: resource.TypeSound}
	}
	h, err := p.db.Load(name, resource.TypeSound)
	if err != nil {
		return nil, err
	}
	s, ok := resource.As[*resource.Sound](h)
	if !ok {
		_ = h.Release()
		return nil, &resource.TypeMismatchError{Name: name, Have: h.Type(), Requested: resource.TypeSound}
	}
	p.handles[name] = h
	return s, nil
}

// prepare resamples a one-shot to the mixer rate and applies master volume
func (p *Player) prepare(s *resource.Sound) beep.Streamer {
	var st beep.Streamer = s.Streamer()
	if s.Format.SampleRate != resource.SampleRate {
		st = beep.Resample(4, s.Format.SampleRate, resource.SampleRate, st)
	}
	return p.volumeOf(st)
}

// volumeOf wraps s in the master gain
// math.Log2(0) is -Inf, so zero volume is made silent
func (p *Player) volumeOf(s beep.Streamer) beep.Streamer {
	if p.volume <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(p.volume)}
}

// lock guards mixer mutation against the speaker callback
func (p *Player) lock() {
	if p.device {
		speaker.Lock()
	}
}

func (p *Player) unlock() {
	if p.device {
		speaker.Unlock()
	}
}

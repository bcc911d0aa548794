package query

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/input"
	"github.com/lixenwraith/toymaker/signal"
	"github.com/lixenwraith/toymaker/vmath"
)

// Metric keys
const (
	MetricRays    = "query.rays"
	MetricHits    = "query.hits"
	MetricClicks  = "query.clicks"
	MetricPresses = "query.presses"
)

// Signal names fired under the system's key owner
const (
	SignalHoverEntered = "HoverEntered"
	SignalHoverLeft    = "HoverLeft"
	SignalPressed      = "Pressed"
	SignalReleased     = "Released"
	SignalClicked      = "Clicked"
)

// SignalAspect is the aspect segment of the system's signal keys; the owner is zero
const SignalAspect = "query"

// Pressable receives the press that starts a potential click
type Pressable interface {
	OnPointerLeftPress(ev engine.PointerEvent) bool
}

// CapPress marks aspects implementing Pressable
var CapPress = engine.RegisterCapability("left-press", func(a engine.Aspect) bool {
	_, ok := a.(Pressable)
	return ok
})

// State is a volume's pointer state
type State uint8

const (
	Idle State = iota
	Hovered
	Pressed
)

func (s State) String() string {
	switch s {
	case Hovered:
		return "hovered"
	case Pressed:
		return "pressed"
	}
	return "idle"
}

// System turns pointer input into hover and click hooks on registered volumes
type System struct {
	world *engine.World
	log   *zap.Logger
	input *input.Manager

	volumes   map[string]*volume
	order     []*volume
	nextOrder uint64

	hovered *volume
	pressed *volume
	screen  mgl32.Vec2

	hoverEntered signal.Signal[engine.PointerEvent]
	hoverLeft    signal.Signal[engine.PointerEvent]
	pressedSig   signal.Signal[engine.PointerEvent]
	released     signal.Signal[engine.PointerEvent]
	clicked      signal.Signal[engine.PointerEvent]
}

// Option configures a System
type Option func(*System)

// WithInput sets the manager pointer actions are read from
// Without it the system looks up the world's *input.Manager service each frame
func WithInput(m *input.Manager) Option {
	return func(s *System) { s.input = m }
}

// NewSystem creates the query system and subscribes to world teardown
// Volumes of destroyed nodes and detached owners are dropped automatically
func NewSystem(w *engine.World, opts ...Option) (*System, error) {
	s := &System{
		world:   w,
		log:     w.Log.Named("query"),
		volumes: make(map[string]*volume),
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	declare := func(name string) signal.Signal[engine.PointerEvent] {
		if err != nil {
			return signal.Signal[engine.PointerEvent]{}
		}
		var sig signal.Signal[engine.PointerEvent]
		sig, err = signal.NewSignal[engine.PointerEvent](w.Bus, SignalKey(name))
		return sig
	}
	s.hoverEntered = declare(SignalHoverEntered)
	s.hoverLeft = declare(SignalHoverLeft)
	s.pressedSig = declare(SignalPressed)
	s.released = declare(SignalReleased)
	s.clicked = declare(SignalClicked)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}

	w.OnNodeDestroyed(func(id engine.NodeID) {
		s.dropWhere(func(v *volume) bool { return v.node == id })
	})
	w.OnAspectDetached(func(a engine.Aspect) {
		s.dropWhere(func(v *volume) bool { return v.owner == a })
	})
	engine.AddService(w, s)
	return s, nil
}

// SignalKey is the bus key of one of the system's signals
func SignalKey(name string) signal.Key {
	return signal.Key{Aspect: SignalAspect, Name: name}
}

// State returns the pointer state of a volume
func (s *System) State(name string) State {
	v, ok := s.volumes[name]
	switch {
	case !ok:
		return Idle
	case v == s.pressed:
		return Pressed
	case v == s.hovered:
		return Hovered
	}
	return Idle
}

// Hovered returns the volume under the pointer
func (s *System) Hovered() (string, bool) {
	if s.hovered == nil {
		return "", false
	}
	return s.hovered.name, true
}

// PointerRay builds the camera ray under a normalized display point
// It returns the viewport the point falls in
func (s *System) PointerRay(x, y float32) (vmath.Ray, engine.NodeID, bool) {
	id, lx, ly, ok := s.world.ViewportAt(x, y)
	if !ok {
		return vmath.Ray{}, engine.NodeID{}, false
	}
	vp, _ := s.world.Viewport(id)
	return vp.Camera.ScreenRay(s.world.CameraWorld(id), lx, ly), id, true
}

func (s *System) resolve(x, y float32) (Hit, vmath.Ray, bool) {
	s.screen = mgl32.Vec2{x, y}
	r, vp, ok := s.PointerRay(x, y)
	if !ok {
		return Hit{}, r, false
	}
	s.world.Status.Inc(MetricRays)
	hit, ok := s.QueryRayIn(vp, r)
	if ok {
		s.world.Status.Inc(MetricHits)
	}
	return hit, r, ok
}

// Move handles pointer motion
func (s *System) Move(x, y float32) {
	hit, _, ok := s.resolve(x, y)
	s.updateHover(hit, ok)
}

// LeftDown handles the left button press; hover is updated first
func (s *System) LeftDown(x, y float32) {
	hit, _, ok := s.resolve(x, y)
	s.updateHover(hit, ok)
	if !ok {
		return
	}
	v := s.volumes[hit.Volume]
	s.pressed = v
	s.world.Status.Inc(MetricPresses)
	ev := s.event(hit, false)
	s.each(v, CapPress, func(a engine.Aspect) bool { return a.(Pressable).OnPointerLeftPress(ev) })
	s.pressedSig.Fire(ev)
}

// LeftUp handles the left button release; hover is updated first
// The pressed volume always gets the release, a click only if the pointer is still over it
func (s *System) LeftUp(x, y float32) {
	hit, r, ok := s.resolve(x, y)
	s.updateHover(hit, ok)

	v := s.pressed
	if v == nil {
		return
	}
	s.pressed = nil

	inside := ok && hit.Volume == v.name
	var ev engine.PointerEvent
	if inside {
		ev = s.event(hit, true)
	} else {
		ev = engine.PointerEvent{
			Volume:   v.name,
			Point:    r.At(v.lastDistance),
			Distance: v.lastDistance,
			Screen:   s.screen,
		}
	}

	s.each(v, engine.CapLeftClick, func(a engine.Aspect) bool { return a.(engine.LeftClickable).OnPointerLeftRelease(ev) })
	s.released.Fire(ev)
	if !inside {
		s.log.Debug("click cancelled", zap.String("volume", v.name))
		return
	}
	s.world.Status.Inc(MetricClicks)
	s.each(v, engine.CapLeftClick, func(a engine.Aspect) bool { return a.(engine.LeftClickable).OnPointerLeftClick(ev) })
	s.clicked.Fire(ev)
}

func (s *System) updateHover(hit Hit, ok bool) {
	var next *volume
	if ok {
		next = s.volumes[hit.Volume]
	}
	if next == s.hovered {
		return
	}
	if prev := s.hovered; prev != nil {
		s.hovered = nil
		s.each(prev, engine.CapHover, func(a engine.Aspect) bool { return a.(engine.Hoverable).OnPointerLeave() })
		s.hoverLeft.Fire(engine.PointerEvent{Volume: prev.name, Screen: s.screen})
	}
	if next != nil {
		// a hook above may have dropped the volume
		if _, live := s.volumes[next.name]; !live {
			return
		}
		s.hovered = next
		ev := s.event(hit, false)
		s.each(next, engine.CapHover, func(a engine.Aspect) bool { return a.(engine.Hoverable).OnPointerEnter(ev) })
		s.hoverEntered.Fire(ev)
	}
}

func (s *System) event(hit Hit, inside bool) engine.PointerEvent {
	return engine.PointerEvent{
		Volume:   hit.Volume,
		Point:    hit.Point,
		Distance: hit.Distance,
		Screen:   s.screen,
		Inside:   inside,
	}
}

// each runs fn on the volume's hook targets having c until one returns true
func (s *System) each(v *volume, c engine.Capability, fn func(engine.Aspect) bool) {
	for _, a := range s.targets(v) {
		if !a.Capabilities().Has(c) {
			continue
		}
		if s.safe(v.name, a, fn) {
			return
		}
	}
}

func (s *System) targets(v *volume) []engine.Aspect {
	if v.owner != nil {
		if !v.owner.Attached() {
			return nil
		}
		return []engine.Aspect{v.owner}
	}
	e, ok := s.world.NodeEntity(v.node)
	if !ok {
		return nil
	}
	return s.world.Aspects(e)
}

func (s *System) safe(name string, a engine.Aspect, fn func(engine.Aspect) bool) (handled bool) {
	defer func() {
		if r := recover(); r != nil {
			s.world.Status.Inc(engine.MetricPanics)
			s.log.Error("pointer hook panic",
				zap.String("volume", name),
				zap.String("aspect", a.TypeName()),
				zap.Any("panic", r))
			handled = false
		}
	}()
	return fn(a)
}

// Stage implements engine.System
func (s *System) Stage() engine.Stage { return engine.StageInteraction }

// Priority implements engine.System
func (s *System) Priority() int { return 0 }

// Update replays this frame's pointer actions in order
func (s *System) Update(w *engine.World, _ time.Duration) {
	m := s.input
	if m == nil {
		var ok bool
		if m, ok = engine.GetService[*input.Manager](w); !ok {
			return
		}
	}
	for _, a := range m.Last() {
		switch a.Name {
		case input.ActionPointerMove:
			s.Move(a.X, a.Y)
		case input.ActionPointerLeft:
			if a.Pressed {
				s.LeftDown(a.X, a.Y)
			} else {
				s.LeftUp(a.X, a.Y)
			}
		}
	}
}

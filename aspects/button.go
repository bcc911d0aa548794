package aspects

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/query"
	"github.com/lixenwraith/toymaker/render"
	"github.com/lixenwraith/toymaker/scene"
	"github.com/lixenwraith/toymaker/signal"
	"github.com/lixenwraith/toymaker/vmath"
)

const TypeButton = "UIButton"

// Button signal and observer names
const (
	SignalButtonPressed     = "ButtonPressed"
	SignalButtonReleased    = "ButtonReleased"
	SignalButtonHoveredOver = "ButtonHoveredOver"
	SignalButtonActivated   = "ButtonActivated"
	SignalButtonDeactivated = "ButtonDeactivated"

	ObserverEnable  = "Enable"
	ObserverDisable = "Disable"
)

// ButtonState is the visual and interactive state of a button
type ButtonState uint8

const (
	ButtonActive ButtonState = iota
	ButtonHover
	ButtonPressed
	ButtonInactive
)

func (s ButtonState) String() string {
	switch s {
	case ButtonActive:
		return "active"
	case ButtonHover:
		return "hover"
	case ButtonPressed:
		return "pressed"
	case ButtonInactive:
		return "inactive"
	}
	return fmt.Sprintf("ButtonState(%d)", s)
}

// Button is a pickable box that tracks hover and press
// ButtonReleased carries Value and fires only for a release over the button
type Button struct {
	engine.AspectBase

	Value     string
	Size      mgl32.Vec3
	Mesh      string
	Materials [4]string // indexed by ButtonState
	Volume    string    // query volume name, the node path when empty
	Disabled  bool      // initial state

	state   ButtonState
	volume  string
	offset  vmath.Transform
	started bool

	pressed     signal.Signal[string]
	released    signal.Signal[string]
	hovered     signal.Signal[string]
	activated   signal.Signal[struct{}]
	deactivated signal.Signal[struct{}]
}

func (*Button) TypeName() string { return TypeButton }
func (*Button) Unique() bool     { return true }

func (b *Button) Clone() engine.Aspect {
	return &Button{
		Value:     b.Value,
		Size:      b.Size,
		Mesh:      b.Mesh,
		Materials: b.Materials,
		Disabled:  b.Disabled,
	}
}

// State returns the current button state
func (b *Button) State() ButtonState { return b.state }

func (b *Button) OnAttached() error {
	bus := b.Bus()
	var err error
	key := func(name string) signal.Key { return b.SignalKey(TypeButton, name) }
	if b.pressed, err = signal.NewSignal[string](bus, key(SignalButtonPressed)); err != nil {
		return err
	}
	if b.released, err = signal.NewSignal[string](bus, key(SignalButtonReleased)); err != nil {
		return err
	}
	if b.hovered, err = signal.NewSignal[string](bus, key(SignalButtonHoveredOver)); err != nil {
		return err
	}
	if b.activated, err = signal.NewSignal[struct{}](bus, key(SignalButtonActivated)); err != nil {
		return err
	}
	if b.deactivated, err = signal.NewSignal[struct{}](bus, key(SignalButtonDeactivated)); err != nil {
		return err
	}
	if err = bus.DeclareObserver(key(ObserverEnable), nil, func(any) error { b.Enable(); return nil }); err != nil {
		return err
	}
	if err = bus.DeclareObserver(key(ObserverDisable), nil, func(any) error { b.Disable(); return nil }); err != nil {
		return err
	}

	b.offset = vmath.Identity()
	b.offset.Scale = b.Size
	if b.Disabled {
		b.state = ButtonInactive
	}
	return nil
}

func (b *Button) OnActivated() {
	w := b.World()
	id, ok := node(&b.AspectBase)
	if !ok {
		return
	}
	qs, ok := engine.GetService[*query.System](w)
	if !ok {
		w.Log.Warn("button without query system", zap.String("node", w.Path(id)))
	} else {
		b.volume = b.Volume
		if b.volume == "" {
			b.volume = w.Path(id)
		}
		if err := qs.RegisterVolume(b.volume, vmath.Box{Dimensions: b.Size}, id, b); err != nil {
			w.Log.Error("button volume", zap.String("volume", b.volume), zap.Error(err))
			b.volume = ""
		}
	}
	b.started = true
	b.fireState()
}

func (b *Button) OnDeactivated() {
	b.started = false
	if b.volume == "" {
		return
	}
	if qs, ok := engine.GetService[*query.System](b.World()); ok && qs.HasVolume(b.volume) {
		_ = qs.UnregisterVolume(b.volume)
	}
	b.volume = ""
}

// Enable returns an inactive button to the active state
func (b *Button) Enable() {
	if b.state != ButtonInactive {
		return
	}
	b.setState(ButtonActive)
}

// Disable makes the button ignore the pointer
func (b *Button) Disable() {
	b.setState(ButtonInactive)
}

func (b *Button) OnPointerEnter(engine.PointerEvent) bool {
	if b.state == ButtonInactive {
		return false
	}
	if b.state == ButtonActive {
		b.setState(ButtonHover)
	}
	return true
}

func (b *Button) OnPointerLeave() bool {
	if b.state == ButtonInactive {
		return false
	}
	// a held press is resolved by the release
	if b.state == ButtonHover {
		b.setState(ButtonActive)
	}
	return true
}

func (b *Button) OnPointerLeftPress(engine.PointerEvent) bool {
	if b.state == ButtonInactive {
		return false
	}
	b.setState(ButtonPressed)
	return true
}

func (b *Button) OnPointerLeftRelease(ev engine.PointerEvent) bool {
	if b.state != ButtonPressed {
		return false
	}
	if ev.Inside {
		b.setState(ButtonHover)
	} else {
		b.setState(ButtonActive)
	}
	return true
}

func (b *Button) OnPointerLeftClick(engine.PointerEvent) bool {
	if b.state == ButtonInactive {
		return false
	}
	b.released.Fire(b.Value)
	return true
}

func (b *Button) Drawables(buf []engine.Drawable) []engine.Drawable {
	return append(buf, engine.Drawable{
		Mesh:     b.Mesh,
		Material: b.Materials[b.state],
		Offset:   &b.offset,
		Priority: render.PriorityUI,
	})
}

func (b *Button) setState(s ButtonState) {
	if s == b.state {
		return
	}
	b.state = s
	if b.started {
		b.fireState()
	}
}

func (b *Button) fireState() {
	switch b.state {
	case ButtonActive:
		b.activated.Fire(struct{}{})
	case ButtonInactive:
		b.deactivated.Fire(struct{}{})
	case ButtonHover:
		b.hovered.Fire(b.Value)
	case ButtonPressed:
		b.pressed.Fire(b.Value)
	}
}

func newButton(p scene.Params) (engine.Aspect, error) {
	size, err := p.Vec3("size", mgl32.Vec3{2, 1, 0.2})
	if err != nil {
		return nil, err
	}
	if size.X() <= 0 || size.Y() <= 0 || size.Z() <= 0 {
		return nil, fmt.Errorf("button size %v must be positive", size)
	}
	return &Button{
		Value:  p.String("value", ""),
		Size:   size,
		Mesh:   p.String("mesh", "cube"),
		Volume: p.String("volume", ""),
		Materials: [4]string{
			ButtonActive:   p.String("material_active", "ivory"),
			ButtonHover:    p.String("material_hover", "highlight"),
			ButtonPressed:  p.String("material_pressed", "lapis"),
			ButtonInactive: p.String("material_inactive", "ebony"),
		},
		Disabled: p.Bool("disabled", false),
	}, nil
}

package engine

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/lixenwraith/toymaker/signal"
	"github.com/lixenwraith/toymaker/vmath"
)

// Entity is a simulation object identity; zero is never issued
type Entity uint64

// Aspect is a behavior unit attached to exactly one entity
// Implementations embed AspectBase, which the world fills on attach
type Aspect interface {
	// TypeName is the stable kind name used for lookup, signals and scene files
	TypeName() string
	// Clone returns an unattached copy carrying the same configuration
	Clone() Aspect
	// Capabilities and Attached are provided by AspectBase
	Capabilities() Capability
	Attached() bool

	aspectBase() *AspectBase
}

// AspectBase carries an aspect's attachment state
// Embed in aspect structs; the zero value is unattached
type AspectBase struct {
	entity Entity
	world  *World
	caps   Capability
}

func (b *AspectBase) aspectBase() *AspectBase { return b }

// Entity returns the owning entity, zero when unattached
func (b *AspectBase) Entity() Entity { return b.entity }

// World returns the owning world, nil when unattached
func (b *AspectBase) World() *World { return b.world }

// Capabilities returns the capability set probed at attach
func (b *AspectBase) Capabilities() Capability { return b.caps }

// Attached reports whether the aspect belongs to an entity
func (b *AspectBase) Attached() bool { return b.world != nil }

// Node returns the scene node holding the owning entity
func (b *AspectBase) Node() (NodeID, bool) {
	if b.world == nil {
		return NodeID{}, false
	}
	return b.world.EntityNode(b.entity)
}

// Bus returns the world's signal bus
func (b *AspectBase) Bus() *signal.Bus {
	if b.world == nil {
		return nil
	}
	return b.world.Bus
}

// SignalKey builds the bus key for a signal or observer this aspect owns
func (b *AspectBase) SignalKey(kind, name string) signal.Key {
	return signal.Key{Owner: uint64(b.entity), Aspect: kind, Name: name}
}

// Sibling returns another aspect of kind on the same entity
func (b *AspectBase) Sibling(kind string) (Aspect, bool) {
	if b.world == nil {
		return nil, false
	}
	return b.world.Aspect(b.entity, kind)
}

// --- Optional lifecycle hooks ---

// Attachable runs right after attach; aspects declare signals and observers here
// A returned error aborts the attach
type Attachable interface {
	OnAttached() error
}

// Detachable runs before the aspect leaves its entity
type Detachable interface {
	OnDetached()
}

// Uniquer marks an aspect kind as at most one per entity
type Uniquer interface {
	Unique() bool
}

// --- Capability interfaces ---

// Activatable is invoked once when its entity becomes live in the scene
type Activatable interface {
	OnActivated()
}

// Deactivatable is invoked when a live entity leaves the scene or the aspect is detached
type Deactivatable interface {
	OnDeactivated()
}

// Updatable receives the variable-rate frame update
type Updatable interface {
	VariableUpdate(dt time.Duration)
}

// SimulationUpdatable receives zero or more fixed-length steps per frame,
// before any VariableUpdate of that frame
type SimulationUpdatable interface {
	SimulationUpdate(step time.Duration)
}

// PointerEvent describes a pointer interaction resolved against a query volume
type PointerEvent struct {
	Volume   string
	Point    mgl32.Vec3 // world-space hit, or ray point at the volume's last distance
	Distance float32
	Screen   mgl32.Vec2 // normalized pointer position over the display
	Inside   bool       // release still over the pressed volume
}

// LeftClickable receives completed clicks and every release of a press it received
type LeftClickable interface {
	OnPointerLeftClick(ev PointerEvent) bool
	OnPointerLeftRelease(ev PointerEvent) bool
}

// Hoverable receives hover transitions
type Hoverable interface {
	OnPointerEnter(ev PointerEvent) bool
	OnPointerLeave() bool
}

// Drawable is one render contribution from an aspect
type Drawable struct {
	Mesh     string
	Material string
	Offset   *vmath.Transform // relative to the node, nil for none
	Priority int
}

// Renderable contributes drawables for the render pass
// Implementations append to buf and return it
type Renderable interface {
	Drawables(buf []Drawable) []Drawable
}

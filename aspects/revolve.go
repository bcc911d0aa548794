package aspects

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/scene"
)

const TypeRevolve = "Revolve"

// Revolve spins its node about Axis at Speed radians per second
type Revolve struct {
	engine.AspectBase

	Axis  mgl32.Vec3
	Speed float32
}

func (*Revolve) TypeName() string { return TypeRevolve }

func (r *Revolve) Clone() engine.Aspect { return &Revolve{Axis: r.Axis, Speed: r.Speed} }

func (r *Revolve) VariableUpdate(dt time.Duration) {
	id, ok := node(&r.AspectBase)
	if !ok {
		return
	}
	w := r.World()
	q := mgl32.QuatRotate(r.Speed*float32(dt.Seconds()), r.Axis)
	_ = w.SetLocalTransform(id, w.LocalTransform(id).Rotated(q))
}

func newRevolve(p scene.Params) (engine.Aspect, error) {
	axis, err := p.Vec3("axis", mgl32.Vec3{0, 1, 0})
	if err != nil {
		return nil, err
	}
	if axis.Len() == 0 {
		return nil, fmt.Errorf("revolve axis is zero")
	}
	return &Revolve{Axis: axis.Normalize(), Speed: float32(p.Float("speed", 0.1))}, nil
}

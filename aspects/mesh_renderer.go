package aspects

import (
	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/render"
	"github.com/lixenwraith/toymaker/scene"
	"github.com/lixenwraith/toymaker/vmath"
)

const TypeMeshRenderer = "MeshRenderer"

// MeshRenderer draws one mesh at its node
type MeshRenderer struct {
	engine.AspectBase

	Mesh     string
	Material string
	Priority int
	Offset   *vmath.Transform
	Hidden   bool
}

func (*MeshRenderer) TypeName() string { return TypeMeshRenderer }

func (m *MeshRenderer) Clone() engine.Aspect {
	c := &MeshRenderer{Mesh: m.Mesh, Material: m.Material, Priority: m.Priority, Hidden: m.Hidden}
	if m.Offset != nil {
		off := *m.Offset
		c.Offset = &off
	}
	return c
}

func (m *MeshRenderer) Drawables(buf []engine.Drawable) []engine.Drawable {
	if m.Hidden {
		return buf
	}
	return append(buf, engine.Drawable{
		Mesh:     m.Mesh,
		Material: m.Material,
		Offset:   m.Offset,
		Priority: m.Priority,
	})
}

// SetMaterial swaps the material drawn from the next frame on
func (m *MeshRenderer) SetMaterial(name string) { m.Material = name }

func newMeshRenderer(p scene.Params) (engine.Aspect, error) {
	m := &MeshRenderer{
		Mesh:     p.String("mesh", "cube"),
		Material: p.String("material", render.DefaultMaterial),
		Priority: p.Int("priority", render.PriorityPieces),
		Hidden:   p.Bool("hidden", false),
	}
	_, hasPos := p["offset"]
	_, hasScale := p["scale"]
	if hasPos || hasScale {
		off := vmath.Identity()
		var err error
		if off.Position, err = p.Vec3("offset", off.Position); err != nil {
			return nil, err
		}
		if off.Scale, err = p.Vec3("scale", off.Scale); err != nil {
			return nil, err
		}
		m.Offset = &off
	}
	return m, nil
}

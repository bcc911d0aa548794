package resource

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex layouts; instancing requires matching layouts
const (
	LayoutPosition = "p3"
	LayoutLines    = "p3-lines"
)

// Mesh is indexed triangle geometry in model space
type Mesh struct {
	Name     string
	Layout   string
	Vertices []mgl32.Vec3
	Indices  []uint32
	Min, Max mgl32.Vec3
}

// Triangles returns the number of indexed triangles
func (m *Mesh) Triangles() int { return len(m.Indices) / 3 }

// Center returns the midpoint of the bounds
func (m *Mesh) Center() mgl32.Vec3 { return m.Min.Add(m.Max).Mul(0.5) }

func (m *Mesh) computeBounds() {
	if len(m.Vertices) == 0 {
		return
	}
	m.Min, m.Max = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		for i := 0; i < 3; i++ {
			m.Min[i] = min(m.Min[i], v[i])
			m.Max[i] = max(m.Max[i], v[i])
		}
	}
}

// addQuad appends a quad with corners in winding order
func (m *Mesh) addQuad(a, b, c, d mgl32.Vec3) {
	base := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, a, b, c, d)
	m.Indices = append(m.Indices, base, base+1, base+2, base, base+2, base+3)
}

// Cube builds an axis-aligned cube of edge size centered on the origin
func Cube(name string, size float32) *Mesh {
	h := size / 2
	m := &Mesh{Name: name, Layout: LayoutPosition}
	p := func(x, y, z float32) mgl32.Vec3 { return mgl32.Vec3{x * h, y * h, z * h} }
	m.addQuad(p(-1, -1, 1), p(1, -1, 1), p(1, 1, 1), p(-1, 1, 1))
	m.addQuad(p(1, -1, -1), p(-1, -1, -1), p(-1, 1, -1), p(1, 1, -1))
	m.addQuad(p(-1, 1, 1), p(1, 1, 1), p(1, 1, -1), p(-1, 1, -1))
	m.addQuad(p(-1, -1, -1), p(1, -1, -1), p(1, -1, 1), p(-1, -1, 1))
	m.addQuad(p(1, -1, 1), p(1, -1, -1), p(1, 1, -1), p(1, 1, 1))
	m.addQuad(p(-1, -1, -1), p(-1, -1, 1), p(-1, 1, 1), p(-1, 1, -1))
	m.computeBounds()
	return m
}

// Plane builds a width x depth quad in the XZ plane facing +Y
func Plane(name string, width, depth float32) *Mesh {
	hw, hd := width/2, depth/2
	m := &Mesh{Name: name, Layout: LayoutPosition}
	m.addQuad(
		mgl32.Vec3{-hw, 0, hd}, mgl32.Vec3{hw, 0, hd},
		mgl32.Vec3{hw, 0, -hd}, mgl32.Vec3{-hw, 0, -hd},
	)
	m.computeBounds()
	return m
}

// Board builds one tile per cell in the XZ plane, columns along X and rows along Z
// Cells present in skip are left as gaps
func Board(name string, columns, rows int, cell float32, skip map[[2]int]bool) *Mesh {
	m := &Mesh{Name: name, Layout: LayoutPosition}
	w := float32(columns) * cell
	d := float32(rows) * cell
	inset := cell * 0.05
	for c := 0; c < columns; c++ {
		for r := 0; r < rows; r++ {
			if skip[[2]int{c, r}] {
				continue
			}
			x0 := -w/2 + float32(c)*cell + inset
			z0 := -d/2 + float32(r)*cell + inset
			x1 := x0 + cell - 2*inset
			z1 := z0 + cell - 2*inset
			m.addQuad(
				mgl32.Vec3{x0, 0, z1}, mgl32.Vec3{x1, 0, z1},
				mgl32.Vec3{x1, 0, z0}, mgl32.Vec3{x0, 0, z0},
			)
		}
	}
	m.computeBounds()
	return m
}

// UrBoardSkips is the classic gap mask for an 8x3 board
func UrBoardSkips() map[[2]int]bool {
	return map[[2]int]bool{
		{4, 0}: true, {5, 0}: true,
		{4, 2}: true, {5, 2}: true,
	}
}

// PlaceholderMesh is substituted by the renderer for meshes that fail to resolve
func PlaceholderMesh() *Mesh { return Cube("placeholder", 1) }

// proceduralMesh builds meshes from params["shape"], defaulting to the resource name
func proceduralMesh(_ context.Context, d Descriptor) (any, error) {
	shape := paramString(d.Params, "shape", d.Name)
	switch shape {
	case "cube":
		return Cube(d.Name, float32(paramFloat(d.Params, "size", 1))), nil
	case "plane":
		return Plane(d.Name,
			float32(paramFloat(d.Params, "width", 1)),
			float32(paramFloat(d.Params, "depth", 1))), nil
	case "board":
		cols := paramInt(d.Params, "columns", 8)
		rows := paramInt(d.Params, "rows", 3)
		if cols <= 0 || rows <= 0 {
			return nil, fmt.Errorf("board needs positive columns and rows, got %dx%d", cols, rows)
		}
		var skip map[[2]int]bool
		if paramString(d.Params, "layout", "ur") == "ur" && cols == 8 && rows == 3 {
			skip = UrBoardSkips()
		}
		return Board(d.Name, cols, rows, float32(paramFloat(d.Params, "cell", 1)), skip), nil
	}
	return nil, fmt.Errorf("%w: no procedural shape %q", ErrNotExist, shape)
}

package vmath

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vecNear(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	assert.True(t, want.ApproxEqualThreshold(got, 1e-4), "want %v got %v", want, got)
}

func TestTransformMatrixOrder(t *testing.T) {
	tr := Transform{
		Position:    mgl32.Vec3{1, 2, 3},
		Orientation: mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}),
		Scale:       mgl32.Vec3{2, 2, 2},
	}
	// scale, then rotate +X onto -Z, then translate
	vecNear(t, mgl32.Vec3{1, 2, 1}, TransformPoint(tr.Matrix(), mgl32.Vec3{1, 0, 0}))
}

func TestZeroOrientationIsIdentity(t *testing.T) {
	tr := Transform{Position: mgl32.Vec3{0, 1, 0}, Scale: mgl32.Vec3{1, 1, 1}}
	vecNear(t, mgl32.Vec3{5, 1, 0}, TransformPoint(tr.Matrix(), mgl32.Vec3{5, 0, 0}))
}

func TestComposeChain(t *testing.T) {
	parent := At(mgl32.Vec3{10, 0, 0})
	child := At(mgl32.Vec3{0, 5, 0})
	world := Compose(parent.Matrix(), child)
	vecNear(t, mgl32.Vec3{10, 5, 0}, Translation(world))
}

func TestBoxIntersect(t *testing.T) {
	box := Box{Dimensions: mgl32.Vec3{2, 2, 2}}
	r := NewRay(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0, 0, -1})

	d, ok := IntersectRay(box, mgl32.Ident4(), r)
	require.True(t, ok)
	assert.InDelta(t, 9, d, 1e-4)

	// translated box keeps distances in world units
	d, ok = IntersectRay(box, mgl32.Translate3D(0, 0, -5), r)
	require.True(t, ok)
	assert.InDelta(t, 14, d, 1e-4)

	// scaled box
	d, ok = IntersectRay(box, mgl32.Scale3D(3, 3, 3), r)
	require.True(t, ok)
	assert.InDelta(t, 7, d, 1e-4)

	_, ok = IntersectRay(box, mgl32.Translate3D(5, 0, 0), r)
	assert.False(t, ok)
}

func TestRayLimit(t *testing.T) {
	box := Box{Dimensions: mgl32.Vec3{2, 2, 2}}
	r := NewRay(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0, 0, -1})
	r.MaxDistance = 5
	_, ok := IntersectRay(box, mgl32.Ident4(), r)
	assert.False(t, ok)
}

func TestSphereAndInside(t *testing.T) {
	s := Sphere{Radius: 1}
	d, ok := IntersectRay(s, mgl32.Ident4(), NewRay(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, -1}))
	require.True(t, ok)
	assert.InDelta(t, 4, d, 1e-4)

	d, ok = IntersectRay(s, mgl32.Ident4(), NewRay(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}))
	require.True(t, ok)
	assert.Zero(t, d)
}

func TestTriangleAndDisk(t *testing.T) {
	tri := Triangle{A: mgl32.Vec3{-1, -1, 0}, B: mgl32.Vec3{1, -1, 0}, C: mgl32.Vec3{0, 1, 0}}
	r := NewRay(mgl32.Vec3{0, 0, 3}, mgl32.Vec3{0, 0, -1})
	d, ok := IntersectRay(tri, mgl32.Ident4(), r)
	require.True(t, ok)
	assert.InDelta(t, 3, d, 1e-4)

	disk := Disk{Normal: mgl32.Vec3{0, 0, 1}, Radius: 0.5}
	d, ok = IntersectRay(disk, mgl32.Ident4(), r)
	require.True(t, ok)
	assert.InDelta(t, 3, d, 1e-4)

	_, ok = IntersectRay(disk, mgl32.Ident4(), NewRay(mgl32.Vec3{0.9, 0, 3}, mgl32.Vec3{0, 0, -1}))
	assert.False(t, ok)
}

func TestDegenerateWorldMatrix(t *testing.T) {
	box := Box{Dimensions: mgl32.Vec3{2, 2, 2}}
	_, ok := IntersectRay(box, mgl32.Scale3D(0, 1, 1), NewRay(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, -1}))
	assert.False(t, ok)
}

func TestScreenRayCenter(t *testing.T) {
	cam := DefaultCamera()
	camWorld := At(mgl32.Vec3{0, 0, 10}).Matrix()

	r := cam.ScreenRay(camWorld, 0.5, 0.5)
	vecNear(t, mgl32.Vec3{0, 0, -1}, r.Direction)
	vecNear(t, mgl32.Vec3{0, 0, 10 - cam.Near}, r.Origin)

	d, ok := IntersectRay(Box{Dimensions: mgl32.Vec3{1, 1, 1}}, mgl32.Ident4(), r)
	require.True(t, ok)
	assert.InDelta(t, 10-cam.Near-0.5, d, 1e-3)
}

func TestScreenRayCorners(t *testing.T) {
	cam := DefaultCamera()
	r := cam.ScreenRay(mgl32.Ident4(), 0, 0)
	assert.Less(t, r.Direction.X(), float32(0))
	assert.Greater(t, r.Direction.Y(), float32(0))

	ortho := Camera{Projection: Orthographic, Near: 0.1, Far: 50, OrthoSize: mgl32.Vec2{4, 2}}
	r = ortho.ScreenRay(mgl32.Ident4(), 1, 1)
	vecNear(t, mgl32.Vec3{2, -1, -0.1}, r.Origin)
	vecNear(t, mgl32.Vec3{0, 0, -1}, r.Direction)
}

func TestProjectRoundTrip(t *testing.T) {
	cam := DefaultCamera()
	camWorld := At(mgl32.Vec3{0, 0, 10}).Matrix()
	view := camWorld.Inv()

	x, y, visible := cam.Project(view, mgl32.Vec3{})
	require.True(t, visible)
	assert.InDelta(t, 0.5, x, 1e-4)
	assert.InDelta(t, 0.5, y, 1e-4)

	_, _, visible = cam.Project(view, mgl32.Vec3{0, 0, 20})
	assert.False(t, visible)

	assert.InDelta(t, 10, Depth(view, mgl32.Vec3{}), 1e-4)
}

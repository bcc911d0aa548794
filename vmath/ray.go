package vmath

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Ray is a half-line starting at Origin
// Direction is kept normalized so hit distances are in world units
// MaxDistance of zero means unbounded
type Ray struct {
	Origin      mgl32.Vec3
	Direction   mgl32.Vec3
	MaxDistance float32
}

// NewRay builds a ray with a normalized direction
func NewRay(origin, direction mgl32.Vec3) Ray {
	return Ray{Origin: origin, Direction: direction.Normalize()}
}

// Valid reports whether the ray can be intersected
func (r Ray) Valid() bool {
	return IsFinite(r.Origin) && IsFinite(r.Direction) && r.Direction.Len() > Epsilon && r.MaxDistance >= 0
}

// At returns the point at distance t along the ray
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Limit returns the effective maximum distance
func (r Ray) Limit() float32 {
	if r.MaxDistance == 0 {
		return Infinity
	}
	return r.MaxDistance
}

// IntersectRay casts a world-space ray against a shape placed by world
// The ray is carried into shape-local space with an unnormalized direction,
// so the returned parameter is the world-space distance along r
func IntersectRay(shape Shape, world mgl32.Mat4, r Ray) (float32, bool) {
	if shape == nil || !r.Valid() {
		return 0, false
	}
	if abs32(world.Det()) < Epsilon {
		return 0, false
	}
	inv := world.Inv()
	o := TransformPoint(inv, r.Origin)
	d := TransformDirection(inv, r.Direction)

	t, ok := shape.intersect(o, d)
	if !ok || t < 0 || t > r.Limit() {
		return 0, false
	}
	return t, true
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

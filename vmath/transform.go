package vmath

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a node's placement relative to its parent
// Matrix order is translate * rotate * scale
type Transform struct {
	Position    mgl32.Vec3
	Orientation mgl32.Quat
	Scale       mgl32.Vec3
}

// Identity returns the transform that leaves its children unchanged
func Identity() Transform {
	return Transform{
		Orientation: mgl32.QuatIdent(),
		Scale:       mgl32.Vec3{1, 1, 1},
	}
}

// At returns an identity transform translated to p
func At(p mgl32.Vec3) Transform {
	t := Identity()
	t.Position = p
	return t
}

// EulerDeg builds an orientation from XYZ rotations in degrees
func EulerDeg(x, y, z float32) mgl32.Quat {
	return mgl32.AnglesToQuat(mgl32.DegToRad(x), mgl32.DegToRad(y), mgl32.DegToRad(z), mgl32.XYZ)
}

// Matrix converts the transform into an affine matrix
// A zero orientation (the zero value) is treated as identity
func (t Transform) Matrix() mgl32.Mat4 {
	q := t.Orientation
	if q.W == 0 && q.V == (mgl32.Vec3{}) {
		q = mgl32.QuatIdent()
	} else {
		q = q.Normalize()
	}
	return mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z()).
		Mul4(q.Mat4()).
		Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}

// Compose returns the world matrix of a child placed at local under parent
func Compose(parent mgl32.Mat4, local Transform) mgl32.Mat4 {
	return parent.Mul4(local.Matrix())
}

// Translated returns a copy moved by d
func (t Transform) Translated(d mgl32.Vec3) Transform {
	t.Position = t.Position.Add(d)
	return t
}

// Rotated returns a copy with q applied after the current orientation
func (t Transform) Rotated(q mgl32.Quat) Transform {
	o := t.Orientation
	if o.W == 0 && o.V == (mgl32.Vec3{}) {
		o = mgl32.QuatIdent()
	}
	t.Orientation = q.Mul(o).Normalize()
	return t
}

// Package vmath provides the 3D math used by the scene graph, spatial queries and
// the render pipeline, built on mathgl's float32 vectors, quaternions and matrices
package vmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Epsilon is the tolerance used for degenerate geometry checks
const Epsilon float32 = 1e-6

// Infinity is the sentinel distance for an unbounded ray
var Infinity = float32(math.Inf(1))

// IsFinite reports whether every component of v is finite
func IsFinite(v mgl32.Vec3) bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// TransformPoint applies m to a point (w = 1)
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// TransformDirection applies m to a direction (w = 0), translation is ignored
func TransformDirection(m mgl32.Mat4, d mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(d.Vec4(0)).Vec3()
}

// Translation extracts the translation column of an affine matrix
func Translation(m mgl32.Mat4) mgl32.Vec3 {
	return m.Col(3).Vec3()
}

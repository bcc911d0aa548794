package vmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Projection selects how a camera maps view space onto its target
type Projection uint8

const (
	Perspective Projection = iota
	Orthographic
)

// Camera describes a viewport's lens; the camera looks down its local -Z axis
type Camera struct {
	Projection Projection
	FovDeg     float32 // vertical field of view, perspective only
	Aspect     float32 // width / height
	Near, Far  float32
	OrthoSize  mgl32.Vec2 // view volume width and height, orthographic only
}

// DefaultCamera is a 45 degree perspective camera
func DefaultCamera() Camera {
	return Camera{
		Projection: Perspective,
		FovDeg:     45,
		Aspect:     16.0 / 9.0,
		Near:       0.1,
		Far:        100,
		OrthoSize:  mgl32.Vec2{2, 2},
	}
}

// ProjectionMatrix returns the clip-space projection
func (c Camera) ProjectionMatrix() mgl32.Mat4 {
	if c.Projection == Orthographic {
		hw, hh := c.OrthoSize.X()/2, c.OrthoSize.Y()/2
		return mgl32.Ortho(-hw, hw, -hh, hh, c.Near, c.Far)
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FovDeg), c.Aspect, c.Near, c.Far)
}

// ScreenRay builds the world-space ray under normalized screen coordinates
// (0,0) is the top-left corner of the target and (1,1) the bottom-right
// The ray starts on the near plane and is limited to the far plane
func (c Camera) ScreenRay(camWorld mgl32.Mat4, x, y float32) Ray {
	ndcX := 2*x - 1
	ndcY := 1 - 2*y

	var onNear, dir mgl32.Vec3
	switch c.Projection {
	case Orthographic:
		onNear = mgl32.Vec3{ndcX * c.OrthoSize.X() / 2, ndcY * c.OrthoSize.Y() / 2, -c.Near}
		dir = mgl32.Vec3{0, 0, -1}
	default:
		halfH := c.Near * float32(math.Tan(float64(mgl32.DegToRad(c.FovDeg))/2))
		halfW := halfH * c.Aspect
		onNear = mgl32.Vec3{ndcX * halfW, ndcY * halfH, -c.Near}
		dir = onNear
	}

	ray := NewRay(TransformPoint(camWorld, onNear), TransformDirection(camWorld, dir))
	if c.Far > c.Near {
		ray.MaxDistance = c.Far - c.Near
	}
	return ray
}

// Depth returns the distance of world point p in front of the camera
// view is the inverse of the camera's world matrix
func Depth(view mgl32.Mat4, p mgl32.Vec3) float32 {
	return -TransformPoint(view, p).Z()
}

// Project maps a world point to normalized screen coordinates
// visible is false when the point is behind the camera or outside the view volume
func (c Camera) Project(view mgl32.Mat4, p mgl32.Vec3) (x, y float32, visible bool) {
	clip := c.ProjectionMatrix().Mul4(view).Mul4x1(p.Vec4(1))
	if clip.W() <= Epsilon {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	x = (ndc.X() + 1) / 2
	y = (1 - ndc.Y()) / 2
	visible = ndc.X() >= -1 && ndc.X() <= 1 && ndc.Y() >= -1 && ndc.Y() <= 1 && ndc.Z() >= -1 && ndc.Z() <= 1
	return x, y, visible
}

package vmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Shape is a query volume in its node's local space
type Shape interface {
	// Bounds returns the local axis-aligned extents
	Bounds() (min, max mgl32.Vec3)
	// Sensible reports whether the shape is non-degenerate and finite
	Sensible() bool

	// intersect returns the smallest non-negative t where o + t*d touches the shape
	// d is not normalized
	intersect(o, d mgl32.Vec3) (float32, bool)
}

// Box is a box of Dimensions centered on Center
type Box struct {
	Center     mgl32.Vec3
	Dimensions mgl32.Vec3
}

func (b Box) Bounds() (mgl32.Vec3, mgl32.Vec3) {
	half := b.Dimensions.Mul(0.5)
	return b.Center.Sub(half), b.Center.Add(half)
}

func (b Box) Sensible() bool {
	return IsFinite(b.Center) && IsFinite(b.Dimensions) &&
		b.Dimensions.X() > 0 && b.Dimensions.Y() > 0 && b.Dimensions.Z() > 0
}

// intersect uses the slab method; an origin inside the box hits at t = 0
func (b Box) intersect(o, d mgl32.Vec3) (float32, bool) {
	lo, hi := b.Bounds()
	tNear := float32(math.Inf(-1))
	tFar := float32(math.Inf(1))

	for axis := 0; axis < 3; axis++ {
		if abs32(d[axis]) < Epsilon {
			if o[axis] < lo[axis] || o[axis] > hi[axis] {
				return 0, false
			}
			continue
		}
		inv := 1 / d[axis]
		t1 := (lo[axis] - o[axis]) * inv
		t2 := (hi[axis] - o[axis]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tNear {
			tNear = t1
		}
		if t2 < tFar {
			tFar = t2
		}
		if tNear > tFar || tFar < 0 {
			return 0, false
		}
	}

	if tNear < 0 {
		return 0, true
	}
	return tNear, true
}

// Sphere is a ball of Radius around Center
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

func (s Sphere) Bounds() (mgl32.Vec3, mgl32.Vec3) {
	r := mgl32.Vec3{s.Radius, s.Radius, s.Radius}
	return s.Center.Sub(r), s.Center.Add(r)
}

func (s Sphere) Sensible() bool {
	return IsFinite(s.Center) && s.Radius > 0 && !math.IsInf(float64(s.Radius), 0)
}

func (s Sphere) intersect(o, d mgl32.Vec3) (float32, bool) {
	oc := o.Sub(s.Center)
	a := d.Dot(d)
	b := 2 * oc.Dot(d)
	c := oc.Dot(oc) - s.Radius*s.Radius

	if c <= 0 {
		return 0, true
	}
	disc := b*b - 4*a*c
	if disc < 0 || a < Epsilon {
		return 0, false
	}
	sq := float32(math.Sqrt(float64(disc)))
	t := (-b - sq) / (2 * a)
	if t < 0 {
		return 0, false
	}
	return t, true
}

// Triangle is a single-sided area, hit from either side
type Triangle struct {
	A, B, C mgl32.Vec3
}

func (tr Triangle) Bounds() (mgl32.Vec3, mgl32.Vec3) {
	lo, hi := tr.A, tr.A
	for _, p := range []mgl32.Vec3{tr.B, tr.C} {
		for i := 0; i < 3; i++ {
			lo[i] = min(lo[i], p[i])
			hi[i] = max(hi[i], p[i])
		}
	}
	return lo, hi
}

func (tr Triangle) Sensible() bool {
	return IsFinite(tr.A) && IsFinite(tr.B) && IsFinite(tr.C) &&
		tr.B.Sub(tr.A).Cross(tr.C.Sub(tr.A)).Len() > Epsilon
}

// intersect is Möller–Trumbore
func (tr Triangle) intersect(o, d mgl32.Vec3) (float32, bool) {
	e1 := tr.B.Sub(tr.A)
	e2 := tr.C.Sub(tr.A)
	p := d.Cross(e2)
	det := e1.Dot(p)
	if abs32(det) < Epsilon {
		return 0, false
	}
	inv := 1 / det
	s := o.Sub(tr.A)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := d.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	if t < 0 {
		return 0, false
	}
	return t, true
}

// Disk is a flat circle facing Normal
type Disk struct {
	Center mgl32.Vec3
	Normal mgl32.Vec3
	Radius float32
}

func (dk Disk) Bounds() (mgl32.Vec3, mgl32.Vec3) {
	r := mgl32.Vec3{dk.Radius, dk.Radius, dk.Radius}
	return dk.Center.Sub(r), dk.Center.Add(r)
}

func (dk Disk) Sensible() bool {
	return IsFinite(dk.Center) && IsFinite(dk.Normal) && dk.Normal.Len() > Epsilon && dk.Radius > 0
}

func (dk Disk) intersect(o, d mgl32.Vec3) (float32, bool) {
	n := dk.Normal.Normalize()
	denom := n.Dot(d)
	if abs32(denom) < Epsilon {
		return 0, false
	}
	t := dk.Center.Sub(o).Dot(n) / denom
	if t < 0 {
		return 0, false
	}
	p := o.Add(d.Mul(t))
	if p.Sub(dk.Center).Len() > dk.Radius {
		return 0, false
	}
	return t, true
}

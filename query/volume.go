package query

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/vmath"
)

// TieEpsilon is the distance within which two hits count as equally near
// The earlier registered volume wins a tie
const TieEpsilon float32 = 1e-4

var (
	ErrDuplicateVolume = errors.New("query volume already registered")
	ErrUnknownVolume   = errors.New("unknown query volume")
	ErrBadShape        = errors.New("query volume shape is degenerate")
)

type volume struct {
	name  string
	shape vmath.Shape
	node  engine.NodeID
	owner engine.Aspect
	order uint64
	// distance of the last hit, used to place release points off the volume
	lastDistance float32
}

// Hit is the nearest volume along a ray
type Hit struct {
	Volume   string
	Node     engine.NodeID
	Owner    engine.Aspect
	Distance float32
	Point    mgl32.Vec3
}

// RegisterVolume adds a pickable shape placed by node's world transform
// owner receives pointer hooks; nil routes them to every capable aspect on the node's entity
func (s *System) RegisterVolume(name string, shape vmath.Shape, node engine.NodeID, owner engine.Aspect) error {
	if _, ok := s.volumes[name]; ok {
		return fmt.Errorf("register %q: %w", name, ErrDuplicateVolume)
	}
	if shape == nil || !shape.Sensible() {
		return fmt.Errorf("register %q: %w", name, ErrBadShape)
	}
	if !s.world.Valid(node) {
		return fmt.Errorf("register %q: %w", name, engine.ErrUnknownNode)
	}
	v := &volume{name: name, shape: shape, node: node, owner: owner, order: s.nextOrder}
	s.nextOrder++
	s.volumes[name] = v
	s.order = append(s.order, v)
	return nil
}

// UnregisterVolume removes a volume, clearing any hover or press on it without hooks
func (s *System) UnregisterVolume(name string) error {
	v, ok := s.volumes[name]
	if !ok {
		return fmt.Errorf("unregister %q: %w", name, ErrUnknownVolume)
	}
	s.drop(v)
	return nil
}

// HasVolume reports whether name is registered
func (s *System) HasVolume(name string) bool {
	_, ok := s.volumes[name]
	return ok
}

// Volumes returns registered volume names in registration order
func (s *System) Volumes() []string {
	out := make([]string, len(s.order))
	for i, v := range s.order {
		out[i] = v.name
	}
	return out
}

func (s *System) drop(v *volume) {
	delete(s.volumes, v.name)
	for i, o := range s.order {
		if o == v {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	if s.hovered == v {
		s.hovered = nil
	}
	if s.pressed == v {
		s.pressed = nil
	}
}

func (s *System) dropWhere(match func(*volume) bool) {
	for _, v := range append([]*volume(nil), s.order...) {
		if match(v) {
			s.drop(v)
		}
	}
}

// QueryRay returns the nearest volume hit by r across all active nodes
func (s *System) QueryRay(r vmath.Ray) (Hit, bool) {
	return s.query(r, func(*volume) bool { return true })
}

// QueryRayIn restricts QueryRay to volumes rendered by viewport vp
func (s *System) QueryRayIn(vp engine.NodeID, r vmath.Ray) (Hit, bool) {
	return s.query(r, func(v *volume) bool {
		owner, ok := s.world.ViewportOf(v.node)
		return ok && owner == vp
	})
}

func (s *System) query(r vmath.Ray, keep func(*volume) bool) (Hit, bool) {
	var best *volume
	var bestT float32
	for _, v := range s.order {
		if !s.world.Active(v.node) || s.world.Doomed(v.node) || !keep(v) {
			continue
		}
		t, ok := vmath.IntersectRay(v.shape, s.world.WorldTransform(v.node), r)
		if !ok {
			continue
		}
		if best == nil || t < bestT-TieEpsilon {
			best, bestT = v, t
		}
	}
	if best == nil {
		return Hit{}, false
	}
	best.lastDistance = bestT
	return Hit{
		Volume:   best.name,
		Node:     best.node,
		Owner:    best.owner,
		Distance: bestT,
		Point:    r.At(bestT),
	}, true
}

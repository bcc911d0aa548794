package engine

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/lixenwraith/toymaker/vmath"
)

// Rect is a region of the display in normalized units, origin top-left
type Rect struct {
	X, Y, W, H float32
}

// Contains reports whether normalized point (x, y) lies in r
func (r Rect) Contains(x, y float32) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Local maps a display point into r's own 0..1 space
func (r Rect) Local(x, y float32) (float32, float32) {
	if r.W <= 0 || r.H <= 0 {
		return 0, 0
	}
	return (x - r.X) / r.W, (y - r.Y) / r.H
}

// ViewportConfig turns a node into the root of an independently rendered sub-scene
type ViewportConfig struct {
	Camera vmath.Camera
	// Eye places the camera relative to the viewport node
	Eye     vmath.Transform
	Target  Rect
	Enabled bool
}

// DefaultViewport covers the display with a perspective camera at the origin
func DefaultViewport() ViewportConfig {
	return ViewportConfig{
		Camera:  vmath.DefaultCamera(),
		Eye:     vmath.Identity(),
		Target:  Rect{W: 1, H: 1},
		Enabled: true,
	}
}

// CreateViewport adds a viewport child node
func (w *World) CreateViewport(parent NodeID, name string, cfg ViewportConfig) (NodeID, error) {
	id, err := w.CreateNode(parent, name)
	if err != nil {
		return NodeID{}, err
	}
	w.node(id).viewport = &cfg
	return id, nil
}

// Viewport returns a node's viewport config; callers may mutate it
func (w *World) Viewport(id NodeID) (*ViewportConfig, bool) {
	n := w.node(id)
	if n == nil || n.viewport == nil {
		return nil, false
	}
	return n.viewport, true
}

// SetViewport makes id a viewport node or updates its config
func (w *World) SetViewport(id NodeID, cfg ViewportConfig) error {
	n := w.node(id)
	if n == nil {
		return fmt.Errorf("set viewport %v: %w", id, ErrUnknownNode)
	}
	n.viewport = &cfg
	return nil
}

// IsViewport reports whether a node carries a viewport config
func (w *World) IsViewport(id NodeID) bool {
	n := w.node(id)
	return n != nil && n.viewport != nil
}

// CameraWorld returns the world matrix of a viewport's camera
func (w *World) CameraWorld(id NodeID) mgl32.Mat4 {
	vp, ok := w.Viewport(id)
	if !ok {
		return w.WorldTransform(id)
	}
	return vmath.Compose(w.WorldTransform(id), vp.Eye)
}

// Viewports lists enabled, active viewport nodes with nested viewports before their enclosing one
func (w *World) Viewports() []NodeID {
	var out []NodeID
	var visit func(NodeID)
	visit = func(id NodeID) {
		n := w.node(id)
		if n == nil || n.state != nodeActive {
			return
		}
		for _, c := range n.children {
			visit(c)
		}
		if n = w.node(id); n.viewport != nil && n.viewport.Enabled {
			out = append(out, id)
		}
	}
	visit(w.root)
	return out
}

// ViewportAt returns the viewport drawn on top at a display point with the viewport-local coordinates
// Later siblings and nested viewports draw over earlier ones
func (w *World) ViewportAt(x, y float32) (NodeID, float32, float32, bool) {
	vps := w.Viewports()
	best := -1
	bestDepth := -1
	for i, id := range vps {
		vp := w.node(id).viewport
		if !vp.Target.Contains(x, y) {
			continue
		}
		d := w.depth(id)
		if d > bestDepth || (d == bestDepth && i > best) {
			best, bestDepth = i, d
		}
	}
	if best < 0 {
		return NodeID{}, 0, 0, false
	}
	id := vps[best]
	lx, ly := w.node(id).viewport.Target.Local(x, y)
	return id, lx, ly, true
}

func (w *World) depth(id NodeID) int {
	d := 0
	for n := w.node(id); n != nil && !n.parent.IsZero(); n = w.node(n.parent) {
		d++
	}
	return d
}

// ViewportOf returns the nearest enclosing viewport of a node, the node itself included
func (w *World) ViewportOf(id NodeID) (NodeID, bool) {
	for cur := id; ; {
		n := w.node(cur)
		if n == nil {
			return NodeID{}, false
		}
		if n.viewport != nil {
			return cur, true
		}
		cur = n.parent
	}
}

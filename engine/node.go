package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/lixenwraith/toymaker/vmath"
)

// NodeID addresses a scene node slot; a stale id fails generation checks
// The zero value is never a live node
type NodeID struct {
	index uint32
	gen   uint32
}

// IsZero reports whether id is the zero value
func (id NodeID) IsZero() bool { return id.gen == 0 }

func (id NodeID) String() string { return fmt.Sprintf("node(%d:%d)", id.index, id.gen) }

type nodeState uint8

const (
	nodePending nodeState = iota
	nodeActive
)

// node is an arena slot; children are owned, parent is a back-reference for upward walks
type node struct {
	gen   uint32
	alive bool

	name     string
	parent   NodeID
	children []NodeID

	local vmath.Transform
	world mgl32.Mat4
	dirty bool

	entity   Entity
	viewport *ViewportConfig

	state  nodeState
	doomed bool
}

func (w *World) node(id NodeID) *node {
	if id.gen == 0 || int(id.index) >= len(w.nodes) {
		return nil
	}
	n := &w.nodes[id.index]
	if !n.alive || n.gen != id.gen {
		return nil
	}
	return n
}

// Valid reports whether id names a live node
func (w *World) Valid(id NodeID) bool { return w.node(id) != nil }

func (w *World) allocNode(name string, parent NodeID) NodeID {
	var idx uint32
	if k := len(w.free); k > 0 {
		idx = w.free[k-1]
		w.free = w.free[:k-1]
	} else {
		w.nodes = append(w.nodes, node{})
		idx = uint32(len(w.nodes) - 1)
	}
	n := &w.nodes[idx]
	gen := n.gen + 1
	*n = node{
		gen:    gen,
		alive:  true,
		name:   name,
		parent: parent,
		local:  vmath.Identity(),
		world:  mgl32.Ident4(),
		dirty:  true,
	}
	w.Status.SetGauge(MetricNodes, float64(len(w.nodes)-len(w.free)))
	return NodeID{index: idx, gen: gen}
}

func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, "/@")
}

// CreateNode adds a named child under parent; it activates in the next activation pass
func (w *World) CreateNode(parent NodeID, name string) (NodeID, error) {
	p := w.node(parent)
	if p == nil {
		return NodeID{}, fmt.Errorf("create %q: %w", name, ErrUnknownNode)
	}
	if !validName(name) {
		return NodeID{}, fmt.Errorf("create %q: %w", name, ErrInvalidNodeName)
	}
	if _, ok := w.Child(parent, name); ok {
		return NodeID{}, &DuplicateNameError{Parent: w.Path(parent), Name: name}
	}
	id := w.allocNode(name, parent)
	// re-fetch: allocNode may grow the arena
	p = w.node(parent)
	p.children = append(p.children, id)
	return id, nil
}

// DestroyNode immediately destroys a node, its descendants and their entities
// For use outside Step; inside a frame use QueueDestroy
func (w *World) DestroyNode(id NodeID) error {
	if id == w.root {
		return ErrRootNode
	}
	n := w.node(id)
	if n == nil {
		return fmt.Errorf("destroy %v: %w", id, ErrUnknownNode)
	}
	if p := w.node(n.parent); p != nil {
		if i := slices.Index(p.children, id); i >= 0 {
			p.children = slices.Delete(p.children, i, i+1)
		}
	}
	w.destroySubtree(id)
	return nil
}

func (w *World) destroySubtree(id NodeID) {
	n := w.node(id)
	if n == nil {
		return
	}
	for _, c := range slices.Clone(n.children) {
		w.destroySubtree(c)
	}
	n = w.node(id)
	if e := n.entity; e != 0 {
		w.DestroyEntity(e)
	}
	for _, fn := range w.onNodeDestroyed {
		fn(id)
	}
	n = w.node(id)
	gen := n.gen
	*n = node{gen: gen}
	w.free = append(w.free, id.index)
	w.Status.SetGauge(MetricNodes, float64(len(w.nodes)-len(w.free)))
}

// QueueDestroy marks a node for removal in this frame's teardown pass
func (w *World) QueueDestroy(id NodeID) error {
	if id == w.root {
		return ErrRootNode
	}
	n := w.node(id)
	if n == nil {
		return fmt.Errorf("queue destroy %v: %w", id, ErrUnknownNode)
	}
	n.doomed = true
	return nil
}

// Doomed reports whether a node is queued for removal
func (w *World) Doomed(id NodeID) bool {
	n := w.node(id)
	return n != nil && n.doomed
}

// Active reports whether a node went through activation
func (w *World) Active(id NodeID) bool {
	n := w.node(id)
	return n != nil && n.state == nodeActive
}

// Name returns a node's name
func (w *World) Name(id NodeID) string {
	if n := w.node(id); n != nil {
		return n.name
	}
	return ""
}

// Parent returns a node's parent; the root has none
func (w *World) Parent(id NodeID) (NodeID, bool) {
	n := w.node(id)
	if n == nil || n.parent.IsZero() {
		return NodeID{}, false
	}
	return n.parent, true
}

// Children returns a node's children in order
func (w *World) Children(id NodeID) []NodeID {
	if n := w.node(id); n != nil {
		return slices.Clone(n.children)
	}
	return nil
}

// Child finds a direct child by name
func (w *World) Child(id NodeID, name string) (NodeID, bool) {
	n := w.node(id)
	if n == nil {
		return NodeID{}, false
	}
	for _, c := range n.children {
		if w.nodes[c.index].name == name {
			return c, true
		}
	}
	return NodeID{}, false
}

// Path returns the "/"-separated name path of a node; the root is "/"
func (w *World) Path(id NodeID) string {
	var parts []string
	for n := w.node(id); n != nil && !n.parent.IsZero(); n = w.node(n.parent) {
		parts = append(parts, n.name)
	}
	if w.node(id) == nil {
		return ""
	}
	slices.Reverse(parts)
	return "/" + strings.Join(parts, "/")
}

// Lookup resolves an absolute name path
func (w *World) Lookup(path string) (NodeID, bool) {
	if !strings.HasPrefix(path, "/") {
		return NodeID{}, false
	}
	id := w.root
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		next, ok := w.Child(id, part)
		if !ok {
			return NodeID{}, false
		}
		id = next
	}
	return id, true
}

// Reparent moves a subtree under newParent, keeping local transforms
func (w *World) Reparent(id, newParent NodeID) error {
	if id == w.root {
		return ErrRootNode
	}
	n, np := w.node(id), w.node(newParent)
	if n == nil || np == nil {
		return fmt.Errorf("reparent: %w", ErrUnknownNode)
	}
	for cur := newParent; !cur.IsZero(); cur = w.nodes[cur.index].parent {
		if cur == id {
			return ErrCycle
		}
	}
	if _, taken := w.Child(newParent, n.name); taken && n.parent != newParent {
		return &DuplicateNameError{Parent: w.Path(newParent), Name: n.name}
	}
	if p := w.node(n.parent); p != nil {
		if i := slices.Index(p.children, id); i >= 0 {
			p.children = slices.Delete(p.children, i, i+1)
		}
	}
	n.parent = newParent
	np.children = append(np.children, id)
	w.markDirty(id)
	return nil
}

// SetLocalTransform replaces a node's transform relative to its parent
func (w *World) SetLocalTransform(id NodeID, t vmath.Transform) error {
	n := w.node(id)
	if n == nil {
		return fmt.Errorf("set transform %v: %w", id, ErrUnknownNode)
	}
	n.local = t
	w.markDirty(id)
	return nil
}

// LocalTransform returns a node's transform relative to its parent
func (w *World) LocalTransform(id NodeID) vmath.Transform {
	if n := w.node(id); n != nil {
		return n.local
	}
	return vmath.Identity()
}

// markDirty flags a subtree; a dirty node implies dirty descendants
func (w *World) markDirty(id NodeID) {
	n := w.node(id)
	if n == nil || n.dirty {
		return
	}
	n.dirty = true
	for _, c := range n.children {
		w.markDirty(c)
	}
}

// WorldTransform returns parent world composed with local, recomputing dirty ancestors
func (w *World) WorldTransform(id NodeID) mgl32.Mat4 {
	n := w.node(id)
	if n == nil {
		return mgl32.Ident4()
	}
	if !n.dirty {
		return n.world
	}
	parent := mgl32.Ident4()
	if !n.parent.IsZero() {
		parent = w.WorldTransform(n.parent)
	}
	n = w.node(id)
	n.world = vmath.Compose(parent, n.local)
	n.dirty = false
	return n.world
}

// AttachEntity places e on a node, moving it from any previous node
func (w *World) AttachEntity(id NodeID, e Entity) error {
	n := w.node(id)
	if n == nil {
		return fmt.Errorf("attach entity %d: %w", e, ErrUnknownNode)
	}
	rec, ok := w.entities[e]
	if !ok {
		return fmt.Errorf("attach entity %d: %w", e, ErrUnknownEntity)
	}
	if n.entity != 0 && n.entity != e {
		return fmt.Errorf("attach entity %d to %s: %w", e, w.Path(id), ErrNodeOccupied)
	}
	if old := w.node(rec.node); old != nil && old != n {
		old.entity = 0
		if old.state == nodeActive && n.state != nodeActive {
			w.deactivateEntity(rec)
		}
	}
	n.entity = e
	rec.node = id
	return nil
}

// NodeEntity returns the entity placed on a node
func (w *World) NodeEntity(id NodeID) (Entity, bool) {
	n := w.node(id)
	if n == nil || n.entity == 0 {
		return 0, false
	}
	return n.entity, true
}

// CloneNode copies a subtree under parent with the given name
// Entities are cloned with CloneEntity, so connections are not carried over
func (w *World) CloneNode(src, parent NodeID, name string) (NodeID, error) {
	s := w.node(src)
	if s == nil {
		return NodeID{}, fmt.Errorf("clone %v: %w", src, ErrUnknownNode)
	}
	if w.node(parent) == nil {
		return NodeID{}, fmt.Errorf("clone %s: %w", w.Path(src), ErrUnknownNode)
	}
	// copying a subtree into itself would never terminate
	for cur := parent; !cur.IsZero(); cur = w.nodes[cur.index].parent {
		if cur == src {
			return NodeID{}, fmt.Errorf("clone %s under %s: %w", w.Path(src), w.Path(parent), ErrCycle)
		}
	}
	if name == "" {
		name = s.name
	}
	local, vp, ent, children := s.local, s.viewport, s.entity, slices.Clone(s.children)
	id, err := w.CreateNode(parent, name)
	if err != nil {
		return NodeID{}, err
	}
	if vp != nil {
		cfg := *vp
		w.node(id).viewport = &cfg
	}
	w.node(id).local = local

	if ent != 0 {
		clone, err := w.CloneEntity(ent)
		if err != nil {
			_ = w.DestroyNode(id)
			return NodeID{}, err
		}
		if err := w.AttachEntity(id, clone); err != nil {
			w.DestroyEntity(clone)
			_ = w.DestroyNode(id)
			return NodeID{}, err
		}
	}
	for _, c := range children {
		if _, err := w.CloneNode(c, id, ""); err != nil {
			_ = w.DestroyNode(id)
			return NodeID{}, err
		}
	}
	w.Log.Debug("node cloned", zap.String("from", w.Path(src)), zap.String("to", w.Path(id)))
	return id, nil
}

// Walk visits a subtree in pre-order; fn returns false to skip a node's children
func (w *World) Walk(id NodeID, fn func(NodeID) bool) {
	n := w.node(id)
	if n == nil || !fn(id) {
		return
	}
	for _, c := range w.Children(id) {
		w.Walk(c, fn)
	}
}

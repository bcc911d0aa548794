package engine

import (
	"fmt"
	"slices"

	"go.uber.org/zap"
)

type entityRecord struct {
	id      Entity
	node    NodeID
	aspects []Aspect
	active  bool
}

// CreateEntity issues a new entity not yet placed in the scene
func (w *World) CreateEntity() Entity {
	e := w.nextEntity
	w.nextEntity++
	w.entities[e] = &entityRecord{id: e}
	w.entityOrder = append(w.entityOrder, e)
	w.Status.SetGauge(MetricEntities, float64(len(w.entities)))
	return e
}

// Alive reports whether e exists
func (w *World) Alive(e Entity) bool {
	_, ok := w.entities[e]
	return ok
}

// EntityNode returns the node holding e
func (w *World) EntityNode(e Entity) (NodeID, bool) {
	rec, ok := w.entities[e]
	if !ok || !w.Valid(rec.node) {
		return NodeID{}, false
	}
	return rec.node, true
}

// EntityActive reports whether e sits on an activated node
func (w *World) EntityActive(e Entity) bool {
	rec, ok := w.entities[e]
	return ok && rec.active
}

// AttachAspect attaches a to e
// The aspect's capabilities are probed once here; OnAttached runs, then OnActivated if e is live
func (w *World) AttachAspect(e Entity, a Aspect) error {
	rec, ok := w.entities[e]
	if !ok {
		return fmt.Errorf("attach %s to %d: %w", a.TypeName(), e, ErrUnknownEntity)
	}
	base := a.aspectBase()
	if base.world != nil {
		return fmt.Errorf("attach %s to %d: %w", a.TypeName(), e, ErrAspectAttached)
	}
	if isUnique(a) {
		for _, other := range rec.aspects {
			if other.TypeName() == a.TypeName() {
				return &DuplicateAspectError{Entity: e, Kind: a.TypeName()}
			}
		}
	}

	base.entity = e
	base.world = w
	base.caps = Probe(a)
	rec.aspects = append(rec.aspects, a)

	if h, ok := a.(Attachable); ok {
		if err := h.OnAttached(); err != nil {
			rec.aspects = rec.aspects[:len(rec.aspects)-1]
			if !w.HasAspect(e, a.TypeName()) {
				w.Bus.RemoveAspect(uint64(e), a.TypeName())
			}
			*base = AspectBase{}
			return fmt.Errorf("attach %s to %d: %w", a.TypeName(), e, err)
		}
	}
	if rec.active && base.caps.Has(CapActivate) {
		w.safe(a.TypeName()+".OnActivated", a.(Activatable).OnActivated)
	}
	return nil
}

// DetachAspect removes every aspect of kind from e
// Their signals, observers and connections leave the bus
func (w *World) DetachAspect(e Entity, kind string) error {
	rec, ok := w.entities[e]
	if !ok {
		return fmt.Errorf("detach %s from %d: %w", kind, e, ErrUnknownEntity)
	}
	found := false
	for i := len(rec.aspects) - 1; i >= 0; i-- {
		a := rec.aspects[i]
		if a.TypeName() != kind {
			continue
		}
		found = true
		w.detach(rec, a)
		rec.aspects = slices.Delete(rec.aspects, i, i+1)
	}
	if !found {
		return fmt.Errorf("detach %s from %d: %w", kind, e, ErrAspectNotFound)
	}
	w.Bus.RemoveAspect(uint64(e), kind)
	return nil
}

func (w *World) detach(rec *entityRecord, a Aspect) {
	base := a.aspectBase()
	if rec.active && base.caps.Has(CapDeactivate) {
		w.safe(a.TypeName()+".OnDeactivated", a.(Deactivatable).OnDeactivated)
	}
	if h, ok := a.(Detachable); ok {
		w.safe(a.TypeName()+".OnDetached", h.OnDetached)
	}
	for _, fn := range w.onAspectDetached {
		fn(a)
	}
	*base = AspectBase{}
}

// DestroyEntity detaches all aspects in reverse attachment order and removes e from its node
func (w *World) DestroyEntity(e Entity) {
	rec, ok := w.entities[e]
	if !ok {
		return
	}
	for i := len(rec.aspects) - 1; i >= 0; i-- {
		w.detach(rec, rec.aspects[i])
	}
	rec.aspects = nil
	w.Bus.RemoveOwner(uint64(e))

	if n := w.node(rec.node); n != nil && n.entity == e {
		n.entity = 0
	}
	delete(w.entities, e)
	if i := slices.Index(w.entityOrder, e); i >= 0 {
		w.entityOrder = slices.Delete(w.entityOrder, i, i+1)
	}
	w.Status.SetGauge(MetricEntities, float64(len(w.entities)))
	w.Log.Debug("entity destroyed", zap.Uint64("entity", uint64(e)))
}

// Aspect returns the first aspect of kind on e
func (w *World) Aspect(e Entity, kind string) (Aspect, bool) {
	rec, ok := w.entities[e]
	if !ok {
		return nil, false
	}
	for _, a := range rec.aspects {
		if a.TypeName() == kind {
			return a, true
		}
	}
	return nil, false
}

// HasAspect reports whether e carries kind
func (w *World) HasAspect(e Entity, kind string) bool {
	_, ok := w.Aspect(e, kind)
	return ok
}

// Aspects returns e's aspects in attachment order
func (w *World) Aspects(e Entity) []Aspect {
	rec, ok := w.entities[e]
	if !ok {
		return nil
	}
	return slices.Clone(rec.aspects)
}

// AspectOf returns e's first aspect of type T
func AspectOf[T Aspect](w *World, e Entity) (T, bool) {
	var zero T
	rec, ok := w.entities[e]
	if !ok {
		return zero, false
	}
	for _, a := range rec.aspects {
		if t, ok := a.(T); ok {
			return t, true
		}
	}
	return zero, false
}

// ForEachAspectWithCapability visits aspects having cap in entity creation then attachment order
// fn returns false to stop
func (w *World) ForEachAspectWithCapability(c Capability, fn func(Aspect) bool) {
	for _, e := range slices.Clone(w.entityOrder) {
		rec, ok := w.entities[e]
		if !ok {
			continue
		}
		for _, a := range slices.Clone(rec.aspects) {
			if a.aspectBase().caps.Has(c) && !fn(a) {
				return
			}
		}
	}
}

// CloneEntity creates a new unplaced entity with clones of e's aspects
// Signal connections are not copied; the instancer re-establishes them
func (w *World) CloneEntity(e Entity) (Entity, error) {
	rec, ok := w.entities[e]
	if !ok {
		return 0, fmt.Errorf("clone %d: %w", e, ErrUnknownEntity)
	}
	clone := w.CreateEntity()
	for _, a := range rec.aspects {
		if err := w.AttachAspect(clone, a.Clone()); err != nil {
			w.DestroyEntity(clone)
			return 0, fmt.Errorf("clone %d: %w", e, err)
		}
	}
	return clone, nil
}

// activateEntity fires OnActivated on each aspect once
func (w *World) activateEntity(rec *entityRecord) {
	if rec.active {
		return
	}
	rec.active = true
	w.Status.Inc(MetricActivations)
	for _, a := range slices.Clone(rec.aspects) {
		if a.aspectBase().caps.Has(CapActivate) {
			w.safe(a.TypeName()+".OnActivated", a.(Activatable).OnActivated)
		}
	}
}

func (w *World) deactivateEntity(rec *entityRecord) {
	if !rec.active {
		return
	}
	for i := len(rec.aspects) - 1; i >= 0; i-- {
		a := rec.aspects[i]
		if a.aspectBase().caps.Has(CapDeactivate) {
			w.safe(a.TypeName()+".OnDeactivated", a.(Deactivatable).OnDeactivated)
		}
	}
	rec.active = false
}

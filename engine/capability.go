package engine

import (
	"fmt"
	"strings"
	"sync"
)

// Capability is a bitmask of optional behaviors an aspect implements
type Capability uint32

const (
	CapActivate Capability = 1 << iota
	CapDeactivate
	CapUpdate
	CapLeftClick
	CapHover
	CapRender
	CapSimulate
)

type capabilityProbe struct {
	cap  Capability
	name string
	test func(Aspect) bool
}

var (
	probesMu sync.RWMutex
	probes   = []capabilityProbe{
		{CapActivate, "activate", func(a Aspect) bool { _, ok := a.(Activatable); return ok }},
		{CapDeactivate, "deactivate", func(a Aspect) bool { _, ok := a.(Deactivatable); return ok }},
		{CapUpdate, "update", func(a Aspect) bool { _, ok := a.(Updatable); return ok }},
		{CapLeftClick, "left-click", func(a Aspect) bool { _, ok := a.(LeftClickable); return ok }},
		{CapHover, "hover", func(a Aspect) bool { _, ok := a.(Hoverable); return ok }},
		{CapRender, "render", func(a Aspect) bool { _, ok := a.(Renderable); return ok }},
		{CapSimulate, "simulate", func(a Aspect) bool { _, ok := a.(SimulationUpdatable); return ok }},
	}
	uniqueKinds = map[string]bool{}
)

// RegisterCapability adds a probe for a capability interface defined outside engine
// Returns the allocated bit; call from package init
func RegisterCapability(name string, test func(Aspect) bool) Capability {
	probesMu.Lock()
	defer probesMu.Unlock()
	if len(probes) >= 32 {
		panic("engine: capability table full")
	}
	c := Capability(1) << len(probes)
	probes = append(probes, capabilityProbe{cap: c, name: name, test: test})
	return c
}

// RegisterUnique declares kind as at most one per entity
func RegisterUnique(kind string) {
	probesMu.Lock()
	uniqueKinds[kind] = true
	probesMu.Unlock()
}

// Probe computes the capability set of a
func Probe(a Aspect) Capability {
	probesMu.RLock()
	defer probesMu.RUnlock()
	var c Capability
	for _, p := range probes {
		if p.test(a) {
			c |= p.cap
		}
	}
	return c
}

// Has reports whether all bits of o are set
func (c Capability) Has(o Capability) bool { return c&o == o }

func (c Capability) String() string {
	probesMu.RLock()
	defer probesMu.RUnlock()
	var names []string
	for _, p := range probes {
		if c&p.cap != 0 {
			names = append(names, p.name)
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("none(%#x)", uint32(c))
	}
	return strings.Join(names, "|")
}

func isUnique(a Aspect) bool {
	if u, ok := a.(Uniquer); ok {
		return u.Unique()
	}
	probesMu.RLock()
	defer probesMu.RUnlock()
	return uniqueKinds[a.TypeName()]
}

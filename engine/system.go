package engine

import "time"

// Stage places a system in the frame
type Stage uint8

const (
	// StageInput runs after activation, before interaction
	StageInput Stage = iota
	// StageInteraction runs before the update pass
	StageInteraction
	// StageRender runs after teardown
	StageRender
)

func (s Stage) String() string {
	switch s {
	case StageInput:
		return "input"
	case StageInteraction:
		return "interaction"
	case StageRender:
		return "render"
	}
	return "unknown"
}

// System is a world-level subsystem stepped once per frame
type System interface {
	Stage() Stage
	Priority() int // lower runs first within a stage
	Update(w *World, dt time.Duration)
}

type systemEntry struct {
	sys   System
	index int
}

// AddSystem registers a system keeping stage, priority, registration order
func (w *World) AddSystem(sys System) {
	entry := systemEntry{sys: sys, index: w.sysCount}
	w.sysCount++

	pos := len(w.systems)
	for i, e := range w.systems {
		if systemLess(entry, e) {
			pos = i
			break
		}
	}
	w.systems = append(w.systems, systemEntry{})
	copy(w.systems[pos+1:], w.systems[pos:])
	w.systems[pos] = entry
}

func systemLess(a, b systemEntry) bool {
	if a.sys.Stage() != b.sys.Stage() {
		return a.sys.Stage() < b.sys.Stage()
	}
	if a.sys.Priority() != b.sys.Priority() {
		return a.sys.Priority() < b.sys.Priority()
	}
	return a.index < b.index
}

// Systems returns registered systems in run order
func (w *World) Systems() []System {
	out := make([]System, len(w.systems))
	for i, e := range w.systems {
		out[i] = e.sys
	}
	return out
}

func (w *World) runStage(stage Stage, dt time.Duration) {
	for _, e := range w.systems {
		if e.sys.Stage() != stage {
			continue
		}
		sys := e.sys
		w.safe("system", func() { sys.Update(w, dt) })
	}
}

// Package aspects holds the built-in behaviors scenes attach to their nodes
//
// Every aspect here has a scene constructor; Register installs them all:
//   - MeshRenderer: draws a mesh with a material
//   - UIButton: a pickable button with hover/press states and value signals
//   - BoardLocations: maps clicks on the board volume to grid cells
//   - Revolve: spins its node at a constant rate
//   - SoundCue: plays a sound resource on activation or when signalled
//   - LuaScript: scripted behavior driven by frame updates, clicks and signals
package aspects

import (
	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/scene"
)

// Register installs the constructors of every built-in aspect
func Register(reg *scene.Registry) {
	reg.Register(TypeMeshRenderer, newMeshRenderer)
	reg.Register(TypeButton, newButton)
	reg.Register(TypeBoardLocations, newBoardLocations)
	reg.Register(TypeRevolve, newRevolve)
	reg.Register(TypeSoundCue, newSoundCue)
	reg.Register(TypeLuaScript, newLuaScript)
}

// node returns the aspect's node when it is placed
func node(b *engine.AspectBase) (engine.NodeID, bool) {
	if b.World() == nil {
		return engine.NodeID{}, false
	}
	return b.Node()
}

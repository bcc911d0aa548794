package render

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/resource"
)

// Batch is a run of instances sharing mesh and material
type Batch struct {
	Queue     Queue
	Mesh      *resource.Mesh
	Material  *resource.Material
	Instances []mgl32.Mat4 // model-to-world
	Depths    []float32    // camera depth of each instance center
}

// Pass is one viewport's draw list
type Pass struct {
	Viewport engine.NodeID
	Path     string
	Config   engine.ViewportConfig
	View     mgl32.Mat4 // world-to-camera
	Batches  []Batch
}

// Backend consumes draw lists
// Passes arrive nested viewports first, each pass's batches in final draw order
type Backend interface {
	BeginFrame() error
	DrawPass(p *Pass) error
	EndFrame() error
}

// Recorder is a Backend that keeps the last frame's passes
type Recorder struct {
	Passes []Pass
	Frames int
}

func (r *Recorder) BeginFrame() error {
	r.Passes = r.Passes[:0]
	return nil
}

func (r *Recorder) DrawPass(p *Pass) error {
	r.Passes = append(r.Passes, *p)
	return nil
}

func (r *Recorder) EndFrame() error {
	r.Frames++
	return nil
}

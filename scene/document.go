// Package scene loads YAML scene descriptors into a world
//
// Loading is all-or-nothing: references are validated and resources preloaded
// before any node is created, and a failure while building rolls the world back
package scene

import (
	"bytes"
	"errors"
	"io"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/resource"
	"github.com/lixenwraith/toymaker/vmath"
)

// Document is a parsed scene file
type Document struct {
	Name        string                `yaml:"name"`
	Resources   []resource.Descriptor `yaml:"resources"`
	Nodes       []NodeSpec            `yaml:"nodes"`
	Connections []ConnectionSpec      `yaml:"connections"`
}

// NodeSpec describes one node; Parent is an absolute path, empty for the root
type NodeSpec struct {
	Name      string         `yaml:"name"`
	Parent    string         `yaml:"parent"`
	Transform *TransformSpec `yaml:"transform"`
	Viewport  *ViewportSpec  `yaml:"viewport"`
	CloneOf   string         `yaml:"clone_of"`
	Aspects   []AspectSpec   `yaml:"aspects"`
}

// TransformSpec is a local transform with Euler rotation in degrees
type TransformSpec struct {
	Position    [3]float32  `yaml:"position"`
	RotationDeg [3]float32  `yaml:"rotation_deg"`
	Scale       *[3]float32 `yaml:"scale"`
}

// ViewportSpec configures a viewport node
type ViewportSpec struct {
	Projection string         `yaml:"projection"` // perspective | orthographic
	FovDeg     float32        `yaml:"fov_deg"`
	Aspect     float32        `yaml:"aspect"`
	Near       float32        `yaml:"near"`
	Far        float32        `yaml:"far"`
	OrthoSize  [2]float32     `yaml:"ortho_size"`
	Target     *[4]float32    `yaml:"target"` // x, y, w, h normalized
	Eye        *TransformSpec `yaml:"eye"`
	Enabled    *bool          `yaml:"enabled"`
}

// AspectSpec names a registered aspect constructor and its parameters
type AspectSpec struct {
	Type   string         `yaml:"type"`
	Params map[string]any `yaml:"params"`
}

// ConnectionSpec wires "/node@Aspect.Signal" to "/node@Aspect.Observer"
type ConnectionSpec struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Parse decodes a scene document; unknown fields are rejected
func Parse(data []byte) (*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, eris.Wrap(err, "parse scene")
	}
	return &doc, nil
}

// Transform converts the descriptor to a vmath transform
func (t *TransformSpec) Transform() vmath.Transform {
	if t == nil {
		return vmath.Identity()
	}
	tr := vmath.Identity()
	tr.Position = mgl32.Vec3(t.Position)
	tr.Orientation = vmath.EulerDeg(t.RotationDeg[0], t.RotationDeg[1], t.RotationDeg[2])
	if t.Scale != nil {
		tr.Scale = mgl32.Vec3(*t.Scale)
	}
	return tr
}

// Config converts the descriptor to a viewport config over engine defaults
func (v *ViewportSpec) Config() (engine.ViewportConfig, error) {
	cfg := engine.DefaultViewport()
	switch v.Projection {
	case "", "perspective":
		cfg.Camera.Projection = vmath.Perspective
	case "orthographic", "ortho":
		cfg.Camera.Projection = vmath.Orthographic
	default:
		return cfg, eris.Errorf("unknown projection %q", v.Projection)
	}
	if v.FovDeg > 0 {
		cfg.Camera.FovDeg = v.FovDeg
	}
	if v.Aspect > 0 {
		cfg.Camera.Aspect = v.Aspect
	}
	if v.Near > 0 {
		cfg.Camera.Near = v.Near
	}
	if v.Far > 0 {
		cfg.Camera.Far = v.Far
	}
	if v.OrthoSize != [2]float32{} {
		cfg.Camera.OrthoSize = mgl32.Vec2(v.OrthoSize)
	}
	if v.Target != nil {
		cfg.Target = engine.Rect{X: v.Target[0], Y: v.Target[1], W: v.Target[2], H: v.Target[3]}
	}
	if v.Eye != nil {
		cfg.Eye = v.Eye.Transform()
	}
	if v.Enabled != nil {
		cfg.Enabled = *v.Enabled
	}
	if cfg.Camera.Far <= cfg.Camera.Near {
		return cfg, eris.Errorf("viewport far %v must exceed near %v", cfg.Camera.Far, cfg.Camera.Near)
	}
	return cfg, nil
}

package resource

import (
	"context"
	"fmt"
)

// Blend selects the render queue a material draws in
type Blend uint8

const (
	BlendOpaque Blend = iota
	BlendTransparent
	BlendOverlay
)

var blendNames = map[string]Blend{
	"opaque":      BlendOpaque,
	"transparent": BlendTransparent,
	"overlay":     BlendOverlay,
}

func (b Blend) String() string {
	for k, v := range blendNames {
		if v == b {
			return k
		}
	}
	return fmt.Sprintf("blend(%d)", b)
}

// Material describes how instances of a mesh are shaded
// Glyph is the terminal backend's stand-in for a texture
type Material struct {
	Name     string
	Color    [4]uint8 // RGBA
	Glyph    rune
	Blend    Blend
	Priority int // lower draws first within a queue
	Texture  string
}

// builtinMaterials is the palette served for names with no description
var builtinMaterials = map[string]Material{
	"default":     {Color: [4]uint8{200, 200, 200, 255}, Glyph: '#'},
	"wood":        {Color: [4]uint8{150, 100, 50, 255}, Glyph: '='},
	"lapis":       {Color: [4]uint8{40, 70, 160, 255}, Glyph: '%'},
	"ivory":       {Color: [4]uint8{240, 235, 210, 255}, Glyph: 'o'},
	"ebony":       {Color: [4]uint8{40, 40, 40, 255}, Glyph: 'x'},
	"highlight":   {Color: [4]uint8{255, 220, 0, 128}, Glyph: '+', Blend: BlendTransparent},
	"ui":          {Color: [4]uint8{255, 255, 255, 255}, Glyph: '@', Blend: BlendOverlay},
	"placeholder": {Color: [4]uint8{255, 0, 255, 255}, Glyph: '?'},
}

// PlaceholderMaterial is substituted by the renderer for materials that fail to resolve
func PlaceholderMaterial() *Material {
	m := builtinMaterials["placeholder"]
	m.Name = "placeholder"
	return &m
}

func builtinMaterial(_ context.Context, d Descriptor) (any, error) {
	m, ok := builtinMaterials[d.Name]
	if !ok {
		return nil, fmt.Errorf("%w: no builtin material %q", ErrNotExist, d.Name)
	}
	m.Name = d.Name
	return &m, nil
}

// paramMaterial reads color, glyph, blend, priority and texture params
func paramMaterial(_ context.Context, d Descriptor) (any, error) {
	m := &Material{Name: d.Name, Color: [4]uint8{255, 255, 255, 255}, Glyph: '#'}
	if c, ok := d.Params["color"].(string); ok {
		rgba, err := parseHexColor(c)
		if err != nil {
			return nil, err
		}
		m.Color = rgba
	}
	if a := paramInt(d.Params, "alpha", -1); a >= 0 {
		m.Color[3] = uint8(min(a, 255))
	}
	if g := []rune(paramString(d.Params, "glyph", "")); len(g) > 0 {
		m.Glyph = g[0]
	}
	if b := paramString(d.Params, "blend", ""); b != "" {
		blend, ok := blendNames[b]
		if !ok {
			return nil, fmt.Errorf("unknown blend %q", b)
		}
		m.Blend = blend
	}
	m.Priority = paramInt(d.Params, "priority", 0)
	m.Texture = paramString(d.Params, "texture", "")
	return m, nil
}

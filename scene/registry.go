package scene

import (
	"fmt"
	"slices"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/lixenwraith/toymaker/engine"
)

// Constructor builds an unattached aspect from scene parameters
type Constructor func(p Params) (engine.Aspect, error)

// Registry maps aspect type names used in scene files to constructors
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register installs a constructor; registering a type twice panics
func (r *Registry) Register(typ string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ctors[typ]; ok {
		panic(fmt.Sprintf("scene: aspect type %q registered twice", typ))
	}
	r.ctors[typ] = c
}

// Has reports whether typ is registered
func (r *Registry) Has(typ string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ctors[typ]
	return ok
}

// Types returns the registered type names, sorted
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ctors))
	for t := range r.ctors {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Build constructs an aspect of typ
func (r *Registry) Build(typ string, params map[string]any) (engine.Aspect, error) {
	r.mu.RLock()
	c, ok := r.ctors[typ]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownAspectError{Type: typ}
	}
	a, err := c(Params(params))
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", typ, err)
	}
	if a.TypeName() != typ {
		return nil, fmt.Errorf("build %s: constructor returned %s", typ, a.TypeName())
	}
	return a, nil
}

// Params are an aspect's scene parameters
// Accessors tolerate the numeric types produced by the YAML decoder
type Params map[string]any

// String returns a string parameter or def
func (p Params) String(key, def string) string {
	if v, ok := p[key].(string); ok && v != "" {
		return v
	}
	return def
}

// Float returns a numeric parameter or def
func (p Params) Float(key string, def float64) float64 {
	if f, ok := toFloat(p[key]); ok {
		return f
	}
	return def
}

// Int returns an integer parameter or def
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// Bool returns a boolean parameter or def
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// Vec3 returns a three element numeric list or def
func (p Params) Vec3(key string, def mgl32.Vec3) (mgl32.Vec3, error) {
	raw, ok := p[key]
	if !ok {
		return def, nil
	}
	list, ok := raw.([]any)
	if !ok || len(list) != 3 {
		return def, fmt.Errorf("param %q: want a list of 3 numbers", key)
	}
	var out mgl32.Vec3
	for i, v := range list {
		f, ok := toFloat(v)
		if !ok {
			return def, fmt.Errorf("param %q[%d]: not a number", key, i)
		}
		out[i] = float32(f)
	}
	return out, nil
}

// Strings returns a list of strings
func (p Params) Strings(key string) []string {
	list, _ := p[key].([]any)
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

package render

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/resource"
	"github.com/lixenwraith/toymaker/status"
	"github.com/lixenwraith/toymaker/vmath"
)

// Metric keys
const (
	MetricFrames       = "render.frames"
	MetricPasses       = "render.passes"
	MetricDrawCalls    = "render.draw_calls"
	MetricInstances    = "render.instances"
	MetricPlaceholders = "render.placeholders"
	MetricBackendErrs  = "render.backend_errors"
)

// DefaultMaterial is used by drawables that name no material
const DefaultMaterial = "default"

// Stats summarizes one rendered frame
type Stats struct {
	Passes    int
	DrawCalls int
	Instances int
}

type item struct {
	queue    Queue
	mesh     *resource.Mesh
	material *resource.Material
	world    mgl32.Mat4
	depth    float32
	priority int
	seq      int
}

// Pipeline gathers renderable aspects per viewport and issues sorted, batched draw lists
type Pipeline struct {
	db      *resource.DB
	backend Backend
	log     *zap.Logger
	stats   *status.Registry

	meshes    map[string]*resource.Mesh
	materials map[string]*resource.Material
	handles   []*resource.Handle
	warned    map[string]bool

	placeholderMesh     *resource.Mesh
	placeholderMaterial *resource.Material

	drawables []engine.Drawable
	items     []item
	last      Stats
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the pipeline logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithStatus sets the metrics registry
func WithStatus(r *status.Registry) Option {
	return func(p *Pipeline) { p.stats = r }
}

// NewPipeline creates a pipeline resolving resources through db; a nil db renders placeholders
func NewPipeline(db *resource.DB, backend Backend, opts ...Option) *Pipeline {
	p := &Pipeline{
		db:                  db,
		backend:             backend,
		log:                 zap.NewNop(),
		meshes:              make(map[string]*resource.Mesh),
		materials:           make(map[string]*resource.Material),
		warned:              make(map[string]bool),
		placeholderMesh:     resource.PlaceholderMesh(),
		placeholderMaterial: resource.PlaceholderMaterial(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.Named("render")
	return p
}

// Stage implements engine.System
func (p *Pipeline) Stage() engine.Stage { return engine.StageRender }

// Priority implements engine.System
func (p *Pipeline) Priority() int { return 0 }

// Update renders the frame; backend failures are logged and counted
func (p *Pipeline) Update(w *engine.World, _ time.Duration) {
	if _, err := p.Render(w); err != nil {
		p.stats.Inc(MetricBackendErrs)
		p.log.Warn("render frame failed", zap.Uint64("frame", w.Frame()), zap.Error(err))
	}
}

// Last returns the stats of the most recent frame
func (p *Pipeline) Last() Stats { return p.last }

// Render draws every enabled viewport, nested viewports first
func (p *Pipeline) Render(w *engine.World) (Stats, error) {
	var st Stats
	if err := p.backend.BeginFrame(); err != nil {
		return st, err
	}
	var errs []error
	for _, vp := range w.Viewports() {
		pass := p.BuildPass(w, vp)
		st.Passes++
		st.DrawCalls += len(pass.Batches)
		for _, b := range pass.Batches {
			st.Instances += len(b.Instances)
		}
		if err := p.backend.DrawPass(&pass); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.backend.EndFrame(); err != nil {
		errs = append(errs, err)
	}

	p.last = st
	p.stats.Inc(MetricFrames)
	p.stats.SetGauge(MetricPasses, float64(st.Passes))
	p.stats.SetGauge(MetricDrawCalls, float64(st.DrawCalls))
	p.stats.SetGauge(MetricInstances, float64(st.Instances))
	return st, errors.Join(errs...)
}

// BuildPass gathers and orders one viewport's draw list
func (p *Pipeline) BuildPass(w *engine.World, vp engine.NodeID) Pass {
	cfg, _ := w.Viewport(vp)
	view := w.CameraWorld(vp).Inv()
	pass := Pass{Viewport: vp, Path: w.Path(vp), Config: *cfg, View: view}

	p.items = p.items[:0]
	w.Walk(vp, func(id engine.NodeID) bool {
		if id != vp && w.IsViewport(id) {
			return false
		}
		if !w.Active(id) || w.Doomed(id) {
			return false
		}
		p.gather(w, id, view)
		return true
	})

	slices.SortStableFunc(p.items, compareItems)
	pass.Batches = batch(p.items)
	return pass
}

func (p *Pipeline) gather(w *engine.World, id engine.NodeID, view mgl32.Mat4) {
	e, ok := w.NodeEntity(id)
	if !ok || !w.EntityActive(e) {
		return
	}
	nodeWorld := w.WorldTransform(id)
	for _, a := range w.Aspects(e) {
		if !a.Capabilities().Has(engine.CapRender) {
			continue
		}
		p.drawables = a.(engine.Renderable).Drawables(p.drawables[:0])
		for _, d := range p.drawables {
			mesh := p.mesh(d.Mesh)
			mat := p.material(cmp.Or(d.Material, DefaultMaterial))
			world := nodeWorld
			if d.Offset != nil {
				world = vmath.Compose(nodeWorld, *d.Offset)
			}
			p.items = append(p.items, item{
				queue:    QueueFor(mat.Blend),
				mesh:     mesh,
				material: mat,
				world:    world,
				depth:    vmath.Depth(view, vmath.TransformPoint(world, mesh.Center())),
				priority: mat.Priority + d.Priority,
				seq:      len(p.items),
			})
		}
	}
}

// compareItems orders by queue then priority; opaque groups by material front to back,
// transparent draws back to front, overlay keeps submission order
func compareItems(a, b item) int {
	if c := cmp.Compare(a.queue, b.queue); c != 0 {
		return c
	}
	if c := cmp.Compare(a.priority, b.priority); c != 0 {
		return c
	}
	switch a.queue {
	case QueueOpaque:
		if c := cmp.Compare(a.material.Name, b.material.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.depth, b.depth)
	case QueueTransparent:
		return cmp.Compare(b.depth, a.depth)
	}
	return cmp.Compare(a.seq, b.seq)
}

// batch merges contiguous items sharing material and mesh layout into instanced draws
func batch(items []item) []Batch {
	var out []Batch
	for _, it := range items {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.Queue == it.queue && last.Material == it.material && last.Mesh == it.mesh {
				last.Instances = append(last.Instances, it.world)
				last.Depths = append(last.Depths, it.depth)
				continue
			}
		}
		out = append(out, Batch{
			Queue:     it.queue,
			Mesh:      it.mesh,
			Material:  it.material,
			Instances: []mgl32.Mat4{it.world},
			Depths:    []float32{it.depth},
		})
	}
	return out
}

func (p *Pipeline) mesh(name string) *resource.Mesh {
	if m, ok := p.meshes[name]; ok {
		return m
	}
	m, err := resolve[*resource.Mesh](p, name, resource.TypeMesh)
	if err != nil {
		p.degrade(name, resource.TypeMesh, err)
		m = p.placeholderMesh
	}
	p.meshes[name] = m
	return m
}

func (p *Pipeline) material(name string) *resource.Material {
	if m, ok := p.materials[name]; ok {
		return m
	}
	m, err := resolve[*resource.Material](p, name, resource.TypeMaterial)
	if err != nil {
		p.degrade(name, resource.TypeMaterial, err)
		m = p.placeholderMaterial
	}
	p.materials[name] = m
	return m
}

var errNoDB = errors.New("no resource database")

func resolve[T any](p *Pipeline, name string, typ resource.Type) (T, error) {
	var zero T
	if p.db == nil {
		return zero, errNoDB
	}
	h, err := p.db.Load(name, typ)
	if err != nil {
		return zero, err
	}
	v, ok := resource.As[T](h)
	if !ok {
		_ = h.Release()
		return zero, &resource.TypeMismatchError{Name: name, Have: h.Type(), Requested: typ}
	}
	p.handles = append(p.handles, h)
	return v, nil
}

// degrade logs an unresolvable resource once per name
func (p *Pipeline) degrade(name string, typ resource.Type, err error) {
	p.stats.Inc(MetricPlaceholders)
	key := string(typ) + ":" + name
	if p.warned[key] {
		return
	}
	p.warned[key] = true
	p.log.Warn("resource unavailable, using placeholder",
		zap.String("name", name),
		zap.String("type", string(typ)),
		zap.Error(err))
}

// Close releases every resource handle the pipeline acquired
func (p *Pipeline) Close() error {
	var errs []error
	for _, h := range p.handles {
		if err := h.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	p.handles = nil
	clear(p.meshes)
	clear(p.materials)
	return errors.Join(errs...)
}

package scene

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/resource"
	"github.com/lixenwraith/toymaker/signal"
)

// Metric keys
const (
	MetricLoaded   = "scene.loaded"
	MetricFailed   = "scene.failed"
	MetricUnloaded = "scene.unloaded"
)

// Loader instantiates scene documents into a world
type Loader struct {
	world *engine.World
	db    *resource.DB
	reg   *Registry
	log   *zap.Logger
}

// NewLoader creates a loader; db may be nil for scenes without resources
func NewLoader(w *engine.World, db *resource.DB, reg *Registry) *Loader {
	return &Loader{world: w, db: db, reg: reg, log: w.Log.Named("scene")}
}

// Scene is a loaded document's footprint in the world
type Scene struct {
	Name        string
	Roots       []engine.NodeID // created nodes whose parent predates the scene
	Resources   []*resource.Handle
	Connections []signal.ConnectionID

	world *engine.World
}

// LoadFile reads and loads a scene document from fsys
func (l *Loader) LoadFile(ctx context.Context, fsys fs.FS, name string) (*Scene, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, eris.Wrapf(err, "read scene %s", name)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(path.Base(name), path.Ext(name))
	}
	return l.Load(ctx, doc)
}

// Load validates doc, preloads its resources, then builds nodes, aspects and connections
// Any error leaves the world and resource database as they were
func (l *Loader) Load(ctx context.Context, doc *Document) (*Scene, error) {
	if err := l.Validate(doc); err != nil {
		l.world.Status.Inc(MetricFailed)
		return nil, eris.Wrapf(err, "scene %q", doc.Name)
	}

	sc := &Scene{Name: doc.Name, world: l.world}
	if len(doc.Resources) > 0 {
		if l.db == nil {
			return nil, eris.Errorf("scene %q declares resources but no database is configured", doc.Name)
		}
		handles, err := l.db.Preload(ctx, doc.Resources)
		if err != nil {
			l.world.Status.Inc(MetricFailed)
			return nil, eris.Wrapf(err, "scene %q: preload", doc.Name)
		}
		sc.Resources = handles
	}

	if err := l.build(doc, sc); err != nil {
		sc.rollback()
		l.world.Status.Inc(MetricFailed)
		return nil, eris.Wrapf(err, "scene %q", doc.Name)
	}

	l.world.Status.Inc(MetricLoaded)
	l.log.Info("scene loaded",
		zap.String("scene", doc.Name),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("resources", len(sc.Resources)),
		zap.Int("connections", len(sc.Connections)))
	return sc, nil
}

// Validate checks every structural reference of doc against itself and the world
// All problems are reported together
func (l *Loader) Validate(doc *Document) error {
	var errs []error
	known := make(map[string]bool)
	exists := func(p string) bool {
		if known[p] {
			return true
		}
		_, ok := l.world.Lookup(p)
		return ok
	}

	for i, n := range doc.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)
		if n.Name == "" || strings.ContainsAny(n.Name, "/@") {
			errs = append(errs, fmt.Errorf("%s: %w %q", field, engine.ErrInvalidNodeName, n.Name))
			continue
		}
		parent := parentPath(n.Parent)
		if !exists(parent) {
			errs = append(errs, &InvalidNodeReferenceError{Field: field + ".parent", Path: parent})
			continue
		}
		p := joinPath(parent, n.Name)
		if exists(p) {
			errs = append(errs, fmt.Errorf("%s: %w", field, &engine.DuplicateNameError{Parent: parent, Name: n.Name}))
			continue
		}
		if n.CloneOf != "" {
			switch {
			case !exists(n.CloneOf):
				errs = append(errs, &InvalidNodeReferenceError{Field: field + ".clone_of", Path: n.CloneOf})
			case within(p, n.CloneOf):
				errs = append(errs, &InvalidNodeReferenceError{Field: field + ".clone_of", Path: n.CloneOf, Err: engine.ErrCycle})
			}
		}
		if n.Viewport != nil {
			if _, err := n.Viewport.Config(); err != nil {
				errs = append(errs, fmt.Errorf("%s.viewport: %w", field, err))
			}
		}
		for j, a := range n.Aspects {
			if !l.reg.Has(a.Type) {
				errs = append(errs, fmt.Errorf("%s.aspects[%d]: %w", field, j, &UnknownAspectError{Type: a.Type}))
			}
		}
		known[p] = true
	}

	for i, c := range doc.Connections {
		for _, end := range []struct{ field, raw string }{
			{fmt.Sprintf("connections[%d].from", i), c.From},
			{fmt.Sprintf("connections[%d].to", i), c.To},
		} {
			sp, err := signal.ParsePath(end.raw)
			if err != nil {
				errs = append(errs, &InvalidNodeReferenceError{Field: end.field, Path: end.raw, Err: err})
				continue
			}
			if !exists(sp.Node) {
				errs = append(errs, &InvalidNodeReferenceError{Field: end.field, Path: sp.Node})
			}
		}
	}
	return errors.Join(errs...)
}

func (l *Loader) build(doc *Document, sc *Scene) error {
	w := l.world
	mine := make(map[engine.NodeID]bool)

	for i, n := range doc.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)
		parent, _ := w.Lookup(parentPath(n.Parent))

		var id engine.NodeID
		var err error
		if n.CloneOf != "" {
			src, _ := w.Lookup(n.CloneOf)
			id, err = w.CloneNode(src, parent, n.Name)
		} else {
			id, err = w.CreateNode(parent, n.Name)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
		mine[id] = true
		if !mine[parent] {
			sc.Roots = append(sc.Roots, id)
		}

		if n.Transform != nil {
			if err := w.SetLocalTransform(id, n.Transform.Transform()); err != nil {
				return fmt.Errorf("%s.transform: %w", field, err)
			}
		}
		if n.Viewport != nil {
			cfg, _ := n.Viewport.Config()
			if err := w.SetViewport(id, cfg); err != nil {
				return fmt.Errorf("%s.viewport: %w", field, err)
			}
		}
		if err := l.attachAspects(id, n.Aspects, field); err != nil {
			return err
		}
	}

	for i, c := range doc.Connections {
		cid, err := l.connect(c)
		if err != nil {
			return fmt.Errorf("connections[%d]: %w", i, err)
		}
		sc.Connections = append(sc.Connections, cid)
	}
	return nil
}

func (l *Loader) attachAspects(id engine.NodeID, specs []AspectSpec, field string) error {
	if len(specs) == 0 {
		return nil
	}
	w := l.world
	e, ok := w.NodeEntity(id)
	if !ok {
		e = w.CreateEntity()
		if err := w.AttachEntity(id, e); err != nil {
			w.DestroyEntity(e)
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	for j, spec := range specs {
		a, err := l.reg.Build(spec.Type, spec.Params)
		if err != nil {
			return fmt.Errorf("%s.aspects[%d]: %w", field, j, err)
		}
		if err := w.AttachAspect(e, a); err != nil {
			return fmt.Errorf("%s.aspects[%d]: %w", field, j, err)
		}
	}
	return nil
}

func (l *Loader) connect(c ConnectionSpec) (signal.ConnectionID, error) {
	from, err := l.endpoint(c.From)
	if err != nil {
		return signal.ConnectionID{}, err
	}
	to, err := l.endpoint(c.To)
	if err != nil {
		return signal.ConnectionID{}, err
	}
	id, err := l.world.Bus.Connect(from, to)
	if err != nil {
		var mismatch *signal.PayloadMismatchError
		if errors.As(err, &mismatch) {
			return id, err
		}
		return id, &InvalidNodeReferenceError{Field: "signal", Path: c.From + " -> " + c.To, Err: err}
	}
	return id, nil
}

func (l *Loader) endpoint(raw string) (signal.Key, error) {
	sp, err := signal.ParsePath(raw)
	if err != nil {
		return signal.Key{}, &InvalidNodeReferenceError{Field: "signal", Path: raw, Err: err}
	}
	id, ok := l.world.Lookup(sp.Node)
	if !ok {
		return signal.Key{}, &InvalidNodeReferenceError{Field: "signal", Path: sp.Node}
	}
	e, ok := l.world.NodeEntity(id)
	if !ok {
		return signal.Key{}, &InvalidNodeReferenceError{Field: "signal", Path: raw, Err: errors.New("node holds no entity")}
	}
	return signal.Key{Owner: uint64(e), Aspect: sp.Aspect, Name: sp.Name}, nil
}

// rollback undoes a partial build and releases preloaded resources
func (s *Scene) rollback() {
	for _, id := range s.Connections {
		s.world.Bus.Disconnect(id)
	}
	for i := len(s.Roots) - 1; i >= 0; i-- {
		if s.world.Valid(s.Roots[i]) {
			_ = s.world.DestroyNode(s.Roots[i])
		}
	}
	for _, h := range s.Resources {
		_ = h.Release()
	}
	s.Connections, s.Roots, s.Resources = nil, nil, nil
}

// Unload removes the scene's nodes and releases its resources
// During a frame, nodes are queued for teardown instead of destroyed
func (s *Scene) Unload() error {
	var errs []error
	for _, id := range s.Connections {
		s.world.Bus.Disconnect(id)
	}
	for i := len(s.Roots) - 1; i >= 0; i-- {
		id := s.Roots[i]
		if !s.world.Valid(id) {
			continue
		}
		var err error
		if s.world.InFrame() {
			err = s.world.QueueDestroy(id)
		} else {
			err = s.world.DestroyNode(id)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	for _, h := range s.Resources {
		if err := h.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	s.Connections, s.Roots, s.Resources = nil, nil, nil
	s.world.Status.Inc(MetricUnloaded)
	return errors.Join(errs...)
}

func parentPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return strings.TrimSuffix(parent, "/") + "/" + name
}

// within reports whether p is anc or lies below it
func within(p, anc string) bool {
	return anc == "/" || p == anc || strings.HasPrefix(p, anc+"/")
}

package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/toymaker/status"
)

// Metric keys
const (
	MetricLoads   = "resource.loads"
	MetricUnloads = "resource.unloads"
	MetricCached  = "resource.cached"
)

// Loader produces a resource value from its descriptor
// Loaders may run concurrently during Preload and must not touch the DB
type Loader interface {
	Load(ctx context.Context, d Descriptor) (any, error)
}

// LoaderFunc adapts a function to Loader
type LoaderFunc func(ctx context.Context, d Descriptor) (any, error)

func (f LoaderFunc) Load(ctx context.Context, d Descriptor) (any, error) { return f(ctx, d) }

type entry struct {
	name  string
	typ   Type
	value any
	refs  int
}

// DB owns every loaded resource; a resource lives while any handle to it is outstanding
// All methods run on the simulation goroutine
type DB struct {
	log   *zap.Logger
	stats *status.Registry

	loaders  map[Type]map[string]Loader
	defaults map[Type]string
	descs    map[string]Descriptor
	entries  map[uint64][]*entry
	count    int

	// Concurrency caps Preload fan-out; zero means unlimited
	Concurrency int
}

// Option configures a DB
type Option func(*DB)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(db *DB) { db.log = l }
}

// WithStatus sets the metrics registry
func WithStatus(r *status.Registry) Option {
	return func(db *DB) { db.stats = r }
}

// WithAssets registers the file-backed loaders over fsys
func WithAssets(fsys fs.FS) Option {
	return func(db *DB) { registerFileLoaders(db, fsys) }
}

// NewDB creates a database with the procedural and parameter loaders installed
func NewDB(opts ...Option) *DB {
	db := &DB{
		log:         zap.NewNop(),
		loaders:     make(map[Type]map[string]Loader),
		defaults:    make(map[Type]string),
		descs:       make(map[string]Descriptor),
		entries:     make(map[uint64][]*entry),
		Concurrency: 4,
	}
	registerBuiltinLoaders(db)
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// RegisterLoader installs a loader for (typ, method)
// The first method registered for a type becomes its default
func (db *DB) RegisterLoader(typ Type, method string, l Loader) {
	m, ok := db.loaders[typ]
	if !ok {
		m = make(map[string]Loader)
		db.loaders[typ] = m
	}
	m[method] = l
	if _, ok := db.defaults[typ]; !ok {
		db.defaults[typ] = method
	}
}

// SetDefaultMethod picks the loader used for names without a description
func (db *DB) SetDefaultMethod(typ Type, method string) {
	db.defaults[typ] = method
}

// Describe records how to produce a resource
// A description for a name already described under another type is rejected
func (db *DB) Describe(d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("describe: empty resource name")
	}
	if prev, ok := db.descs[d.Name]; ok && prev.Type != d.Type {
		return &TypeMismatchError{Name: d.Name, Have: prev.Type, Requested: d.Type}
	}
	if e := db.lookup(d.Name); e != nil && e.typ != d.Type {
		return &TypeMismatchError{Name: d.Name, Have: e.typ, Requested: d.Type}
	}
	db.descs[d.Name] = d
	return nil
}

// Load returns a handle to the named resource, loading it on first request
// Repeated loads share the same underlying value
func (db *DB) Load(name string, typ Type) (*Handle, error) {
	if e := db.lookup(name); e != nil {
		if e.typ != typ {
			return nil, &TypeMismatchError{Name: name, Have: e.typ, Requested: typ}
		}
		return db.issue(e), nil
	}

	d, err := db.descriptor(name, typ)
	if err != nil {
		return nil, err
	}
	value, err := db.fetch(context.Background(), d)
	if err != nil {
		return nil, err
	}
	return db.issue(db.insert(d, value)), nil
}

// Preload loads a batch of descriptors in parallel and returns one handle per descriptor
// Values are produced concurrently; handles are issued on the caller after all loads finish
// On failure no handle is issued and nothing stays cached
func (db *DB) Preload(ctx context.Context, descs []Descriptor) ([]*Handle, error) {
	for _, d := range descs {
		if err := db.Describe(d); err != nil {
			return nil, err
		}
	}

	values := make([]any, len(descs))
	g, gctx := errgroup.WithContext(ctx)
	if db.Concurrency > 0 {
		g.SetLimit(db.Concurrency)
	}
	pending := make(map[string]int, len(descs))
	for i, d := range descs {
		if db.lookup(d.Name) != nil {
			continue
		}
		if _, dup := pending[d.Name]; dup {
			continue
		}
		pending[d.Name] = i
		g.Go(func() error {
			v, err := db.fetch(gctx, d)
			if err != nil {
				return err
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, v := range values {
			if v != nil {
				unload(v)
			}
		}
		return nil, err
	}

	handles := make([]*Handle, 0, len(descs))
	for _, d := range descs {
		e := db.lookup(d.Name)
		if e == nil {
			e = db.insert(d, values[pending[d.Name]])
		}
		handles = append(handles, db.issue(e))
	}
	db.log.Debug("preloaded resources", zap.Int("count", len(handles)))
	return handles, nil
}

// Release drops one reference; the value is unloaded when none remain
func (db *DB) Release(h *Handle) error {
	if h == nil || h.released {
		return ErrHandleReleased
	}
	h.released = true
	e := h.e
	e.refs--
	if e.refs > 0 {
		return nil
	}
	db.remove(e)
	unload(e.value)
	db.stats.Inc(MetricUnloads)
	db.stats.SetGauge(MetricCached, float64(db.count))
	db.log.Debug("resource unloaded", zap.String("name", e.name), zap.String("type", string(e.typ)))
	return nil
}

// Count returns the number of cached resources
func (db *DB) Count() int { return db.count }

// RefCount returns outstanding handles for name, zero when not cached
func (db *DB) RefCount(name string) int {
	if e := db.lookup(name); e != nil {
		return e.refs
	}
	return 0
}

// Cached reports whether name is currently loaded
func (db *DB) Cached(name string) bool { return db.lookup(name) != nil }

func (db *DB) descriptor(name string, typ Type) (Descriptor, error) {
	if d, ok := db.descs[name]; ok {
		if d.Type != typ {
			return Descriptor{}, &TypeMismatchError{Name: name, Have: d.Type, Requested: typ}
		}
		return d, nil
	}
	if _, ok := db.defaults[typ]; !ok {
		return Descriptor{}, &NotFoundError{Name: name, Type: typ}
	}
	return Descriptor{Name: name, Type: typ}, nil
}

func (db *DB) fetch(ctx context.Context, d Descriptor) (any, error) {
	method := d.Method
	if method == "" {
		method = db.defaults[d.Type]
	}
	l, ok := db.loaders[d.Type][method]
	if !ok {
		return nil, &NotFoundError{Name: d.Name, Type: d.Type, Err: fmt.Errorf("no loader %q", method)}
	}
	v, err := l.Load(ctx, d)
	if err != nil {
		if errors.Is(err, ErrNotExist) || errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Name: d.Name, Type: d.Type, Err: err}
		}
		return nil, fmt.Errorf("load %s %q: %w", d.Type, d.Name, err)
	}
	if v == nil {
		return nil, &NotFoundError{Name: d.Name, Type: d.Type}
	}
	return v, nil
}

func (db *DB) lookup(name string) *entry {
	for _, e := range db.entries[xxhash.Sum64String(name)] {
		if e.name == name {
			return e
		}
	}
	return nil
}

func (db *DB) insert(d Descriptor, value any) *entry {
	e := &entry{name: d.Name, typ: d.Type, value: value}
	k := xxhash.Sum64String(d.Name)
	db.entries[k] = append(db.entries[k], e)
	db.count++
	db.stats.Inc(MetricLoads)
	db.stats.SetGauge(MetricCached, float64(db.count))
	db.log.Debug("resource loaded", zap.String("name", d.Name), zap.String("type", string(d.Type)))
	return e
}

func (db *DB) remove(e *entry) {
	k := xxhash.Sum64String(e.name)
	bucket := db.entries[k]
	for i, c := range bucket {
		if c == e {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(db.entries, k)
	} else {
		db.entries[k] = bucket
	}
	db.count--
}

func (db *DB) issue(e *entry) *Handle {
	e.refs++
	return &Handle{db: db, e: e}
}

func unload(v any) {
	switch u := v.(type) {
	case Unloader:
		u.Unload()
	case io.Closer:
		_ = u.Close()
	}
}

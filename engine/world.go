package engine

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lixenwraith/toymaker/signal"
	"github.com/lixenwraith/toymaker/status"
)

// Metric keys
const (
	MetricFrames      = "engine.frames"
	MetricPanics      = "engine.panics"
	MetricEntities    = "engine.entities"
	MetricNodes       = "engine.nodes"
	MetricActivations = "engine.activations"
	MetricSimSteps    = "engine.sim_steps"
)

// DefaultSimStep is the fixed simulation step of a new World
const DefaultSimStep = 20 * time.Millisecond

// World owns entities, their aspects and the scene graph
// All mutation happens on the simulation goroutine; there is no internal locking
type World struct {
	Log      *zap.Logger
	Status   *status.Registry
	Bus      *signal.Bus
	Services *Services

	nextEntity  Entity
	entities    map[Entity]*entityRecord
	entityOrder []Entity

	nodes []node
	free  []uint32
	root  NodeID

	systems  []systemEntry
	sysCount int

	onAspectDetached []func(Aspect)
	onNodeDestroyed  []func(NodeID)

	frame   uint64
	elapsed time.Duration
	inFrame bool

	simStep  time.Duration
	simAccum time.Duration
	simSteps uint64
}

// Option configures a World
type Option func(*World)

// WithLogger sets the world logger
func WithLogger(l *zap.Logger) Option {
	return func(w *World) { w.Log = l }
}

// WithStatus sets the metrics registry
func WithStatus(r *status.Registry) Option {
	return func(w *World) { w.Status = r }
}

// WithBus supplies an existing signal bus
func WithBus(b *signal.Bus) Option {
	return func(w *World) { w.Bus = b }
}

// WithSimStep sets the fixed simulation step; zero or less disables simulation updates
func WithSimStep(d time.Duration) Option {
	return func(w *World) { w.simStep = d }
}

// NewWorld creates a world with an active root viewport node
func NewWorld(opts ...Option) *World {
	w := &World{
		Log:        zap.NewNop(),
		Services:   NewServices(),
		nextEntity: 1,
		entities:   make(map[Entity]*entityRecord),
		simStep:    DefaultSimStep,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.Status == nil {
		w.Status = status.NewRegistry()
	}
	if w.Bus == nil {
		w.Bus = signal.NewBus(w.Log, w.Status)
	}
	w.root = w.allocNode("", NodeID{})
	root := w.node(w.root)
	root.state = nodeActive
	vp := DefaultViewport()
	root.viewport = &vp

	AddService(w, w.Bus)
	AddService(w, w.Status)
	return w
}

// Root returns the root viewport node
func (w *World) Root() NodeID { return w.root }

// Frame returns the number of completed Steps
func (w *World) Frame() uint64 { return w.frame }

// Elapsed returns the summed dt of all Steps
func (w *World) Elapsed() time.Duration { return w.elapsed }

// SimStep returns the fixed simulation step
func (w *World) SimStep() time.Duration { return w.simStep }

// SimSteps returns the number of simulation steps run so far
func (w *World) SimSteps() uint64 { return w.simSteps }

// SimProgress returns how far the leftover time is into the next simulation step, in [0, 1)
func (w *World) SimProgress() float64 {
	if w.simStep <= 0 {
		return 0
	}
	return float64(w.simAccum) / float64(w.simStep)
}

// OnAspectDetached registers a callback run for every aspect leaving its entity
func (w *World) OnAspectDetached(fn func(Aspect)) {
	w.onAspectDetached = append(w.onAspectDetached, fn)
}

// OnNodeDestroyed registers a callback run for every destroyed node
func (w *World) OnNodeDestroyed(fn func(NodeID)) {
	w.onNodeDestroyed = append(w.onNodeDestroyed, fn)
}

// safe runs fn, recovering and counting panics
func (w *World) safe(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			w.Status.Inc(MetricPanics)
			w.Log.Error("recovered panic",
				zap.String("in", what),
				zap.Uint64("frame", w.frame),
				zap.String("panic", fmt.Sprint(r)),
				zap.Stack("stack"))
		}
	}()
	fn()
}

package signal

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lixenwraith/toymaker/status"
)

// Metric keys
const (
	MetricFired         = "signal.fired"
	MetricDelivered     = "signal.delivered"
	MetricHandlerErrors = "signal.handler_errors"
	MetricHandlerPanics = "signal.handler_panics"
	MetricDropped       = "signal.dropped"
)

// DefaultMaxDepth bounds signals fired from inside handlers
const DefaultMaxDepth = 32

type source struct {
	key   Key
	typ   reflect.Type
	conns []*connection
}

type observerEntry struct {
	key     Key
	typ     reflect.Type
	handler Handler
}

type connection struct {
	id     ConnectionID
	source Key
	target Key     // zero for external connections
	fn     Handler // external connections only
}

// Bus routes fired payloads from sources to connected observers
// Not safe for concurrent use; runs on the simulation goroutine
type Bus struct {
	// MaxDepth is the nested dispatch limit; deeper fires are dropped
	MaxDepth int

	log   *zap.Logger
	stats *status.Registry

	sources   map[Key]*source
	observers map[Key]*observerEntry
	conns     map[ConnectionID]*connection
	depth     int
}

// NewBus creates an empty bus; nil logger and registry are allowed
func NewBus(log *zap.Logger, stats *status.Registry) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		MaxDepth:  DefaultMaxDepth,
		log:       log.Named("signal"),
		stats:     stats,
		sources:   make(map[Key]*source),
		observers: make(map[Key]*observerEntry),
		conns:     make(map[ConnectionID]*connection),
	}
}

// Declare registers a signal source; payload nil means untyped
// Redeclaring with the same type is a no-op
func (b *Bus) Declare(key Key, payload reflect.Type) error {
	if s, ok := b.sources[key]; ok {
		if s.typ != payload {
			return &RedeclaredError{Key: key, Have: s.typ, Got: payload}
		}
		return nil
	}
	b.sources[key] = &source{key: key, typ: payload}
	return nil
}

// DeclareObserver registers a named handler other signals can connect to
func (b *Bus) DeclareObserver(key Key, payload reflect.Type, h Handler) error {
	if h == nil {
		return ErrNilHandler
	}
	if o, ok := b.observers[key]; ok && o.typ != payload {
		return &RedeclaredError{Key: key, Have: o.typ, Got: payload}
	}
	b.observers[key] = &observerEntry{key: key, typ: payload, handler: h}
	return nil
}

// HasSignal reports whether key is a declared source
func (b *Bus) HasSignal(key Key) bool { _, ok := b.sources[key]; return ok }

// HasObserver reports whether key is a declared observer
func (b *Bus) HasObserver(key Key) bool { _, ok := b.observers[key]; return ok }

// Connect appends a connection from a source to an observer
func (b *Bus) Connect(src, dst Key) (ConnectionID, error) {
	s, ok := b.sources[src]
	if !ok {
		return uuid.Nil, fmt.Errorf("connect %s: %w", src, ErrUnknownSignal)
	}
	o, ok := b.observers[dst]
	if !ok {
		return uuid.Nil, fmt.Errorf("connect %s: %w", dst, ErrUnknownObserver)
	}
	if !compatible(s.typ, o.typ) {
		return uuid.Nil, &PayloadMismatchError{Source: src, Observer: dst, Have: s.typ, Want: o.typ}
	}
	return b.attach(s, &connection{source: src, target: dst}), nil
}

// ConnectFunc appends an external handler to a source
func (b *Bus) ConnectFunc(src Key, h Handler) (ConnectionID, error) {
	if h == nil {
		return uuid.Nil, ErrNilHandler
	}
	s, ok := b.sources[src]
	if !ok {
		return uuid.Nil, fmt.Errorf("connect %s: %w", src, ErrUnknownSignal)
	}
	return b.attach(s, &connection{source: src, fn: h}), nil
}

func (b *Bus) attach(s *source, c *connection) ConnectionID {
	c.id = uuid.New()
	s.conns = append(s.conns, c)
	b.conns[c.id] = c
	return c.id
}

// Disconnect removes a connection; false when it no longer exists
func (b *Bus) Disconnect(id ConnectionID) bool {
	c, ok := b.conns[id]
	if !ok {
		return false
	}
	b.detach(c)
	return true
}

func (b *Bus) detach(c *connection) {
	delete(b.conns, c.id)
	if s, ok := b.sources[c.source]; ok {
		// Fresh slice so in-flight snapshots keep their view
		s.conns = slices.DeleteFunc(slices.Clone(s.conns), func(x *connection) bool { return x == c })
	}
}

// Fire delivers payload to every connection present when Fire begins, in connection order
// Nothing is returned to the emitter
func (b *Bus) Fire(src Key, payload any) {
	s, ok := b.sources[src]
	if !ok {
		b.stats.Inc(MetricDropped)
		b.log.Warn("fire on undeclared signal", zap.Stringer("signal", src))
		return
	}
	if s.typ != nil && payload != nil && !reflect.TypeOf(payload).AssignableTo(s.typ) {
		b.stats.Inc(MetricDropped)
		b.log.Error("payload type mismatch",
			zap.Stringer("signal", src),
			zap.Stringer("want", s.typ),
			zap.String("got", fmt.Sprintf("%T", payload)))
		return
	}
	if b.depth >= b.MaxDepth {
		b.stats.Inc(MetricDropped)
		b.log.Error("signal recursion limit reached", zap.Stringer("signal", src), zap.Int("depth", b.depth))
		return
	}

	b.stats.Inc(MetricFired)
	snapshot := s.conns
	b.depth++
	defer func() { b.depth-- }()

	for _, c := range snapshot {
		h := c.fn
		if h == nil {
			o, ok := b.observers[c.target]
			if !ok {
				continue
			}
			h = o.handler
		}
		b.invoke(c, h, payload)
	}
}

func (b *Bus) invoke(c *connection, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.stats.Inc(MetricHandlerPanics)
			b.log.Error("signal handler panicked",
				zap.Stringer("signal", c.source),
				zap.Stringer("connection", c.id),
				zap.Any("panic", r))
		}
	}()
	b.stats.Inc(MetricDelivered)
	if err := h(payload); err != nil {
		b.stats.Inc(MetricHandlerErrors)
		b.log.Warn("signal handler failed",
			zap.Stringer("signal", c.source),
			zap.Stringer("connection", c.id),
			zap.Error(err))
	}
}

// RemoveAspect drops an aspect's declarations and every connection into or out of them
func (b *Bus) RemoveAspect(owner uint64, aspect string) {
	b.removeWhere(func(k Key) bool { return k.Owner == owner && k.Aspect == aspect })
}

// RemoveOwner drops everything declared by an entity
func (b *Bus) RemoveOwner(owner uint64) {
	b.removeWhere(func(k Key) bool { return k.Owner == owner })
}

func (b *Bus) removeWhere(match func(Key) bool) {
	for _, c := range b.conns {
		if match(c.source) || (c.fn == nil && match(c.target)) {
			b.detach(c)
		}
	}
	for k := range b.sources {
		if match(k) {
			delete(b.sources, k)
		}
	}
	for k := range b.observers {
		if match(k) {
			delete(b.observers, k)
		}
	}
}

// Connections returns the number of live connections
func (b *Bus) Connections() int { return len(b.conns) }

// ConnectionsTouching counts connections whose source or observer belongs to owner
func (b *Bus) ConnectionsTouching(owner uint64) int {
	n := 0
	for _, c := range b.conns {
		if c.source.Owner == owner || (c.fn == nil && c.target.Owner == owner) {
			n++
		}
	}
	return n
}

// Declarations counts sources and observers declared by owner
func (b *Bus) Declarations(owner uint64) int {
	n := 0
	for k := range b.sources {
		if k.Owner == owner {
			n++
		}
	}
	for k := range b.observers {
		if k.Owner == owner {
			n++
		}
	}
	return n
}

package input

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/lixenwraith/toymaker/engine"
	"github.com/lixenwraith/toymaker/status"
)

// Metric keys
const (
	MetricRaw        = "input.raw"
	MetricActions    = "input.actions"
	MetricSuppressed = "input.suppressed"
	MetricUnbound    = "input.unbound"
	MetricHandled    = "input.handled"
)

// ErrUnknownContext is returned for operations naming an undefined context
var ErrUnknownContext = errors.New("unknown input context")

// UnboundActionError reports a binding to an action its context never registered
type UnboundActionError struct {
	Context string
	Action  string
	Input   string
}

func (e *UnboundActionError) Error() string {
	return fmt.Sprintf("input %q in context %q bound to unknown action %q", e.Input, e.Context, e.Action)
}

// RawEvent is one device transition in canonical form
// Input is "key:<name>", "rune:<char>" or "mouse:<button>"
type RawEvent struct {
	Input   string
	Pressed bool
	X, Y    float32 // normalized screen coordinates, valid when Pointer
	Pointer bool
}

// Action is a raw event resolved through the active context
type Action struct {
	Context    string
	Name       string
	Raw        string
	Pressed    bool
	X, Y       float32
	HasPointer bool
}

// Handler reacts to a dispatched action; returning true consumes it
type Handler func(Action) bool

type context struct {
	name     string
	actions  map[string]struct{}
	bindings map[string]string // raw -> action
	handlers map[string][]Handler
}

// Manager resolves raw input into actions through a stack of contexts
// Only the top context is consulted; events bound elsewhere are dropped
type Manager struct {
	log   *zap.Logger
	stats *status.Registry

	contexts map[string]*context
	stack    []string
	queue    []RawEvent
	last     []Action
}

// NewManager creates a manager with no contexts; nil logger and registry are allowed
func NewManager(log *zap.Logger, stats *status.Registry) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		log:      log.Named("input"),
		stats:    stats,
		contexts: make(map[string]*context),
	}
}

// DefineContext creates a context; redefining an existing one is a no-op
func (m *Manager) DefineContext(name string) {
	if _, ok := m.contexts[name]; ok {
		return
	}
	m.contexts[name] = &context{
		name:     name,
		actions:  make(map[string]struct{}),
		bindings: make(map[string]string),
		handlers: make(map[string][]Handler),
	}
}

// HasContext reports whether name was defined
func (m *Manager) HasContext(name string) bool {
	_, ok := m.contexts[name]
	return ok
}

// RegisterAction declares an action name within a context
func (m *Manager) RegisterAction(ctxName, action string) error {
	c, ok := m.contexts[ctxName]
	if !ok {
		return fmt.Errorf("register %q in %q: %w", action, ctxName, ErrUnknownContext)
	}
	c.actions[action] = struct{}{}
	return nil
}

// Actions returns the sorted action names of a context
func (m *Manager) Actions(ctxName string) []string {
	c, ok := m.contexts[ctxName]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(c.actions))
	for a := range c.actions {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// Bind maps a raw input to an action of the context, replacing any earlier binding
func (m *Manager) Bind(ctxName, raw, action string) error {
	c, ok := m.contexts[ctxName]
	if !ok {
		return fmt.Errorf("bind %q in %q: %w", raw, ctxName, ErrUnknownContext)
	}
	if _, ok := c.actions[action]; !ok {
		return &UnboundActionError{Context: ctxName, Action: action, Input: raw}
	}
	c.bindings[raw] = action
	return nil
}

// Unbind removes the binding of raw in the context
func (m *Manager) Unbind(ctxName, raw string) {
	if c, ok := m.contexts[ctxName]; ok {
		delete(c.bindings, raw)
	}
}

// Binding returns the action raw is bound to in the context
func (m *Manager) Binding(ctxName, raw string) (string, bool) {
	c, ok := m.contexts[ctxName]
	if !ok {
		return "", false
	}
	a, ok := c.bindings[raw]
	return a, ok
}

// PushContext makes name the active context
func (m *Manager) PushContext(name string) error {
	if _, ok := m.contexts[name]; !ok {
		return fmt.Errorf("push %q: %w", name, ErrUnknownContext)
	}
	m.stack = append(m.stack, name)
	m.log.Debug("context pushed", zap.String("context", name), zap.Int("depth", len(m.stack)))
	return nil
}

// PopContext removes the active context, returning its name
func (m *Manager) PopContext() (string, bool) {
	if len(m.stack) == 0 {
		return "", false
	}
	top := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	m.log.Debug("context popped", zap.String("context", top), zap.Int("depth", len(m.stack)))
	return top, true
}

// Active returns the top of the context stack
func (m *Manager) Active() (string, bool) {
	if len(m.stack) == 0 {
		return "", false
	}
	return m.stack[len(m.stack)-1], true
}

// Stack returns a copy of the context stack, bottom first
func (m *Manager) Stack() []string {
	return slices.Clone(m.stack)
}

// Queue buffers a raw event for the next Poll
func (m *Manager) Queue(ev RawEvent) {
	m.queue = append(m.queue, ev)
	m.stats.Inc(MetricRaw)
}

// Poll resolves queued events against the active context and clears the queue
// Events are not retained for contexts that later become active
func (m *Manager) Poll() []Action {
	events := m.queue
	m.queue = m.queue[:0:0]

	top, ok := m.Active()
	if !ok {
		for range events {
			m.stats.Inc(MetricSuppressed)
		}
		return nil
	}
	c := m.contexts[top]

	var out []Action
	for _, ev := range events {
		name, bound := c.bindings[ev.Input]
		if !bound {
			if m.boundElsewhere(ev.Input, top) {
				m.stats.Inc(MetricSuppressed)
			} else {
				m.stats.Inc(MetricUnbound)
			}
			continue
		}
		out = append(out, Action{
			Context:    top,
			Name:       name,
			Raw:        ev.Input,
			Pressed:    ev.Pressed,
			X:          ev.X,
			Y:          ev.Y,
			HasPointer: ev.Pointer,
		})
		m.stats.Inc(MetricActions)
	}
	return out
}

func (m *Manager) boundElsewhere(raw, except string) bool {
	for _, name := range m.stack {
		if name == except {
			continue
		}
		if _, ok := m.contexts[name].bindings[raw]; ok {
			return true
		}
	}
	return false
}

// RegisterHandler adds a handler for an action of a context
// Handlers run in registration order until one consumes the action
func (m *Manager) RegisterHandler(ctxName, action string, h Handler) error {
	c, ok := m.contexts[ctxName]
	if !ok {
		return fmt.Errorf("handler %q in %q: %w", action, ctxName, ErrUnknownContext)
	}
	if _, ok := c.actions[action]; !ok {
		return &UnboundActionError{Context: ctxName, Action: action}
	}
	c.handlers[action] = append(c.handlers[action], h)
	return nil
}

// Dispatch runs registered handlers for each action
// A panicking handler is logged and the next handler is tried
func (m *Manager) Dispatch(actions []Action) {
	for _, a := range actions {
		c, ok := m.contexts[a.Context]
		if !ok {
			continue
		}
		for _, h := range slices.Clone(c.handlers[a.Name]) {
			if m.invoke(h, a) {
				m.stats.Inc(MetricHandled)
				break
			}
		}
	}
}

func (m *Manager) invoke(h Handler, a Action) (consumed bool) {
	defer func() {
		if r := recover(); r != nil {
			m.stats.Inc(engine.MetricPanics)
			m.log.Error("action handler panic",
				zap.String("context", a.Context),
				zap.String("action", a.Name),
				zap.Any("panic", r))
			consumed = false
		}
	}()
	return h(a)
}

// Last returns the actions resolved by the most recent frame
func (m *Manager) Last() []Action {
	return m.last
}

// Stage implements engine.System
func (m *Manager) Stage() engine.Stage { return engine.StageInput }

// Priority implements engine.System
func (m *Manager) Priority() int { return 0 }

// Update polls and dispatches once per frame
func (m *Manager) Update(_ *engine.World, _ time.Duration) {
	m.last = m.Poll()
	m.Dispatch(m.last)
}

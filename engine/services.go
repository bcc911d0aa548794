package engine

import (
	"reflect"
	"sync"
)

// Services is a type-keyed registry of shared subsystems
// Aspects reach the query system, input manager and resource database through it
type Services struct {
	mu    sync.RWMutex
	items map[reflect.Type]any
}

// NewServices creates an empty registry
func NewServices() *Services {
	return &Services{items: make(map[reflect.Type]any)}
}

// AddService registers or replaces the service of type T
func AddService[T any](w *World, svc T) {
	s := w.Services
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[reflect.TypeFor[T]()] = svc
}

// GetService returns the service of type T
func GetService[T any](w *World) (T, bool) {
	s := w.Services
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[reflect.TypeFor[T]()]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// MustGetService returns the service of type T or panics
// For core services wired at startup
func MustGetService[T any](w *World) T {
	v, ok := GetService[T](w)
	if !ok {
		panic("required service not registered: " + reflect.TypeFor[T]().String())
	}
	return v
}

package signal

import (
	"fmt"
	"reflect"
)

// Signal is a typed source handle
type Signal[T any] struct {
	bus *Bus
	key Key
}

// NewSignal declares a source carrying T
func NewSignal[T any](b *Bus, key Key) (Signal[T], error) {
	if err := b.Declare(key, reflect.TypeFor[T]()); err != nil {
		return Signal[T]{}, err
	}
	return Signal[T]{bus: b, key: key}, nil
}

// Key of the source
func (s Signal[T]) Key() Key { return s.key }

// Fire emits v; a zero Signal is a no-op
func (s Signal[T]) Fire(v T) {
	if s.bus == nil {
		return
	}
	s.bus.Fire(s.key, v)
}

// Observer is a typed observer handle
type Observer[T any] struct {
	key Key
}

// NewObserver declares an observer receiving T
func NewObserver[T any](b *Bus, key Key, fn func(T) error) (Observer[T], error) {
	h := func(payload any) error {
		v, ok := payload.(T)
		if !ok && payload != nil {
			return fmt.Errorf("observer %s: payload %T is not %v", key, payload, reflect.TypeFor[T]())
		}
		return fn(v)
	}
	if err := b.DeclareObserver(key, reflect.TypeFor[T](), h); err != nil {
		return Observer[T]{}, err
	}
	return Observer[T]{key: key}, nil
}

// Key of the observer
func (o Observer[T]) Key() Key { return o.key }

// Connect wires a typed source to a typed observer of the same payload
func Connect[T any](b *Bus, s Signal[T], o Observer[T]) (ConnectionID, error) {
	return b.Connect(s.key, o.key)
}

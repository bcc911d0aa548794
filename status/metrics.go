package status

import (
	"slices"
	"sync"
)

// metrics maps names to lazily created values of T
// Creation takes the write lock; returned pointers stay valid for the registry's lifetime
type metrics[T any] struct {
	mu    sync.RWMutex
	items map[string]*T
}

func newMetrics[T any]() *metrics[T] {
	return &metrics[T]{items: make(map[string]*T)}
}

// get returns the value for key, creating it on first use
func (m *metrics[T]) get(key string) *T {
	m.mu.RLock()
	ptr, ok := m.items[key]
	m.mu.RUnlock()
	if ok {
		return ptr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ptr, ok = m.items[key]; !ok {
		ptr = new(T)
		m.items[key] = ptr
	}
	return ptr
}

// find returns the value for key without creating it
func (m *metrics[T]) find(key string) (*T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ptr, ok := m.items[key]
	return ptr, ok
}

func (m *metrics[T]) len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// each visits values in key order
func (m *metrics[T]) each(fn func(key string, ptr *T)) {
	m.mu.RLock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	slices.Sort(keys)

	for _, k := range keys {
		ptr, _ := m.find(k)
		fn(k, ptr)
	}
}

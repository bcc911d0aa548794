package resource

// Handle is one counted reference to a cached resource
type Handle struct {
	db       *DB
	e        *entry
	released bool
}

// Name of the resource
func (h *Handle) Name() string { return h.e.name }

// Type of the resource
func (h *Handle) Type() Type { return h.e.typ }

// Value returns the shared value; nil after release
func (h *Handle) Value() any {
	if h.released {
		return nil
	}
	return h.e.value
}

// Released reports whether Release was called on this handle
func (h *Handle) Released() bool { return h.released }

// Share issues a new handle to the same resource
func (h *Handle) Share() (*Handle, error) {
	if h.released {
		return nil, ErrHandleReleased
	}
	return h.db.issue(h.e), nil
}

// Release returns the handle to its database
func (h *Handle) Release() error { return h.db.Release(h) }

// As returns the handle's value as T
func As[T any](h *Handle) (T, bool) {
	var zero T
	if h == nil {
		return zero, false
	}
	v, ok := h.Value().(T)
	return v, ok
}

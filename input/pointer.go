package input

// Pointer action names consumed by the spatial query system
const (
	ActionPointerMove = "pointer-move"
	ActionPointerLeft = "pointer-left"
)

// Raw pointer inputs
const (
	MouseMove      = "mouse:move"
	MouseLeft      = "mouse:left"
	MouseRight     = "mouse:right"
	MouseMiddle    = "mouse:middle"
	MouseWheelUp   = "mouse:wheel-up"
	MouseWheelDown = "mouse:wheel-down"
)

// DefinePointerBindings registers and binds the pointer actions in a context
// Contexts without them hide the pointer from the scene
func (m *Manager) DefinePointerBindings(ctxName string) error {
	for _, b := range [...]struct{ raw, action string }{
		{MouseMove, ActionPointerMove},
		{MouseLeft, ActionPointerLeft},
	} {
		if err := m.RegisterAction(ctxName, b.action); err != nil {
			return err
		}
		if err := m.Bind(ctxName, b.raw, b.action); err != nil {
			return err
		}
	}
	return nil
}

// IsPointer reports whether an action drives the pointer
func (a Action) IsPointer() bool {
	return a.Name == ActionPointerMove || a.Name == ActionPointerLeft
}

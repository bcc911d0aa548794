package engine

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownEntity   = errors.New("unknown entity")
	ErrUnknownNode     = errors.New("unknown scene node")
	ErrAspectNotFound  = errors.New("aspect not attached")
	ErrAspectAttached  = errors.New("aspect already attached to an entity")
	ErrRootNode        = errors.New("operation not allowed on the root node")
	ErrNodeOccupied    = errors.New("scene node already holds an entity")
	ErrCycle           = errors.New("node would become its own ancestor")
	ErrInvalidNodeName = errors.New("invalid scene node name")
)

// DuplicateAspectError is returned when a second instance of a unique aspect kind is attached
type DuplicateAspectError struct {
	Entity Entity
	Kind   string
}

func (e *DuplicateAspectError) Error() string {
	return fmt.Sprintf("entity %d already has unique aspect %s", e.Entity, e.Kind)
}

// DuplicateNameError is returned when a sibling already uses a node name
type DuplicateNameError struct {
	Parent string
	Name   string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("node %q already has a child named %q", e.Parent, e.Name)
}

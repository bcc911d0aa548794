package scene

import "fmt"

// InvalidNodeReferenceError reports a scene or connection entry naming a node that does not exist
type InvalidNodeReferenceError struct {
	Field string // where the reference appeared, e.g. "nodes[3].parent"
	Path  string
	Err   error
}

func (e *InvalidNodeReferenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: invalid node reference %q: %v", e.Field, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: invalid node reference %q", e.Field, e.Path)
}

func (e *InvalidNodeReferenceError) Unwrap() error { return e.Err }

// UnknownAspectError reports an aspect type with no registered constructor
type UnknownAspectError struct {
	Type string
}

func (e *UnknownAspectError) Error() string {
	return fmt.Sprintf("unknown aspect type %q", e.Type)
}

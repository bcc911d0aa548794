// Package resource is the reference-counted resource database
// Values are immutable once loaded and shared by every holder of a handle
package resource

import (
	"errors"
	"fmt"
)

// Type tags the kind of value stored under a name
type Type string

const (
	TypeMesh     Type = "mesh"
	TypeMaterial Type = "material"
	TypeSound    Type = "sound"
	TypeTexture  Type = "texture"
	TypeFont     Type = "font"
	TypeBlob     Type = "blob"
)

// Descriptor tells the database how to produce a named resource
// Method selects a loader registered for Type; empty uses the type's default
type Descriptor struct {
	Name   string         `yaml:"name"`
	Type   Type           `yaml:"type"`
	Method string         `yaml:"method,omitempty"`
	Params map[string]any `yaml:"params,omitempty"`
}

// Unloader is implemented by values that hold external state
// io.Closer is honored as well
type Unloader interface {
	Unload()
}

// ErrNotExist is returned by loaders that cannot locate their backing asset
var ErrNotExist = errors.New("resource does not exist")

// ErrHandleReleased is returned when a handle is released twice
var ErrHandleReleased = errors.New("resource handle already released")

// NotFoundError reports a resource with no description and no loader able to produce it
type NotFoundError struct {
	Name string
	Type Type
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resource %q (%s) not found: %v", e.Name, e.Type, e.Err)
	}
	return fmt.Sprintf("resource %q (%s) not found", e.Name, e.Type)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// TypeMismatchError reports a name requested under a type other than the one it is cached or described as
type TypeMismatchError struct {
	Name      string
	Have      Type
	Requested Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("resource %q is %s, requested as %s", e.Name, e.Have, e.Requested)
}

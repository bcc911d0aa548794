// Package signal is the synchronous signal bus connecting aspects and external code
//
// Architecture:
//   - Sources and observers are declared under a Key owned by one aspect
//   - Connections are data (source key, observer key) resolved at dispatch
//   - Fire snapshots the connection list, then invokes handlers in connection order
//   - Handler errors and panics stop at the dispatch boundary
package signal

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
)

// Key identifies a signal or observer: owning entity, aspect type name, signal name
type Key struct {
	Owner  uint64
	Aspect string
	Name   string
}

func (k Key) String() string {
	return fmt.Sprintf("%d@%s.%s", k.Owner, k.Aspect, k.Name)
}

// Handler receives a fired payload
type Handler func(payload any) error

// ConnectionID identifies one connection for Disconnect
type ConnectionID = uuid.UUID

var (
	ErrUnknownSignal   = errors.New("unknown signal")
	ErrUnknownObserver = errors.New("unknown observer")
	ErrNilHandler      = errors.New("nil handler")
)

// RedeclaredError reports a key declared twice with different payload types
type RedeclaredError struct {
	Key       Key
	Have, Got reflect.Type
}

func (e *RedeclaredError) Error() string {
	return fmt.Sprintf("signal %s redeclared: payload %v, was %v", e.Key, e.Got, e.Have)
}

// PayloadMismatchError reports a connection whose payload types are incompatible
type PayloadMismatchError struct {
	Source, Observer Key
	Have, Want       reflect.Type
}

func (e *PayloadMismatchError) Error() string {
	return fmt.Sprintf("cannot connect %s (%v) to %s (%v)", e.Source, e.Have, e.Observer, e.Want)
}

// Path is a textual signal endpoint: "/node/path@Aspect.Name"
type Path struct {
	Node   string
	Aspect string
	Name   string
}

func (p Path) String() string {
	return p.Node + "@" + p.Aspect + "." + p.Name
}

// ParsePath splits "/node/path@Aspect.Name"
func ParsePath(s string) (Path, error) {
	node, rest, ok := strings.Cut(s, "@")
	if !ok || node == "" || !strings.HasPrefix(node, "/") {
		return Path{}, fmt.Errorf("signal path %q: want /node/path@Aspect.Name", s)
	}
	aspect, name, ok := strings.Cut(rest, ".")
	if !ok || aspect == "" || name == "" || strings.Contains(name, ".") {
		return Path{}, fmt.Errorf("signal path %q: want Aspect.Name after @", s)
	}
	return Path{Node: node, Aspect: aspect, Name: name}, nil
}

// compatible reports whether a payload of type have may be delivered to want
// A nil type accepts anything
func compatible(have, want reflect.Type) bool {
	if have == nil || want == nil {
		return true
	}
	return have.AssignableTo(want)
}

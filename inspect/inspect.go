// Package inspect defines the serialization/inspection contract the actor
// core consumes from an external wire-serialization layer (out of scope per
// the spec's §1). A type that wants to be transmitted registers a unique
// name and a visitor function that enumerates its fields in a fixed order.
// The core only requires that registration be bijective within a node; it
// never implements a wire codec itself.
package inspect

import (
	"fmt"
	"sync"
)

// Mode selects whether a Visitor reads program state into the inspector
// (Writing) or writes inspector state back into the program (Reading).
type Mode int

const (
	// Writing means the visitor is reading the value's fields to hand them
	// to the inspector (serialize-out direction).
	Writing Mode = iota
	// Reading means the visitor is writing inspector-supplied values back
	// into the value's fields (deserialize-in direction).
	Reading
)

// Annotation modifies how the next field(s) visited are treated by an
// Inspector. Exactly one subset applies per spec.md §6.
type Annotation struct {
	TypeName        string
	HexFormatted    bool
	Omittable       bool
	OmittableIfZero bool
	OmittableIfNone bool
	SaveCallback    func(value interface{}) interface{}
	LoadCallback    func(stored interface{}) interface{}
}

// Inspector is implemented by the external serialization layer; the core
// never implements it, only calls through it via Visitor functions supplied
// by registered types.
type Inspector interface {
	Mode() Mode
	Annotate(a Annotation)
	Field(name string, value interface{}) interface{}
}

// Visitor enumerates a value's fields, in a fixed order, against insp.
type Visitor func(insp Inspector, value interface{})

// Registration describes one registered type: a platform-neutral name and
// its field visitor. Unsafe types are only accepted for same-node
// messaging, never across a transport boundary.
type Registration struct {
	Name    string
	Visit   Visitor
	Unsafe  bool
}

type registry struct {
	mu    sync.RWMutex
	byName map[string]Registration
}

var global = &registry{byName: make(map[string]Registration)}

// Register binds name to r's visitor. Registration must be bijective within
// a node: registering the same name twice, or the same name under a
// different visitor, is an error.
func Register(r Registration) error {
	global.mu.Lock()
	defer global.mu.Unlock()
	if r.Name == "" {
		return fmt.Errorf("inspect: registration name must not be empty")
	}
	if _, exists := global.byName[r.Name]; exists {
		return fmt.Errorf("inspect: name %q already registered", r.Name)
	}
	global.byName[r.Name] = r
	return nil
}

// Lookup returns the registration bound to name, if any.
func Lookup(name string) (Registration, bool) {
	global.mu.RLock()
	defer global.mu.RUnlock()
	r, ok := global.byName[name]
	return r, ok
}

// Unregister removes name's registration. Present mainly for tests that
// register scratch types.
func Unregister(name string) {
	global.mu.Lock()
	defer global.mu.Unlock()
	delete(global.byName, name)
}

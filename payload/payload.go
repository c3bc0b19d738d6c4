// Package payload implements the copy-on-write, type-erased message tuple
// described in the actor core's data model: an immutable-by-default sequence
// of heterogeneous typed fields with shared ownership. Mutation clones the
// whole tuple once the reference count shows more than one owner.
package payload

import (
	"fmt"
	"sync/atomic"
)

// ErrTypeMismatch is returned by a typed accessor when the field at the
// requested index does not hold the expected type.
type ErrTypeMismatch struct {
	Index    int
	Expected string
	Got      string
}

func (e *ErrTypeMismatch) Error() string {
	return fmt.Sprintf("payload: field %d: type mismatch: expected %s, got %s", e.Index, e.Expected, e.Got)
}

// ErrIndexOutOfRange is returned when an accessor is given an index outside
// the tuple's field count.
type ErrIndexOutOfRange struct {
	Index, Len int
}

func (e *ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("payload: index %d out of range (len %d)", e.Index, e.Len)
}

// storage is the shared, ref-counted backing array. Payload values never
// touch storage.fields directly after construction unless they are about to
// clone it; readers only read.
type storage struct {
	refs   int32
	fields []interface{}
}

func (s *storage) retain() {
	atomic.AddInt32(&s.refs, 1)
}

func (s *storage) shared() bool {
	return atomic.LoadInt32(&s.refs) > 1
}

// Payload is a reference-counted, copy-on-write tuple of typed fields. The
// zero value is not usable; construct with New.
type Payload struct {
	s *storage
}

// New builds a Payload from a fixed sequence of values. Fields keep their
// declaration order.
func New(fields ...interface{}) Payload {
	cp := make([]interface{}, len(fields))
	copy(cp, fields)
	return Payload{s: &storage{refs: 1, fields: cp}}
}

// Clone is an O(1) operation that shares the backing storage with the
// receiver; no copy happens until one of the two payloads is mutated.
func (p Payload) Clone() Payload {
	p.s.retain()
	return Payload{s: p.s}
}

// Len returns the field count.
func (p Payload) Len() int {
	return len(p.s.fields)
}

// TypeAt returns the Go type name of the field at index i, or an error if i
// is out of range.
func (p Payload) TypeAt(i int) (string, error) {
	if i < 0 || i >= len(p.s.fields) {
		return "", &ErrIndexOutOfRange{Index: i, Len: len(p.s.fields)}
	}
	return fmt.Sprintf("%T", p.s.fields[i]), nil
}

// At returns the raw value at index i.
func (p Payload) At(i int) (interface{}, error) {
	if i < 0 || i >= len(p.s.fields) {
		return nil, &ErrIndexOutOfRange{Index: i, Len: len(p.s.fields)}
	}
	return p.s.fields[i], nil
}

// Int reads field i as an int, failing with ErrTypeMismatch otherwise.
func (p Payload) Int(i int) (int, error) {
	v, err := p.At(i)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int)
	if !ok {
		return 0, &ErrTypeMismatch{Index: i, Expected: "int", Got: fmt.Sprintf("%T", v)}
	}
	return n, nil
}

// String reads field i as a string, failing with ErrTypeMismatch otherwise.
func (p Payload) String(i int) (string, error) {
	v, err := p.At(i)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", &ErrTypeMismatch{Index: i, Expected: "string", Got: fmt.Sprintf("%T", v)}
	}
	return s, nil
}

// Float64 reads field i as a float64, failing with ErrTypeMismatch otherwise.
func (p Payload) Float64(i int) (float64, error) {
	v, err := p.At(i)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, &ErrTypeMismatch{Index: i, Expected: "float64", Got: fmt.Sprintf("%T", v)}
	}
	return f, nil
}

// Mutate applies fn to a private copy of the tuple's fields and returns a new
// Payload over that copy. If the receiver's storage is not shared (refs==1)
// the clone is skipped and the existing backing array is mutated in place,
// since no other observer can witness the change. Mutation is always of the
// whole tuple, never a single field in isolation.
func (p Payload) Mutate(fn func(fields []interface{})) Payload {
	if !p.s.shared() {
		fn(p.s.fields)
		return p
	}
	cp := make([]interface{}, len(p.s.fields))
	copy(cp, p.s.fields)
	fn(cp)
	return Payload{s: &storage{refs: 1, fields: cp}}
}

// Fields returns a defensive copy of the tuple's fields, safe to range over
// without holding onto the payload's internal storage.
func (p Payload) Fields() []interface{} {
	cp := make([]interface{}, len(p.s.fields))
	copy(cp, p.s.fields)
	return cp
}

// Package behavior implements the ordered, typed callback list described in
// spec.md §3/§4.3: first declared, first matched against an incoming
// payload's field types, with left-biased OrElse composition and an
// optional inactivity timeout.
package behavior

import (
	"reflect"

	"github.com/relaypoint/actorcore/envelope"
	actorcontext "github.com/relaypoint/actorcore/internal/context"
)

// DefaultPolicy selects what happens when no callback in a Behavior matches
// an incoming payload.
type DefaultPolicy int

const (
	// Drop silently discards the unmatched message.
	Drop DefaultPolicy = iota
	// Reflect sends the message back to its own sender unchanged.
	Reflect
	// ReflectAndQuit reflects the message, then terminates the actor.
	ReflectAndQuit
	// PrintAndDrop logs the unmatched message and discards it.
	PrintAndDrop
	// Skip moves the message to the mailbox stash for reconsideration under
	// a future Behavior.
	Skip
)

// Handler is a typed clause's callback. It receives the acting context, the
// full envelope (for sender/correlation access beyond the matched fields,
// e.g. manual delegation), and the payload's matched fields. A false ok
// suppresses the automatic reply a request would otherwise receive.
type Handler func(ctx *actorcontext.Context, env envelope.Envelope, fields []interface{}) (response interface{}, ok bool)

// Clause is one typed callback: it matches payloads whose field types are
// element-wise assignable from ParamTypes, in order.
type Clause struct {
	ParamTypes []reflect.Type
	Handler    Handler
}

// Behavior is an ordered list of Clauses plus an optional inactivity
// timeout and default policy for unmatched messages.
type Behavior struct {
	clauses       []Clause
	timeout       *Timeout
	defaultPolicy DefaultPolicy
}

// Timeout pairs an inactivity window with the callback to invoke when it
// elapses.
type Timeout struct {
	Window   int64 // nanoseconds; stored as int64 to avoid importing time here
	Callback func(ctx *actorcontext.Context)
}

// New builds an empty Behavior with the given default policy for messages
// that match no clause.
func New(policy DefaultPolicy) *Behavior {
	return &Behavior{defaultPolicy: policy}
}

// On appends a clause matching the given parameter types, in order. Earlier
// On calls take precedence: first match wins.
func (b *Behavior) On(paramTypes []reflect.Type, handler Handler) *Behavior {
	b.clauses = append(b.clauses, Clause{ParamTypes: paramTypes, Handler: handler})
	return b
}

// WithTimeout installs an inactivity timeout, replacing any previous one.
func (b *Behavior) WithTimeout(windowNanos int64, callback func(ctx *actorcontext.Context)) *Behavior {
	b.timeout = &Timeout{Window: windowNanos, Callback: callback}
	return b
}

// GetTimeout returns the behavior's inactivity timeout, or nil if none is set.
func (b *Behavior) GetTimeout() *Timeout {
	return b.timeout
}

// DefaultPolicy returns b's policy for unmatched messages.
func (b *Behavior) DefaultPolicy() DefaultPolicy {
	return b.defaultPolicy
}

// OrElse returns a new Behavior whose clauses are b's, followed by other's,
// without reordering either side. b's timeout wins if set, otherwise
// other's is used; the default policy is always b's. This never mutates b
// or other.
func (b *Behavior) OrElse(other *Behavior) *Behavior {
	merged := &Behavior{
		clauses:       append(append([]Clause{}, b.clauses...), other.clauses...),
		timeout:       b.timeout,
		defaultPolicy: b.defaultPolicy,
	}
	if merged.timeout == nil {
		merged.timeout = other.timeout
	}
	return merged
}

// Match finds the first clause whose parameter types are element-wise
// assignable from env's payload field types and invokes it. matched is
// false if no clause matched, in which case the caller must apply
// DefaultPolicy.
func (b *Behavior) Match(ctx *actorcontext.Context, env envelope.Envelope) (response interface{}, matched bool, handlerRan bool) {
	fields := env.Payload.Fields()
	for _, c := range b.clauses {
		if !assignable(c.ParamTypes, fields) {
			continue
		}
		resp, ok := c.Handler(ctx, env, fields)
		return resp, true, ok
	}
	return nil, false, false
}

func assignable(paramTypes []reflect.Type, fields []interface{}) bool {
	if len(paramTypes) != len(fields) {
		return false
	}
	for i, want := range paramTypes {
		if fields[i] == nil {
			if want.Kind() != reflect.Ptr && want.Kind() != reflect.Interface {
				return false
			}
			continue
		}
		got := reflect.TypeOf(fields[i])
		if !got.AssignableTo(want) {
			return false
		}
	}
	return true
}

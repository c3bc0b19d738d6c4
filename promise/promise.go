// Package promise implements the response side of request/response
// correlation (spec.md §4.5) and single-hop delegation (§4.8): a Promise
// captures the reply address and correlation id off an incoming request so
// the handler can fulfil it exactly once, possibly from a different
// goroutine or after returning; Delegate forwards a request to another
// actor so that actor's reply lands directly on the original requester
// without the delegator staying in the path.
package promise

import (
	"sync/atomic"

	"github.com/relaypoint/actorcore/envelope"
	"github.com/relaypoint/actorcore/payload"
)

const (
	pending int32 = iota
	settled
)

// Promise captures where and how to answer one request.
type Promise struct {
	replyTo       envelope.Address
	correlationID uint64
	state         int32
}

// Capture builds a Promise from an incoming request envelope. Capturing a
// non-request envelope (CorrelationID 0) yields a Promise whose Fulfil/
// Reject calls are no-ops, since there is nowhere to reply to.
func Capture(env envelope.Envelope) *Promise {
	return &Promise{replyTo: env.ReplyTo(), correlationID: env.CorrelationID}
}

// Fulfil delivers value as the response, tagged with the captured
// correlation id, from self. It is a no-op past the first call, or if the
// original envelope was not a request.
func (p *Promise) Fulfil(self envelope.Address, value interface{}) bool {
	if p.correlationID == 0 || p.replyTo == nil {
		return false
	}
	if !atomic.CompareAndSwapInt32(&p.state, pending, settled) {
		return false
	}
	p.replyTo.Deliver(envelope.New(payload.New(value), self).WithCorrelationID(p.correlationID))
	return true
}

// Reject delivers err as the response in place of a value.
func (p *Promise) Reject(self envelope.Address, err error) bool {
	return p.Fulfil(self, err)
}

// Settled reports whether Fulfil/Reject has already been called.
func (p *Promise) Settled() bool {
	return atomic.LoadInt32(&p.state) == settled
}

// Delegate re-delivers env to another actor unchanged, so that actor's
// eventual reply (via its own Promise captured off the same envelope) goes
// straight back to the original requester; the delegator is never on the
// reply path and need not itself settle a Promise for this request.
func Delegate(env envelope.Envelope, to envelope.Address) {
	to.Deliver(env)
}

// Intercept returns a copy of env with self pushed onto the forwarding
// stack, for a delegator that wants replies routed through itself first
// (to transform or audit the response) before manually relaying them
// onward with a Promise captured off the returned envelope.
func Intercept(env envelope.Envelope, self envelope.Address) envelope.Envelope {
	return env.Forward(self)
}

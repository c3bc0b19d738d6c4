package actor

import (
	"time"

	"github.com/relaypoint/actorcore/envelope"
	"github.com/relaypoint/actorcore/internal/pid"
	"github.com/relaypoint/actorcore/payload"
	"github.com/relaypoint/actorcore/request"
)

// FutureActor is a one-shot address a caller can hand out as the Sender of
// a request, then block on for the single reply. Grounded on the
// teacher's futureActor (actor/future_actor.go). It does not monitor the
// target: a request delivered to an already-terminated receiver, or still
// queued when the receiver terminates, is answered with a
// request_receiver_down error, but a receiver that terminates while
// handling the request sends no reply, and only RecvWithTimeout's window
// ends the wait.
type FutureActor struct {
	future *pid.FuturePID
}

// NewFutureActor allocates a FutureActor.
func NewFutureActor() *FutureActor {
	return &FutureActor{future: pid.NewFuturePID()}
}

// Self returns the address to hand out as a request's Sender.
func (f *FutureActor) Self() envelope.Address {
	return f.future
}

// Send delivers values to to as a request tagged with a fresh correlation
// id, from this future.
func (f *FutureActor) Send(to envelope.Address, values ...interface{}) {
	to.Deliver(envelope.New(payload.New(values...), f.future).WithCorrelationID(request.NextCorrelationID()))
}

// Recv blocks forever for the single reply.
func (f *FutureActor) Recv() (interface{}, error) {
	return f.RecvWithTimeout(0)
}

// RecvWithTimeout blocks up to d (zero means forever) for the single
// reply.
func (f *FutureActor) RecvWithTimeout(d time.Duration) (interface{}, error) {
	env, err := f.future.Await(d)
	if err != nil {
		return nil, err
	}
	fields := env.Payload.Fields()
	if len(fields) == 1 {
		return fields[0], nil
	}
	return fields, nil
}

// Dispose releases the future early, unblocking any pending Recv with
// pid.ErrDisposed.
func (f *FutureActor) Dispose() {
	f.future.Dispose()
}

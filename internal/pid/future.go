package pid

import (
	"time"

	"github.com/relaypoint/actorcore/envelope"
)

// ErrDisposed is delivered to a FuturePID's waiter if the future is closed
// before a reply arrives.
type ErrDisposed struct{}

func (ErrDisposed) Error() string { return "future: disposed before a reply arrived" }

// ErrAwaitTimeout is returned by Await when no reply arrives within the
// requested window.
type ErrAwaitTimeout struct{}

func (ErrAwaitTimeout) Error() string { return "future: timed out waiting for a reply" }

// FuturePID is a one-shot address for a goroutine blocked on a single
// reply: the blocking-receive style of request/response (spec.md §4.5),
// rather than an actor scheduled by the worker pool. Grounded on the
// teacher's FutureMailbox, generalized to implement envelope.Address
// directly instead of going through a Mailbox indirection it doesn't need.
type FuturePID struct {
	id   ID
	ch   chan envelope.Envelope
	done chan struct{}
}

// NewFuturePID allocates a single-slot future address.
func NewFuturePID() *FuturePID {
	return &FuturePID{
		id:   NextID(),
		ch:   make(chan envelope.Envelope, 1),
		done: make(chan struct{}),
	}
}

func (f *FuturePID) ID() string {
	return f.id.String()
}

// Deliver fulfils the future, unless it has already been disposed.
func (f *FuturePID) Deliver(env envelope.Envelope) {
	select {
	case f.ch <- env:
	case <-f.done:
	}
}

// Await blocks until a reply is delivered or d elapses (zero means wait
// forever), returning the envelope, ErrAwaitTimeout once d elapses, or
// ErrDisposed if the future is disposed first.
func (f *FuturePID) Await(d time.Duration) (envelope.Envelope, error) {
	if d <= 0 {
		select {
		case env := <-f.ch:
			return env, nil
		case <-f.done:
			return envelope.Envelope{}, ErrDisposed{}
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case env := <-f.ch:
		return env, nil
	case <-timer.C:
		return envelope.Envelope{}, ErrAwaitTimeout{}
	case <-f.done:
		return envelope.Envelope{}, ErrDisposed{}
	}
}

// Dispose releases any goroutine blocked in Await with ErrDisposed.
func (f *FuturePID) Dispose() {
	close(f.done)
}

var _ envelope.Address = (*FuturePID)(nil)

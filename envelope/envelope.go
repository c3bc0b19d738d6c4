// Package envelope implements the message-in-transit wrapper described in
// spec.md §3/§4.2: a payload plus sender, correlation id, priority band, and
// forwarding stack. Envelopes are created at send time and destroyed after
// final delivery.
package envelope

import "github.com/relaypoint/actorcore/payload"

// Priority is the mailbox band an envelope travels on.
type Priority int

const (
	// Normal is the default band.
	Normal Priority = iota
	// Urgent envelopes are always dequeued before any pending Normal one.
	Urgent
)

// Address is the minimal capability an envelope needs from a destination:
// something that can accept a fully-formed Envelope. internal/pid.PID
// implements this so envelopes never need to import the pid package,
// keeping payload/envelope free of any actor-runtime dependency.
type Address interface {
	ID() string
	Deliver(Envelope)
}

// Envelope wraps a Payload in transit between two actors.
type Envelope struct {
	Payload       payload.Payload
	Sender        Address
	CorrelationID uint64
	Priority      Priority
	// Stages is the forwarding stack (§4.8 delegation): each entry is an
	// actor responsible for eventually replying, most recently pushed last.
	Stages []Address
}

// New builds a fire-and-forget envelope (CorrelationID 0) carrying p.
func New(p payload.Payload, sender Address) Envelope {
	return Envelope{Payload: p, Sender: sender, Priority: Normal}
}

// WithCorrelationID returns a copy of e tagged as a request with id.
func (e Envelope) WithCorrelationID(id uint64) Envelope {
	e.CorrelationID = id
	return e
}

// WithPriority returns a copy of e on the given band.
func (e Envelope) WithPriority(p Priority) Envelope {
	e.Priority = p
	return e
}

// IsRequest reports whether e carries a positive correlation id.
func (e Envelope) IsRequest() bool {
	return e.CorrelationID != 0
}

// ReplyTo returns the address a response to e should be sent to: the top of
// the forwarding stack if delegation pushed one, otherwise the original
// sender.
func (e Envelope) ReplyTo() Address {
	if len(e.Stages) > 0 {
		return e.Stages[len(e.Stages)-1]
	}
	return e.Sender
}

// Forward returns a copy of e with actor pushed onto the forwarding stack,
// used by delegation to atomically transfer reply responsibility.
func (e Envelope) Forward(actor Address) Envelope {
	stages := make([]Address, len(e.Stages), len(e.Stages)+1)
	copy(stages, e.Stages)
	e.Stages = append(stages, actor)
	return e
}

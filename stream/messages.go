// Package stream implements the credit-based flow control layer of
// spec.md §4.9: a Source pulls elements on demand, zero or more Stages
// transform or filter them, and a terminal Sink consumes them, with
// explicit per-link credit grants bounding how far ahead upstream is
// allowed to run. Grounded on the shape of the teacher's kphelps-actors
// Source/Sink naming (event_stream.go), generalized from unbounded Go
// channels to an explicit open/ack handshake and credit messages carried
// over actor.ACB mailboxes the same way every other message in this module
// travels, since nothing in the retrieval pack implements a credit
// protocol directly.
package stream

import (
	"github.com/rs/xid"

	"github.com/relaypoint/actorcore/envelope"
)

// id identifies one source-to-sink link's credit session.
type id string

func newID() id {
	return id(xid.New().String())
}

// openStream is sent by a sink (or a stage acting as one) to its upstream,
// carrying the initial credit grant and the address to reply to.
type openStream struct {
	id     id
	credit int
	sink   envelope.Address
}

// streamAck confirms an openStream handshake, letting the sink know its
// upstream is ready to emit.
type streamAck struct {
	id id
}

// data carries a batch of elements, each one debiting the sender's credit
// balance by one.
type data struct {
	id       id
	elements []interface{}
}

// creditGrant replenishes the sender's upstream credit balance.
type creditGrant struct {
	id     id
	amount int
}

// endOfStream marks a clean completion; no further data for id follows.
type endOfStream struct {
	id id
}

// abort marks an unclean completion, carrying the error that caused it.
type abort struct {
	id  id
	err error
}

const (
	defaultCredit    = 16
	defaultReplenish = 8
)

// Package sysmsg declares the system-message vocabulary that flows over an
// actor's urgent band: exit propagation, shutdown commands, and link/monitor
// (de)registration requests. Grounded on the teacher's own sysmsg package,
// generalized to carry a structured actorerr.ExitReason instead of a bare
// string.
package sysmsg

import "github.com/relaypoint/actorcore/actorerr"

// SystemMessage marks a type as deliverable on an actor's system channel.
type SystemMessage interface {
	systemMessage()
}

// Relation describes why the receiver of an Exit message cares about it.
type Relation string

const (
	// Linked means the receiver is symmetrically linked to Who.
	Linked Relation = "linked"
	// Monitored means the receiver asymmetrically monitors Who.
	Monitored Relation = "monitored"
)

// Exit notifies a linked or monitoring actor that Who terminated.
type Exit struct {
	// Who is the actor identifier (opaque to this package) that terminated.
	Who interface{}
	// Parent is the actor that caused the termination, if any (e.g. the
	// linked peer whose own exit propagated here).
	Parent interface{}
	// Reason carries the structured exit reason.
	Reason actorerr.ExitReason
	// Relation is Linked or Monitored, set by the sender based on which
	// edge this notification is traveling.
	Relation Relation
}

func (Exit) systemMessage() {}

// Shutdown is sent by a supervisor to terminate a supervised actor.
type Shutdown struct {
	// Parent is the commanding supervisor's identifier.
	Parent interface{}
	// GracePeriod carries the child's declared shutdown value from its spec
	// (milliseconds, or -1 for no limit). Receivers do not read it, and
	// nothing kills a target that has not exited once it elapses.
	GracePeriod int32
}

func (Shutdown) systemMessage() {}

// Monitor (de)registers an asymmetric observer edge.
type Monitor struct {
	// Observer is the actor asking to be notified (or to stop being
	// notified) of the receiver's termination.
	Observer interface{}
	// Revert is true when this is a demonitor request.
	Revert bool
}

func (Monitor) systemMessage() {}

// Link (un)registers a symmetric supervision edge.
type Link struct {
	// To is the peer actor identifier the receiver should link to (or
	// unlink from).
	To interface{}
	// Revert is true when this is an unlink request.
	Revert bool
}

func (Link) systemMessage() {}

// Timeout names a behavior's inactivity window elapsing with no message
// delivered. Nothing in the runtime sends it.
type Timeout struct{}

func (Timeout) systemMessage() {}

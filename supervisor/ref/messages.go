// Package ref implements the supervisor control plane (spec.md §4.6): a
// Ref is the address handle returned by supervisor.StartLink, and these
// message types are its request/response vocabulary, exchanged with the
// supervisor's dedicated actor via actor.FutureActor the same way the
// teacher's ref package does. Grounded on the teacher's
// supervisor/ref/messages.go, generalized to the new pid.ProtectedPID and
// supervisor/spec surfaces.
package ref

import (
	"fmt"

	"github.com/relaypoint/actorcore/envelope"
	"github.com/relaypoint/actorcore/supervisor/spec"
)

// Error marks a reply as a failure; any error value satisfies it.
type Error error

func errInvalidResponse(resp interface{}) error {
	return fmt.Errorf("supervisor has sent invalid response: %v", resp)
}

// Call wraps a control-plane request with the FutureActor address the
// supervisor should reply to.
type Call struct {
	Sender  envelope.Address
	Request interface{}
}

// OK represents a successful result carrying no further data.
type OK struct{}

// CountChildren reports the supervisor's child counts, broken down by
// kind and liveness.
type CountChildren struct {
	// Specs is the total count of children, dead or alive.
	Specs int
	// Active is the count of all currently running children.
	Active int
	// Supervisors is the count of children that are nested supervisors,
	// regardless of whether the child process is still alive.
	Supervisors int
	// Workers is the count of children that are plain workers, regardless
	// of whether the child process is still alive.
	Workers int
}

// DeleteChild removes a non-running child's spec from the supervisor.
type DeleteChild struct {
	ID string
}

// RestartChild restarts a child that isn't currently running.
type RestartChild struct {
	ID string
}

// StartChild adds a new child spec and starts it.
type StartChild struct {
	Spec spec.Spec
}

// Stop asks the supervisor to shut down all its children and itself.
type Stop struct {
	Reason string
}

// TerminateChild stops a running child without removing its spec.
type TerminateChild struct {
	ID string
}

// WithChildren lists every child the supervisor currently knows about.
type WithChildren struct {
	ChildrenInfo []spec.ChildInfo
}

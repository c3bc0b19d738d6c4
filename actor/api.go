package actor

import (
	"time"

	actorcontext "github.com/relaypoint/actorcore/internal/context"
	"github.com/relaypoint/actorcore/internal/pid"

	"github.com/relaypoint/actorcore/actorerr"
	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/envelope"
	"github.com/relaypoint/actorcore/payload"
	"github.com/relaypoint/actorcore/request"
)

// Func is the body of a dedicated-thread actor (spec.md §4.4): one the
// scheduler never schedules because it owns its own goroutine and blocks
// on ctx.ReceiveBlocking, the way the teacher's every actor used to.
type Func func(ctx *actorcontext.Context)

// SpawnDedicated builds an ACB and runs fn on a goroutine of its own,
// recovering any panic into the normal Exit/link/monitor machinery. Use
// this for actors that must not be time-sliced by the worker pool: the
// process registry, futures, and top-level supervisors.
func SpawnDedicated(cfg config.Config, fn Func, args ...interface{}) *ACB {
	a := New(cfg, nil, args...)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.terminate(exitReasonFromRecover(r))
				return
			}
			a.terminate(actorerr.ExitReason{Code: actorerr.ExitNormal})
		}()
		fn(a.Context())
	}()
	return a
}

// FuncACB is a dedicated-thread actor body that receives its own ACB
// instead of only its Context, for actors (supervisors) that need
// SetKind/Link bookkeeping or a privileged self-Terminate in addition to
// the plain mailbox-receive surface Func gets.
type FuncACB func(acb *ACB)

// SpawnDedicatedACB is SpawnDedicated for a FuncACB body.
func SpawnDedicatedACB(cfg config.Config, fn FuncACB, args ...interface{}) *ACB {
	a := New(cfg, nil, args...)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.terminate(exitReasonFromRecover(r))
				return
			}
			a.terminate(actorerr.ExitReason{Code: actorerr.ExitNormal})
		}()
		fn(a)
	}()
	return a
}

// Send delivers values, wrapped in a fire-and-forget envelope from
// nowhere in particular, to to.
func Send(to envelope.Address, values ...interface{}) {
	to.Deliver(envelope.New(payload.New(values...), nil))
}

// Tell delivers values to to, attributing from as the sender so to's
// handler can reply.
func Tell(from envelope.Address, to envelope.Address, values ...interface{}) {
	to.Deliver(envelope.New(payload.New(values...), from))
}

// Request sends values to to as a request and blocks up to timeout (zero
// means forever) for a single reply, using a one-shot FuturePID the way
// the teacher's futureActor did. This is the blocking-receive style of
// request/response (spec.md §4.5); actors running under the scheduler
// should prefer the non-blocking request.Table + Promise pair instead,
// since blocking here ties up a whole worker.
func Request(to envelope.Address, timeout time.Duration, values ...interface{}) (interface{}, error) {
	future := pid.NewFuturePID()
	defer future.Dispose()

	to.Deliver(envelope.New(payload.New(values...), future).WithCorrelationID(request.NextCorrelationID()))

	env, err := future.Await(timeout)
	if err != nil {
		return nil, err
	}
	return env.Payload.Fields(), nil
}

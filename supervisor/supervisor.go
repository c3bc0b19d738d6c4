package supervisor

import (
	"github.com/relaypoint/actorcore/actor"
	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/envelope"
	"github.com/relaypoint/actorcore/internal/pid"
	"github.com/relaypoint/actorcore/supervisor/ref"
	"github.com/relaypoint/actorcore/supervisor/spec"
	"github.com/relaypoint/actorcore/sysmsg"
)

// Ref re-exports ref.Ref for callers that only import supervisor.
type Ref = ref.Ref

// StartLink starts a supervisor over children under opts (spec.md §4.6),
// returning a Ref once every child has started successfully. It does not
// link the new supervisor to the caller; a parent supervisor that starts
// it through a SupervisorSpec links to it itself. Each nested
// SupervisorSpec's own StartLink closure typically calls back into this
// same function for its own subtree.
func StartLink(opts Options, children ...spec.Spec) (*ref.Ref, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	specs, err := spec.ToMap(children...)
	if err != nil {
		return nil, err
	}

	started := make(chan error, 1)
	acb := actor.SpawnDedicatedACB(config.Default(), func(self *actor.ACB) {
		self.SetKind(actor.Supervisor)
		st := newState(self, config.Default(), specs, opts)
		if err := st.init(); err != nil {
			started <- err
			return
		}
		started <- nil
		run(self, st)
	})

	if err := <-started; err != nil {
		return nil, err
	}
	return &ref.Ref{PID: acb.Self()}, nil
}

// run is the supervisor's dedicated receive loop: every link/monitor
// system message and every ref.Call control-plane request it owns arrives
// here as a plain mailbox item, since a dedicated actor is never driven
// through actor.ACB.RunQuantum/handleSystemMessage.
func run(self *actor.ACB, st *state) {
	for {
		v, ok := self.Context().ReceiveBlocking(0)
		if !ok {
			return
		}

		switch msg := v.(type) {
		case sysmsg.Exit:
			st.handleExit(msg)
		case sysmsg.Shutdown:
			st.shutdownAll()
			return
		case sysmsg.Link:
			to, ok := msg.To.(*pid.PID)
			if !ok {
				continue
			}
			if msg.Revert {
				self.ReleaseLink(to)
			} else {
				self.AcceptLink(to)
			}
		case sysmsg.Monitor:
			observer, ok := msg.Observer.(*pid.PID)
			if !ok {
				continue
			}
			if msg.Revert {
				self.ReleaseMonitor(observer)
			} else {
				self.AcceptMonitor(observer)
			}
		case envelope.Envelope:
			if !st.handleCall(msg) {
				return
			}
		}
	}
}

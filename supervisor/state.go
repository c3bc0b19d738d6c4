package supervisor

import (
	"fmt"

	"github.com/relaypoint/actorcore/actor"
	"github.com/relaypoint/actorcore/actorerr"
	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/envelope"
	"github.com/relaypoint/actorcore/internal/pid"
	"github.com/relaypoint/actorcore/supervisor/ref"
	"github.com/relaypoint/actorcore/supervisor/spec"
	"github.com/relaypoint/actorcore/sysmsg"
)

// child is one running (or already-reaped) entry in a supervisor's child
// table. acb is non-nil only for directly-owned workers: nested
// supervisors are only ever known by their ProtectedPID, so shutting one
// down goes through a sysmsg.Shutdown message instead of ACB.Terminate.
type child struct {
	id   string
	acb  *actor.ACB
	ppid *pid.ProtectedPID
	kind spec.ChildType
}

// state is the supervisor's private bookkeeping, driven entirely from the
// dedicated actor's own receive loop (run, in supervisor.go). Grounded on
// the teacher's supervisor/state.go, generalized from a PID-keyed registry
// and a stubbed handleRestForOne to a string-id-keyed restartTracker plus
// a genuine declaration-order walk over spec.SpecsMap.
type state struct {
	self     *actor.ACB
	cfg      config.Config
	specs    spec.SpecsMap
	options  Options
	restarts *restartTracker
	children map[string]*child
	byPID    map[pid.ID]string
}

func newState(self *actor.ACB, cfg config.Config, specs spec.SpecsMap, opts Options) *state {
	return &state{
		self:     self,
		cfg:      cfg,
		specs:    specs,
		options:  opts,
		restarts: newRestartTracker(opts),
		children: make(map[string]*child, specs.Len()),
		byPID:    make(map[pid.ID]string, specs.Len()),
	}
}

// init starts every child spec in declaration order, unwinding anything
// already started if one fails to start.
func (st *state) init() error {
	for _, id := range st.specs.Order() {
		if err := st.spawn(id); err != nil {
			st.shutdownAll()
			return err
		}
	}
	return nil
}

// spawn starts id's child, links it to this supervisor, and records it.
func (st *state) spawn(id string) error {
	switch st.specs.Type(id) {
	case spec.TypeWorker:
		w, _ := st.specs.Worker(id)
		acb := actor.SpawnDedicated(st.cfg, w.Func, w.Args...)
		acb.SetSupervisor(st.self.PID())
		st.self.Link(acb.PID())
		acb.AcceptLink(st.self.PID())
		st.children[id] = &child{id: id, acb: acb, ppid: acb.Self(), kind: spec.TypeWorker}
		st.byPID[acb.PID().ActorID()] = id
	case spec.TypeSupervisor:
		sp, _ := st.specs.Supervisor(id)
		childRef, err := sp.StartLink(sp.Children...)
		if err != nil {
			return fmt.Errorf("supervisor: starting nested supervisor %s: %w", id, err)
		}
		raw := pid.Extract(childRef)
		st.self.Link(raw)
		st.children[id] = &child{id: id, ppid: childRef, kind: spec.TypeSupervisor}
		st.byPID[raw.ActorID()] = id
	}
	return nil
}

// handleExit reacts to a sysmsg.Exit for a linked child: decides whether
// to restart it (and, depending on Strategy, its siblings) or let it stay
// dead, per spec.md §4.6.
func (st *state) handleExit(msg sysmsg.Exit) {
	who, ok := msg.Who.(*pid.PID)
	if !ok {
		return
	}
	id, tracked := st.byPID[who.ActorID()]
	if !tracked {
		return
	}
	delete(st.byPID, who.ActorID())
	delete(st.children, id)
	st.self.Unlink(who)

	policy := st.specs.Restart(id)
	if policy == spec.RestartNever || (policy == spec.RestartTransient && msg.Reason.Normal()) {
		return
	}

	if st.restarts.noteRestart(id) {
		st.escalate(actorerr.ExitReason{
			Code:    actorerr.ExitUnhandledException,
			Details: fmt.Sprintf("child %s exceeded its restart budget", id),
		})
		return
	}

	switch st.options.Strategy {
	case OneForOneStrategy:
		st.restartOne(id)
	case OneForAllStrategy:
		st.restartAll()
	case RestForOneStrategy:
		st.restartFrom(id)
	}
}

func (st *state) restartOne(id string) {
	if err := st.spawn(id); err != nil {
		st.escalate(actorerr.ExitReason{Code: actorerr.ExitUnhandledException, Details: err})
	}
}

func (st *state) restartAll() {
	st.killSiblings(st.specs.Order())
	st.respawnAll(st.specs.Order())
}

func (st *state) restartFrom(id string) {
	ids := append([]string{id}, st.specs.After(id)...)
	st.killSiblings(ids)
	st.respawnAll(ids)
}

// killSiblings force-terminates whichever of ids are still alive; the id
// that just triggered this restart is already dead and simply absent from
// st.children.
func (st *state) killSiblings(ids []string) {
	for _, id := range ids {
		c, alive := st.children[id]
		if !alive {
			continue
		}
		delete(st.byPID, pid.Extract(c.ppid).ActorID())
		delete(st.children, id)
		st.self.Unlink(pid.Extract(c.ppid))
		st.terminateChild(c, actorerr.ExitReason{Code: actorerr.ExitKill, Details: "sibling restart"})
	}
}

func (st *state) respawnAll(ids []string) {
	for _, id := range ids {
		if err := st.spawn(id); err != nil {
			st.escalate(actorerr.ExitReason{Code: actorerr.ExitUnhandledException, Details: err})
			return
		}
	}
}

// terminateChild force-kills a worker immediately, or cooperatively asks a
// nested supervisor to shut down (it has no ACB we can call Terminate on).
func (st *state) terminateChild(c *child, reason actorerr.ExitReason) {
	switch c.kind {
	case spec.TypeWorker:
		if c.acb != nil {
			c.acb.Terminate(reason)
		}
	case spec.TypeSupervisor:
		pid.Extract(c.ppid).DeliverSystem(sysmsg.Shutdown{Parent: st.self.PID()})
	}
}

// shutdownChild removes id's child from the child table and stops it: a
// worker declared ShutdownKill is terminated at once; any other child is
// sent a sysmsg.Shutdown carrying its declared grace period, and the
// supervisor neither waits for it to exit nor kills it afterwards.
func (st *state) shutdownChild(id string) {
	c, alive := st.children[id]
	if !alive {
		return
	}
	delete(st.byPID, pid.Extract(c.ppid).ActorID())
	delete(st.children, id)
	st.self.Unlink(pid.Extract(c.ppid))

	grace := st.specs.Shutdown(id)
	switch c.kind {
	case spec.TypeWorker:
		if c.acb == nil {
			return
		}
		if grace == spec.ShutdownKill {
			c.acb.Terminate(actorerr.ExitReason{Code: actorerr.ExitUserShutdown, Details: "terminated by supervisor"})
			return
		}
		pid.Extract(c.ppid).DeliverSystem(sysmsg.Shutdown{Parent: st.self.PID(), GracePeriod: int32(grace)})
	case spec.TypeSupervisor:
		pid.Extract(c.ppid).DeliverSystem(sysmsg.Shutdown{Parent: st.self.PID(), GracePeriod: int32(grace)})
	}
}

// shutdownAll stops every currently running child, in declaration order.
func (st *state) shutdownAll() {
	for _, id := range st.specs.Order() {
		st.shutdownChild(id)
	}
}

// escalate gives up on this supervisor's own restart budget: it shuts down
// every remaining child, then panics so the enclosing SpawnDedicatedACB
// recover cascades this supervisor's own abnormal exit to whoever links or
// monitors it, the way the teacher's shutdownSupervisor did.
func (st *state) escalate(reason actorerr.ExitReason) {
	st.shutdownAll()
	panic(sysmsg.Exit{Who: st.self.PID(), Reason: reason, Relation: sysmsg.Linked})
}

// handleCall answers one ref.Call request, returning false only when the
// supervisor itself should stop running (a Stop request).
func (st *state) handleCall(env envelope.Envelope) bool {
	if env.Payload.Len() == 0 {
		return true
	}
	field, err := env.Payload.At(0)
	if err != nil {
		return true
	}
	call, ok := field.(ref.Call)
	if !ok {
		return true
	}

	switch request := call.Request.(type) {
	case ref.CountChildren:
		request.Specs = st.specs.Len()
		request.Active = len(st.children)
		for _, id := range st.specs.Order() {
			if st.specs.Type(id) == spec.TypeSupervisor {
				request.Supervisors++
			} else {
				request.Workers++
			}
		}
		actor.Send(call.Sender, request)
	case ref.DeleteChild:
		if _, exists := st.specs.Get(request.ID); !exists {
			actor.Send(call.Sender, fmt.Errorf("supervisor: child %s does not exist", request.ID))
			return true
		}
		if _, alive := st.children[request.ID]; alive {
			actor.Send(call.Sender, fmt.Errorf("supervisor: running child %s cannot be deleted", request.ID))
			return true
		}
		st.specs.Delete(request.ID)
		st.restarts.forget(request.ID)
		actor.Send(call.Sender, ref.OK{})
	case ref.RestartChild:
		if _, exists := st.specs.Get(request.ID); !exists {
			actor.Send(call.Sender, fmt.Errorf("supervisor: child %s does not exist", request.ID))
			return true
		}
		if _, alive := st.children[request.ID]; alive {
			actor.Send(call.Sender, fmt.Errorf("supervisor: running child %s cannot be restarted", request.ID))
			return true
		}
		if err := st.spawn(request.ID); err != nil {
			actor.Send(call.Sender, err)
			return true
		}
		actor.Send(call.Sender, ref.OK{})
	case ref.StartChild:
		id := spec.ID(request.Spec)
		if _, exists := st.specs.Get(id); exists {
			actor.Send(call.Sender, fmt.Errorf("supervisor: a child spec with id %s already exists", id))
			return true
		}
		if err := st.specs.Add(request.Spec); err != nil {
			actor.Send(call.Sender, err)
			return true
		}
		if err := st.spawn(id); err != nil {
			actor.Send(call.Sender, err)
			return true
		}
		actor.Send(call.Sender, ref.OK{})
	case ref.Stop:
		st.shutdownAll()
		actor.Send(call.Sender, ref.OK{})
		return false
	case ref.TerminateChild:
		if _, exists := st.specs.Get(request.ID); !exists {
			actor.Send(call.Sender, fmt.Errorf("supervisor: child %s does not exist", request.ID))
			return true
		}
		if _, alive := st.children[request.ID]; !alive {
			actor.Send(call.Sender, fmt.Errorf("supervisor: child %s is not running", request.ID))
			return true
		}
		st.shutdownChild(request.ID)
		actor.Send(call.Sender, ref.OK{})
	case ref.WithChildren:
		infos := make([]spec.ChildInfo, 0, st.specs.Len())
		for _, id := range st.specs.Order() {
			info := spec.ChildInfo{ID: id, Type: st.specs.Type(id)}
			if c, alive := st.children[id]; alive {
				info.PID = c.ppid
			}
			infos = append(infos, info)
		}
		request.ChildrenInfo = infos
		actor.Send(call.Sender, request)
	}
	return true
}

// Package actor implements the actor control block (ACB) described in
// spec.md §3/§4: mailbox-addressable state plus links, monitors, a typed
// Behavior, and the request/response table it uses as a client. Grounded
// on the teacher's Actor type (actor/actor.go) and its system_handler.go,
// generalized from one goroutine-per-actor with a blocking Receive loop to
// a state machine the scheduler drives in bounded quanta, and from a
// single global panic-exit reason to the structured actorerr.ExitReason.
package actor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/relaypoint/actorcore/actorerr"
	"github.com/relaypoint/actorcore/behavior"
	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/envelope"
	actorcontext "github.com/relaypoint/actorcore/internal/context"
	"github.com/relaypoint/actorcore/internal/pid"
	"github.com/relaypoint/actorcore/payload"
	"github.com/relaypoint/actorcore/promise"
	"github.com/relaypoint/actorcore/request"
	"github.com/relaypoint/actorcore/sysmsg"
)

// Kind distinguishes ordinary workers from supervisors, which get a chance
// to shut down their children before propagating their own exit.
type Kind int32

const (
	Worker Kind = iota
	Supervisor
)

const (
	trapExitNo int32 = iota
	trapExitYes
)

const (
	notRunning int32 = iota
	runningNow
)

// ACB is one actor's full runtime state.
type ACB struct {
	ctx      *actorcontext.Context
	requests *request.Table

	mu       sync.Mutex
	behave   *behavior.Behavior
	linked   map[pid.ID]*pid.PID
	monitors map[pid.ID]*pid.PID
	supervisedBy *pid.PID

	trapExit int32
	kind     int32
	running  int32
}

// New allocates an ACB with a fresh PID/mailbox built from cfg. onReady is
// the scheduler's hook for learning when this actor becomes runnable again.
func New(cfg config.Config, onReady func(), args ...interface{}) *ACB {
	p := pid.New(cfg, onReady)
	return &ACB{
		ctx:      actorcontext.New(p, args),
		requests: request.NewTable(),
		linked:   make(map[pid.ID]*pid.PID),
		monitors: make(map[pid.ID]*pid.PID),
	}
}

// Context returns the handle passed to the actor's own callbacks.
func (a *ACB) Context() *actorcontext.Context {
	return a.ctx
}

// PID returns the actor's raw identifier/mailbox handle, for use by the
// scheduler and supervisor packages that need the full surface.
func (a *ACB) PID() *pid.PID {
	return a.ctx.Self()
}

// Self returns the actor's externally-safe address handle.
func (a *ACB) Self() *pid.ProtectedPID {
	return pid.Protect(a.PID())
}

// Requests returns the actor's outstanding-request table.
func (a *ACB) Requests() *request.Table {
	return a.requests
}

// AwaitRequest sends values to to as an await-style request and keeps
// processing other mailbox traffic while it is outstanding. then fires
// once this request and every more-recently-sent await have all replied,
// in reverse send order (spec.md §4.6's "Await LIFO": the innermost await
// resolves first, regardless of arrival order). timeout zero means no
// deadline.
func (a *ACB) AwaitRequest(to envelope.Address, timeout time.Duration, then request.Then, values ...interface{}) {
	a.sendRequest(to, timeout, then, true, values...)
}

// ThenRequest sends values to to as a multiplexed request: then fires as
// soon as its own reply arrives, independent of any other outstanding
// request. timeout zero means no deadline.
func (a *ACB) ThenRequest(to envelope.Address, timeout time.Duration, then request.Then, values ...interface{}) {
	a.sendRequest(to, timeout, then, false, values...)
}

func (a *ACB) sendRequest(to envelope.Address, timeout time.Duration, then request.Then, awaitStyle bool, values ...interface{}) {
	id := request.NextCorrelationID()
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	a.requests.Register(&request.Pending{
		CorrelationID: id,
		Target:        to,
		Deadline:      deadline,
		Then:          then,
	}, awaitStyle)
	to.Deliver(envelope.New(payload.New(values...), a.Self()).WithCorrelationID(id))
}

// resolveRequest checks whether env answers one of this actor's own
// outstanding requests, routing it to request.Table instead of the
// Behavior if so. It reports whether env was consumed this way.
func (a *ACB) resolveRequest(env envelope.Envelope) bool {
	if !env.IsRequest() {
		return false
	}
	p, ok := a.requests.Peek(env.CorrelationID)
	if !ok {
		return false
	}
	if !p.Awaited {
		if pend, resolved := a.requests.Resolve(env.CorrelationID); resolved && pend.Then != nil {
			pend.Then(env, nil)
		}
		return true
	}
	a.requests.BufferAwaitResponse(env.CorrelationID, env)
	for _, ready := range a.requests.DrainReadyAwaits() {
		if ready.Pending.Then != nil {
			ready.Pending.Then(ready.Reply, nil)
		}
	}
	return true
}

// SetBehavior installs b as the actor's current message-matching behavior,
// replacing whatever was set before (used by Become).
func (a *ACB) SetBehavior(b *behavior.Behavior) {
	a.mu.Lock()
	a.behave = b
	a.mu.Unlock()
}

func (a *ACB) currentBehavior() *behavior.Behavior {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.behave
}

// SetKind marks the actor as a worker or a supervisor; supervisors get a
// chance to shut down their children on an abnormal exit.
func (a *ACB) SetKind(k Kind) {
	atomic.StoreInt32(&a.kind, int32(k))
}

func (a *ACB) kindOf() Kind {
	return Kind(atomic.LoadInt32(&a.kind))
}

// Running reports whether a worker is currently inside RunQuantum for this
// actor. The mailbox's onReady hook consults this before re-enqueuing: spec.md
// §5 requires at most one worker executing a handler of a at a time, and
// onReady can otherwise fire while a worker is still mid-quantum, landing the
// same *ACB on a deque a second time.
func (a *ACB) Running() bool {
	return atomic.LoadInt32(&a.running) == runningNow
}

// SetSupervisor records the supervisor that spawned this actor, so it is
// never itself shut down while propagating its own Exit upward.
func (a *ACB) SetSupervisor(sup *pid.PID) {
	a.mu.Lock()
	a.supervisedBy = sup
	a.mu.Unlock()
}

// TrapExit toggles whether Exit/Shutdown system messages are delivered to
// the actor's own Behavior instead of terminating it.
func (a *ACB) TrapExit(trap bool) {
	v := trapExitNo
	if trap {
		v = trapExitYes
	}
	atomic.StoreInt32(&a.trapExit, int32(v))
}

func (a *ACB) trapExited() bool {
	return atomic.LoadInt32(&a.trapExit) == trapExitYes
}

// Link establishes a symmetric supervision edge with other: both sides
// notify each other of termination, and an untrapped Exit propagates.
func (a *ACB) Link(other *pid.PID) {
	a.mu.Lock()
	a.linked[other.ActorID()] = other
	a.mu.Unlock()
	other.DeliverSystem(sysmsg.Link{To: a.PID()})
}

// Unlink removes a previously established link in both directions.
func (a *ACB) Unlink(other *pid.PID) {
	a.mu.Lock()
	delete(a.linked, other.ActorID())
	a.mu.Unlock()
	other.DeliverSystem(sysmsg.Link{To: a.PID(), Revert: true})
}

// Monitor asks other to notify a on termination, one-directionally.
func (a *ACB) Monitor(other *pid.PID) {
	other.DeliverSystem(sysmsg.Monitor{Observer: a.PID()})
}

// Demonitor cancels a previously requested Monitor.
func (a *ACB) Demonitor(other *pid.PID) {
	other.DeliverSystem(sysmsg.Monitor{Observer: a.PID(), Revert: true})
}

// AcceptLink registers other as linked to a without notifying other in
// return. Scheduler-driven actors never need this directly: RunQuantum
// calls handleSystemMessage, which registers an incoming sysmsg.Link
// automatically. A dedicated-thread actor's own Func sees every system
// message as a raw mailbox item, so it must call AcceptLink itself after
// observing an untrapped sysmsg.Link addressed to it (used by the
// supervisor package when a nested supervisor is linked from above).
func (a *ACB) AcceptLink(other *pid.PID) {
	a.registerLink(other)
}

// ReleaseLink is AcceptLink's counterpart for an incoming sysmsg.Link with
// Revert set.
func (a *ACB) ReleaseLink(other *pid.PID) {
	a.unregisterLink(other)
}

// AcceptMonitor and ReleaseMonitor are AcceptLink/ReleaseLink's counterparts
// for an incoming sysmsg.Monitor, for the same dedicated-actor reason.
func (a *ACB) AcceptMonitor(observer *pid.PID) {
	a.registerMonitor(observer)
}

func (a *ACB) ReleaseMonitor(observer *pid.PID) {
	a.unregisterMonitor(observer)
}

// registerLink/registerMonitor are called from handleSystemMessage when a
// peer asks to be linked/monitored.
func (a *ACB) registerLink(peer *pid.PID) {
	a.mu.Lock()
	a.linked[peer.ActorID()] = peer
	a.mu.Unlock()
}

func (a *ACB) unregisterLink(peer *pid.PID) {
	a.mu.Lock()
	delete(a.linked, peer.ActorID())
	a.mu.Unlock()
}

func (a *ACB) registerMonitor(observer *pid.PID) {
	a.mu.Lock()
	a.monitors[observer.ActorID()] = observer
	a.mu.Unlock()
}

func (a *ACB) unregisterMonitor(observer *pid.PID) {
	a.mu.Lock()
	delete(a.monitors, observer.ActorID())
	a.mu.Unlock()
}

// handleSystemMessage applies sysmsg semantics (spec.md §4.6). It returns
// true if msg should also be handed to the actor's own Behavior (monitored
// Exit notifications, and trapped Exit/Shutdown), and it panics to drive
// propagation when an untrapped Exit/Shutdown must terminate this actor.
func (a *ACB) handleSystemMessage(msg sysmsg.SystemMessage) bool {
	switch m := msg.(type) {
	case sysmsg.Exit:
		switch m.Relation {
		case sysmsg.Monitored:
			return true
		case sysmsg.Linked:
			if a.trapExited() {
				return true
			}
			panic(sysmsg.Exit{Who: a.PID(), Parent: m.Who, Reason: m.Reason, Relation: sysmsg.Linked})
		}
	case sysmsg.Shutdown:
		if a.trapExited() {
			return true
		}
		panic(sysmsg.Exit{
			Who:      a.PID(),
			Parent:   m.Parent,
			Reason:   actorerr.ExitReason{Code: actorerr.ExitUserShutdown, Details: "shutdown command received"},
			Relation: sysmsg.Linked,
		})
	case sysmsg.Monitor:
		if m.Revert {
			a.unregisterMonitor(m.Observer.(*pid.PID))
		} else {
			a.registerMonitor(m.Observer.(*pid.PID))
		}
	case sysmsg.Link:
		if m.Revert {
			a.unregisterLink(m.To.(*pid.PID))
		} else {
			a.registerLink(m.To.(*pid.PID))
		}
	}
	return false
}

// RunQuantum drains up to max pending items (system messages travel on the
// urgent band, so always ahead of normal-band user ones) from the mailbox, dispatching each through the current
// Behavior or, for system messages, handleSystemMessage first. It recovers
// any panic into a terminal Exit notification and reports whether the
// actor terminated during this quantum. hasMore is true if the mailbox
// still had pending work when the quantum's budget ran out, telling the
// scheduler to re-queue this actor instead of waiting for the next Push.
func (a *ACB) RunQuantum(max int) (terminated bool, hasMore bool) {
	if !atomic.CompareAndSwapInt32(&a.running, notRunning, runningNow) {
		// Some other worker is already mid-quantum for this actor: onReady's
		// suppressed enqueue (see Running) let this duplicate slip through
		// anyway. Decline to run it; the in-progress quantum will re-check
		// its own mailbox after releasing the flag and re-queue itself if
		// anything is still pending, so nothing gets stranded.
		return false, false
	}
	defer func() {
		atomic.StoreInt32(&a.running, notRunning)
		if !terminated && a.PID().Mailbox().Poppable() > 0 {
			hasMore = true
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			a.terminate(exitReasonFromRecover(r))
			terminated = true
		}
	}()

	processed := 0
	for max <= 0 || processed < max {
		a.expireRequests()

		v, ok := a.PID().Mailbox().Pop()
		if !ok {
			break
		}
		processed++

		if sm, isSys := v.(sysmsg.SystemMessage); isSys {
			if !a.handleSystemMessage(sm) {
				continue
			}
			a.dispatchToBehavior(envelope.New(payloadOf(sm), nil))
			continue
		}

		env := v.(envelope.Envelope)
		if a.resolveRequest(env) {
			continue
		}
		a.dispatchToBehavior(env)
	}

	normalExit()
	hasMore = a.PID().Mailbox().Poppable() > 0
	return false, hasMore
}

// normalExit is a no-op hook kept for symmetry with the teacher's explicit
// "it's a normal exit" branch; RunQuantum never treats "no more messages"
// as termination on its own, since user code (not mailbox emptiness)
// decides when an actor is done by calling Stop.
func normalExit() {}

// Terminate force-exits the actor with reason, for use by the scheduler
// when an actor is still queued somewhere during shutdown.
func (a *ACB) Terminate(reason actorerr.ExitReason) {
	a.terminate(reason)
}

// dispatchToBehavior runs env through the current Behavior. When the
// matching handler returns ok and env is a request, the handler's return
// value is synthesized into a response envelope back to the sender
// automatically (spec.md §4.5 step 3); a handler that returns ok=false
// suppresses this and must reply itself, if at all, via promise.Capture.
func (a *ACB) dispatchToBehavior(env envelope.Envelope) {
	b := a.currentBehavior()
	if b == nil {
		return
	}
	resp, matched, ok := b.Match(a.ctx, env)
	if !matched {
		a.applyDefaultPolicy(b.DefaultPolicy(), env)
		return
	}
	if ok && env.IsRequest() {
		promise.Capture(env).Fulfil(a.Self(), resp)
	}
}

func (a *ACB) applyDefaultPolicy(policy behavior.DefaultPolicy, env envelope.Envelope) {
	switch policy {
	case behavior.Reflect:
		if env.Sender != nil {
			env.Sender.Deliver(env)
		}
	case behavior.ReflectAndQuit:
		if env.Sender != nil {
			env.Sender.Deliver(env)
		}
		panic(sysmsg.Exit{Who: a.PID(), Reason: actorerr.ExitReason{Code: actorerr.ExitNormal}})
	case behavior.Skip:
		a.PID().Mailbox().Stash(env)
	case behavior.PrintAndDrop:
		logUnhandled(a.PID().ID(), env)
	case behavior.Drop:
	}
}

// Unstash moves every stashed message back in front of the mailbox, for
// Become to call after installing a behavior that can now handle them.
func (a *ACB) Unstash() {
	a.PID().Mailbox().Unstash()
}

func (a *ACB) expireRequests() {
	for _, p := range a.requests.ExpireDue(time.Now()) {
		if p.Then != nil {
			p.Then(envelope.Envelope{}, request.TimeoutError(p.CorrelationID))
		}
	}
}

// terminate marks the actor dead and notifies links/monitors, shutting
// down any linked children if this is a supervisor exiting abnormally.
func (a *ACB) terminate(reason actorerr.ExitReason) {
	self := a.PID()
	self.MarkTerminated(reason)

	// Any request envelope still sitting unprocessed in self's own mailbox
	// at the moment of death would otherwise strand its sender forever
	// (spec.md §4.2): drain it now and answer each one request_receiver_down.
	for {
		v, ok := self.Mailbox().Pop()
		if !ok {
			break
		}
		env, isEnv := v.(envelope.Envelope)
		if !isEnv || !env.IsRequest() {
			continue
		}
		request.DeliverReceiverDown(env.ReplyTo(), self, env.CorrelationID, reason)
	}

	a.mu.Lock()
	linked := make([]*pid.PID, 0, len(a.linked))
	for _, l := range a.linked {
		linked = append(linked, l)
	}
	monitors := make([]*pid.PID, 0, len(a.monitors))
	for _, m := range a.monitors {
		monitors = append(monitors, m)
	}
	sup := a.supervisedBy
	a.mu.Unlock()

	shutdownChildren := a.kindOf() == Supervisor && !reason.Normal()
	for _, l := range linked {
		l.DeliverSystem(sysmsg.Exit{Who: self, Reason: reason, Relation: sysmsg.Linked})
		if shutdownChildren && l != sup {
			l.DeliverSystem(sysmsg.Shutdown{Parent: self})
		}
	}
	for _, m := range monitors {
		m.DeliverSystem(sysmsg.Exit{Who: self, Reason: reason, Relation: sysmsg.Monitored})
	}
	a.ctx.Cancel()
}

func exitReasonFromRecover(r interface{}) actorerr.ExitReason {
	switch v := r.(type) {
	case sysmsg.Exit:
		return v.Reason
	case sysmsg.Shutdown:
		return actorerr.ExitReason{Code: actorerr.ExitUserShutdown, Details: v}
	default:
		return actorerr.ExitReason{Code: actorerr.ExitUnhandledException, Details: v}
	}
}

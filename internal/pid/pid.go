// Package pid implements actor identifiers and the two address handles
// built on top of them: PID, an actor's strong address, and WeakPID, which
// resolves through a liveness table instead of holding the mailbox
// reachable directly. Grounded on the teacher's internal/pid (PID/
// ProtectedPID split) and internal/mailbox.ActorUtils, generalized to
// implement envelope.Address and to mint identifiers the way rs/xid mints
// globally unique ones rather than the teacher's bare incrementing int.
package pid

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"

	"github.com/relaypoint/actorcore/actorerr"
	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/envelope"
	"github.com/relaypoint/actorcore/internal/mailbox"
	"github.com/relaypoint/actorcore/request"
)

// ID uniquely identifies an actor for the lifetime of the process: a
// monotonic sequence number scoped to an xid-derived node tag, so ids
// minted by different runtime instances never collide if ever compared.
type ID uint64

var (
	counter  uint64
	nodeTag  = xid.New().String()[:8]
)

// NextID mints a fresh, never-reused actor identifier.
func NextID() ID {
	return ID(atomic.AddUint64(&counter, 1))
}

func (id ID) String() string {
	return fmt.Sprintf("%s-%d", nodeTag, uint64(id))
}

const (
	stateAlive int32 = iota
	stateTerminated
)

// PID is an actor's strong address: holding one keeps the actor's mailbox
// reachable and deliverable-to for as long as the actor lives.
type PID struct {
	id     ID
	mb     *mailbox.Mailbox
	state  int32
	reason atomic.Value // actorerr.ExitReason, set once by MarkTerminated
}

var liveness sync.Map // ID -> *PID, for WeakPID resolution

// New allocates a PID with a fresh mailbox built from cfg. onReady is
// forwarded to the mailbox so the scheduler can learn when this actor
// transitions from idle to runnable.
func New(cfg config.Config, onReady func()) *PID {
	p := &PID{
		id:    NextID(),
		mb:    mailbox.New(cfg, onReady),
		state: stateAlive,
	}
	liveness.Store(p.id, p)
	return p
}

// ID returns the string form of p's identifier, satisfying envelope.Address.
func (p *PID) ID() string {
	return p.id.String()
}

// ActorID returns the typed identifier, for use as a map key or in
// supervision bookkeeping where a string would be lossy/slow to compare.
func (p *PID) ActorID() ID {
	return p.id
}

// Deliver enqueues env on p's mailbox, unless the actor has already
// terminated. A non-request envelope is silently dropped: the sender has
// no way to know the exact moment of death, matching the at-most-once
// delivery guarantee of spec.md §3. A request envelope instead gets a
// synthesized request_receiver_down reply sent straight back to its
// ReplyTo, per spec.md §4.2, so a sender blocked on AwaitRequest/
// ThenRequest/a zero-timeout Request against an already-dead receiver
// still fires exactly once.
func (p *PID) Deliver(env envelope.Envelope) {
	if p.Terminated() {
		if env.IsRequest() {
			request.DeliverReceiverDown(env.ReplyTo(), p, env.CorrelationID, p.terminalReason())
		}
		return
	}
	p.mb.Push(env)
}

func (p *PID) terminalReason() actorerr.ExitReason {
	v := p.reason.Load()
	if v == nil {
		return actorerr.ExitReason{Code: actorerr.ExitUnknown}
	}
	return v.(actorerr.ExitReason)
}

// DeliverSystem enqueues a system message onto p's urgent band.
func (p *PID) DeliverSystem(msg interface{}) {
	if p.Terminated() {
		return
	}
	p.mb.PushSystem(msg)
}

// Mailbox exposes p's mailbox to the scheduler and actor loop; it is not
// part of envelope.Address and is unreachable from user code holding only
// the Address interface.
func (p *PID) Mailbox() *mailbox.Mailbox {
	return p.mb
}

// Terminated reports whether the actor behind p has exited.
func (p *PID) Terminated() bool {
	return atomic.LoadInt32(&p.state) == stateTerminated
}

// MarkTerminated records reason, flips p to terminated, and removes it from
// the liveness table so outstanding WeakPIDs resolve to nil from this point
// on. reason must be stored before the state flips, so that any Deliver
// call observing Terminated() can already read it back via terminalReason.
func (p *PID) MarkTerminated(reason actorerr.ExitReason) {
	p.reason.Store(reason)
	atomic.StoreInt32(&p.state, stateTerminated)
	liveness.Delete(p.id)
}

// ProtectedPID wraps a PID so that user-facing APIs can hand out a
// comparable, storable handle without exposing the Mailbox/MarkTerminated
// surface that only the scheduler and link machinery should call.
type ProtectedPID struct {
	pid *PID
}

// Protect wraps pid for external consumption.
func Protect(pid *PID) *ProtectedPID {
	return &ProtectedPID{pid: pid}
}

// Extract unwraps a ProtectedPID back to its underlying PID, for use by
// internal packages (actor, scheduler, supervisor) that need the full
// surface.
func Extract(p *ProtectedPID) *PID {
	return p.pid
}

func (p *ProtectedPID) ID() string {
	return p.pid.ID()
}

func (p *ProtectedPID) Deliver(env envelope.Envelope) {
	p.pid.Deliver(env)
}

// WeakPID references an actor by identifier only, without holding its
// mailbox reachable. Resolve must be called before every use; it returns
// nil once the actor has terminated, even if another actor is later minted
// with an unrelated id (ids are never reused).
type WeakPID struct {
	id ID
}

// Weaken derives a WeakPID from a live PID.
func Weaken(pid *PID) WeakPID {
	return WeakPID{id: pid.ActorID()}
}

// Resolve looks the identifier up in the liveness table, returning nil if
// the actor has terminated.
func (w WeakPID) Resolve() *PID {
	v, ok := liveness.Load(w.id)
	if !ok {
		return nil
	}
	return v.(*PID)
}

var _ envelope.Address = (*PID)(nil)
var _ envelope.Address = (*ProtectedPID)(nil)

// Package mailbox implements the per-actor message queue described in
// spec.md §4.2: two priority bands (urgent always drains before normal),
// a stash for messages an actor's current Behavior wants to revisit later,
// and an edge-triggered empty->nonempty signal the scheduler uses to decide
// when an otherwise-blocked actor becomes runnable again. Grounded on the
// teacher's queueMailbox (internal/mailbox/mailbox_queue.go) and its
// mpscMailbox (mailbox_mpsc.go) variant, generalized behind one interface
// selected by config.MailboxBackend and driven by pull instead of a
// blocking per-actor goroutine, since the scheduler (not the mailbox) now
// owns when an actor's messages get processed.
package mailbox

import (
	"sync/atomic"

	"github.com/Workiva/go-datastructures/queue"
	mpsc "github.com/t3rm1n4l/go-mpscqueue"

	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/envelope"
)

const (
	empty int32 = iota
	nonEmpty
)

// queueBackend is the minimal FIFO contract both ring-buffer and MPSC
// implementations satisfy.
type queueBackend interface {
	push(v interface{})
	pop() (interface{}, bool)
	len() int
}

// Mailbox is a single actor's inbox: an urgent band, a normal band, and a
// stash for messages deferred under the actor's current Behavior.
type Mailbox struct {
	urgent queueBackend
	normal queueBackend
	stash  []envelope.Envelope

	status  int32
	onReady func()
	ready   chan struct{}
}

// New builds a Mailbox backed by the queue implementation named in cfg.
// onReady is invoked at most once per empty->nonempty transition, letting
// the owning ACB re-enqueue itself onto the scheduler's run queue exactly
// once per wakeup instead of once per message.
func New(cfg config.Config, onReady func()) *Mailbox {
	m := &Mailbox{status: empty, onReady: onReady, ready: make(chan struct{}, 1)}
	switch cfg.MailboxBackend {
	case config.MPSC:
		m.urgent = newMPSCBackend()
		m.normal = newMPSCBackend()
	default:
		cap := cfg.MailboxCapacity
		if cap <= 0 {
			cap = 100
		}
		m.urgent = newRingBackend(uint64(cap))
		m.normal = newRingBackend(uint64(cap))
	}
	return m
}

// Push enqueues a user envelope onto its priority band.
func (m *Mailbox) Push(env envelope.Envelope) {
	if env.Priority == envelope.Urgent {
		m.urgent.push(env)
	} else {
		m.normal.push(env)
	}
	m.signal()
}

// PushSystem enqueues a system message; system messages always travel on
// the urgent band so exit/shutdown/link traffic never starves behind a
// backlog of user messages.
func (m *Mailbox) PushSystem(msg interface{}) {
	m.urgent.push(msg)
	m.signal()
}

func (m *Mailbox) signal() {
	if atomic.CompareAndSwapInt32(&m.status, empty, nonEmpty) {
		if m.onReady != nil {
			m.onReady()
		}
		select {
		case m.ready <- struct{}{}:
		default:
		}
	}
}

// ReadySignal returns a channel that receives a value on every
// empty->nonempty transition. A dedicated-thread actor (spec.md §4.4) blocks
// on this channel instead of being dispatched by the scheduler's worker
// pool.
func (m *Mailbox) ReadySignal() <-chan struct{} {
	return m.ready
}

// Pop removes and returns the next pending item: urgent band first, then
// normal. The stash is never consulted here; it only re-enters the normal
// band once Unstash is called, since stashed messages were deliberately
// deferred by the actor's current Behavior (the Skip default policy) and
// must not resurface until it changes.
func (m *Mailbox) Pop() (interface{}, bool) {
	if v, ok := m.urgent.pop(); ok {
		m.rearmIfDrained()
		return v, true
	}
	if v, ok := m.normal.pop(); ok {
		m.rearmIfDrained()
		return v, true
	}
	atomic.StoreInt32(&m.status, empty)
	return nil, false
}

// rearmIfDrained resets status to empty once a Pop has taken the last item,
// so the next Push signals again; an item pushed in between is signalled here.
func (m *Mailbox) rearmIfDrained() {
	if m.Poppable() > 0 {
		return
	}
	atomic.StoreInt32(&m.status, empty)
	if m.Poppable() > 0 {
		m.signal()
	}
}

// Len reports how many items, across both bands and the stash, are
// currently pending.
func (m *Mailbox) Len() int {
	return m.urgent.len() + m.normal.len() + len(m.stash)
}

// Poppable reports how many items a Pop call could actually return right
// now: the two priority bands, excluding the stash, which Pop never
// consults on its own. The scheduler uses this, not Len, to decide whether
// an actor still has runnable work after a quantum.
func (m *Mailbox) Poppable() int {
	return m.urgent.len() + m.normal.len()
}

// Stash defers env for reconsideration under a future Behavior (the Skip
// default policy). Stashed messages are FIFO among themselves; Pop never
// returns them until Unstash moves them back to the head of the normal band.
func (m *Mailbox) Stash(env envelope.Envelope) {
	m.stash = append(m.stash, env)
}

// Unstash moves every stashed message back in front of the normal band, in
// the order they were originally stashed, so a subsequent Pop sees them
// before newly arrived normal-band traffic.
func (m *Mailbox) Unstash() {
	for i := len(m.stash) - 1; i >= 0; i-- {
		m.normalPushFront(m.stash[i])
	}
	m.stash = nil
}

// pushFront is only meaningful for Unstash's LIFO re-insertion. Both the
// ring-buffer and MPSC backends implement it; normalPushFront falls back to
// a plain push only for a queueBackend that does not.
type frontPusher interface {
	pushFront(v interface{})
}

func (q *ringBackend) pushFront(v interface{}) {
	// the ring buffer has no front-insertion primitive; approximate by
	// draining and rebuilding with v first. Rare path: only runs on
	// unstash, never on the hot enqueue path.
	var rest []interface{}
	for {
		item, ok := q.pop()
		if !ok {
			break
		}
		rest = append(rest, item)
	}
	q.push(v)
	for _, item := range rest {
		q.push(item)
	}
}

func (q *mpscBackend) pushFront(v interface{}) {
	// the underlying lock-free queue has no front-insertion primitive
	// either; same drain-and-rebuild approximation as ringBackend. Rare
	// path: only runs on unstash, never on the hot enqueue path.
	var rest []interface{}
	for {
		item, ok := q.pop()
		if !ok {
			break
		}
		rest = append(rest, item)
	}
	q.push(v)
	for _, item := range rest {
		q.push(item)
	}
}

var _ frontPusher = (*ringBackend)(nil)
var _ frontPusher = (*mpscBackend)(nil)

func (m *Mailbox) normalPushFront(v interface{}) {
	if fp, ok := m.normal.(frontPusher); ok {
		fp.pushFront(v)
	} else {
		m.normal.push(v)
	}
}

type ringBackend struct {
	rb *queue.RingBuffer
}

func newRingBackend(cap uint64) *ringBackend {
	return &ringBackend{rb: queue.NewRingBuffer(cap)}
}

func (r *ringBackend) push(v interface{}) {
	_ = r.rb.Put(v)
}

func (r *ringBackend) pop() (interface{}, bool) {
	if r.rb.Len() == 0 {
		return nil, false
	}
	v, err := r.rb.Get()
	if err != nil {
		return nil, false
	}
	return v, true
}

func (r *ringBackend) len() int {
	return int(r.rb.Len())
}

type mpscBackend struct {
	q *mpsc.MPSCQueue
}

func newMPSCBackend() *mpscBackend {
	return &mpscBackend{q: mpsc.New()}
}

func (m *mpscBackend) push(v interface{}) {
	m.q.Push(v)
}

func (m *mpscBackend) pop() (interface{}, bool) {
	if m.q.Size() == 0 {
		return nil, false
	}
	return m.q.Pop(), true
}

func (m *mpscBackend) len() int {
	return int(m.q.Size())
}

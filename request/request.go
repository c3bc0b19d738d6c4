// Package request implements request/response correlation (spec.md §4.5):
// a per-actor table of outstanding requests keyed by correlation id, a
// LIFO await stack for the await style (the most recently sent request is
// the one AwaitNext and DrainReadyAwaits resolve first), a multiplexed "then"
// style keyed directly off the correlation id, and a deadline min-heap so
// the actor loop can cheaply find which pending requests have timed out.
// Grounded on the teacher's futureActor.Recv/RecvWithTimeout pattern,
// generalized from a single outstanding call to a table of many.
package request

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relaypoint/actorcore/actorerr"
	"github.com/relaypoint/actorcore/envelope"
	"github.com/relaypoint/actorcore/payload"
)

// Then is invoked when a reply for a multiplexed request arrives (err nil;
// a receiver-down error arrives this way too, as the reply's payload), or
// when it times out (err set, resp zero).
type Then func(resp envelope.Envelope, err error)

// Pending is one outstanding request.
type Pending struct {
	CorrelationID uint64
	Target        envelope.Address
	Deadline      time.Time
	Then          Then
	Awaited       bool
	heapIndex     int
}

var correlationSeq uint64

// NextCorrelationID mints a fresh, process-wide unique correlation id.
// Zero is reserved to mean "not a request" (envelope.IsRequest), so the
// sequence starts at 1.
func NextCorrelationID() uint64 {
	return atomic.AddUint64(&correlationSeq, 1)
}

// Table tracks every request one actor has outstanding.
type Table struct {
	mu             sync.Mutex
	byID           map[uint64]*Pending
	awaitLIFO      []uint64
	deadlines      deadlineHeap
	awaitResponses map[uint64]envelope.Envelope
}

// NewTable builds an empty request table.
func NewTable() *Table {
	return &Table{
		byID:           make(map[uint64]*Pending),
		awaitResponses: make(map[uint64]envelope.Envelope),
	}
}

// Register records p as outstanding. awaitStyle pushes it onto the LIFO
// await stack in addition to the correlation-id map, for AwaitNext.
func (t *Table) Register(p *Pending, awaitStyle bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p.Awaited = awaitStyle
	t.byID[p.CorrelationID] = p
	p.heapIndex = -1
	if !p.Deadline.IsZero() {
		heap.Push(&t.deadlines, p)
	}
	if awaitStyle {
		t.awaitLIFO = append(t.awaitLIFO, p.CorrelationID)
	}
}

// Peek reports whether a request with correlationID is still outstanding,
// without removing it.
func (t *Table) Peek(correlationID uint64) (*Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.byID[correlationID]
	return p, ok
}

// Resolve removes and returns the pending request matching a reply's
// correlation id, if one is outstanding.
func (t *Table) Resolve(correlationID uint64) (*Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.byID[correlationID]
	if !ok {
		return nil, false
	}
	t.remove(p)
	return p, true
}

// AwaitNext pops the most recently registered await-style request (LIFO:
// the innermost of any nested awaits resolves first), regardless of
// arrival order of other outstanding requests.
func (t *Table) AwaitNext() (*Pending, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for len(t.awaitLIFO) > 0 {
		id := t.awaitLIFO[len(t.awaitLIFO)-1]
		t.awaitLIFO = t.awaitLIFO[:len(t.awaitLIFO)-1]
		if p, ok := t.byID[id]; ok {
			t.remove(p)
			return p, true
		}
	}
	return nil, false
}

// ExpireDue pops and returns every pending request whose deadline is at or
// before now, for the actor loop to synthesize a request-timeout error for.
func (t *Table) ExpireDue(now time.Time) []*Pending {
	t.mu.Lock()
	defer t.mu.Unlock()
	var due []*Pending
	for t.deadlines.Len() > 0 && !t.deadlines[0].Deadline.After(now) {
		p := heap.Pop(&t.deadlines).(*Pending)
		if _, ok := t.byID[p.CorrelationID]; ok {
			delete(t.byID, p.CorrelationID)
			due = append(due, p)
		}
	}
	return due
}

// NextDeadline reports the earliest outstanding deadline, if any.
func (t *Table) NextDeadline() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deadlines.Len() == 0 {
		return time.Time{}, false
	}
	return t.deadlines[0].Deadline, true
}

// ExpireTarget pops every pending request addressed to target, for
// synthesizing request-receiver-down errors when a monitored target exits.
func (t *Table) ExpireTarget(target envelope.Address) []*Pending {
	t.mu.Lock()
	defer t.mu.Unlock()
	var gone []*Pending
	for id, p := range t.byID {
		if p.Target == target {
			delete(t.byID, id)
			gone = append(gone, p)
		}
	}
	return gone
}

// remove must be called with t.mu held; it only scrubs the id map,
// deadline heap and buffered await response, not awaitLIFO (AwaitNext and
// DrainReadyAwaits already filter dead entries lazily there).
func (t *Table) remove(p *Pending) {
	delete(t.byID, p.CorrelationID)
	delete(t.awaitResponses, p.CorrelationID)
	if p.heapIndex >= 0 {
		heap.Remove(&t.deadlines, p.heapIndex)
	}
}

// AwaitResult pairs a resolved await-style Pending with the reply that
// resolved it.
type AwaitResult struct {
	Pending *Pending
	Reply   envelope.Envelope
}

// BufferAwaitResponse records env as the reply for an outstanding
// await-style request, without yet handing it to anyone. It reports
// whether correlationID names a registered await-style request; a false
// result means the caller should treat env as an ordinary (non-await)
// reply instead. The reply only actually fires, via a subsequent
// DrainReadyAwaits call, once it reaches the top of the LIFO stack: the
// "Await LIFO" rule is that awaits resolve in reverse send order
// regardless of arrival order, so a reply for an earlier-sent await sits
// here until every more-recently-sent await ahead of it has also arrived.
func (t *Table) BufferAwaitResponse(correlationID uint64, env envelope.Envelope) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.byID[correlationID]
	if !ok || !p.Awaited {
		return false
	}
	t.awaitResponses[correlationID] = env
	return true
}

// DrainReadyAwaits pops every await-style request, from the top of the
// LIFO stack down, that already has a buffered reply, stopping at the
// first one still waiting. Each drained entry is removed from the table
// entirely.
func (t *Table) DrainReadyAwaits() []AwaitResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ready []AwaitResult
	for len(t.awaitLIFO) > 0 {
		id := t.awaitLIFO[len(t.awaitLIFO)-1]
		p, registered := t.byID[id]
		if !registered {
			t.awaitLIFO = t.awaitLIFO[:len(t.awaitLIFO)-1]
			continue
		}
		env, buffered := t.awaitResponses[id]
		if !buffered {
			break
		}
		t.awaitLIFO = t.awaitLIFO[:len(t.awaitLIFO)-1]
		t.remove(p)
		ready = append(ready, AwaitResult{Pending: p, Reply: env})
	}
	return ready
}

// TimeoutError builds the synthesized error for an expired request.
func TimeoutError(correlationID uint64) *actorerr.Error {
	return actorerr.New(actorerr.KindRequestTimeout, actorerr.CategoryRuntime, correlationID)
}

// ReceiverDownError builds the synthesized error for a request whose
// target terminated before replying.
func ReceiverDownError(correlationID uint64, reason interface{}) *actorerr.Error {
	return actorerr.New(actorerr.KindRequestReceiverDown, actorerr.CategoryRuntime, reason)
}

// DeliverReceiverDown synthesizes a request_receiver_down reply, as though
// sent from dead, and delivers it to replyTo. A nil replyTo (a fire-and-
// forget envelope misrouted here, or a request with no sender) is a no-op.
func DeliverReceiverDown(replyTo envelope.Address, dead envelope.Address, correlationID uint64, reason interface{}) {
	if replyTo == nil {
		return
	}
	replyTo.Deliver(envelope.New(payload.New(ReceiverDownError(correlationID, reason)), dead).WithCorrelationID(correlationID))
}

type deadlineHeap []*Pending

func (h deadlineHeap) Len() int            { return len(h) }
func (h deadlineHeap) Less(i, j int) bool  { return h[i].Deadline.Before(h[j].Deadline) }
func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *deadlineHeap) Push(x interface{}) {
	p := x.(*Pending)
	p.heapIndex = len(*h)
	*h = append(*h, p)
}

func (h *deadlineHeap) Pop() interface{} {
	old := *h
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	p.heapIndex = -1
	*h = old[:n-1]
	return p
}

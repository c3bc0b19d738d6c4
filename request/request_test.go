package request_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaypoint/actorcore/actorerr"
	"github.com/relaypoint/actorcore/envelope"
	"github.com/relaypoint/actorcore/request"
)

func TestAwaitNextIsLIFO(t *testing.T) {
	tbl := request.NewTable()
	tbl.Register(&request.Pending{CorrelationID: 1}, true)
	tbl.Register(&request.Pending{CorrelationID: 2}, true)
	tbl.Register(&request.Pending{CorrelationID: 3}, true)

	p, ok := tbl.AwaitNext()
	require.True(t, ok)
	require.EqualValues(t, 3, p.CorrelationID, "the most recently sent request resolves first")

	p, ok = tbl.AwaitNext()
	require.True(t, ok)
	require.EqualValues(t, 2, p.CorrelationID)
}

func TestResolveRemovesFromAllIndexes(t *testing.T) {
	tbl := request.NewTable()
	tbl.Register(&request.Pending{CorrelationID: 1}, true)

	p, ok := tbl.Resolve(1)
	require.True(t, ok)
	require.EqualValues(t, 1, p.CorrelationID)

	_, ok = tbl.Resolve(1)
	require.False(t, ok, "resolving twice must not find the same request again")

	_, ok = tbl.AwaitNext()
	require.False(t, ok, "an already-resolved request must not surface via AwaitNext either")
}

func TestExpireDuePopsOnlyElapsedDeadlines(t *testing.T) {
	tbl := request.NewTable()
	now := time.Now()
	tbl.Register(&request.Pending{CorrelationID: 1, Deadline: now.Add(-time.Second)}, false)
	tbl.Register(&request.Pending{CorrelationID: 2, Deadline: now.Add(time.Hour)}, false)

	due := tbl.ExpireDue(now)
	require.Len(t, due, 1)
	require.EqualValues(t, 1, due[0].CorrelationID)

	_, ok := tbl.Resolve(2)
	require.True(t, ok, "the non-expired request is still outstanding")
}

func TestExpireTargetPopsAllForThatTarget(t *testing.T) {
	tbl := request.NewTable()
	fakeA := fakeAddress("a")
	fakeB := fakeAddress("b")
	tbl.Register(&request.Pending{CorrelationID: 1, Target: fakeA}, false)
	tbl.Register(&request.Pending{CorrelationID: 2, Target: fakeB}, false)
	tbl.Register(&request.Pending{CorrelationID: 3, Target: fakeA}, false)

	gone := tbl.ExpireTarget(fakeA)
	require.Len(t, gone, 2)

	_, ok := tbl.Resolve(2)
	require.True(t, ok)
}

func TestDrainReadyAwaitsFiresInReverseSendOrderRegardlessOfArrival(t *testing.T) {
	tbl := request.NewTable()
	cellA, cellB, cellC := fakeAddress("a"), fakeAddress("b"), fakeAddress("c")
	tbl.Register(&request.Pending{CorrelationID: 1, Target: cellA}, true)
	tbl.Register(&request.Pending{CorrelationID: 2, Target: cellB}, true)
	tbl.Register(&request.Pending{CorrelationID: 3, Target: cellC}, true)

	// replies arrive out of send order: the middle request answers first.
	require.True(t, tbl.BufferAwaitResponse(2, envelope.Envelope{CorrelationID: 2}))
	require.Empty(t, tbl.DrainReadyAwaits(), "correlation 3 is still on top of the stack and hasn't replied yet")

	require.True(t, tbl.BufferAwaitResponse(1, envelope.Envelope{CorrelationID: 1}))
	require.Empty(t, tbl.DrainReadyAwaits(), "correlation 3 still hasn't replied")

	require.True(t, tbl.BufferAwaitResponse(3, envelope.Envelope{CorrelationID: 3}))
	ready := tbl.DrainReadyAwaits()
	require.Len(t, ready, 3)
	require.EqualValues(t, 3, ready[0].Pending.CorrelationID, "most recently sent resolves first")
	require.EqualValues(t, 2, ready[1].Pending.CorrelationID)
	require.EqualValues(t, 1, ready[2].Pending.CorrelationID, "first sent resolves last")

	_, ok := tbl.Peek(1)
	require.False(t, ok, "drained entries must be fully removed from the table")
}

func TestBufferAwaitResponseRejectsUnknownOrNonAwaitCorrelationIDs(t *testing.T) {
	tbl := request.NewTable()
	tbl.Register(&request.Pending{CorrelationID: 1}, false)

	require.False(t, tbl.BufferAwaitResponse(1, envelope.Envelope{CorrelationID: 1}), "a then-style request is not await-style")
	require.False(t, tbl.BufferAwaitResponse(99, envelope.Envelope{CorrelationID: 99}))
}

func TestNextCorrelationIDNeverZero(t *testing.T) {
	id := request.NextCorrelationID()
	require.NotZero(t, id)
}

type fakeAddress string

func (f fakeAddress) ID() string                      { return string(f) }
func (f fakeAddress) Deliver(envelope.Envelope) {}

type recordingAddress struct {
	delivered *envelope.Envelope
}

func (r *recordingAddress) ID() string { return "recorder" }
func (r *recordingAddress) Deliver(env envelope.Envelope) {
	r.delivered = &env
}

func TestDeliverReceiverDownSendsErrorTaggedWithCorrelationID(t *testing.T) {
	recorder := &recordingAddress{}
	request.DeliverReceiverDown(recorder, fakeAddress("dead-actor"), 7, "crashed")

	require.NotNil(t, recorder.delivered)
	require.EqualValues(t, 7, recorder.delivered.CorrelationID)
	fields := recorder.delivered.Payload.Fields()
	require.Len(t, fields, 1)
	actorErr, ok := fields[0].(*actorerr.Error)
	require.True(t, ok)
	require.Equal(t, actorerr.KindRequestReceiverDown, actorErr.Code)
}

func TestDeliverReceiverDownIsNoOpWithoutReplyTo(t *testing.T) {
	require.NotPanics(t, func() {
		request.DeliverReceiverDown(nil, fakeAddress("dead-actor"), 7, "crashed")
	})
}

package mailbox_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/envelope"
	"github.com/relaypoint/actorcore/internal/mailbox"
	"github.com/relaypoint/actorcore/payload"
)

func firstString(v interface{}) string {
	s, err := v.(envelope.Envelope).Payload.String(0)
	if err != nil {
		panic(err)
	}
	return s
}

func TestUrgentDrainsBeforeNormal(t *testing.T) {
	m := mailbox.New(config.Default(), nil)
	m.Push(envelope.New(payload.New("normal-1"), nil))
	m.Push(envelope.New(payload.New("urgent-1"), nil).WithPriority(envelope.Urgent))
	m.Push(envelope.New(payload.New("normal-2"), nil))

	first, ok := m.Pop()
	require.True(t, ok)
	require.Equal(t, "urgent-1", firstString(first))

	second, ok := m.Pop()
	require.True(t, ok)
	require.Equal(t, "normal-1", firstString(second))
}

func TestOnReadyFiresOnEmptyToNonEmptyEdge(t *testing.T) {
	var fired int
	m := mailbox.New(config.Default(), func() { fired++ })

	m.Push(envelope.New(payload.New(1), nil))
	m.Push(envelope.New(payload.New(2), nil))
	require.Equal(t, 1, fired, "signal should fire once across the burst, not per message")

	m.Pop()
	m.Pop()
	m.Push(envelope.New(payload.New(3), nil))
	require.Equal(t, 2, fired, "a fresh empty->nonempty transition should signal again")
}

func TestStashReplaysInOrderAfterUnstash(t *testing.T) {
	m := mailbox.New(config.Default(), nil)
	m.Push(envelope.New(payload.New("a"), nil))
	m.Push(envelope.New(payload.New("b"), nil))

	first, _ := m.Pop()
	m.Stash(first.(envelope.Envelope))
	second, _ := m.Pop()
	require.Equal(t, "b", firstString(second))

	_, ok := m.Pop()
	require.False(t, ok, "stash is not consulted until explicitly unstashed")

	m.Unstash()
	replayed, ok := m.Pop()
	require.True(t, ok)
	require.Equal(t, "a", firstString(replayed))
}

func TestMPSCBackendHonorsPriorityBands(t *testing.T) {
	cfg := config.Default().WithMailboxBackend(config.MPSC)
	m := mailbox.New(cfg, nil)
	m.Push(envelope.New(payload.New("normal"), nil))
	m.Push(envelope.New(payload.New("urgent"), nil).WithPriority(envelope.Urgent))

	first, ok := m.Pop()
	require.True(t, ok)
	require.Equal(t, "urgent", firstString(first))
}

func TestMPSCBackendReplaysStashInOrderAfterUnstash(t *testing.T) {
	cfg := config.Default().WithMailboxBackend(config.MPSC)
	m := mailbox.New(cfg, nil)
	m.Push(envelope.New(payload.New("a"), nil))
	m.Push(envelope.New(payload.New("b"), nil))
	m.Push(envelope.New(payload.New("c"), nil))

	first, _ := m.Pop()
	m.Stash(first.(envelope.Envelope))
	second, _ := m.Pop()
	m.Stash(second.(envelope.Envelope))

	third, ok := m.Pop()
	require.True(t, ok)
	require.Equal(t, "c", firstString(third), "stashed messages must not resurface before Unstash")

	m.Unstash()
	replayed1, ok := m.Pop()
	require.True(t, ok)
	require.Equal(t, "a", firstString(replayed1), "stash replays at the head, in original relative order")
	replayed2, ok := m.Pop()
	require.True(t, ok)
	require.Equal(t, "b", firstString(replayed2))
}

func TestLenCountsAllBandsAndStash(t *testing.T) {
	m := mailbox.New(config.Default(), nil)
	require.Equal(t, 0, m.Len())
	m.Push(envelope.New(payload.New(1), nil))
	m.Push(envelope.New(payload.New(2), nil).WithPriority(envelope.Urgent))
	require.Equal(t, 2, m.Len())

	v, _ := m.Pop()
	m.Stash(v.(envelope.Envelope))
	require.Equal(t, 2, m.Len())
}

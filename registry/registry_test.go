package registry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaypoint/actorcore/actor"
	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/envelope"
	"github.com/relaypoint/actorcore/internal/pid"
	"github.com/relaypoint/actorcore/registry"
)

func TestWhereIsResolvesAfterRegister(t *testing.T) {
	r := registry.New()

	a := actor.New(config.Default(), nil)
	r.Register("printer", a.Self())

	got := r.WhereIs("printer")
	require.NotNil(t, got)
	require.Equal(t, a.Self().ID(), got.ID())
}

func TestWhereIsReturnsNilForUnboundName(t *testing.T) {
	r := registry.New()

	require.Nil(t, r.WhereIs("nobody"))
}

func TestUnregisterRemovesBinding(t *testing.T) {
	r := registry.New()

	a := actor.New(config.Default(), nil)
	r.Register("printer", a.Self())
	require.NotNil(t, r.WhereIs("printer"))

	r.Unregister("printer")
	require.Nil(t, r.WhereIs("printer"))
}

func TestRegisterOverwritesPreviousBinding(t *testing.T) {
	r := registry.New()

	first := actor.New(config.Default(), nil)
	second := actor.New(config.Default(), nil)

	r.Register("printer", first.Self())
	r.Register("printer", second.Self())

	got := r.WhereIs("printer")
	require.Equal(t, second.Self().ID(), got.ID())
}

func TestSendNamedDeliversToBoundActor(t *testing.T) {
	r := registry.New()

	a := actor.New(config.Default(), nil)
	r.Register("printer", a.Self())

	ok := r.SendNamed("printer", "hello")
	require.True(t, ok)

	v, popped := a.PID().Mailbox().Pop()
	require.True(t, popped)
	s, err := v.(envelope.Envelope).Payload.String(0)
	require.NoError(t, err)
	require.Equal(t, "hello", s)
}

func TestSendNamedReportsFalseForUnboundName(t *testing.T) {
	r := registry.New()

	require.False(t, r.SendNamed("nobody", "hello"))
}

func TestDisposedFutureAwaitReportsError(t *testing.T) {
	// A FuturePID disposed before any reply arrives reports an error from
	// Await rather than hanging; WhereIs waits on the same FuturePID.Await
	// path through FutureActor.RecvWithTimeout.
	f := pid.NewFuturePID()
	f.Dispose()
	_, err := f.Await(time.Second)
	require.Error(t, err)
}

package behavior_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaypoint/actorcore/behavior"
	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/envelope"
	actorcontext "github.com/relaypoint/actorcore/internal/context"
	"github.com/relaypoint/actorcore/internal/pid"
	"github.com/relaypoint/actorcore/payload"
)

var intType = reflect.TypeOf(0)
var strType = reflect.TypeOf("")

func newCtx() *actorcontext.Context {
	self := pid.New(config.Default(), nil)
	return actorcontext.New(self, nil)
}

func TestFirstMatchWins(t *testing.T) {
	var hit string
	b := behavior.New(behavior.Drop).
		On([]reflect.Type{intType}, func(ctx *actorcontext.Context, env envelope.Envelope, fields []interface{}) (interface{}, bool) {
			hit = "first"
			return nil, true
		}).
		On([]reflect.Type{intType}, func(ctx *actorcontext.Context, env envelope.Envelope, fields []interface{}) (interface{}, bool) {
			hit = "second"
			return nil, true
		})

	ctx := newCtx()
	_, matched, _ := b.Match(ctx, envelope.New(payload.New(42), nil))
	require.True(t, matched)
	require.Equal(t, "first", hit)
}

func TestNoClauseMatches(t *testing.T) {
	b := behavior.New(behavior.Drop).
		On([]reflect.Type{intType}, func(ctx *actorcontext.Context, env envelope.Envelope, fields []interface{}) (interface{}, bool) {
			return nil, true
		})

	ctx := newCtx()
	_, matched, _ := b.Match(ctx, envelope.New(payload.New("not an int"), nil))
	require.False(t, matched)
}

func TestOrElseAppendsWithoutReordering(t *testing.T) {
	var order []string
	a := behavior.New(behavior.Drop).
		On([]reflect.Type{intType}, func(ctx *actorcontext.Context, env envelope.Envelope, fields []interface{}) (interface{}, bool) {
			order = append(order, "a")
			return nil, true
		})
	b := behavior.New(behavior.Skip).
		On([]reflect.Type{strType}, func(ctx *actorcontext.Context, env envelope.Envelope, fields []interface{}) (interface{}, bool) {
			order = append(order, "b")
			return nil, true
		})

	merged := a.OrElse(b)
	ctx := newCtx()
	_, matched, _ := merged.Match(ctx, envelope.New(payload.New("hi"), nil))
	require.True(t, matched)
	require.Equal(t, []string{"b"}, order)
	require.Equal(t, behavior.Drop, merged.DefaultPolicy())
}

func TestTimeoutCarriesThroughOrElse(t *testing.T) {
	a := behavior.New(behavior.Drop)
	fired := false
	b := behavior.New(behavior.Drop).WithTimeout(100, func(ctx *actorcontext.Context) { fired = true })

	merged := a.OrElse(b)
	require.NotNil(t, merged.GetTimeout())
	merged.GetTimeout().Callback(newCtx())
	require.True(t, fired)
}

package stream

import (
	"github.com/relaypoint/actorcore/actor"
	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/envelope"
	actorcontext "github.com/relaypoint/actorcore/internal/context"
)

// Puller supplies a Source's elements one at a time; ok is false once
// exhausted, after which the Source emits endOfStream and stops.
type Puller func() (element interface{}, ok bool)

// Source is the upstream end of a stream: it holds no credit of its own
// beyond what its one attached downstream has granted it.
type Source struct {
	acb *actor.ACB
}

// NewSource starts a Source actor that calls pull on demand, never more
// than once per unit of credit it has been granted.
func NewSource(cfg config.Config, pull Puller) *Source {
	acb := actor.SpawnDedicated(cfg, func(ctx *actorcontext.Context) {
		runSource(ctx, pull)
	})
	return &Source{acb: acb}
}

// Address is the handle a downstream Stage or Sink opens a stream against.
func (s *Source) Address() envelope.Address {
	return s.acb.Self()
}

func runSource(ctx *actorcontext.Context, pull Puller) {
	var streamID id
	var sink envelope.Address
	credit := 0
	exhausted := false

	drain := func() {
		for !exhausted && sink != nil && credit > 0 {
			elem, ok := pull()
			if !ok {
				exhausted = true
				actor.Send(sink, endOfStream{id: streamID})
				return
			}
			credit--
			actor.Send(sink, data{id: streamID, elements: []interface{}{elem}})
		}
	}

	for {
		v, ok := ctx.ReceiveBlocking(0)
		if !ok {
			return
		}
		env, isEnv := v.(envelope.Envelope)
		if !isEnv {
			continue
		}
		field, err := env.Payload.At(0)
		if err != nil {
			continue
		}

		switch msg := field.(type) {
		case openStream:
			streamID = msg.id
			sink = msg.sink
			credit = msg.credit
			actor.Send(sink, streamAck{id: streamID})
		case creditGrant:
			if msg.id != streamID {
				continue
			}
			credit += msg.amount
		case abort:
			if msg.id == streamID {
				return
			}
			continue
		default:
			continue
		}

		if exhausted {
			return
		}
		drain()
		if exhausted {
			return
		}
	}
}

package stream

import (
	"github.com/relaypoint/actorcore/actor"
	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/envelope"
	actorcontext "github.com/relaypoint/actorcore/internal/context"
	"github.com/relaypoint/actorcore/internal/pid"
)

// ElementFunc transforms one upstream element; keep is false to drop it
// without forwarding anything downstream (a filter).
type ElementFunc func(interface{}) (transformed interface{}, keep bool)

// Stage sits between an upstream source and a downstream sink, running its
// own independent credit cycle on each side: the credit a Stage consumes
// from upstream and the credit it grants downstream are unrelated, since a
// filtering ElementFunc may consume many upstream elements per surviving
// one it forwards.
type Stage struct {
	acb *actor.ACB
}

// NewStage opens a stream against upstream and starts the stage's own
// receive loop, applying fn to every element it receives.
func NewStage(cfg config.Config, upstream envelope.Address, fn ElementFunc) *Stage {
	acb := actor.SpawnDedicated(cfg, func(ctx *actorcontext.Context) {
		runStage(ctx, upstream, fn)
	})
	return &Stage{acb: acb}
}

// Address is the handle a downstream Stage or Sink opens a stream against.
func (st *Stage) Address() envelope.Address {
	return st.acb.Self()
}

func runStage(ctx *actorcontext.Context, upstream envelope.Address, fn ElementFunc) {
	upID := newID()
	var downID id
	var downstream envelope.Address
	downCredit := 0
	upConsumed := 0
	var buffer []interface{}

	actor.Send(upstream, openStream{id: upID, credit: defaultCredit, sink: pid.Protect(ctx.Self())})

	flushDown := func() {
		for downstream != nil && downCredit > 0 && len(buffer) > 0 {
			elem := buffer[0]
			buffer = buffer[1:]
			downCredit--
			actor.Send(downstream, data{id: downID, elements: []interface{}{elem}})
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
			downID = msg.id
			downstream = msg.sink
			downCredit = msg.credit
			actor.Send(downstream, streamAck{id: downID})
			flushDown()
		case streamAck:
			// upstream accepted our own openStream; nothing further to do.
		case creditGrant:
			if msg.id != downID {
				continue
			}
			downCredit += msg.amount
			flushDown()
		case data:
			if msg.id != upID {
				continue
			}
			for _, elem := range msg.elements {
				out, keep := fn(elem)
				upConsumed++
				if keep {
					buffer = append(buffer, out)
				}
			}
			if upConsumed >= defaultReplenish {
				actor.Send(upstream, creditGrant{id: upID, amount: upConsumed})
				upConsumed = 0
			}
			flushDown()
		case endOfStream:
			if msg.id != upID {
				continue
			}
			flushDown()
			if downstream != nil {
				actor.Send(downstream, endOfStream{id: downID})
			}
			return
		case abort:
			if msg.id != upID {
				continue
			}
			if downstream != nil {
				actor.Send(downstream, abort{id: downID, err: msg.err})
			}
			return
		default:
			continue
		}
	}
}

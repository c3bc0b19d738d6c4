package stream

import (
	"github.com/relaypoint/actorcore/actor"
	"github.com/relaypoint/actorcore/actorerr"
	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/envelope"
	actorcontext "github.com/relaypoint/actorcore/internal/context"
	"github.com/relaypoint/actorcore/internal/pid"
)

// Handler consumes one surviving element.
type Handler func(interface{})

// Finalizer fires exactly once when the stream completes, with err nil on
// a clean end-of-stream and non-nil on an abort (from either direction).
type Finalizer func(err error)

// Sink is the terminal end of a stream: it initiates the credit handshake
// against upstream and periodically replenishes credit as it consumes.
type Sink struct {
	acb *actor.ACB
}

// NewSink opens a stream against upstream and starts consuming it, calling
// handle for every element and finish exactly once at completion.
func NewSink(cfg config.Config, upstream envelope.Address, handle Handler, finish Finalizer) *Sink {
	acb := actor.SpawnDedicated(cfg, func(ctx *actorcontext.Context) {
		runSink(ctx, upstream, handle, finish)
	})
	return &Sink{acb: acb}
}

func runSink(ctx *actorcontext.Context, upstream envelope.Address, handle Handler, finish Finalizer) {
	streamID := newID()
	consumed := 0
	done := false

	finishOnce := func(err error) {
		if done {
			return
		}
		done = true
		finish(err)
	}

	defer func() {
		if r := recover(); r != nil {
			err := actorerr.New(actorerr.KindUnhandledStreamError, actorerr.CategoryStream, r)
			actor.Send(upstream, abort{id: streamID, err: err})
			finishOnce(err)
		}
	}()

	actor.Send(upstream, openStream{id: streamID, credit: defaultCredit, sink: pid.Protect(ctx.Self())})

	for {
		v, ok := ctx.ReceiveBlocking(0)
		if !ok {
			finishOnce(actorerr.New(actorerr.KindInvalidStreamState, actorerr.CategoryStream, "sink terminated before stream completion"))
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
		case streamAck:
			// upstream is ready; nothing further to do until data arrives.
		case data:
			if msg.id != streamID {
				continue
			}
			for _, elem := range msg.elements {
				handle(elem)
				consumed++
			}
			if consumed >= defaultReplenish {
				actor.Send(upstream, creditGrant{id: streamID, amount: consumed})
				consumed = 0
			}
		case endOfStream:
			if msg.id != streamID {
				continue
			}
			finishOnce(nil)
			return
		case abort:
			if msg.id != streamID {
				continue
			}
			finishOnce(msg.err)
			return
		}
	}
}

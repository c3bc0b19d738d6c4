// Package registry implements the named-process directory (spec.md §4.7):
// Register/Unregister/WhereIs/SendNamed backed by a single dedicated actor
// that owns the name table, so every lookup and mutation is serialized
// without an explicit lock. Grounded on the teacher's
// actor/registry_process.go (cmdRegister/cmdUnregister/cmdGet running
// inside a receive loop), generalized to run on actor.SpawnDedicated as a
// plain command/reply protocol over envelopes rather than package-level
// closures, since the registry has no behavior.Behavior of its own
// instead of a bare goroutine plus closures over package-level state.
package registry

import (
	"time"

	"github.com/relaypoint/actorcore/actor"
	"github.com/relaypoint/actorcore/config"
	"github.com/relaypoint/actorcore/envelope"
	actorcontext "github.com/relaypoint/actorcore/internal/context"
	"github.com/relaypoint/actorcore/internal/pid"
	"github.com/relaypoint/actorcore/payload"
)

func payloadOf(p *pid.ProtectedPID) payload.Payload {
	return payload.New(p)
}

type cmdRegister struct {
	name string
	pid  *pid.ProtectedPID
}

type cmdUnregister struct {
	name string
}

type cmdWhereIs struct {
	name string
}

// Registry is a named-process directory.
type Registry struct {
	acb *actor.ACB
}

// New starts the registry's dedicated actor and returns a handle to it.
func New() *Registry {
	acb := actor.SpawnDedicated(config.Default(), run)
	return &Registry{acb: acb}
}

func run(ctx *actorcontext.Context) {
	table := make(map[string]*pid.ProtectedPID)
	for {
		v, ok := ctx.ReceiveBlocking(0)
		if !ok {
			return
		}
		env, isEnvelope := v.(envelope.Envelope)
		if !isEnvelope || env.Payload.Len() == 0 {
			continue
		}
		field, err := env.Payload.At(0)
		if err != nil {
			continue
		}
		switch cmd := field.(type) {
		case cmdRegister:
			table[cmd.name] = cmd.pid
		case cmdUnregister:
			delete(table, cmd.name)
		case cmdWhereIs:
			if env.Sender != nil {
				env.Sender.Deliver(envelope.New(payloadOf(table[cmd.name]), ctx.Self()))
			}
		}
	}
}

// Register binds name to pid, overwriting any previous binding.
func (r *Registry) Register(name string, p *pid.ProtectedPID) {
	actor.Send(r.acb.PID(), cmdRegister{name: name, pid: p})
}

// Unregister removes name's binding, if any.
func (r *Registry) Unregister(name string) {
	actor.Send(r.acb.PID(), cmdUnregister{name: name})
}

// WhereIs resolves name to its bound address, or nil if unbound.
func (r *Registry) WhereIs(name string) *pid.ProtectedPID {
	future := actor.NewFutureActor()
	defer future.Dispose()

	actor.Tell(future.Self(), r.acb.PID(), cmdWhereIs{name: name})
	resp, err := future.RecvWithTimeout(5 * time.Second)
	if err != nil {
		return nil
	}
	p, _ := resp.(*pid.ProtectedPID)
	return p
}

// SendNamed looks name up and, if bound, delivers values to it.
func (r *Registry) SendNamed(name string, values ...interface{}) bool {
	p := r.WhereIs(name)
	if p == nil {
		return false
	}
	actor.Send(p, values...)
	return true
}

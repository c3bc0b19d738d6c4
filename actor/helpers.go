package actor

import (
	"log"

	"github.com/relaypoint/actorcore/envelope"
	"github.com/relaypoint/actorcore/payload"
	"github.com/relaypoint/actorcore/sysmsg"
)

// payloadOf wraps a trapped system message so a Behavior can match on its
// concrete type like any other payload field.
func payloadOf(sm sysmsg.SystemMessage) payload.Payload {
	return payload.New(sm)
}

func logUnhandled(selfID string, env envelope.Envelope) {
	log.Printf("actor %s: unhandled message %#v\n", selfID, env.Payload.Fields())
}

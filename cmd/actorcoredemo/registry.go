package main

import (
	"fmt"
	"reflect"
	"time"

	"github.com/relaypoint/actorcore/actor"
	"github.com/relaypoint/actorcore/behavior"
	"github.com/relaypoint/actorcore/envelope"
	actorcontext "github.com/relaypoint/actorcore/internal/context"
	"github.com/relaypoint/actorcore/registry"
	"github.com/relaypoint/actorcore/scheduler"
)

var stringType = reflect.TypeOf("")

// greeterBehavior replies to a request carrying a single string with a
// greeting built from it.
func greeterBehavior() *behavior.Behavior {
	return behavior.New(behavior.Drop).On([]reflect.Type{stringType},
		func(ctx *actorcontext.Context, env envelope.Envelope, fields []interface{}) (interface{}, bool) {
			return "hello, " + fields[0].(string), true
		})
}

func runRegistry(sched *scheduler.Scheduler) {
	reg := registry.New()

	greeter := sched.Spawn(greeterBehavior())
	reg.Register("greeter", greeter)

	if reg.WhereIs("ghost") != nil {
		fmt.Println("unexpectedly resolved an unregistered name")
	}

	resolved := reg.WhereIs("greeter")
	fields, err := actor.Request(resolved, time.Second, "actorcore")
	if err != nil {
		fmt.Println("named request failed:", err)
		return
	}
	fmt.Println(fields.([]interface{})[0])

	reg.Unregister("greeter")
	fmt.Println("greeter still registered:", reg.WhereIs("greeter") != nil)
}

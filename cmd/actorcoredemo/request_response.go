package main

import (
	"fmt"
	"reflect"
	"time"

	"github.com/relaypoint/actorcore/actor"
	"github.com/relaypoint/actorcore/behavior"
	"github.com/relaypoint/actorcore/envelope"
	actorcontext "github.com/relaypoint/actorcore/internal/context"
	"github.com/relaypoint/actorcore/scheduler"
)

var intType = reflect.TypeOf(0)

// doublerBehavior replies to every request carrying a single int with
// twice its value; the engine synthesizes the response envelope itself
// since this is a request and the handler returns ok.
func doublerBehavior() *behavior.Behavior {
	return behavior.New(behavior.Drop).On([]reflect.Type{intType},
		func(ctx *actorcontext.Context, env envelope.Envelope, fields []interface{}) (interface{}, bool) {
			return fields[0].(int) * 2, true
		})
}

func runRequestResponse(sched *scheduler.Scheduler) {
	doubler := sched.Spawn(doublerBehavior())

	for _, n := range []int{1, 2, 3, 21} {
		fields, err := actor.Request(doubler, time.Second, n)
		if err != nil {
			fmt.Println("request failed:", err)
			continue
		}
		fmt.Printf("doubler(%d) = %v\n", n, fields.([]interface{})[0])
	}
}

package main

import (
	"fmt"
	"time"

	"github.com/relaypoint/actorcore/actor"
	"github.com/relaypoint/actorcore/envelope"
	actorcontext "github.com/relaypoint/actorcore/internal/context"
	"github.com/relaypoint/actorcore/supervisor"
	"github.com/relaypoint/actorcore/supervisor/spec"
)

// flakyWorker blocks on its mailbox and panics the first time it receives
// "crash", demonstrating a supervisor restart; any later message is just
// logged.
func flakyWorker(ctx *actorcontext.Context) {
	for {
		v, ok := ctx.ReceiveBlocking(0)
		if !ok {
			return
		}
		if env, isEnv := v.(envelope.Envelope); isEnv {
			if s, err := env.Payload.String(0); err == nil && s == "crash" {
				panic("flakyWorker: induced crash")
			}
		}
		fmt.Println("flakyWorker received:", v)
	}
}

func runSupervision() {
	opts := supervisor.NewOptions(supervisor.OneForOneStrategy, 3, 5).SetName("demo-supervisor")
	worker := spec.NewWorkerSpec("flaky", flakyWorker)

	sup, err := supervisor.StartLink(opts, worker)
	if err != nil {
		fmt.Println("supervisor failed to start:", err)
		return
	}

	before, _ := sup.WithChildren()
	pidBefore := before.ChildrenInfo[0].PID

	actor.Send(pidBefore, "crash")
	time.Sleep(100 * time.Millisecond)

	after, _ := sup.WithChildren()
	pidAfter := after.ChildrenInfo[0].PID
	fmt.Println("restarted with a new pid:", pidAfter.ID() != pidBefore.ID())

	counts, _ := sup.CountChildren()
	fmt.Printf("children: %d total, %d active, %d workers, %d supervisors\n",
		counts.Specs, counts.Active, counts.Workers, counts.Supervisors)

	if err := sup.Stop("demo complete"); err != nil {
		fmt.Println("stop failed:", err)
	}
}
